// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/wasmcore"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

func TestTableGetSetGrow(t *testing.T) {
	s := newTestStore(t)
	null := wasmtype.FuncRefValue(wasmtype.RefHandle{})
	tbl, err := wasmcore.NewTable(s.AsMut(), wasmtype.TableType{Element: wasmtype.FuncRef, Limits: wasmtype.Limits{Min: 2, Max: 4, HasMax: true}}, null)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tbl.Size())

	prev, err := tbl.Grow(s, 1, null)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), prev)
	assert.Equal(t, uint32(3), tbl.Size())

	h := wasmtype.RefHandle{StoreID: s.ID(), Index: 0, Valid: true}
	ref := wasmtype.FuncRefValue(h)
	require.NoError(t, tbl.Set(s, 0, ref))
	got, err := tbl.Get(s, 0)
	require.NoError(t, err)
	assert.True(t, got.Equal(ref))
}

func TestTableGrowExceedsMax(t *testing.T) {
	s := newTestStore(t)
	null := wasmtype.FuncRefValue(wasmtype.RefHandle{})
	tbl, err := wasmcore.NewTable(s.AsMut(), wasmtype.TableType{Element: wasmtype.FuncRef, Limits: wasmtype.Limits{Min: 1, Max: 1, HasMax: true}}, null)
	require.NoError(t, err)

	_, err = tbl.Grow(s, 1, null)
	assert.ErrorIs(t, err, wasmerr.LimitExceeded)
}

func TestTableSetTypeMismatch(t *testing.T) {
	s := newTestStore(t)
	null := wasmtype.FuncRefValue(wasmtype.RefHandle{})
	tbl, err := wasmcore.NewTable(s.AsMut(), wasmtype.TableType{Element: wasmtype.FuncRef, Limits: wasmtype.Limits{Min: 1}}, null)
	require.NoError(t, err)

	err = tbl.Set(s, 0, wasmtype.I32Value(1))
	assert.ErrorIs(t, err, wasmerr.TypeMismatch)
}

func TestTableOutOfBounds(t *testing.T) {
	s := newTestStore(t)
	null := wasmtype.FuncRefValue(wasmtype.RefHandle{})
	tbl, err := wasmcore.NewTable(s.AsMut(), wasmtype.TableType{Element: wasmtype.FuncRef, Limits: wasmtype.Limits{Min: 1}}, null)
	require.NoError(t, err)

	_, err = tbl.Get(s, 5)
	var tae *wasmerr.TableAccessError
	assert.True(t, errors.As(err, &tae))
}
