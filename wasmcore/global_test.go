// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/wasmcore"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

func TestGlobalGetSet(t *testing.T) {
	s := newTestStore(t)
	g, err := wasmcore.NewGlobal(s.AsMut(), wasmtype.GlobalType{Type: wasmtype.I32, Mutability: wasmtype.Var}, wasmtype.I32Value(1))
	require.NoError(t, err)

	v, err := g.Get(s)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.I32())

	require.NoError(t, g.Set(s, wasmtype.I32Value(2)))
	v, err = g.Get(s)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v.I32())
}

func TestGlobalConstIsImmutable(t *testing.T) {
	s := newTestStore(t)
	g, err := wasmcore.NewGlobal(s.AsMut(), wasmtype.GlobalType{Type: wasmtype.I32, Mutability: wasmtype.Const}, wasmtype.I32Value(1))
	require.NoError(t, err)

	err = g.Set(s, wasmtype.I32Value(2))
	assert.ErrorIs(t, err, wasmerr.Immutable)
}

func TestGlobalNewTypeMismatch(t *testing.T) {
	s := newTestStore(t)
	_, err := wasmcore.NewGlobal(s.AsMut(), wasmtype.GlobalType{Type: wasmtype.I32, Mutability: wasmtype.Var}, wasmtype.F64Value(1.0))
	assert.ErrorIs(t, err, wasmerr.TypeMismatch)
}

func TestGlobalSetTypeMismatch(t *testing.T) {
	s := newTestStore(t)
	g, err := wasmcore.NewGlobal(s.AsMut(), wasmtype.GlobalType{Type: wasmtype.I32, Mutability: wasmtype.Var}, wasmtype.I32Value(1))
	require.NoError(t, err)

	err = g.Set(s, wasmtype.F64Value(1.0))
	assert.ErrorIs(t, err, wasmerr.TypeMismatch)
}
