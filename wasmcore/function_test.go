// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/wasmcore"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

func TestNewFunctionDynamicCallRaw(t *testing.T) {
	s := newTestStore(t)
	ft := wasmtype.NewFunctionType([]wasmtype.Type{wasmtype.I32, wasmtype.I32}, []wasmtype.Type{wasmtype.I32})
	fn, err := wasmcore.NewFunction(s.AsMut(), ft, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		return []wasmtype.Value{wasmtype.I32Value(args[0].I32() + args[1].I32())}, nil
	})
	require.NoError(t, err)
	assert.True(t, ft.Equal(fn.Type()))

	args := []wasmtype.RawValue{wasmtype.I32Value(2).Raw(), wasmtype.I32Value(3).Raw()}
	results := make([]wasmtype.RawValue, 1)
	require.NoError(t, fn.CallRaw(context.Background(), s, args, results))
	assert.Equal(t, int32(5), wasmtype.FromRaw(results[0], wasmtype.I32).I32())
}

func TestFunctionCallRawWrongStore(t *testing.T) {
	s1 := newTestStore(t)
	s2 := newTestStore(t)
	ft := wasmtype.NewFunctionType(nil, []wasmtype.Type{wasmtype.I32})
	fn, err := wasmcore.NewFunction(s1.AsMut(), ft, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		return []wasmtype.Value{wasmtype.I32Value(1)}, nil
	})
	require.NoError(t, err)

	results := make([]wasmtype.RawValue, 1)
	err = fn.CallRaw(context.Background(), s2, nil, results)
	assert.ErrorIs(t, err, wasmerr.BadHandle)
}

func TestNewTypedHostFunctionDerivesSignature(t *testing.T) {
	s := newTestStore(t)
	fn, err := wasmcore.NewTypedHostFunction(s.AsMut(), func(a, b int32) int32 { return a + b })
	require.NoError(t, err)

	want := wasmtype.NewFunctionType([]wasmtype.Type{wasmtype.I32, wasmtype.I32}, []wasmtype.Type{wasmtype.I32})
	assert.True(t, want.Equal(fn.Type()))

	type Args struct{ A, B int32 }
	type Rets struct{ Sum int32 }
	typed, err := wasmcore.Typed[Args, Rets](s, fn)
	require.NoError(t, err)

	rets, err := typed.Call(context.Background(), s.AsMut(), Args{A: 4, B: 9})
	require.NoError(t, err)
	assert.Equal(t, int32(13), rets.Sum)
}

func TestNewTypedHostFunctionWithContext(t *testing.T) {
	s := newTestStore(t)
	seenCtx := false
	fn, err := wasmcore.NewTypedHostFunction(s.AsMut(), func(ctx context.Context, a int32) int32 {
		seenCtx = ctx != nil
		return a * 2
	})
	require.NoError(t, err)

	type Args struct{ A int32 }
	type Rets struct{ R int32 }
	typed, err := wasmcore.Typed[Args, Rets](s, fn)
	require.NoError(t, err)

	rets, err := typed.Call(context.Background(), s.AsMut(), Args{A: 21})
	require.NoError(t, err)
	assert.Equal(t, int32(42), rets.R)
	assert.True(t, seenCtx)
}
