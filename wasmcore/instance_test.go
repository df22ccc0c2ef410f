// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/internal/compiletest"
	"github.com/wasmkit/corewasm/wasmcore"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

var logFT = wasmtype.NewFunctionType([]wasmtype.Type{wasmtype.I32}, nil)

func forwardingModule() *compiletest.Module {
	imports := []backend.ImportDecl{{Module: "env", Name: "log", Type: wasmtype.ExternType{Kind: wasmtype.KindFunction, Function: logFT}}}
	exports := []backend.ExportDecl{{Name: "run", Type: wasmtype.ExternType{Kind: wasmtype.KindFunction, Function: logFT}}}
	return compiletest.NewModule(imports, exports, func(imports []backend.Extern) []backend.NamedExtern {
		return []backend.NamedExtern{{Name: "run", Extern: imports[0]}}
	})
}

func TestNewInstanceResolvesAndExports(t *testing.T) {
	s := newTestStore(t)
	var called int32
	logFn, err := wasmcore.NewFunction(s.AsMut(), logFT, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		called = args[0].I32()
		return nil, nil
	})
	require.NoError(t, err)

	imports := wasmcore.NewImports().Define("env", "log", wasmcore.Extern{Kind: wasmtype.KindFunction, Function: logFn})
	mod := wasmcore.WrapModule(backend.Native, forwardingModule())

	inst, err := wasmcore.NewInstance(context.Background(), s.AsMut(), mod, imports)
	require.NoError(t, err)

	run, err := inst.Exports().GetFunction("run")
	require.NoError(t, err)

	args := []wasmtype.RawValue{wasmtype.I32Value(7).Raw()}
	require.NoError(t, run.CallRaw(context.Background(), s, args, nil))
	assert.Equal(t, int32(7), called)
}

func TestNewInstanceMissingImport(t *testing.T) {
	s := newTestStore(t)
	mod := wasmcore.WrapModule(backend.Native, forwardingModule())

	_, err := wasmcore.NewInstance(context.Background(), s.AsMut(), mod, wasmcore.NewImports())
	var ie *wasmerr.InstantiationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, wasmerr.InstantiationLink, ie.Kind)
	assert.Equal(t, wasmerr.LinkImportNotFound, ie.Link.Kind)
}

func TestNewInstanceSignatureMismatch(t *testing.T) {
	s := newTestStore(t)
	badFT := wasmtype.NewFunctionType([]wasmtype.Type{wasmtype.I64}, nil)
	logFn, err := wasmcore.NewFunction(s.AsMut(), badFT, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		return nil, nil
	})
	require.NoError(t, err)

	imports := wasmcore.NewImports().Define("env", "log", wasmcore.Extern{Kind: wasmtype.KindFunction, Function: logFn})
	mod := wasmcore.WrapModule(backend.Native, forwardingModule())

	_, err = wasmcore.NewInstance(context.Background(), s.AsMut(), mod, imports)
	var ie *wasmerr.InstantiationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, wasmerr.LinkSignatureMismatch, ie.Link.Kind)
}

func TestNewInstanceDifferentStores(t *testing.T) {
	s1 := newTestStore(t)
	s2 := newTestStore(t)
	logFn, err := wasmcore.NewFunction(s2.AsMut(), logFT, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		return nil, nil
	})
	require.NoError(t, err)

	imports := wasmcore.NewImports().Define("env", "log", wasmcore.Extern{Kind: wasmtype.KindFunction, Function: logFn})
	mod := wasmcore.WrapModule(backend.Native, forwardingModule())

	_, err = wasmcore.NewInstance(context.Background(), s1.AsMut(), mod, imports)
	var ie *wasmerr.InstantiationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, wasmerr.InstantiationDifferentStores, ie.Kind)
}

func TestNewInstanceByIndex(t *testing.T) {
	s := newTestStore(t)
	logFn, err := wasmcore.NewFunction(s.AsMut(), logFT, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		return nil, nil
	})
	require.NoError(t, err)

	mod := wasmcore.WrapModule(backend.Native, forwardingModule())
	extern := wasmcore.Extern{Kind: wasmtype.KindFunction, Function: logFn}

	inst, err := wasmcore.NewInstanceByIndex(context.Background(), s.AsMut(), mod, []wasmcore.Extern{extern})
	require.NoError(t, err)
	assert.Equal(t, []string{"run"}, inst.Exports().Names())
}
