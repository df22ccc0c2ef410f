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

func TestImportsDefineAndGet(t *testing.T) {
	s := newTestStore(t)
	mem, err := wasmcore.NewMemory(s.AsMut(), wasmtype.MemoryType{Limits: wasmtype.Limits{Min: 1}})
	require.NoError(t, err)

	im := wasmcore.NewImports().Define("env", "mem", wasmcore.Extern{Kind: wasmtype.KindMemory, Memory: mem})
	got, ok := im.Get("env", "mem")
	assert.True(t, ok)
	assert.Equal(t, mem, got.Memory)

	_, ok = im.Get("env", "missing")
	assert.False(t, ok)
}

func memoryModule(want wasmtype.MemoryType) *compiletest.Module {
	imports := []backend.ImportDecl{{Module: "env", Name: "mem", Type: wasmtype.ExternType{Kind: wasmtype.KindMemory, Memory: want}}}
	return compiletest.NewModule(imports, nil, nil)
}

func TestImportsResolveLimitsMismatch(t *testing.T) {
	s := newTestStore(t)
	mem, err := wasmcore.NewMemory(s.AsMut(), wasmtype.MemoryType{Limits: wasmtype.Limits{Min: 1, Max: 2, HasMax: true}})
	require.NoError(t, err)

	mod := wasmcore.WrapModule(backend.Native, memoryModule(wasmtype.MemoryType{Limits: wasmtype.Limits{Min: 1, Max: 1, HasMax: true}}))
	imports := wasmcore.NewImports().Define("env", "mem", wasmcore.Extern{Kind: wasmtype.KindMemory, Memory: mem})

	_, err = wasmcore.NewInstance(context.Background(), s.AsMut(), mod, imports)
	var ie *wasmerr.InstantiationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, wasmerr.LinkLimitsMismatch, ie.Link.Kind)
}

func globalModule(want wasmtype.GlobalType) *compiletest.Module {
	imports := []backend.ImportDecl{{Module: "env", Name: "g", Type: wasmtype.ExternType{Kind: wasmtype.KindGlobal, Global: want}}}
	return compiletest.NewModule(imports, nil, nil)
}

func TestImportsResolveGlobalTypeMismatch(t *testing.T) {
	s := newTestStore(t)
	g, err := wasmcore.NewGlobal(s.AsMut(), wasmtype.GlobalType{Type: wasmtype.I32, Mutability: wasmtype.Const}, wasmtype.I32Value(1))
	require.NoError(t, err)

	mod := wasmcore.WrapModule(backend.Native, globalModule(wasmtype.GlobalType{Type: wasmtype.I32, Mutability: wasmtype.Var}))
	imports := wasmcore.NewImports().Define("env", "g", wasmcore.Extern{Kind: wasmtype.KindGlobal, Global: g})

	_, err = wasmcore.NewInstance(context.Background(), s.AsMut(), mod, imports)
	var ie *wasmerr.InstantiationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, wasmerr.LinkGlobalTypeMismatch, ie.Link.Kind)
}

func TestImportsResolveIncompatibleKind(t *testing.T) {
	s := newTestStore(t)
	mem, err := wasmcore.NewMemory(s.AsMut(), wasmtype.MemoryType{Limits: wasmtype.Limits{Min: 1}})
	require.NoError(t, err)

	mod := wasmcore.WrapModule(backend.Native, globalModule(wasmtype.GlobalType{Type: wasmtype.I32, Mutability: wasmtype.Var}))
	imports := wasmcore.NewImports().Define("env", "g", wasmcore.Extern{Kind: wasmtype.KindMemory, Memory: mem})

	_, err = wasmcore.NewInstance(context.Background(), s.AsMut(), mod, imports)
	var ie *wasmerr.InstantiationError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, wasmerr.LinkIncompatibleType, ie.Link.Kind)
}
