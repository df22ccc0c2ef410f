// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package compiletest provides an in-memory backend.Protocol used by
// wasmcore's own tests so they can exercise Store/Instance/Extern
// semantics without a real compiled .wasm binary or a cgo/ahead-of-time
// engine. It mirrors the bare-Memory construction trick used in the OPA
// wasm SDK's internal/wasm/sdk/internal/wasm vm_test.go, where tests
// build a Memory directly rather than through a full module instantiate.
package compiletest

import (
	"context"
	"fmt"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// Protocol is a deterministic, allocation-only backend.Protocol: host
// functions call straight through to the supplied Go closure, memories and
// tables are plain Go slices, and Instantiate does nothing more than
// collect the declared exports a Module was built with.
type Protocol struct{}

// New returns a fresh fake protocol tagged backend.Native. Every Protocol
// value reports backend.Native; the tag cannot be overridden.
func New() *Protocol { return &Protocol{} }

func (p *Protocol) Tag() backend.Tag                { return backend.Native }
func (p *Protocol) Features() backend.FeatureSet    { return backend.FeatureSet{"baseline": true} }

type fakeStore struct{ closed bool }

func (p *Protocol) NewStore(ctx context.Context) (backend.Store, error) { return &fakeStore{}, nil }

func (s *fakeStore) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

type fakeFunction struct {
	ft wasmtype.FunctionType
	f  backend.DynamicHostFunc
}

func (f *fakeFunction) Type() wasmtype.FunctionType { return f.ft }

func (f *fakeFunction) Call(ctx context.Context, args []wasmtype.RawValue, results []wasmtype.RawValue) error {
	in := make([]wasmtype.Value, len(args))
	for i, a := range args {
		in[i] = wasmtype.FromRaw(a, f.ft.Params[i])
	}
	rets, err := f.f(ctx, in)
	if err != nil {
		return wasmerr.UserTrap(err)
	}
	if len(rets) != len(f.ft.Results) {
		return fmt.Errorf("compiletest: host function returned %d values, want %d", len(rets), len(f.ft.Results))
	}
	for i, r := range rets {
		results[i] = r.Raw()
	}
	return nil
}

func (p *Protocol) NewFunction(s backend.Store, ft wasmtype.FunctionType, f backend.DynamicHostFunc) (backend.Function, error) {
	return &fakeFunction{ft: ft, f: f}, nil
}

type fakeMemory struct {
	ty   wasmtype.MemoryType
	data []byte
}

const pageSize = 65536

func (m *fakeMemory) Type() wasmtype.MemoryType { return m.ty }
func (m *fakeMemory) Size() uint32              { return uint32(len(m.data)) / pageSize }
func (m *fakeMemory) Data() []byte              { return m.data }

func (m *fakeMemory) Grow(delta uint32) (uint32, error) {
	prev := m.Size()
	next := prev + delta
	if m.ty.Limits.HasMax && next > m.ty.Limits.Max {
		return 0, wasmerr.LimitExceeded
	}
	m.data = append(m.data, make([]byte, delta*pageSize)...)
	return prev, nil
}

func (p *Protocol) NewMemory(s backend.Store, ty wasmtype.MemoryType) (backend.Memory, error) {
	return &fakeMemory{ty: ty, data: make([]byte, uint32(ty.Limits.Min)*pageSize)}, nil
}

type fakeGlobal struct {
	ty  wasmtype.GlobalType
	val wasmtype.Value
}

func (g *fakeGlobal) Type() wasmtype.GlobalType { return g.ty }
func (g *fakeGlobal) Get() wasmtype.Value       { return g.val }

func (g *fakeGlobal) Set(v wasmtype.Value) error {
	if g.ty.Mutability == wasmtype.Const {
		return wasmerr.Immutable
	}
	g.val = v
	return nil
}

func (p *Protocol) NewGlobal(s backend.Store, ty wasmtype.GlobalType, init wasmtype.Value) (backend.Global, error) {
	return &fakeGlobal{ty: ty, val: init}, nil
}

type fakeTable struct {
	ty    wasmtype.TableType
	elems []wasmtype.Value
}

func (t *fakeTable) Type() wasmtype.TableType { return t.ty }
func (t *fakeTable) Size() uint32             { return uint32(len(t.elems)) }

func (t *fakeTable) Get(index uint32) (wasmtype.Value, error) {
	if index >= uint32(len(t.elems)) {
		return wasmtype.Value{}, &wasmerr.TableAccessError{Index: index, TableSize: uint32(len(t.elems))}
	}
	return t.elems[index], nil
}

func (t *fakeTable) Set(index uint32, v wasmtype.Value) error {
	if index >= uint32(len(t.elems)) {
		return &wasmerr.TableAccessError{Index: index, TableSize: uint32(len(t.elems))}
	}
	t.elems[index] = v
	return nil
}

func (t *fakeTable) Grow(delta uint32, init wasmtype.Value) (uint32, error) {
	prev := uint32(len(t.elems))
	if t.ty.Limits.HasMax && prev+delta > t.ty.Limits.Max {
		return 0, wasmerr.LimitExceeded
	}
	for i := uint32(0); i < delta; i++ {
		t.elems = append(t.elems, init)
	}
	return prev, nil
}

func (p *Protocol) NewTable(s backend.Store, ty wasmtype.TableType, init wasmtype.Value) (backend.Table, error) {
	t := &fakeTable{ty: ty}
	for i := uint32(0); i < ty.Limits.Min; i++ {
		t.elems = append(t.elems, init)
	}
	return t, nil
}

type fakeInstance struct {
	exports []backend.NamedExtern
}

func (i *fakeInstance) Exports() []backend.NamedExtern  { return i.exports }
func (i *fakeInstance) Close(ctx context.Context) error { return nil }

func (p *Protocol) Instantiate(ctx context.Context, s backend.Store, m backend.Module, imports []backend.Extern) (backend.Instance, error) {
	mod, ok := m.(*Module)
	if !ok {
		return nil, fmt.Errorf("compiletest: Instantiate called with a foreign module")
	}
	if len(imports) != len(mod.imports) {
		return nil, &wasmerr.LinkError{Kind: wasmerr.LinkImportNotFound, Detail: "import count mismatch"}
	}
	if mod.start != nil {
		if err := mod.start(ctx, imports); err != nil {
			return nil, err
		}
	}
	exports := mod.makeExports(imports)
	return &fakeInstance{exports: exports}, nil
}

// Module is a hand-built fake module: a fixed import declaration list and a
// function that produces the instance's exports out of the resolved
// imports, so tests can model modules that forward an import straight to
// an export without any real wasm
// bytes.
type Module struct {
	imports []backend.ImportDecl
	exports []backend.ExportDecl
	// start, if set, runs during Instantiate and can fail instantiation
	// (modeling a start function trap).
	start func(ctx context.Context, imports []backend.Extern) error
	// makeExports builds the instance's exports from resolved imports;
	// when NewModule is given nil, it defaults to a function returning no
	// exports.
	makeExports func(imports []backend.Extern) []backend.NamedExtern
}

// NewModule builds a fake Module with the given import declarations and a
// function producing its instance exports.
func NewModule(imports []backend.ImportDecl, exports []backend.ExportDecl, makeExports func([]backend.Extern) []backend.NamedExtern) *Module {
	m := &Module{imports: imports, exports: exports, makeExports: makeExports}
	if m.makeExports == nil {
		m.makeExports = func([]backend.Extern) []backend.NamedExtern { return nil }
	}
	return m
}

// WithStart attaches a start-function hook and returns m for chaining.
func (m *Module) WithStart(f func(ctx context.Context, imports []backend.Extern) error) *Module {
	m.start = f
	return m
}

func (m *Module) Imports() []backend.ImportDecl { return m.imports }
func (m *Module) Exports() []backend.ExportDecl { return m.exports }
