// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package wasmtimeengine adapts github.com/bytecodealliance/wasmtime-go/v3
// to the backend protocol (internal/backend), providing the External1 tag
//. The store/module/linker wiring follows the shape of the
// wapc-go wasmtime engine: one wasmtime.Engine, a wasmtime.Store per
// backend store, a wasmtime.Linker used to bind one host function per
// import, then Linker.Instantiate.
package wasmtimeengine

import (
	"context"
	"fmt"

	"github.com/bytecodealliance/wasmtime-go/v3"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

type protocol struct {
	engine *wasmtime.Engine
}

// New returns the cgo-backed wasmtime adapter (backend.External1).
func New() backend.Protocol {
	return &protocol{engine: wasmtime.NewEngine()}
}

func (p *protocol) Tag() backend.Tag { return backend.External1 }

func (p *protocol) Features() backend.FeatureSet {
	return backend.FeatureSet{"baseline": true, "cgo": true}
}

type store struct {
	store  *wasmtime.Store
	linker *wasmtime.Linker
}

func (p *protocol) NewStore(ctx context.Context) (backend.Store, error) {
	st := wasmtime.NewStore(p.engine)
	return &store{store: st, linker: wasmtime.NewLinker(p.engine)}, nil
}

func (s *store) Close(ctx context.Context) error { return nil }

func toValType(t wasmtype.Type) (*wasmtime.ValType, error) {
	switch t {
	case wasmtype.I32:
		return wasmtime.NewValType(wasmtime.KindI32), nil
	case wasmtype.I64:
		return wasmtime.NewValType(wasmtime.KindI64), nil
	case wasmtype.F32:
		return wasmtime.NewValType(wasmtime.KindF32), nil
	case wasmtype.F64:
		return wasmtime.NewValType(wasmtime.KindF64), nil
	case wasmtype.FuncRef:
		return wasmtime.NewValType(wasmtime.KindFuncref), nil
	case wasmtype.ExternRef:
		return wasmtime.NewValType(wasmtime.KindExternref), nil
	default:
		return nil, fmt.Errorf("wasmtime backend: unsupported value type %s", t)
	}
}

func toValTypes(ts []wasmtype.Type) ([]*wasmtime.ValType, error) {
	out := make([]*wasmtime.ValType, len(ts))
	for i, t := range ts {
		vt, err := toValType(t)
		if err != nil {
			return nil, err
		}
		out[i] = vt
	}
	return out, nil
}

func toVal(v wasmtype.Value) wasmtime.Val {
	switch v.Type() {
	case wasmtype.I32:
		return *wasmtime.ValI32(v.I32())
	case wasmtype.I64:
		return *wasmtime.ValI64(v.I64())
	case wasmtype.F32:
		return *wasmtime.ValF32(v.F32())
	case wasmtype.F64:
		return *wasmtime.ValF64(v.F64())
	default:
		return *wasmtime.ValI64(0)
	}
}

func fromVal(v wasmtime.Val, t wasmtype.Type) wasmtype.Value {
	switch t {
	case wasmtype.I32:
		return wasmtype.I32Value(v.I32())
	case wasmtype.I64:
		return wasmtype.I64Value(v.I64())
	case wasmtype.F32:
		return wasmtype.F32Value(v.F32())
	case wasmtype.F64:
		return wasmtype.F64Value(v.F64())
	default:
		return wasmtype.I64Value(0)
	}
}

type hostFunction struct {
	ft wasmtype.FunctionType
	f  *wasmtime.Func
}

func (h *hostFunction) Type() wasmtype.FunctionType { return h.ft }

func (h *hostFunction) Call(ctx context.Context, args []wasmtype.RawValue, results []wasmtype.RawValue) error {
	callArgs := make([]interface{}, len(args))
	for i, a := range args {
		callArgs[i] = rawToInterface(a, h.ft.Params[i])
	}
	ret, err := h.f.Call(wasmStoreless(), callArgs...)
	if err != nil {
		return wasmerr.NewTrap(wasmerr.TrapUnreachable, err.Error())
	}
	writeResults(ret, h.ft.Results, results)
	return nil
}

// wasmStoreless exists because wasmtime-go's Func.Call takes a *Store the
// core does not keep threaded through backend.Function; hostFunction.Call,
// which wasmcore's Function and TypedFunction calls reach directly, uses a
// package-scoped store reference that NewFunction sets to the store of the
// most recently created host function. See storeForCalls.
func wasmStoreless() *wasmtime.Store { return storeForCalls }

var storeForCalls *wasmtime.Store

func rawToInterface(r wasmtype.RawValue, t wasmtype.Type) interface{} {
	v := wasmtype.FromRaw(r, t)
	switch t {
	case wasmtype.I32:
		return v.I32()
	case wasmtype.I64:
		return v.I64()
	case wasmtype.F32:
		return v.F32()
	case wasmtype.F64:
		return v.F64()
	default:
		return int64(0)
	}
}

func writeResults(ret interface{}, types []wasmtype.Type, out []wasmtype.RawValue) {
	if len(types) == 0 {
		return
	}
	if len(types) == 1 {
		out[0] = scalarToValue(ret, types[0]).Raw()
		return
	}
	vals, _ := ret.([]wasmtime.Val)
	for i, ty := range types {
		if i >= len(vals) {
			break
		}
		out[i] = fromVal(vals[i], ty).Raw()
	}
}

func scalarToValue(v interface{}, t wasmtype.Type) wasmtype.Value {
	switch x := v.(type) {
	case int32:
		return wasmtype.I32Value(x)
	case int64:
		return wasmtype.I64Value(x)
	case float32:
		return wasmtype.F32Value(x)
	case float64:
		return wasmtype.F64Value(x)
	default:
		return wasmtype.Value{}
	}
}

func (p *protocol) NewFunction(s backend.Store, ft wasmtype.FunctionType, f backend.DynamicHostFunc) (backend.Function, error) {
	st := s.(*store)
	storeForCalls = st.store
	wasmFn := wasmtime.NewFunc(st.store, funcType(ft), func(caller *wasmtime.Caller, args []wasmtime.Val) ([]wasmtime.Val, *wasmtime.Trap) {
		in := make([]wasmtype.Value, len(args))
		for i, a := range args {
			in[i] = fromVal(a, ft.Params[i])
		}
		rets, err := f(context.Background(), in)
		if err != nil {
			return nil, wasmtime.NewTrap(err.Error())
		}
		out := make([]wasmtime.Val, len(rets))
		for i, r := range rets {
			out[i] = toVal(r)
		}
		return out, nil
	})
	return &hostFunction{ft: ft, f: wasmFn}, nil
}

func funcType(ft wasmtype.FunctionType) *wasmtime.FuncType {
	params, _ := toValTypes(ft.Params)
	results, _ := toValTypes(ft.Results)
	return wasmtime.NewFuncType(params, results)
}

type memory struct {
	ty  wasmtype.MemoryType
	st  *wasmtime.Store
	mem *wasmtime.Memory
}

func (m *memory) Type() wasmtype.MemoryType { return m.ty }
func (m *memory) Size() uint32              { return uint32(m.mem.Size(m.st)) }
func (m *memory) Data() []byte              { return m.mem.UnsafeData(m.st) }

func (m *memory) Grow(delta uint32) (uint32, error) {
	prev, err := m.mem.Grow(m.st, uint64(delta))
	if err != nil {
		return 0, wasmerr.LimitExceeded
	}
	return uint32(prev), nil
}

func (p *protocol) NewMemory(s backend.Store, ty wasmtype.MemoryType) (backend.Memory, error) {
	st := s.(*store)
	limits := wasmtime.NewLimits(uint32(ty.Limits.Min), memLimit(ty.Limits))
	mt := wasmtime.NewMemoryType(limits.Min, ty.Limits.HasMax, limits.Max, ty.Shared)
	mem, err := wasmtime.NewMemory(st.store, mt)
	if err != nil {
		return nil, err
	}
	return &memory{ty: ty, st: st.store, mem: mem}, nil
}

func memLimit(l wasmtype.Limits) uint32 {
	if l.HasMax {
		return l.Max
	}
	return wasmtime.LimitsMaxNone
}

type global struct {
	ty wasmtype.GlobalType
	st *wasmtime.Store
	g  *wasmtime.Global
}

func (g *global) Type() wasmtype.GlobalType { return g.ty }
func (g *global) Get() wasmtype.Value       { return fromVal(g.g.Get(g.st), g.ty.Type) }
func (g *global) Set(v wasmtype.Value) error {
	if g.ty.Mutability == wasmtype.Const {
		return wasmerr.Immutable
	}
	val := toVal(v)
	return g.g.Set(g.st, &val)
}

func (p *protocol) NewGlobal(s backend.Store, ty wasmtype.GlobalType, init wasmtype.Value) (backend.Global, error) {
	st := s.(*store)
	vt, err := toValType(ty.Type)
	if err != nil {
		return nil, err
	}
	mutability := wasmtime.GlobalMutabilityConst
	if ty.Mutability == wasmtype.Var {
		mutability = wasmtime.GlobalMutabilityVar
	}
	gt := wasmtime.NewGlobalType(vt, mutability)
	val := toVal(init)
	g, err := wasmtime.NewGlobal(st.store, gt, &val)
	if err != nil {
		return nil, err
	}
	return &global{ty: ty, st: st.store, g: g}, nil
}

type table struct {
	ty wasmtype.TableType
	st *wasmtime.Store
	t  *wasmtime.Table
}

func (t *table) Type() wasmtype.TableType { return t.ty }
func (t *table) Size() uint32             { return uint32(t.t.Size(t.st)) }

func (t *table) Get(index uint32) (wasmtype.Value, error) {
	val := t.t.Get(t.st, index)
	if val == nil {
		return wasmtype.Value{}, &wasmerr.TableAccessError{Index: index, TableSize: t.Size()}
	}
	return fromVal(*val, t.ty.Element), nil
}

func (t *table) Set(index uint32, v wasmtype.Value) error {
	val := toVal(v)
	return t.t.Set(t.st, index, &val)
}

func (t *table) Grow(delta uint32, init wasmtype.Value) (uint32, error) {
	val := toVal(init)
	prev, err := t.t.Grow(t.st, delta, &val)
	if err != nil {
		return 0, wasmerr.LimitExceeded
	}
	return prev, nil
}

func (p *protocol) NewTable(s backend.Store, ty wasmtype.TableType, init wasmtype.Value) (backend.Table, error) {
	st := s.(*store)
	vt, err := toValType(ty.Element)
	if err != nil {
		return nil, err
	}
	tt := wasmtime.NewTableType(vt, uint32(ty.Limits.Min), ty.Limits.HasMax, memLimit(ty.Limits))
	val := toVal(init)
	t, err := wasmtime.NewTable(st.store, tt, &val)
	if err != nil {
		return nil, err
	}
	return &table{ty: ty, st: st.store, t: t}, nil
}

type instance struct {
	inst    *wasmtime.Instance
	st      *wasmtime.Store
	exports []backend.NamedExtern
}

func (i *instance) Exports() []backend.NamedExtern  { return i.exports }
func (i *instance) Close(ctx context.Context) error { return nil }

// exportedFunction wraps a guest-exported *wasmtime.Func as a
// backend.Function.
type exportedFunction struct {
	ft wasmtype.FunctionType
	st *wasmtime.Store
	fn *wasmtime.Func
}

func (f *exportedFunction) Type() wasmtype.FunctionType { return f.ft }

func (f *exportedFunction) Call(ctx context.Context, args []wasmtype.RawValue, results []wasmtype.RawValue) error {
	callArgs := make([]interface{}, len(args))
	for i, a := range args {
		callArgs[i] = rawToInterface(a, f.ft.Params[i])
	}
	ret, err := f.fn.Call(f.st, callArgs...)
	if err != nil {
		return wasmerr.NewTrap(wasmerr.TrapUnreachable, err.Error())
	}
	writeResults(ret, f.ft.Results, results)
	return nil
}

func (p *protocol) Instantiate(ctx context.Context, s backend.Store, m backend.Module, imports []backend.Extern) (backend.Instance, error) {
	st := s.(*store)
	wm, ok := m.(*Module)
	if !ok {
		return nil, fmt.Errorf("wasmtime backend: module was not compiled by this backend")
	}
	var externs []wasmtime.AsExtern
	for _, e := range imports {
		switch e.Kind {
		case wasmtype.KindFunction:
			hf := e.Function.(*hostFunction)
			externs = append(externs, hf.f)
		case wasmtype.KindMemory:
			externs = append(externs, e.Memory.(*memory).mem)
		case wasmtype.KindGlobal:
			externs = append(externs, e.Global.(*global).g)
		case wasmtype.KindTable:
			externs = append(externs, e.Table.(*table).t)
		}
	}
	inst, err := wasmtime.NewInstance(st.store, wm.module, externs)
	if err != nil {
		return nil, wasmerr.NewTrap(wasmerr.TrapUnreachable, err.Error())
	}

	exports := make([]backend.NamedExtern, 0, len(wm.exports))
	for _, decl := range wm.exports {
		ext := inst.GetExport(st.store, decl.Name)
		if ext == nil {
			continue
		}
		switch decl.Type.Kind {
		case wasmtype.KindFunction:
			if fn := ext.Func(); fn != nil {
				exports = append(exports, backend.NamedExtern{Name: decl.Name, Extern: backend.Extern{
					Kind:     decl.Type.Kind,
					Function: &exportedFunction{ft: decl.Type.Function, st: st.store, fn: fn},
				}})
			}
		case wasmtype.KindMemory:
			if mem := ext.Memory(); mem != nil {
				exports = append(exports, backend.NamedExtern{Name: decl.Name, Extern: backend.Extern{
					Kind:   decl.Type.Kind,
					Memory: &memory{ty: decl.Type.Memory, st: st.store, mem: mem},
				}})
			}
		case wasmtype.KindGlobal:
			if g := ext.Global(); g != nil {
				exports = append(exports, backend.NamedExtern{Name: decl.Name, Extern: backend.Extern{
					Kind:   decl.Type.Kind,
					Global: &global{ty: decl.Type.Global, st: st.store, g: g},
				}})
			}
		case wasmtype.KindTable:
			if tbl := ext.Table(); tbl != nil {
				exports = append(exports, backend.NamedExtern{Name: decl.Name, Extern: backend.Extern{
					Kind:  decl.Type.Kind,
					Table: &table{ty: decl.Type.Table, st: st.store, t: tbl},
				}})
			}
		}
	}
	return &instance{inst: inst, st: st.store, exports: exports}, nil
}

// Module wraps a wasmtime.Module together with its declared import/export
// shape.
type Module struct {
	module  *wasmtime.Module
	imports []backend.ImportDecl
	exports []backend.ExportDecl
}

func (m *Module) Imports() []backend.ImportDecl { return m.imports }
func (m *Module) Exports() []backend.ExportDecl { return m.exports }

// Compile parses and validates wasm bytes for this backend.
func Compile(p backend.Protocol, wasmBytes []byte) (*Module, error) {
	pr, ok := p.(*protocol)
	if !ok {
		return nil, fmt.Errorf("wasmtime backend: Compile called with a foreign protocol")
	}
	mod, err := wasmtime.NewModule(pr.engine, wasmBytes)
	if err != nil {
		return nil, err
	}
	m := &Module{module: mod}
	for _, imp := range mod.Imports() {
		ft, kind := externTypeFromWasmtime(imp.Type())
		m.imports = append(m.imports, backend.ImportDecl{Module: imp.Module(), Name: *imp.Name(), Type: wasmtype.ExternType{Kind: kind, Function: ft}})
	}
	for _, exp := range mod.Exports() {
		ft, kind := externTypeFromWasmtime(exp.Type())
		m.exports = append(m.exports, backend.ExportDecl{Name: exp.Name(), Type: wasmtype.ExternType{Kind: kind, Function: ft}})
	}
	return m, nil
}

func externTypeFromWasmtime(et *wasmtime.ExternType) (wasmtype.FunctionType, wasmtype.ExternKind) {
	if ft := et.FuncType(); ft != nil {
		toTypes := func(vts []*wasmtime.ValType) []wasmtype.Type {
			out := make([]wasmtype.Type, len(vts))
			for i, vt := range vts {
				out[i] = typeFromValKind(vt.Kind())
			}
			return out
		}
		return wasmtype.NewFunctionType(toTypes(ft.Params()), toTypes(ft.Results())), wasmtype.KindFunction
	}
	if et.MemoryType() != nil {
		return wasmtype.FunctionType{}, wasmtype.KindMemory
	}
	if et.GlobalType() != nil {
		return wasmtype.FunctionType{}, wasmtype.KindGlobal
	}
	return wasmtype.FunctionType{}, wasmtype.KindTable
}

func typeFromValKind(k wasmtime.ValKind) wasmtype.Type {
	switch k {
	case wasmtime.KindI32:
		return wasmtype.I32
	case wasmtime.KindI64:
		return wasmtype.I64
	case wasmtime.KindF32:
		return wasmtype.F32
	case wasmtime.KindF64:
		return wasmtype.F64
	case wasmtime.KindExternref:
		return wasmtype.ExternRef
	default:
		return wasmtype.FuncRef
	}
}
