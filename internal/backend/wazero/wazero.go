// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package wazero adapts github.com/tetratelabs/wazero to the backend
// protocol (internal/backend), providing both the Native (ahead-of-time
// compiled) and Interpreter tags from a single code path -- the two
// differ only in the wazero.RuntimeConfig passed to NewProtocol, mirroring
// the two wazero.NewRuntimeConfig{Compiler,Interpreter} constructors.
//
// The store/module/instance wrapper shape here follows the same split the
// OPA wasm SDK's internal/wasm/sdk/internal/wazero adapter and the
// wapc-go wazero engine use: one long-lived runtime, a Store per backend
// store, and thin wrapper types translating between wazero's api.ValueType
// slices and this module's wasmtype vocabulary.
package wazero

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// hostModuleName builds a collision-free wazero host module name for a
// store-constructed (rather than module-imported) memory or global: kind
// disambiguates it in logs, the UUID suffix guarantees uniqueness across
// the lifetime of a long-lived runtime shared by many stores.
func hostModuleName(kind string) string {
	return fmt.Sprintf("corewasm/%s/%s", kind, uuid.NewString())
}

// protocol implements backend.Protocol over a single wazero.Runtime.
type protocol struct {
	tag     backend.Tag
	runtime wazero.Runtime
}

// NewNative returns the ahead-of-time compiled backend (backend.Native).
func NewNative(ctx context.Context) backend.Protocol {
	cfg := wazero.NewRuntimeConfigCompiler()
	return &protocol{tag: backend.Native, runtime: wazero.NewRuntimeWithConfig(ctx, cfg)}
}

// NewInterpreter returns the pure-Go interpreter backend (backend.Interpreter).
func NewInterpreter(ctx context.Context) backend.Protocol {
	cfg := wazero.NewRuntimeConfigInterpreter()
	return &protocol{tag: backend.Interpreter, runtime: wazero.NewRuntimeWithConfig(ctx, cfg)}
}

func (p *protocol) Tag() backend.Tag { return p.tag }

func (p *protocol) Features() backend.FeatureSet {
	// wazero requires no particular host CPU feature beyond what the Go
	// toolchain already targets, so only "baseline" is reported.
	return backend.FeatureSet{"baseline": true}
}

type store struct {
	runtime wazero.Runtime
	modules []api.Module // host modules registered for this store's lifetime
}

func (p *protocol) NewStore(ctx context.Context) (backend.Store, error) {
	return &store{runtime: p.runtime}, nil
}

func (s *store) Close(ctx context.Context) error {
	var firstErr error
	for _, m := range s.modules {
		if err := m.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// valueTypes converts a wasmtype function signature into wazero's
// api.ValueType vocabulary. FuncRef and ExternRef map to wazero's
// funcref/externref value types; any other type (V128, ExceptionRef) is
// rejected with an error.
func valueTypes(ts []wasmtype.Type) ([]api.ValueType, error) {
	out := make([]api.ValueType, len(ts))
	for i, t := range ts {
		switch t {
		case wasmtype.I32:
			out[i] = api.ValueTypeI32
		case wasmtype.I64:
			out[i] = api.ValueTypeI64
		case wasmtype.F32:
			out[i] = api.ValueTypeF32
		case wasmtype.F64:
			out[i] = api.ValueTypeF64
		case wasmtype.FuncRef:
			out[i] = api.ValueTypeFuncref
		case wasmtype.ExternRef:
			out[i] = api.ValueTypeExternref
		default:
			return nil, fmt.Errorf("wazero backend: unsupported value type %s", t)
		}
	}
	return out, nil
}

func (p *protocol) NewFunction(s backend.Store, ft wasmtype.FunctionType, f backend.DynamicHostFunc) (backend.Function, error) {
	params, err := valueTypes(ft.Params)
	if err != nil {
		return nil, err
	}
	results, err := valueTypes(ft.Results)
	if err != nil {
		return nil, err
	}
	return &hostFunction{ft: ft, fn: f, params: params, results: results}, nil
}

// hostFunction wraps an embedder-supplied DynamicHostFunc so it can be
// registered on a wazero host module builder via api.GoModuleFunction.
type hostFunction struct {
	ft      wasmtype.FunctionType
	fn      backend.DynamicHostFunc
	params  []api.ValueType
	results []api.ValueType
}

func (h *hostFunction) Type() wasmtype.FunctionType { return h.ft }

func (h *hostFunction) Call(ctx context.Context, args []wasmtype.RawValue, results []wasmtype.RawValue) error {
	vals := make([]wasmtype.Value, len(args))
	for i, a := range args {
		vals[i] = wasmtype.FromRaw(a, h.ft.Params[i])
	}
	rets, err := h.fn(ctx, vals)
	if err != nil {
		return wasmerr.UserTrap(err)
	}
	for i, r := range rets {
		if i >= len(results) {
			break
		}
		results[i] = r.Raw()
	}
	return nil
}

// Call2 implements api.GoModuleFunction, the entry point wazero invokes for
// a host function registered through NewHostModuleBuilder.
func (h *hostFunction) Call2(ctx context.Context, mod api.Module, stack []uint64) {
	args := make([]wasmtype.Value, len(h.ft.Params))
	for i, pt := range h.ft.Params {
		args[i] = rawFromStack(stack[i], pt)
	}
	rets, err := h.fn(ctx, args)
	if err != nil {
		panic(wasmerr.UserTrap(err))
	}
	for i, r := range rets {
		stack[i] = stackFromValue(r)
	}
}

func rawFromStack(w uint64, t wasmtype.Type) wasmtype.Value {
	switch t {
	case wasmtype.I32:
		return wasmtype.I32Value(int32(uint32(w)))
	case wasmtype.I64:
		return wasmtype.I64Value(int64(w))
	case wasmtype.F32:
		return wasmtype.F32Value(api.DecodeF32(w))
	case wasmtype.F64:
		return wasmtype.F64Value(api.DecodeF64(w))
	default:
		return wasmtype.I64Value(int64(w))
	}
}

func stackFromValue(v wasmtype.Value) uint64 {
	switch v.Type() {
	case wasmtype.I32:
		return uint64(uint32(v.I32()))
	case wasmtype.I64:
		return uint64(v.I64())
	case wasmtype.F32:
		return api.EncodeF32(v.F32())
	case wasmtype.F64:
		return api.EncodeF64(v.F64())
	default:
		return uint64(v.I64())
	}
}

type memory struct {
	ty  wasmtype.MemoryType
	mem api.Memory
}

func (m *memory) Type() wasmtype.MemoryType { return m.ty }
func (m *memory) Size() uint32              { return m.mem.Size() / wasmPageSize }
func (m *memory) Data() []byte {
	b, _ := m.mem.Read(0, m.mem.Size())
	return b
}

const wasmPageSize = 65536

func (m *memory) Grow(delta uint32) (uint32, error) {
	prev, ok := m.mem.Grow(delta)
	if !ok {
		return 0, wasmerr.LimitExceeded
	}
	return prev, nil
}

func (p *protocol) NewMemory(s backend.Store, ty wasmtype.MemoryType) (backend.Memory, error) {
	// wazero only exposes api.Memory as attached to an instantiated module;
	// a standalone memory is modeled as a tiny single-export host module so
	// it can be imported by a later Instantiate call, matching how wazero's
	// own HostModuleBuilder is used to share memories across modules.
	st := s.(*store)
	builder := st.runtime.NewHostModuleBuilder(hostModuleName("mem"))
	builder.ExportMemory("memory", ty.Limits.Min)
	mod, err := builder.Instantiate(context.Background())
	if err != nil {
		return nil, err
	}
	st.modules = append(st.modules, mod)
	return &memory{ty: ty, mem: mod.ExportedMemory("memory")}, nil
}

type global struct {
	ty  wasmtype.GlobalType
	g   api.Global
}

func (g *global) Type() wasmtype.GlobalType { return g.ty }
func (g *global) Get() wasmtype.Value       { return rawFromStack(g.g.Get(), g.ty.Type) }
func (g *global) Set(v wasmtype.Value) error {
	mg, ok := g.g.(api.MutableGlobal)
	if !ok {
		return wasmerr.Immutable
	}
	mg.Set(stackFromValue(v))
	return nil
}

func (p *protocol) NewGlobal(s backend.Store, ty wasmtype.GlobalType, init wasmtype.Value) (backend.Global, error) {
	st := s.(*store)
	builder := st.runtime.NewHostModuleBuilder(hostModuleName("global"))
	builder.ExportGlobal("global", stackFromValue(init))
	mod, err := builder.Instantiate(context.Background())
	if err != nil {
		return nil, err
	}
	st.modules = append(st.modules, mod)
	return &global{ty: ty, g: mod.ExportedGlobal("global")}, nil
}

// table is a minimal backend.Table; wazero does not expose a standalone
// table construction API outside of module instantiation, so tables created
// directly through the backend protocol (rather than as a module export)
// are modeled in Go-side storage and never touch the wazero runtime. This
// is sufficient for host-constructed tables used only from host code, which
// is the only scenario the core's Table constructor requires
// for this backend. Instantiate does not wrap tables exported by a guest
// module.
type table struct {
	ty    wasmtype.TableType
	elems []wasmtype.Value
}

func (t *table) Type() wasmtype.TableType { return t.ty }
func (t *table) Size() uint32             { return uint32(len(t.elems)) }

func (t *table) Get(index uint32) (wasmtype.Value, error) {
	if index >= uint32(len(t.elems)) {
		return wasmtype.Value{}, &wasmerr.TableAccessError{Index: index, TableSize: uint32(len(t.elems))}
	}
	return t.elems[index], nil
}

func (t *table) Set(index uint32, v wasmtype.Value) error {
	if index >= uint32(len(t.elems)) {
		return &wasmerr.TableAccessError{Index: index, TableSize: uint32(len(t.elems))}
	}
	t.elems[index] = v
	return nil
}

func (t *table) Grow(delta uint32, init wasmtype.Value) (uint32, error) {
	prev := uint32(len(t.elems))
	if t.ty.Limits.HasMax && prev+delta > t.ty.Limits.Max {
		return 0, wasmerr.LimitExceeded
	}
	for i := uint32(0); i < delta; i++ {
		t.elems = append(t.elems, init)
	}
	return prev, nil
}

func (p *protocol) NewTable(s backend.Store, ty wasmtype.TableType, init wasmtype.Value) (backend.Table, error) {
	t := &table{ty: ty}
	prev, _ := t.Grow(ty.Limits.Min, init)
	_ = prev
	return t, nil
}

type instance struct {
	mod     api.Module
	exports []backend.NamedExtern
}

func (i *instance) Exports() []backend.NamedExtern  { return i.exports }
func (i *instance) Close(ctx context.Context) error { return i.mod.Close(ctx) }

func (p *protocol) Instantiate(ctx context.Context, s backend.Store, m backend.Module, imports []backend.Extern) (backend.Instance, error) {
	st := s.(*store)
	wm, ok := m.(*Module)
	if !ok {
		return nil, fmt.Errorf("wazero backend: module was not compiled by this backend")
	}
	for i, imp := range wm.imports {
		if i >= len(imports) {
			return nil, fmt.Errorf("wazero backend: missing import %s.%s", imp.Module, imp.Name)
		}
		if err := bindImport(st.runtime, imp, imports[i]); err != nil {
			return nil, err
		}
	}
	mod, err := st.runtime.InstantiateModule(ctx, wm.compiled, wazero.NewModuleConfig())
	if err != nil {
		return nil, wasmerr.NewTrap(wasmerr.TrapUnreachable, err.Error())
	}
	st.modules = append(st.modules, mod)

	exports := make([]backend.NamedExtern, 0, len(wm.exports))
	for _, decl := range wm.exports {
		switch decl.Type.Kind {
		case wasmtype.KindFunction:
			fn := mod.ExportedFunction(decl.Name)
			exports = append(exports, backend.NamedExtern{Name: decl.Name, Extern: backend.Extern{
				Kind:     decl.Type.Kind,
				Function: &exportedFunction{ft: decl.Type.Function, fn: fn},
			}})
		case wasmtype.KindMemory:
			exports = append(exports, backend.NamedExtern{Name: decl.Name, Extern: backend.Extern{
				Kind:   decl.Type.Kind,
				Memory: &memory{ty: decl.Type.Memory, mem: mod.ExportedMemory(decl.Name)},
			}})
		case wasmtype.KindGlobal:
			exports = append(exports, backend.NamedExtern{Name: decl.Name, Extern: backend.Extern{
				Kind:   decl.Type.Kind,
				Global: &global{ty: decl.Type.Global, g: mod.ExportedGlobal(decl.Name)},
			}})
		}
	}
	return &instance{mod: mod, exports: exports}, nil
}

// exportedFunction wraps a guest-exported api.Function as a backend.Function.
type exportedFunction struct {
	ft wasmtype.FunctionType
	fn api.Function
}

func (f *exportedFunction) Type() wasmtype.FunctionType { return f.ft }

func (f *exportedFunction) Call(ctx context.Context, args []wasmtype.RawValue, results []wasmtype.RawValue) error {
	stack := make([]uint64, len(args))
	for i, a := range args {
		stack[i] = stackFromValue(wasmtype.FromRaw(a, f.ft.Params[i]))
	}
	if err := f.fn.CallWithStack(ctx, stack); err != nil {
		return wasmerr.NewTrap(wasmerr.TrapUnreachable, err.Error())
	}
	for i := range f.ft.Results {
		if i >= len(results) {
			break
		}
		results[i] = rawFromStack(stack[i], f.ft.Results[i]).Raw()
	}
	return nil
}

func bindImport(r wazero.Runtime, decl backend.ImportDecl, e backend.Extern) error {
	builder := r.NewHostModuleBuilder(decl.Module)
	switch e.Kind {
	case wasmtype.KindFunction:
		hf, ok := e.Function.(*hostFunction)
		if !ok {
			return fmt.Errorf("wazero backend: import %s.%s is not a host function value from this backend", decl.Module, decl.Name)
		}
		builder.NewFunctionBuilder().WithGoModuleFunction(
			api.GoModuleFunc(hf.Call2), hf.params, hf.results,
		).Export(decl.Name)
	default:
		return fmt.Errorf("wazero backend: import kind %s not supported for module-level binding", e.Kind)
	}
	_, err := builder.Instantiate(context.Background())
	return err
}

// Module wraps a wazero.CompiledModule together with its declared
// import/export shape, computed once at compile time.
type Module struct {
	compiled wazero.CompiledModule
	imports  []backend.ImportDecl
	exports  []backend.ExportDecl
}

func (m *Module) Imports() []backend.ImportDecl { return m.imports }
func (m *Module) Exports() []backend.ExportDecl { return m.exports }

// Compile parses and validates wasm bytes, producing a Module bound to
// this protocol's runtime.
func Compile(ctx context.Context, p backend.Protocol, wasmBytes []byte) (*Module, error) {
	pr, ok := p.(*protocol)
	if !ok {
		return nil, fmt.Errorf("wazero backend: Compile called with a foreign protocol")
	}
	compiled, err := pr.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}
	m := &Module{compiled: compiled}
	for _, imp := range compiled.ImportedFunctions() {
		modName, name, _ := imp.Import()
		m.imports = append(m.imports, backend.ImportDecl{
			Module: modName,
			Name:   name,
			Type: wasmtype.ExternType{
				Kind:     wasmtype.KindFunction,
				Function: funcTypeFromDef(imp),
			},
		})
	}
	for _, exp := range compiled.ExportedFunctions() {
		_, name, _ := exp.Import()
		m.exports = append(m.exports, backend.ExportDecl{
			Name: name,
			Type: wasmtype.ExternType{Kind: wasmtype.KindFunction, Function: funcTypeFromDef(exp)},
		})
	}
	return m, nil
}

func funcTypeFromDef(def api.FunctionDefinition) wasmtype.FunctionType {
	toTypes := func(vs []api.ValueType) []wasmtype.Type {
		out := make([]wasmtype.Type, len(vs))
		for i, v := range vs {
			switch v {
			case api.ValueTypeI32:
				out[i] = wasmtype.I32
			case api.ValueTypeI64:
				out[i] = wasmtype.I64
			case api.ValueTypeF32:
				out[i] = wasmtype.F32
			case api.ValueTypeF64:
				out[i] = wasmtype.F64
			case api.ValueTypeFuncref:
				out[i] = wasmtype.FuncRef
			case api.ValueTypeExternref:
				out[i] = wasmtype.ExternRef
			}
		}
		return out
	}
	return wasmtype.NewFunctionType(toTypes(def.ParamTypes()), toTypes(def.ResultTypes()))
}
