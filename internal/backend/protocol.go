// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package backend defines the minimal conformance contract every execution
// engine implements: construct/drop a backend store, create and call a
// host function, create/read/write/grow a memory/table/global, instantiate
// a module given an ordered extern vector, enumerate an instance's
// exports, and convert reference values.
//
// wasmcore is the only importer of this package; embedders never see these
// types. Keeping the contract here (rather than letting wasmcore reach
// into github.com/tetratelabs/wazero or github.com/bytecodealliance/
// wasmtime-go directly) is what lets backends be swapped behind one tagged
// dispatch without leaking a backend-specific type across the API: every
// handle produced by operations on a given Store shares the same tag.
package backend

import (
	"context"

	"github.com/wasmkit/corewasm/wasmtype"
)

// Tag identifies which compiled-in engine a Store, and every handle derived
// from it, is bound to.
type Tag uint8

const (
	// Native is the default ahead-of-time backend.
	Native Tag = iota
	// Interpreter is a portable fallback backend requiring no cgo.
	Interpreter
	// External1 is a thin adapter over a third-party engine.
	External1
	// External2 is reserved for a second third-party adapter; see
	// DESIGN.md for why this module does not ship one.
	External2
	// Javascript is reserved for a browser/JS-host adapter; see
	// DESIGN.md.
	Javascript
)

func (t Tag) String() string {
	switch t {
	case Native:
		return "native"
	case Interpreter:
		return "interpreter"
	case External1:
		return "external1"
	case External2:
		return "external2"
	case Javascript:
		return "javascript"
	default:
		return "unknown"
	}
}

// DynamicHostFunc is the dynamically-typed host function ABI the backend
// invokes for every host import; wasmcore is responsible for building one
// of these out of either a statically- or dynamically-typed embedder
// closure. ctx is the caller's context.Context, threaded through
// so host functions and backend safepoints can observe cancellation.
type DynamicHostFunc func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error)

// ImportDecl is one entry of a Module's declared import list, in
// declaration order.
type ImportDecl struct {
	Module, Name string
	Type         wasmtype.ExternType
}

// ExportDecl is one entry of a Module's declared export list, in
// declaration order.
type ExportDecl struct {
	Name string
	Type wasmtype.ExternType
}

// Module is the opaque, already-parsed/compiled artifact a backend knows
// how to instantiate. The compiler/parser that produces one is out of
// scope; the core only ever calls Imports and Exports on it, and hands it
// to Protocol.Instantiate for instantiation.
type Module interface {
	Imports() []ImportDecl
	Exports() []ExportDecl
	// Module implementations are backend-specific (a *wazero.CompiledModule
	// wrapper, a *wasmtime.Module wrapper, ...), matched against the
	// Protocol by convention rather than by an explicit tag field -- a
	// Module handed to the wrong backend fails type assertion inside that
	// backend's Protocol.Instantiate and returns an error rather than
	// panicking.
}

// Store is opaque per-backend store state; wasmcore.Store owns exactly one
// per Tag, created at construction and torn down when the owning store is
// dropped.
type Store interface {
	Close(ctx context.Context) error
}

// Function is a backend-native callable, either a guest export or a host
// import wrapped for uniform calling.
type Function interface {
	Type() wasmtype.FunctionType
	// Call invokes the function. args and results are raw argument/result
	// slots sized to len(Type().Params) and len(Type().Results))
	// respectively. A trap surfaces as an error that
	// Protocol implementations are expected to produce via
	// github.com/wasmkit/corewasm/wasmerr.RuntimeError (or a type the
	// caller can errors.As into one).
	Call(ctx context.Context, args []wasmtype.RawValue, results []wasmtype.RawValue) error
}

// Memory is a backend-native linear memory.
type Memory interface {
	Type() wasmtype.MemoryType
	Size() uint32 // current size in 64KiB pages
	Grow(delta uint32) (previous uint32, err error)
	// Data returns the current backing bytes in Wasm's little-endian byte
	// order. The slice is invalidated by the next Grow.
	Data() []byte
}

// Global is a backend-native global variable.
type Global interface {
	Type() wasmtype.GlobalType
	Get() wasmtype.Value
	Set(wasmtype.Value) error
}

// Table is a backend-native table.
type Table interface {
	Type() wasmtype.TableType
	Size() uint32
	Get(index uint32) (wasmtype.Value, error)
	Set(index uint32, v wasmtype.Value) error
	Grow(delta uint32, init wasmtype.Value) (previous uint32, err error)
}

// Extern is the tagged-union payload a backend hands back for one resolved
// import or produced export.
type Extern struct {
	Kind     wasmtype.ExternKind
	Function Function
	Memory   Memory
	Global   Global
	Table    Table
}

// NamedExtern pairs an Extern with its declared export name, in the
// module's declared export order.
type NamedExtern struct {
	Name   string
	Extern Extern
}

// Instance is the result of a successful Protocol.Instantiate call.
type Instance interface {
	Exports() []NamedExtern
	Close(ctx context.Context) error
}

// Protocol is the contract a concrete engine package (internal/backend/
// wazero, internal/backend/wasmtimeengine, ...) implements. Every
// exported wasmcore operation that mutates backend state dispatches to
// exactly one Protocol, selected by the Tag bound at Store construction.
type Protocol interface {
	Tag() Tag
	NewStore(ctx context.Context) (Store, error)
	NewFunction(s Store, ft wasmtype.FunctionType, f DynamicHostFunc) (Function, error)
	NewMemory(s Store, ty wasmtype.MemoryType) (Memory, error)
	NewTable(s Store, ty wasmtype.TableType, init wasmtype.Value) (Table, error)
	NewGlobal(s Store, ty wasmtype.GlobalType, init wasmtype.Value) (Global, error)
	// Instantiate drives module instantiation: allocating local
	// memories/tables/globals, copying data/element segments, and
	// invoking the start function if declared.
	Instantiate(ctx context.Context, s Store, m Module, imports []Extern) (Instance, error)
	// Features reports the CPU feature set this backend requires.
	// wasmcore does not consult it during instantiation, so no
	// InstantiationError.CpuFeature is produced from it.
	Features() FeatureSet
}

// FeatureSet is an opaque set of named CPU/engine features a backend
// requires or supports; equality and membership are by name.
type FeatureSet map[string]bool

// Satisfies returns the names that are true in required but not provided
// by fs; an empty result means fs satisfies required.
func (fs FeatureSet) Satisfies(required FeatureSet) (missing []string) {
	for name, want := range required {
		if want && !fs[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
