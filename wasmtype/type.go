// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package wasmtype implements the Wasm value and type model shared by every
// backend: value types, function signatures, the raw scalar representation
// used to cross the host/guest boundary, and the predicates the rest of the
// runtime uses to check them. Every operation here is total; this package
// never returns an error.
package wasmtype

import "fmt"

// Type is a Wasm value type.
type Type uint8

// The value types the core understands. The constants are numbered from
// zero and do not equal the on-wire type codes of the Wasm binary format;
// FromTypeCode maps a wire code to its Type.
const (
	I32 Type = iota
	I64
	F32
	F64
	V128
	FuncRef
	ExternRef
	ExceptionRef
)

func (t Type) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case V128:
		return "v128"
	case FuncRef:
		return "funcref"
	case ExternRef:
		return "externref"
	case ExceptionRef:
		return "exceptionref"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// IsReference reports whether t is a reference type (funcref, externref, or
// exceptionref), i.e. one whose Value payload may carry a store-owned handle.
func (t Type) IsReference() bool {
	return t == FuncRef || t == ExternRef || t == ExceptionRef
}

// TypeCode is the on-wire encoding of a Type.
type TypeCode byte

// Well-known on-wire type codes.
const (
	CodeI32          TypeCode = 0x7F
	CodeI64          TypeCode = 0x7E
	CodeF32          TypeCode = 0x7D
	CodeF64          TypeCode = 0x7C
	CodeV128         TypeCode = 0x7B
	CodeFuncRef      TypeCode = 0x70
	CodeExternRef    TypeCode = 0x6F
	CodeExceptionRef TypeCode = 0x69
)

// FromTypeCode converts a ModuleInfo-reported wire type code into a Type. The
// core never writes these codes itself; it only needs to read them
// back from an externally parsed module.
func FromTypeCode(c TypeCode) (Type, bool) {
	switch c {
	case CodeI32:
		return I32, true
	case CodeI64:
		return I64, true
	case CodeF32:
		return F32, true
	case CodeF64:
		return F64, true
	case CodeV128:
		return V128, true
	case CodeFuncRef:
		return FuncRef, true
	case CodeExternRef:
		return ExternRef, true
	case CodeExceptionRef:
		return ExceptionRef, true
	default:
		return 0, false
	}
}

// Mutability describes whether a Global can be written to after creation.
type Mutability uint8

const (
	Const Mutability = iota
	Var
)

// FunctionType is an ordered list of parameter types and an ordered list of
// result types. Equality is structural (valueTypesEqual).
type FunctionType struct {
	Params  []Type
	Results []Type
}

// NewFunctionType builds a FunctionType, copying the slices so later mutation
// of the caller's backing arrays cannot retroactively change the signature.
func NewFunctionType(params, results []Type) FunctionType {
	return FunctionType{Params: append([]Type(nil), params...), Results: append([]Type(nil), results...)}
}

// Equal reports structural equality between two function types.
func (f FunctionType) Equal(other FunctionType) bool {
	return valueTypesEqual(f.Params, other.Params) && valueTypesEqual(f.Results, other.Results)
}

func (f FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", f.Params, f.Results)
}

func valueTypesEqual(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Limits bounds the size of a Memory or Table, in the unit appropriate to
// each (pages for Memory, elements for Table).
type Limits struct {
	Min uint32
	Max uint32 // HasMax is false when Max has no meaning; callers check HasMax.
	HasMax bool
}

// MemoryType describes the shape of a linear memory: its size bounds, in
// units of 64KiB pages, and whether it is declared shared (threads).
type MemoryType struct {
	Limits Limits
	Shared bool
}

// TableType describes the shape of a table: its element type and size
// bounds.
type TableType struct {
	Element Type
	Limits  Limits
}

// GlobalType describes a global variable's value type and mutability.
type GlobalType struct {
	Type       Type
	Mutability Mutability
}

// ExternKind tags which kind of extern a declaration or handle refers to.
type ExternKind uint8

const (
	KindFunction ExternKind = iota
	KindMemory
	KindGlobal
	KindTable
)

func (k ExternKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindMemory:
		return "memory"
	case KindGlobal:
		return "global"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// ExternType is the tagged union of the four declarable extern types; it
// mirrors what a ModuleInfo import/export declaration carries for one item.
type ExternType struct {
	Kind     ExternKind
	Function FunctionType
	Memory   MemoryType
	Global   GlobalType
	Table    TableType
}
