// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmtype

import "math"

// RawValue is the fixed-size raw payload wide enough to hold any Wasm
// scalar, including a V128. Backends exchange arguments and results through
// slices of RawValue.
type RawValue [16]byte

// RefHandle identifies a store-owned object referenced from a FuncRef,
// ExternRef, or ExceptionRef value. The zero StoreID never occurs for a
// live store (see wasmcore.NewStore), so the zero RefHandle is the canonical "null
// reference" representation.
type RefHandle struct {
	StoreID uint64
	Index   uint32
	Valid   bool
}

// IsNull reports whether h represents the Wasm null reference.
func (h RefHandle) IsNull() bool { return !h.Valid }

// Value is a tagged union over the eight Wasm value types.
type Value struct {
	ty  Type
	i64 uint64    // used for I32, I64, F32, F64 (as bit patterns)
	v128 [16]byte // used for V128
	ref RefHandle // used for FuncRef, ExternRef, ExceptionRef
}

// I32Value constructs an I32 value.
func I32Value(v int32) Value { return Value{ty: I32, i64: uint64(uint32(v))} }

// I64Value constructs an I64 value.
func I64Value(v int64) Value { return Value{ty: I64, i64: uint64(v)} }

// F32Value constructs an F32 value.
func F32Value(v float32) Value { return Value{ty: F32, i64: uint64(math.Float32bits(v))} }

// F64Value constructs an F64 value.
func F64Value(v float64) Value { return Value{ty: F64, i64: math.Float64bits(v)} }

// V128Value constructs a V128 value from its 16 raw bytes.
func V128Value(v [16]byte) Value { return Value{ty: V128, v128: v} }

// FuncRefValue constructs a FuncRef value. A zero-value handle represents
// the null function reference.
func FuncRefValue(h RefHandle) Value { return Value{ty: FuncRef, ref: h} }

// ExternRefValue constructs an ExternRef value.
func ExternRefValue(h RefHandle) Value { return Value{ty: ExternRef, ref: h} }

// ExceptionRefValue constructs an ExceptionRef value.
func ExceptionRefValue(h RefHandle) Value { return Value{ty: ExceptionRef, ref: h} }

// Type returns the value's type.
func (v Value) Type() Type { return v.ty }

// I32 returns the I32 payload; callers must check Type() == I32 first.
func (v Value) I32() int32 { return int32(uint32(v.i64)) }

// I64 returns the I64 payload.
func (v Value) I64() int64 { return int64(v.i64) }

// F32 returns the F32 payload.
func (v Value) F32() float32 { return math.Float32frombits(uint32(v.i64)) }

// F64 returns the F64 payload.
func (v Value) F64() float64 { return math.Float64frombits(v.i64) }

// V128 returns the V128 payload.
func (v Value) V128() [16]byte { return v.v128 }

// Ref returns the reference payload for FuncRef/ExternRef/ExceptionRef
// values.
func (v Value) Ref() RefHandle { return v.ref }

// BelongsTo reports whether v is safe to use with the store identified by
// storeID: true for every non-reference value, and for a reference value
// true iff it is null or its handle's store id matches.
func (v Value) BelongsTo(storeID uint64) bool {
	if !v.ty.IsReference() || v.ref.IsNull() {
		return true
	}
	return v.ref.StoreID == storeID
}

// Raw converts v to its RawValue slot representation.
func (v Value) Raw() RawValue {
	var r RawValue
	switch v.ty {
	case V128:
		r = RawValue(v.v128)
	case FuncRef, ExternRef, ExceptionRef:
		if v.ref.Valid {
			putUint64(r[0:8], v.ref.StoreID)
			putUint32(r[8:12], v.ref.Index)
			r[12] = 1
		}
	default:
		putUint64(r[0:8], v.i64)
	}
	return r
}

// FromRaw reconstructs a Value of the given type from its raw slot
// representation. This is the inverse of Raw: Raw(FromRaw(r, ty)) == r
// for every representable Type).
func FromRaw(r RawValue, ty Type) Value {
	switch ty {
	case V128:
		return V128Value([16]byte(r))
	case FuncRef, ExternRef, ExceptionRef:
		h := RefHandle{}
		if r[12] != 0 {
			h.StoreID = getUint64(r[0:8])
			h.Index = getUint32(r[8:12])
			h.Valid = true
		}
		v := Value{ty: ty, ref: h}
		return v
	default:
		return Value{ty: ty, i64: getUint64(r[0:8])}
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func putUint32(b []byte, v uint32) {
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint32(b []byte) uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		v |= uint32(b[i]) << (8 * i)
	}
	return v
}

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(other Value) bool {
	if v.ty != other.ty {
		return false
	}
	if v.ty == V128 {
		return v.v128 == other.v128
	}
	if v.ty.IsReference() {
		return v.ref == other.ref
	}
	return v.i64 == other.i64
}
