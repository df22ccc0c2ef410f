// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmtype

// NativeType is the constraint for the host scalar Go types that WasmType,
// ToRaw and FromRawNative map to a Wasm Type and move to and from a
// RawValue slot. The typed function bridge (wasmcore.TypedFunction) does
// not use it; it maps struct fields to Wasm types by reflection.
type NativeType interface {
	int32 | uint32 | int64 | uint64 | float32 | float64
}

// WasmType returns the Type tag for the native scalar T.
func WasmType[T NativeType]() Type {
	var zero T
	switch any(zero).(type) {
	case int32, uint32:
		return I32
	case int64, uint64:
		return I64
	case float32:
		return F32
	case float64:
		return F64
	default:
		panic("wasmtype: unreachable native type")
	}
}

// ToRaw converts a native scalar to its RawValue slot.
func ToRaw[T NativeType](v T) RawValue {
	switch x := any(v).(type) {
	case int32:
		return I32Value(x).Raw()
	case uint32:
		return I32Value(int32(x)).Raw()
	case int64:
		return I64Value(x).Raw()
	case uint64:
		return I64Value(int64(x)).Raw()
	case float32:
		return F32Value(x).Raw()
	case float64:
		return F64Value(x).Raw()
	default:
		panic("wasmtype: unreachable native type")
	}
}

// FromRawNative converts a RawValue slot back to the native scalar T.
func FromRawNative[T NativeType](r RawValue) T {
	var zero T
	switch any(zero).(type) {
	case int32:
		return any(FromRaw(r, I32).I32()).(T)
	case uint32:
		return any(uint32(FromRaw(r, I32).I32())).(T)
	case int64:
		return any(FromRaw(r, I64).I64()).(T)
	case uint64:
		return any(uint64(FromRaw(r, I64).I64())).(T)
	case float32:
		return any(FromRaw(r, F32).F32()).(T)
	case float64:
		return any(FromRaw(r, F64).F64()).(T)
	default:
		panic("wasmtype: unreachable native type")
	}
}
