// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"context"
	"reflect"
	"time"

	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// TypedFunction narrows a Function to a compile-time parameter tuple Args
// and result tuple Rets, each a plain struct whose fields are
// wasmtype.NativeType scalars, e.g. `struct{ A int32; B int32 }`.
type TypedFunction[Args, Rets any] struct {
	fn      *Function
	params  []wasmtype.Type
	results []wasmtype.Type
}

// Typed validates fn's signature against Args/Rets element-wise and, on
// success, returns a TypedFunction. TypeMismatch is returned when the shapes disagree.
func Typed[Args, Rets any](s *Store, fn *Function) (*TypedFunction[Args, Rets], error) {
	if err := fn.check(s); err != nil {
		return nil, err
	}
	var a Args
	var r Rets
	params, err := structFieldTypes(a)
	if err != nil {
		return nil, err
	}
	results, err := structFieldTypes(r)
	if err != nil {
		return nil, err
	}
	want := wasmtype.NewFunctionType(params, results)
	if !want.Equal(fn.Type()) {
		return nil, wasmerr.TypeMismatch
	}
	return &TypedFunction[Args, Rets]{fn: fn, params: params, results: results}, nil
}

func structFieldTypes(v any) ([]wasmtype.Type, error) {
	rt := reflect.TypeOf(v)
	if rt == nil {
		return nil, nil
	}
	if rt.Kind() != reflect.Struct {
		return nil, wasmerr.TypeMismatch
	}
	out := make([]wasmtype.Type, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		t, err := kindToType(rt.Field(i).Type.Kind())
		if err != nil {
			return nil, wasmerr.TypeMismatch
		}
		out[i] = t
	}
	return out, nil
}

// Call marshals args to raw slots, invokes the backend, consults the
// on-called continuation if one was installed during the call, and parses
// the raw results back into Rets.
func (t *TypedFunction[Args, Rets]) Call(ctx context.Context, m Mut, args Args) (Rets, error) {
	var zero Rets
	s := m.store_()
	if err := t.fn.check(s); err != nil {
		return zero, err
	}
	raw := make([]wasmtype.RawValue, len(t.params))
	av := reflect.ValueOf(args)
	for i, ty := range t.params {
		raw[i] = reflectFieldToValue(av.Field(i), ty).Raw()
	}
	results := make([]wasmtype.RawValue, len(t.results))

	if err := t.invoke(ctx, s, raw, results); err != nil {
		return zero, err
	}

	rv := reflect.New(reflect.TypeOf(zero)).Elem()
	if rv.Kind() == reflect.Struct {
		for i, ty := range t.results {
			rv.Field(i).Set(valueFromRaw(results[i], ty, rv.Field(i).Type()))
		}
	}
	return rv.Interface().(Rets), nil
}

func reflectFieldToValue(v reflect.Value, ty wasmtype.Type) wasmtype.Value {
	return valueToReflectValue(v, ty)
}

func valueToReflectValue(v reflect.Value, ty wasmtype.Type) wasmtype.Value {
	switch ty {
	case wasmtype.I32:
		if v.Kind() == reflect.Uint32 {
			return wasmtype.I32Value(int32(v.Uint()))
		}
		return wasmtype.I32Value(int32(v.Int()))
	case wasmtype.I64:
		if v.Kind() == reflect.Uint64 {
			return wasmtype.I64Value(int64(v.Uint()))
		}
		return wasmtype.I64Value(v.Int())
	case wasmtype.F32:
		return wasmtype.F32Value(float32(v.Float()))
	case wasmtype.F64:
		return wasmtype.F64Value(v.Float())
	default:
		return wasmtype.Value{}
	}
}

func valueFromRaw(r wasmtype.RawValue, ty wasmtype.Type, want reflect.Type) reflect.Value {
	v := wasmtype.FromRaw(r, ty)
	return valueToReflect(v, want)
}

// CallRaw bypasses type-directed marshalling, taking pre-built raw slots
// directly. The on-called continuation is still
// consulted.
func (t *TypedFunction[Args, Rets]) CallRaw(ctx context.Context, m Mut, args []wasmtype.RawValue) ([]wasmtype.RawValue, error) {
	s := m.store_()
	if err := t.fn.check(s); err != nil {
		return nil, err
	}
	results := make([]wasmtype.RawValue, len(t.results))
	if err := t.invoke(ctx, s, args, results); err != nil {
		return nil, err
	}
	return results, nil
}

// invoke drives the backend call and the C9 on-called continuation loop
// shared by Call and CallRaw, recording call duration and trap/call
// counts against the store's metrics provider and logger as it goes.
func (t *TypedFunction[Args, Rets]) invoke(ctx context.Context, s *Store, args, results []wasmtype.RawValue) error {
	start := time.Now()
	err := t.runLoop(ctx, s, args, results)
	s.recordCall(start, err)
	return err
}

func (t *TypedFunction[Args, Rets]) runLoop(ctx context.Context, s *Store, args, results []wasmtype.RawValue) error {
	for {
		if err := t.fn.back.Call(ctx, args, results); err != nil {
			return err
		}
		cont := s.takeOnCalled()
		if cont == nil {
			return nil
		}
		action, cerr := cont(Mut{store: s})
		switch action {
		case ActionInvokeAgain:
			continue
		case ActionTrap:
			return wasmerr.UserTrap(cerr)
		default:
			return nil
		}
	}
}
