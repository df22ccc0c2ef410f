// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"context"
	"fmt"
	"reflect"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmtype"
)

// Function is a backend-agnostic handle to a callable: a guest export or a
// host import.
type Function struct {
	handle
	back backend.Function
}

// Type returns the function's signature.
func (f *Function) Type() wasmtype.FunctionType { return f.back.Type() }

// NewFunction builds a dynamically-typed host function: fn receives the
// raw Value slice and returns the result Values in declared-result order
//.
func NewFunction(m Mut, ft wasmtype.FunctionType, fn func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error)) (*Function, error) {
	s := m.store_()
	back, err := s.protocol.NewFunction(s.back, ft, backend.DynamicHostFunc(fn))
	if err != nil {
		return nil, err
	}
	s.functions = append(s.functions, back)
	return &Function{handle: handle{storeID: s.id, tag: s.protocol.Tag()}, back: back}, nil
}

// NewFunctionWithEnv is the env-carrying counterpart of NewFunction, giving
// the callback a FunctionEnvMut[T] guard in addition to the raw arguments
//.
func NewFunctionWithEnv[T any](m Mut, ft wasmtype.FunctionType, env FunctionEnv[T], fn func(*FunctionEnvMut[T], context.Context, []wasmtype.Value) ([]wasmtype.Value, error)) (*Function, error) {
	s := m.store_()
	thunk := func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		guard, err := env.AsMut(Mut{store: s})
		if err != nil {
			return nil, err
		}
		return fn(guard, ctx, args)
	}
	return NewFunction(m, ft, thunk)
}

// NewTypedHostFunction wraps an ordinary Go function fn (whose parameters
// and results are all wasmtype.NativeType scalars) as a statically-typed
// host function, deriving its FunctionType by reflection over fn's
// signature. fn may optionally declare context.Context as its
// first parameter to observe call cancellation.
func NewTypedHostFunction(m Mut, fn any) (*Function, error) {
	rv := reflect.ValueOf(fn)
	rt := rv.Type()
	if rt.Kind() != reflect.Func {
		return nil, fmt.Errorf("wasmcore: NewTypedHostFunction requires a function value, got %T", fn)
	}
	wantsCtx := rt.NumIn() > 0 && rt.In(0) == reflect.TypeOf((*context.Context)(nil)).Elem()
	firstParam := 0
	if wantsCtx {
		firstParam = 1
	}
	params := make([]wasmtype.Type, 0, rt.NumIn()-firstParam)
	for i := firstParam; i < rt.NumIn(); i++ {
		t, err := kindToType(rt.In(i).Kind())
		if err != nil {
			return nil, err
		}
		params = append(params, t)
	}
	results := make([]wasmtype.Type, 0, rt.NumOut())
	for i := 0; i < rt.NumOut(); i++ {
		t, err := kindToType(rt.Out(i).Kind())
		if err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	ft := wasmtype.NewFunctionType(params, results)

	thunk := func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		in := make([]reflect.Value, rt.NumIn())
		if wantsCtx {
			in[0] = reflect.ValueOf(ctx)
		}
		for i, a := range args {
			in[firstParam+i] = valueToReflect(a, rt.In(firstParam+i))
		}
		out := rv.Call(in)
		rets := make([]wasmtype.Value, len(out))
		for i, o := range out {
			rets[i] = reflectToValue(o, results[i])
		}
		return rets, nil
	}
	return NewFunction(m, ft, thunk)
}

func kindToType(k reflect.Kind) (wasmtype.Type, error) {
	switch k {
	case reflect.Int32:
		return wasmtype.I32, nil
	case reflect.Uint32:
		return wasmtype.I32, nil
	case reflect.Int64:
		return wasmtype.I64, nil
	case reflect.Uint64:
		return wasmtype.I64, nil
	case reflect.Float32:
		return wasmtype.F32, nil
	case reflect.Float64:
		return wasmtype.F64, nil
	default:
		return 0, fmt.Errorf("wasmcore: unsupported native parameter/result kind %s", k)
	}
}

func valueToReflect(v wasmtype.Value, want reflect.Type) reflect.Value {
	switch want.Kind() {
	case reflect.Int32:
		return reflect.ValueOf(v.I32())
	case reflect.Uint32:
		return reflect.ValueOf(uint32(v.I32()))
	case reflect.Int64:
		return reflect.ValueOf(v.I64())
	case reflect.Uint64:
		return reflect.ValueOf(uint64(v.I64()))
	case reflect.Float32:
		return reflect.ValueOf(v.F32())
	case reflect.Float64:
		return reflect.ValueOf(v.F64())
	default:
		return reflect.Zero(want)
	}
}

func reflectToValue(v reflect.Value, ty wasmtype.Type) wasmtype.Value {
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

// CallRaw invokes the function with pre-marshalled raw argument/result
// slots, bypassing type-directed marshalling.
func (f *Function) CallRaw(ctx context.Context, s *Store, args, results []wasmtype.RawValue) error {
	if err := f.check(s); err != nil {
		return err
	}
	return f.back.Call(ctx, args, results)
}
