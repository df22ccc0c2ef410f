// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"fmt"
	"reflect"

	"github.com/wasmkit/corewasm/wasmerr"
)

// FunctionEnv is an opaque, cheaply cloneable reference to a T value stored
// in the owning store's function-env arena. It is a (store
// id, slot index) pair; T is carried only as a phantom type parameter, so
// copying a FunctionEnv shares the underlying slot rather than deep-copying
// its value.
type FunctionEnv[T any] struct {
	storeID uint64
	index   int
}

// NewFunctionEnv stores value in the store's env arena and returns a
// handle to it.
func NewFunctionEnv[T any](m Mut, value T) FunctionEnv[T] {
	s := m.store_()
	s.envs = append(s.envs, value)
	s.envTypes = append(s.envTypes, reflect.TypeOf(value))
	return FunctionEnv[T]{storeID: s.id, index: len(s.envs) - 1}
}

func (e FunctionEnv[T]) checkAndLocate(s *Store) (*T, error) {
	if e.storeID != s.id {
		return nil, wasmerr.BadHandle
	}
	if e.index < 0 || e.index >= len(s.envs) {
		return nil, wasmerr.BadHandle
	}
	v, ok := s.envs[e.index].(T)
	if !ok {
		// The public API only ever produces an e whose T matches what was
		// stored; reaching here means the embedder fabricated a handle by
		// hand, which is a programmer error.
		panic(fmt.Sprintf("wasmcore: function env slot %d does not hold a %T", e.index, v))
	}
	return &v, nil
}

// AsRef returns the env's current value.
func (e FunctionEnv[T]) AsRef(r Ref) (T, error) {
	v, err := e.checkAndLocate(r.store_())
	if err != nil {
		var zero T
		return zero, err
	}
	return *v, nil
}

// AsMut returns a mutable view of the env's slot.
func (e FunctionEnv[T]) AsMut(m Mut) (*FunctionEnvMut[T], error) {
	s := m.store_()
	if e.storeID != s.id {
		return nil, wasmerr.BadHandle
	}
	if e.index < 0 || e.index >= len(s.envs) {
		return nil, wasmerr.BadHandle
	}
	if _, ok := s.envs[e.index].(T); !ok {
		panic("wasmcore: function env type-tag mismatch")
	}
	return &FunctionEnvMut[T]{store: s, env: e}, nil
}

// FunctionEnvMut bundles a mutable store borrow with a FunctionEnv so a host
// callback can read/write its own env and simultaneously perform further
// store-mutating operations during the same upcall.
type FunctionEnvMut[T any] struct {
	store *Store
	env   FunctionEnv[T]
}

// Get returns the current env value.
func (g *FunctionEnvMut[T]) Get() T {
	return g.store.envs[g.env.index].(T)
}

// Set replaces the env value.
func (g *FunctionEnvMut[T]) Set(v T) {
	g.store.envs[g.env.index] = v
}

// Mut re-exposes the exclusive store borrow so the callback can call other
// store-mutating operations.
func (g *FunctionEnvMut[T]) Mut() Mut { return Mut{store: g.store} }

// Env returns the plain handle this guard was built from, e.g. to store it
// elsewhere.
func (g *FunctionEnvMut[T]) Env() FunctionEnv[T] { return g.env }
