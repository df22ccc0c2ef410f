// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// Global is a handle to a global variable.
type Global struct {
	handle
	back backend.Global
}

// NewGlobal constructs a new Global with the given type and initial value
//.
func NewGlobal(m Mut, ty wasmtype.GlobalType, init wasmtype.Value) (*Global, error) {
	s := m.store_()
	if init.Type() != ty.Type {
		return nil, wasmerr.TypeMismatch
	}
	back, err := s.protocol.NewGlobal(s.back, ty, init)
	if err != nil {
		return nil, err
	}
	s.globals = append(s.globals, back)
	return &Global{handle: handle{storeID: s.id, tag: s.protocol.Tag()}, back: back}, nil
}

// Type returns the global's declared value type and mutability.
func (g *Global) Type() wasmtype.GlobalType { return g.back.Type() }

// Get returns the global's current value.
func (g *Global) Get(s *Store) (wasmtype.Value, error) {
	if err := g.check(s); err != nil {
		return wasmtype.Value{}, err
	}
	return g.back.Get(), nil
}

// Set writes v to the global; returns Immutable if the global's
// mutability is Const, or TypeMismatch if v's type disagrees.
func (g *Global) Set(s *Store, v wasmtype.Value) error {
	if err := g.check(s); err != nil {
		return err
	}
	if v.Type() != g.back.Type().Type {
		return wasmerr.TypeMismatch
	}
	return g.back.Set(v)
}
