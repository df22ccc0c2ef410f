// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// Table is a handle to a table of reference-typed elements.
type Table struct {
	handle
	back backend.Table
}

// NewTable constructs a new Table with the given type and fills its
// initial elements with init.
func NewTable(m Mut, ty wasmtype.TableType, init wasmtype.Value) (*Table, error) {
	s := m.store_()
	back, err := s.protocol.NewTable(s.back, ty, init)
	if err != nil {
		return nil, err
	}
	s.tables = append(s.tables, back)
	return &Table{handle: handle{storeID: s.id, tag: s.protocol.Tag()}, back: back}, nil
}

// Type returns the table's element type and size limits.
func (t *Table) Type() wasmtype.TableType { return t.back.Type() }

// Size reports the current number of elements.
func (t *Table) Size() uint32 { return t.back.Size() }

// Get returns the element at index.
func (t *Table) Get(s *Store, index uint32) (wasmtype.Value, error) {
	if err := t.check(s); err != nil {
		return wasmtype.Value{}, err
	}
	return t.back.Get(index)
}

// Set writes v at index; TypeMismatch if v's type does not match the
// table's declared element type.
func (t *Table) Set(s *Store, index uint32, v wasmtype.Value) error {
	if err := t.check(s); err != nil {
		return err
	}
	if v.Type() != t.back.Type().Element {
		return wasmerr.TypeMismatch
	}
	return t.back.Set(index, v)
}

// Grow increases the table by delta elements, filling new slots with init,
// and returns the previous size.
func (t *Table) Grow(s *Store, delta uint32, init wasmtype.Value) (uint32, error) {
	if err := t.check(s); err != nil {
		return 0, err
	}
	return t.back.Grow(delta, init)
}
