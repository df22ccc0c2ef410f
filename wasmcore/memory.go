// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"encoding/binary"

	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// Memory is a handle to a linear memory.
type Memory struct {
	handle
	back wasmtypeMemory
}

// wasmtypeMemory avoids importing internal/backend in this file's public
// surface; it is satisfied by backend.Memory.
type wasmtypeMemory interface {
	Type() wasmtype.MemoryType
	Size() uint32
	Grow(delta uint32) (uint32, error)
	Data() []byte
}

// NewMemory constructs a new Memory of the given type, owned by the store
//.
func NewMemory(m Mut, ty wasmtype.MemoryType) (*Memory, error) {
	s := m.store_()
	back, err := s.protocol.NewMemory(s.back, ty)
	if err != nil {
		return nil, err
	}
	s.memories = append(s.memories, back)
	return &Memory{handle: handle{storeID: s.id, tag: s.protocol.Tag()}, back: back}, nil
}

// Type returns the memory's declared limits and sharing mode.
func (mem *Memory) Type() wasmtype.MemoryType { return mem.back.Type() }

// Size reports the current size in 64KiB pages.
func (mem *Memory) Size() uint32 { return mem.back.Size() }

const wasmPageSize = 65536

// Grow increases the memory by delta pages, returning its previous size
//.
func (mem *Memory) Grow(s *Store, delta uint32) (uint32, error) {
	if err := mem.check(s); err != nil {
		return 0, err
	}
	return mem.back.Grow(delta)
}

// View returns a fresh byte-level view over the memory's current backing
// bytes. Views are invalidated by the next Grow; the embedder must call
// View again afterward.
func (mem *Memory) View(s *Store) (*View, error) {
	if err := mem.check(s); err != nil {
		return nil, err
	}
	return &View{data: mem.back.Data()}, nil
}

// View exposes bulk-copy and pointer-based element access to a Memory's
// backing bytes with explicit little-endian conversion.
type View struct {
	data []byte
}

// Len returns the number of bytes currently addressable through the view.
func (v *View) Len() int { return len(v.data) }

func (v *View) bounds(offset, length uint64) error {
	if offset+length > uint64(len(v.data)) {
		return &wasmerr.MemoryAccessError{Offset: offset, Length: length, MemorySize: uint64(len(v.data))}
	}
	return nil
}

// ReadInto copies length bytes starting at offset into dst.
func (v *View) ReadInto(dst []byte, offset uint64) error {
	length := uint64(len(dst))
	if err := v.bounds(offset, length); err != nil {
		return err
	}
	copy(dst, v.data[offset:offset+length])
	return nil
}

// WriteFrom copies src into the view starting at offset.
func (v *View) WriteFrom(src []byte, offset uint64) error {
	length := uint64(len(src))
	if err := v.bounds(offset, length); err != nil {
		return err
	}
	copy(v.data[offset:offset+length], src)
	return nil
}

// Uint32 reads a little-endian uint32 at offset.
func (v *View) Uint32(offset uint64) (uint32, error) {
	if err := v.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v.data[offset : offset+4]), nil
}

// PutUint32 writes a little-endian uint32 at offset.
func (v *View) PutUint32(offset uint64, x uint32) error {
	if err := v.bounds(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(v.data[offset:offset+4], x)
	return nil
}

// Uint64 reads a little-endian uint64 at offset.
func (v *View) Uint64(offset uint64) (uint64, error) {
	if err := v.bounds(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v.data[offset : offset+8]), nil
}

// PutUint64 writes a little-endian uint64 at offset.
func (v *View) PutUint64(offset uint64, x uint64) error {
	if err := v.bounds(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(v.data[offset:offset+8], x)
	return nil
}
