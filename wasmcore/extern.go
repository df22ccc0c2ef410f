// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmtype"
)

// Extern is the tagged union over the four kinds of importable/exportable
// handle: Function, Memory, Global, Table.
type Extern struct {
	Kind     wasmtype.ExternKind
	Function *Function
	Memory   *Memory
	Global   *Global
	Table    *Table
}

// StoreID returns the store id of whichever handle is populated; used by
// the cross-store checks in import resolution.
func (e Extern) StoreID() uint64 {
	switch e.Kind {
	case wasmtype.KindFunction:
		return e.Function.storeID
	case wasmtype.KindMemory:
		return e.Memory.storeID
	case wasmtype.KindGlobal:
		return e.Global.storeID
	case wasmtype.KindTable:
		return e.Table.storeID
	default:
		return 0
	}
}

// Type returns the ExternType describing whichever handle is populated.
func (e Extern) Type() wasmtype.ExternType {
	switch e.Kind {
	case wasmtype.KindFunction:
		return wasmtype.ExternType{Kind: e.Kind, Function: e.Function.Type()}
	case wasmtype.KindMemory:
		return wasmtype.ExternType{Kind: e.Kind, Memory: e.Memory.Type()}
	case wasmtype.KindGlobal:
		return wasmtype.ExternType{Kind: e.Kind, Global: e.Global.Type()}
	case wasmtype.KindTable:
		return wasmtype.ExternType{Kind: e.Kind, Table: e.Table.Type()}
	default:
		return wasmtype.ExternType{}
	}
}

// toBackend converts e to the raw backend.Extern its handle wraps, for
// passing across the backend protocol boundary.
func (e Extern) toBackend() backend.Extern {
	switch e.Kind {
	case wasmtype.KindFunction:
		return backend.Extern{Kind: e.Kind, Function: e.Function.back}
	case wasmtype.KindMemory:
		return backend.Extern{Kind: e.Kind, Memory: e.Memory.back}
	case wasmtype.KindGlobal:
		return backend.Extern{Kind: e.Kind, Global: e.Global.back}
	case wasmtype.KindTable:
		return backend.Extern{Kind: e.Kind, Table: e.Table.back}
	default:
		return backend.Extern{}
	}
}

// externFromBackend wraps a raw backend.Extern produced by Instantiate (an
// instance export) into a store-owned Extern, recording it in the
// appropriate arena so later handle checks succeed.
func externFromBackend(s *Store, be backend.Extern) Extern {
	h := handle{storeID: s.id, tag: s.protocol.Tag()}
	switch be.Kind {
	case wasmtype.KindFunction:
		s.functions = append(s.functions, be.Function)
		return Extern{Kind: be.Kind, Function: &Function{handle: h, back: be.Function}}
	case wasmtype.KindMemory:
		s.memories = append(s.memories, be.Memory)
		return Extern{Kind: be.Kind, Memory: &Memory{handle: h, back: be.Memory}}
	case wasmtype.KindGlobal:
		s.globals = append(s.globals, be.Global)
		return Extern{Kind: be.Kind, Global: &Global{handle: h, back: be.Global}}
	case wasmtype.KindTable:
		s.tables = append(s.tables, be.Table)
		return Extern{Kind: be.Kind, Table: &Table{handle: h, back: be.Table}}
	default:
		return Extern{}
	}
}
