// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// importKey is the (module, name) pair an Imports map is keyed by.
type importKey struct{ module, name string }

// Imports is a map from (module_name, item_name) to Extern.
type Imports struct {
	entries map[importKey]Extern
}

// NewImports returns an empty Imports map.
func NewImports() *Imports {
	return &Imports{entries: make(map[importKey]Extern)}
}

// Define registers extern under (module, name), overwriting any prior
// entry for the same key.
func (im *Imports) Define(module, name string, extern Extern) *Imports {
	im.entries[importKey{module, name}] = extern
	return im
}

// Get looks up a single entry, for callers that want to inspect an
// individual import outside of full resolution.
func (im *Imports) Get(module, name string) (Extern, bool) {
	e, ok := im.entries[importKey{module, name}]
	return e, ok
}

// resolve walks a Module's declared imports in order and produces the
// ordered extern vector the backend expects.
func (im *Imports) resolve(s *Store, m *Module) ([]backend.Extern, error) {
	decls := m.back.Imports()
	out := make([]backend.Extern, len(decls))
	for i, decl := range decls {
		e, ok := im.entries[importKey{decl.Module, decl.Name}]
		if !ok {
			return nil, &wasmerr.LinkError{
				Kind: wasmerr.LinkImportNotFound, Module: decl.Module, Name: decl.Name,
				Detail: "no extern provided for this import",
			}
		}
		if e.Kind != decl.Type.Kind {
			return nil, &wasmerr.LinkError{
				Kind: wasmerr.LinkIncompatibleType, Module: decl.Module, Name: decl.Name,
				Detail: "extern kind does not match declared import kind",
			}
		}
		if err := checkExternType(decl, e); err != nil {
			return nil, err
		}
		if e.StoreID() != s.id {
			return nil, &wasmerr.LinkError{
				Kind: wasmerr.LinkDifferentStores, Module: decl.Module, Name: decl.Name,
				Detail: "extern originates in a different store",
			}
		}
		out[i] = e.toBackend()
	}
	return out, nil
}

// checkExternType performs the kind-specific structural checks a resolved
// import must pass: function signature equality, and limits/mutability
// compatibility for memory, table, and global imports.
func checkExternType(decl backend.ImportDecl, e Extern) error {
	switch decl.Type.Kind {
	case wasmtype.KindFunction:
		if !decl.Type.Function.Equal(e.Function.Type()) {
			return &wasmerr.LinkError{Kind: wasmerr.LinkSignatureMismatch, Module: decl.Module, Name: decl.Name,
				Detail: "function signature mismatch"}
		}
	case wasmtype.KindMemory:
		want, got := decl.Type.Memory, e.Memory.Type()
		if got.Limits.Min < want.Limits.Min || (want.Limits.HasMax && (!got.Limits.HasMax || got.Limits.Max > want.Limits.Max)) {
			return &wasmerr.LinkError{Kind: wasmerr.LinkLimitsMismatch, Module: decl.Module, Name: decl.Name,
				Detail: "memory limits incompatible"}
		}
	case wasmtype.KindTable:
		want, got := decl.Type.Table, e.Table.Type()
		if want.Element != got.Element {
			return &wasmerr.LinkError{Kind: wasmerr.LinkIncompatibleType, Module: decl.Module, Name: decl.Name,
				Detail: "table element type mismatch"}
		}
		if got.Limits.Min < want.Limits.Min || (want.Limits.HasMax && (!got.Limits.HasMax || got.Limits.Max > want.Limits.Max)) {
			return &wasmerr.LinkError{Kind: wasmerr.LinkLimitsMismatch, Module: decl.Module, Name: decl.Name,
				Detail: "table limits incompatible"}
		}
	case wasmtype.KindGlobal:
		want, got := decl.Type.Global, e.Global.Type()
		if want.Type != got.Type || want.Mutability != got.Mutability {
			return &wasmerr.LinkError{Kind: wasmerr.LinkGlobalTypeMismatch, Module: decl.Module, Name: decl.Name,
				Detail: "global type or mutability mismatch"}
		}
	}
	return nil
}
