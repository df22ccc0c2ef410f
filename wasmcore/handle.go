// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/wasmerr"
	"github.com/wasmkit/corewasm/wasmtype"
)

// handle is embedded in every externally visible wrapper (Function,
// Memory, Global, Table, Instance) to carry the store id and backend tag
// it was created with, enforcing the "same store" and "same backend"
// invariants at each call site.
type handle struct {
	storeID uint64
	tag     backend.Tag
}

// check verifies h was produced by s and by the backend s is bound to;
// returns BadHandle otherwise.
func (h handle) check(s *Store) error {
	if h.storeID != s.id || h.tag != s.protocol.Tag() {
		return wasmerr.BadHandle
	}
	return nil
}

// ExternKind re-exports wasmtype.ExternKind so callers working purely
// within wasmcore need not import wasmtype for the common case.
type ExternKind = wasmtype.ExternKind
