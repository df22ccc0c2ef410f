// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmerr

import (
	"errors"
	"fmt"
)

// BadHandle is returned whenever a handle's store id does not match the
// store it is being used against.
var BadHandle = errors.New("wasmcore: handle does not belong to this store")

// DifferentStores is returned when two arguments passed to the same call
// originate in different stores.
var DifferentStores = errors.New("wasmcore: values originate in different stores")

// Immutable is returned by Global.Set when the global's declared
// mutability is Const.
var Immutable = errors.New("wasmcore: global is immutable")

// OutOfBounds is returned by Memory/Table access beyond the current size
//.
var OutOfBounds = errors.New("wasmcore: access out of bounds")

// LimitExceeded is returned when growing a Memory or Table would surpass
// its declared maximum.
var LimitExceeded = errors.New("wasmcore: grow would exceed declared maximum")

// TypeMismatch is returned when a provided value's type does not match a
// declared element, global, or function-parameter type.
var TypeMismatch = errors.New("wasmcore: type mismatch")

// LinkErrorKind enumerates the ways resolving a module's imports against an
// Imports map can fail.
type LinkErrorKind uint8

const (
	LinkImportNotFound LinkErrorKind = iota
	LinkIncompatibleType
	LinkSignatureMismatch
	LinkLimitsMismatch
	LinkGlobalTypeMismatch
	LinkDifferentStores
)

// LinkError is a structural mismatch discovered while resolving imports
// or while instantiating by index.
type LinkError struct {
	Kind         LinkErrorKind
	Module, Name string
	Detail       string
}

func (e *LinkError) Error() string {
	if e.Module != "" || e.Name != "" {
		return fmt.Sprintf("link error: %s %s.%s: %s", e.kindString(), e.Module, e.Name, e.Detail)
	}
	return fmt.Sprintf("link error: %s: %s", e.kindString(), e.Detail)
}

func (e *LinkError) kindString() string {
	switch e.Kind {
	case LinkImportNotFound:
		return "import not found"
	case LinkIncompatibleType:
		return "incompatible extern kind"
	case LinkSignatureMismatch:
		return "function signature mismatch"
	case LinkLimitsMismatch:
		return "limits mismatch"
	case LinkGlobalTypeMismatch:
		return "global type/mutability mismatch"
	case LinkDifferentStores:
		return "different stores"
	default:
		return "unknown"
	}
}

// InstantiationErrorKind enumerates why Instance.New can fail.
type InstantiationErrorKind uint8

const (
	InstantiationLink InstantiationErrorKind = iota
	InstantiationStart
	InstantiationCpuFeature
	InstantiationDifferentStores
)

// InstantiationError wraps a failure during Instance.New.
type InstantiationError struct {
	Kind       InstantiationErrorKind
	Link       *LinkError
	Start      *RuntimeError
	CPUFeature []string
}

func (e *InstantiationError) Error() string {
	switch e.Kind {
	case InstantiationLink:
		return fmt.Sprintf("instantiation failed: %v", e.Link)
	case InstantiationStart:
		return fmt.Sprintf("instantiation failed: start function trapped: %v", e.Start)
	case InstantiationCpuFeature:
		return fmt.Sprintf("instantiation failed: missing CPU features: %v", e.CPUFeature)
	case InstantiationDifferentStores:
		return "instantiation failed: imports originate in different stores"
	default:
		return "instantiation failed"
	}
}

func (e *InstantiationError) Unwrap() error {
	switch e.Kind {
	case InstantiationLink:
		return e.Link
	case InstantiationStart:
		return e.Start
	default:
		return nil
	}
}

// ExportErrorKind enumerates why an Exports lookup can fail.
type ExportErrorKind uint8

const (
	ExportNotFound ExportErrorKind = iota
	ExportIncompatibleType
)

// ExportError is returned by Exports lookup helpers (e.g. Exports.GetFunction).
type ExportError struct {
	Kind ExportErrorKind
	Name string
}

func (e *ExportError) Error() string {
	if e.Kind == ExportNotFound {
		return fmt.Sprintf("export not found: %s", e.Name)
	}
	return fmt.Sprintf("export %s: incompatible type", e.Name)
}

// MemoryAccessError reports a bounds or alignment violation on a direct
// Memory view access.
type MemoryAccessError struct {
	Offset, Length uint64
	MemorySize     uint64
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access out of bounds: offset=%d length=%d size=%d", e.Offset, e.Length, e.MemorySize)
}

func (e *MemoryAccessError) Unwrap() error { return OutOfBounds }

// TableAccessError reports a bounds violation on a direct Table access.
type TableAccessError struct {
	Index, TableSize uint32
}

func (e *TableAccessError) Error() string {
	return fmt.Sprintf("table access out of bounds: index=%d size=%d", e.Index, e.TableSize)
}

func (e *TableAccessError) Unwrap() error { return OutOfBounds }
