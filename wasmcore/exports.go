// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import "github.com/wasmkit/corewasm/wasmerr"

// Exports is an ordered name→Extern map preserving the module's declared
// export order; lookup is by exact name match.
type Exports struct {
	names   []string
	byName  map[string]Extern
}

func newExports(named []namedExtern) *Exports {
	ex := &Exports{byName: make(map[string]Extern, len(named))}
	for _, n := range named {
		ex.names = append(ex.names, n.name)
		ex.byName[n.name] = n.extern
	}
	return ex
}

type namedExtern struct {
	name   string
	extern Extern
}

// Names returns the export names in declaration order.
func (ex *Exports) Names() []string { return ex.names }

// Get returns the named export, or ExportNotFound.
func (ex *Exports) Get(name string) (Extern, error) {
	e, ok := ex.byName[name]
	if !ok {
		return Extern{}, &wasmerr.ExportError{Kind: wasmerr.ExportNotFound, Name: name}
	}
	return e, nil
}

// GetFunction returns the named export narrowed to a Function, or
// ExportError (NotFound or IncompatibleType).
func (ex *Exports) GetFunction(name string) (*Function, error) {
	e, err := ex.Get(name)
	if err != nil {
		return nil, err
	}
	if e.Function == nil {
		return nil, &wasmerr.ExportError{Kind: wasmerr.ExportIncompatibleType, Name: name}
	}
	return e.Function, nil
}

// GetMemory returns the named export narrowed to a Memory.
func (ex *Exports) GetMemory(name string) (*Memory, error) {
	e, err := ex.Get(name)
	if err != nil {
		return nil, err
	}
	if e.Memory == nil {
		return nil, &wasmerr.ExportError{Kind: wasmerr.ExportIncompatibleType, Name: name}
	}
	return e.Memory, nil
}

// GetGlobal returns the named export narrowed to a Global.
func (ex *Exports) GetGlobal(name string) (*Global, error) {
	e, err := ex.Get(name)
	if err != nil {
		return nil, err
	}
	if e.Global == nil {
		return nil, &wasmerr.ExportError{Kind: wasmerr.ExportIncompatibleType, Name: name}
	}
	return e.Global, nil
}

// GetTable returns the named export narrowed to a Table.
func (ex *Exports) GetTable(name string) (*Table, error) {
	e, err := ex.Get(name)
	if err != nil {
		return nil, err
	}
	if e.Table == nil {
		return nil, &wasmerr.ExportError{Kind: wasmerr.ExportIncompatibleType, Name: name}
	}
	return e.Table, nil
}
