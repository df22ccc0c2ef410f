// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import "github.com/wasmkit/corewasm/internal/backend"

// Module is the opaque, already-compiled artifact external collaborators
// hand to Instance construction. wasmcore
// never parses Wasm bytes itself; it only asks a Module for its declared
// imports/exports and asks the backend to instantiate it.
type Module struct {
	back backend.Module
	tag  backend.Tag
}

// WrapModule adapts a backend-produced module artifact (e.g. the result of
// wazero.Compile or wasmtimeengine.Compile) for use with an Engine whose
// tag must match.
func WrapModule(tag backend.Tag, back backend.Module) *Module {
	return &Module{back: back, tag: tag}
}

// Imports returns the module's declared imports in declaration order.
func (m *Module) Imports() []backend.ImportDecl { return m.back.Imports() }

// Exports returns the module's declared exports in declaration order.
func (m *Module) Exports() []backend.ExportDecl { return m.back.Exports() }
