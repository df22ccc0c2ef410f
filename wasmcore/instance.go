// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/internal/uuid"
	"github.com/wasmkit/corewasm/log"
	"github.com/wasmkit/corewasm/metrics"
	"github.com/wasmkit/corewasm/wasmerr"
)

// Instance is a handle to one live instantiation of a Module within a
// store.
type Instance struct {
	handle
	back    backend.Instance
	exports *Exports
	diagID  string
}

// Exports returns the instance's export map, in the module's declared
// export order.
func (i *Instance) Exports() *Exports { return i.exports }

// DiagnosticID returns a random identifier minted once per instantiation,
// for correlating log lines and metric samples across an instance's
// lifetime when a store holds more than one instance. It has no bearing
// on Wasm semantics.
func (i *Instance) DiagnosticID() string { return i.diagID }

// NewInstance drives import resolution followed by backend
// instantiation.
func NewInstance(ctx context.Context, m Mut, mod *Module, imports *Imports) (*Instance, error) {
	s := m.store_()
	start := time.Now()
	extv, err := imports.resolve(s, mod)
	metrics.Since(s.metrics.Timer(metrics.ImportResolutionDuration), start)
	if err != nil {
		le, ok := err.(*wasmerr.LinkError)
		if !ok {
			return nil, err
		}
		kind := wasmerr.InstantiationLink
		if le.Kind == wasmerr.LinkDifferentStores {
			kind = wasmerr.InstantiationDifferentStores
		}
		s.logger.WithFields(log.Fields{"module": le.Module, "name": le.Name, "kind": le.Kind}).Warn("wasmcore: import resolution failed")
		return nil, &wasmerr.InstantiationError{Kind: kind, Link: le}
	}
	return instantiate(ctx, s, mod, extv)
}

// NewInstanceByIndex is the import-resolution-skipping variant: the
// caller supplies the ordered extern vector directly, and only kind/type
// and same-store checks run.
func NewInstanceByIndex(ctx context.Context, m Mut, mod *Module, externs []Extern) (*Instance, error) {
	s := m.store_()
	decls := mod.back.Imports()
	if len(externs) != len(decls) {
		return nil, &wasmerr.InstantiationError{Kind: wasmerr.InstantiationLink, Link: &wasmerr.LinkError{
			Kind: wasmerr.LinkImportNotFound, Detail: "extern vector length does not match import count",
		}}
	}
	extv := make([]backend.Extern, len(externs))
	for i, decl := range decls {
		e := externs[i]
		if e.Kind != decl.Type.Kind {
			return nil, &wasmerr.InstantiationError{Kind: wasmerr.InstantiationLink, Link: &wasmerr.LinkError{
				Kind: wasmerr.LinkIncompatibleType, Module: decl.Module, Name: decl.Name,
			}}
		}
		if err := checkExternType(decl, e); err != nil {
			return nil, &wasmerr.InstantiationError{Kind: wasmerr.InstantiationLink, Link: err.(*wasmerr.LinkError)}
		}
		if e.StoreID() != s.id {
			return nil, &wasmerr.InstantiationError{Kind: wasmerr.InstantiationDifferentStores, Link: &wasmerr.LinkError{
				Kind: wasmerr.LinkDifferentStores, Module: decl.Module, Name: decl.Name,
			}}
		}
		extv[i] = e.toBackend()
	}
	return instantiate(ctx, s, mod, extv)
}

func instantiate(ctx context.Context, s *Store, mod *Module, extv []backend.Extern) (*Instance, error) {
	start := time.Now()
	back, err := s.protocol.Instantiate(ctx, s.back, mod.back, extv)
	metrics.Since(s.metrics.Timer(metrics.InstantiationDuration), start)
	if err != nil {
		if rt, ok := err.(*wasmerr.RuntimeError); ok {
			s.logger.WithFields(log.Fields{"error": rt.Error()}).Error("wasmcore: start function trapped during instantiation")
			return nil, &wasmerr.InstantiationError{Kind: wasmerr.InstantiationStart, Start: rt}
		}
		return nil, err
	}

	named := make([]namedExtern, 0, len(mod.back.Exports()))
	for _, be := range back.Exports() {
		named = append(named, namedExtern{name: be.Name, extern: externFromBackend(s, be.Extern)})
	}

	diagID, err := uuid.New(rand.Reader)
	if err != nil {
		diagID = ""
	}
	inst := &Instance{
		handle:  handle{storeID: s.id, tag: s.protocol.Tag()},
		back:    back,
		exports: newExports(named),
		diagID:  diagID,
	}
	s.instances = append(s.instances, inst)
	s.logger.WithFields(log.Fields{"instance_id": diagID, "store_id": s.id, "exports": len(named)}).Debug("wasmcore: instance created")
	return inst, nil
}

// Close tears down the instance's backend state. The owning store remains
// usable; this is rarely called directly since Store.Close releases
// everything at once.
func (i *Instance) Close(ctx context.Context) error {
	return i.back.Close(ctx)
}
