// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore

import (
	"context"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/log"
	"github.com/wasmkit/corewasm/metrics"
)

// storeIDCounter assigns monotonically increasing, never-reused store ids
// across the process.
var storeIDCounter uint64

// Store is a process-local container owning every runtime object
// associated with one Wasm execution context: functions, memories,
// tables, globals, instances, and function environments. Each
// embedder-visible wrapper carries a handle with the store id and backend
// tag it was created under. A Store is bound to exactly one Engine, and therefore one
// backend tag, for its entire lifetime.
type Store struct {
	id       uint64
	engine   *Engine
	protocol backend.Protocol
	back     backend.Store
	logger   log.Logger
	metrics  metrics.Provider

	functions []backend.Function
	memories  []backend.Memory
	globals   []backend.Global
	tables    []backend.Table
	instances []*Instance

	envs     []any
	envTypes []reflect.Type

	onCalled onCalledFunc
}

// NewStore constructs a Store bound to engine, assigning it a fresh store
// id.
func NewStore(ctx context.Context, engine *Engine) (*Store, error) {
	back, err := engine.protocol.NewStore(ctx)
	if err != nil {
		return nil, err
	}
	return &Store{
		id:       atomic.AddUint64(&storeIDCounter, 1),
		engine:   engine,
		protocol: engine.protocol,
		back:     back,
		logger:   engine.logger,
		metrics:  engine.metrics,
	}, nil
}

// ID returns the store's unique, never-reused identity.
func (s *Store) ID() uint64 { return s.id }

// Engine returns the store's owning engine.
func (s *Store) Engine() *Engine { return s.engine }

// Logger returns the logger this store reports instantiation, call, and
// trap events through, inherited from its owning Engine at construction
// (wasmcore.WithLogger/WithLogging).
func (s *Store) Logger() log.Logger { return s.logger }

// Metrics returns the metrics provider this store records instantiation,
// call, and trap samples through, inherited from its owning Engine at
// construction (wasmcore.WithMetrics).
func (s *Store) Metrics() metrics.Provider { return s.metrics }

// recordCall observes one completed typed or raw function call: its
// duration, the running call count, and, if it trapped, the running trap
// count and a log line carrying the trap's cause.
func (s *Store) recordCall(start time.Time, err error) {
	tag := s.protocol.Tag().String()
	metrics.Since(s.metrics.Timer(metrics.CallDuration, tag), start)
	s.metrics.Counter(metrics.CallTotal, tag).Inc()
	if err != nil {
		s.metrics.Counter(metrics.TrapTotal, tag).Inc()
		s.logger.WithFields(log.Fields{"error": err.Error(), "store_id": s.id}).Debug("wasmcore: call trapped")
	}
}

// Close releases the backend resources this store owns. Every handle
// derived from s becomes unusable afterward; the core does not detect
// use-after-close beyond what the backend itself reports.
func (s *Store) Close(ctx context.Context) error {
	return s.back.Close(ctx)
}

// Same is a constant-time identity check between two stores.
func Same(a, b *Store) bool { return a.id == b.id }

// Ref is a read-only borrow of a store, carrying its id for same-store
// checks. Go has no borrow checker, so Ref/Mut exist to mark read-only vs.
// mutating call sites rather than to enforce exclusivity themselves;
// callers are still expected to treat a Store as single-threaded
// cooperative.
type Ref struct{ store *Store }

// Mut is an exclusive borrow of a store, the guard every store-mutating
// operation (function/memory/table/global/instance construction, Call)
// takes.
type Mut struct{ store *Store }

// AsRef produces a read-only guard over s.
func (s *Store) AsRef() Ref { return Ref{store: s} }

// AsMut produces an exclusive guard over s.
func (s *Store) AsMut() Mut { return Mut{store: s} }

func (r Ref) store_() *Store { return r.store }
func (m Mut) store_() *Store { return m.store }

// Store returns the underlying *Store a Mut guards, for callers (typically
// a host function body) that need to pass it to an operation expecting a
// plain *Store, such as Global.Get/Set or Memory.Grow.
func (m Mut) Store() *Store { return m.store }

// Store returns the underlying *Store a Ref guards.
func (r Ref) Store() *Store { return r.store }

// onCalledFunc is the on-called continuation a host function may install
// during a guest call. It receives a Mut over the store
// it ran in and returns one of InvokeAgain/Finish/Trap.
type onCalledFunc func(Mut) (Action, error)

// Action is the result of consulting an on-called continuation.
type Action uint8

const (
	// ActionFinish parses results normally; this is also the implicit
	// action when no continuation was installed.
	ActionFinish Action = iota
	// ActionInvokeAgain re-enters the same Wasm function with the same
	// argument buffer.
	ActionInvokeAgain
	// ActionTrap surfaces the accompanying error as RuntimeError::User.
	ActionTrap
)

// SetOnCalled installs f as the on-called continuation for the next guest
// call to return through this store. Only one may be pending
// at a time; installing a new one before the previous fires overwrites it,
// matching the "slot" semantics of the source.
func (m Mut) SetOnCalled(f func(Mut) (Action, error)) {
	m.store.onCalled = f
}

// takeOnCalled removes and returns the pending continuation, if any.
func (s *Store) takeOnCalled() onCalledFunc {
	f := s.onCalled
	s.onCalled = nil
	return f
}
