// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics declares the well-known timers and counters the runtime
// records as it resolves imports, instantiates modules, and calls
// functions, plus a Provider abstraction so an embedder can swap in a
// no-op or a Prometheus-backed implementation without the core caring
// which.
package metrics

import "time"

// Well-known metric names recorded by wasmcore.
const (
	// InstantiationDuration times the backend instantiation step of
	// Instance.New/NewByIndex; import resolution is timed separately.
	InstantiationDuration = "wasm_instantiation_duration_seconds"
	// ImportResolutionDuration times Imports.resolve alone.
	ImportResolutionDuration = "wasm_import_resolution_duration_seconds"
	// CallDuration times a single TypedFunction call, including any
	// on-called continuation loop; Function.CallRaw records no metrics.
	CallDuration = "wasm_call_duration_seconds"
	// TrapTotal counts calls that ended in a trap, labeled by backend tag.
	TrapTotal = "wasm_trap_total"
	// CallTotal counts every call attempt, labeled by backend tag.
	CallTotal = "wasm_call_total"
)

// Timer records durations for a single named metric.
type Timer interface {
	// Observe records one duration sample.
	Observe(d time.Duration)
}

// Counter records event counts for a single named metric.
type Counter interface {
	// Inc increments the counter by one.
	Inc()
	// Add increments the counter by v.
	Add(v float64)
}

// Provider is the runtime's view of a metrics backend: it hands out
// Timer/Counter handles for well-known names and label sets, lazily
// creating and caching the underlying series.
type Provider interface {
	// Timer returns the named timer, creating it if this is the first
	// call for name+labels.
	Timer(name string, labels ...string) Timer
	// Counter returns the named counter, creating it if this is the
	// first call for name+labels.
	Counter(name string, labels ...string) Counter
	// Name identifies the provider implementation, e.g. "prometheus" or
	// "noop".
	Name() string
}

// Since is a small convenience for the common "time a call" pattern:
//
//	defer metrics.Since(provider.Timer(metrics.CallDuration), time.Now())
func Since(t Timer, start time.Time) {
	t.Observe(time.Since(start))
}
