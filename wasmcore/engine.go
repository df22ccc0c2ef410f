// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package wasmcore is the store/instance/execution-context subsystem of the
// runtime: it owns every runtime object a Store hands out, bridges typed
// Go calls into the backend's raw calling convention, drives module
// instantiation, and dispatches every operation across whichever backend
// (internal/backend/wazero, internal/backend/wasmtimeengine, or a test
// fake) the owning Store was constructed with.
package wasmcore

import (
	"github.com/wasmkit/corewasm/internal/backend"
	"github.com/wasmkit/corewasm/log"
	"github.com/wasmkit/corewasm/logging"
	"github.com/wasmkit/corewasm/metrics"
)

// Engine is the immutable compile/execute strategy a Store is bound to at
// construction: a backend protocol implementation plus the tag it reports,
// and the logger/metrics provider every Store derived from it reports
// through. An Engine is safe to share across Stores and across goroutines
// once built; it holds no per-call mutable state.
type Engine struct {
	protocol backend.Protocol
	logger   log.Logger
	metrics  metrics.Provider
}

// EngineOption configures optional Engine behavior at construction.
type EngineOption func(*Engine)

// WithLogger overrides the default logger (log.NewLogger(), logging to
// stderr at info level) every Store derived from this Engine reports
// instantiation, call, and trap events through.
func WithLogger(l log.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics overrides the default metrics.NewNoopProvider() every Store
// derived from this Engine records instantiation/call/trap samples
// through.
func WithMetrics(p metrics.Provider) EngineOption {
	return func(e *Engine) { e.metrics = p }
}

// WithLogging configures the default logger's level and output format from
// embedder-facing configuration strings, the way an embedder's own config
// file or flags would name them (e.g. level "debug"/"info"/"warn"/"error",
// format "text"/"json-pretty"/"json"). It returns an error if level is not
// recognized.
func WithLogging(level, format, timestampFormat string) (EngineOption, error) {
	lvl, err := logging.GetLevel(level)
	if err != nil {
		return nil, err
	}
	formatter := logging.GetFormatter(format, timestampFormat)
	return func(e *Engine) {
		e.logger.SetLevelValue(lvl)
		e.logger.SetFormatter(formatter)
	}, nil
}

// NewEngine wraps a backend.Protocol as an Engine. Callers obtain a
// protocol from one of the backend packages, e.g.
// wazero.NewNative(ctx), wazero.NewInterpreter(ctx), or
// wasmtimeengine.New().
func NewEngine(protocol backend.Protocol, opts ...EngineOption) *Engine {
	e := &Engine{
		protocol: protocol,
		logger:   log.NewLogger(),
		metrics:  metrics.NewNoopProvider(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tag reports which backend this engine dispatches to.
func (e *Engine) Tag() backend.Tag { return e.protocol.Tag() }

// Features reports the CPU/engine feature set the backend requires.
func (e *Engine) Features() backend.FeatureSet { return e.protocol.Features() }
