// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package metrics

import "time"

// NewNoopProvider returns a Provider that discards everything it's given;
// it's the default when an embedder configures no metrics backend.
func NewNoopProvider() Provider {
	return noopProvider{}
}

type noopProvider struct{}

func (noopProvider) Timer(name string, labels ...string) Timer     { return noopTimer{} }
func (noopProvider) Counter(name string, labels ...string) Counter { return noopCounter{} }
func (noopProvider) Name() string                                  { return "noop" }

type noopTimer struct{}

func (noopTimer) Observe(time.Duration) {}

type noopCounter struct{}

func (noopCounter) Inc()            {}
func (noopCounter) Add(v float64)   {}
