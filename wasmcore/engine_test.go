// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package wasmcore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wasmkit/corewasm/internal/compiletest"
	"github.com/wasmkit/corewasm/metrics"
	"github.com/wasmkit/corewasm/wasmcore"
	"github.com/wasmkit/corewasm/wasmtype"
)

// fakeProvider is an in-memory metrics.Provider recording every sample it
// is handed, so tests can assert wasmcore actually records them rather
// than merely compiling against the Provider interface.
type fakeProvider struct {
	mu       sync.Mutex
	timers   map[string]int
	counters map[string]float64
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{timers: map[string]int{}, counters: map[string]float64{}}
}

func (p *fakeProvider) Timer(name string, labels ...string) metrics.Timer {
	return fakeTimer{p: p, name: name}
}

func (p *fakeProvider) Counter(name string, labels ...string) metrics.Counter {
	return fakeCounter{p: p, name: name}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.timers[name]
}

func (p *fakeProvider) counterValue(name string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters[name]
}

type fakeTimer struct {
	p    *fakeProvider
	name string
}

func (t fakeTimer) Observe(time.Duration) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	t.p.timers[t.name]++
}

type fakeCounter struct {
	p    *fakeProvider
	name string
}

func (c fakeCounter) Inc() { c.Add(1) }
func (c fakeCounter) Add(v float64) {
	c.p.mu.Lock()
	defer c.p.mu.Unlock()
	c.p.counters[c.name] += v
}

func TestEngineRecordsCallMetrics(t *testing.T) {
	provider := newFakeProvider()
	engine := wasmcore.NewEngine(compiletest.New(), wasmcore.WithMetrics(provider))
	s, err := wasmcore.NewStore(context.Background(), engine)
	require.NoError(t, err)
	assert.Same(t, provider, s.Metrics())

	ft := wasmtype.NewFunctionType([]wasmtype.Type{wasmtype.I32}, []wasmtype.Type{wasmtype.I32})
	fn, err := wasmcore.NewFunction(s.AsMut(), ft, func(ctx context.Context, args []wasmtype.Value) ([]wasmtype.Value, error) {
		return []wasmtype.Value{wasmtype.I32Value(args[0].I32() + 1)}, nil
	})
	require.NoError(t, err)

	typed, err := wasmcore.Typed[struct{ Value int32 }, struct{ Result int32 }](s, fn)
	require.NoError(t, err)
	_, err = typed.Call(context.Background(), s.AsMut(), struct{ Value int32 }{Value: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, provider.count(metrics.CallDuration))
	assert.Equal(t, float64(1), provider.counterValue(metrics.CallTotal))
	assert.Equal(t, float64(0), provider.counterValue(metrics.TrapTotal))
}

func TestEngineWithLoggingParsesLevelAndFormat(t *testing.T) {
	opt, err := wasmcore.WithLogging("debug", "json-pretty", "")
	require.NoError(t, err)
	engine := wasmcore.NewEngine(compiletest.New(), opt)
	assert.NotNil(t, engine)

	_, err = wasmcore.WithLogging("not-a-level", "text", "")
	assert.Error(t, err)
}
