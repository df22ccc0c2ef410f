// Copyright 2024 The corewasm Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ProviderName identifies the Prometheus-backed Provider.
const ProviderName = "prometheus"

// prometheusProvider lazily registers one HistogramVec per timer name and
// one CounterVec per counter name, each with a single "label" dimension,
// against its own registry.
type prometheusProvider struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
}

// NewPrometheusProvider builds a Provider backed by a fresh prometheus.Registry
// seeded with the standard Go process/runtime collector, ready for an
// embedder to expose however it sees fit (e.g. via promhttp.HandlerFor).
func NewPrometheusProvider() Provider {
	r := prometheus.NewRegistry()
	r.MustRegister(prometheus.NewGoCollector())
	r.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return &prometheusProvider{
		registry:   r,
		histograms: map[string]*prometheus.HistogramVec{},
		counters:   map[string]*prometheus.CounterVec{},
	}
}

// Registry exposes the underlying registry so an embedder can wire it into
// its own HTTP server or push gateway; this package takes no position on
// how metrics get exposed.
func (p *prometheusProvider) Registry() *prometheus.Registry { return p.registry }

func (p *prometheusProvider) Name() string { return ProviderName }

func (p *prometheusProvider) histogramVec(name string) *prometheus.HistogramVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hv, ok := p.histograms[name]; ok {
		return hv
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    name,
		Buckets: prometheus.DefBuckets,
	}, []string{"label"})
	p.registry.MustRegister(hv)
	p.histograms[name] = hv
	return hv
}

func (p *prometheusProvider) counterVec(name string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cv, ok := p.counters[name]; ok {
		return cv
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: name,
	}, []string{"label"})
	p.registry.MustRegister(cv)
	p.counters[name] = cv
	return cv
}

func labelValue(labels []string) string {
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}

func (p *prometheusProvider) Timer(name string, labels ...string) Timer {
	return prometheusTimer{obs: p.histogramVec(name).WithLabelValues(labelValue(labels))}
}

func (p *prometheusProvider) Counter(name string, labels ...string) Counter {
	return prometheusCounter{c: p.counterVec(name).WithLabelValues(labelValue(labels))}
}

type prometheusTimer struct {
	obs prometheus.Observer
}

func (t prometheusTimer) Observe(d time.Duration) { t.obs.Observe(d.Seconds()) }

type prometheusCounter struct {
	c prometheus.Counter
}

func (c prometheusCounter) Inc()          { c.c.Inc() }
func (c prometheusCounter) Add(v float64) { c.c.Add(v) }
