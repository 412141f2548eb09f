/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package metrics provides Prometheus metrics for querysync.

METRIC CATEGORIES:
==================
- Operations: parse, generate, format, validate, check, preview
- Failures: per operation, unsupported statements
- Diagnostics: clauses dropped while parsing
- Parse cache: hits, misses
- Latency: histogram per operation

PROMETHEUS ENDPOINT:
====================
Metrics are exposed at /metrics through promhttp. The process-wide set from
Get also carries the Go runtime and process collectors.

EXAMPLE METRICS:
================

	querysync_operations_total{op="parse"} 12345
	querysync_operation_failures_total{op="preview"} 3
	querysync_unsupported_statements_total 17
	querysync_parse_cache_hits_total 9001
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "querysync"

// Op names a translator operation.
type Op int

const (
	OpParse Op = iota
	OpGenerate
	OpFormat
	OpValidate
	OpCheck
	OpPreview
	numOps
)

var opNames = [numOps]string{"parse", "generate", "format", "validate", "check", "preview"}

func (o Op) String() string {
	if o < 0 || o >= numOps {
		return "unknown"
	}
	return opNames[o]
}

func (o Op) valid() bool {
	return o >= 0 && o < numOps
}

// Metrics holds all querysync metrics in their own registry.
type Metrics struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec

	unsupported        prometheus.Counter
	diagnostics        prometheus.Counter
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	validationFailures prometheus.Counter
}

var globalMetrics = newMetrics(true)

// Get returns the global metrics instance.
func Get() *Metrics {
	return globalMetrics
}

// New returns an empty metrics set. Servers use Get; tests use New.
func New() *Metrics {
	return newMetrics(false)
}

func newMetrics(runtime bool) *Metrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Translator operations by type",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed translator operations by type",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Translator operation latency",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"op"}),
		unsupported:        counter("unsupported_statements_total", "Non-SELECT statements rejected by the parser"),
		diagnostics:        counter("parse_diagnostics_total", "Clauses dropped while parsing"),
		cacheHits:          counter("parse_cache_hits_total", "Parse cache hits"),
		cacheMisses:        counter("parse_cache_misses_total", "Parse cache misses"),
		validationFailures: counter("validation_failures_total", "Models that failed validation"),
	}

	m.registry.MustRegister(
		m.operations, m.failures, m.latency,
		m.unsupported, m.diagnostics, m.cacheHits, m.cacheMisses, m.validationFailures,
	)
	if runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	// Every op shows up in the exposition, even before its first call.
	for op := Op(0); op < numOps; op++ {
		m.operations.WithLabelValues(op.String())
		m.failures.WithLabelValues(op.String())
	}
	return m
}

// Record records one operation call. A non-nil err counts as a failure.
func (m *Metrics) Record(op Op, latency time.Duration, err error) {
	if !op.valid() {
		return
	}
	m.operations.WithLabelValues(op.String()).Inc()
	m.latency.WithLabelValues(op.String()).Observe(latency.Seconds())
	if err != nil {
		m.failures.WithLabelValues(op.String()).Inc()
	}
}

// RecordParse records a parse call with its outcome.
func (m *Metrics) RecordParse(latency time.Duration, diagnostics int, cached bool, err error) {
	m.Record(OpParse, latency, err)
	if diagnostics > 0 {
		m.diagnostics.Add(float64(diagnostics))
	}
	if cached {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordUnsupported counts a statement the parser rejected.
func (m *Metrics) RecordUnsupported() {
	m.unsupported.Inc()
}

// RecordValidationFailure counts a model that failed validation.
func (m *Metrics) RecordValidationFailure() {
	m.validationFailures.Inc()
}

// Total returns how many times op ran.
func (m *Metrics) Total(op Op) uint64 {
	if !op.valid() {
		return 0
	}
	return counterValue(m.operations.WithLabelValues(op.String()))
}

// Failed returns how many op calls failed.
func (m *Metrics) Failed(op Op) uint64 {
	if !op.valid() {
		return 0
	}
	return counterValue(m.failures.WithLabelValues(op.String()))
}

// AverageLatency returns the average latency of op in microseconds.
func (m *Metrics) AverageLatency(op Op) float64 {
	if !op.valid() {
		return 0
	}
	var pb dto.Metric
	if err := m.latency.WithLabelValues(op.String()).(prometheus.Metric).Write(&pb); err != nil {
		return 0
	}
	h := pb.GetHistogram()
	if h.GetSampleCount() == 0 {
		return 0
	}
	return h.GetSampleSum() / float64(h.GetSampleCount()) * 1e6
}

// UnsupportedStatements returns how many statements the parser rejected.
func (m *Metrics) UnsupportedStatements() uint64 { return counterValue(m.unsupported) }

// Diagnostics returns how many clauses were dropped while parsing.
func (m *Metrics) Diagnostics() uint64 { return counterValue(m.diagnostics) }

// CacheHits returns the number of parse cache hits.
func (m *Metrics) CacheHits() uint64 { return counterValue(m.cacheHits) }

// CacheMisses returns the number of parse cache misses.
func (m *Metrics) CacheMisses() uint64 { return counterValue(m.cacheMisses) }

// ValidationFailures returns how many models failed validation.
func (m *Metrics) ValidationFailures() uint64 { return counterValue(m.validationFailures) }

// Handler serves m in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func counterValue(c prometheus.Counter) uint64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return uint64(pb.GetCounter().GetValue())
}
