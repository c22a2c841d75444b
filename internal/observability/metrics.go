// Package observability exposes Prometheus counters for the dataset pipeline
// and the live data cache.
package observability

import (
	"sync"

	"github.com/huangsam/miklabel/schema"
	"github.com/prometheus/client_golang/prometheus"
)

// Row outcomes recorded by ObserveReshape.
const (
	OutcomeWritten         = "written"
	OutcomeDroppedUnmapped = "dropped_unmapped"
	OutcomeDroppedInvalid  = "dropped_malformed"
	OutcomeDroppedNoFiles  = "dropped_empty_files"
	OutcomeDefaulted       = "defaulted"
)

// Reload outcomes recorded by ObserveReload.
const (
	ReloadChanged   = "changed"
	ReloadUnchanged = "unchanged"
	ReloadFailed    = "failed"
)

// Metrics owns a private registry so repeated construction never conflicts.
type Metrics struct {
	registry *prometheus.Registry
	rows     *prometheus.CounterVec
	reloads  *prometheus.CounterVec
}

// NewMetrics creates the counters on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miklabel_rows_total",
			Help: "Raw rows processed by the reshaper, by dataset kind and outcome.",
		}, []string{"kind", "outcome"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miklabel_reloads_total",
			Help: "Live data cache reloads, by document and outcome.",
		}, []string{"document", "outcome"}),
	}
	m.registry.MustRegister(m.rows, m.reloads)
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns the process-wide Metrics.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// Registry returns the registry the counters live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReshape adds the outcome counts of one reshape.
func (m *Metrics) ObserveReshape(kind schema.DatasetKind, stats schema.ReshapeStats) {
	if m == nil {
		return
	}
	k := string(kind)
	m.rows.WithLabelValues(k, OutcomeWritten).Add(float64(stats.Written))
	m.rows.WithLabelValues(k, OutcomeDroppedUnmapped).Add(float64(stats.DroppedUnmapped))
	m.rows.WithLabelValues(k, OutcomeDroppedInvalid).Add(float64(stats.DroppedMalformed))
	m.rows.WithLabelValues(k, OutcomeDroppedNoFiles).Add(float64(stats.DroppedEmptyFiles))
	m.rows.WithLabelValues(k, OutcomeDefaulted).Add(float64(stats.Defaulted))
}

// ObserveReload counts one reload attempt of document.
func (m *Metrics) ObserveReload(document, outcome string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(document, outcome).Inc()
}
