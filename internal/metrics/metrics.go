// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics counts harvest activity in a private Prometheus registry
// and can dump it in the node-exporter textfile format at the end of a run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/harvest-engine/pkg/types"
)

const namespace = "harvest"

// Metrics holds the run counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// PagesFetched counts search pages requested, by site.
	PagesFetched *prometheus.CounterVec

	// Downloads counts download attempts, by site and outcome.
	Downloads *prometheus.CounterVec

	// Skipped counts stubs not downloaded, by site and skip kind.
	Skipped *prometheus.CounterVec

	// Keywords counts (site, keyword) sessions, by site and result
	// (completed, gated, failed).
	Keywords *prometheus.CounterVec

	// PruneDeleted counts history rows removed by retention.
	PruneDeleted prometheus.Counter
}

// New registers the counters in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Search result pages requested.",
		}, []string{"site"}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Download attempts by outcome.",
		}, []string{"site", "outcome"}),
		Skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Articles not downloaded, by reason.",
		}, []string{"site", "reason"}),
		Keywords: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keywords_total",
			Help:      "Site and keyword sessions by result.",
		}, []string{"site", "result"}),
		PruneDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_pruned_total",
			Help:      "Completion records removed by retention.",
		}),
	}
}

// RecordPages adds n fetched pages for site.
func (m *Metrics) RecordPages(site string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PagesFetched.WithLabelValues(site).Add(float64(n))
}

// RecordDownload counts one download outcome.
func (m *Metrics) RecordDownload(site string, outcome types.DownloadOutcome) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(site, outcome.String()).Inc()
}

// RecordSkip counts one skipped article.
func (m *Metrics) RecordSkip(site string, kind types.SkipKind) {
	if m == nil {
		return
	}
	m.Skipped.WithLabelValues(site, string(kind)).Inc()
}

// RecordKeyword counts one session result.
func (m *Metrics) RecordKeyword(site, result string) {
	if m == nil {
		return
	}
	m.Keywords.WithLabelValues(site, result).Inc()
}

// RecordPrune adds n pruned records.
func (m *Metrics) RecordPrune(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PruneDeleted.Add(float64(n))
}

// WriteTextfile writes the registry to path atomically. An empty path is a
// no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
