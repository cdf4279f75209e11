// Package metrics holds the Prometheus collectors recorded by a pipeline run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry owns a private Prometheus registry and the run collectors.
type Registry struct {
	reg *prometheus.Registry

	Runs               *prometheus.CounterVec
	OffersLoaded       prometheus.Counter
	OffersSelected     prometheus.Counter
	DuplicatesDropped  prometheus.Counter
	OffersArranged     prometheus.Counter
	OffersRemoved      prometheus.Counter
	OffersFiltered     prometheus.Counter
	OffersPublished    *prometheus.CounterVec
	CorporateMedian    prometheus.Gauge
	NonCorporateMedian prometheus.Gauge
	StageDuration      *prometheus.HistogramVec
}

// New creates a registry with every collector registered.
func New() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offerline_runs_total",
		Help: "Pipeline runs by final status.",
	}, []string{"status"})
	loaded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offerline_offers_loaded_total",
		Help: "Offers returned by the input module.",
	})
	selected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offerline_offers_selected_total",
		Help: "Offers left after selection filters.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offerline_duplicates_dropped_total",
		Help: "Offers dropped as duplicates.",
	})
	arranged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offerline_offers_arranged_total",
		Help: "Offers in the arranged list.",
	})
	removed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offerline_offers_removed_total",
		Help: "Offers removed as overpriced.",
	})
	filtered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "offerline_offers_filtered_total",
		Help: "Offers in the filtered list.",
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offerline_offers_published_total",
		Help: "Offers accepted by output modules.",
	}, []string{"stage", "module_type"})
	corpMedian := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "offerline_corporate_median_cost",
		Help: "Median rental cost of corporate offers in the last run (+Inf when none).",
	})
	otherMedian := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "offerline_non_corporate_median_cost",
		Help: "Median rental cost of non-corporate offers in the last run (+Inf when none).",
	})
	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "offerline_stage_duration_seconds",
		Help:    "Duration of pipeline stages.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	r.MustRegister(runs, loaded, selected, duplicates, arranged, removed, filtered, published, corpMedian, otherMedian, stageDuration)
	return &Registry{
		reg:                r,
		Runs:               runs,
		OffersLoaded:       loaded,
		OffersSelected:     selected,
		DuplicatesDropped:  duplicates,
		OffersArranged:     arranged,
		OffersRemoved:      removed,
		OffersFiltered:     filtered,
		OffersPublished:    published,
		CorporateMedian:    corpMedian,
		NonCorporateMedian: otherMedian,
		StageDuration:      stageDuration,
	}
}

// Gatherer exposes the registry for tests and exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes every metric in the Prometheus text format, suitable
// for the node_exporter textfile collector. The write is atomic.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
