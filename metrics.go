// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package ehl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes, the values of the "outcome" label.
const (
	outcomeDirect   = "direct"
	outcomeLabels   = "labels"
	outcomeNotFound = "not_found"
	outcomeOffMesh  = "off_mesh"
)

type engineMetrics struct {
	queries          *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
	viaLabels        prometheus.Counter
	visibilityChecks prometheus.Counter
	prunedHubs       prometheus.Counter
	mismatches       prometheus.Counter
}

// newEngineMetrics creates the query metrics and registers them with reg.
// A nil reg leaves them unregistered.
func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	f := promauto.With(reg)
	return &engineMetrics{
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ehl_queries_total",
				Help: "Total number of answered queries by outcome",
			},
			[]string{"outcome"},
		),
		phaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ehl_query_phase_duration_seconds",
				Help:    "Time spent per query phase in seconds",
				Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2, .1},
			},
			[]string{"phase"},
		),
		viaLabels: f.NewCounter(prometheus.CounterOpts{
			Name: "ehl_via_labels_total",
			Help: "Total number of via labels examined",
		}),
		visibilityChecks: f.NewCounter(prometheus.CounterOpts{
			Name: "ehl_visibility_checks_total",
			Help: "Total number of raycasts run while answering queries",
		}),
		prunedHubs: f.NewCounter(prometheus.CounterOpts{
			Name: "ehl_pruned_hubs_total",
			Help: "Total number of common hubs skipped by their lower bound",
		}),
		mismatches: f.NewCounter(prometheus.CounterOpts{
			Name: "ehl_scenario_mismatches_total",
			Help: "Total number of validated queries that disagree with the reference distance",
		}),
	}
}

func (m *engineMetrics) observe(r *Result, outcome string) {
	m.queries.WithLabelValues(outcome).Inc()
	m.phaseDuration.WithLabelValues("locate").Observe(r.Stats.LocateTime.Seconds())
	m.phaseDuration.WithLabelValues("visibility").Observe(r.Stats.VisibilityTime.Seconds())
	m.phaseDuration.WithLabelValues("fusion").Observe(r.Stats.FusionTime.Seconds())
	m.viaLabels.Add(float64(r.Stats.ViaLabels))
	m.visibilityChecks.Add(float64(r.Stats.VisibilityChecks))
	m.prunedHubs.Add(float64(r.Stats.PrunedHubs))
}
