// SPDX-License-Identifier: MIT

// Package metrics registers and updates the Prometheus instruments for the
// planning loop. All instruments live in the default registry and are served
// by the /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/svoss/recplan/internal/plan"
)

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recplan_cycles_total",
		Help: "Planning cycles by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recplan_cycle_duration_seconds",
		Help:    "Wall-clock duration of a full planning cycle.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	recordingStatuses = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "recplan_recordings",
		Help: "Recording outcomes in the published plan, by status.",
	}, []string{"status"})

	reflowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recplan_reflows_total",
		Help: "Single-hop reassignment attempts by result.",
	}, []string{"result"})

	previewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recplan_previews_total",
		Help: "What-if preview runs.",
	})

	preemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recplan_live_preemptions_total",
		Help: "Live sessions preempted for recordings, by whether they yielded.",
	}, []string{"yielded"})

	candidates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recplan_candidates",
		Help: "Rule-showing candidates considered in the last cycle.",
	})

	rejectedInputs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recplan_rejected_inputs",
		Help: "Malformed snapshot entries excluded from the last cycle.",
	})
)

// RecordCycle counts one finished planning cycle.
func RecordCycle(trigger, outcome string, d time.Duration) {
	cyclesTotal.WithLabelValues(trigger, outcome).Inc()
	if outcome == "success" {
		cycleDuration.Observe(d.Seconds())
	}
}

// RecordPlan publishes per-status gauges for a freshly published plan.
func RecordPlan(p *plan.Plan) {
	recordingStatuses.Reset()
	for status, n := range p.Report.StatusCounts {
		recordingStatuses.WithLabelValues(string(status)).Set(float64(n))
	}
	if n := p.Report.ReflowsAttempted - p.Report.ReflowsSucceeded; n > 0 {
		reflowsTotal.WithLabelValues("failed").Add(float64(n))
	}
	if n := p.Report.ReflowsSucceeded; n > 0 {
		reflowsTotal.WithLabelValues("succeeded").Add(float64(n))
	}
	candidates.Set(float64(p.Report.Candidates))
	rejectedInputs.Set(float64(len(p.Report.Rejected)))
}

// RecordPreview counts one what-if run.
func RecordPreview() {
	previewsTotal.Inc()
}

// RecordPreemption counts one live-session preemption.
func RecordPreemption(yielded bool) {
	label := "false"
	if yielded {
		label = "true"
	}
	preemptionsTotal.WithLabelValues(label).Inc()
}
