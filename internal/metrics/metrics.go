// Package metrics exposes prometheus instrumentation for the dispatch
// engines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkItems counts compute-primitive work items executed by the CPU
	// engine, labelled by operator.
	WorkItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batchflow_work_items_total",
		Help: "The total number of CPU work items executed",
	}, []string{"operator"})

	// KernelLaunches counts per-sample native kernel launches.
	KernelLaunches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchflow_kernel_launches_total",
		Help: "The total number of native kernel launches issued",
	})

	// LaunchAdvisories counts under-subscribed launch geometry warnings.
	LaunchAdvisories = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batchflow_launch_advisories_total",
		Help: "The total number of launch geometry advisories emitted",
	})

	// BatchDuration observes wall time per operator Run, in milliseconds.
	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "batchflow_batch_duration_ms",
		Help:    "Duration of one operator Run over a batch in milliseconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 16), // 0.1ms to ~3.3s
	}, []string{"operator"})
)
