package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "starlint_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starlint_analysis_seconds",
		Help:    "Time spent per analysis pass over the file set.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pass"})

	FilesAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starlint_files_analyzed_total",
		Help: "Total number of per-file analysis runs, counting both passes.",
	})

	ViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "starlint_violations_total",
		Help: "Total number of reported violations by check.",
	}, []string{"check"})

	RunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starlint_runs_total",
		Help: "Total number of completed analysis runs.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "starlint_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
