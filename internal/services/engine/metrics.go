package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtower_polls_total", Help: "Poll cycles executed",
	}, []string{"kind"})
	mProbeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtower_probe_errors_total", Help: "Polls that failed before yielding an observation",
	}, []string{"kind"})
	mTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtower_transitions_total", Help: "Classified transitions",
	}, []string{"kind", "transition"})
	mNotifyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watchtower_notify_errors_total", Help: "Notification deliveries that failed",
	})
	mSnapshotWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watchtower_snapshot_writes_total", Help: "Snapshot saves attempted",
	})
	mSnapshotErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "watchtower_snapshot_errors_total", Help: "Snapshot saves that failed",
	})
	mPollDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "watchtower_poll_duration_seconds", Help: "Poll cycle duration",
		Buckets: prometheus.DefBuckets,
	})
	mWatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "watchtower_watches", Help: "Watches currently registered",
	})
)
