package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	remoteSyncFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitlog",
		Subsystem: "sync",
		Name:      "remote_failures_total",
		Help:      "Number of remote persistence calls that failed, by operation.",
	}, []string{"operation"})

	localFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitlog",
		Subsystem: "sync",
		Name:      "local_fallbacks_total",
		Help:      "Number of records kept local-only after a failed remote insert.",
	})

	snapshotFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitlog",
		Subsystem: "cache",
		Name:      "snapshot_failures_total",
		Help:      "Number of durable snapshot writes that failed.",
	})

	recordPersistedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitlog",
		Subsystem: "sync",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent record persisted remotely.",
	})
)

func init() {
	prometheus.MustRegister(remoteSyncFailures, localFallbacks, snapshotFailures, recordPersistedGauge)
}

// RecordSyncFailure counts a failed remote call for the given operation.
func RecordSyncFailure(operation string) {
	remoteSyncFailures.WithLabelValues(operation).Inc()
}

// RecordLocalFallback counts a record that degraded to local-only storage.
func RecordLocalFallback() {
	localFallbacks.Inc()
}

// RecordSnapshotFailure counts a failed durable snapshot write.
func RecordSnapshotFailure() {
	snapshotFailures.Inc()
}

// RecordPersisted updates the remote persistence watermark gauge.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistedGauge.Set(float64(ts.Unix()))
}
