package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pinnedSlicesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "slice_service",
		Subsystem: "slices",
		Name:      "pinned_total",
		Help:      "Number of live slice views currently pinned by the host.",
	})
	sliceBindCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slice_service",
		Subsystem: "slices",
		Name:      "binds_total",
		Help:      "Number of slice bind requests grouped by rendered state.",
	}, []string{"state"})
	recordPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "slice_service",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity record persisted locally.",
	})
)

func init() {
	prometheus.MustRegister(pinnedSlicesGauge, sliceBindCounter, recordPersistGauge)
}

// SetPinnedSlices updates the live view gauge.
func SetPinnedSlices(count int) {
	pinnedSlicesGauge.Set(float64(count))
}

// RecordSliceBind counts a bind by its rendered state (loading or content).
func RecordSliceBind(state string) {
	sliceBindCounter.WithLabelValues(state).Inc()
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.Set(float64(ts.Unix()))
}
