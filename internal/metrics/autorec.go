// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AutorecEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "htspsync_autorec_events_total",
		Help: "Inbound autorec events by method and outcome",
	}, []string{"method", "outcome"}) // outcome=applied|rejected|ignored

	AutorecRules = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "htspsync_autorec_rules",
		Help: "Number of autorec rules currently mirrored",
	})

	AutorecResyncPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "htspsync_autorec_resync_purged_total",
		Help: "Rules removed because the server did not re-announce them during a resync",
	})

	AutorecRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "htspsync_autorec_requests_total",
		Help: "Outbound autorec requests by method and result",
	}, []string{"method", "result"}) // result=ok|failed|server_error

	SessionEpochsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "htspsync_session_epochs_total",
		Help: "Connection epochs started (connects and reconnects)",
	})

	SnapshotWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "htspsync_snapshot_writes_total",
		Help: "Mirror snapshot writes by backend and outcome",
	}, []string{"backend", "outcome"}) // outcome=ok|error
)

func IncAutorecEvent(method, outcome string) {
	AutorecEventsTotal.WithLabelValues(method, outcome).Inc()
}

func SetAutorecRules(n int) {
	AutorecRules.Set(float64(n))
}

func AddAutorecResyncPurged(n int) {
	if n > 0 {
		AutorecResyncPurgedTotal.Add(float64(n))
	}
}

func IncAutorecRequest(method, result string) {
	AutorecRequestsTotal.WithLabelValues(method, result).Inc()
}

func IncSessionEpoch() {
	SessionEpochsTotal.Inc()
}

func IncSnapshotWrite(backend, outcome string) {
	SnapshotWritesTotal.WithLabelValues(backend, outcome).Inc()
}
