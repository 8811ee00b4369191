package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sink label values.
const (
	sinkFeed  = "feed"
	sinkStore = "store"
)

// Mirror write result label values.
const (
	resultOK       = "ok"
	resultError    = "error"
	resultRejected = "rejected"
)

var (
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_engine_transitions_total",
			Help: "Total number of cart state transitions applied, by operation",
		},
		[]string{"operation"},
	)

	noopsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_engine_noops_total",
			Help: "Total number of cart operations that left the state unchanged, by operation",
		},
		[]string{"operation"},
	)

	mirrorWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_engine_mirror_writes_total",
			Help: "Total number of mirrored writes attempted, by sink and result",
		},
		[]string{"sink", "result"},
	)

	mirrorDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_engine_mirror_dropped_total",
			Help: "Total number of mirrored writes dropped or superseded before being attempted",
		},
		[]string{"sink"},
	)

	mirrorWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cart_engine_mirror_write_duration_seconds",
			Help:    "Duration of mirrored writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)

	cartItemsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cart_engine_total_items",
		Help: "Total number of units currently in the cart",
	})

	cartPriceGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cart_engine_total_price",
		Help: "Aggregate price of the cart",
	})
)
