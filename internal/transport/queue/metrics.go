package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "school",
		Subsystem: "notifications",
		Name:      "published_total",
		Help:      "Notification events accepted by the broker.",
	})
	publishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "school",
		Subsystem: "notifications",
		Name:      "publish_failures_total",
		Help:      "Notification events the broker did not accept.",
	})
	consumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "school",
		Subsystem: "notifications",
		Name:      "consumed_total",
		Help:      "Notification events handled by the projector, by outcome.",
	}, []string{"outcome"})
)
