// Package metrics declares the prometheus collectors the service exports on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReadingsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "roomwatch",
		Name:      "readings_recorded_total",
		Help:      "Sensor readings appended to the store.",
	})

	AlertsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomwatch",
		Name:      "alerts_created_total",
		Help:      "Alerts persisted, by alert type.",
	}, []string{"type"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomwatch",
		Name:      "alerts_suppressed_total",
		Help:      "Candidate alerts dropped because an unhandled alert with the same key exists.",
	}, []string{"type"})

	FeedEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomwatch",
		Name:      "feed_events_published_total",
		Help:      "Change events handed to the change feed, by table and event type.",
	}, []string{"table", "event"})

	FeedSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "roomwatch",
		Name:      "feed_subscriptions_active",
		Help:      "Open change feed subscriptions on the in-process broker.",
	})

	PushNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomwatch",
		Name:      "push_notifications_total",
		Help:      "Push notifications dispatched, by dispatcher.",
	}, []string{"dispatcher"})

	IngestMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roomwatch",
		Name:      "ingest_messages_total",
		Help:      "MQTT sensor messages handled, by result.",
	}, []string{"result"})
)
