// Package metrics holds the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mycelian_crisis"

var (
	AssessmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Risk assessments produced, by severity.",
		},
		[]string{"severity"},
	)

	TriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Risk triggers raised, by kind.",
		},
		[]string{"kind"},
	)

	SessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Crisis sessions started, by severity.",
		},
		[]string{"severity"},
	)

	SessionsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_resolved_total",
			Help:      "Crisis sessions resolved, by final status before resolution.",
		},
		[]string{"from"},
	)

	SafetyPlanActivationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_plan_activations_total",
			Help:      "Safety plan activations.",
		},
	)

	MonitorTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_ticks_total",
			Help:      "Periodic monitor ticks, by result (ran, skipped).",
		},
		[]string{"result"},
	)

	RealtimeDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_dropped_total",
			Help:      "Real-time events dropped because a subscriber buffer was full.",
		},
		[]string{"channel"},
	)

	PersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_failures_total",
			Help:      "Best-effort persistence writes that failed, by record kind.",
		},
		[]string{"kind"},
	)
)
