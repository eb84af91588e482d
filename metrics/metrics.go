// Package metrics has the Prometheus collectors of a session.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PhasesTotal counts entered phases by kind
	PhasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uromri_phases_total",
		Help: "Number of phases entered by kind",
	}, []string{"kind"})

	// CurrentPhase is the 1-based index of the running phase, 0 when nothing is running
	CurrentPhase = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uromri_current_phase",
		Help: "Index of the running phase",
	})

	// PhaseLag tracks how late phases are entered compared to their scheduled start
	PhaseLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uromri_phase_lag_seconds",
		Help:    "Time between the scheduled and the actual start of a phase",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	// ActuatorCommandsTotal counts actuator commands by command and result
	ActuatorCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uromri_actuator_commands_total",
		Help: "Number of actuator commands by command and result",
	}, []string{"command", "result"})

	// DrainDuration tracks how long moves continued after their phase ended
	DrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "uromri_drain_duration_seconds",
		Help:    "Time spent waiting for the actuator after a phase ended",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// SessionsTotal counts finished sessions by outcome
	SessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uromri_sessions_total",
		Help: "Number of finished sessions by outcome",
	}, []string{"outcome"})
)

// ObservePhase records that phase index (1-based) of the given kind was entered lag seconds late
func ObservePhase(index int, kind string, lag float64) {
	PhasesTotal.WithLabelValues(kind).Inc()
	CurrentPhase.Set(float64(index))
	if lag < 0 {
		lag = 0
	}
	PhaseLag.Observe(lag)
}

// ObserveCommand records the result of an actuator command
func ObserveCommand(command string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ActuatorCommandsTotal.WithLabelValues(command, result).Inc()
}

// ObserveDrain records a drain wait
func ObserveDrain(d time.Duration) {
	DrainDuration.Observe(d.Seconds())
}

// ObserveSession records a finished session and resets the current phase
func ObserveSession(outcome string) {
	SessionsTotal.WithLabelValues(outcome).Inc()
	CurrentPhase.Set(0)
}
