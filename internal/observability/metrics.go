package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	planActivatedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coaching_service",
		Subsystem: "plans",
		Name:      "last_plan_activated_timestamp_seconds",
		Help:      "Unix timestamp of the most recent plan activation.",
	})
	sessionCompletedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "coaching_service",
		Subsystem: "sessions",
		Name:      "last_session_completed_timestamp_seconds",
		Help:      "Unix timestamp of the most recent session completion.",
	})
	planReconciledCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "coaching_service",
		Subsystem: "plans",
		Name:      "workouts_reconciled_total",
		Help:      "Number of plan workouts marked completed by the session reconciler.",
	})
)

func init() {
	prometheus.MustRegister(planActivatedGauge, sessionCompletedGauge, planReconciledCounter)
}

// RecordPlanActivated updates the activation watermark gauge.
func RecordPlanActivated(ts time.Time) {
	if ts.IsZero() {
		return
	}
	planActivatedGauge.Set(float64(ts.Unix()))
}

// RecordSessionCompleted updates the completion watermark gauge.
func RecordSessionCompleted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	sessionCompletedGauge.Set(float64(ts.Unix()))
}

// RecordWorkoutReconciled counts reconciler-driven plan updates.
func RecordWorkoutReconciled() {
	planReconciledCounter.Inc()
}
