package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"example.com/coaching/internal/domain"
	"example.com/coaching/internal/events"
	"example.com/coaching/internal/observability"
)

// ReconcileHandler consumes session.completed events and marks the plan
// workout behind the session completed. Plan and session consistency is
// eventual; this handler is the only writer that bridges the two aggregates.
type ReconcileHandler struct {
	plans  *domain.PlanService
	logger *log.Logger
}

// NewReconcileHandler constructs a handler around the plan service.
func NewReconcileHandler(plans *domain.PlanService, logger *log.Logger) *ReconcileHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[reconciler] ", log.LstdFlags)
	}
	return &ReconcileHandler{plans: plans, logger: logger}
}

// Handle advances the plan for a completed session. Events that cannot ever
// succeed (ad hoc sessions, deleted plans, unknown workouts) are dropped so
// they do not wedge the partition; transient failures propagate and retry.
func (h *ReconcileHandler) Handle(ctx context.Context, msg Message) error {
	if msg.EventType != events.TypeSessionCompleted {
		return nil
	}

	var payload events.SessionCompleted
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode session.completed: %w", err)
	}
	if payload.PlanID == "" || payload.WorkoutTemplateID == "" {
		// Ad hoc session, nothing to reconcile.
		return nil
	}

	_, err := h.plans.ReconcileCompletedSession(ctx, payload.PlanID, payload.UserID, payload.WorkoutTemplateID)
	switch {
	case err == nil:
		observability.RecordWorkoutReconciled()
		return nil
	case errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrWorkoutNotFound),
		errors.Is(err, domain.ErrUnauthorized):
		h.logger.Printf("dropping session.completed for plan=%s workout=%s: %v", payload.PlanID, payload.WorkoutTemplateID, err)
		return nil
	default:
		return err
	}
}
