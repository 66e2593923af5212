package domain

import (
	"fmt"
	"time"
)

// CompletedWorkout is the permanent record a finished session converts into.
// It is owned by the history subsystem; the scheduling engine only produces
// it and then deletes the live session.
type CompletedWorkout struct {
	ID                string              `json:"id"`
	SessionID         string              `json:"session_id"`
	UserID            string              `json:"user_id"`
	PlanID            string              `json:"plan_id,omitempty"`
	WorkoutTemplateID string              `json:"workout_template_id,omitempty"`
	WorkoutType       string              `json:"workout_type"`
	StartedAt         time.Time           `json:"started_at"`
	CompletedAt       time.Time           `json:"completed_at"`
	ActiveDurationSec int                 `json:"active_duration_sec"`
	TotalPausedSec    int                 `json:"total_paused_sec"`
	CompletionPercent float64             `json:"completion_percent"`
	Activities        []CompletedActivity `json:"activities,omitempty"`
}

// Cursor is an opaque keyset-pagination position over completed workouts,
// ordered by completion time then record id.
type Cursor struct {
	CompletedAt time.Time
	ID          string
}

// ToCompletedWorkout converts a completed session into its permanent record.
func (s WorkoutSession) ToCompletedWorkout(recordID string) (CompletedWorkout, error) {
	if s.State != SessionStateCompleted || s.StartedAt == nil || s.CompletedAt == nil {
		return CompletedWorkout{}, fmt.Errorf("%w: session %s is not completed", ErrInvalidSessionState, s.ID)
	}
	return CompletedWorkout{
		ID:                recordID,
		SessionID:         s.ID,
		UserID:            s.OwnerID,
		PlanID:            s.PlanID,
		WorkoutTemplateID: s.WorkoutTemplateID,
		WorkoutType:       s.WorkoutType,
		StartedAt:         *s.StartedAt,
		CompletedAt:       *s.CompletedAt,
		ActiveDurationSec: s.ActiveDuration(*s.CompletedAt),
		TotalPausedSec:    s.TotalPausedSeconds,
		CompletionPercent: s.CompletionPercent(),
		Activities:        s.CompletedActivities,
	}, nil
}
