// Package events defines the domain event payloads recorded to the outbox.
package events

import "time"

// Event types routed through the outbox catalog.
const (
	TypePlanActivated     = "plan.activated"
	TypeWorkoutSkipped    = "plan.workout_skipped"
	TypeParticipantJoined = "session.participant_joined"
	TypeSessionCompleted  = "session.completed"
)

// Envelope pairs a typed payload with routing metadata. Repositories insert
// envelopes into the outbox inside the aggregate's transaction.
type Envelope struct {
	Type          string
	AggregateType string
	AggregateID   string
	PartitionKey  string
	Payload       any
}

// PlanActivated is emitted when a plan transitions to active.
type PlanActivated struct {
	PlanID      string    `json:"plan_id"`
	UserID      string    `json:"user_id"`
	StartDate   time.Time `json:"start_date"`
	ActivatedAt time.Time `json:"activated_at"`
}

// WorkoutSkipped is emitted when a plan workout is marked skipped.
type WorkoutSkipped struct {
	PlanID     string    `json:"plan_id"`
	UserID     string    `json:"user_id"`
	WorkoutID  string    `json:"workout_id"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ParticipantJoined is emitted when a user joins a multiplayer session.
type ParticipantJoined struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

// SessionCompleted is emitted when a live session finishes and converts into
// a completed workout. The reconciler consumes it to advance the plan.
type SessionCompleted struct {
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	PlanID            string    `json:"plan_id,omitempty"`
	WorkoutTemplateID string    `json:"workout_template_id,omitempty"`
	ActiveDurationSec int       `json:"active_duration_sec"`
	CompletionPercent float64   `json:"completion_percent"`
	CompletedAt       time.Time `json:"completed_at"`
}
