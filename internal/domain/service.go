// Package domain holds the plan and session scheduling engine: pure
// aggregates, their transition rules, and the use-case services that load,
// transform, and persist them.
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"example.com/coaching/internal/events"
	"example.com/coaching/internal/observability"
)

// PlanRepository captures plan persistence. Get returns nil when the plan
// does not exist. Save enforces optimistic concurrency on the aggregate
// revision and records the supplied events in the same transaction.
type PlanRepository interface {
	Get(ctx context.Context, planID string) (*FitnessPlan, error)
	FindActiveByUser(ctx context.Context, userID string) (*FitnessPlan, error)
	Create(ctx context.Context, plan FitnessPlan) error
	Save(ctx context.Context, plan FitnessPlan, evts ...events.Envelope) error
}

// SessionRepository captures live-session persistence. Finalize records the
// completed workout, deletes the live session, and writes the events in one
// transaction.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*WorkoutSession, error)
	Create(ctx context.Context, session WorkoutSession) error
	Save(ctx context.Context, session WorkoutSession, evts ...events.Envelope) error
	Finalize(ctx context.Context, session WorkoutSession, record CompletedWorkout, evts ...events.Envelope) error
	ListCompletedByUser(ctx context.Context, userID string, cursor *Cursor, limit int) ([]CompletedWorkout, *Cursor, error)
}

// PlanService orchestrates plan workflows: load, transition, save, emit.
type PlanService struct {
	plans PlanRepository
}

// NewPlanService constructs a PlanService.
func NewPlanService(plans PlanRepository) *PlanService {
	return &PlanService{plans: plans}
}

// CreatePlanInput carries the authored plan content from the API layer.
type CreatePlanInput struct {
	UserID string
	Title  string
	Goals  []string
	Weeks  []WeeklySchedule
}

// CreatePlan persists a new draft plan.
func (s *PlanService) CreatePlan(ctx context.Context, input CreatePlanInput) (*FitnessPlan, error) {
	plan, err := NewFitnessPlan(uuid.NewString(), input.UserID, input.Title, input.Weeks, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	plan.Goals = input.Goals
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetPlan loads a plan for its owner.
func (s *PlanService) GetPlan(ctx context.Context, planID, actorID string) (*FitnessPlan, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != actorID {
		return nil, fmt.Errorf("%w: user %s does not own plan %s", ErrUnauthorized, actorID, planID)
	}
	return plan, nil
}

// ActivatePlan transitions a plan to active. A user may only hold one active
// plan; the check runs here because it spans aggregates.
func (s *PlanService) ActivatePlan(ctx context.Context, planID, actorID string) (*FitnessPlan, error) {
	plan, err := s.GetPlan(ctx, planID, actorID)
	if err != nil {
		return nil, err
	}

	existing, err := s.plans.FindActiveByUser(ctx, plan.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != plan.ID {
		return nil, fmt.Errorf("%w: plan %s is active", ErrActivePlanExists, existing.ID)
	}

	now := time.Now().UTC()
	activated, err := plan.Activate(now)
	if err != nil {
		return nil, err
	}

	evt := events.Envelope{
		Type:          events.TypePlanActivated,
		AggregateType: "plan",
		AggregateID:   activated.ID,
		PartitionKey:  activated.UserID,
		Payload: events.PlanActivated{
			PlanID:      activated.ID,
			UserID:      activated.UserID,
			StartDate:   *activated.StartDate,
			ActivatedAt: now,
		},
	}
	if err := s.plans.Save(ctx, activated, evt); err != nil {
		return nil, err
	}
	observability.RecordPlanActivated(now)
	return &activated, nil
}

// PausePlan suspends an active plan.
func (s *PlanService) PausePlan(ctx context.Context, planID, actorID string) (*FitnessPlan, error) {
	return s.transitionPlan(ctx, planID, actorID, FitnessPlan.Pause)
}

// CompletePlan finishes an active plan.
func (s *PlanService) CompletePlan(ctx context.Context, planID, actorID string) (*FitnessPlan, error) {
	return s.transitionPlan(ctx, planID, actorID, FitnessPlan.Complete)
}

// AbandonPlan terminates an active plan.
func (s *PlanService) AbandonPlan(ctx context.Context, planID, actorID string) (*FitnessPlan, error) {
	return s.transitionPlan(ctx, planID, actorID, FitnessPlan.Abandon)
}

func (s *PlanService) transitionPlan(
	ctx context.Context,
	planID, actorID string,
	op func(FitnessPlan, time.Time) (FitnessPlan, error),
) (*FitnessPlan, error) {
	plan, err := s.GetPlan(ctx, planID, actorID)
	if err != nil {
		return nil, err
	}
	next, err := op(*plan, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.plans.Save(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// SkipWorkout marks one plan workout skipped on behalf of the actor.
func (s *PlanService) SkipWorkout(ctx context.Context, planID, actorID, workoutID, reason string) (*FitnessPlan, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	next, err := plan.SkipWorkout(actorID, workoutID, reason, now)
	if err != nil {
		return nil, err
	}

	evt := events.Envelope{
		Type:          events.TypeWorkoutSkipped,
		AggregateType: "plan",
		AggregateID:   next.ID,
		PartitionKey:  next.UserID,
		Payload: events.WorkoutSkipped{
			PlanID:     next.ID,
			UserID:     next.UserID,
			WorkoutID:  workoutID,
			Reason:     reason,
			OccurredAt: now,
		},
	}
	if err := s.plans.Save(ctx, next, evt); err != nil {
		return nil, err
	}
	return &next, nil
}

// ReconcileCompletedSession marks the plan workout behind a finished session
// completed and advances the day pointer. Called by the event consumer, so
// plan and session stay eventually consistent without a shared transaction.
func (s *PlanService) ReconcileCompletedSession(ctx context.Context, planID, userID, workoutID string) (*FitnessPlan, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	next, err := plan.CompleteWorkout(userID, workoutID, now)
	if err != nil {
		return nil, err
	}
	next, err = next.AdvancePosition(now)
	if err != nil {
		return nil, err
	}
	if err := s.plans.Save(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (s *PlanService) loadPlan(ctx context.Context, planID string) (*FitnessPlan, error) {
	plan, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return plan, nil
}

// SessionService orchestrates live-session workflows.
type SessionService struct {
	sessions SessionRepository
	plans    PlanRepository
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions SessionRepository, plans PlanRepository) *SessionService {
	return &SessionService{sessions: sessions, plans: plans}
}

// CreateSessionInput carries session creation parameters. When PlanID and
// WorkoutTemplateID are set and Activities is empty, the activities come from
// the plan's template.
type CreateSessionInput struct {
	OwnerID           string
	OwnerName         string
	PlanID            string
	WorkoutTemplateID string
	WorkoutType       string
	Activities        []Activity
	Config            SessionConfig
}

// CreateSession builds and persists a preparing session, ad hoc or spawned
// from a plan workout.
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*WorkoutSession, error) {
	activities := input.Activities
	if len(activities) == 0 && input.PlanID != "" && input.WorkoutTemplateID != "" {
		plan, err := s.plans.Get(ctx, input.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, input.PlanID)
		}
		template, err := plan.WorkoutByID(input.WorkoutTemplateID)
		if err != nil {
			return nil, err
		}
		activities = template.Activities
	}

	session, err := NewWorkoutSession(
		uuid.NewString(), input.OwnerID, input.OwnerName, input.WorkoutType,
		activities, input.Config, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	session.PlanID = input.PlanID
	session.WorkoutTemplateID = input.WorkoutTemplateID

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession loads a session by id.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*WorkoutSession, error) {
	return s.loadSession(ctx, sessionID)
}

// StartSession begins the owner's workout.
func (s *SessionService) StartSession(ctx context.Context, sessionID, actorID string) (*WorkoutSession, error) {
	return s.transitionSession(ctx, sessionID, actorID, WorkoutSession.Start)
}

// PauseSession suspends an in-progress workout.
func (s *SessionService) PauseSession(ctx context.Context, sessionID, actorID string) (*WorkoutSession, error) {
	return s.transitionSession(ctx, sessionID, actorID, WorkoutSession.Pause)
}

// ResumeSession continues a paused workout.
func (s *SessionService) ResumeSession(ctx context.Context, sessionID, actorID string) (*WorkoutSession, error) {
	return s.transitionSession(ctx, sessionID, actorID, WorkoutSession.Resume)
}

// AbandonSession terminates a non-terminal session.
func (s *SessionService) AbandonSession(ctx context.Context, sessionID, actorID string) (*WorkoutSession, error) {
	return s.transitionSession(ctx, sessionID, actorID, WorkoutSession.Abandon)
}

func (s *SessionService) transitionSession(
	ctx context.Context,
	sessionID, actorID string,
	op func(WorkoutSession, time.Time) (WorkoutSession, error),
) (*WorkoutSession, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}
	next, err := op(*session, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// CompleteSession finishes the workout, converts it into a completed-workout
// record, and removes the live session. The record write, the session
// delete, and the completion event land in one transaction.
func (s *SessionService) CompleteSession(ctx context.Context, sessionID, actorID string) (*CompletedWorkout, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	completed, err := session.Complete(now)
	if err != nil {
		return nil, err
	}
	record, err := completed.ToCompletedWorkout(uuid.NewString())
	if err != nil {
		return nil, err
	}

	evt := events.Envelope{
		Type:          events.TypeSessionCompleted,
		AggregateType: "session",
		AggregateID:   completed.ID,
		PartitionKey:  completed.OwnerID,
		Payload: events.SessionCompleted{
			SessionID:         completed.ID,
			UserID:            completed.OwnerID,
			PlanID:            completed.PlanID,
			WorkoutTemplateID: completed.WorkoutTemplateID,
			ActiveDurationSec: record.ActiveDurationSec,
			CompletionPercent: record.CompletionPercent,
			CompletedAt:       now,
		},
	}
	if err := s.sessions.Finalize(ctx, completed, record, evt); err != nil {
		return nil, err
	}
	observability.RecordSessionCompleted(now)
	return &record, nil
}

// JoinSession adds a user to a multiplayer session. Idempotent re-joins save
// nothing and emit nothing.
func (s *SessionService) JoinSession(ctx context.Context, sessionID, userID, userName string) (*WorkoutSession, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	next, err := session.Join(userID, userName, now)
	if err != nil {
		return nil, err
	}
	if len(next.Participants) == len(session.Participants) {
		return session, nil
	}

	evt := events.Envelope{
		Type:          events.TypeParticipantJoined,
		AggregateType: "session",
		AggregateID:   next.ID,
		PartitionKey:  next.ID,
		Payload: events.ParticipantJoined{
			SessionID: next.ID,
			UserID:    userID,
			UserName:  userName,
			JoinedAt:  now,
		},
	}
	if err := s.sessions.Save(ctx, next, evt); err != nil {
		return nil, err
	}
	return &next, nil
}

// LeaveSession removes a participant, promoting a new owner if needed.
func (s *SessionService) LeaveSession(ctx context.Context, sessionID, userID string) (*WorkoutSession, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, err := session.Leave(userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// RecordActivity stores a finished activity performance for the session.
func (s *SessionService) RecordActivity(ctx context.Context, sessionID, actorID, activityID string, durationSec int) (*WorkoutSession, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}
	next, err := session.RecordActivity(activityID, durationSec, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// UpdateProgress replaces the live progress pointer.
func (s *SessionService) UpdateProgress(ctx context.Context, sessionID, actorID string, progress LiveProgress) (*WorkoutSession, error) {
	session, err := s.loadOwnedSession(ctx, sessionID, actorID)
	if err != nil {
		return nil, err
	}
	next, err := session.UpdateProgress(progress, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, next); err != nil {
		return nil, err
	}
	return &next, nil
}

// ListCompletedWorkouts pages through a user's workout history, newest first.
func (s *SessionService) ListCompletedWorkouts(ctx context.Context, userID string, cursor *Cursor, limit int) ([]CompletedWorkout, *Cursor, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.sessions.ListCompletedByUser(ctx, userID, cursor, limit)
}

func (s *SessionService) loadSession(ctx context.Context, sessionID string) (*WorkoutSession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

func (s *SessionService) loadOwnedSession(ctx context.Context, sessionID, actorID string) (*WorkoutSession, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != actorID {
		return nil, fmt.Errorf("%w: user %s does not own session %s", ErrUnauthorized, actorID, sessionID)
	}
	return session, nil
}
