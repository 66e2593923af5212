package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/coaching/internal/events"
)

type stubPlanRepo struct {
	plans      map[string]FitnessPlan
	activeByUs map[string]string
	saved      []FitnessPlan
	events     []events.Envelope
}

func newStubPlanRepo() *stubPlanRepo {
	return &stubPlanRepo{plans: map[string]FitnessPlan{}, activeByUs: map[string]string{}}
}

func (r *stubPlanRepo) Get(_ context.Context, planID string) (*FitnessPlan, error) {
	plan, ok := r.plans[planID]
	if !ok {
		return nil, nil
	}
	plan.Reindex()
	return &plan, nil
}

func (r *stubPlanRepo) FindActiveByUser(_ context.Context, userID string) (*FitnessPlan, error) {
	id, ok := r.activeByUs[userID]
	if !ok {
		return nil, nil
	}
	plan := r.plans[id]
	plan.Reindex()
	return &plan, nil
}

func (r *stubPlanRepo) Create(_ context.Context, plan FitnessPlan) error {
	r.plans[plan.ID] = plan
	return nil
}

func (r *stubPlanRepo) Save(_ context.Context, plan FitnessPlan, evts ...events.Envelope) error {
	r.plans[plan.ID] = plan
	if plan.Status == PlanStatusActive {
		r.activeByUs[plan.UserID] = plan.ID
	} else if r.activeByUs[plan.UserID] == plan.ID {
		delete(r.activeByUs, plan.UserID)
	}
	r.saved = append(r.saved, plan)
	r.events = append(r.events, evts...)
	return nil
}

type stubSessionRepo struct {
	sessions  map[string]WorkoutSession
	saved     []WorkoutSession
	events    []events.Envelope
	finalized []CompletedWorkout
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: map[string]WorkoutSession{}}
}

func (r *stubSessionRepo) Get(_ context.Context, sessionID string) (*WorkoutSession, error) {
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (r *stubSessionRepo) Create(_ context.Context, session WorkoutSession) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *stubSessionRepo) Save(_ context.Context, session WorkoutSession, evts ...events.Envelope) error {
	r.sessions[session.ID] = session
	r.saved = append(r.saved, session)
	r.events = append(r.events, evts...)
	return nil
}

func (r *stubSessionRepo) Finalize(_ context.Context, session WorkoutSession, record CompletedWorkout, evts ...events.Envelope) error {
	delete(r.sessions, session.ID)
	r.finalized = append(r.finalized, record)
	r.events = append(r.events, evts...)
	return nil
}

func (r *stubSessionRepo) ListCompletedByUser(_ context.Context, userID string, _ *Cursor, limit int) ([]CompletedWorkout, *Cursor, error) {
	out := make([]CompletedWorkout, 0, limit)
	for _, record := range r.finalized {
		if record.UserID == userID && len(out) < limit {
			out = append(out, record)
		}
	}
	return out, nil, nil
}

func TestActivatePlanEmitsEventAndEnforcesSingleActive(t *testing.T) {
	repo := newStubPlanRepo()
	svc := NewPlanService(repo)

	plan := testPlan(t)
	require.NoError(t, repo.Create(context.Background(), plan))

	activated, err := svc.ActivatePlan(context.Background(), plan.ID, plan.UserID)
	require.NoError(t, err)
	require.Equal(t, PlanStatusActive, activated.Status)
	require.Len(t, repo.events, 1)
	require.Equal(t, events.TypePlanActivated, repo.events[0].Type)
	require.Equal(t, plan.ID, repo.events[0].AggregateID)

	other := testPlan(t)
	other.ID = "plan-2"
	other.Reindex()
	require.NoError(t, repo.Create(context.Background(), other))

	_, err = svc.ActivatePlan(context.Background(), "plan-2", plan.UserID)
	require.ErrorIs(t, err, ErrActivePlanExists)
}

func TestActivatePlanIsIdempotentForTheSamePlanOnSecondCall(t *testing.T) {
	repo := newStubPlanRepo()
	svc := NewPlanService(repo)
	plan := testPlan(t)
	require.NoError(t, repo.Create(context.Background(), plan))

	_, err := svc.ActivatePlan(context.Background(), plan.ID, plan.UserID)
	require.NoError(t, err)

	// The single-active check excludes the plan itself, so the failure is the
	// transition, not the uniqueness rule.
	_, err = svc.ActivatePlan(context.Background(), plan.ID, plan.UserID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPlanServiceAuthorization(t *testing.T) {
	repo := newStubPlanRepo()
	svc := NewPlanService(repo)
	plan := testPlan(t)
	require.NoError(t, repo.Create(context.Background(), plan))

	_, err := svc.GetPlan(context.Background(), plan.ID, "intruder")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.GetPlan(context.Background(), "missing", "user-1")
	require.ErrorIs(t, err, ErrPlanNotFound)
}

func TestSkipWorkoutEmitsEvent(t *testing.T) {
	repo := newStubPlanRepo()
	svc := NewPlanService(repo)
	plan := testPlan(t)
	require.NoError(t, repo.Create(context.Background(), plan))

	next, err := svc.SkipWorkout(context.Background(), plan.ID, plan.UserID, "workout-2", "sick")
	require.NoError(t, err)

	workout, err := next.WorkoutByID("workout-2")
	require.NoError(t, err)
	require.Equal(t, WorkoutStatusSkipped, workout.Status)

	require.Len(t, repo.events, 1)
	require.Equal(t, events.TypeWorkoutSkipped, repo.events[0].Type)
	payload, ok := repo.events[0].Payload.(events.WorkoutSkipped)
	require.True(t, ok)
	require.Equal(t, "workout-2", payload.WorkoutID)
	require.Equal(t, "sick", payload.Reason)
}

func TestReconcileCompletedSession(t *testing.T) {
	repo := newStubPlanRepo()
	svc := NewPlanService(repo)

	plan := testPlan(t)
	plan.Status = PlanStatusActive
	plan.CurrentPosition = Position{Week: 1, Day: 1}
	require.NoError(t, repo.Create(context.Background(), plan))

	next, err := svc.ReconcileCompletedSession(context.Background(), plan.ID, plan.UserID, "workout-1")
	require.NoError(t, err)

	workout, err := next.WorkoutByID("workout-1")
	require.NoError(t, err)
	require.Equal(t, WorkoutStatusCompleted, workout.Status)
	require.Equal(t, Position{Week: 1, Day: 2}, next.CurrentPosition)
	require.Equal(t, PlanSummary{Total: 3, Completed: 1}, next.Summary())
}

func TestCreateSessionFromPlanTemplate(t *testing.T) {
	planRepo := newStubPlanRepo()
	sessionRepo := newStubSessionRepo()
	svc := NewSessionService(sessionRepo, planRepo)

	plan := testPlan(t)
	require.NoError(t, planRepo.Create(context.Background(), plan))

	session, err := svc.CreateSession(context.Background(), CreateSessionInput{
		OwnerID:           "user-1",
		OwnerName:         "Alex",
		PlanID:            plan.ID,
		WorkoutTemplateID: "workout-1",
		WorkoutType:       "strength",
	})
	require.NoError(t, err)
	require.Equal(t, SessionStatePreparing, session.State)
	require.Len(t, session.Activities, 1)
	require.Equal(t, "act-1", session.Activities[0].ID)
	require.Equal(t, plan.ID, session.PlanID)

	_, err = svc.CreateSession(context.Background(), CreateSessionInput{
		OwnerID:           "user-1",
		PlanID:            plan.ID,
		WorkoutTemplateID: "workout-99",
	})
	require.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestCompleteSessionFinalizesAndEmits(t *testing.T) {
	planRepo := newStubPlanRepo()
	sessionRepo := newStubSessionRepo()
	svc := NewSessionService(sessionRepo, planRepo)

	session, err := svc.CreateSession(context.Background(), CreateSessionInput{
		OwnerID:     "user-1",
		OwnerName:   "Alex",
		WorkoutType: "strength",
		Activities:  []Activity{simpleActivity("act-1")},
	})
	require.NoError(t, err)

	_, err = svc.StartSession(context.Background(), session.ID, "user-1")
	require.NoError(t, err)
	_, err = svc.RecordActivity(context.Background(), session.ID, "user-1", "act-1", 300)
	require.NoError(t, err)

	record, err := svc.CompleteSession(context.Background(), session.ID, "user-1")
	require.NoError(t, err)
	require.Equal(t, 1.0, record.CompletionPercent)

	require.Len(t, sessionRepo.finalized, 1)
	require.Empty(t, sessionRepo.sessions, "completed session leaves live storage")

	last := sessionRepo.events[len(sessionRepo.events)-1]
	require.Equal(t, events.TypeSessionCompleted, last.Type)
	payload, ok := last.Payload.(events.SessionCompleted)
	require.True(t, ok)
	require.Equal(t, session.ID, payload.SessionID)
	require.Equal(t, 1.0, payload.CompletionPercent)
}

func TestSessionServiceOwnership(t *testing.T) {
	planRepo := newStubPlanRepo()
	sessionRepo := newStubSessionRepo()
	svc := NewSessionService(sessionRepo, planRepo)

	session, err := svc.CreateSession(context.Background(), CreateSessionInput{
		OwnerID:    "user-1",
		Activities: []Activity{simpleActivity("act-1")},
	})
	require.NoError(t, err)

	_, err = svc.StartSession(context.Background(), session.ID, "intruder")
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.StartSession(context.Background(), "missing", "user-1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestJoinSessionSavesOnlyOnRosterChange(t *testing.T) {
	planRepo := newStubPlanRepo()
	sessionRepo := newStubSessionRepo()
	svc := NewSessionService(sessionRepo, planRepo)

	session, err := svc.CreateSession(context.Background(), CreateSessionInput{
		OwnerID:    "owner",
		OwnerName:  "Owner",
		Activities: []Activity{simpleActivity("act-1")},
		Config:     SessionConfig{IsMultiplayer: true, MaxParticipants: 4, IsPublic: true},
	})
	require.NoError(t, err)

	joined, err := svc.JoinSession(context.Background(), session.ID, "friend", "Friend")
	require.NoError(t, err)
	require.Len(t, joined.Participants, 2)
	require.Len(t, sessionRepo.saved, 1)
	require.Len(t, sessionRepo.events, 1)
	require.Equal(t, events.TypeParticipantJoined, sessionRepo.events[0].Type)

	// Idempotent re-join: no save, no event.
	again, err := svc.JoinSession(context.Background(), session.ID, "friend", "Friend")
	require.NoError(t, err)
	require.Len(t, again.Participants, 2)
	require.Len(t, sessionRepo.saved, 1)
	require.Len(t, sessionRepo.events, 1)
}
