package consumer

import (
	"context"
	"encoding/json"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/coaching/internal/domain"
	"example.com/coaching/internal/events"
)

type reconcilePlanRepo struct {
	plans map[string]domain.FitnessPlan
}

func (r *reconcilePlanRepo) Get(_ context.Context, planID string) (*domain.FitnessPlan, error) {
	plan, ok := r.plans[planID]
	if !ok {
		return nil, nil
	}
	plan.Reindex()
	return &plan, nil
}

func (r *reconcilePlanRepo) FindActiveByUser(_ context.Context, _ string) (*domain.FitnessPlan, error) {
	return nil, nil
}

func (r *reconcilePlanRepo) Create(_ context.Context, plan domain.FitnessPlan) error {
	r.plans[plan.ID] = plan
	return nil
}

func (r *reconcilePlanRepo) Save(_ context.Context, plan domain.FitnessPlan, _ ...events.Envelope) error {
	r.plans[plan.ID] = plan
	return nil
}

func reconcileFixture(t *testing.T) *reconcilePlanRepo {
	t.Helper()

	activity := domain.Activity{
		ID: "act-1",
		Exercises: &domain.ExerciseStructure{
			Rounds:    1,
			Exercises: []domain.Exercise{{Name: "squat", Sets: 3, Reps: domain.RepTarget{Count: 8}}},
		},
	}
	workout, err := domain.NewWorkoutTemplate("workout-1", 1, 1, "Upper A", []domain.Activity{activity})
	require.NoError(t, err)
	week, err := domain.NewWeeklySchedule(1, "plan-1", []domain.WorkoutTemplate{workout})
	require.NoError(t, err)
	plan, err := domain.NewFitnessPlan("plan-1", "user-1", "Block", []domain.WeeklySchedule{week}, time.Now().UTC())
	require.NoError(t, err)
	plan.Status = domain.PlanStatusActive
	plan.CurrentPosition = domain.Position{Week: 1, Day: 1}

	return &reconcilePlanRepo{plans: map[string]domain.FitnessPlan{plan.ID: plan}}
}

func completedMessage(t *testing.T, payload events.SessionCompleted) Message {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return Message{
		Topic:     "coaching.sessions",
		EventType: events.TypeSessionCompleted,
		Payload:   body,
	}
}

func TestReconcileHandlerCompletesWorkoutAndAdvances(t *testing.T) {
	repo := reconcileFixture(t)
	handler := NewReconcileHandler(domain.NewPlanService(repo), log.New(testWriter{t}, "", 0))

	msg := completedMessage(t, events.SessionCompleted{
		SessionID:         "sess-1",
		UserID:            "user-1",
		PlanID:            "plan-1",
		WorkoutTemplateID: "workout-1",
		CompletedAt:       time.Now().UTC(),
	})
	require.NoError(t, handler.Handle(context.Background(), msg))

	plan := repo.plans["plan-1"]
	plan.Reindex()
	workout, err := plan.WorkoutByID("workout-1")
	require.NoError(t, err)
	require.Equal(t, domain.WorkoutStatusCompleted, workout.Status)
	require.Equal(t, domain.Position{Week: 1, Day: 2}, plan.CurrentPosition)
}

func TestReconcileHandlerDropsUnreconcilableEvents(t *testing.T) {
	repo := reconcileFixture(t)
	handler := NewReconcileHandler(domain.NewPlanService(repo), log.New(testWriter{t}, "", 0))

	// Ad hoc session with no plan linkage.
	msg := completedMessage(t, events.SessionCompleted{SessionID: "sess-2", UserID: "user-1"})
	require.NoError(t, handler.Handle(context.Background(), msg))

	// Plan deleted since the event was published.
	msg = completedMessage(t, events.SessionCompleted{
		SessionID: "sess-3", UserID: "user-1", PlanID: "gone", WorkoutTemplateID: "workout-1",
	})
	require.NoError(t, handler.Handle(context.Background(), msg))

	// Unrelated event types are ignored.
	require.NoError(t, handler.Handle(context.Background(), Message{EventType: events.TypePlanActivated}))
}
