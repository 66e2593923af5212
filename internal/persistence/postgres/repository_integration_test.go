//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/coaching/internal/domain"
	"example.com/coaching/internal/events"
)

func setupPool(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("coaching"),
		postgrescontainer.WithUsername("coaching"),
		postgrescontainer.WithPassword("coaching"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func integrationPlan(t *testing.T) domain.FitnessPlan {
	t.Helper()

	activity := domain.Activity{
		ID: "act-1",
		Exercises: &domain.ExerciseStructure{
			Rounds:    1,
			Exercises: []domain.Exercise{{Name: "squat", Sets: 3, Reps: domain.RepTarget{Count: 8}, RestSec: 60}},
		},
	}
	workout, err := domain.NewWorkoutTemplate("workout-1", 1, 1, "Upper A", []domain.Activity{activity})
	require.NoError(t, err)
	week, err := domain.NewWeeklySchedule(1, "", []domain.WorkoutTemplate{workout})
	require.NoError(t, err)
	plan, err := domain.NewFitnessPlan(uuid.NewString(), uuid.NewString(), "Strength block", []domain.WeeklySchedule{week}, time.Now().UTC())
	require.NoError(t, err)
	return plan
}

func TestPlanRoundTripAndRevisionConflict(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)
	repo := NewPlanRepository(pool)

	plan := integrationPlan(t)
	require.NoError(t, repo.Create(ctx, plan))

	stored, err := repo.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, int64(1), stored.Revision)
	require.Equal(t, domain.PlanStatusDraft, stored.Status)

	workout, err := stored.WorkoutByID("workout-1")
	require.NoError(t, err)
	require.Equal(t, domain.WorkoutStatusScheduled, workout.Status)

	activated, err := stored.Activate(time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, activated, events.Envelope{
		Type:          events.TypePlanActivated,
		AggregateType: "plan",
		AggregateID:   activated.ID,
		PartitionKey:  activated.UserID,
		Payload: events.PlanActivated{
			PlanID:      activated.ID,
			UserID:      activated.UserID,
			StartDate:   *activated.StartDate,
			ActivatedAt: time.Now().UTC(),
		},
	}))

	active, err := repo.FindActiveByUser(ctx, plan.UserID)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, plan.ID, active.ID)
	require.Equal(t, int64(2), active.Revision)

	// A writer still holding revision 1 must fail.
	stale, err := activated.Pause(time.Now().UTC())
	require.NoError(t, err)
	err = repo.Save(ctx, stale)
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	var outboxCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE event_type=$1`, events.TypePlanActivated).Scan(&outboxCount))
	require.Equal(t, 1, outboxCount)
}

func TestSessionFinalizeMovesRecordAndWritesOutbox(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(t, ctx)
	repo := NewSessionRepository(pool)

	now := time.Now().UTC()
	session, err := domain.NewWorkoutSession(uuid.NewString(), uuid.NewString(), "Alex", "strength",
		[]domain.Activity{{
			ID: "act-1",
			Exercises: &domain.ExerciseStructure{
				Rounds:    1,
				Exercises: []domain.Exercise{{Name: "squat", Sets: 3, Reps: domain.RepTarget{Count: 8}}},
			},
		}},
		domain.SessionConfig{}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, session))

	stored, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	started, err := stored.Start(now)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, started))

	reloaded, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	completed, err := reloaded.Complete(now.Add(30 * time.Minute))
	require.NoError(t, err)
	record, err := completed.ToCompletedWorkout(uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, repo.Finalize(ctx, completed, record, events.Envelope{
		Type:          events.TypeSessionCompleted,
		AggregateType: "session",
		AggregateID:   completed.ID,
		PartitionKey:  completed.OwnerID,
		Payload: events.SessionCompleted{
			SessionID:         completed.ID,
			UserID:            completed.OwnerID,
			ActiveDurationSec: record.ActiveDurationSec,
			CompletionPercent: record.CompletionPercent,
			CompletedAt:       *completed.CompletedAt,
		},
	}))

	gone, err := repo.Get(ctx, session.ID)
	require.NoError(t, err)
	require.Nil(t, gone, "finalized session leaves live storage")

	history, next, err := repo.ListCompletedByUser(ctx, session.OwnerID, nil, 10)
	require.NoError(t, err)
	require.Nil(t, next)
	require.Len(t, history, 1)
	require.Equal(t, record.ID, history[0].ID)
	require.Equal(t, 30*60, history[0].ActiveDurationSec)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
