// Package postgres provides pgx-backed persistence for plans, sessions, and
// the transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/coaching/internal/domain"
	"example.com/coaching/internal/events"
)

// PlanRepository persists fitness plans with optimistic concurrency.
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository constructs a PlanRepository.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// Get retrieves a plan by id, or nil when absent.
func (r *PlanRepository) Get(ctx context.Context, planID string) (*domain.FitnessPlan, error) {
	const query = `SELECT doc, revision FROM plans WHERE plan_id=$1`
	return scanPlan(r.pool.QueryRow(ctx, query, planID))
}

// FindActiveByUser returns the user's single active plan, or nil.
func (r *PlanRepository) FindActiveByUser(ctx context.Context, userID string) (*domain.FitnessPlan, error) {
	const query = `SELECT doc, revision FROM plans WHERE user_id=$1 AND status=$2`
	return scanPlan(r.pool.QueryRow(ctx, query, userID, domain.PlanStatusActive))
}

func scanPlan(row pgx.Row) (*domain.FitnessPlan, error) {
	var doc []byte
	var revision int64
	if err := row.Scan(&doc, &revision); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var plan domain.FitnessPlan
	if err := json.Unmarshal(doc, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	plan.Revision = revision
	plan.Reindex()
	return &plan, nil
}

// Create inserts a new plan at revision 1.
func (r *PlanRepository) Create(ctx context.Context, plan domain.FitnessPlan) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO plans (plan_id, user_id, status, position_week, position_day, doc, revision, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,1,$7,$8)`

	_, err = r.pool.Exec(ctx, stmt,
		plan.ID, plan.UserID, plan.Status,
		plan.CurrentPosition.Week, plan.CurrentPosition.Day,
		doc, plan.CreatedAt, plan.UpdatedAt,
	)
	return err
}

// Save replaces the stored plan and records outbox events in one transaction.
// The revision check makes lost updates impossible: a stale writer gets
// ErrVersionConflict and must reload.
func (r *PlanRepository) Save(ctx context.Context, plan domain.FitnessPlan, evts ...events.Envelope) error {
	doc, err := json.Marshal(plan)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `UPDATE plans
        SET status=$1, position_week=$2, position_day=$3, doc=$4, revision=revision+1, updated_at=$5
        WHERE plan_id=$6 AND revision=$7`

	tag, err := tx.Exec(ctx, stmt,
		plan.Status, plan.CurrentPosition.Week, plan.CurrentPosition.Day,
		doc, plan.UpdatedAt, plan.ID, plan.Revision,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: plan %s at revision %d", domain.ErrVersionConflict, plan.ID, plan.Revision)
	}

	if err := insertOutbox(ctx, tx, evts); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SessionRepository persists live workout sessions and completed records.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Get retrieves a live session by id, or nil when absent.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.WorkoutSession, error) {
	const query = `SELECT doc, revision FROM sessions WHERE session_id=$1`

	var doc []byte
	var revision int64
	if err := r.pool.QueryRow(ctx, query, sessionID).Scan(&doc, &revision); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var session domain.WorkoutSession
	if err := json.Unmarshal(doc, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	session.Revision = revision
	return &session, nil
}

// Create inserts a new session at revision 1.
func (r *SessionRepository) Create(ctx context.Context, session domain.WorkoutSession) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO sessions (session_id, owner_id, state, doc, revision, created_at, updated_at)
        VALUES ($1,$2,$3,$4,1,$5,$6)`

	_, err = r.pool.Exec(ctx, stmt,
		session.ID, session.OwnerID, session.State,
		doc, session.CreatedAt, session.UpdatedAt,
	)
	return err
}

// Save replaces the stored session and records outbox events in one
// transaction, guarded by the revision check. Join races on the same roster
// resolve here: one writer wins, the other reloads.
func (r *SessionRepository) Save(ctx context.Context, session domain.WorkoutSession, evts ...events.Envelope) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const stmt = `UPDATE sessions
        SET owner_id=$1, state=$2, doc=$3, revision=revision+1, updated_at=$4
        WHERE session_id=$5 AND revision=$6`

	tag, err := tx.Exec(ctx, stmt,
		session.OwnerID, session.State, doc, session.UpdatedAt, session.ID, session.Revision,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s at revision %d", domain.ErrVersionConflict, session.ID, session.Revision)
	}

	if err := insertOutbox(ctx, tx, evts); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Finalize writes the completed-workout record, removes the live session, and
// records the completion events, all in one transaction.
func (r *SessionRepository) Finalize(ctx context.Context, session domain.WorkoutSession, record domain.CompletedWorkout, evts ...events.Envelope) error {
	doc, err := json.Marshal(record)
	if err != nil {
		return err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertRecord = `INSERT INTO completed_workouts (record_id, session_id, user_id, plan_id, workout_template_id, doc, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	if _, err := tx.Exec(ctx, insertRecord,
		record.ID, record.SessionID, record.UserID,
		nullIfEmpty(record.PlanID), nullIfEmpty(record.WorkoutTemplateID),
		doc, record.CompletedAt,
	); err != nil {
		return err
	}

	const deleteSession = `DELETE FROM sessions WHERE session_id=$1 AND revision=$2`
	tag, err := tx.Exec(ctx, deleteSession, session.ID, session.Revision)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: session %s at revision %d", domain.ErrVersionConflict, session.ID, session.Revision)
	}

	if err := insertOutbox(ctx, tx, evts); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListCompletedByUser pages through a user's workout history, newest first.
func (r *SessionRepository) ListCompletedByUser(ctx context.Context, userID string, cursor *domain.Cursor, limit int) ([]domain.CompletedWorkout, *domain.Cursor, error) {
	args := []interface{}{userID, limit}
	query := `SELECT doc FROM completed_workouts WHERE user_id=$1`

	if cursor != nil {
		query += ` AND (completed_at, record_id) < ($3, $4)`
		args = append(args, cursor.CompletedAt, cursor.ID)
	}

	query += ` ORDER BY completed_at DESC, record_id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	records := make([]domain.CompletedWorkout, 0, limit)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, nil, err
		}
		var record domain.CompletedWorkout
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, nil, fmt.Errorf("decode completed workout: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.Cursor
	if len(records) == limit {
		last := records[len(records)-1]
		next = &domain.Cursor{CompletedAt: last.CompletedAt, ID: last.ID}
	}
	return records, next, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, evts []events.Envelope) error {
	for _, evt := range evts {
		meta, ok := eventCatalog[evt.Type]
		if !ok {
			return fmt.Errorf("unknown event type: %s", evt.Type)
		}

		body, err := json.Marshal(evt.Payload)
		if err != nil {
			return err
		}
		dedupeKey := fmt.Sprintf("%s:%s", evt.AggregateID, evt.Type)

		const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

		if _, err := tx.Exec(ctx, stmt,
			evt.AggregateType, evt.AggregateID, evt.Type,
			meta.Topic, meta.SchemaSubject, evt.PartitionKey,
			body, dedupeKey,
		); err != nil {
			return err
		}
	}
	return nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]EventMetadata{
	events.TypePlanActivated: {
		Topic:         "coaching.plans",
		SchemaSubject: "coaching.plans-plan.activated-value",
	},
	events.TypeWorkoutSkipped: {
		Topic:         "coaching.plans",
		SchemaSubject: "coaching.plans-plan.workout_skipped-value",
	},
	events.TypeParticipantJoined: {
		Topic:         "coaching.sessions",
		SchemaSubject: "coaching.sessions-session.participant_joined-value",
	},
	events.TypeSessionCompleted: {
		Topic:         "coaching.sessions",
		SchemaSubject: "coaching.sessions-session.completed-value",
	},
}
