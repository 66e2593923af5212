package domain

import (
	"fmt"
	"time"
)

// PlanStatus is the lifecycle state of a fitness plan.
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusActive    PlanStatus = "active"
	PlanStatusPaused    PlanStatus = "paused"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusAbandoned PlanStatus = "abandoned"
)

// planTransitions is the full legal-edge table. Anything absent is an
// ErrInvalidTransition.
var planTransitions = map[PlanStatus][]PlanStatus{
	PlanStatusDraft:  {PlanStatusActive},
	PlanStatusActive: {PlanStatusPaused, PlanStatusCompleted, PlanStatusAbandoned},
	PlanStatusPaused: {PlanStatusActive},
}

func (s PlanStatus) canTransition(to PlanStatus) bool {
	for _, next := range planTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Progression captures the plan's loading strategy metadata. The engine treats
// it as opaque configuration; no progression math happens here.
type Progression struct {
	Strategy      string  `json:"strategy"`
	DeloadWeeks   []int   `json:"deload_weeks,omitempty"`
	MinIncreasePc float64 `json:"min_increase_pct,omitempty"`
	MaxIncreasePc float64 `json:"max_increase_pct,omitempty"`
}

// PlanSummary is the derived completion count for a plan.
type PlanSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

type workoutRef struct {
	week    int
	workout int
}

// FitnessPlan is the aggregate root for a multi-week training plan. All
// commands are pure: they take the receiver by value and return a new plan or
// a typed failure, with copy-on-write at week and workout granularity.
type FitnessPlan struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	Title           string           `json:"title"`
	Goals           []string         `json:"goals,omitempty"`
	Progression     Progression      `json:"progression"`
	Constraints     []string         `json:"constraints,omitempty"`
	Weeks           []WeeklySchedule `json:"weeks"`
	Status          PlanStatus       `json:"status"`
	CurrentPosition Position         `json:"current_position"`
	StartDate       *time.Time       `json:"start_date,omitempty"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	// Revision backs the repository's optimistic-concurrency check. Not part
	// of the aggregate's own invariants.
	Revision int64 `json:"-"`

	// workout id -> location, rebuilt on load, never persisted.
	index map[string]workoutRef
}

// NewFitnessPlan builds a draft plan and its workout index.
func NewFitnessPlan(id, userID, title string, weeks []WeeklySchedule, now time.Time) (FitnessPlan, error) {
	if id == "" || userID == "" {
		return FitnessPlan{}, fmt.Errorf("%w: plan id and user id are required", ErrValidation)
	}
	if len(weeks) == 0 {
		return FitnessPlan{}, fmt.Errorf("%w: plan needs at least one week", ErrValidation)
	}
	for i, week := range weeks {
		if week.WeekNumber != i+1 {
			return FitnessPlan{}, fmt.Errorf("%w: week at index %d numbered %d", ErrValidation, i, week.WeekNumber)
		}
		if len(week.Workouts) == 0 {
			return FitnessPlan{}, fmt.Errorf("%w: week %d has no workouts", ErrValidation, week.WeekNumber)
		}
	}
	plan := FitnessPlan{
		ID:              id,
		UserID:          userID,
		Title:           title,
		Weeks:           weeks,
		Status:          PlanStatusDraft,
		CurrentPosition: Position{Week: 1, Day: 0},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	plan.Reindex()
	return plan, nil
}

// Reindex rebuilds the workout-id lookup table. Repositories call this after
// loading a plan; commands that do not move workouts share the existing index.
func (p *FitnessPlan) Reindex() {
	index := make(map[string]workoutRef)
	for wi, week := range p.Weeks {
		for ti, workout := range week.Workouts {
			index[workout.ID] = workoutRef{week: wi, workout: ti}
		}
	}
	p.index = index
}

// Activate moves the plan to active. Legal from draft (sets the start date)
// and from paused (keeps it).
func (p FitnessPlan) Activate(now time.Time) (FitnessPlan, error) {
	if !p.Status.canTransition(PlanStatusActive) {
		return p, fmt.Errorf("%w: %s -> active", ErrInvalidTransition, p.Status)
	}
	p.Status = PlanStatusActive
	if p.StartDate == nil {
		start := now
		p.StartDate = &start
	}
	p.UpdatedAt = now
	return p, nil
}

// Pause suspends an active plan.
func (p FitnessPlan) Pause(now time.Time) (FitnessPlan, error) {
	return p.transitionTo(PlanStatusPaused, now)
}

// Complete finishes the plan and stamps the end date.
func (p FitnessPlan) Complete(now time.Time) (FitnessPlan, error) {
	plan, err := p.transitionTo(PlanStatusCompleted, now)
	if err != nil {
		return p, err
	}
	end := now
	plan.EndDate = &end
	return plan, nil
}

// Abandon terminates an active plan.
func (p FitnessPlan) Abandon(now time.Time) (FitnessPlan, error) {
	return p.transitionTo(PlanStatusAbandoned, now)
}

func (p FitnessPlan) transitionTo(status PlanStatus, now time.Time) (FitnessPlan, error) {
	if !p.Status.canTransition(status) {
		return p, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, status)
	}
	p.Status = status
	p.UpdatedAt = now
	return p, nil
}

// SkipWorkout marks one workout skipped. Only the containing week and workout
// are copied; every other week is shared with the receiver. Skipping an
// already-completed workout is a legal coach override.
func (p FitnessPlan) SkipWorkout(actorID, workoutID, reason string, now time.Time) (FitnessPlan, error) {
	return p.setWorkoutStatus(actorID, workoutID, WorkoutStatusSkipped, reason, now)
}

// CompleteWorkout marks one workout completed. Used by the session
// reconciler once a live session finishes.
func (p FitnessPlan) CompleteWorkout(actorID, workoutID string, now time.Time) (FitnessPlan, error) {
	return p.setWorkoutStatus(actorID, workoutID, WorkoutStatusCompleted, "", now)
}

func (p FitnessPlan) setWorkoutStatus(actorID, workoutID string, status WorkoutStatus, note string, now time.Time) (FitnessPlan, error) {
	if actorID != p.UserID {
		return p, fmt.Errorf("%w: user %s does not own plan %s", ErrUnauthorized, actorID, p.ID)
	}
	ref, ok := p.index[workoutID]
	if !ok {
		return p, fmt.Errorf("%w: %s", ErrWorkoutNotFound, workoutID)
	}

	weeks := make([]WeeklySchedule, len(p.Weeks))
	copy(weeks, p.Weeks)
	week := weeks[ref.week]
	workouts := make([]WorkoutTemplate, len(week.Workouts))
	copy(workouts, week.Workouts)
	workouts[ref.workout] = workouts[ref.workout].WithStatus(status, note)
	week.Workouts = workouts
	weeks[ref.week] = week

	p.Weeks = weeks
	p.UpdatedAt = now
	// Workout locations are unchanged, the index stays valid as-is.
	return p, nil
}

// WorkoutByID locates a workout through the side index.
func (p FitnessPlan) WorkoutByID(workoutID string) (*WorkoutTemplate, error) {
	ref, ok := p.index[workoutID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkoutNotFound, workoutID)
	}
	workout := p.Weeks[ref.week].Workouts[ref.workout]
	return &workout, nil
}

// CurrentWeek resolves the position's week, or nil when the pointer has run
// past the schedule.
func (p FitnessPlan) CurrentWeek() *WeeklySchedule {
	if p.CurrentPosition.Week < 1 || p.CurrentPosition.Week > len(p.Weeks) {
		return nil
	}
	week := p.Weeks[p.CurrentPosition.Week-1]
	return &week
}

// CurrentWorkout resolves the workout scheduled on the exact current day. A
// nil result is a rest day, not an error. When several workouts share the
// day, the first scheduled one wins.
func (p FitnessPlan) CurrentWorkout() *WorkoutTemplate {
	week := p.CurrentWeek()
	if week == nil {
		return nil
	}
	for _, workout := range week.Workouts {
		if workout.DayOfWeek == p.CurrentPosition.Day {
			w := workout
			return &w
		}
	}
	return nil
}

// Summary counts workouts by completion across all weeks. Completed never
// exceeds total.
func (p FitnessPlan) Summary() PlanSummary {
	summary := PlanSummary{}
	for _, week := range p.Weeks {
		for _, workout := range week.Workouts {
			summary.Total++
			if workout.Status == WorkoutStatusCompleted {
				summary.Completed++
			}
		}
	}
	return summary
}

// AdvancePosition moves the day pointer forward. Once the pointer would leave
// the final week, an active plan completes and the pointer stays on the last
// day.
func (p FitnessPlan) AdvancePosition(now time.Time) (FitnessPlan, error) {
	next := p.CurrentPosition.Advance()
	if next.Week > len(p.Weeks) {
		if p.Status == PlanStatusActive {
			return p.Complete(now)
		}
		return p, nil
	}
	p.CurrentPosition = next
	p.UpdatedAt = now
	return p, nil
}
