package domain

import (
	"fmt"
	"time"
)

// WorkoutStatus tracks the scheduling state of a planned workout.
type WorkoutStatus string

const (
	WorkoutStatusScheduled WorkoutStatus = "scheduled"
	WorkoutStatusCompleted WorkoutStatus = "completed"
	WorkoutStatusSkipped   WorkoutStatus = "skipped"
)

// WorkoutTemplate is the planned content and status of one scheduled workout.
// It is immutable per version: status changes go through WithStatus, which
// returns a new value.
type WorkoutTemplate struct {
	ID         string        `json:"id"`
	WeekNumber int           `json:"week_number"`
	DayOfWeek  int           `json:"day_of_week"`
	Title      string        `json:"title"`
	Type       string        `json:"type"`
	Category   string        `json:"category"`
	Goals      []string      `json:"goals,omitempty"`
	Activities []Activity    `json:"activities"`
	Status     WorkoutStatus `json:"status"`
	StatusNote string        `json:"status_note,omitempty"`
}

// NewWorkoutTemplate builds a scheduled workout, validating day range and the
// at-least-one-activity invariant.
func NewWorkoutTemplate(id string, weekNumber, dayOfWeek int, title string, activities []Activity) (WorkoutTemplate, error) {
	if id == "" {
		return WorkoutTemplate{}, fmt.Errorf("%w: workout id is required", ErrValidation)
	}
	if weekNumber < 1 {
		return WorkoutTemplate{}, fmt.Errorf("%w: week number %d must be >= 1", ErrValidation, weekNumber)
	}
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return WorkoutTemplate{}, fmt.Errorf("%w: day of week %d must be in [0,6]", ErrValidation, dayOfWeek)
	}
	if len(activities) == 0 {
		return WorkoutTemplate{}, fmt.Errorf("%w: workout %s needs at least one activity", ErrValidation, id)
	}
	for _, act := range activities {
		if err := act.validate(); err != nil {
			return WorkoutTemplate{}, err
		}
	}
	return WorkoutTemplate{
		ID:         id,
		WeekNumber: weekNumber,
		DayOfWeek:  dayOfWeek,
		Title:      title,
		Activities: activities,
		Status:     WorkoutStatusScheduled,
	}, nil
}

// WithStatus returns a copy with the status (and optional note) replaced.
// Overwriting a completed workout is allowed; a coach override is not an
// error.
func (w WorkoutTemplate) WithStatus(status WorkoutStatus, note string) WorkoutTemplate {
	w.Status = status
	w.StatusNote = note
	return w
}

// TotalDuration sums the estimated duration of all activities, in seconds.
func (w WorkoutTemplate) TotalDuration() int {
	total := 0
	for _, act := range w.Activities {
		total += act.TotalDuration()
	}
	return total
}

// WeeklySchedule groups the workouts of one plan week.
type WeeklySchedule struct {
	WeekNumber     int               `json:"week_number"`
	PlanID         string            `json:"plan_id"`
	StartDate      time.Time         `json:"start_date"`
	EndDate        time.Time         `json:"end_date"`
	Focus          string            `json:"focus,omitempty"`
	TargetWorkouts int               `json:"target_workouts"`
	Workouts       []WorkoutTemplate `json:"workouts"`
}

// NewWeeklySchedule validates the week and checks every workout's week number
// against the parent. Multiple workouts on the same day are allowed.
func NewWeeklySchedule(weekNumber int, planID string, workouts []WorkoutTemplate) (WeeklySchedule, error) {
	if weekNumber < 1 {
		return WeeklySchedule{}, fmt.Errorf("%w: week number %d must be >= 1", ErrValidation, weekNumber)
	}
	if len(workouts) == 0 {
		return WeeklySchedule{}, fmt.Errorf("%w: week %d needs at least one workout", ErrValidation, weekNumber)
	}
	for _, w := range workouts {
		if w.WeekNumber != weekNumber {
			return WeeklySchedule{}, fmt.Errorf("%w: workout %s belongs to week %d, not %d",
				ErrValidation, w.ID, w.WeekNumber, weekNumber)
		}
	}
	return WeeklySchedule{
		WeekNumber:     weekNumber,
		PlanID:         planID,
		TargetWorkouts: len(workouts),
		Workouts:       workouts,
	}, nil
}
