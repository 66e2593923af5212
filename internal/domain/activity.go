package domain

import "fmt"

// Intensity is a 5-point ordinal scale for interval efforts.
type Intensity string

const (
	IntensityEasy     Intensity = "easy"
	IntensityModerate Intensity = "moderate"
	IntensityHard     Intensity = "hard"
	IntensityVeryHard Intensity = "very_hard"
	IntensityMax      Intensity = "max"
)

var intensityOrdinals = map[Intensity]int{
	IntensityEasy:     1,
	IntensityModerate: 2,
	IntensityHard:     3,
	IntensityVeryHard: 4,
	IntensityMax:      5,
}

// Ordinal maps the intensity onto 1..5, or 0 for unknown values.
func (i Intensity) Ordinal() int {
	return intensityOrdinals[i]
}

// Interval is one timed effort inside an interval-structured activity.
type Interval struct {
	Name        string    `json:"name"`
	DurationSec int       `json:"duration_sec"`
	RestSec     int       `json:"rest_sec"`
	Intensity   Intensity `json:"intensity"`
}

// IntervalStructure describes an activity as rounds of timed intervals.
type IntervalStructure struct {
	Rounds    int        `json:"rounds"`
	Intervals []Interval `json:"intervals"`
}

// RepTarget is either a numeric rep count or an open-ended "to failure" target.
type RepTarget struct {
	Count     int  `json:"count,omitempty"`
	ToFailure bool `json:"to_failure,omitempty"`
}

// Exercise is one movement inside an exercise-structured activity. A timed
// exercise sets DurationSec per set; otherwise Reps drives the estimate.
type Exercise struct {
	Name        string    `json:"name"`
	Sets        int       `json:"sets"`
	Reps        RepTarget `json:"reps"`
	DurationSec int       `json:"duration_sec,omitempty"`
	RestSec     int       `json:"rest_sec"`
	WeightKg    float64   `json:"weight_kg,omitempty"`
}

// ExerciseStructure describes an activity as rounds of sets-and-reps work.
type ExerciseStructure struct {
	Rounds    int        `json:"rounds"`
	Exercises []Exercise `json:"exercises"`
}

// Activity is one block of a workout. Exactly one of Intervals or Exercises
// is set; the two structures are mutually exclusive.
type Activity struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Intervals *IntervalStructure `json:"intervals,omitempty"`
	Exercises *ExerciseStructure `json:"exercises,omitempty"`
}

func (a Activity) validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: activity id is required", ErrValidation)
	}
	if (a.Intervals == nil) == (a.Exercises == nil) {
		return fmt.Errorf("%w: activity %s must have exactly one of intervals or exercises", ErrValidation, a.ID)
	}
	return nil
}
