package domain

// Structural metrics derived from activity definitions. These are pure
// estimation queries for presentation and pacing; nothing here feeds
// correctness-critical accounting.

const (
	secondsPerRep      = 2
	defaultFailureReps = 10
)

// TotalDuration estimates the activity length in seconds.
//
// Interval structures: rounds x sum(duration + rest) over intervals.
// Exercise structures: rounds x sum(work + rest x (sets-1)) over exercises,
// where work is duration x sets for timed exercises and otherwise
// 2 s/rep x reps x sets, with "to failure" targets estimated at 10 reps.
func (a Activity) TotalDuration() int {
	switch {
	case a.Intervals != nil:
		perRound := 0
		for _, iv := range a.Intervals.Intervals {
			perRound += iv.DurationSec + iv.RestSec
		}
		return a.Intervals.Rounds * perRound
	case a.Exercises != nil:
		perRound := 0
		for _, ex := range a.Exercises.Exercises {
			work := exerciseWorkSeconds(ex)
			rest := 0
			if ex.Sets > 1 {
				rest = ex.RestSec * (ex.Sets - 1)
			}
			perRound += work + rest
		}
		return a.Exercises.Rounds * perRound
	default:
		return 0
	}
}

func exerciseWorkSeconds(ex Exercise) int {
	if ex.DurationSec > 0 {
		return ex.DurationSec * ex.Sets
	}
	reps := ex.Reps.Count
	if ex.Reps.ToFailure {
		reps = defaultFailureReps
	}
	return secondsPerRep * reps * ex.Sets
}

// TotalSets counts planned sets: one per interval per round, or the declared
// set counts for exercise structures.
func (a Activity) TotalSets() int {
	switch {
	case a.Intervals != nil:
		return a.Intervals.Rounds * len(a.Intervals.Intervals)
	case a.Exercises != nil:
		sets := 0
		for _, ex := range a.Exercises.Exercises {
			sets += ex.Sets
		}
		return a.Exercises.Rounds * sets
	default:
		return 0
	}
}

// AverageIntensity returns the mean ordinal intensity (1..5) of an interval
// structure. The second result is false for exercise structures or when no
// interval carries a known intensity.
func (a Activity) AverageIntensity() (float64, bool) {
	if a.Intervals == nil {
		return 0, false
	}
	total, counted := 0, 0
	for _, iv := range a.Intervals.Intervals {
		if ord := iv.Intensity.Ordinal(); ord > 0 {
			total += ord
			counted++
		}
	}
	if counted == 0 {
		return 0, false
	}
	return float64(total) / float64(counted), true
}

// RequiresEquipment reports whether any exercise specifies a weight.
func (a Activity) RequiresEquipment() bool {
	if a.Exercises == nil {
		return false
	}
	for _, ex := range a.Exercises.Exercises {
		if ex.WeightKg > 0 {
			return true
		}
	}
	return false
}
