package domain

import "fmt"

const daysPerWeek = 7

// Position is a (week, day) pointer into a multi-week plan. Week starts at 1,
// day runs 0 (Sunday) through 6 (Saturday). Positions are immutable values;
// navigation always returns a new Position.
type Position struct {
	Week int `json:"week"`
	Day  int `json:"day"`
}

// NewPosition validates the (week, day) pair. Out-of-range input is a
// construction-time failure; navigation never produces an invalid position.
func NewPosition(week, day int) (Position, error) {
	if week < 1 {
		return Position{}, fmt.Errorf("%w: week %d must be >= 1", ErrValidation, week)
	}
	if day < 0 || day > 6 {
		return Position{}, fmt.Errorf("%w: day %d must be in [0,6]", ErrValidation, day)
	}
	return Position{Week: week, Day: day}, nil
}

// Advance moves one day forward, wrapping to day 0 of the next week after
// Saturday.
func (p Position) Advance() Position {
	if p.Day == daysPerWeek-1 {
		return Position{Week: p.Week + 1, Day: 0}
	}
	return Position{Week: p.Week, Day: p.Day + 1}
}

// DaysUntil returns the signed day distance from p to other. Negative when
// other precedes p.
func (p Position) DaysUntil(other Position) int {
	return other.ordinal() - p.ordinal()
}

// Before reports whether p precedes other in (week, day) order.
func (p Position) Before(other Position) bool {
	return p.ordinal() < other.ordinal()
}

// After reports whether p follows other in (week, day) order.
func (p Position) After(other Position) bool {
	return p.ordinal() > other.ordinal()
}

// NextMonday returns the smallest position with day 1 strictly after p. The
// result is always 1 to 7 days ahead: a Sunday pointer lands on the same
// week's Monday, everything else on the next week's.
func (p Position) NextMonday() Position {
	if p.Day < 1 {
		return Position{Week: p.Week, Day: 1}
	}
	return Position{Week: p.Week + 1, Day: 1}
}

func (p Position) ordinal() int {
	return (p.Week-1)*daysPerWeek + p.Day
}
