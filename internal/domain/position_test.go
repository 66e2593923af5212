package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPositionValidatesRange(t *testing.T) {
	_, err := NewPosition(0, 3)
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewPosition(1, -1)
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewPosition(1, 7)
	require.ErrorIs(t, err, ErrValidation)

	pos, err := NewPosition(4, 6)
	require.NoError(t, err)
	require.Equal(t, Position{Week: 4, Day: 6}, pos)
}

func TestAdvanceSevenTimesMovesOneWeek(t *testing.T) {
	starts := []Position{
		{Week: 1, Day: 0},
		{Week: 1, Day: 3},
		{Week: 2, Day: 6},
		{Week: 12, Day: 1},
	}
	for _, start := range starts {
		pos := start
		for i := 0; i < 7; i++ {
			pos = pos.Advance()
		}
		require.Equal(t, Position{Week: start.Week + 1, Day: start.Day}, pos, "start %+v", start)
	}
}

func TestAdvanceWrapsAtSaturday(t *testing.T) {
	pos := Position{Week: 3, Day: 6}.Advance()
	require.Equal(t, Position{Week: 4, Day: 0}, pos)
}

func TestDaysUntil(t *testing.T) {
	a := Position{Week: 1, Day: 5}
	b := Position{Week: 2, Day: 1}

	require.Equal(t, 3, a.DaysUntil(b))
	require.Equal(t, -3, b.DaysUntil(a))
	require.Equal(t, 0, a.DaysUntil(a))
}

func TestOrdering(t *testing.T) {
	earlier := Position{Week: 2, Day: 6}
	later := Position{Week: 3, Day: 0}

	require.True(t, earlier.Before(later))
	require.True(t, later.After(earlier))
	require.False(t, earlier.After(earlier))
	require.False(t, earlier.Before(earlier))
}

func TestNextMondayAlwaysMovesForward(t *testing.T) {
	for day := 0; day <= 6; day++ {
		pos := Position{Week: 5, Day: day}
		next := pos.NextMonday()

		require.Equal(t, 1, next.Day, "day %d", day)
		require.True(t, next.After(pos), "day %d must move forward", day)

		dist := pos.DaysUntil(next)
		require.GreaterOrEqual(t, dist, 1, "day %d", day)
		require.LessOrEqual(t, dist, 7, "day %d", day)
	}
}

func TestNextMondayFromSundayStaysInWeek(t *testing.T) {
	next := Position{Week: 2, Day: 0}.NextMonday()
	if next != (Position{Week: 2, Day: 1}) {
		t.Fatalf("expected (2,1) got %+v", next)
	}
}

func TestNextMondayFromMondayJumpsAWeek(t *testing.T) {
	next := Position{Week: 2, Day: 1}.NextMonday()
	if next != (Position{Week: 3, Day: 1}) {
		t.Fatalf("expected (3,1) got %+v", next)
	}
}

func TestValidationErrorIsTyped(t *testing.T) {
	_, err := NewPosition(1, 9)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
