package domain

import "errors"

var (
	// ErrValidation indicates malformed input to a constructor. It is only
	// produced when building values from untrusted input, never by a
	// transition on an already-valid aggregate.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition indicates a plan status change that is not legal
	// from the current status.
	ErrInvalidTransition = errors.New("invalid plan status transition")

	// ErrInvalidSessionState indicates a session lifecycle change that is not
	// legal from the current state.
	ErrInvalidSessionState = errors.New("invalid session state transition")

	// ErrWorkoutNotFound is returned when a workout id is absent from the plan.
	ErrWorkoutNotFound = errors.New("workout not found in plan")

	// ErrPlanNotFound is returned when a plan cannot be located.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrSessionNotFound is returned when a session cannot be located.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnauthorized is returned when the acting user does not own the aggregate.
	ErrUnauthorized = errors.New("caller is not the owner")

	// ErrNotMultiplayer rejects joins on single-player sessions.
	ErrNotMultiplayer = errors.New("session is not multiplayer")

	// ErrSessionPrivate rejects non-owner joins on private sessions.
	ErrSessionPrivate = errors.New("session is private")

	// ErrSessionFull rejects joins once the participant roster is at capacity.
	ErrSessionFull = errors.New("session is full")

	// ErrActivePlanExists enforces the one-active-plan-per-user rule at the
	// use-case layer.
	ErrActivePlanExists = errors.New("user already has an active plan")

	// ErrVersionConflict signals a stale save under optimistic concurrency.
	ErrVersionConflict = errors.New("aggregate version conflict")
)
