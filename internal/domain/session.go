package domain

import (
	"fmt"
	"time"
)

// SessionState is the lifecycle state of a live workout session.
type SessionState string

const (
	SessionStatePreparing  SessionState = "preparing"
	SessionStateInProgress SessionState = "in_progress"
	SessionStatePaused     SessionState = "paused"
	SessionStateCompleted  SessionState = "completed"
	SessionStateAbandoned  SessionState = "abandoned"
)

// IsTerminal reports whether no further transition is legal from the state.
func (s SessionState) IsTerminal() bool {
	return s == SessionStateCompleted || s == SessionStateAbandoned
}

// SessionConfig gates multiplayer behaviour.
type SessionConfig struct {
	IsMultiplayer   bool `json:"is_multiplayer"`
	MaxParticipants int  `json:"max_participants"`
	IsPublic        bool `json:"is_public"`
}

// Participant is one user in a multiplayer roster.
type Participant struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// CompletedActivity records one finished activity with its performance.
type CompletedActivity struct {
	ActivityID  string    `json:"activity_id"`
	DurationSec int       `json:"duration_sec"`
	CompletedAt time.Time `json:"completed_at"`
}

// LiveProgress tracks the in-flight position inside the current activity.
type LiveProgress struct {
	ActivityID   string    `json:"activity_id"`
	CurrentRound int       `json:"current_round"`
	CurrentSet   int       `json:"current_set"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FeedEntry is one item of the session activity feed.
type FeedEntry struct {
	UserID     string    `json:"user_id"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	feedKindJoined            = "participant_joined"
	feedKindLeft              = "participant_left"
	feedKindActivityCompleted = "activity_completed"
)

// WorkoutSession is the aggregate root for one live workout. Commands are
// pure value transforms; illegal lifecycle changes return
// ErrInvalidSessionState and leave the receiver untouched.
type WorkoutSession struct {
	ID                   string              `json:"id"`
	OwnerID              string              `json:"owner_id"`
	PlanID               string              `json:"plan_id,omitempty"`
	WorkoutTemplateID    string              `json:"workout_template_id,omitempty"`
	WorkoutType          string              `json:"workout_type"`
	Activities           []Activity          `json:"activities"`
	State                SessionState        `json:"state"`
	CurrentActivityIndex int                 `json:"current_activity_index"`
	Live                 *LiveProgress       `json:"live_progress,omitempty"`
	CompletedActivities  []CompletedActivity `json:"completed_activities,omitempty"`
	Config               SessionConfig       `json:"configuration"`
	Participants         []Participant       `json:"participants,omitempty"`
	Feed                 []FeedEntry         `json:"activity_feed,omitempty"`
	StartedAt            *time.Time          `json:"started_at,omitempty"`
	PausedAt             *time.Time          `json:"paused_at,omitempty"`
	ResumedAt            *time.Time          `json:"resumed_at,omitempty"`
	CompletedAt          *time.Time          `json:"completed_at,omitempty"`
	AbandonedAt          *time.Time          `json:"abandoned_at,omitempty"`
	TotalPausedSeconds   int                 `json:"total_paused_seconds"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`

	// Revision backs the repository's optimistic-concurrency check.
	Revision int64 `json:"-"`
}

// NewWorkoutSession builds a preparing session. Multiplayer sessions start
// with the owner on the roster so capacity counts them.
func NewWorkoutSession(id, ownerID, ownerName, workoutType string, activities []Activity, config SessionConfig, now time.Time) (WorkoutSession, error) {
	if id == "" || ownerID == "" {
		return WorkoutSession{}, fmt.Errorf("%w: session id and owner id are required", ErrValidation)
	}
	if len(activities) == 0 {
		return WorkoutSession{}, fmt.Errorf("%w: session needs at least one activity", ErrValidation)
	}
	for _, act := range activities {
		if err := act.validate(); err != nil {
			return WorkoutSession{}, err
		}
	}
	if config.IsMultiplayer && config.MaxParticipants < 1 {
		return WorkoutSession{}, fmt.Errorf("%w: multiplayer session needs max participants >= 1", ErrValidation)
	}

	session := WorkoutSession{
		ID:          id,
		OwnerID:     ownerID,
		WorkoutType: workoutType,
		Activities:  activities,
		State:       SessionStatePreparing,
		Config:      config,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if config.IsMultiplayer {
		session.Participants = []Participant{{UserID: ownerID, Name: ownerName, JoinedAt: now}}
	}
	return session, nil
}

// Start begins the workout.
func (s WorkoutSession) Start(now time.Time) (WorkoutSession, error) {
	if s.State != SessionStatePreparing {
		return s, fmt.Errorf("%w: cannot start from %s", ErrInvalidSessionState, s.State)
	}
	s.State = SessionStateInProgress
	started := now
	s.StartedAt = &started
	s.UpdatedAt = now
	return s, nil
}

// Pause suspends an in-progress workout.
func (s WorkoutSession) Pause(now time.Time) (WorkoutSession, error) {
	if s.State != SessionStateInProgress {
		return s, fmt.Errorf("%w: cannot pause from %s", ErrInvalidSessionState, s.State)
	}
	s.State = SessionStatePaused
	paused := now
	s.PausedAt = &paused
	s.UpdatedAt = now
	return s, nil
}

// Resume continues a paused workout and folds the elapsed pause interval into
// TotalPausedSeconds. That accumulator is the only record of paused time.
func (s WorkoutSession) Resume(now time.Time) (WorkoutSession, error) {
	if s.State != SessionStatePaused {
		return s, fmt.Errorf("%w: cannot resume from %s", ErrInvalidSessionState, s.State)
	}
	s.State = SessionStateInProgress
	resumed := now
	s.ResumedAt = &resumed
	if s.PausedAt != nil {
		s.TotalPausedSeconds += int(now.Sub(*s.PausedAt).Seconds())
	}
	s.UpdatedAt = now
	return s, nil
}

// Complete finishes an in-progress workout. Conversion to a completed-workout
// record and deletion from live storage happen in the use-case layer.
func (s WorkoutSession) Complete(now time.Time) (WorkoutSession, error) {
	if s.State != SessionStateInProgress {
		return s, fmt.Errorf("%w: cannot complete from %s", ErrInvalidSessionState, s.State)
	}
	s.State = SessionStateCompleted
	completed := now
	s.CompletedAt = &completed
	s.UpdatedAt = now
	return s, nil
}

// Abandon terminates the session from any non-terminal state.
func (s WorkoutSession) Abandon(now time.Time) (WorkoutSession, error) {
	if s.State.IsTerminal() {
		return s, fmt.Errorf("%w: cannot abandon from %s", ErrInvalidSessionState, s.State)
	}
	s.State = SessionStateAbandoned
	abandoned := now
	s.AbandonedAt = &abandoned
	s.UpdatedAt = now
	return s, nil
}

// ActiveDuration derives the worked time in seconds: terminal-or-now minus
// start, minus accumulated pause time. Never stored, so it cannot drift from
// the timestamps it is computed from. A pause still in flight counts as
// active until Resume folds it in.
func (s WorkoutSession) ActiveDuration(now time.Time) int {
	if s.StartedAt == nil {
		return 0
	}
	end := now
	switch {
	case s.CompletedAt != nil:
		end = *s.CompletedAt
	case s.AbandonedAt != nil:
		end = *s.AbandonedAt
	}
	elapsed := int(end.Sub(*s.StartedAt).Seconds()) - s.TotalPausedSeconds
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// CompletionPercent is the fraction of activities with a recorded
// performance: 0 with nothing done, 1 only when every activity has one.
func (s WorkoutSession) CompletionPercent() float64 {
	if len(s.Activities) == 0 {
		return 0
	}
	done := make(map[string]struct{}, len(s.CompletedActivities))
	for _, ca := range s.CompletedActivities {
		done[ca.ActivityID] = struct{}{}
	}
	matched := 0
	for _, act := range s.Activities {
		if _, ok := done[act.ID]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(s.Activities))
}

// RecordActivity stores a performance for one of the session's activities and
// moves the activity pointer forward, clamped to the last index.
func (s WorkoutSession) RecordActivity(activityID string, durationSec int, now time.Time) (WorkoutSession, error) {
	if s.State != SessionStateInProgress {
		return s, fmt.Errorf("%w: cannot record activity from %s", ErrInvalidSessionState, s.State)
	}
	if !s.hasActivity(activityID) {
		return s, fmt.Errorf("%w: activity %s not in session", ErrWorkoutNotFound, activityID)
	}

	completed := make([]CompletedActivity, len(s.CompletedActivities), len(s.CompletedActivities)+1)
	copy(completed, s.CompletedActivities)
	s.CompletedActivities = append(completed, CompletedActivity{
		ActivityID:  activityID,
		DurationSec: durationSec,
		CompletedAt: now,
	})
	s = s.appendFeed(FeedEntry{UserID: s.OwnerID, Kind: feedKindActivityCompleted, Message: activityID, OccurredAt: now})
	if s.CurrentActivityIndex < len(s.Activities)-1 {
		s.CurrentActivityIndex++
	}
	s.Live = nil
	s.UpdatedAt = now
	return s, nil
}

// UpdateProgress replaces the live pointer inside the current activity.
func (s WorkoutSession) UpdateProgress(progress LiveProgress, now time.Time) (WorkoutSession, error) {
	if s.State != SessionStateInProgress {
		return s, fmt.Errorf("%w: cannot update progress from %s", ErrInvalidSessionState, s.State)
	}
	if !s.hasActivity(progress.ActivityID) {
		return s, fmt.Errorf("%w: activity %s not in session", ErrWorkoutNotFound, progress.ActivityID)
	}
	progress.UpdatedAt = now
	s.Live = &progress
	s.UpdatedAt = now
	return s, nil
}

// Join adds a user to a multiplayer roster. Policy checks run in order:
// multiplayer, visibility, idempotent re-join, capacity. Re-joining an
// existing participant returns the session unchanged.
func (s WorkoutSession) Join(userID, userName string, now time.Time) (WorkoutSession, error) {
	if !s.Config.IsMultiplayer {
		return s, fmt.Errorf("%w: session %s", ErrNotMultiplayer, s.ID)
	}
	if !s.Config.IsPublic && userID != s.OwnerID {
		return s, fmt.Errorf("%w: session %s", ErrSessionPrivate, s.ID)
	}
	for _, p := range s.Participants {
		if p.UserID == userID {
			return s, nil
		}
	}
	if len(s.Participants) >= s.Config.MaxParticipants {
		return s, fmt.Errorf("%w: session %s at capacity %d", ErrSessionFull, s.ID, s.Config.MaxParticipants)
	}

	participants := make([]Participant, len(s.Participants), len(s.Participants)+1)
	copy(participants, s.Participants)
	s.Participants = append(participants, Participant{UserID: userID, Name: userName, JoinedAt: now})
	s = s.appendFeed(FeedEntry{UserID: userID, Kind: feedKindJoined, OccurredAt: now})
	s.UpdatedAt = now
	return s, nil
}

// Leave removes a participant. When the owner leaves with others remaining,
// ownership moves to the earliest-joined remaining participant; the session
// is never torn down by a departure.
func (s WorkoutSession) Leave(userID string, now time.Time) (WorkoutSession, error) {
	if !s.Config.IsMultiplayer {
		return s, fmt.Errorf("%w: session %s", ErrNotMultiplayer, s.ID)
	}
	idx := -1
	for i, p := range s.Participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return s, nil
	}

	participants := make([]Participant, 0, len(s.Participants)-1)
	participants = append(participants, s.Participants[:idx]...)
	participants = append(participants, s.Participants[idx+1:]...)
	s.Participants = participants

	if userID == s.OwnerID && len(participants) > 0 {
		next := participants[0]
		for _, p := range participants[1:] {
			if p.JoinedAt.Before(next.JoinedAt) {
				next = p
			}
		}
		s.OwnerID = next.UserID
	}

	s = s.appendFeed(FeedEntry{UserID: userID, Kind: feedKindLeft, OccurredAt: now})
	s.UpdatedAt = now
	return s, nil
}

func (s WorkoutSession) hasActivity(activityID string) bool {
	for _, act := range s.Activities {
		if act.ID == activityID {
			return true
		}
	}
	return false
}

func (s WorkoutSession) appendFeed(entry FeedEntry) WorkoutSession {
	feed := make([]FeedEntry, len(s.Feed), len(s.Feed)+1)
	copy(feed, s.Feed)
	s.Feed = append(feed, entry)
	return s
}
