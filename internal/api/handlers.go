// Package api exposes HTTP handlers for the coaching service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/coaching/internal/auth"
	"example.com/coaching/internal/domain"
	"example.com/coaching/internal/persistence"
)

// Handler coordinates HTTP requests with the plan and session services.
type Handler struct {
	plans    *domain.PlanService
	sessions *domain.SessionService
}

// NewHandler builds a Handler.
func NewHandler(plans *domain.PlanService, sessions *domain.SessionService) *Handler {
	return &Handler{plans: plans, sessions: sessions}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/plans", h.plansRoot)
	mux.HandleFunc("/v1/plans/", h.planByID)
	mux.HandleFunc("/v1/sessions", h.sessionsRoot)
	mux.HandleFunc("/v1/sessions/", h.sessionByID)
	mux.HandleFunc("/v1/completed-workouts", h.completedWorkouts)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) plansRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createPlan(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// planByID dispatches /v1/plans/{id} and its sub-resources.
func (h *Handler) planByID(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(strings.TrimPrefix(r.URL.Path, "/v1/plans/"))
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing plan id")
		return
	}
	planID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getPlan(w, r, planID)
	case len(parts) == 2 && r.Method == http.MethodGet && parts[1] == "current-workout":
		h.currentWorkout(w, r, planID)
	case len(parts) == 2 && r.Method == http.MethodGet && parts[1] == "summary":
		h.planSummary(w, r, planID)
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.planTransition(w, r, planID, parts[1])
	case len(parts) == 4 && r.Method == http.MethodPost && parts[1] == "workouts" && parts[3] == "skip":
		h.skipWorkout(w, r, planID, parts[2])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown plan route")
	}
}

func (h *Handler) sessionsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createSession(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// sessionByID dispatches /v1/sessions/{id} and its sub-resources.
func (h *Handler) sessionByID(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(strings.TrimPrefix(r.URL.Path, "/v1/sessions/"))
	if len(parts) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing session id")
		return
	}
	sessionID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.getSession(w, r, sessionID)
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.sessionCommand(w, r, sessionID, parts[1])
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown session route")
	}
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopePlansWrite)
	if !ok {
		return
	}

	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	weeks, err := req.toWeeks()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	plan, err := h.plans.CreatePlan(r.Context(), domain.CreatePlanInput{
		UserID: claims.Subject,
		Title:  req.Title,
		Goals:  req.Goals,
		Weeks:  weeks,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanView(*plan))
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request, planID string) {
	claims, ok := requireScope(w, r, auth.ScopePlansRead, auth.ScopePlansWrite)
	if !ok {
		return
	}
	plan, err := h.plans.GetPlan(r.Context(), planID, claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(*plan))
}

func (h *Handler) currentWorkout(w http.ResponseWriter, r *http.Request, planID string) {
	claims, ok := requireScope(w, r, auth.ScopePlansRead, auth.ScopePlansWrite)
	if !ok {
		return
	}
	plan, err := h.plans.GetPlan(r.Context(), planID, claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := CurrentWorkoutResponse{Position: plan.CurrentPosition}
	if workout := plan.CurrentWorkout(); workout != nil {
		resp.Workout = workout
	} else {
		resp.RestDay = true
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) planSummary(w http.ResponseWriter, r *http.Request, planID string) {
	claims, ok := requireScope(w, r, auth.ScopePlansRead, auth.ScopePlansWrite)
	if !ok {
		return
	}
	plan, err := h.plans.GetPlan(r.Context(), planID, claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan.Summary())
}

func (h *Handler) planTransition(w http.ResponseWriter, r *http.Request, planID, action string) {
	claims, ok := requireScope(w, r, auth.ScopePlansWrite)
	if !ok {
		return
	}

	var plan *domain.FitnessPlan
	var err error
	switch action {
	case "activate":
		plan, err = h.plans.ActivatePlan(r.Context(), planID, claims.Subject)
	case "pause":
		plan, err = h.plans.PausePlan(r.Context(), planID, claims.Subject)
	case "complete":
		plan, err = h.plans.CompletePlan(r.Context(), planID, claims.Subject)
	case "abandon":
		plan, err = h.plans.AbandonPlan(r.Context(), planID, claims.Subject)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown plan action")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(*plan))
}

func (h *Handler) skipWorkout(w http.ResponseWriter, r *http.Request, planID, workoutID string) {
	claims, ok := requireScope(w, r, auth.ScopePlansWrite)
	if !ok {
		return
	}

	var req SkipWorkoutRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	plan, err := h.plans.SkipWorkout(r.Context(), planID, claims.Subject, workoutID, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlanView(*plan))
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeSessionsWrite)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), domain.CreateSessionInput{
		OwnerID:           claims.Subject,
		OwnerName:         req.OwnerName,
		PlanID:            req.PlanID,
		WorkoutTemplateID: req.WorkoutTemplateID,
		WorkoutType:       req.WorkoutType,
		Activities:        req.Activities,
		Config:            req.Config,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionView(*session))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	_, ok := requireScope(w, r, auth.ScopeSessionsRead, auth.ScopeSessionsWrite)
	if !ok {
		return
	}
	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(*session))
}

func (h *Handler) sessionCommand(w http.ResponseWriter, r *http.Request, sessionID, action string) {
	claims, ok := requireScope(w, r, auth.ScopeSessionsWrite)
	if !ok {
		return
	}
	actor := claims.Subject

	var session *domain.WorkoutSession
	var err error
	switch action {
	case "start":
		session, err = h.sessions.StartSession(r.Context(), sessionID, actor)
	case "pause":
		session, err = h.sessions.PauseSession(r.Context(), sessionID, actor)
	case "resume":
		session, err = h.sessions.ResumeSession(r.Context(), sessionID, actor)
	case "abandon":
		session, err = h.sessions.AbandonSession(r.Context(), sessionID, actor)
	case "complete":
		h.completeSession(w, r, sessionID, actor)
		return
	case "join":
		session, err = h.joinSession(r, sessionID, actor)
	case "leave":
		session, err = h.sessions.LeaveSession(r.Context(), sessionID, actor)
	case "activities":
		session, err = h.recordActivity(r, sessionID, actor)
	case "progress":
		session, err = h.updateProgress(r, sessionID, actor)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown session action")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(*session))
}

func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request, sessionID, actor string) {
	record, err := h.sessions.CompleteSession(r.Context(), sessionID, actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) joinSession(r *http.Request, sessionID, actor string) (*domain.WorkoutSession, error) {
	var req JoinSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	return h.sessions.JoinSession(r.Context(), sessionID, actor, req.UserName)
}

func (h *Handler) recordActivity(r *http.Request, sessionID, actor string) (*domain.WorkoutSession, error) {
	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody
	}
	return h.sessions.RecordActivity(r.Context(), sessionID, actor, req.ActivityID, req.DurationSec)
}

func (h *Handler) updateProgress(r *http.Request, sessionID, actor string) (*domain.WorkoutSession, error) {
	var req UpdateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody
	}
	return h.sessions.UpdateProgress(r.Context(), sessionID, actor, domain.LiveProgress{
		ActivityID:   req.ActivityID,
		CurrentRound: req.CurrentRound,
		CurrentSet:   req.CurrentSet,
	})
}

func (h *Handler) completedWorkouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := requireScope(w, r, auth.ScopeSessionsRead, auth.ScopeSessionsWrite)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.sessions.ListCompletedWorkouts(r.Context(), claims.Subject, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CompletedWorkoutsResponse{
		Items:      records,
		NextCursor: persistence.EncodeCursor(next),
	})
}

// requireScope extracts the claims and checks that at least one scope is held.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// CreatePlanRequest is the payload for POST /v1/plans.
type CreatePlanRequest struct {
	Title string        `json:"title"`
	Goals []string      `json:"goals,omitempty"`
	Weeks []WeekRequest `json:"weeks"`
}

// WeekRequest describes one plan week in a create request.
type WeekRequest struct {
	WeekNumber int              `json:"week_number"`
	Focus      string           `json:"focus,omitempty"`
	Workouts   []WorkoutRequest `json:"workouts"`
}

// WorkoutRequest describes one scheduled workout in a create request. The
// server assigns an id when the client leaves it empty.
type WorkoutRequest struct {
	ID         string            `json:"id,omitempty"`
	DayOfWeek  int               `json:"day_of_week"`
	Title      string            `json:"title"`
	Activities []domain.Activity `json:"activities"`
}

func (r CreatePlanRequest) toWeeks() ([]domain.WeeklySchedule, error) {
	weeks := make([]domain.WeeklySchedule, 0, len(r.Weeks))
	for _, wr := range r.Weeks {
		workouts := make([]domain.WorkoutTemplate, 0, len(wr.Workouts))
		for _, tr := range wr.Workouts {
			id := tr.ID
			if id == "" {
				id = uuid.NewString()
			}
			workout, err := domain.NewWorkoutTemplate(id, wr.WeekNumber, tr.DayOfWeek, tr.Title, tr.Activities)
			if err != nil {
				return nil, err
			}
			workouts = append(workouts, workout)
		}
		week, err := domain.NewWeeklySchedule(wr.WeekNumber, "", workouts)
		if err != nil {
			return nil, err
		}
		week.Focus = wr.Focus
		weeks = append(weeks, week)
	}
	return weeks, nil
}

// SkipWorkoutRequest carries the optional skip reason.
type SkipWorkoutRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CreateSessionRequest is the payload for POST /v1/sessions.
type CreateSessionRequest struct {
	OwnerName         string               `json:"owner_name,omitempty"`
	PlanID            string               `json:"plan_id,omitempty"`
	WorkoutTemplateID string               `json:"workout_template_id,omitempty"`
	WorkoutType       string               `json:"workout_type"`
	Activities        []domain.Activity    `json:"activities,omitempty"`
	Config            domain.SessionConfig `json:"configuration"`
}

// JoinSessionRequest carries the joining user's display name.
type JoinSessionRequest struct {
	UserName string `json:"user_name,omitempty"`
}

// RecordActivityRequest is the payload for POST /v1/sessions/{id}/activities.
type RecordActivityRequest struct {
	ActivityID  string `json:"activity_id"`
	DurationSec int    `json:"duration_sec"`
}

// UpdateProgressRequest is the payload for POST /v1/sessions/{id}/progress.
type UpdateProgressRequest struct {
	ActivityID   string `json:"activity_id"`
	CurrentRound int    `json:"current_round"`
	CurrentSet   int    `json:"current_set"`
}

// PlanView exposes plan details including derived state.
type PlanView struct {
	PlanID          string                  `json:"plan_id"`
	UserID          string                  `json:"user_id"`
	Title           string                  `json:"title"`
	Goals           []string                `json:"goals,omitempty"`
	Status          string                  `json:"status"`
	CurrentPosition domain.Position         `json:"current_position"`
	Summary         domain.PlanSummary      `json:"summary"`
	Weeks           []domain.WeeklySchedule `json:"weeks"`
	StartDate       *time.Time              `json:"start_date,omitempty"`
	EndDate         *time.Time              `json:"end_date,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// CurrentWorkoutResponse resolves the plan position to today's workout.
type CurrentWorkoutResponse struct {
	Position domain.Position         `json:"position"`
	RestDay  bool                    `json:"rest_day"`
	Workout  *domain.WorkoutTemplate `json:"workout,omitempty"`
}

// SessionView exposes live-session details including derived duration.
type SessionView struct {
	SessionID            string                     `json:"session_id"`
	OwnerID              string                     `json:"owner_id"`
	PlanID               string                     `json:"plan_id,omitempty"`
	WorkoutTemplateID    string                     `json:"workout_template_id,omitempty"`
	WorkoutType          string                     `json:"workout_type"`
	State                string                     `json:"state"`
	CurrentActivityIndex int                        `json:"current_activity_index"`
	Activities           []domain.Activity          `json:"activities"`
	Live                 *domain.LiveProgress       `json:"live_progress,omitempty"`
	CompletedActivities  []domain.CompletedActivity `json:"completed_activities,omitempty"`
	Config               domain.SessionConfig       `json:"configuration"`
	Participants         []domain.Participant       `json:"participants,omitempty"`
	Feed                 []domain.FeedEntry         `json:"activity_feed,omitempty"`
	ActiveDurationSec    int                        `json:"active_duration_sec"`
	CompletionPercent    float64                    `json:"completion_percent"`
	StartedAt            *time.Time                 `json:"started_at,omitempty"`
	CompletedAt          *time.Time                 `json:"completed_at,omitempty"`
}

// CompletedWorkoutsResponse packages workout history pages.
type CompletedWorkoutsResponse struct {
	Items      []domain.CompletedWorkout `json:"items"`
	NextCursor string                    `json:"next_cursor,omitempty"`
}

var errInvalidBody = errors.New("unable to parse body")

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errInvalidBody):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrWorkoutNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrSessionPrivate):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidSessionState),
		errors.Is(err, domain.ErrActivePlanExists),
		errors.Is(err, domain.ErrNotMultiplayer),
		errors.Is(err, domain.ErrSessionFull),
		errors.Is(err, domain.ErrVersionConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toPlanView(plan domain.FitnessPlan) PlanView {
	return PlanView{
		PlanID:          plan.ID,
		UserID:          plan.UserID,
		Title:           plan.Title,
		Goals:           plan.Goals,
		Status:          string(plan.Status),
		CurrentPosition: plan.CurrentPosition,
		Summary:         plan.Summary(),
		Weeks:           plan.Weeks,
		StartDate:       plan.StartDate,
		EndDate:         plan.EndDate,
		CreatedAt:       plan.CreatedAt,
		UpdatedAt:       plan.UpdatedAt,
	}
}

func toSessionView(session domain.WorkoutSession) SessionView {
	return SessionView{
		SessionID:            session.ID,
		OwnerID:              session.OwnerID,
		PlanID:               session.PlanID,
		WorkoutTemplateID:    session.WorkoutTemplateID,
		WorkoutType:          session.WorkoutType,
		State:                string(session.State),
		CurrentActivityIndex: session.CurrentActivityIndex,
		Activities:           session.Activities,
		Live:                 session.Live,
		CompletedActivities:  session.CompletedActivities,
		Config:               session.Config,
		Participants:         session.Participants,
		Feed:                 session.Feed,
		ActiveDurationSec:    session.ActiveDuration(time.Now().UTC()),
		CompletionPercent:    session.CompletionPercent(),
		StartedAt:            session.StartedAt,
		CompletedAt:          session.CompletedAt,
	}
}
