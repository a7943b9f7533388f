package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"tradegate/internal/approval"
	"tradegate/internal/clock"
	"tradegate/internal/cooldown"
	"tradegate/internal/errors"
	"tradegate/internal/metrics"
	"tradegate/internal/models"
	"tradegate/internal/scoring"
	"tradegate/internal/security"
)

// userIDHeader identifies the acting user. The API trusts its local caller;
// authentication belongs to the outer platform.
const userIDHeader = "X-User-ID"

// Handlers holds the HTTP endpoint handlers and their dependencies.
type Handlers struct {
	cooldown *cooldown.Manager
	gate     *approval.Gate
	scorer   *scoring.Scorer
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewHandlers creates a handlers instance.
func NewHandlers(cd *cooldown.Manager, gate *approval.Gate, scorer *scoring.Scorer, clk clock.Clock, logger zerolog.Logger) *Handlers {
	return &Handlers{
		cooldown: cd,
		gate:     gate,
		scorer:   scorer,
		clock:    clk,
		logger:   logger,
	}
}

// errorResponse is the standard error payload.
type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// sessionResponse is the wire form of a cooldown session.
type sessionResponse struct {
	ID                 string               `json:"id"`
	UserID             string               `json:"user_id"`
	State              models.SessionState  `json:"state"`
	TriggerKind        models.TriggerKind   `json:"trigger_kind"`
	TriggerSeverity    models.Severity      `json:"trigger_severity"`
	TriggerDetail      string               `json:"trigger_detail"`
	RequiredExercises  []models.ExerciseID  `json:"required_exercises"`
	ExercisesCompleted []exerciseCompletion `json:"exercises_completed"`
	CreatedAt          time.Time            `json:"created_at"`
	ExpiresAt          time.Time            `json:"expires_at"`
}

type exerciseCompletion struct {
	ExerciseID  models.ExerciseID `json:"exercise_id"`
	CompletedAt time.Time         `json:"completed_at"`
}

// approvalResponse is the wire form of a trade approval.
type approvalResponse struct {
	ID        string                `json:"id"`
	UserID    string                `json:"user_id"`
	Symbol    string                `json:"symbol"`
	Direction models.Direction      `json:"direction"`
	Status    models.ApprovalStatus `json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// rejectionResponse explains a refused approval request.
type rejectionResponse struct {
	Rejected        bool               `json:"rejected"`
	TriggerKind     models.TriggerKind `json:"trigger_kind"`
	TriggerSeverity models.Severity    `json:"trigger_severity"`
	TriggerDetail   string             `json:"trigger_detail"`
	SuggestedAction string             `json:"suggested_action"`
	Session         *sessionResponse   `json:"session"`
}

// statsResponse summarizes the user's discipline standing.
type statsResponse struct {
	UserID         string           `json:"user_id"`
	Score          float64          `json:"score"`
	ViolationCount int              `json:"violation_count"`
	LastUpdated    *time.Time       `json:"last_updated,omitempty"`
	ActiveSession  *sessionResponse `json:"active_session,omitempty"`
}

// approvalRequest is the body of POST /discipline/approvals.
type approvalRequest struct {
	Symbol    string           `json:"symbol"`
	Direction models.Direction `json:"direction"`
}

// exerciseRequest is the body of an exercise completion.
type exerciseRequest struct {
	DurationSeconds int     `json:"duration_seconds"`
	Text            string  `json:"text"`
	Acknowledged    bool    `json:"acknowledged"`
	PositionSize    float64 `json:"position_size"`
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": h.clock.Now().UTC(),
	})
}

// Stats returns the user's discipline profile and active session.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	profile, err := h.scorer.Profile(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := statsResponse{
		UserID:         profile.UserID,
		Score:          profile.Score,
		ViolationCount: profile.ViolationCount,
	}
	if !profile.LastUpdated.IsZero() {
		t := profile.LastUpdated
		resp.LastUpdated = &t
	}

	if active, err := h.cooldown.GetActiveSession(r.Context(), userID); err == nil && active != nil {
		resp.ActiveSession = h.toSessionResponse(active)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// ActiveSession returns the user's active cooldown session, or 404.
func (h *Handlers) ActiveSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	session, err := h.cooldown.GetActiveSession(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if session == nil {
		h.writeError(w, r, http.StatusNotFound, "no active cooldown session")
		return
	}

	h.writeJSON(w, http.StatusOK, h.toSessionResponse(session))
}

// GetSession returns one cooldown session by ID.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	session, err := h.cooldown.GetSession(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toSessionResponse(session))
}

// CompleteExercise records an exercise completion on a session.
func (h *Handlers) CompleteExercise(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, ok := h.recordID(w, r); !ok {
		return
	}

	var body exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sub := models.ExerciseSubmission{
		DurationSeconds: body.DurationSeconds,
		Text:            body.Text,
		Acknowledged:    body.Acknowledged,
		PositionSize:    body.PositionSize,
	}

	session, err := h.cooldown.CompleteExercise(r.Context(), vars["id"], models.ExerciseID(vars["exerciseId"]), sub)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.toSessionResponse(session))
}

// SkipSession resolves a session by accepting the penalty.
func (h *Handlers) SkipSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	session, err := h.cooldown.SkipSession(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toSessionResponse(session))
}

// RequestApproval runs the gate for an order intent. An approved request
// returns 201 with the approval; a rejection returns 409 with the blocking
// session.
func (h *Handlers) RequestApproval(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var body approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	symbol := security.NormalizeSymbol(body.Symbol)
	if err := security.ValidateSymbol(symbol); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if body.Direction != models.DirectionLong && body.Direction != models.DirectionShort {
		h.writeError(w, r, http.StatusBadRequest, "direction must be LONG or SHORT")
		return
	}

	intent := models.OrderIntent{Symbol: symbol, Direction: body.Direction}
	appr, rejection, err := h.gate.RequestApproval(r.Context(), userID, intent)
	if err != nil {
		if errors.IsRetryable(err) {
			metrics.ApprovalUnavailable()
		}
		h.writeDomainError(w, r, err)
		return
	}

	if rejection != nil {
		metrics.ApprovalRejected()
		h.writeJSON(w, http.StatusConflict, rejectionResponse{
			Rejected:        true,
			TriggerKind:     rejection.Trigger.Kind,
			TriggerSeverity: rejection.Trigger.Severity,
			TriggerDetail:   rejection.Trigger.Detail,
			SuggestedAction: rejection.Trigger.SuggestedAction,
			Session:         h.toSessionResponse(rejection.Session),
		})
		return
	}

	metrics.ApprovalIssued()
	h.writeJSON(w, http.StatusCreated, h.toApprovalResponse(appr))
}

// GetApproval returns one approval by ID, lazily expiring it.
func (h *Handlers) GetApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	appr, err := h.gate.GetApproval(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toApprovalResponse(appr))
}

// ConsumeApproval marks an approval executed.
func (h *Handlers) ConsumeApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := h.recordID(w, r)
	if !ok {
		return
	}
	appr, err := h.gate.ConsumeApproval(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.toApprovalResponse(appr))
}

// NotFound handles unmatched routes.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeError(w, r, http.StatusNotFound, "endpoint not found")
}

func (h *Handlers) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		h.writeError(w, r, http.StatusBadRequest, "X-User-ID header is required")
		return "", false
	}
	if err := security.ValidateUserID(userID); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return userID, true
}

func (h *Handlers) recordID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if err := security.ValidateRecordID(id); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return "", false
	}
	return id, true
}

func (h *Handlers) toSessionResponse(s *models.CooldownSession) *sessionResponse {
	completed := make([]exerciseCompletion, 0, len(s.ExercisesCompleted))
	for _, c := range s.ExercisesCompleted {
		completed = append(completed, exerciseCompletion{
			ExerciseID:  c.ExerciseID,
			CompletedAt: c.CompletedAt,
		})
	}
	return &sessionResponse{
		ID:                 s.ID,
		UserID:             s.UserID,
		State:              s.State(h.clock.Now()),
		TriggerKind:        s.TriggerReason.Kind,
		TriggerSeverity:    s.TriggerReason.Severity,
		TriggerDetail:      s.TriggerReason.Detail,
		RequiredExercises:  s.RequiredExercises,
		ExercisesCompleted: completed,
		CreatedAt:          s.CreatedAt,
		ExpiresAt:          s.ExpiresAt,
	}
}

func (h *Handlers) toApprovalResponse(a *models.TradeApproval) approvalResponse {
	return approvalResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Symbol:    a.Symbol,
		Direction: a.Direction,
		Status:    a.Status,
		CreatedAt: a.CreatedAt,
		ExpiresAt: a.ExpiresAt,
	}
}

// writeDomainError maps domain errors onto HTTP status codes.
func (h *Handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, errors.ErrAlreadyResolved),
		errors.Is(err, errors.ErrAlreadyConsumed),
		errors.Is(err, errors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errors.ErrUnknownExercise),
		errors.Is(err, errors.ErrExerciseNotSatisfied):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrTemporarilyUnavailable):
		status = http.StatusServiceUnavailable
	default:
		var verr *errors.ValidationError
		if errors.As(err, &verr) {
			status = http.StatusBadRequest
		} else {
			status = http.StatusInternalServerError
		}
	}

	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("request_id", requestID(r)).Msg("Internal error")
		h.writeError(w, r, status, "internal error")
		return
	}
	h.writeError(w, r, status, err.Error())
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, status, errorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		RequestID: requestID(r),
		Timestamp: time.Now().UTC(),
	})
}
