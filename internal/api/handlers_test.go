package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/approval"
	"tradegate/internal/clock"
	"tradegate/internal/config"
	"tradegate/internal/cooldown"
	"tradegate/internal/detector"
	"tradegate/internal/errors"
	"tradegate/internal/exercise"
	"tradegate/internal/history"
	"tradegate/internal/locking"
	"tradegate/internal/models"
	"tradegate/internal/scoring"
	"tradegate/internal/store"
	"tradegate/internal/stream"
)

// outageReader simulates the journal store being down.
type outageReader struct{}

func (outageReader) RecentClosedTrades(ctx context.Context, userID string, window time.Duration) ([]models.ClosedTrade, error) {
	return nil, errors.NewHistoryError(userID, "journal store unavailable",
		errors.Wrap(errors.ErrTemporarilyUnavailable, "connection refused"))
}

type apiFixture struct {
	router   http.Handler
	store    *store.MemoryStore
	clock    *clock.ManualClock
	cooldown *cooldown.Manager
}

// newAPIFixture wires a full in-memory stack behind the router. The
// cooldown manager and approval gate share one keyed mutex; the scorer
// uses its own because the managers call it while holding the user lock.
func newAPIFixture(t *testing.T, reader history.Reader) *apiFixture {
	t.Helper()

	mem := store.NewMemoryStore()
	clk := clock.NewManualClock(time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC))
	gateLocks := locking.NewKeyedMutex()
	scoreLocks := locking.NewKeyedMutex()
	hub := stream.NewHub()
	logger := zerolog.Nop()
	cfg := config.Default()

	if reader == nil {
		reader = history.NewStoreReader(mem, clk)
	}

	scorer := scoring.New(mem, cfg.Scoring, scoreLocks, clk, hub, logger)
	cd := cooldown.NewManager(mem, cfg.Cooldown, exercise.DefaultRegistry(), gateLocks, clk, scorer, hub, logger)
	det := detector.New(cfg.Detector)
	gate := approval.NewGate(mem, cfg.Approval, cfg.History, reader, det, cd, scorer, gateLocks, clk, hub, logger)

	handlers := NewHandlers(cd, gate, scorer, clk, logger)
	server, err := NewServer(config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}, handlers, logger)
	require.NoError(t, err)

	return &apiFixture{router: server.Router(), store: mem, clock: clk, cooldown: cd}
}

func (f *apiFixture) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rr.Body).Decode(out))
}

func (f *apiFixture) seedLosses(t *testing.T, userID string, n int) {
	t.Helper()
	now := f.clock.Now()
	for i := 0; i < n; i++ {
		require.NoError(t, f.store.InsertClosedTrade(context.Background(), &models.ClosedTrade{
			ID:           userID + "-loss-" + string(rune('a'+i)),
			UserID:       userID,
			Symbol:       "AAPL",
			Direction:    models.DirectionLong,
			ExitTime:     now.Add(-time.Duration(i+1) * time.Minute),
			ProfitOrLoss: -100,
		}))
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	decodeInto(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestApprovalLifecycle(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, "POST", "/discipline/approvals", "u1",
		approvalRequest{Symbol: "msft", Direction: models.DirectionLong})
	require.Equal(t, http.StatusCreated, rr.Code)

	var issued approvalResponse
	decodeInto(t, rr, &issued)
	assert.Equal(t, models.ApprovalApproved, issued.Status)
	assert.Equal(t, "MSFT", issued.Symbol, "symbol must be normalized")
	assert.Equal(t, "u1", issued.UserID)

	rr = f.do(t, "GET", "/discipline/approvals/"+issued.ID, "u1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, "POST", "/discipline/approvals/"+issued.ID+"/consume", "u1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var executed approvalResponse
	decodeInto(t, rr, &executed)
	assert.Equal(t, models.ApprovalExecuted, executed.Status)

	// One approval, one order.
	rr = f.do(t, "POST", "/discipline/approvals/"+issued.ID+"/consume", "u1", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestApprovalRejectedOnLossStreak(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.seedLosses(t, "u1", 3)

	rr := f.do(t, "POST", "/discipline/approvals", "u1",
		approvalRequest{Symbol: "MSFT", Direction: models.DirectionLong})
	require.Equal(t, http.StatusConflict, rr.Code)

	var rejection rejectionResponse
	decodeInto(t, rr, &rejection)
	assert.True(t, rejection.Rejected)
	assert.Equal(t, models.TriggerLossStreak, rejection.TriggerKind)
	require.NotNil(t, rejection.Session)
	assert.Equal(t, models.SessionStateActive, rejection.Session.State)

	// The rejection persisted a session.
	rr = f.do(t, "GET", "/discipline/cooldown/active", "u1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var active sessionResponse
	decodeInto(t, rr, &active)
	assert.Equal(t, rejection.Session.ID, active.ID)
}

func TestCompleteExercisesOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)
	f.seedLosses(t, "u1", 3)

	rr := f.do(t, "POST", "/discipline/approvals", "u1",
		approvalRequest{Symbol: "MSFT", Direction: models.DirectionLong})
	require.Equal(t, http.StatusConflict, rr.Code)

	var rejection rejectionResponse
	decodeInto(t, rr, &rejection)
	sessionID := rejection.Session.ID

	// A short breathing exercise is refused.
	rr = f.do(t, "POST", "/discipline/cooldown/"+sessionID+"/exercises/"+string(models.ExerciseBreathing),
		"u1", exerciseRequest{DurationSeconds: 10})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = f.do(t, "POST", "/discipline/cooldown/"+sessionID+"/exercises/"+string(models.ExerciseBreathing),
		"u1", exerciseRequest{DurationSeconds: 90})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, "POST", "/discipline/cooldown/"+sessionID+"/exercises/"+string(models.ExerciseJournal),
		"u1", exerciseRequest{Text: strings.Repeat("today I chased a loss and it cost me ", 4)})
	require.Equal(t, http.StatusOK, rr.Code)

	var done sessionResponse
	decodeInto(t, rr, &done)
	assert.Equal(t, models.SessionStateCompleted, done.State)

	// An exercise the session never required is rejected.
	rr = f.do(t, "POST", "/discipline/cooldown/"+sessionID+"/exercises/"+string(models.ExercisePastMistakes),
		"u1", exerciseRequest{Acknowledged: true})
	assert.Equal(t, http.StatusConflict, rr.Code, "resolved session refuses further exercises")
}

func TestSkipSessionOverHTTP(t *testing.T) {
	f := newAPIFixture(t, nil)

	session, err := f.cooldown.StartSession(context.Background(), "u1", models.Trigger{
		Kind:     models.TriggerManual,
		Severity: models.SeverityMedium,
	})
	require.NoError(t, err)

	rr := f.do(t, "POST", "/discipline/cooldown/"+session.ID+"/skip", "u1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var skipped sessionResponse
	decodeInto(t, rr, &skipped)
	assert.Equal(t, models.SessionStateSkipped, skipped.State)

	rr = f.do(t, "GET", "/discipline/cooldown/active", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// The penalty shows up in the stats.
	rr = f.do(t, "GET", "/discipline/stats", "u1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats statsResponse
	decodeInto(t, rr, &stats)
	assert.Equal(t, 95.0, stats.Score)
	assert.Equal(t, 1, stats.ViolationCount)
}

func TestStatsDefaultsForNewUser(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, "GET", "/discipline/stats", "fresh-user", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var stats statsResponse
	decodeInto(t, rr, &stats)
	assert.Equal(t, 100.0, stats.Score)
	assert.Zero(t, stats.ViolationCount)
	assert.Nil(t, stats.ActiveSession)
	assert.Nil(t, stats.LastUpdated)
}

func TestConsumeExpiredApprovalReturnsGone(t *testing.T) {
	f := newAPIFixture(t, nil)

	rr := f.do(t, "POST", "/discipline/approvals", "u1",
		approvalRequest{Symbol: "MSFT", Direction: models.DirectionLong})
	require.Equal(t, http.StatusCreated, rr.Code)

	var issued approvalResponse
	decodeInto(t, rr, &issued)

	f.clock.Advance(5 * time.Minute)

	rr = f.do(t, "POST", "/discipline/approvals/"+issued.ID+"/consume", "u1", nil)
	assert.Equal(t, http.StatusGone, rr.Code)
}

func TestHistoryOutageReturnsServiceUnavailable(t *testing.T) {
	f := newAPIFixture(t, outageReader{})

	rr := f.do(t, "POST", "/discipline/approvals", "u1",
		approvalRequest{Symbol: "MSFT", Direction: models.DirectionLong})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRequestValidation(t *testing.T) {
	f := newAPIFixture(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		userID string
		body   interface{}
		status int
	}{
		{"missing user header", "POST", "/discipline/approvals", "",
			approvalRequest{Symbol: "MSFT", Direction: models.DirectionLong}, http.StatusBadRequest},
		{"malformed user header", "POST", "/discipline/approvals", "u1 with spaces",
			approvalRequest{Symbol: "MSFT", Direction: models.DirectionLong}, http.StatusBadRequest},
		{"empty symbol", "POST", "/discipline/approvals", "u1",
			approvalRequest{Symbol: "", Direction: models.DirectionLong}, http.StatusBadRequest},
		{"bad direction", "POST", "/discipline/approvals", "u1",
			approvalRequest{Symbol: "MSFT", Direction: "SIDEWAYS"}, http.StatusBadRequest},
		{"malformed record id", "GET", "/discipline/approvals/!!!", "u1", nil, http.StatusBadRequest},
		{"unknown approval", "GET", "/discipline/approvals/does-not-exist", "u1", nil, http.StatusNotFound},
		{"unknown session", "GET", "/discipline/cooldown/does-not-exist", "u1", nil, http.StatusNotFound},
		{"unknown route", "GET", "/discipline/nope", "u1", nil, http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.do(t, tc.method, tc.path, tc.userID, tc.body)
			assert.Equal(t, tc.status, rr.Code)

			var body errorResponse
			decodeInto(t, rr, &body)
			assert.NotEmpty(t, body.Message)
		})
	}
}
