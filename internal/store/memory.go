package store

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "tradegate/internal/errors"
	"tradegate/internal/models"
)

// MemoryStore implements DataStore in memory. Used by tests and the
// dry-run CLI commands; the service uses SQLite.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*models.CooldownSession
	approvals map[string]*models.TradeApproval
	profiles  map[string]*models.DisciplineProfile
	events    []models.ScoreEvent
	trades    map[string][]models.ClosedTrade // userID -> trades
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*models.CooldownSession),
		approvals: make(map[string]*models.TradeApproval),
		profiles:  make(map[string]*models.DisciplineProfile),
		trades:    make(map[string][]models.ClosedTrade),
	}
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error { return nil }

// CreateSession inserts a new cooldown session.
func (s *MemoryStore) CreateSession(ctx context.Context, session *models.CooldownSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneSession(session)
	s.sessions[session.ID] = cp
	return nil
}

// GetSession returns the session with the given ID.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*models.CooldownSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneSession(session), nil
}

// GetActiveSession returns the user's active session, or nil if none exists.
func (s *MemoryStore) GetActiveSession(ctx context.Context, userID string) (*models.CooldownSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.CooldownSession
	for _, session := range s.sessions {
		if session.UserID != userID || !session.IsActive() {
			continue
		}
		if latest == nil || session.CreatedAt.After(latest.CreatedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneSession(latest), nil
}

// UpdateSession persists session mutations.
func (s *MemoryStore) UpdateSession(ctx context.Context, session *models.CooldownSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return apperrors.ErrNotFound
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

// GetSessions returns sessions matching the filter, newest first.
func (s *MemoryStore) GetSessions(ctx context.Context, filter SessionFilter) ([]models.CooldownSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []models.CooldownSession
	for _, session := range s.sessions {
		if filter.UserID != "" && session.UserID != filter.UserID {
			continue
		}
		if filter.ActiveOnly && !session.IsActive() {
			continue
		}
		sessions = append(sessions, *cloneSession(session))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if filter.Limit > 0 && len(sessions) > filter.Limit {
		sessions = sessions[:filter.Limit]
	}
	return sessions, nil
}

// CreateApproval inserts a new trade approval.
func (s *MemoryStore) CreateApproval(ctx context.Context, approval *models.TradeApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *approval
	s.approvals[approval.ID] = &cp
	return nil
}

// GetApproval returns the approval with the given ID.
func (s *MemoryStore) GetApproval(ctx context.Context, id string) (*models.TradeApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	approval, ok := s.approvals[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *approval
	return &cp, nil
}

// UpdateApproval persists approval mutations.
func (s *MemoryStore) UpdateApproval(ctx context.Context, approval *models.TradeApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.approvals[approval.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *approval
	s.approvals[approval.ID] = &cp
	return nil
}

// GetApprovals returns approvals matching the filter, newest first.
func (s *MemoryStore) GetApprovals(ctx context.Context, filter ApprovalFilter) ([]models.TradeApproval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var approvals []models.TradeApproval
	for _, approval := range s.approvals {
		if filter.UserID != "" && approval.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && approval.Status != filter.Status {
			continue
		}
		if !filter.ExpiredBefore.IsZero() && !approval.ExpiresAt.Before(filter.ExpiredBefore) {
			continue
		}
		approvals = append(approvals, *approval)
	}
	sort.Slice(approvals, func(i, j int) bool {
		return approvals[i].CreatedAt.After(approvals[j].CreatedAt)
	})
	if filter.Limit > 0 && len(approvals) > filter.Limit {
		approvals = approvals[:filter.Limit]
	}
	return approvals, nil
}

// GetProfile returns the user's discipline profile, or nil if none exists.
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*models.DisciplineProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *profile
	return &cp, nil
}

// SaveProfile upserts the user's discipline profile.
func (s *MemoryStore) SaveProfile(ctx context.Context, profile *models.DisciplineProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *profile
	s.profiles[profile.UserID] = &cp
	return nil
}

// RecordScoreEvent appends to the score audit trail.
func (s *MemoryStore) RecordScoreEvent(ctx context.Context, event *models.ScoreEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// ScoreEvents returns the recorded score events for a user, oldest first.
func (s *MemoryStore) ScoreEvents(userID string) []models.ScoreEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []models.ScoreEvent
	for _, e := range s.events {
		if e.UserID == userID {
			events = append(events, e)
		}
	}
	return events
}

// RecentClosedTrades returns the user's closed trades since the given time,
// most recent exit first.
func (s *MemoryStore) RecentClosedTrades(ctx context.Context, userID string, since time.Time) ([]models.ClosedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trades []models.ClosedTrade
	for _, t := range s.trades[userID] {
		if !t.ExitTime.Before(since) {
			trades = append(trades, t)
		}
	}
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].ExitTime.After(trades[j].ExitTime)
	})
	return trades, nil
}

// InsertClosedTrade writes a trade into the journal mirror.
func (s *MemoryStore) InsertClosedTrade(ctx context.Context, trade *models.ClosedTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades[trade.UserID] = append(s.trades[trade.UserID], *trade)
	return nil
}

func cloneSession(s *models.CooldownSession) *models.CooldownSession {
	cp := *s
	cp.RequiredExercises = append([]models.ExerciseID(nil), s.RequiredExercises...)
	cp.ExercisesCompleted = append([]models.ExerciseCompletion(nil), s.ExercisesCompleted...)
	return &cp
}
