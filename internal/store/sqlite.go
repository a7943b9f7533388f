// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "tradegate/internal/errors"
	"tradegate/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Cooldown sessions
	CREATE TABLE IF NOT EXISTS cooldown_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		trigger_kind TEXT NOT NULL,
		trigger_severity TEXT NOT NULL,
		trigger_detail TEXT,
		trigger_action TEXT,
		trigger_detected_at DATETIME,
		required_exercises TEXT NOT NULL,
		exercises_completed TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		is_completed INTEGER NOT NULL DEFAULT 0,
		is_skipped INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON cooldown_sessions(user_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_active
		ON cooldown_sessions(user_id, is_completed, is_skipped);

	-- Trade approvals
	CREATE TABLE IF NOT EXISTS trade_approvals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_approvals_user ON trade_approvals(user_id);
	CREATE INDEX IF NOT EXISTS idx_approvals_status ON trade_approvals(status, expires_at);

	-- Discipline profiles
	CREATE TABLE IF NOT EXISTS discipline_profiles (
		user_id TEXT PRIMARY KEY,
		score REAL NOT NULL,
		violation_count INTEGER NOT NULL DEFAULT 0,
		last_updated DATETIME
	);

	-- Score event audit trail
	CREATE TABLE IF NOT EXISTS score_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		delta REAL NOT NULL,
		reason TEXT NOT NULL,
		timestamp DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_score_events_user ON score_events(user_id);

	-- Mirror of the journal store's closed trades; the core only reads it
	CREATE TABLE IF NOT EXISTS closed_trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		direction TEXT NOT NULL,
		exit_time DATETIME NOT NULL,
		profit_or_loss REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_user_exit ON closed_trades(user_id, exit_time DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new cooldown session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.CooldownSession) error {
	required, err := json.Marshal(session.RequiredExercises)
	if err != nil {
		return fmt.Errorf("marshaling required exercises: %w", err)
	}
	completed, err := json.Marshal(session.ExercisesCompleted)
	if err != nil {
		return fmt.Errorf("marshaling completions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cooldown_sessions
		(id, user_id, trigger_kind, trigger_severity, trigger_detail, trigger_action,
		 trigger_detected_at, required_exercises, exercises_completed,
		 created_at, expires_at, is_completed, is_skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID,
		string(session.TriggerReason.Kind), string(session.TriggerReason.Severity),
		session.TriggerReason.Detail, session.TriggerReason.SuggestedAction,
		session.TriggerReason.DetectedAt,
		string(required), string(completed),
		session.CreatedAt, session.ExpiresAt,
		boolToInt(session.IsCompleted), boolToInt(session.IsSkipped),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	return nil
}

// GetSession returns the session with the given ID.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.CooldownSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, trigger_kind, trigger_severity, trigger_detail,
		       trigger_action, trigger_detected_at, required_exercises,
		       exercises_completed, created_at, expires_at, is_completed, is_skipped
		FROM cooldown_sessions WHERE id = ?`, id)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	return session, err
}

// GetActiveSession returns the user's active session, or nil if none exists.
// Expired-but-incomplete sessions are still active: they keep blocking.
func (s *SQLiteStore) GetActiveSession(ctx context.Context, userID string) (*models.CooldownSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, trigger_kind, trigger_severity, trigger_detail,
		       trigger_action, trigger_detected_at, required_exercises,
		       exercises_completed, created_at, expires_at, is_completed, is_skipped
		FROM cooldown_sessions
		WHERE user_id = ? AND is_completed = 0 AND is_skipped = 0
		ORDER BY created_at DESC LIMIT 1`, userID)

	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return session, err
}

// UpdateSession persists session mutations.
func (s *SQLiteStore) UpdateSession(ctx context.Context, session *models.CooldownSession) error {
	completed, err := json.Marshal(session.ExercisesCompleted)
	if err != nil {
		return fmt.Errorf("marshaling completions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE cooldown_sessions
		SET exercises_completed = ?, is_completed = ?, is_skipped = ?
		WHERE id = ?`,
		string(completed), boolToInt(session.IsCompleted), boolToInt(session.IsSkipped), session.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetSessions returns sessions matching the filter, newest first.
func (s *SQLiteStore) GetSessions(ctx context.Context, filter SessionFilter) ([]models.CooldownSession, error) {
	query := `
		SELECT id, user_id, trigger_kind, trigger_severity, trigger_detail,
		       trigger_action, trigger_detected_at, required_exercises,
		       exercises_completed, created_at, expires_at, is_completed, is_skipped
		FROM cooldown_sessions WHERE 1=1`
	var args []interface{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.ActiveOnly {
		query += " AND is_completed = 0 AND is_skipped = 0"
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var sessions []models.CooldownSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// CreateApproval inserts a new trade approval.
func (s *SQLiteStore) CreateApproval(ctx context.Context, approval *models.TradeApproval) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trade_approvals (id, user_id, symbol, direction, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		approval.ID, approval.UserID, approval.Symbol, string(approval.Direction),
		string(approval.Status), approval.CreatedAt, approval.ExpiresAt)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	return nil
}

// GetApproval returns the approval with the given ID.
func (s *SQLiteStore) GetApproval(ctx context.Context, id string) (*models.TradeApproval, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, symbol, direction, status, created_at, expires_at
		FROM trade_approvals WHERE id = ?`, id)

	approval, err := scanApproval(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	return approval, err
}

// UpdateApproval persists approval mutations.
func (s *SQLiteStore) UpdateApproval(ctx context.Context, approval *models.TradeApproval) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE trade_approvals SET status = ? WHERE id = ?`,
		string(approval.Status), approval.ID)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// GetApprovals returns approvals matching the filter, newest first.
func (s *SQLiteStore) GetApprovals(ctx context.Context, filter ApprovalFilter) ([]models.TradeApproval, error) {
	query := `
		SELECT id, user_id, symbol, direction, status, created_at, expires_at
		FROM trade_approvals WHERE 1=1`
	var args []interface{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if !filter.ExpiredBefore.IsZero() {
		query += " AND expires_at < ?"
		args = append(args, filter.ExpiredBefore)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var approvals []models.TradeApproval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, *approval)
	}
	return approvals, rows.Err()
}

// GetProfile returns the user's discipline profile, or nil if none exists yet.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*models.DisciplineProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, score, violation_count, last_updated
		FROM discipline_profiles WHERE user_id = ?`, userID)

	var p models.DisciplineProfile
	var updated sql.NullTime
	err := row.Scan(&p.UserID, &p.Score, &p.ViolationCount, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	if updated.Valid {
		p.LastUpdated = updated.Time
	}
	return &p, nil
}

// SaveProfile upserts the user's discipline profile.
func (s *SQLiteStore) SaveProfile(ctx context.Context, profile *models.DisciplineProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO discipline_profiles (user_id, score, violation_count, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			score = excluded.score,
			violation_count = excluded.violation_count,
			last_updated = excluded.last_updated`,
		profile.UserID, profile.Score, profile.ViolationCount, profile.LastUpdated)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	return nil
}

// RecordScoreEvent appends to the score audit trail.
func (s *SQLiteStore) RecordScoreEvent(ctx context.Context, event *models.ScoreEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO score_events (user_id, delta, reason, timestamp)
		VALUES (?, ?, ?, ?)`,
		event.UserID, event.Delta, string(event.Reason), event.Timestamp)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	return nil
}

// RecentClosedTrades returns the user's closed trades since the given time,
// most recent exit first.
func (s *SQLiteStore) RecentClosedTrades(ctx context.Context, userID string, since time.Time) ([]models.ClosedTrade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, direction, exit_time, profit_or_loss
		FROM closed_trades
		WHERE user_id = ? AND exit_time >= ?
		ORDER BY exit_time DESC`, userID, since)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	defer rows.Close()

	var trades []models.ClosedTrade
	for rows.Next() {
		var t models.ClosedTrade
		var direction string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &direction, &t.ExitTime, &t.ProfitOrLoss); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
		}
		t.Direction = models.Direction(direction)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// InsertClosedTrade writes a trade into the journal mirror. Used by the
// sync tooling and tests, never by the core components.
func (s *SQLiteStore) InsertClosedTrade(ctx context.Context, trade *models.ClosedTrade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO closed_trades (id, user_id, symbol, direction, exit_time, profit_or_loss)
		VALUES (?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.UserID, trade.Symbol, string(trade.Direction), trade.ExitTime, trade.ProfitOrLoss)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	return nil
}

// scanner matches sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*models.CooldownSession, error) {
	var s models.CooldownSession
	var kind, severity string
	var detail, action sql.NullString
	var detectedAt sql.NullTime
	var required, completed string
	var isCompleted, isSkipped int

	err := row.Scan(&s.ID, &s.UserID, &kind, &severity, &detail, &action,
		&detectedAt, &required, &completed, &s.CreatedAt, &s.ExpiresAt,
		&isCompleted, &isSkipped)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}

	s.TriggerReason = models.Trigger{
		Kind:            models.TriggerKind(kind),
		Severity:        models.Severity(severity),
		Detail:          detail.String,
		SuggestedAction: action.String,
	}
	if detectedAt.Valid {
		s.TriggerReason.DetectedAt = detectedAt.Time
	}
	if err := json.Unmarshal([]byte(required), &s.RequiredExercises); err != nil {
		return nil, fmt.Errorf("unmarshaling required exercises: %w", err)
	}
	if err := json.Unmarshal([]byte(completed), &s.ExercisesCompleted); err != nil {
		return nil, fmt.Errorf("unmarshaling completions: %w", err)
	}
	s.IsCompleted = isCompleted != 0
	s.IsSkipped = isSkipped != 0
	return &s, nil
}

func scanApproval(row scanner) (*models.TradeApproval, error) {
	var a models.TradeApproval
	var direction, status string

	err := row.Scan(&a.ID, &a.UserID, &a.Symbol, &direction, &status, &a.CreatedAt, &a.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDatabaseError, err.Error())
	}
	a.Direction = models.Direction(direction)
	a.Status = models.ApprovalStatus(status)
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
