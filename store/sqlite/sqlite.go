/*
Package sqlite provides a SQLite-backed implementation of surf.Backend.

PURPOSE:
  Local stand-in for the hosted database. Holds the same three tables the
  surf app writes to (surf_breaks, surf_sessions, forecast_data) plus a
  users table mapping access tokens to users, so the debug page can run
  against a local copy or seeded demo data.

INTERFACES IMPLEMENTED:
  surf.Backend: CurrentUser, ListBreaks, ListSessions, ListAllForecasts

KEY TABLES:
  users:          id, email, access_token
  surf_breaks:    Breaks owned by a user
  surf_sessions:  Logged sessions (session_date, session_time, rating)
  forecast_data:  Scraped forecasts (forecast_date, forecast_time,
                  swell_height, wind_speed)

ORDERING:
  Reads return rows in insertion order (rowid). The report treats the first
  break as the primary one, so this must be stable across calls.

DECIMALS:
  swell_height and wind_speed are stored as TEXT and parsed with
  shopspring/decimal to keep exact values.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The loader reads three tables
  concurrently; readers don't block each other.

USAGE:
  store, err := sqlite.New("./data/surf.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  loader := surf.NewLoader(store, logger)

SEE ALSO:
  - surf/backend.go: Interface definition
  - surf/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/surf-debug/surf"
)

// Store implements surf.Backend using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT,
		access_token TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS surf_breaks (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_breaks_user
		ON surf_breaks(user_id);

	CREATE TABLE IF NOT EXISTS surf_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		break_id TEXT NOT NULL,
		session_date TEXT NOT NULL,
		session_time TEXT NOT NULL,
		rating INTEGER DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user
		ON surf_sessions(user_id);

	-- Forecasts are shared across users; no owner column
	CREATE TABLE IF NOT EXISTS forecast_data (
		id TEXT PRIMARY KEY,
		break_id TEXT NOT NULL,
		forecast_date TEXT NOT NULL,
		forecast_time TEXT NOT NULL,
		swell_height TEXT NOT NULL,
		wind_speed TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_forecast_break_slot
		ON forecast_data(break_id, forecast_date, forecast_time);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Reset deletes all rows. Used by demo scenarios.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"forecast_data", "surf_sessions", "surf_breaks", "users"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// USERS
// =============================================================================

// SaveUser saves a user and the access token that resolves to it.
func (s *Store) SaveUser(ctx context.Context, u surf.User, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (id, email, access_token, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			access_token = excluded.access_token
	`

	_, err := s.db.ExecContext(ctx, query,
		string(u.ID), u.Email, nullString(accessToken), now(),
	)
	return err
}

// CurrentUser resolves an access token. Unknown tokens return (nil, nil).
func (s *Store) CurrentUser(ctx context.Context, accessToken string) (*surf.User, error) {
	if accessToken == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var u surf.User
	var email sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email FROM users WHERE access_token = ?",
		accessToken,
	).Scan(&u.ID, &email)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	return &u, nil
}

// =============================================================================
// BREAKS
// =============================================================================

// SaveBreak saves a surf break.
func (s *Store) SaveBreak(ctx context.Context, b surf.Break) error {
	if err := b.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO surf_breaks (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name
	`

	_, err := s.db.ExecContext(ctx, query, string(b.ID), string(b.UserID), b.Name, now())
	return err
}

// ListBreaks returns the user's breaks in insertion order.
func (s *Store) ListBreaks(ctx context.Context, userID surf.UserID) ([]surf.Break, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name FROM surf_breaks WHERE user_id = ? ORDER BY rowid",
		string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var breaks []surf.Break
	for rows.Next() {
		var b surf.Break
		if err := rows.Scan(&b.ID, &b.UserID, &b.Name); err != nil {
			return nil, err
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		breaks = append(breaks, b)
	}
	return breaks, rows.Err()
}

// =============================================================================
// SESSIONS
// =============================================================================

// SaveSession saves a logged session.
func (s *Store) SaveSession(ctx context.Context, sess surf.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.UserID == "" {
		return &surf.MalformedRecordError{Table: "surf_sessions", RowID: string(sess.ID), Field: "user_id", Reason: "required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO surf_sessions (id, user_id, break_id, session_date, session_time, rating, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			break_id = excluded.break_id,
			session_date = excluded.session_date,
			session_time = excluded.session_time,
			rating = excluded.rating
	`

	_, err := s.db.ExecContext(ctx, query,
		string(sess.ID), string(sess.UserID), string(sess.BreakID),
		sess.Date, sess.Time, sess.Rating, now(),
	)
	return err
}

// ListSessions returns the user's sessions in insertion order.
func (s *Store) ListSessions(ctx context.Context, userID surf.UserID) ([]surf.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, break_id, session_date, session_time, rating
		FROM surf_sessions WHERE user_id = ? ORDER BY rowid`,
		string(userID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []surf.Session
	for rows.Next() {
		var sess surf.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.BreakID, &sess.Date, &sess.Time, &sess.Rating); err != nil {
			return nil, err
		}
		if err := sess.Validate(); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// =============================================================================
// FORECASTS
// =============================================================================

// SaveForecast saves a forecast record.
func (s *Store) SaveForecast(ctx context.Context, f surf.ForecastRecord) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.ID == "" {
		return &surf.MalformedRecordError{Table: "forecast_data", Field: "id", Reason: "required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO forecast_data (id, break_id, forecast_date, forecast_time, swell_height, wind_speed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			break_id = excluded.break_id,
			forecast_date = excluded.forecast_date,
			forecast_time = excluded.forecast_time,
			swell_height = excluded.swell_height,
			wind_speed = excluded.wind_speed
	`

	_, err := s.db.ExecContext(ctx, query,
		string(f.ID), string(f.BreakID), f.Date, f.Time,
		f.SwellHeight.String(), f.WindSpeed.String(), now(),
	)
	return err
}

// ListAllForecasts returns every forecast record in insertion order. Date
// and time are not checked here; the loader validates only the rows at the
// user's breaks. swell_height and wind_speed are written by SaveForecast
// alone, so an unparseable value means a corrupt table and fails the read.
func (s *Store) ListAllForecasts(ctx context.Context) ([]surf.ForecastRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, break_id, forecast_date, forecast_time, swell_height, wind_speed
		FROM forecast_data ORDER BY rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []surf.ForecastRecord
	for rows.Next() {
		var f surf.ForecastRecord
		var swell, wind string
		if err := rows.Scan(&f.ID, &f.BreakID, &f.Date, &f.Time, &swell, &wind); err != nil {
			return nil, err
		}
		if f.SwellHeight, err = parseDecimal("swell_height", string(f.ID), swell); err != nil {
			return nil, err
		}
		if f.WindSpeed, err = parseDecimal("wind_speed", string(f.ID), wind); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}

// Helper functions

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(field, rowID, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, &surf.MalformedRecordError{
			Table:  "forecast_data",
			RowID:  rowID,
			Field:  field,
			Reason: fmt.Sprintf("not a number: %q", value),
		}
	}
	return d, nil
}
