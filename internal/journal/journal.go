// Package journal keeps the outcome of every layer toggle in DuckDB.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joeblew999/plat-weather/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS toggle_events (
	at         TIMESTAMP NOT NULL,
	session_id VARCHAR   NOT NULL,
	layer_id   VARCHAR   NOT NULL,
	action     VARCHAR   NOT NULL,
	error      VARCHAR
)`

// Entry is one stored toggle outcome.
type Entry struct {
	At        time.Time `json:"at" doc:"When the toggle finished"`
	SessionID string    `json:"sessionId" doc:"Session that toggled"`
	LayerID   string    `json:"layerId" doc:"Layer identifier" example:"temperature"`
	Action    string    `json:"action" doc:"added or removed" enum:"added,removed"`
	Error     string    `json:"error,omitempty" doc:"Failure message, empty on success"`
}

// Filter narrows List results.
type Filter struct {
	SessionID string
	LayerID   string
	Offset    int
	Limit     int
}

// Store writes and reads toggle_events.
type Store struct {
	db *sql.DB
}

var _ session.Recorder = (*Store)(nil)

// New creates the table if needed.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("journal: nil database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("journal: creating table: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends one activity.
func (s *Store) Record(ctx context.Context, a session.Activity) error {
	var errText sql.NullString
	if a.Err != "" {
		errText = sql.NullString{String: a.Err, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO toggle_events (at, session_id, layer_id, action, error) VALUES (?, ?, ?, ?, ?)`,
		a.At, a.SessionID, a.LayerID, string(a.Action), errText)
	if err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// List returns the most recent entries first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	q := `SELECT at, session_id, layer_id, action, error FROM toggle_events WHERE 1=1`
	var args []any
	if f.SessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if f.LayerID != "" {
		q += ` AND layer_id = ?`
		args = append(args, f.LayerID)
	}
	q += fmt.Sprintf(` ORDER BY at DESC LIMIT %d OFFSET %d`, f.Limit, max(f.Offset, 0))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			errText sql.NullString
		)
		if err := rows.Scan(&e.At, &e.SessionID, &e.LayerID, &e.Action, &errText); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Failures counts failed toggles per layer.
func (s *Store) Failures(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT layer_id, count(*) FROM toggle_events WHERE error IS NOT NULL GROUP BY layer_id`)
	if err != nil {
		return nil, fmt.Errorf("journal: failures: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}
