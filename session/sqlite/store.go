// Package sqlite is a core.SessionStore persisting conversation events to a
// single SQLite file (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentrelay/core"
	"github.com/hupe1980/agentrelay/logging"
)

//go:embed schema.sql
var schemaScript string

// Options configures the store.
type Options struct {
	BusyTimeout time.Duration
	Logger      logging.Logger
}

// Store keeps one row per event, ordered by insertion, keyed by session id.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

var _ core.SessionStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and installs the schema.
func Open(ctx context.Context, path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{BusyTimeout: 5 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		path, opts.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: opts.Logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Debug("session.sqlite.open", "path", path)
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaScript, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema exec failed: %w (sql: %s)", err, stmt)
		}
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Get loads the session's events in insertion order. An unknown id yields an
// empty session.
func (s *Store) Get(ctx context.Context, sessionID string) (*core.Session, error) {
	sess := core.NewSession(sessionID)

	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM sessions WHERE id = ?`, sessionID,
	).Scan(&created, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return sess, nil
	case err != nil:
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM session_events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load events of %s: %w", sessionID, err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var ev core.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("decode event of %s: %w", sessionID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sess.AddEvents(events...)
	sess.Created, sess.Updated = time.Unix(0, created), time.Unix(0, updated)
	return sess, nil
}

// AppendEvents stores events atomically: either all are written or none.
func (s *Store) AppendEvents(ctx context.Context, sessionID string, events ...core.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UnixNano()
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, now, now,
	); err != nil {
		return fmt.Errorf("upsert session %s: %w", sessionID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO session_events (session_id, event_id, author, role, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ev := range events {
		payload, mErr := json.Marshal(ev)
		if mErr != nil {
			err = fmt.Errorf("encode event %s: %w", ev.ID, mErr)
			return err
		}
		role := ""
		if ev.Content != nil {
			role = ev.Content.Role
		}
		if _, err = stmt.ExecContext(ctx, sessionID, ev.ID, ev.Author, role, string(payload), ev.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("session.sqlite.append", "session_id", sessionID, "events", len(events))
	return nil
}

// Clear deletes the session and its events.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_events WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	return nil
}
