// Package storage persists the login session across client launches. The
// live message history is deliberately not stored: history for non-active
// rooms is discarded to bound memory, and the server is the source of truth.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrNoRows = errors.New("no rows")

type Store struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a sqlite DB file.
func NewSQLiteStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set synchronous: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}

	return &Store{db: db}, nil
}

// Open opens the client database inside the data directory and runs
// migrations.
func Open(dataDir string) (*Store, error) {
	store, err := NewSQLiteStore(filepath.Join(dataDir, "kuttalk.db"))
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

// Migrate creates the session table. Idempotent.
func (s *Store) Migrate() error {
	const sqlStmt = `
CREATE TABLE IF NOT EXISTS session (
  id INTEGER PRIMARY KEY CHECK (id = 1), -- single row
  sid TEXT NOT NULL,
  userid TEXT NOT NULL,
  nickname TEXT,
  last_room INTEGER DEFAULT 0,
  saved_at INTEGER NOT NULL -- unix micro
);
`
	_, err := s.db.Exec(sqlStmt)
	return err
}

// SavedSession is the persisted login state restored on startup.
type SavedSession struct {
	SID      string
	UserID   string
	Nickname string
	LastRoom int64
	SavedAt  time.Time
}

// SaveSession upserts the single session row.
func (s *Store) SaveSession(ctx context.Context, sess *SavedSession) error {
	const q = `
INSERT INTO session (id, sid, userid, nickname, last_room, saved_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    sid = excluded.sid,
    userid = excluded.userid,
    nickname = excluded.nickname,
    last_room = excluded.last_room,
    saved_at = excluded.saved_at;
`
	_, err := s.db.ExecContext(ctx, q,
		sess.SID, sess.UserID, sess.Nickname, sess.LastRoom, time.Now().UnixMicro())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession returns the stored session or ErrNoRows.
func (s *Store) GetSession(ctx context.Context) (*SavedSession, error) {
	const q = `
SELECT sid, userid, nickname, last_room, saved_at FROM session WHERE id = 1 LIMIT 1;
`
	row := s.db.QueryRowContext(ctx, q)
	var (
		sid      string
		userid   string
		nickname sql.NullString
		lastRoom sql.NullInt64
		savedAt  sql.NullInt64
	)
	if err := row.Scan(&sid, &userid, &nickname, &lastRoom, &savedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("get session scan: %w", err)
	}
	return &SavedSession{
		SID:      sid,
		UserID:   userid,
		Nickname: nickname.String,
		LastRoom: lastRoom.Int64,
		SavedAt:  time.UnixMicro(savedAt.Int64),
	}, nil
}

// DeleteSession removes the stored session (logout).
func (s *Store) DeleteSession(ctx context.Context) error {
	const q = `DELETE FROM session WHERE id = 1;`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SetLastRoom records the most recently selected room (fast path).
func (s *Store) SetLastRoom(ctx context.Context, roomID int64) error {
	const q = `UPDATE session SET last_room = ? WHERE id = 1;`
	if _, err := s.db.ExecContext(ctx, q, roomID); err != nil {
		return fmt.Errorf("set last_room: %w", err)
	}
	return nil
}
