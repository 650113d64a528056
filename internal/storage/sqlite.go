package storage

import (
	logx "carebot/pkg/logx"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	activity_id TEXT    NOT NULL,
	activity    TEXT    NOT NULL,
	started_ms  INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	err         TEXT,
	panicked    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started_ms);
CREATE INDEX IF NOT EXISTS runs_activity ON runs(activity, started_ms);
`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = time.Second
	}
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			log.Debug("sqlite pragma failed", logx.String("pragma", p), logx.Err(err))
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) AppendRun(ctx context.Context, e RunEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(activity_id, activity, started_ms, duration_ms, err, panicked) VALUES(?,?,?,?,?,?)`,
		e.ActivityID, e.Activity, e.Started.UnixMilli(), e.DurationMS, nullStr(e.Error), e.Panicked,
	)
	return err
}

func (s *sqliteStore) RecentRuns(ctx context.Context, activity string, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	q := `SELECT activity_id, activity, started_ms, duration_ms, err, panicked FROM runs`
	args := []any{}
	if activity != "" {
		q += ` WHERE activity = ?`
		args = append(args, activity)
	}
	q += ` ORDER BY started_ms DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunEntry
	for rows.Next() {
		var (
			e         RunEntry
			startedMS int64
			errText   sql.NullString
		)
		if err := rows.Scan(&e.ActivityID, &e.Activity, &startedMS, &e.DurationMS, &errText, &e.Panicked); err != nil {
			return nil, err
		}
		e.Started = time.UnixMilli(startedMS)
		e.Error = errText.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *sqliteStore) PruneRuns(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
