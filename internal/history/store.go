// SPDX-License-Identifier: MIT

// Package history persists the recorded-programme log consulted by the
// deduplication filter and by recorded-showing seeding.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go driver

	"github.com/svoss/recplan/internal/log"
	"github.com/svoss/recplan/internal/plan"
)

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	showing_id  TEXT PRIMARY KEY,
	rule_id     TEXT NOT NULL DEFAULT '',
	dedup_key   TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL DEFAULT '',
	channel_id  TEXT NOT NULL DEFAULT '',
	start_at    INTEGER NOT NULL,
	end_at      INTEGER NOT NULL,
	recorded_at INTEGER NOT NULL,
	previous    INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_recordings_dedup_key ON recordings(dedup_key);
`

// Entry is one finished recording.
type Entry struct {
	ShowingID  plan.ShowingID
	RuleID     string
	DedupKey   string
	Title      string
	ChannelID  plan.ChannelID
	Start      time.Time
	End        time.Time
	RecordedAt time.Time
	// Previous marks recordings imported from before this catalog.
	Previous bool
}

// Store wraps the sqlite-backed recording log. It satisfies plan.History.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open initialises the database with WAL mode and busy-timeout pragmas
// applied to every pooled connection via the DSN.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open failed: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: schema failed: %w", err)
	}

	return &Store{db: db, logger: log.WithComponent("history")}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// MarkRecorded records a finished recording. Re-recording the same showing
// overwrites the prior row.
func (s *Store) MarkRecorded(ctx context.Context, e Entry) error {
	recordedAt := e.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recordings (showing_id, rule_id, dedup_key, title, channel_id, start_at, end_at, recorded_at, previous)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(showing_id) DO UPDATE SET
			rule_id = excluded.rule_id,
			dedup_key = excluded.dedup_key,
			recorded_at = excluded.recorded_at`,
		string(e.ShowingID), e.RuleID, e.DedupKey, e.Title, string(e.ChannelID),
		e.Start.Unix(), e.End.Unix(), recordedAt.Unix(), boolToInt(e.Previous),
	)
	if err != nil {
		return fmt.Errorf("history: mark recorded: %w", err)
	}
	return nil
}

// Forget removes a showing from the log, allowing it to record again.
func (s *Store) Forget(ctx context.Context, id plan.ShowingID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE showing_id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("history: forget: %w", err)
	}
	return nil
}

// EpisodeRecorded implements plan.History. Lookup failures are logged and
// treated as "not recorded" so a broken history never suppresses recordings.
func (s *Store) EpisodeRecorded(key string, scope plan.DedupScope) bool {
	if key == "" {
		return false
	}
	q := `SELECT COUNT(1) FROM recordings WHERE dedup_key = ?`
	switch scope {
	case plan.ScopeCurrent:
		q += ` AND previous = 0`
	case plan.ScopePrevious:
		q += ` AND previous = 1`
	}
	var n int
	if err := s.db.QueryRow(q, key).Scan(&n); err != nil {
		s.logger.Error().Err(err).Msg("episode lookup failed")
		return false
	}
	return n > 0
}

// ShowingRecorded implements plan.History.
func (s *Store) ShowingRecorded(id plan.ShowingID) bool {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM recordings WHERE showing_id = ?`, string(id)).Scan(&n)
	if err != nil {
		s.logger.Error().Err(err).Str(log.FieldShowingID, string(id)).Msg("showing lookup failed")
		return false
	}
	return n > 0
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT showing_id, rule_id, dedup_key, title, channel_id, start_at, end_at, recorded_at, previous
		FROM recordings ORDER BY recorded_at DESC, showing_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var sid, cid string
		var startAt, endAt, recordedAt int64
		var prev int
		if err := rows.Scan(&sid, &e.RuleID, &e.DedupKey, &e.Title, &cid, &startAt, &endAt, &recordedAt, &prev); err != nil {
			return nil, err
		}
		e.ShowingID = plan.ShowingID(sid)
		e.ChannelID = plan.ChannelID(cid)
		e.Start = time.Unix(startAt, 0).UTC()
		e.End = time.Unix(endAt, 0).UTC()
		e.RecordedAt = time.Unix(recordedAt, 0).UTC()
		e.Previous = prev != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
