package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"healthline/internal/model"
)

// IndexMeta describes the last import into the events index.
type IndexMeta struct {
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"importedAt"`
	Count      int       `json:"count"`
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.SQLitePath())
	if err != nil {
		return nil, err
	}
	// WAL lets the TUI read while `events import` writes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			date_unixms INTEGER NOT NULL,
			category TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			milestone INTEGER NOT NULL,
			milestone_text TEXT NOT NULL,
			tags_json TEXT NOT NULL,
			ord INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(date_unixms, ord);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// SaveEvents replaces the whole index with events. ord keeps the input order so
// events sharing a date load back in the order they were imported.
func (s Store) SaveEvents(ctx context.Context, source string, events []model.Event) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(events))
	for i, ev := range events {
		id := strings.TrimSpace(ev.ID)
		if id == "" {
			return fmt.Errorf("event %d (%q): missing id", i, ev.Title)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("event %d (%q): duplicate id %q", i, ev.Title, id)
		}
		seen[id] = struct{}{}

		tags, err := json.Marshal(nonNilTags(ev.DatasetTags))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO events(id, date_unixms, category, title, body, milestone, milestone_text, tags_json, ord) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, ev.Date.UTC().UnixMilli(), string(ev.Category), ev.Title, ev.Body, boolToInt(ev.IsMilestone), ev.MilestoneText, string(tags), i); err != nil {
			return err
		}
	}

	meta := map[string]string{
		"source":             strings.TrimSpace(source),
		"imported_at_unixms": fmt.Sprintf("%d", time.Now().UTC().UnixMilli()),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES(?, ?)`, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadEvents returns the indexed events ordered by date, then import order.
func (s Store) LoadEvents(ctx context.Context) ([]model.Event, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, date_unixms, category, title, body, milestone, milestone_text, tags_json FROM events ORDER BY date_unixms, ord`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var (
			ev        model.Event
			ms        int64
			cat       string
			milestone int
			tags      string
		)
		if err := rows.Scan(&ev.ID, &ms, &cat, &ev.Title, &ev.Body, &milestone, &ev.MilestoneText, &tags); err != nil {
			return nil, err
		}
		ev.Date = time.UnixMilli(ms).UTC()
		ev.Category = model.CategoryID(cat)
		ev.IsMilestone = milestone != 0
		if err := json.Unmarshal([]byte(tags), &ev.DatasetTags); err != nil {
			return nil, fmt.Errorf("event %s: tags: %w", ev.ID, err)
		}
		if len(ev.DatasetTags) == 0 {
			ev.DatasetTags = nil
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Meta reports the last import. An empty index yields a zero IndexMeta.
func (s Store) Meta(ctx context.Context) (IndexMeta, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return IndexMeta{}, err
	}
	defer db.Close()

	var out IndexMeta
	readMeta := func(k string) (string, error) {
		var v string
		err := db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, k).Scan(&v)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return v, err
	}
	if out.Source, err = readMeta("source"); err != nil {
		return IndexMeta{}, err
	}
	ts, err := readMeta("imported_at_unixms")
	if err != nil {
		return IndexMeta{}, err
	}
	if ts != "" {
		var ms int64
		if _, err := fmt.Sscan(ts, &ms); err == nil {
			out.ImportedAt = time.UnixMilli(ms).UTC()
		}
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(1) FROM events`).Scan(&out.Count); err != nil {
		return IndexMeta{}, err
	}
	return out, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
