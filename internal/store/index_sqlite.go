package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"keykapp/internal/doc"
	"keykapp/internal/freq"
	"keykapp/internal/model"

	_ "modernc.org/sqlite"
)

// The sqlite index is derived from the shards and can be dropped at any time. It holds the
// document snapshot, the executed actions and the n-gram table for queries (stats, show).

func (s Store) IndexPath() string {
	return filepath.Join(s.localDir(), "index.sqlite")
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.IndexPath())
	if err != nil {
		return nil, err
	}
	// WAL allows a reader (keykapp stats) while the keypad reindexes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS entries (
			counter INTEGER NOT NULL,
			replica_id TEXT NOT NULL,
			action TEXT NOT NULL,
			kind TEXT NOT NULL,
			target TEXT,
			op_count INTEGER NOT NULL,
			issued_at_unixms INTEGER NOT NULL,
			PRIMARY KEY(counter, replica_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entries_action ON entries(action);`,
		`CREATE TABLE IF NOT EXISTS nodes (
			path TEXT PRIMARY KEY,
			depth INTEGER NOT NULL,
			kind TEXT NOT NULL,
			text TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ngrams (
			ids_json TEXT PRIMARY KEY,
			n INTEGER NOT NULL,
			count INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ngrams_n ON ngrams(n, count);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// IndexState is what Reindex stores.
type IndexState struct {
	Replica  string
	Entries  []model.Entry
	Document doc.Sexp
	NGrams   []freq.NGram
}

// Reindex replaces the whole index in one transaction.
func (s Store) Reindex(ctx context.Context, st IndexState) error {
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

	for _, table := range []string{"entries", "nodes", "ngrams"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}

	insEntry, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO entries(counter, replica_id, action, kind, target, op_count, issued_at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insEntry.Close()
	for _, e := range st.Entries {
		var target any
		if !e.Target.IsZero() {
			target = e.Target.String()
		}
		if _, err := insEntry.ExecContext(ctx, e.ID.Counter, e.ID.Replica, e.Action, string(e.Kind), target, len(e.Ops), e.IssuedAt.UnixMilli()); err != nil {
			return fmt.Errorf("index entry %v: %w", e.ID, err)
		}
	}

	insNode, err := tx.PrepareContext(ctx, `INSERT INTO nodes(path, depth, kind, text) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insNode.Close()
	var walk func(n doc.Sexp, path []int) error
	walk = func(n doc.Sexp, path []int) error {
		if _, err := insNode.ExecContext(ctx, joinPath(path), len(path), string(n.Kind), n.Text); err != nil {
			return err
		}
		for i, c := range n.Children {
			if err := walk(c, append(path, i)); err != nil {
				return err
			}
		}
		return nil
	}
	if st.Document.Kind != "" {
		if err := walk(st.Document, nil); err != nil {
			return fmt.Errorf("index nodes: %w", err)
		}
	}

	insGram, err := tx.PrepareContext(ctx, `INSERT INTO ngrams(ids_json, n, count) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insGram.Close()
	for _, g := range st.NGrams {
		raw, err := json.Marshal(g.IDs)
		if err != nil {
			return err
		}
		if _, err := insGram.ExecContext(ctx, string(raw), len(g.IDs), g.Count); err != nil {
			return fmt.Errorf("index ngram: %w", err)
		}
	}

	snap, err := json.Marshal(st.Document)
	if err != nil {
		return err
	}
	meta := map[string]string{
		"replica_id":    st.Replica,
		"indexed_at":    time.Now().UTC().Format(time.RFC3339Nano),
		"entry_count":   strconv.Itoa(len(st.Entries)),
		"snapshot_json": string(snap),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES(?, ?)`, k, v); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func joinPath(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// IndexedSnapshot returns the document stored by the last Reindex.
func (s Store) IndexedSnapshot(ctx context.Context) (doc.Sexp, bool, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return doc.Sexp{}, false, err
	}
	defer db.Close()

	var raw string
	err = db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = ?`, "snapshot_json").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return doc.Sexp{}, false, nil
	}
	if err != nil {
		return doc.Sexp{}, false, err
	}
	var out doc.Sexp
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return doc.Sexp{}, false, fmt.Errorf("index snapshot: %w", err)
	}
	return out, true, nil
}

// ActionCount is one row of ActionCounts.
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// ActionCounts returns how often each action was executed, most frequent first.
func (s Store) ActionCounts(ctx context.Context) ([]ActionCount, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT action, COUNT(*) AS c FROM entries GROUP BY action ORDER BY c DESC, action ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ActionCount{}
	for rows.Next() {
		var ac ActionCount
		if err := rows.Scan(&ac.Action, &ac.Count); err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}

// TopNGrams returns the most frequent n-grams of length n (n >= 2), at most limit rows.
func (s Store) TopNGrams(ctx context.Context, n, limit int) ([]freq.NGram, error) {
	if limit <= 0 {
		limit = 10
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT ids_json, count FROM ngrams WHERE n = ? ORDER BY count DESC, ids_json ASC LIMIT ?`, n, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []freq.NGram{}
	for rows.Next() {
		var (
			raw string
			g   freq.NGram
		)
		if err := rows.Scan(&raw, &g.Count); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &g.IDs); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
