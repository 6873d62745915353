package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/prasanthmj/inboxtriage/pkg/triage"
)

// indexMigrations are applied in order; versions must be sequential from 1.
var indexMigrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS outcomes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	message_id  TEXT NOT NULL,
	from_addr   TEXT NOT NULL DEFAULT '',
	subject     TEXT NOT NULL DEFAULT '',
	category    TEXT NOT NULL,
	priority    REAL NOT NULL,
	escalation  INTEGER NOT NULL DEFAULT 0,
	summary     TEXT NOT NULL DEFAULT '',
	action      TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at ON outcomes(recorded_at);
CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

// Index keeps a queryable copy of every run's outcomes in SQLite. The JSON
// run log stays the record of truth.
type Index struct {
	db *sqlx.DB
}

// OpenIndex opens (or creates) the index database at dbPath and applies
// pending migrations.
func OpenIndex(dbPath string) (*Index, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening index db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return idx, nil
}

// Close closes the underlying database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) migrate() error {
	current := 0

	var tables int
	err := idx.db.Get(&tables,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tables > 0 {
		if err := idx.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range indexMigrations {
		if m.version <= current {
			continue
		}
		if _, err := idx.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// Record stores one run's outcomes in a single transaction.
func (idx *Index) Record(ctx context.Context, runID string, outcomes []triage.RunOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := idx.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO outcomes (
			run_id, message_id, from_addr, subject, category,
			priority, escalation, summary, action, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		_, err := stmt.ExecContext(ctx,
			runID, o.MessageID, o.From, o.Subject, string(o.Category),
			o.Priority, o.Escalation, o.Summary, string(o.Action), o.Timestamp.Unix(),
		)
		if err != nil {
			return fmt.Errorf("inserting outcome %s: %w", o.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing outcomes: %w", err)
	}
	return nil
}

// Stats aggregates indexed outcomes over a period.
type Stats struct {
	Since       time.Time      `json:"since"`
	Runs        int            `json:"runs"`
	Total       int            `json:"total"`
	Escalations int            `json:"escalations"`
	ByAction    map[string]int `json:"by_action"`
	ByCategory  map[string]int `json:"by_category"`
}

type countRow struct {
	Key   string `db:"k"`
	Count int    `db:"n"`
}

// Stats returns counts for everything recorded at or after since.
func (idx *Index) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	st := &Stats{
		Since:      since,
		ByAction:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	from := since.Unix()

	err := idx.db.GetContext(ctx, &st.Runs,
		"SELECT COUNT(DISTINCT run_id) FROM outcomes WHERE recorded_at >= ?", from)
	if err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}
	err = idx.db.GetContext(ctx, &st.Escalations,
		"SELECT COUNT(*) FROM outcomes WHERE recorded_at >= ? AND escalation = 1", from)
	if err != nil {
		return nil, fmt.Errorf("counting escalations: %w", err)
	}

	for column, dst := range map[string]map[string]int{"action": st.ByAction, "category": st.ByCategory} {
		var rows []countRow
		query := fmt.Sprintf(
			"SELECT %s AS k, COUNT(*) AS n FROM outcomes WHERE recorded_at >= ? GROUP BY %s", column, column)
		if err := idx.db.SelectContext(ctx, &rows, query, from); err != nil {
			return nil, fmt.Errorf("grouping by %s: %w", column, err)
		}
		for _, r := range rows {
			dst[r.Key] = r.Count
		}
	}

	for _, n := range st.ByAction {
		st.Total += n
	}
	return st, nil
}
