package store

import (
	"context"
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "user_concepts: per-user concept nodes",
		SQL: `
CREATE TABLE user_concepts (
    user_id          TEXT NOT NULL,
    concept_id       TEXT NOT NULL,
    name             TEXT NOT NULL,
    level            INTEGER,

    -- Activity (unix millis); brightness is derived, never stored
    last_seen_at     INTEGER,
    last_practice_at INTEGER,

    -- Grading
    mastery_score    REAL,
    attempts         INTEGER NOT NULL DEFAULT 0,

    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL,

    PRIMARY KEY (user_id, concept_id)
);

CREATE INDEX idx_concepts_user_name ON user_concepts(user_id, name);
`,
	},
	{
		Version:     2,
		Description: "user_edges: typed relations between concepts",
		SQL: `
CREATE TABLE user_edges (
    user_id    TEXT NOT NULL,
    source_id  TEXT NOT NULL,
    target_id  TEXT NOT NULL,
    type       TEXT NOT NULL CHECK (type IN ('PREREQ', 'REL')),
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (user_id, source_id, target_id, type)
);

CREATE INDEX idx_edges_user ON user_edges(user_id);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	return db.schemaVersion(context.Background())
}

func (db *DB) schemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
