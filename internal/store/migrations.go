package store

import (
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
		Description: "memories: per-project memory records",
		SQL: `
CREATE TABLE memories (
    id                TEXT PRIMARY KEY,
    project_id        TEXT NOT NULL,
    mem_type          TEXT NOT NULL CHECK (mem_type IN ('pain', 'win', 'fact', 'decision', 'architecture')),
    title             TEXT NOT NULL,
    content           TEXT,
    rule              TEXT,
    tags              TEXT NOT NULL DEFAULT '[]',
    severity          TEXT NOT NULL CHECK (severity IN ('low', 'medium', 'high')),

    -- Derived fields, owned by the session state machine
    access_count      INTEGER NOT NULL DEFAULT 0,
    last_accessed     INTEGER,
    synaptic_strength REAL NOT NULL DEFAULT 1.0,

    created_at        INTEGER NOT NULL
);

CREATE INDEX idx_memories_project  ON memories(project_id);
CREATE INDEX idx_memories_type     ON memories(project_id, mem_type);
CREATE INDEX idx_memories_strength ON memories(project_id, synaptic_strength DESC);
`,
	},
	{
		Version:     2,
		Description: "brain_states: per-project session state blob",
		SQL: `
CREATE TABLE brain_states (
    project_id TEXT PRIMARY KEY,
    state      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`,
	},
	{
		Version:     3,
		Description: "expectation_models: per-project event frequency blob",
		SQL: `
CREATE TABLE expectation_models (
    project_id TEXT PRIMARY KEY,
    model      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
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
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
