package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/synapse/internal/brain"
	"github.com/lazypower/synapse/internal/predict"
)

// LoadBrainState returns the persisted state for a project, or nil if
// none exists. A blob that fails to parse is treated as corruption:
// the state degrades to nil (fresh) and recovered is true so callers
// can surface the loss instead of failing the session.
func (db *DB) LoadBrainState(projectID string) (state *brain.State, recovered bool, err error) {
	var blob string
	err = db.QueryRow(`SELECT state FROM brain_states WHERE project_id = ?`, projectID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load brain state: %w", err)
	}

	var s brain.State
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		log.Warn().Str("project", projectID).Err(err).Msg("corrupt brain state, starting fresh")
		return nil, true, nil
	}
	return &s, false, nil
}

// SaveBrainState upserts the state blob for a project.
func (db *DB) SaveBrainState(projectID string, s brain.State) error {
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal brain state: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO brain_states (project_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, projectID, string(blob), now)
	if err != nil {
		return fmt.Errorf("save brain state: %w", err)
	}
	return nil
}

// LoadExpectationModel returns the persisted model for a project. Like
// brain state, corruption degrades to an empty model with recovered set.
func (db *DB) LoadExpectationModel(projectID string) (model predict.Model, recovered bool, err error) {
	var blob string
	err = db.QueryRow(`SELECT model FROM expectation_models WHERE project_id = ?`, projectID).Scan(&blob)
	if err == sql.ErrNoRows {
		return predict.NewModel(), false, nil
	}
	if err != nil {
		return predict.NewModel(), false, fmt.Errorf("load expectation model: %w", err)
	}

	var m predict.Model
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		log.Warn().Str("project", projectID).Err(err).Msg("corrupt expectation model, starting fresh")
		return predict.NewModel(), true, nil
	}
	if m.Frequencies == nil {
		m.Frequencies = map[string]predict.SignatureStat{}
	}
	return m, false, nil
}

// SaveExpectationModel upserts the model blob for a project.
func (db *DB) SaveExpectationModel(projectID string, m predict.Model) error {
	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal expectation model: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO expectation_models (project_id, model, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET model = excluded.model, updated_at = excluded.updated_at
	`, projectID, string(blob), now)
	if err != nil {
		return fmt.Errorf("save expectation model: %w", err)
	}
	return nil
}

// ListProjects returns every project id that has persisted state or
// memories. Used by the maintenance scan.
func (db *DB) ListProjects() ([]string, error) {
	rows, err := db.Query(`
		SELECT project_id FROM brain_states
		UNION
		SELECT DISTINCT project_id FROM memories
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
