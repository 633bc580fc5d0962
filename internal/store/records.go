package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lazypower/synapse/internal/brain"
)

// MemoryRecord is a stored lesson, fact, or decision.
type MemoryRecord struct {
	ID               string   `json:"id"`
	ProjectID        string   `json:"project_id"`
	Type             string   `json:"type"`
	Title            string   `json:"title"`
	Content          string   `json:"content,omitempty"`
	Rule             string   `json:"rule,omitempty"`
	Tags             []string `json:"tags"`
	Severity         string   `json:"severity"`
	AccessCount      int      `json:"access_count"`
	LastAccessed     *int64   `json:"last_accessed,omitempty"`
	SynapticStrength float64  `json:"synaptic_strength"`
	CreatedAt        int64    `json:"created_at"`
}

// ValidTypes are the allowed memory types.
var ValidTypes = map[string]bool{
	"pain":         true,
	"win":          true,
	"fact":         true,
	"decision":     true,
	"architecture": true,
}

// ValidSeverities are the allowed severity levels.
var ValidSeverities = map[string]bool{
	"low":    true,
	"medium": true,
	"high":   true,
}

// CreateMemory inserts a new memory record. Generates a ULID when the id
// is unset; strength starts neutral. Commits before returning.
func (db *DB) CreateMemory(rec *MemoryRecord) error {
	if rec.ProjectID == "" {
		return fmt.Errorf("create memory: project_id required")
	}
	if !ValidTypes[rec.Type] {
		return fmt.Errorf("create memory: invalid type %q", rec.Type)
	}
	if !ValidSeverities[rec.Severity] {
		return fmt.Errorf("create memory: invalid severity %q", rec.Severity)
	}
	if rec.Title == "" {
		return fmt.Errorf("create memory: title required")
	}

	if rec.ID == "" {
		rec.ID = db.NewID()
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	now := time.Now().UnixMilli()
	_, err = db.Exec(`
		INSERT INTO memories (id, project_id, mem_type, title, content, rule, tags, severity,
			access_count, last_accessed, synaptic_strength, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)
	`, rec.ID, rec.ProjectID, rec.Type, rec.Title, rec.Content, rec.Rule,
		string(tags), rec.Severity, brain.NeutralStrength, now)
	if err != nil {
		return fmt.Errorf("create memory: %w", err)
	}

	rec.AccessCount = 0
	rec.LastAccessed = nil
	rec.SynapticStrength = brain.NeutralStrength
	rec.CreatedAt = now
	return nil
}

const recordColumns = `id, project_id, mem_type, title, content, rule, tags, severity,
	access_count, last_accessed, synaptic_strength, created_at`

func scanRecord(row interface{ Scan(...any) error }) (*MemoryRecord, error) {
	var rec MemoryRecord
	var content, rule, tags sql.NullString
	var lastAccessed sql.NullInt64
	err := row.Scan(&rec.ID, &rec.ProjectID, &rec.Type, &rec.Title, &content, &rule,
		&tags, &rec.Severity, &rec.AccessCount, &lastAccessed, &rec.SynapticStrength, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Content = content.String
	rec.Rule = rule.String
	if lastAccessed.Valid {
		rec.LastAccessed = &lastAccessed.Int64
	}
	rec.Tags = []string{}
	if tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &rec.Tags); err != nil {
			return nil, fmt.Errorf("corrupt tags for memory %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

// GetMemory returns a record by id, or nil if not found.
func (db *DB) GetMemory(id string) (*MemoryRecord, error) {
	row := db.QueryRow(`SELECT `+recordColumns+` FROM memories WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return rec, nil
}

// ListMemories returns all records for a project, strongest first.
func (db *DB) ListMemories(projectID string) ([]MemoryRecord, error) {
	rows, err := db.Query(`
		SELECT `+recordColumns+` FROM memories
		WHERE project_id = ?
		ORDER BY synaptic_strength DESC, created_at DESC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var records []MemoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// RecordUpdate is a partial update; nil fields are left untouched.
type RecordUpdate struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Rule     *string   `json:"rule,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Severity *string   `json:"severity,omitempty"`
}

// UpdateMemory applies a partial update and returns the updated record,
// or nil if the id is unknown.
func (db *DB) UpdateMemory(id string, upd RecordUpdate) (*MemoryRecord, error) {
	rec, err := db.GetMemory(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	if upd.Title != nil {
		if *upd.Title == "" {
			return nil, fmt.Errorf("update memory: title cannot be empty")
		}
		rec.Title = *upd.Title
	}
	if upd.Content != nil {
		rec.Content = *upd.Content
	}
	if upd.Rule != nil {
		rec.Rule = *upd.Rule
	}
	if upd.Tags != nil {
		rec.Tags = *upd.Tags
	}
	if upd.Severity != nil {
		if !ValidSeverities[*upd.Severity] {
			return nil, fmt.Errorf("update memory: invalid severity %q", *upd.Severity)
		}
		rec.Severity = *upd.Severity
	}

	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	_, err = db.Exec(`
		UPDATE memories SET title = ?, content = ?, rule = ?, tags = ?, severity = ?
		WHERE id = ?
	`, rec.Title, rec.Content, rec.Rule, string(tags), rec.Severity, id)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	return rec, nil
}

// ApplyTraces writes the state machine's trace ledger back onto memory
// rows: access count, last access, and synaptic strength. Rows without a
// trace are untouched; traces for unknown ids are skipped silently.
func (db *DB) ApplyTraces(projectID string, traces map[string]brain.MemoryTrace) error {
	if len(traces) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin trace sync: %w", err)
	}

	for id, trace := range traces {
		_, err := tx.Exec(`
			UPDATE memories
			SET access_count = ?, last_accessed = ?, synaptic_strength = ?
			WHERE id = ? AND project_id = ?
		`, trace.Count, trace.LastAccessed, trace.SynapticStrength, id, projectID)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sync trace %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trace sync: %w", err)
	}
	return nil
}
