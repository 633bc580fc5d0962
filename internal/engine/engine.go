// Package engine ranks memories for retrieval and turns surprising
// events into new ones. The session lifecycle itself lives in
// internal/brain; the engine is the glue between the record store, the
// state machine, and the expectation model.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/synapse/internal/brain"
	"github.com/lazypower/synapse/internal/config"
	"github.com/lazypower/synapse/internal/predict"
	"github.com/lazypower/synapse/internal/store"
)

// Engine orchestrates retrieval, surprise capture, and maintenance.
type Engine struct {
	DB         *store.DB
	Classifier SeverityClassifier
	Config     config.EngineConfig
	stopCh     chan struct{}
}

// New creates an Engine with the default severity classifier.
func New(db *store.DB, cfg config.EngineConfig) *Engine {
	return &Engine{
		DB:         db,
		Classifier: KeywordClassifier{},
		Config:     cfg,
		stopCh:     make(chan struct{}),
	}
}

// Retrieve loads the project's records, rebuilds the tag index, and
// ranks against the query and recent tags.
func (e *Engine) Retrieve(projectID, query string, recentTags []string, state brain.State) (RetrievalResult, error) {
	records, err := e.DB.ListMemories(projectID)
	if err != nil {
		return RetrievalResult{}, fmt.Errorf("load records: %w", err)
	}
	index := BuildTagIndex(records)
	return RetrieveMemories(query, recentTags, records, index, state, e.Config), nil
}

// PrimeContext renders the session-start context injection: the
// project's strongest memories as a compact markdown block. Empty string
// when the project has no memories yet.
func (e *Engine) PrimeContext(projectID string, state brain.State) (string, error) {
	records, err := e.DB.ListMemories(projectID)
	if err != nil {
		return "", fmt.Errorf("load records: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	// ListMemories orders strongest-first already; take the early budget.
	limit := e.Config.AttentionEarly
	if len(records) < limit {
		limit = len(records)
	}

	var b strings.Builder
	b.WriteString("## Project memory\n\n")
	for _, rec := range records[:limit] {
		fmt.Fprintf(&b, "- [%s/%s] %s", rec.Type, rec.Severity, rec.Title)
		if rec.Rule != "" {
			fmt.Fprintf(&b, " — %s", rec.Rule)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// CaptureResult reports how an event was scored and whether it was
// captured as a new memory.
type CaptureResult struct {
	Signature string  `json:"signature"`
	Surprise  float64 `json:"surprise"`
	Captured  bool    `json:"captured"`
	MemoryID  string  `json:"memory_id,omitempty"`
}

// eventMemoryType maps an event category to the memory type it captures as.
func eventMemoryType(category string) string {
	switch category {
	case "error":
		return "pain"
	case "win":
		return "win"
	default:
		return "fact"
	}
}

// CaptureSurprise observes an event against the project's expectation
// model, persists the updated model, and auto-captures a memory when the
// surprise score clears the configured threshold. The surprise score is
// computed before the observation so the first sighting scores 1.0.
func (e *Engine) CaptureSurprise(projectID string, ev predict.Event) (CaptureResult, error) {
	if ev.Category == "" {
		return CaptureResult{}, fmt.Errorf("event category required")
	}

	model, recovered, err := e.DB.LoadExpectationModel(projectID)
	if err != nil {
		return CaptureResult{}, err
	}
	if recovered {
		log.Warn().Str("project", projectID).Msg("expectation model was reset")
	}

	sig := ev.Signature()
	result := CaptureResult{
		Signature: sig,
		Surprise:  predict.Surprise(model, sig),
	}

	model = predict.Observe(model, sig, time.Now())
	if err := e.DB.SaveExpectationModel(projectID, model); err != nil {
		return result, err
	}

	if result.Surprise < e.Config.SurpriseThreshold {
		return result, nil
	}

	content := ev.Detail
	if content == "" {
		content = sig
	}
	rec := &store.MemoryRecord{
		ProjectID: projectID,
		Type:      eventMemoryType(ev.Category),
		Title:     "Surprising " + strings.ReplaceAll(sig, "::", " "),
		Content:   content,
		Tags:      eventTags(ev),
		Severity:  e.Classifier.Classify(content),
	}
	if err := e.DB.CreateMemory(rec); err != nil {
		return result, fmt.Errorf("capture memory: %w", err)
	}

	result.Captured = true
	result.MemoryID = rec.ID
	log.Info().Str("project", projectID).Str("signature", sig).
		Float64("surprise", result.Surprise).Str("memory", rec.ID).
		Msg("captured surprising event")
	return result, nil
}

func eventTags(ev predict.Event) []string {
	var tags []string
	for _, t := range []string{ev.Category, ev.Subcategory, ev.ErrorClass, ev.ToolName, ev.PatternType} {
		if t != "" {
			tags = append(tags, strings.ToLower(t))
		}
	}
	return tags
}

// StartMaintenanceTimer reports stale memories on startup and then
// daily. Report only — decay of synaptic strength happens at session
// boundaries, not on a clock.
func (e *Engine) StartMaintenanceTimer() {
	e.reportStale()

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.reportStale()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) reportStale() {
	projects, err := e.DB.ListProjects()
	if err != nil {
		log.Error().Err(err).Msg("stale scan: list projects")
		return
	}

	now := time.Now()
	for _, project := range projects {
		state, recovered, err := e.DB.LoadBrainState(project)
		if err != nil {
			log.Error().Str("project", project).Err(err).Msg("stale scan: load state")
			continue
		}
		if state == nil || recovered {
			continue
		}
		if stale := brain.FindDecayed(*state, e.Config, now); len(stale) > 0 {
			log.Info().Str("project", project).Int("stale", len(stale)).Msg("memories past decay threshold")
		}
	}
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	close(e.stopCh)
}
