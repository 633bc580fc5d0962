package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/lazypower/synapse/internal/brain"
	"github.com/lazypower/synapse/internal/predict"
	"github.com/lazypower/synapse/internal/store"
)

func (s *Server) handleSessionInit(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	prev, recovered, err := s.db.LoadBrainState(projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	state := brain.Init(prev, time.Now())
	if err := s.db.SaveBrainState(projectID, state); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	context, err := s.engine.PrimeContext(projectID, state)
	if err != nil {
		log.Error().Str("project", projectID).Err(err).Msg("prime context")
		context = "" // session init must still succeed
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"phase":         state.ContextPhase,
		"message_count": state.MessageCount,
		"recovered":     recovered,
		"context":       context,
	})
}

// turnRequest is one assistant turn: the user's prompt (or a digest of
// it) plus whatever tags the collaborator considers recently active.
type turnRequest struct {
	Query      string   `json:"query"`
	RecentTags []string `json:"recent_tags"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	prev, _, err := s.db.LoadBrainState(projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now()
	var state brain.State
	if prev != nil {
		state = *prev
	} else {
		// Turn before init — start a session implicitly
		state = brain.Init(nil, now)
	}

	state = brain.Tick(state, s.cfg)

	result, err := s.engine.Retrieve(projectID, req.Query, req.RecentTags, state)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Fire the tags that actually surfaced alongside the caller's own.
	tags := append([]string(nil), req.RecentTags...)
	ids := make([]string, 0, len(result.Ranked))
	for _, m := range result.Ranked {
		ids = append(ids, m.Record.ID)
		tags = append(tags, m.Record.Tags...)
	}
	state = brain.RecordActivity(state, tags, now)
	state = brain.RecordTraces(state, ids, now)

	checkpoint := brain.ShouldCheckpoint(state, s.cfg)

	if err := s.db.SaveBrainState(projectID, state); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	turnsTotal.Inc()
	retrievedMemories.Observe(float64(len(result.Ranked)))
	if checkpoint {
		checkpointsTotal.Inc()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message_count": state.MessageCount,
		"phase":         state.ContextPhase,
		"checkpoint":    checkpoint,
		"memories":      result.Ranked,
		"truncated":     result.Truncated,
	})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	prev, _, err := s.db.LoadBrainState(projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if prev == nil {
		// Ending a session that never started is not a server error.
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "boosted": []string{}})
		return
	}

	state, boosted := brain.ApplyPlasticity(*prev, brain.DefaultBoost, brain.MaxStrength)

	if err := s.db.ApplyTraces(projectID, state.MemoryTraces); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.SaveBrainState(projectID, state); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if boosted == nil {
		boosted = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ended", "boosted": boosted})
}

func (s *Server) handleDecayed(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	state, _, err := s.db.LoadBrainState(projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	decayed := []brain.DecayedMemory{}
	if state != nil {
		if found := brain.FindDecayed(*state, s.cfg, time.Now()); found != nil {
			decayed = found
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"decayed": decayed})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var ev predict.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if ev.Category == "" {
		writeError(w, http.StatusBadRequest, "category required")
		return
	}

	result, err := s.engine.CaptureSurprise(projectID, ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	eventsTotal.Inc()
	if result.Captured {
		capturesTotal.Inc()
	}
	writeJSON(w, http.StatusOK, result)
}

type createMemoryRequest struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Rule     string   `json:"rule"`
	Tags     []string `json:"tags"`
	Severity string   `json:"severity"`
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	severity := req.Severity
	if severity == "" {
		severity = s.engine.Classifier.Classify(req.Title + " " + req.Content)
	}

	rec := &store.MemoryRecord{
		ProjectID: projectID,
		Type:      req.Type,
		Title:     req.Title,
		Content:   req.Content,
		Rule:      req.Rule,
		Tags:      req.Tags,
		Severity:  severity,
	}
	if err := s.db.CreateMemory(rec); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	records, err := s.db.ListMemories(projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []store.MemoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": records})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetMemory(chi.URLParam(r, "memoryID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	var upd store.RecordUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	rec, err := s.db.UpdateMemory(chi.URLParam(r, "memoryID"), upd)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "memory not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
