package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/lazypower/synapse/internal/brain"
	"github.com/lazypower/synapse/internal/config"
	"github.com/lazypower/synapse/internal/store"
)

// Composite score weights. Term overlap dominates, then current synaptic
// strength, then severity; staleness subtracts a flat penalty.
const (
	weightOverlap  = 0.4
	weightStrength = 0.3
	weightSeverity = 0.2
	stalePenalty   = 0.1
)

// ScoredMemory is one ranked retrieval hit.
type ScoredMemory struct {
	Record store.MemoryRecord `json:"record"`
	Score  float64            `json:"score"`
}

// RetrievalResult is the ranked, budget-truncated answer to a query.
type RetrievalResult struct {
	Ranked    []ScoredMemory `json:"ranked"`
	Truncated bool           `json:"truncated"`
}

var severityRank = map[string]int{"low": 1, "medium": 2, "high": 3}

func severityWeight(severity string) float64 {
	switch severity {
	case "high":
		return 1.0
	case "medium":
		return 0.5
	default:
		return 0.25
	}
}

// AttentionBudget returns the max ranked memories for a context phase.
// The budget shrinks as the phase advances: late-session context is
// expensive, so only the highest-confidence memories compete.
func AttentionBudget(phase brain.Phase, cfg config.EngineConfig) int {
	switch phase {
	case brain.PhaseLate:
		return cfg.AttentionLate
	case brain.PhaseMid:
		return cfg.AttentionMid
	default:
		return cfg.AttentionEarly
	}
}

// RetrieveMemories ranks records against a query and the session's
// recent tags. Candidates come from tag-index hits on the query tokens
// and recent tags; each is scored by term overlap, severity, and current
// synaptic strength, with a penalty for staleness. Ties break by
// severity, then newest first. The result is truncated to the phase's
// attention budget.
//
// An empty record set yields an empty, non-truncated result. A query
// with zero tokens still matches via recentTags.
func RetrieveMemories(query string, recentTags []string, records []store.MemoryRecord,
	index TagIndex, state brain.State, cfg config.EngineConfig) RetrievalResult {

	if len(records) == 0 {
		return RetrievalResult{Ranked: []ScoredMemory{}}
	}

	terms := Tokenize(query)
	for _, tag := range recentTags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			terms = append(terms, tag)
		}
	}
	if len(terms) == 0 {
		return RetrievalResult{Ranked: []ScoredMemory{}}
	}

	// Dedup terms, count index hits per candidate
	seen := make(map[string]bool, len(terms))
	hits := map[string]int{}
	uniqueTerms := 0
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		uniqueTerms++
		for id := range index[term] {
			hits[id]++
		}
	}
	if len(hits) == 0 {
		return RetrievalResult{Ranked: []ScoredMemory{}}
	}

	staleBefore := time.Now().UnixMilli() - int64(cfg.DecayThresholdDays)*24*60*60*1000

	var ranked []ScoredMemory
	for _, rec := range records {
		matched, ok := hits[rec.ID]
		if !ok {
			continue
		}

		overlap := float64(matched) / float64(uniqueTerms)

		strength := brain.NeutralStrength
		var lastAccessed int64
		if trace, ok := state.MemoryTraces[rec.ID]; ok {
			strength = trace.SynapticStrength
			lastAccessed = trace.LastAccessed
		} else if rec.LastAccessed != nil {
			strength = rec.SynapticStrength
			lastAccessed = *rec.LastAccessed
		}

		score := weightOverlap*overlap +
			weightStrength*(strength/brain.MaxStrength) +
			weightSeverity*severityWeight(rec.Severity)
		if lastAccessed > 0 && lastAccessed < staleBefore {
			score -= stalePenalty
		}

		ranked = append(ranked, ScoredMemory{Record: rec, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		si, sj := severityRank[ranked[i].Record.Severity], severityRank[ranked[j].Record.Severity]
		if si != sj {
			return si > sj
		}
		return ranked[i].Record.CreatedAt > ranked[j].Record.CreatedAt
	})

	budget := AttentionBudget(state.ContextPhase, cfg)
	truncated := false
	if len(ranked) > budget {
		ranked = ranked[:budget]
		truncated = true
	}

	return RetrievalResult{Ranked: ranked, Truncated: truncated}
}
