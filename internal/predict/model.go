// Package predict holds the frequency-based expectation model used to
// flag surprising events. It only classifies — turning a surprising
// event into a stored memory is the engine's job.
package predict

import (
	"strings"
	"time"
)

// Event is a discrete signal worth scoring: an error, a tool use, a
// detected pattern. Category and Subcategory are the fixed taxonomy;
// the class fields carry the open-ended detail.
type Event struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	ErrorClass  string `json:"error_class,omitempty"`
	ToolName    string `json:"tool_name,omitempty"`
	PatternType string `json:"pattern_type,omitempty"`

	// Detail is free text carried along for capture; it does not
	// participate in the signature.
	Detail string `json:"detail,omitempty"`
}

// Signature returns the deterministic fingerprint of the event:
// category, subcategory, and the first non-empty class field, joined
// with "::". Two events with the same inputs always collide.
func (e Event) Signature() string {
	parts := []string{e.Category}
	if e.Subcategory != "" {
		parts = append(parts, e.Subcategory)
	}
	for _, class := range []string{e.ErrorClass, e.ToolName, e.PatternType} {
		if class != "" {
			parts = append(parts, class)
			break
		}
	}
	return strings.Join(parts, "::")
}

// SignatureStat tracks how often one signature has been seen.
type SignatureStat struct {
	Count     int   `json:"count"`
	FirstSeen int64 `json:"first_seen"`
	LastSeen  int64 `json:"last_seen"`
}

// Model is the expectation model: observed signature frequencies.
// Invariant: TotalEvents equals the sum of all stat counts.
type Model struct {
	Frequencies map[string]SignatureStat `json:"frequencies"`
	TotalEvents int                      `json:"total_events"`
	LastUpdated int64                    `json:"last_updated"`
}

// NewModel returns an empty model.
func NewModel() Model {
	return Model{Frequencies: map[string]SignatureStat{}}
}

// Observe records one occurrence of a signature and returns the updated
// model. The input model is not mutated.
func Observe(m Model, signature string, now time.Time) Model {
	out := Model{
		Frequencies: make(map[string]SignatureStat, len(m.Frequencies)+1),
		TotalEvents: m.TotalEvents + 1,
		LastUpdated: now.UnixMilli(),
	}
	for k, v := range m.Frequencies {
		out.Frequencies[k] = v
	}

	stat := out.Frequencies[signature]
	if stat.Count == 0 {
		stat.FirstSeen = now.UnixMilli()
	}
	stat.Count++
	stat.LastSeen = now.UnixMilli()
	out.Frequencies[signature] = stat
	return out
}

// Surprise scores a signature in [0, 1]. Novel signatures score 1.0;
// signatures that account for most observed events score near 0. This
// is an inverse-frequency estimate, not a learned probability.
func Surprise(m Model, signature string) float64 {
	stat, ok := m.Frequencies[signature]
	if !ok || stat.Count == 0 || m.TotalEvents == 0 {
		return 1.0
	}
	score := 1.0 - float64(stat.Count)/float64(m.TotalEvents)
	if score < 0 {
		score = 0
	}
	return score
}
