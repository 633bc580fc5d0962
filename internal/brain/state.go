// Package brain owns the per-project session state: message counting,
// context phase, tag firing activity, and the per-memory synaptic trace
// ledger. Every transition is a pure value→value function — callers hold
// the current State, apply a transition, and persist the result. There is
// exactly one logical writer per project at a time, so the package does
// no locking of its own.
package brain

import (
	"math"
	"sort"
	"time"

	"github.com/lazypower/synapse/internal/config"
)

// Phase is the context phase of a session, derived purely from the
// message count and the configured thresholds. It never regresses
// within a session.
type Phase string

const (
	PhaseEarly Phase = "early"
	PhaseMid   Phase = "mid"
	PhaseLate  Phase = "late"
)

// Synaptic strength constants. New traces start neutral; decay pulls
// strength back toward neutral; plasticity pushes it up to the ceiling.
const (
	NeutralStrength = 1.0
	MaxStrength     = 2.0
	DefaultBoost    = 0.1
	decayRate       = 0.1
)

// TagActivity tracks cross-session usage of a single tag.
type TagActivity struct {
	Count   int   `json:"count"`
	LastHit int64 `json:"last_hit"`
}

// MemoryTrace is the durable decay ledger entry for one memory.
type MemoryTrace struct {
	Count            int     `json:"count"`
	LastAccessed     int64   `json:"last_accessed"`
	SynapticStrength float64 `json:"synaptic_strength"`
}

// State is the per-project brain state, persisted across sessions.
// SynapticActivity and MemoryTraces are cumulative; MessageCount,
// ContextPhase, FiringFrequency, and ActiveTraces are session-local
// and reset by Init.
type State struct {
	SessionStart     int64                  `json:"session_start"`
	MessageCount     int                    `json:"message_count"`
	ContextPhase     Phase                  `json:"context_phase"`
	SynapticActivity map[string]TagActivity `json:"synaptic_activity"`
	FiringFrequency  map[string]int         `json:"firing_frequency"`
	MemoryTraces     map[string]MemoryTrace `json:"memory_traces"`
	ActiveTraces     []string               `json:"active_traces"`
}

// clone returns a deep copy so transitions never mutate their input.
func (s State) clone() State {
	out := s
	out.SynapticActivity = make(map[string]TagActivity, len(s.SynapticActivity))
	for k, v := range s.SynapticActivity {
		out.SynapticActivity[k] = v
	}
	out.FiringFrequency = make(map[string]int, len(s.FiringFrequency))
	for k, v := range s.FiringFrequency {
		out.FiringFrequency[k] = v
	}
	out.MemoryTraces = make(map[string]MemoryTrace, len(s.MemoryTraces))
	for k, v := range s.MemoryTraces {
		out.MemoryTraces[k] = v
	}
	out.ActiveTraces = append([]string(nil), s.ActiveTraces...)
	return out
}

// Init builds the session's fresh state. When prev exists its traces are
// decayed first, then the session-local fields are reset; cumulative tag
// activity and the decayed trace ledger carry over.
func Init(prev *State, now time.Time) State {
	if prev == nil {
		return State{
			SessionStart:     now.UnixMilli(),
			ContextPhase:     PhaseEarly,
			SynapticActivity: map[string]TagActivity{},
			FiringFrequency:  map[string]int{},
			MemoryTraces:     map[string]MemoryTrace{},
			ActiveTraces:     []string{},
		}
	}

	s := ApplyDecay(*prev)
	s.SessionStart = now.UnixMilli()
	s.MessageCount = 0
	s.ContextPhase = PhaseEarly
	s.FiringFrequency = map[string]int{}
	s.ActiveTraces = []string{}
	return s
}

// phaseFor derives the context phase from a message count.
func phaseFor(count int, cfg config.EngineConfig) Phase {
	switch {
	case count >= cfg.ContextPhaseLate:
		return PhaseLate
	case count >= cfg.ContextPhaseMid:
		return PhaseMid
	default:
		return PhaseEarly
	}
}

// Tick increments the message count and recomputes the context phase.
func Tick(s State, cfg config.EngineConfig) State {
	out := s.clone()
	out.MessageCount++
	out.ContextPhase = phaseFor(out.MessageCount, cfg)
	return out
}

// RecordActivity bumps cross-session synaptic activity and session-local
// firing frequency for each tag. Empty input returns the state unchanged.
func RecordActivity(s State, tags []string, now time.Time) State {
	if len(tags) == 0 {
		return s
	}

	out := s.clone()
	ts := now.UnixMilli()
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		act := out.SynapticActivity[tag]
		act.Count++
		act.LastHit = ts
		out.SynapticActivity[tag] = act
		out.FiringFrequency[tag]++
	}
	return out
}

// RecordTraces marks memories as surfaced this session: bumps the trace
// count, stamps last access, initializes strength to neutral for new
// traces, and adds each id to ActiveTraces. Empty input returns the
// state unchanged. Every id in ActiveTraces has a MemoryTraces entry.
func RecordTraces(s State, memoryIDs []string, now time.Time) State {
	if len(memoryIDs) == 0 {
		return s
	}

	out := s.clone()
	ts := now.UnixMilli()
	active := make(map[string]bool, len(out.ActiveTraces))
	for _, id := range out.ActiveTraces {
		active[id] = true
	}

	for _, id := range memoryIDs {
		if id == "" {
			continue
		}
		trace, ok := out.MemoryTraces[id]
		if !ok {
			trace.SynapticStrength = NeutralStrength
		}
		trace.Count++
		trace.LastAccessed = ts
		out.MemoryTraces[id] = trace

		if !active[id] {
			out.ActiveTraces = append(out.ActiveTraces, id)
			active[id] = true
		}
	}
	return out
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApplyDecay moves every trace's strength 10% of the distance toward the
// neutral baseline. Repeated decay converges on 1.0 asymptotically and
// never overshoots: boosted memories fade, starved ones recover.
func ApplyDecay(s State) State {
	out := s.clone()
	for id, trace := range out.MemoryTraces {
		trace.SynapticStrength = round2(trace.SynapticStrength + (NeutralStrength-trace.SynapticStrength)*decayRate)
		out.MemoryTraces[id] = trace
	}
	return out
}

// ApplyPlasticity boosts the strength of every memory surfaced this
// session, clamped at max, and consumes ActiveTraces — a second call
// is a no-op until more traces are recorded. Returns the new state and
// the ids whose strength actually increased.
func ApplyPlasticity(s State, boost, max float64) (State, []string) {
	out := s.clone()
	var boosted []string
	for _, id := range out.ActiveTraces {
		trace, ok := out.MemoryTraces[id]
		if !ok {
			continue
		}
		next := round2(trace.SynapticStrength + boost)
		if next > max {
			next = max
		}
		if next > trace.SynapticStrength {
			trace.SynapticStrength = next
			out.MemoryTraces[id] = trace
			boosted = append(boosted, id)
		}
	}
	out.ActiveTraces = []string{}
	return out, boosted
}

// EffectiveCheckpointInterval is the configured interval tightened by
// phase: full in early, 75% in mid, 50% in late (floored, min 1).
func EffectiveCheckpointInterval(phase Phase, cfg config.EngineConfig) int {
	interval := cfg.CheckpointInterval
	switch phase {
	case PhaseMid:
		interval = interval * 3 / 4
	case PhaseLate:
		interval = interval / 2
	}
	if interval < 1 {
		interval = 1
	}
	return interval
}

// ShouldCheckpoint reports whether the message count has landed on a
// consolidation boundary. Pure predicate — the caller decides what a
// checkpoint means.
func ShouldCheckpoint(s State, cfg config.EngineConfig) bool {
	if s.MessageCount <= 0 {
		return false
	}
	return s.MessageCount%EffectiveCheckpointInterval(s.ContextPhase, cfg) == 0
}

// DecayedMemory describes a memory that has gone stale.
type DecayedMemory struct {
	ID          string `json:"id"`
	DaysSince   int    `json:"days_since"`
	AccessCount int    `json:"access_count"`
}

// FindDecayed returns memories whose last access is at least
// DecayThresholdDays old, most stale first.
func FindDecayed(s State, cfg config.EngineConfig, now time.Time) []DecayedMemory {
	const dayMs = 24 * 60 * 60 * 1000
	nowMs := now.UnixMilli()

	var decayed []DecayedMemory
	for id, trace := range s.MemoryTraces {
		if trace.LastAccessed <= 0 {
			continue
		}
		days := int((nowMs - trace.LastAccessed) / dayMs)
		if days >= cfg.DecayThresholdDays {
			decayed = append(decayed, DecayedMemory{
				ID:          id,
				DaysSince:   days,
				AccessCount: trace.Count,
			})
		}
	}

	sort.Slice(decayed, func(i, j int) bool {
		if decayed[i].DaysSince != decayed[j].DaysSince {
			return decayed[i].DaysSince > decayed[j].DaysSince
		}
		return decayed[i].ID < decayed[j].ID
	})
	return decayed
}
