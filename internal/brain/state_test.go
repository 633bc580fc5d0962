package brain

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/lazypower/synapse/internal/config"
)

func testConfig() config.EngineConfig {
	return config.Default().Engine
}

func TestInitFresh(t *testing.T) {
	now := time.Now()
	s := Init(nil, now)

	if s.ContextPhase != PhaseEarly {
		t.Errorf("phase = %s, want %s", s.ContextPhase, PhaseEarly)
	}
	if s.MessageCount != 0 {
		t.Errorf("message_count = %d, want 0", s.MessageCount)
	}
	if s.SessionStart != now.UnixMilli() {
		t.Errorf("session_start = %d, want %d", s.SessionStart, now.UnixMilli())
	}
	if s.SynapticActivity == nil || s.FiringFrequency == nil || s.MemoryTraces == nil || s.ActiveTraces == nil {
		t.Error("maps and slices must be initialized, not nil")
	}
}

func TestInitCarriesOverAndDecays(t *testing.T) {
	prev := Init(nil, time.Now())
	prev.MessageCount = 42
	prev.ContextPhase = PhaseLate
	prev.SynapticActivity["sqlite"] = TagActivity{Count: 5, LastHit: 1000}
	prev.FiringFrequency["sqlite"] = 3
	prev.MemoryTraces["m1"] = MemoryTrace{Count: 2, LastAccessed: 1000, SynapticStrength: 1.5}
	prev.ActiveTraces = []string{"m1"}

	s := Init(&prev, time.Now())

	if s.MessageCount != 0 || s.ContextPhase != PhaseEarly {
		t.Errorf("session-local fields not reset: count=%d phase=%s", s.MessageCount, s.ContextPhase)
	}
	if len(s.FiringFrequency) != 0 {
		t.Errorf("firing frequency not reset: %v", s.FiringFrequency)
	}
	if len(s.ActiveTraces) != 0 {
		t.Errorf("active traces not reset: %v", s.ActiveTraces)
	}
	if s.SynapticActivity["sqlite"].Count != 5 {
		t.Errorf("cumulative tag activity lost: %v", s.SynapticActivity)
	}
	// 1.5 + (1.0-1.5)*0.1 = 1.45
	if got := s.MemoryTraces["m1"].SynapticStrength; got != 1.45 {
		t.Errorf("decayed strength = %v, want 1.45", got)
	}
	// The input must not be mutated.
	if prev.MemoryTraces["m1"].SynapticStrength != 1.5 {
		t.Error("Init mutated its input state")
	}
}

func TestPhaseTransitions(t *testing.T) {
	cfg := testConfig() // mid=10, late=25
	s := Init(nil, time.Now())

	var prevPhase Phase = PhaseEarly
	rank := map[Phase]int{PhaseEarly: 0, PhaseMid: 1, PhaseLate: 2}
	for i := 1; i <= 30; i++ {
		s = Tick(s, cfg)
		if rank[s.ContextPhase] < rank[prevPhase] {
			t.Fatalf("phase regressed at count %d: %s -> %s", i, prevPhase, s.ContextPhase)
		}
		prevPhase = s.ContextPhase
	}

	cases := []struct {
		count int
		want  Phase
	}{
		{1, PhaseEarly},
		{9, PhaseEarly},
		{10, PhaseMid},
		{24, PhaseMid},
		{25, PhaseLate},
		{100, PhaseLate},
	}
	for _, c := range cases {
		if got := phaseFor(c.count, cfg); got != c.want {
			t.Errorf("phaseFor(%d) = %s, want %s", c.count, got, c.want)
		}
	}
}

func TestRecordActivityEmptyIsNoop(t *testing.T) {
	s := Init(nil, time.Now())
	s.SynapticActivity["go"] = TagActivity{Count: 1}

	after := RecordActivity(s, nil, time.Now())
	if !reflect.DeepEqual(s, after) {
		t.Error("empty tag list must leave state unchanged")
	}
}

func TestRecordActivity(t *testing.T) {
	now := time.Now()
	s := Init(nil, now)
	s = RecordActivity(s, []string{"sqlite", "wal", "sqlite", ""}, now)

	if s.SynapticActivity["sqlite"].Count != 2 {
		t.Errorf("sqlite count = %d, want 2", s.SynapticActivity["sqlite"].Count)
	}
	if s.FiringFrequency["wal"] != 1 {
		t.Errorf("wal firing = %d, want 1", s.FiringFrequency["wal"])
	}
	if _, ok := s.SynapticActivity[""]; ok {
		t.Error("empty tag must be skipped")
	}
}

func TestRecordTraces(t *testing.T) {
	now := time.Now()
	s := Init(nil, now)
	s = RecordTraces(s, []string{"m1", "m2", "m1"}, now)

	if got := s.MemoryTraces["m1"]; got.Count != 2 || got.SynapticStrength != NeutralStrength {
		t.Errorf("m1 trace = %+v, want count 2 strength 1.0", got)
	}
	if got := s.MemoryTraces["m2"].Count; got != 1 {
		t.Errorf("m2 count = %d, want 1", got)
	}
	// ActiveTraces has set semantics.
	if !reflect.DeepEqual(s.ActiveTraces, []string{"m1", "m2"}) {
		t.Errorf("active traces = %v, want [m1 m2]", s.ActiveTraces)
	}

	after := RecordTraces(s, nil, now)
	if !reflect.DeepEqual(s, after) {
		t.Error("empty id list must leave state unchanged")
	}
}

func TestDecayConvergesWithoutOvershoot(t *testing.T) {
	s := Init(nil, time.Now())
	s.MemoryTraces["hot"] = MemoryTrace{SynapticStrength: 1.8}
	s.MemoryTraces["cold"] = MemoryTrace{SynapticStrength: 0.5}

	s = ApplyDecay(s)
	// 1.8 + (1.0-1.8)*0.1 = 1.72; 0.5 + (1.0-0.5)*0.1 = 0.55
	if got := s.MemoryTraces["hot"].SynapticStrength; got != 1.72 {
		t.Errorf("hot after one decay = %v, want 1.72", got)
	}
	if got := s.MemoryTraces["cold"].SynapticStrength; got != 0.55 {
		t.Errorf("cold after one decay = %v, want 0.55", got)
	}

	prevHot, prevCold := 1.72, 0.55
	for i := 0; i < 100; i++ {
		s = ApplyDecay(s)
		hot := s.MemoryTraces["hot"].SynapticStrength
		cold := s.MemoryTraces["cold"].SynapticStrength
		if hot > prevHot || hot < NeutralStrength {
			t.Fatalf("hot overshot at step %d: %v (prev %v)", i, hot, prevHot)
		}
		if cold < prevCold || cold > NeutralStrength {
			t.Fatalf("cold overshot at step %d: %v (prev %v)", i, cold, prevCold)
		}
		prevHot, prevCold = hot, cold
	}
	// Rounding to 2 decimals makes convergence stall near the baseline,
	// never past it.
	if math.Abs(prevHot-NeutralStrength) > 0.05 {
		t.Errorf("hot did not converge toward neutral: %v", prevHot)
	}
	if math.Abs(prevCold-NeutralStrength) > 0.05 {
		t.Errorf("cold did not converge toward neutral: %v", prevCold)
	}
}

func TestPlasticityBoostsAndClamps(t *testing.T) {
	now := time.Now()
	s := Init(nil, now)
	s.MemoryTraces["m1"] = MemoryTrace{Count: 1, SynapticStrength: 1.0}
	s.MemoryTraces["m2"] = MemoryTrace{Count: 1, SynapticStrength: 1.95}
	s.MemoryTraces["capped"] = MemoryTrace{Count: 1, SynapticStrength: MaxStrength}
	s.MemoryTraces["idle"] = MemoryTrace{Count: 1, SynapticStrength: 1.0}
	s.ActiveTraces = []string{"m1", "m2", "capped"}

	out, boosted := ApplyPlasticity(s, DefaultBoost, MaxStrength)

	if got := out.MemoryTraces["m1"].SynapticStrength; got != 1.1 {
		t.Errorf("m1 = %v, want 1.1", got)
	}
	if got := out.MemoryTraces["m2"].SynapticStrength; got != MaxStrength {
		t.Errorf("m2 = %v, want clamped to %v", got, MaxStrength)
	}
	if got := out.MemoryTraces["idle"].SynapticStrength; got != 1.0 {
		t.Errorf("idle memory boosted to %v, want untouched", got)
	}
	if !reflect.DeepEqual(boosted, []string{"m1", "m2"}) {
		t.Errorf("boosted = %v, want [m1 m2]", boosted)
	}
}

func TestPlasticityConsumesActiveTraces(t *testing.T) {
	now := time.Now()
	s := Init(nil, now)
	s = RecordTraces(s, []string{"m1"}, now)

	once, _ := ApplyPlasticity(s, DefaultBoost, MaxStrength)
	if len(once.ActiveTraces) != 0 {
		t.Fatalf("active traces not consumed: %v", once.ActiveTraces)
	}

	twice, boosted := ApplyPlasticity(once, DefaultBoost, MaxStrength)
	if len(boosted) != 0 {
		t.Errorf("second application boosted %v, want nothing", boosted)
	}
	if got := twice.MemoryTraces["m1"].SynapticStrength; got != 1.1 {
		t.Errorf("m1 after double end = %v, want 1.1", got)
	}
}

func TestEffectiveCheckpointInterval(t *testing.T) {
	cfg := testConfig()
	cfg.CheckpointInterval = 10

	cases := []struct {
		phase Phase
		want  int
	}{
		{PhaseEarly, 10},
		{PhaseMid, 7},  // floor(10 * 0.75)
		{PhaseLate, 5}, // floor(10 * 0.5)
	}
	for _, c := range cases {
		if got := EffectiveCheckpointInterval(c.phase, cfg); got != c.want {
			t.Errorf("interval(%s) = %d, want %d", c.phase, got, c.want)
		}
	}

	// A tiny interval never drops below 1.
	cfg.CheckpointInterval = 2
	if got := EffectiveCheckpointInterval(PhaseLate, cfg); got != 1 {
		t.Errorf("interval(late, 2) = %d, want 1", got)
	}
}

func TestShouldCheckpointTightensByPhase(t *testing.T) {
	cfg := testConfig()
	cfg.ContextPhaseMid = 10
	cfg.ContextPhaseLate = 20
	cfg.CheckpointInterval = 6

	s := Init(nil, time.Now())

	var hits []int
	for i := 1; i <= 24; i++ {
		s = Tick(s, cfg)
		if ShouldCheckpoint(s, cfg) {
			hits = append(hits, i)
		}
	}

	// Early: every 6. Mid (count >= 10): every 4. Late (count >= 20): every 3.
	want := []int{6, 12, 16, 21, 24}
	if !reflect.DeepEqual(hits, want) {
		t.Errorf("checkpoint counts = %v, want %v", hits, want)
	}
}

func TestShouldCheckpointZeroCount(t *testing.T) {
	s := Init(nil, time.Now())
	if ShouldCheckpoint(s, testConfig()) {
		t.Error("checkpoint at message count 0")
	}
}

func TestFindDecayed(t *testing.T) {
	cfg := testConfig()
	cfg.DecayThresholdDays = 14

	now := time.Now()
	day := 24 * time.Hour
	s := Init(nil, now)
	s.MemoryTraces["fresh"] = MemoryTrace{Count: 3, LastAccessed: now.Add(-2 * day).UnixMilli()}
	s.MemoryTraces["old-a"] = MemoryTrace{Count: 1, LastAccessed: now.Add(-20 * day).UnixMilli()}
	s.MemoryTraces["old-b"] = MemoryTrace{Count: 5, LastAccessed: now.Add(-20 * day).UnixMilli()}
	s.MemoryTraces["ancient"] = MemoryTrace{Count: 2, LastAccessed: now.Add(-40 * day).UnixMilli()}
	s.MemoryTraces["never"] = MemoryTrace{Count: 0, LastAccessed: 0}

	decayed := FindDecayed(s, cfg, now)

	var ids []string
	for _, d := range decayed {
		ids = append(ids, d.ID)
	}
	// Most stale first, ties by id.
	want := []string{"ancient", "old-a", "old-b"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("decayed = %v, want %v", ids, want)
	}
	if decayed[0].DaysSince != 40 {
		t.Errorf("ancient days = %d, want 40", decayed[0].DaysSince)
	}
	if decayed[2].AccessCount != 5 {
		t.Errorf("old-b access count = %d, want 5", decayed[2].AccessCount)
	}
}
