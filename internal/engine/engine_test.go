package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/lazypower/synapse/internal/brain"
	"github.com/lazypower/synapse/internal/config"
	"github.com/lazypower/synapse/internal/predict"
	"github.com/lazypower/synapse/internal/store"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, config.Default().Engine)
}

func seedMemories(t *testing.T, e *Engine, project string) {
	t.Helper()
	records := []*store.MemoryRecord{
		{ProjectID: project, Type: "pain", Title: "SQLite locks under concurrent writes",
			Rule: "Enable WAL mode", Tags: []string{"sqlite"}, Severity: "high"},
		{ProjectID: project, Type: "decision", Title: "Use chi for routing",
			Tags: []string{"http"}, Severity: "low"},
	}
	for _, rec := range records {
		if err := e.DB.CreateMemory(rec); err != nil {
			t.Fatalf("CreateMemory %s: %v", rec.Title, err)
		}
	}
}

func TestEngineRetrieve(t *testing.T) {
	e := testEngine(t)
	seedMemories(t, e, "proj")
	state := brain.Init(nil, time.Now())

	result, err := e.Retrieve("proj", "sqlite writes failing", nil, state)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Ranked) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Ranked))
	}
	if result.Ranked[0].Record.Type != "pain" {
		t.Errorf("top hit = %+v, want the sqlite pain", result.Ranked[0].Record)
	}
}

func TestPrimeContext(t *testing.T) {
	e := testEngine(t)
	state := brain.Init(nil, time.Now())

	// No memories: no context block.
	ctx, err := e.PrimeContext("proj", state)
	if err != nil {
		t.Fatalf("PrimeContext: %v", err)
	}
	if ctx != "" {
		t.Errorf("empty project produced context: %q", ctx)
	}

	seedMemories(t, e, "proj")
	ctx, err = e.PrimeContext("proj", state)
	if err != nil {
		t.Fatalf("PrimeContext: %v", err)
	}
	if !strings.Contains(ctx, "## Project memory") {
		t.Errorf("missing header: %q", ctx)
	}
	if !strings.Contains(ctx, "[pain/high] SQLite locks under concurrent writes") {
		t.Errorf("missing memory line: %q", ctx)
	}
	if !strings.Contains(ctx, "Enable WAL mode") {
		t.Errorf("rule not rendered: %q", ctx)
	}
}

func TestCaptureSurpriseFirstSighting(t *testing.T) {
	e := testEngine(t)

	result, err := e.CaptureSurprise("proj", predict.Event{
		Category: "error", ErrorClass: "SIGSEGV", Detail: "crash in cgo bridge",
	})
	if err != nil {
		t.Fatalf("CaptureSurprise: %v", err)
	}
	if result.Signature != "error::SIGSEGV" {
		t.Errorf("signature = %q", result.Signature)
	}
	if result.Surprise != 1.0 {
		t.Errorf("first sighting surprise = %v, want 1.0", result.Surprise)
	}
	if !result.Captured || result.MemoryID == "" {
		t.Fatalf("novel event not captured: %+v", result)
	}

	rec, err := e.DB.GetMemory(result.MemoryID)
	if err != nil || rec == nil {
		t.Fatalf("captured memory missing: %v", err)
	}
	if rec.Type != "pain" {
		t.Errorf("error event captured as %q, want pain", rec.Type)
	}
	if rec.Severity != "high" { // "crash" in the detail
		t.Errorf("severity = %q, want high", rec.Severity)
	}
	if rec.Content != "crash in cgo bridge" {
		t.Errorf("content = %q", rec.Content)
	}
}

func TestCaptureSurpriseHabituates(t *testing.T) {
	e := testEngine(t)
	ev := predict.Event{Category: "tool", ToolName: "Bash"}

	var lastSurprise float64
	captured := 0
	for i := 0; i < 10; i++ {
		result, err := e.CaptureSurprise("proj", ev)
		if err != nil {
			t.Fatalf("CaptureSurprise %d: %v", i, err)
		}
		if result.Captured {
			captured++
		}
		lastSurprise = result.Surprise
	}

	// Only the first sighting clears the default 0.7 threshold; after
	// that the signature owns every observed event.
	if captured != 1 {
		t.Errorf("captured %d memories, want 1", captured)
	}
	if lastSurprise != 0 {
		t.Errorf("surprise after habituation = %v, want 0", lastSurprise)
	}
}

func TestCaptureSurpriseRequiresCategory(t *testing.T) {
	e := testEngine(t)
	if _, err := e.CaptureSurprise("proj", predict.Event{}); err == nil {
		t.Error("empty category accepted")
	}
}

func TestEventMemoryType(t *testing.T) {
	cases := map[string]string{
		"error":   "pain",
		"win":     "win",
		"tool":    "fact",
		"pattern": "fact",
	}
	for category, want := range cases {
		if got := eventMemoryType(category); got != want {
			t.Errorf("eventMemoryType(%q) = %q, want %q", category, got, want)
		}
	}
}
