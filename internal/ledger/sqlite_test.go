package ledger

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	r, err := NewRecorderFromDB(db)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestExecutionLifecycle(t *testing.T) {
	r := setupRecorder(t)
	start := time.Now()

	exec := &Execution{
		ID:             "exec-1",
		AgentName:      "chatbot",
		ConversationID: "conv-1",
		Model:          "claude-sonnet-4-5",
		SystemPrompt:   "You are the event assistant.",
		UserMessage:    "when is the wedding?",
		StartedAt:      start,
	}
	if err := r.ExecutionStarted(exec); err != nil {
		t.Fatal(err)
	}

	got, err := r.ExecutionByID("exec-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusRunning {
		t.Fatalf("expected RUNNING, got %s", got.Status)
	}
	if got.SystemPrompt != exec.SystemPrompt || got.UserMessage != exec.UserMessage {
		t.Fatalf("prompt snapshot lost: %+v", got)
	}

	exec.Status = StatusCompleted
	exec.InputTokens = 1200
	exec.OutputTokens = 340
	exec.CacheWriteTokens = 800
	exec.CacheReadTokens = 400
	exec.Iterations = 3
	exec.FinalText = "done"
	exec.CompletedAt = start.Add(2 * time.Second)
	exec.DurationMS = 2000
	if err := r.ExecutionCompleted(exec); err != nil {
		t.Fatal(err)
	}

	got, err = r.ExecutionByID("exec-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted || got.Iterations != 3 {
		t.Fatalf("unexpected execution after completion: %+v", got)
	}
	if got.CacheWriteTokens != 800 || got.CacheReadTokens != 400 {
		t.Fatalf("cache token counters lost: %+v", got)
	}
}

func TestIterationNumbersAreContiguous(t *testing.T) {
	r := setupRecorder(t)
	exec := &Execution{ID: "exec-1", AgentName: "chatbot", StartedAt: time.Now()}
	if err := r.ExecutionStarted(exec); err != nil {
		t.Fatal(err)
	}

	for n := 1; n <= 3; n++ {
		it := &Iteration{ID: "iter-" + string(rune('0'+n)), ExecutionID: exec.ID, Number: n, StartedAt: time.Now()}
		if err := r.IterationStarted(it); err != nil {
			t.Fatal(err)
		}
		it.Status = StatusCompleted
		it.ToolCalls = n
		it.CompletedAt = time.Now()
		if err := r.IterationCompleted(it); err != nil {
			t.Fatal(err)
		}
	}

	// Duplicate number within an execution is rejected.
	dup := &Iteration{ID: "iter-dup", ExecutionID: exec.ID, Number: 2, StartedAt: time.Now()}
	if err := r.IterationStarted(dup); err == nil {
		t.Fatal("expected unique constraint violation for duplicate iteration number")
	}

	iters, err := r.IterationsFor(exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(iters) != 3 {
		t.Fatalf("expected 3 iterations, got %d", len(iters))
	}
	for i, it := range iters {
		if it.Number != i+1 {
			t.Fatalf("iteration %d has number %d", i, it.Number)
		}
	}
}

func TestIterationPayloadRoundTrip(t *testing.T) {
	r := setupRecorder(t)
	exec := &Execution{ID: "exec-1", AgentName: "chatbot", StartedAt: time.Now()}
	if err := r.ExecutionStarted(exec); err != nil {
		t.Fatal(err)
	}

	it := &Iteration{
		ID:            "iter-1",
		ExecutionID:   exec.ID,
		Number:        1,
		InputSnapshot: `[{"role":"user","content":[{"type":"text","text":"hi"}]}]`,
		StartedAt:     time.Now(),
	}
	if err := r.IterationStarted(it); err != nil {
		t.Fatal(err)
	}

	loaded, err := r.IterationsFor(exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 1 || loaded[0].Status != StatusRunning {
		t.Fatalf("expected one RUNNING iteration, got %+v", loaded)
	}
	if loaded[0].InputSnapshot != it.InputSnapshot {
		t.Fatalf("input snapshot lost: %q", loaded[0].InputSnapshot)
	}

	it.Status = StatusCompleted
	it.OutputText = "Checking the details."
	it.ToolCallsJSON = `[{"id":"tu-1","name":"get_event_details"}]`
	it.ToolResultsJSON = `[{"type":"tool_result","tool_use_id":"tu-1","content":"Event: ..."}]`
	it.ToolCalls = 1
	it.CompletedAt = time.Now()
	if err := r.IterationCompleted(it); err != nil {
		t.Fatal(err)
	}

	loaded, err = r.IterationsFor(exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	got := loaded[0]
	if got.Status != StatusCompleted || got.OutputText != it.OutputText {
		t.Fatalf("completion payload lost: %+v", got)
	}
	if got.ToolCallsJSON != it.ToolCallsJSON || got.ToolResultsJSON != it.ToolResultsJSON {
		t.Fatalf("tool traffic lost: %+v", got)
	}
}

func TestSubAgentCallTree(t *testing.T) {
	r := setupRecorder(t)

	parent := &Execution{ID: "exec-parent", AgentName: "chatbot", StartedAt: time.Now()}
	if err := r.ExecutionStarted(parent); err != nil {
		t.Fatal(err)
	}
	iter := &Iteration{ID: "iter-1", ExecutionID: parent.ID, Number: 1, StartedAt: time.Now()}
	if err := r.IterationStarted(iter); err != nil {
		t.Fatal(err)
	}

	child := &Execution{
		ID:                "exec-child",
		AgentName:         "guest_handler",
		ParentExecutionID: parent.ID,
		ParentIterationID: iter.ID,
		StartedAt:         time.Now(),
	}
	if err := r.ExecutionStarted(child); err != nil {
		t.Fatal(err)
	}

	children, err := r.ChildExecutions(parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(children) != 1 {
		t.Fatalf("expected 1 child execution, got %d", len(children))
	}
	if children[0].ParentIterationID != iter.ID {
		t.Fatalf("expected child linked to iteration %s, got %s", iter.ID, children[0].ParentIterationID)
	}

	// Children do not appear in the top-level listing.
	top, err := r.RecentExecutions(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].ID != parent.ID {
		t.Fatalf("expected only the parent at top level, got %+v", top)
	}
}

func TestAPICallLogged(t *testing.T) {
	r := setupRecorder(t)
	exec := &Execution{ID: "exec-1", AgentName: "chatbot", StartedAt: time.Now()}
	if err := r.ExecutionStarted(exec); err != nil {
		t.Fatal(err)
	}

	call := &APICall{
		ID:               "call-1",
		ExecutionID:      exec.ID,
		IterationID:      "iter-1",
		Model:            "claude-sonnet-4-5",
		StopReason:       "tool_use",
		InputTokens:      500,
		OutputTokens:     80,
		CacheWriteTokens: 300,
		CacheReadTokens:  200,
		DurationMS:       850,
		CreatedAt:        time.Now(),
	}
	if err := r.APICallLogged(call); err != nil {
		t.Fatal(err)
	}

	calls, err := r.APICallsFor(exec.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].StopReason != "tool_use" || calls[0].CacheReadTokens != 200 {
		t.Fatalf("unexpected call row: %+v", calls[0])
	}
}
