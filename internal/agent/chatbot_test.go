package agent

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/festivo/festivo/internal/config"
	"github.com/festivo/festivo/internal/guest"
	"github.com/festivo/festivo/internal/ledger"
	"github.com/festivo/festivo/internal/provider"
)

// routedProvider serves separate scripts to the conversation agent and the
// guest-update sub-agent, telling them apart by their system prompt.
type routedProvider struct {
	main *scriptedProvider
	sub  *scriptedProvider
}

func (p *routedProvider) DefaultModel() string { return "test-model" }

func (p *routedProvider) Messages(ctx context.Context, req *provider.MessageRequest) (*provider.MessageResponse, error) {
	if len(req.System) > 0 && strings.Contains(req.System[0].Text, "update guest records") {
		return p.sub.Messages(ctx, req)
	}
	return p.main.Messages(ctx, req)
}

func chatbotFixture(t *testing.T, p provider.LLMProvider, rec ledger.Recorder, simulation bool) (*ChatbotService, *guest.SQLiteStore, *guest.Guest) {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "guests.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := guest.NewStoreFromDB(db)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	event := &guest.Event{Name: "Launch Party", Hosts: "Festivo", Active: true, ChatbotEnabled: true}
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatal(err)
	}
	primary := &guest.Guest{EventID: event.ID, Name: "Carla", Phone: "+5511999990001", IsPrimaryGuest: true}
	if err := store.CreateGuest(ctx, primary); err != nil {
		t.Fatal(err)
	}

	svc := NewChatbotService(ServiceDeps{
		Provider: p,
		Store:    store,
		Recorder: rec,
		Model:    config.ModelConfig{Name: "test-model", MaxTokens: 1024, MaxToolIterations: 5},
		Chatbot:  config.ChatbotConfig{SimulationMode: simulation},
	})
	return svc, store, primary
}

func TestGenerateResponseNoActiveEvent(t *testing.T) {
	p := &scriptedProvider{}
	rec := newMemoryRecorder()
	svc, _, _ := chatbotFixture(t, p, rec, false)

	reply, err := svc.GenerateResponse(context.Background(), "conv-1", "+5500000000000", nil, "hello?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "" {
		t.Fatalf("expected silent reply for unknown sender, got %q", reply.Text)
	}
	if len(p.requests) != 0 {
		t.Fatal("no model call should happen without an event")
	}

	var failed *ledger.Execution
	for _, e := range rec.executions {
		failed = e
	}
	if failed == nil || failed.Status != ledger.StatusFailed {
		t.Fatalf("expected FAILED execution recorded, got %+v", failed)
	}
}

func TestGenerateResponsePlainAnswer(t *testing.T) {
	p := &routedProvider{
		main: &scriptedProvider{steps: []scriptStep{{resp: textResponse("The party starts at 8pm.")}}},
		sub:  &scriptedProvider{},
	}
	svc, _, primary := chatbotFixture(t, p, newMemoryRecorder(), false)

	reply, err := svc.GenerateResponse(context.Background(), "conv-1", primary.Phone, nil, "what time?")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "The party starts at 8pm." {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}

	req := p.main.requests[0]
	if len(req.System) != 3 {
		t.Fatalf("expected 3 system blocks, got %d", len(req.System))
	}
	for i, block := range req.System {
		if block.CacheControl == nil {
			t.Fatalf("system block %d must carry a cache hint", i)
		}
	}
	if len(req.Tools) != 2 {
		t.Fatalf("conversation agent must expose 2 tools, got %d", len(req.Tools))
	}
	if req.Tools[len(req.Tools)-1].CacheControl == nil {
		t.Fatal("tool manifest must end with a cache hint")
	}
}

func TestSystemPromptOneBlockPerEvent(t *testing.T) {
	p := &routedProvider{
		main: &scriptedProvider{steps: []scriptStep{{resp: textResponse("Both are on the calendar!")}}},
		sub:  &scriptedProvider{},
	}
	svc, store, primary := chatbotFixture(t, p, newMemoryRecorder(), false)

	ctx := context.Background()
	second := &guest.Event{Name: "Rehearsal Dinner", Active: true, ChatbotEnabled: true}
	if err := store.CreateEvent(ctx, second); err != nil {
		t.Fatal(err)
	}
	g := &guest.Guest{EventID: second.ID, Name: "Carla", Phone: primary.Phone, IsPrimaryGuest: true}
	if err := store.CreateGuest(ctx, g); err != nil {
		t.Fatal(err)
	}

	_, err := svc.GenerateResponse(ctx, "conv-1", primary.Phone, nil, "what's coming up?")
	if err != nil {
		t.Fatal(err)
	}

	// Persona, one block per event, one status summary.
	req := p.main.requests[0]
	if len(req.System) != 4 {
		t.Fatalf("expected 4 system blocks for two events, got %d", len(req.System))
	}
	names := req.System[1].Text + req.System[2].Text
	if !strings.Contains(names, "Launch Party") || !strings.Contains(names, "Rehearsal Dinner") {
		t.Fatalf("event blocks missing an event: %q", names)
	}
	if strings.Contains(req.System[1].Text, "Rehearsal Dinner") && strings.Contains(req.System[1].Text, "Launch Party") {
		t.Fatal("events must not share one block")
	}
	for i, block := range req.System {
		if block.CacheControl == nil {
			t.Fatalf("system block %d must carry a cache hint", i)
		}
	}
}

func TestGenerateResponseDelegation(t *testing.T) {
	p := &routedProvider{
		main: &scriptedProvider{steps: []scriptStep{
			{resp: toolUseResponse("tu-1", "manage_guest_update",
				map[string]any{"instruction": "Confirm attendance for the primary guest."}, "")},
			{resp: textResponse("Done, you're confirmed!")},
		}},
		sub: &scriptedProvider{steps: []scriptStep{
			{resp: toolUseResponse("tu-sub-1", "update_rsvp_status",
				map[string]any{"status": "CONFIRMED"}, "")},
			{resp: textResponse("Confirmed the primary guest.")},
		}},
	}
	rec := newMemoryRecorder()
	svc, store, primary := chatbotFixture(t, p, rec, false)

	reply, err := svc.GenerateResponse(context.Background(), "conv-1", primary.Phone, nil, "count me in!")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "Done, you're confirmed!" {
		t.Fatalf("unexpected reply: %q", reply.Text)
	}

	g, err := store.GuestByID(context.Background(), primary.ID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Status != guest.RSVPConfirmed {
		t.Fatalf("expected confirmed guest, got %s", g.Status)
	}

	// Two executions: the conversation agent and its sub-agent, linked by
	// parent pointers.
	if len(rec.executions) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(rec.executions))
	}
	var parent, child *ledger.Execution
	for _, e := range rec.executions {
		if e.AgentName == "chatbot" {
			parent = e
		} else {
			child = e
		}
	}
	if parent == nil || child == nil {
		t.Fatal("expected one chatbot and one guest_handler execution")
	}
	if child.ParentExecutionID != parent.ID {
		t.Fatalf("child not linked to parent: %q != %q", child.ParentExecutionID, parent.ID)
	}
	if child.ParentIterationID == "" {
		t.Fatal("child must reference the spawning iteration")
	}
	if child.ConversationID != "conv-1" {
		t.Fatalf("conversation id not propagated: %q", child.ConversationID)
	}
}

func TestGenerateResponseSimulationMode(t *testing.T) {
	p := &routedProvider{
		main: &scriptedProvider{steps: []scriptStep{
			{resp: toolUseResponse("tu-1", "manage_guest_update",
				map[string]any{"instruction": "Confirm attendance for the primary guest."}, "")},
			{resp: textResponse("All set (in rehearsal).")},
		}},
		sub: &scriptedProvider{steps: []scriptStep{
			{resp: toolUseResponse("tu-sub-1", "update_rsvp_status",
				map[string]any{"status": "CONFIRMED"}, "")},
			{resp: textResponse("Would confirm the primary guest.")},
		}},
	}
	svc, store, primary := chatbotFixture(t, p, newMemoryRecorder(), true)

	_, err := svc.GenerateResponse(context.Background(), "conv-1", primary.Phone, nil, "count me in!")
	if err != nil {
		t.Fatal(err)
	}

	g, err := store.GuestByID(context.Background(), primary.ID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Status != guest.RSVPPending {
		t.Fatalf("simulation must not persist, got %s", g.Status)
	}
}

func TestGenerateResponseHistoryCaching(t *testing.T) {
	p := &routedProvider{
		main: &scriptedProvider{steps: []scriptStep{{resp: textResponse("Hi again!")}}},
		sub:  &scriptedProvider{},
	}
	svc, _, primary := chatbotFixture(t, p, newMemoryRecorder(), false)

	history := []provider.Message{
		provider.TextMessage("user", "hi"),
		provider.TextMessage("assistant", "hello!"),
		provider.TextMessage("user", "what time?"),
		provider.TextMessage("assistant", "8pm."),
	}
	_, err := svc.GenerateResponse(context.Background(), "conv-1", primary.Phone, history, "thanks!")
	if err != nil {
		t.Fatal(err)
	}

	req := p.main.requests[0]
	last := req.Messages[len(req.Messages)-1]
	if last.Content[0].CacheControl == nil {
		t.Fatal("incoming message must be a cache breakpoint in long conversations")
	}

	// A short conversation gets no breakpoint on the incoming message.
	p.main.steps = []scriptStep{{resp: textResponse("Hi!")}}
	_, err = svc.GenerateResponse(context.Background(), "conv-2", primary.Phone, history[:2], "hey")
	if err != nil {
		t.Fatal(err)
	}
	req = p.main.requests[len(p.main.requests)-1]
	last = req.Messages[len(req.Messages)-1]
	if last.Content[0].CacheControl != nil {
		t.Fatal("short conversations must not tag the incoming message")
	}
}

func TestGenerateResponseFirstCallFailure(t *testing.T) {
	p := &routedProvider{
		main: &scriptedProvider{},
		sub:  &scriptedProvider{},
	}
	svc, _, primary := chatbotFixture(t, p, newMemoryRecorder(), false)

	reply, err := svc.GenerateResponse(context.Background(), "conv-1", primary.Phone, nil, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != ApologyText {
		t.Fatalf("expected apology, got %q", reply.Text)
	}
}
