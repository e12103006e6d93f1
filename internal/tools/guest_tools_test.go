package tools

import (
	"context"
	"testing"

	"github.com/festivo/festivo/internal/guest"
)

func TestUpdateCompanionNameRejectsPrimary(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	_, err := r.Run(context.Background(), "update_companion_name",
		f.invocation(map[string]any{"guest_id": f.primary.ID, "name": "Someone Else"}))
	if err == nil {
		t.Fatal("expected error when renaming the primary guest")
	}
}

func TestUpdateCompanionName(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	_, err := r.Run(context.Background(), "update_companion_name",
		f.invocation(map[string]any{"guest_id": f.companion.ID, "name": "Diego"}))
	if err != nil {
		t.Fatal(err)
	}
	g, err := f.store.GuestByID(context.Background(), f.companion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "Diego" {
		t.Fatalf("expected companion named Diego, got %q", g.Name)
	}
}

func TestUpdateRSVPRejectsInactive(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	// INACTIVE is an administrative state, never settable via chat.
	_, err := r.Run(context.Background(), "update_rsvp_status",
		f.invocation(map[string]any{"status": "INACTIVE"}))
	if err == nil {
		t.Fatal("expected error for INACTIVE status")
	}
}

func confirmationFixture(t *testing.T) (*fixture, *guest.ConfirmationQuestion) {
	t.Helper()
	f := setupFixture(t)
	ctx := context.Background()

	q := &guest.ConfirmationQuestion{
		EventID:  f.event.ID,
		Question: "Will you join the after-party?",
		Options:  []guest.ConfirmationOption{{Label: "Yes"}, {Label: "No"}},
	}
	if err := f.store.CreateConfirmationQuestion(ctx, q); err != nil {
		t.Fatal(err)
	}
	// Rebuild the index so the question is embedded in the event context.
	idx, err := guest.BuildIndex(ctx, f.store, f.primary.Phone)
	if err != nil {
		t.Fatal(err)
	}
	f.index = idx
	return f, q
}

func TestRecordConfirmationResponse(t *testing.T) {
	f, q := confirmationFixture(t)
	r := newRunner(f, nil, false)
	ctx := context.Background()

	_, err := r.Run(ctx, "record_confirmation_response",
		f.invocation(map[string]any{"question_id": q.ID, "option_id": q.Options[0].ID}))
	if err != nil {
		t.Fatal(err)
	}

	// Answering again replaces the first answer.
	_, err = r.Run(ctx, "record_confirmation_response",
		f.invocation(map[string]any{"question_id": q.ID, "option_id": q.Options[1].ID}))
	if err != nil {
		t.Fatal(err)
	}

	g, err := f.store.GuestByID(ctx, f.primary.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(g.Responses))
	}
	if g.Responses[0].OptionID != q.Options[1].ID {
		t.Fatalf("expected latest answer to win, got %s", g.Responses[0].OptionID)
	}
}

func TestRecordConfirmationValidation(t *testing.T) {
	f, q := confirmationFixture(t)
	r := newRunner(f, nil, false)
	ctx := context.Background()

	_, err := r.Run(ctx, "record_confirmation_response",
		f.invocation(map[string]any{"question_id": "wrong-question", "option_id": q.Options[0].ID}))
	if err == nil {
		t.Fatal("expected error for question outside the event")
	}

	_, err = r.Run(ctx, "record_confirmation_response",
		f.invocation(map[string]any{"question_id": q.ID, "option_id": "wrong-option"}))
	if err == nil {
		t.Fatal("expected error for option outside the question")
	}

	_, err = r.Run(ctx, "record_confirmation_response",
		f.invocation(map[string]any{"question_id": q.ID}))
	if err == nil {
		t.Fatal("expected error when neither option nor custom answer is given")
	}

	// A free-text answer needs no option.
	_, err = r.Run(ctx, "record_confirmation_response",
		f.invocation(map[string]any{"question_id": q.ID, "custom_response": "only for an hour"}))
	if err != nil {
		t.Fatal(err)
	}
}

type recordingNotifier struct {
	events  []string
	guests  []string
	request string
}

func (n *recordingNotifier) SpecialRequestFiled(_ context.Context, event *guest.Event, guestName, request string) {
	if event != nil {
		n.events = append(n.events, event.Name)
	}
	n.guests = append(n.guests, guestName)
	n.request = request
}

func TestCreateSpecialRequestNotifies(t *testing.T) {
	f := setupFixture(t)
	notifier := &recordingNotifier{}

	reg := NewRegistry()
	reg.Register(NewCreateSpecialRequestTool(f.store, notifier))
	r := NewRunner(reg, nil, false, nil)
	ctx := context.Background()

	_, err := r.Run(ctx, "create_special_request",
		f.invocation(map[string]any{"request": "vegan menu for the whole table"}))
	if err != nil {
		t.Fatal(err)
	}

	open, err := f.store.OpenSpecialRequests(ctx, f.event.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 open request, got %d", len(open))
	}
	if notifier.request != "vegan menu for the whole table" {
		t.Fatalf("notifier not called with the request, got %q", notifier.request)
	}
	if len(notifier.guests) != 1 || notifier.guests[0] != "Carla" {
		t.Fatalf("notifier got wrong guest: %v", notifier.guests)
	}
}
