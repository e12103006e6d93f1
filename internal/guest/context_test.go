package guest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestResolveDefaultsToPrimary(t *testing.T) {
	idx := ContextIndex{
		"ev-1": {
			Guest:      &Guest{ID: "g-1", Name: "Carla", IsPrimaryGuest: true},
			Companions: []*Guest{{ID: "g-2"}},
		},
	}

	ref, err := idx.Resolve("ev-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if ref.ID != "g-1" || !ref.IsPrimary {
		t.Fatalf("expected primary guest, got %+v", ref)
	}

	// Passing the primary's own id is equivalent to omitting it.
	ref, err = idx.Resolve("ev-1", "g-1")
	if err != nil {
		t.Fatal(err)
	}
	if ref.ID != "g-1" || !ref.IsPrimary {
		t.Fatalf("expected primary guest, got %+v", ref)
	}
}

func TestResolveCompanion(t *testing.T) {
	idx := ContextIndex{
		"ev-1": {
			Guest:      &Guest{ID: "g-1", Name: "Carla", IsPrimaryGuest: true},
			Companions: []*Guest{{ID: "g-2", Name: "Diego"}},
		},
	}

	ref, err := idx.Resolve("ev-1", "g-2")
	if err != nil {
		t.Fatal(err)
	}
	if ref.ID != "g-2" || ref.IsPrimary {
		t.Fatalf("expected companion, got %+v", ref)
	}
	if ref.Name != "Diego" {
		t.Fatalf("unexpected name %q", ref.Name)
	}
}

func TestResolveRejectsForeignGuest(t *testing.T) {
	idx := ContextIndex{
		"ev-1": {
			Guest:      &Guest{ID: "g-1", IsPrimaryGuest: true},
			Companions: []*Guest{{ID: "g-2"}},
		},
	}

	if _, err := idx.Resolve("ev-1", "g-99"); err == nil {
		t.Fatal("expected error for guest outside the group")
	}
	if _, err := idx.Resolve("ev-missing", ""); err == nil {
		t.Fatal("expected error for unknown event")
	}
}

func TestBuildIndexSkipsDisabledEvents(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "guests.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s, err := NewStoreFromDB(db)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	active := &Event{Name: "Active Event", Active: true, ChatbotEnabled: true}
	disabled := &Event{Name: "Disabled Event", Active: true, ChatbotEnabled: false}
	inactive := &Event{Name: "Inactive Event", Active: false, ChatbotEnabled: true}
	for _, e := range []*Event{active, disabled, inactive} {
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	phone := "+5511999990002"
	for _, e := range []*Event{active, disabled, inactive} {
		g := &Guest{EventID: e.ID, Name: "Elisa", Phone: phone, IsPrimaryGuest: true}
		if err := s.CreateGuest(ctx, g); err != nil {
			t.Fatal(err)
		}
	}

	idx, err := BuildIndex(ctx, s, phone)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx) != 1 {
		t.Fatalf("expected only the active chatbot-enabled event, got %d", len(idx))
	}
	if _, ok := idx[active.ID]; !ok {
		t.Fatalf("expected event %s in index", active.ID)
	}
}

func TestBuildIndexLoadsCompanions(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "guests.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s, err := NewStoreFromDB(db)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	event, primary, companion := seedEventWithGroup(t, s)

	idx, err := BuildIndex(ctx, s, primary.Phone)
	if err != nil {
		t.Fatal(err)
	}
	ec, ok := idx[event.ID]
	if !ok {
		t.Fatalf("expected event %s in index", event.ID)
	}
	if ec.Guest.ID != primary.ID {
		t.Fatalf("expected primary %s, got %s", primary.ID, ec.Guest.ID)
	}
	if len(ec.Companions) != 1 || ec.Companions[0].ID != companion.ID {
		t.Fatalf("unexpected companions: %+v", ec.Companions)
	}
}
