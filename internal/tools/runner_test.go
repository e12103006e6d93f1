package tools

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/festivo/festivo/internal/guest"
	"github.com/festivo/festivo/internal/toolcache"
)

type fixture struct {
	store     *guest.SQLiteStore
	index     guest.ContextIndex
	event     *guest.Event
	primary   *guest.Guest
	companion *guest.Guest
}

func setupFixture(t *testing.T) *fixture {
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

	event := &guest.Event{Name: "Summer Gala", Hosts: "Festivo", Active: true, ChatbotEnabled: true}
	if err := store.CreateEvent(ctx, event); err != nil {
		t.Fatal(err)
	}
	primary := &guest.Guest{EventID: event.ID, Name: "Carla", Phone: "+5511999990001", IsPrimaryGuest: true}
	if err := store.CreateGuest(ctx, primary); err != nil {
		t.Fatal(err)
	}
	companion := &guest.Guest{EventID: event.ID, GroupID: primary.GroupID}
	if err := store.CreateGuest(ctx, companion); err != nil {
		t.Fatal(err)
	}

	idx, err := guest.BuildIndex(ctx, store, primary.Phone)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{store: store, index: idx, event: event, primary: primary, companion: companion}
}

func newRunner(f *fixture, cache *toolcache.Cache, simulation bool) *Runner {
	reg := NewRegistry()
	reg.Register(NewUpdateRSVPTool(f.store))
	reg.Register(NewUpdateDietaryTool(f.store))
	reg.Register(NewUpdateNotesTool(f.store))
	reg.Register(NewUpdateCompanionNameTool(f.store))
	reg.Register(NewRecordConfirmationTool(f.store))
	reg.Register(NewCreateSpecialRequestTool(f.store, nil))
	reg.Register(NewGetEventDetailsTool())
	return NewRunner(reg, cache, simulation, nil)
}

func (f *fixture) invocation(input map[string]any) *Invocation {
	return &Invocation{EventID: f.event.ID, Index: f.index, Input: input}
}

func TestRunResolvesPrimaryByDefault(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	out, err := r.Run(context.Background(), "update_rsvp_status",
		f.invocation(map[string]any{"status": "CONFIRMED"}))
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Fatal("expected a result message")
	}

	g, err := f.store.GuestByID(context.Background(), f.primary.ID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Status != guest.RSVPConfirmed {
		t.Fatalf("expected primary confirmed, got %s", g.Status)
	}
}

func TestRunResolvesCompanion(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	_, err := r.Run(context.Background(), "update_rsvp_status",
		f.invocation(map[string]any{"guest_id": f.companion.ID, "status": "DECLINED"}))
	if err != nil {
		t.Fatal(err)
	}

	g, err := f.store.GuestByID(context.Background(), f.companion.ID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Status != guest.RSVPDeclined {
		t.Fatalf("expected companion declined, got %s", g.Status)
	}
	// Primary is untouched.
	p, _ := f.store.GuestByID(context.Background(), f.primary.ID)
	if p.Status != guest.RSVPPending {
		t.Fatalf("primary must stay pending, got %s", p.Status)
	}
}

func TestRunRejectsForeignGuest(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	_, err := r.Run(context.Background(), "update_rsvp_status",
		f.invocation(map[string]any{"guest_id": "not-in-group", "status": "CONFIRMED"}))
	if err == nil {
		t.Fatal("expected error for guest outside the group")
	}
}

func TestRunUnknownTool(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	_, err := r.Run(context.Background(), "no_such_tool", f.invocation(nil))
	if err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestSimulationSkipsWrites(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, true)

	out, err := r.Run(context.Background(), "update_rsvp_status",
		f.invocation(map[string]any{"status": "CONFIRMED"}))
	if err != nil {
		t.Fatal(err)
	}
	if out == "" {
		t.Fatal("expected a simulated result message")
	}

	g, err := f.store.GuestByID(context.Background(), f.primary.ID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Status != guest.RSVPPending {
		t.Fatalf("simulation must not write, got status %s", g.Status)
	}
}

func TestReadCacheHitAndInvalidation(t *testing.T) {
	f := setupFixture(t)
	cache := toolcache.New(time.Hour)
	r := newRunner(f, cache, false)
	ctx := context.Background()

	first, err := r.Run(ctx, "get_event_details", f.invocation(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cache.Len(f.event.ID) != 1 {
		t.Fatalf("expected 1 cached entry, got %d", cache.Len(f.event.ID))
	}

	// A second read is served from cache.
	second, err := r.Run(ctx, "get_event_details", f.invocation(nil))
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("expected identical cached result")
	}

	// Any mutation drops the event's cached reads.
	_, err = r.Run(ctx, "update_guest_notes",
		f.invocation(map[string]any{"notes": "allergic to cats"}))
	if err != nil {
		t.Fatal(err)
	}
	if cache.Len(f.event.ID) != 0 {
		t.Fatalf("expected cache invalidated after mutation, got %d entries", cache.Len(f.event.ID))
	}
}

func TestManifestTagsLastTool(t *testing.T) {
	f := setupFixture(t)
	r := newRunner(f, nil, false)

	defs := r.Registry().Definitions()
	if len(defs) != 7 {
		t.Fatalf("expected 7 tool definitions, got %d", len(defs))
	}
	for i, d := range defs[:len(defs)-1] {
		if d.CacheControl != nil {
			t.Fatalf("definition %d must not carry a cache hint", i)
		}
	}
	if defs[len(defs)-1].CacheControl == nil {
		t.Fatal("final definition must carry the cache hint")
	}
}
