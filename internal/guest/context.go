package guest

import (
	"context"
	"fmt"
)

// EventContext holds the resolved state for one event a guest is invited to:
// the primary guest, its companion group, and the event metadata the tools
// and agents need. Built once per conversation turn and passed down by
// reference; never persisted.
type EventContext struct {
	Guest      *Guest
	Companions []*Guest
	Event      *Event
}

// ContextIndex maps event id to the per-event context for the current turn.
type ContextIndex map[string]*EventContext

// Ref identifies the guest a tool call resolved to.
type Ref struct {
	ID        string
	Name      string
	IsPrimary bool
}

// Resolve maps (eventID, guestID) to a concrete guest. An empty guestID, or
// one equal to the primary guest's id, resolves to the primary guest;
// otherwise the primary guest's companion group is searched. A guest id
// outside the group is a hard error: it means the agent constructed a tool
// call against a guest it was never given, not that the user was ambiguous.
func (idx ContextIndex) Resolve(eventID, guestID string) (Ref, error) {
	ec, ok := idx[eventID]
	if !ok || ec.Guest == nil {
		return Ref{}, fmt.Errorf("event %s not present in conversation context", eventID)
	}
	primary := ec.Guest
	if guestID == "" || guestID == primary.ID {
		return Ref{ID: primary.ID, Name: primary.DisplayName(), IsPrimary: true}, nil
	}
	for _, c := range ec.Companions {
		if c.ID == guestID {
			return Ref{ID: c.ID, Name: c.DisplayName()}, nil
		}
	}
	return Ref{}, fmt.Errorf("guest %s is neither the primary guest nor a member of their group for event %s", guestID, eventID)
}

// EventIDs returns the event ids present in the index.
func (idx ContextIndex) EventIDs() []string {
	ids := make([]string, 0, len(idx))
	for id := range idx {
		ids = append(ids, id)
	}
	return ids
}

// BuildIndex loads the per-turn context index for a guest phone number:
// every active, chatbot-enabled event the phone's primary guest records
// belong to, with companions and confirmation questions embedded.
func BuildIndex(ctx context.Context, store Store, phone string) (ContextIndex, error) {
	primaries, err := store.PrimaryGuestsByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("load primary guests: %w", err)
	}

	idx := make(ContextIndex)
	for _, primary := range primaries {
		event, err := store.EventDetail(ctx, primary.EventID)
		if err != nil {
			return nil, fmt.Errorf("load event %s: %w", primary.EventID, err)
		}
		if !event.Active || !event.ChatbotEnabled {
			continue
		}
		companions, err := store.Companions(ctx, primary.GroupID, primary.ID)
		if err != nil {
			return nil, fmt.Errorf("load companions for guest %s: %w", primary.ID, err)
		}
		idx[event.ID] = &EventContext{
			Guest:      primary,
			Companions: companions,
			Event:      event,
		}
	}
	return idx, nil
}
