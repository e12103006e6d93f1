package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/festivo/festivo/internal/guest"
)

// GetEventDetailsTool returns the event information sheet: date, venue,
// hosts, FAQ, and the guest group's current state. Read-only, so its result
// is served from the tool cache until something writes to the event.
type GetEventDetailsTool struct{}

func NewGetEventDetailsTool() *GetEventDetailsTool { return &GetEventDetailsTool{} }

func (t *GetEventDetailsTool) Name() string   { return "get_event_details" }
func (t *GetEventDetailsTool) ReadOnly() bool { return true }
func (t *GetEventDetailsTool) Description() string {
	return "Get the event details: date, venue, hosts, FAQ, confirmation questions, and the current state of the guest's group."
}

func (t *GetEventDetailsTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": map[string]any{
				"type":        "string",
				"description": "ID of the event to describe. Only needed when the guest is invited to more than one event.",
			},
		},
	}
}

func (t *GetEventDetailsTool) Execute(_ context.Context, inv *Invocation, ref guest.Ref) (string, error) {
	ec, ok := inv.Index[inv.EventID]
	if !ok || ec.Event == nil {
		return "", fmt.Errorf("event %s not present in conversation context", inv.EventID)
	}
	return renderEventDetails(ec), nil
}

func (t *GetEventDetailsTool) Simulate(_ context.Context, inv *Invocation, ref guest.Ref) string {
	if ec, ok := inv.Index[inv.EventID]; ok {
		return renderEventDetails(ec)
	}
	return "[simulation] No event details available."
}

func renderEventDetails(ec *guest.EventContext) string {
	var b strings.Builder
	e := ec.Event

	fmt.Fprintf(&b, "Event: %s\n", e.Name)
	if e.Hosts != "" {
		fmt.Fprintf(&b, "Hosts: %s\n", e.Hosts)
	}
	if !e.Date.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", e.Date.Format("Monday, 2 January 2006 at 15:04"))
	}
	if e.VenueName != "" {
		fmt.Fprintf(&b, "Venue: %s", e.VenueName)
		if e.VenueAddress != "" {
			fmt.Fprintf(&b, " (%s)", e.VenueAddress)
		}
		b.WriteString("\n")
	}
	if e.FAQ != "" {
		fmt.Fprintf(&b, "\nFAQ:\n%s\n", e.FAQ)
	}

	if len(e.Confirmations) > 0 {
		b.WriteString("\nConfirmation questions:\n")
		for _, q := range e.Confirmations {
			fmt.Fprintf(&b, "- [%s] %s", q.ID, q.Question)
			if len(q.Options) > 0 {
				var labels []string
				for _, o := range q.Options {
					labels = append(labels, fmt.Sprintf("%s (%s)", o.Label, o.ID))
				}
				fmt.Fprintf(&b, "; options: %s", strings.Join(labels, ", "))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\nGuest group:\n")
	writeGuestLine(&b, ec.Guest, true)
	for _, c := range ec.Companions {
		writeGuestLine(&b, c, false)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeGuestLine(b *strings.Builder, g *guest.Guest, primary bool) {
	role := "companion"
	if primary {
		role = "primary guest"
	}
	fmt.Fprintf(b, "- [%s] %s (%s): %s", g.ID, g.DisplayName(), role, g.Status)
	if g.DietaryRestrictions != "" {
		fmt.Fprintf(b, ", dietary: %s", g.DietaryRestrictions)
	}
	if g.SeatLabel != "" {
		fmt.Fprintf(b, ", seat: %s", g.SeatLabel)
	}
	b.WriteString("\n")
}
