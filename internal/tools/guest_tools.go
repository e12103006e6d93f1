package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/festivo/festivo/internal/guest"
)

func guestIDProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "ID of the guest to act on. Omit to act on the primary guest of the conversation.",
	}
}

func eventIDProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "ID of the event the call targets. Only needed when the guest is invited to more than one event.",
	}
}

// UpdateRSVPTool sets a guest's attendance status.
type UpdateRSVPTool struct {
	store guest.Store
}

func NewUpdateRSVPTool(store guest.Store) *UpdateRSVPTool {
	return &UpdateRSVPTool{store: store}
}

func (t *UpdateRSVPTool) Name() string   { return "update_rsvp_status" }
func (t *UpdateRSVPTool) ReadOnly() bool { return false }
func (t *UpdateRSVPTool) Description() string {
	return "Update the RSVP status of a guest (the primary guest or one of their companions)."
}

func (t *UpdateRSVPTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": eventIDProperty(),
			"guest_id": guestIDProperty(),
			"status": map[string]any{
				"type":        "string",
				"description": "New attendance status.",
				"enum":        []string{"CONFIRMED", "DECLINED", "PENDING"},
			},
		},
		"required": []string{"status"},
	}
}

func (t *UpdateRSVPTool) Execute(ctx context.Context, inv *Invocation, ref guest.Ref) (string, error) {
	status := guest.RSVPStatus(strings.ToUpper(strings.TrimSpace(GetString(inv.Input, "status", ""))))
	if !guest.ValidRSVPStatus(status) || status == guest.RSVPInactive {
		return "", fmt.Errorf("status must be CONFIRMED, DECLINED, or PENDING")
	}
	if err := t.store.UpdateRSVP(ctx, ref.ID, status); err != nil {
		return "", err
	}
	return fmt.Sprintf("RSVP status for %s updated to %s.", ref.Name, status), nil
}

func (t *UpdateRSVPTool) Simulate(_ context.Context, inv *Invocation, ref guest.Ref) string {
	status := strings.ToUpper(strings.TrimSpace(GetString(inv.Input, "status", "")))
	return fmt.Sprintf("[simulation] RSVP status for %s would be updated to %s.", ref.Name, status)
}

// UpdateDietaryTool records a guest's dietary restrictions.
type UpdateDietaryTool struct {
	store guest.Store
}

func NewUpdateDietaryTool(store guest.Store) *UpdateDietaryTool {
	return &UpdateDietaryTool{store: store}
}

func (t *UpdateDietaryTool) Name() string   { return "update_dietary_restrictions" }
func (t *UpdateDietaryTool) ReadOnly() bool { return false }
func (t *UpdateDietaryTool) Description() string {
	return "Record or replace a guest's dietary restrictions (allergies, vegetarian, etc.)."
}

func (t *UpdateDietaryTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": eventIDProperty(),
			"guest_id": guestIDProperty(),
			"restrictions": map[string]any{
				"type":        "string",
				"description": "Free-text dietary restrictions. An empty string clears them.",
			},
		},
		"required": []string{"restrictions"},
	}
}

func (t *UpdateDietaryTool) Execute(ctx context.Context, inv *Invocation, ref guest.Ref) (string, error) {
	restrictions := strings.TrimSpace(GetString(inv.Input, "restrictions", ""))
	if err := t.store.UpdateDietaryRestrictions(ctx, ref.ID, restrictions); err != nil {
		return "", err
	}
	if restrictions == "" {
		return fmt.Sprintf("Dietary restrictions for %s cleared.", ref.Name), nil
	}
	return fmt.Sprintf("Dietary restrictions for %s updated to: %s", ref.Name, restrictions), nil
}

func (t *UpdateDietaryTool) Simulate(_ context.Context, inv *Invocation, ref guest.Ref) string {
	return fmt.Sprintf("[simulation] Dietary restrictions for %s would be updated.", ref.Name)
}

// UpdateNotesTool replaces a guest's free-text notes.
type UpdateNotesTool struct {
	store guest.Store
}

func NewUpdateNotesTool(store guest.Store) *UpdateNotesTool {
	return &UpdateNotesTool{store: store}
}

func (t *UpdateNotesTool) Name() string   { return "update_guest_notes" }
func (t *UpdateNotesTool) ReadOnly() bool { return false }
func (t *UpdateNotesTool) Description() string {
	return "Replace the internal notes attached to a guest record."
}

func (t *UpdateNotesTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": eventIDProperty(),
			"guest_id": guestIDProperty(),
			"notes": map[string]any{
				"type":        "string",
				"description": "New notes content. Replaces any previous notes.",
			},
		},
		"required": []string{"notes"},
	}
}

func (t *UpdateNotesTool) Execute(ctx context.Context, inv *Invocation, ref guest.Ref) (string, error) {
	notes := strings.TrimSpace(GetString(inv.Input, "notes", ""))
	if err := t.store.UpdateNotes(ctx, ref.ID, notes); err != nil {
		return "", err
	}
	return fmt.Sprintf("Notes for %s updated.", ref.Name), nil
}

func (t *UpdateNotesTool) Simulate(_ context.Context, inv *Invocation, ref guest.Ref) string {
	return fmt.Sprintf("[simulation] Notes for %s would be updated.", ref.Name)
}

// UpdateCompanionNameTool names or renames a companion in the guest's group.
// The primary guest cannot be renamed through the chatbot.
type UpdateCompanionNameTool struct {
	store guest.Store
}

func NewUpdateCompanionNameTool(store guest.Store) *UpdateCompanionNameTool {
	return &UpdateCompanionNameTool{store: store}
}

func (t *UpdateCompanionNameTool) Name() string   { return "update_companion_name" }
func (t *UpdateCompanionNameTool) ReadOnly() bool { return false }
func (t *UpdateCompanionNameTool) Description() string {
	return "Set the name of a companion in the guest's group, e.g. when an unnamed plus-one is identified."
}

func (t *UpdateCompanionNameTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": eventIDProperty(),
			"guest_id": map[string]any{
				"type":        "string",
				"description": "ID of the companion to name. Must not be the primary guest.",
			},
			"name": map[string]any{
				"type":        "string",
				"description": "The companion's name.",
			},
		},
		"required": []string{"guest_id", "name"},
	}
}

func (t *UpdateCompanionNameTool) Execute(ctx context.Context, inv *Invocation, ref guest.Ref) (string, error) {
	if ref.IsPrimary {
		return "", fmt.Errorf("the primary guest cannot be renamed; only companions can")
	}
	name := strings.TrimSpace(GetString(inv.Input, "name", ""))
	if name == "" {
		return "", fmt.Errorf("name is required")
	}
	if err := t.store.RenameGuest(ctx, ref.ID, name); err != nil {
		return "", err
	}
	return fmt.Sprintf("Companion is now registered as %s.", name), nil
}

func (t *UpdateCompanionNameTool) Simulate(_ context.Context, inv *Invocation, ref guest.Ref) string {
	name := strings.TrimSpace(GetString(inv.Input, "name", ""))
	return fmt.Sprintf("[simulation] Companion would be registered as %s.", name)
}

// RecordConfirmationTool stores a guest's answer to one of the event's
// confirmation questions. Answering the same question twice replaces the
// earlier answer.
type RecordConfirmationTool struct {
	store guest.Store
}

func NewRecordConfirmationTool(store guest.Store) *RecordConfirmationTool {
	return &RecordConfirmationTool{store: store}
}

func (t *RecordConfirmationTool) Name() string   { return "record_confirmation_response" }
func (t *RecordConfirmationTool) ReadOnly() bool { return false }
func (t *RecordConfirmationTool) Description() string {
	return "Record a guest's answer to one of the event's confirmation questions. Use option_id for a listed option, or custom_response for a free-text answer."
}

func (t *RecordConfirmationTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": eventIDProperty(),
			"guest_id": guestIDProperty(),
			"question_id": map[string]any{
				"type":        "string",
				"description": "ID of the confirmation question being answered.",
			},
			"option_id": map[string]any{
				"type":        "string",
				"description": "ID of the selected option, when the answer is one of the listed choices.",
			},
			"custom_response": map[string]any{
				"type":        "string",
				"description": "Free-text answer, when none of the listed options fits.",
			},
		},
		"required": []string{"question_id"},
	}
}

func (t *RecordConfirmationTool) findQuestion(inv *Invocation, questionID string) (*guest.ConfirmationQuestion, error) {
	ec, ok := inv.Index[inv.EventID]
	if !ok || ec.Event == nil {
		return nil, fmt.Errorf("event %s not present in conversation context", inv.EventID)
	}
	for i := range ec.Event.Confirmations {
		if ec.Event.Confirmations[i].ID == questionID {
			return &ec.Event.Confirmations[i], nil
		}
	}
	return nil, fmt.Errorf("question %s does not belong to event %s", questionID, inv.EventID)
}

func (t *RecordConfirmationTool) Execute(ctx context.Context, inv *Invocation, ref guest.Ref) (string, error) {
	questionID := strings.TrimSpace(GetString(inv.Input, "question_id", ""))
	optionID := strings.TrimSpace(GetString(inv.Input, "option_id", ""))
	custom := strings.TrimSpace(GetString(inv.Input, "custom_response", ""))
	if questionID == "" {
		return "", fmt.Errorf("question_id is required")
	}
	if optionID == "" && custom == "" {
		return "", fmt.Errorf("either option_id or custom_response is required")
	}

	q, err := t.findQuestion(inv, questionID)
	if err != nil {
		return "", err
	}
	answer := custom
	if optionID != "" {
		found := false
		for _, o := range q.Options {
			if o.ID == optionID {
				answer = o.Label
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("option %s does not belong to question %s", optionID, questionID)
		}
	}

	err = t.store.UpsertConfirmationResponse(ctx, guest.ConfirmationResponse{
		GuestID:        ref.ID,
		QuestionID:     questionID,
		OptionID:       optionID,
		CustomResponse: custom,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Recorded answer for %s to %q: %s", ref.Name, q.Question, answer), nil
}

func (t *RecordConfirmationTool) Simulate(_ context.Context, inv *Invocation, ref guest.Ref) string {
	return fmt.Sprintf("[simulation] Confirmation answer for %s would be recorded.", ref.Name)
}

// SpecialRequestNotifier is notified when a guest files a special request.
// Delivery is best-effort; the request row is already persisted.
type SpecialRequestNotifier interface {
	SpecialRequestFiled(ctx context.Context, event *guest.Event, guestName, request string)
}

// CreateSpecialRequestTool files a free-text request for manual host review.
type CreateSpecialRequestTool struct {
	store    guest.Store
	notifier SpecialRequestNotifier
}

// NewCreateSpecialRequestTool creates the tool. notifier may be nil.
func NewCreateSpecialRequestTool(store guest.Store, notifier SpecialRequestNotifier) *CreateSpecialRequestTool {
	return &CreateSpecialRequestTool{store: store, notifier: notifier}
}

func (t *CreateSpecialRequestTool) Name() string   { return "create_special_request" }
func (t *CreateSpecialRequestTool) ReadOnly() bool { return false }
func (t *CreateSpecialRequestTool) Description() string {
	return "File a special request for the hosts to review manually, when no other tool covers what the guest needs."
}

func (t *CreateSpecialRequestTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": eventIDProperty(),
			"guest_id": guestIDProperty(),
			"request": map[string]any{
				"type":        "string",
				"description": "What the guest is asking for, in their own words.",
			},
		},
		"required": []string{"request"},
	}
}

func (t *CreateSpecialRequestTool) Execute(ctx context.Context, inv *Invocation, ref guest.Ref) (string, error) {
	request := strings.TrimSpace(GetString(inv.Input, "request", ""))
	if request == "" {
		return "", fmt.Errorf("request is required")
	}
	if _, err := t.store.CreateSpecialRequest(ctx, inv.EventID, ref.ID, request); err != nil {
		return "", err
	}
	if t.notifier != nil {
		var event *guest.Event
		if ec, ok := inv.Index[inv.EventID]; ok {
			event = ec.Event
		}
		t.notifier.SpecialRequestFiled(ctx, event, ref.Name, request)
	}
	return fmt.Sprintf("Special request filed for %s. The hosts will review it.", ref.Name), nil
}

func (t *CreateSpecialRequestTool) Simulate(_ context.Context, inv *Invocation, ref guest.Ref) string {
	return fmt.Sprintf("[simulation] Special request for %s would be filed for host review.", ref.Name)
}
