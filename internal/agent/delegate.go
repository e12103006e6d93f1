package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/festivo/festivo/internal/guest"
	"github.com/festivo/festivo/internal/tools"
)

// DelegateTool is the conversation agent's handle on the guest-update
// sub-agent. Its execution spawns a nested agent run whose ledger rows
// hang off the calling iteration.
type DelegateTool struct {
	handler *GuestHandler
}

// NewDelegateTool creates the delegation tool.
func NewDelegateTool(handler *GuestHandler) *DelegateTool {
	return &DelegateTool{handler: handler}
}

func (t *DelegateTool) Name() string { return "manage_guest_update" }

// ReadOnly is false: the sub-agent mutates guest records, so any cached
// reads for the event must be dropped after a delegation.
func (t *DelegateTool) ReadOnly() bool { return false }

func (t *DelegateTool) Description() string {
	return "Delegate a change to the guest's records (RSVP, companions, dietary needs, confirmation answers, special requests) to the guest-update agent. Describe exactly what to change and for whom."
}

func (t *DelegateTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"event_id": map[string]any{
				"type":        "string",
				"description": "ID of the event the change applies to. Only needed when the guest is invited to more than one event.",
			},
			"instruction": map[string]any{
				"type":        "string",
				"description": "Plain language instruction for the guest-update agent, naming the person and the exact change.",
			},
		},
		"required": []string{"instruction"},
	}
}

type delegateResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (t *DelegateTool) Execute(ctx context.Context, inv *tools.Invocation, _ guest.Ref) (string, error) {
	instruction := strings.TrimSpace(tools.GetString(inv.Input, "instruction", ""))
	if instruction == "" {
		return "", fmt.Errorf("instruction is required")
	}

	outcome, err := t.handler.HandleInstruction(ctx, inv, instruction)
	if err != nil {
		return "", fmt.Errorf("guest update failed: %w", err)
	}

	res := delegateResult{Status: "done", Message: outcome.Text}
	if outcome.ClarificationNeeded {
		res.Status = "clarification_needed"
	}
	out, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Simulate still runs the sub-agent: simulation is enforced one level
// down, where the mutation tools live.
func (t *DelegateTool) Simulate(ctx context.Context, inv *tools.Invocation, ref guest.Ref) string {
	out, err := t.Execute(ctx, inv, ref)
	if err != nil {
		return "Error: " + err.Error()
	}
	return out
}
