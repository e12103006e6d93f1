package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/festivo/festivo/internal/guest"
	"github.com/festivo/festivo/internal/ledger"
	"github.com/festivo/festivo/internal/provider"
	"github.com/festivo/festivo/internal/toolcache"
	"github.com/festivo/festivo/internal/tools"
)

// GuestHandler runs the guest-update sub-agent: it receives one natural
// language instruction from the conversation agent and applies it to the
// guest records through the mutation tools.
type GuestHandler struct {
	loop *Loop
}

// HandlerDeps wires the sub-agent's collaborators.
type HandlerDeps struct {
	Provider   provider.LLMProvider
	Store      guest.Store
	Recorder   ledger.Recorder
	Cache      *toolcache.Cache
	Notifier   tools.SpecialRequestNotifier
	Logger     *slog.Logger
	Simulation bool
}

// NewGuestHandler builds the sub-agent with its own tool registry: all
// guest mutation tools plus the event read tool, but no delegation.
func NewGuestHandler(deps HandlerDeps, cfg LoopConfig) *GuestHandler {
	reg := tools.NewRegistry()
	reg.Register(tools.NewGetEventDetailsTool())
	reg.Register(tools.NewUpdateRSVPTool(deps.Store))
	reg.Register(tools.NewUpdateDietaryTool(deps.Store))
	reg.Register(tools.NewUpdateNotesTool(deps.Store))
	reg.Register(tools.NewUpdateCompanionNameTool(deps.Store))
	reg.Register(tools.NewRecordConfirmationTool(deps.Store))
	reg.Register(tools.NewCreateSpecialRequestTool(deps.Store, deps.Notifier))

	runner := tools.NewRunner(reg, deps.Cache, deps.Simulation, deps.Logger)
	if cfg.AgentName == "" {
		cfg.AgentName = "guest_handler"
	}
	return &GuestHandler{
		loop: NewLoop(deps.Provider, runner, deps.Recorder, deps.Logger, cfg),
	}
}

// HandlerOutcome is the sub-agent's report back to the conversation agent.
type HandlerOutcome struct {
	Text                string
	ClarificationNeeded bool
}

// HandleInstruction executes one delegated instruction. The invocation
// carries the event context and the parent execution/iteration ids that
// place this run in the ledger's call tree.
func (h *GuestHandler) HandleInstruction(ctx context.Context, inv *tools.Invocation, instruction string) (*HandlerOutcome, error) {
	system := []provider.SystemBlock{
		provider.NewCachedSystemBlock(guestHandlerPersona),
	}
	if ec, ok := inv.Index[inv.EventID]; ok {
		system = append(system,
			provider.NewCachedSystemBlock(eventContextBlock(ec)),
			provider.NewSystemBlock(groupStatusBlock(ec)),
		)
	}

	res, err := h.loop.Run(ctx, &RunRequest{
		System:            system,
		Messages:          []provider.Message{provider.TextMessage("user", instruction)},
		Invocation:        inv,
		ConversationID:    inv.ConversationID,
		ParentExecutionID: inv.ParentExecutionID,
		ParentIterationID: inv.ParentIterationID,
	})
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(res.Text)
	if rest, ok := strings.CutPrefix(text, clarifyPrefix); ok {
		return &HandlerOutcome{Text: strings.TrimSpace(rest), ClarificationNeeded: true}, nil
	}
	return &HandlerOutcome{Text: text}, nil
}
