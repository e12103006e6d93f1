package agent

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/festivo/festivo/internal/config"
	"github.com/festivo/festivo/internal/guest"
	"github.com/festivo/festivo/internal/ledger"
	"github.com/festivo/festivo/internal/provider"
	"github.com/festivo/festivo/internal/toolcache"
	"github.com/festivo/festivo/internal/tools"
)

// historyCacheThreshold is the number of prior turns a conversation must
// have before the incoming message is tagged as a cache breakpoint. Short
// conversations churn too fast for the cached prefix to pay off.
const historyCacheThreshold = 2

// ChatbotService is the conversation agent guests talk to. Each incoming
// message runs one agent execution: event context is loaded fresh, the
// loop answers questions directly and delegates record changes to the
// guest-update sub-agent.
type ChatbotService struct {
	provider provider.LLMProvider
	store    guest.Store
	recorder ledger.Recorder
	cache    *toolcache.Cache
	notifier tools.SpecialRequestNotifier
	logger   *slog.Logger

	model       config.ModelConfig
	chatbot     config.ChatbotConfig
	handlerDeps HandlerDeps
}

// ServiceDeps wires the conversation agent's collaborators.
type ServiceDeps struct {
	Provider provider.LLMProvider
	Store    guest.Store
	Recorder ledger.Recorder
	Cache    *toolcache.Cache
	Notifier tools.SpecialRequestNotifier
	Logger   *slog.Logger
	Model    config.ModelConfig
	Chatbot  config.ChatbotConfig
}

// NewChatbotService creates the conversation agent.
func NewChatbotService(deps ServiceDeps) *ChatbotService {
	if deps.Recorder == nil {
		deps.Recorder = ledger.NopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = toolcache.New(deps.Chatbot.ReadCacheTTL)
	}
	return &ChatbotService{
		provider: deps.Provider,
		store:    deps.Store,
		recorder: deps.Recorder,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		model:    deps.Model,
		chatbot:  deps.Chatbot,
		handlerDeps: HandlerDeps{
			Provider:   deps.Provider,
			Store:      deps.Store,
			Recorder:   deps.Recorder,
			Cache:      deps.Cache,
			Notifier:   deps.Notifier,
			Logger:     deps.Logger,
			Simulation: deps.Chatbot.SimulationMode,
		},
	}
}

// Reply is the outcome of one conversation turn.
type Reply struct {
	Text        string
	ExecutionID string
	Usage       provider.Usage
}

// GenerateResponse handles one incoming guest message. history holds the
// prior turns of the conversation, oldest first; phone identifies the
// guest. An empty reply text means the chatbot has nothing to say to this
// number (no active chatbot-enabled event) and the channel should stay
// silent.
func (s *ChatbotService) GenerateResponse(ctx context.Context, conversationID, phone string, history []provider.Message, message string) (*Reply, error) {
	index, err := guest.BuildIndex(ctx, s.store, phone)
	if err != nil {
		return nil, err
	}

	if len(index) == 0 {
		s.logger.Info("no active chatbot-enabled event for sender", "phone", phone)
		s.recordOrphanTurn(conversationID, phone)
		return &Reply{}, nil
	}

	system, defaultEventID := s.buildSystemPrompt(index)

	inv := &tools.Invocation{
		EventID:        defaultEventID,
		Index:          index,
		ConversationID: conversationID,
	}

	loop := s.buildLoop(inv)

	incoming := provider.TextMessage("user", instructionWrapper(message))
	if len(history) > historyCacheThreshold {
		incoming.Content[0].CacheControl = provider.EphemeralCache()
	}
	messages := append(append([]provider.Message(nil), history...), incoming)

	res, err := loop.Run(ctx, &RunRequest{
		System:         system,
		Messages:       messages,
		Invocation:     inv,
		ConversationID: conversationID,
	})
	if err != nil {
		// First-call transport failure: the loop already recorded the
		// FAILED execution; the guest still gets the apology.
		return &Reply{Text: ApologyText}, nil
	}
	return &Reply{Text: res.Text, ExecutionID: res.ExecutionID, Usage: res.Usage}, nil
}

// buildLoop assembles the conversation agent's registry and loop for one
// turn. The sub-agent shares the turn's tool cache and ledger recorder.
func (s *ChatbotService) buildLoop(inv *tools.Invocation) *Loop {
	handler := NewGuestHandler(s.handlerDeps, LoopConfig{
		AgentName:     "guest_handler",
		Model:         s.model.Name,
		MaxIterations: s.model.MaxToolIterations,
		MaxTokens:     s.model.MaxTokens,
		Temperature:   s.model.Temperature,
	})

	reg := tools.NewRegistry()
	reg.Register(tools.NewGetEventDetailsTool())
	reg.Register(NewDelegateTool(handler))

	runner := tools.NewRunner(reg, s.cache, s.chatbot.SimulationMode, s.logger)
	return NewLoop(s.provider, runner, s.recorder, s.logger, LoopConfig{
		AgentName:     "chatbot",
		Model:         s.model.Name,
		MaxIterations: s.model.MaxToolIterations,
		MaxTokens:     s.model.MaxTokens,
		Temperature:   s.model.Temperature,
	})
}

// buildSystemPrompt renders the ordered system blocks: the persona, one
// block per invited event, then the RSVP-status summary across events.
// Event and status blocks repeat across the turns of a session and carry
// ephemeral cache hints.
func (s *ChatbotService) buildSystemPrompt(index guest.ContextIndex) ([]provider.SystemBlock, string) {
	eventIDs := index.EventIDs()
	sort.Strings(eventIDs)

	system := []provider.SystemBlock{provider.NewCachedSystemBlock(chatbotPersona)}

	var statusBlocks []string
	for _, id := range eventIDs {
		system = append(system, provider.NewCachedSystemBlock(eventContextBlock(index[id])))
		statusBlocks = append(statusBlocks, groupStatusBlock(index[id]))
	}
	system = append(system, provider.NewCachedSystemBlock(strings.Join(statusBlocks, "\n\n")))

	return system, eventIDs[0]
}

// recordOrphanTurn writes a FAILED execution for a message that reached
// the chatbot without any active chatbot-enabled event behind it, so the
// silence is auditable.
func (s *ChatbotService) recordOrphanTurn(conversationID, phone string) {
	now := time.Now()
	exec := &ledger.Execution{
		ID:             uuid.NewString(),
		AgentName:      "chatbot",
		ConversationID: conversationID,
		Model:          s.model.Name,
		StartedAt:      now,
	}
	if err := s.recorder.ExecutionStarted(exec); err != nil {
		s.logger.Warn("ledger write failed", "error", err)
		return
	}
	exec.Status = ledger.StatusFailed
	exec.ErrorText = "no active chatbot-enabled event for sender"
	exec.CompletedAt = now
	if err := s.recorder.ExecutionCompleted(exec); err != nil {
		s.logger.Warn("ledger write failed", "error", err)
	}
}
