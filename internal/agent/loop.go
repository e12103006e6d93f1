// Package agent implements the chatbot's tool-calling agents: the main
// conversation agent, the guest-update sub-agent, and the bounded loop
// both run on.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/festivo/festivo/internal/ledger"
	"github.com/festivo/festivo/internal/provider"
	"github.com/festivo/festivo/internal/tools"
)

// ApologyText is returned when the very first model call of an execution
// fails and there is nothing earlier to fall back to.
const ApologyText = "Sorry, I'm having trouble responding right now. Please try again in a moment."

// depthCapNote is appended when an execution runs out of loop iterations
// before the model stops calling tools.
const depthCapNote = "I couldn't fully finish processing this request. Could you rephrase or split it into smaller steps?"

// LoopConfig bounds one agent's tool-calling loop.
type LoopConfig struct {
	AgentName     string
	Model         string
	MaxIterations int
	MaxTokens     int
	Temperature   float64
}

// Loop drives a bounded tool-calling conversation with the model: call,
// execute requested tools, feed results back, repeat until the model
// answers in plain text or the iteration budget runs out.
type Loop struct {
	provider provider.LLMProvider
	runner   *tools.Runner
	recorder ledger.Recorder
	logger   *slog.Logger
	cfg      LoopConfig
}

// NewLoop creates an agent loop. A nil recorder records nothing.
func NewLoop(p provider.LLMProvider, runner *tools.Runner, recorder ledger.Recorder, logger *slog.Logger, cfg LoopConfig) *Loop {
	if recorder == nil {
		recorder = ledger.NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.Model == "" {
		cfg.Model = p.DefaultModel()
	}
	return &Loop{provider: p, runner: runner, recorder: recorder, logger: logger, cfg: cfg}
}

// RunRequest is one agent execution: the prompt, the conversation so far,
// and the tool invocation context. Parent ids link sub-agent executions
// under the iteration that spawned them.
type RunRequest struct {
	System            []provider.SystemBlock
	Messages          []provider.Message
	Invocation        *tools.Invocation
	ConversationID    string
	ParentExecutionID string
	ParentIterationID string
}

// RunResult is the outcome of one agent execution.
type RunResult struct {
	Text        string
	ExecutionID string
	Iterations  int
	Usage       provider.Usage
	DepthCapped bool
}

// Run executes the agent loop. It returns an error only when the first
// model call fails outright; every later failure degrades to the best
// text produced so far.
func (l *Loop) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	exec := &ledger.Execution{
		ID:                uuid.NewString(),
		AgentName:         l.cfg.AgentName,
		ParentExecutionID: req.ParentExecutionID,
		ParentIterationID: req.ParentIterationID,
		ConversationID:    req.ConversationID,
		Model:             l.cfg.Model,
		SystemPrompt:      systemText(req.System),
		UserMessage:       lastUserText(req.Messages),
		StartedAt:         time.Now(),
	}
	l.record(func() error { return l.recorder.ExecutionStarted(exec) })

	messages := append([]provider.Message(nil), req.Messages...)
	toolDefs := l.runner.Registry().Definitions()

	var totalUsage provider.Usage
	lastText := ""

	finish := func(status ledger.Status, text, errText string, iterations int, capped bool) *RunResult {
		exec.Status = status
		exec.InputTokens = totalUsage.InputTokens
		exec.OutputTokens = totalUsage.OutputTokens
		exec.CacheWriteTokens = totalUsage.CacheCreationInputTokens
		exec.CacheReadTokens = totalUsage.CacheReadInputTokens
		exec.Iterations = iterations
		exec.FinalText = text
		exec.ErrorText = errText
		exec.CompletedAt = time.Now()
		exec.DurationMS = exec.CompletedAt.Sub(exec.StartedAt).Milliseconds()
		l.record(func() error { return l.recorder.ExecutionCompleted(exec) })
		return &RunResult{
			Text:        text,
			ExecutionID: exec.ID,
			Iterations:  iterations,
			Usage:       totalUsage,
			DepthCapped: capped,
		}
	}

	for i := 1; i <= l.cfg.MaxIterations; i++ {
		iter := &ledger.Iteration{
			ID:            uuid.NewString(),
			ExecutionID:   exec.ID,
			Number:        i,
			Status:        ledger.StatusRunning,
			InputSnapshot: marshalJSON(messages),
			StartedAt:     time.Now(),
		}
		l.record(func() error { return l.recorder.IterationStarted(iter) })

		completeIter := func(status ledger.Status) {
			iter.Status = status
			iter.CompletedAt = time.Now()
			iter.DurationMS = iter.CompletedAt.Sub(iter.StartedAt).Milliseconds()
			l.record(func() error { return l.recorder.IterationCompleted(iter) })
		}

		callStart := time.Now()
		resp, err := l.provider.Messages(ctx, &provider.MessageRequest{
			Model:       l.cfg.Model,
			System:      req.System,
			Messages:    messages,
			Tools:       toolDefs,
			MaxTokens:   l.cfg.MaxTokens,
			Temperature: l.cfg.Temperature,
		})
		callDuration := time.Since(callStart)

		call := &ledger.APICall{
			ID:          uuid.NewString(),
			ExecutionID: exec.ID,
			IterationID: iter.ID,
			Model:       l.cfg.Model,
			DurationMS:  callDuration.Milliseconds(),
			CreatedAt:   callStart,
		}
		if err != nil {
			call.ErrorText = err.Error()
		} else {
			call.StopReason = resp.StopReason
			call.InputTokens = resp.Usage.InputTokens
			call.OutputTokens = resp.Usage.OutputTokens
			call.CacheWriteTokens = resp.Usage.CacheCreationInputTokens
			call.CacheReadTokens = resp.Usage.CacheReadInputTokens
		}
		l.record(func() error { return l.recorder.APICallLogged(call) })

		if err != nil {
			completeIter(ledger.StatusFailed)
			if i == 1 {
				l.logger.Error("first model call failed", "agent", l.cfg.AgentName, "error", err)
				finish(ledger.StatusFailed, ApologyText, err.Error(), i, false)
				return nil, fmt.Errorf("model call failed: %w", err)
			}
			l.logger.Warn("model call failed mid-loop, falling back to prior text",
				"agent", l.cfg.AgentName, "iteration", i, "error", err)
			text := lastText
			if text == "" {
				text = ApologyText
			}
			return finish(ledger.StatusCompleted, text, err.Error(), i, false), nil
		}

		totalUsage.Add(resp.Usage)

		uses := resp.ToolUses()
		iter.ToolCalls = len(uses)
		iter.InputTokens = resp.Usage.InputTokens
		iter.OutputTokens = resp.Usage.OutputTokens
		iter.OutputText = resp.Text()
		if len(uses) > 0 {
			iter.ToolCallsJSON = marshalJSON(uses)
		}

		if text := resp.Text(); text != "" {
			lastText = text
		}

		if resp.Empty() {
			completeIter(ledger.StatusCompleted)
			l.logger.Warn("empty model response, falling back to prior text",
				"agent", l.cfg.AgentName, "iteration", i)
			text := lastText
			if text == "" {
				text = ApologyText
			}
			return finish(ledger.StatusCompleted, text, "empty response", i, false), nil
		}

		if len(uses) == 0 {
			completeIter(ledger.StatusCompleted)
			return finish(ledger.StatusCompleted, stripTrailingNote(lastText), "", i, false), nil
		}

		messages = append(messages, provider.Message{Role: "assistant", Content: resp.Content})

		// Sub-agents spawned by a tool in this iteration hang off it in
		// the ledger's call tree.
		inv := *req.Invocation
		inv.ConversationID = req.ConversationID
		inv.ParentExecutionID = exec.ID
		inv.ParentIterationID = iter.ID

		results := make([]provider.ContentBlock, 0, len(uses))
		for _, use := range uses {
			callInv := inv
			callInv.Input = use.Input
			result, err := l.runner.Run(ctx, use.Name, &callInv)
			if err != nil {
				results = append(results, provider.ToolResultBlock(use.ID, "Error: "+err.Error(), true))
				continue
			}
			results = append(results, provider.ToolResultBlock(use.ID, result, false))
		}
		messages = append(messages, provider.Message{Role: "user", Content: results})

		// The iteration closes only once its tool results exist, so the
		// row carries the full round trip.
		iter.ToolResultsJSON = marshalJSON(results)
		completeIter(ledger.StatusCompleted)
	}

	l.logger.Warn("iteration budget exhausted", "agent", l.cfg.AgentName, "max_iterations", l.cfg.MaxIterations)
	text := stripTrailingNote(lastText)
	if text == "" {
		text = depthCapNote
	} else {
		text = text + "\n\n" + depthCapNote
	}
	return finish(ledger.StatusCompleted, text, "iteration budget exhausted", l.cfg.MaxIterations, true), nil
}

func (l *Loop) record(fn func() error) {
	if err := fn(); err != nil {
		l.logger.Warn("ledger write failed", "agent", l.cfg.AgentName, "error", err)
	}
}

// marshalJSON renders a ledger payload. Encoding failures degrade to an
// empty field, never to a broken execution.
func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func systemText(blocks []provider.SystemBlock) string {
	var parts []string
	for _, b := range blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n\n")
}

func lastUserText(messages []provider.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		var parts []string
		for _, b := range messages[i].Content {
			if b.Type == "text" && b.Text != "" {
				parts = append(parts, b.Text)
			}
		}
		return strings.Join(parts, "\n")
	}
	return ""
}

var trailingNoteRe = regexp.MustCompile(`\s*\(Note:[^)]*\)\s*$`)

// stripTrailingNote removes a trailing "(Note: ...)" aside the model
// sometimes appends to its final answer. Only the trailing one goes;
// parenthetical notes mid-text stay.
func stripTrailingNote(text string) string {
	return strings.TrimSpace(trailingNoteRe.ReplaceAllString(text, ""))
}
