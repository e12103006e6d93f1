// Package ledger records the audit trail of agent executions: one execution
// row per agent run, contiguous loop iterations under it, and one row per
// upstream API call. Sub-agent executions carry parent pointers so a whole
// turn reads as a call tree.
package ledger

import "time"

// Status is the lifecycle state of an agent execution or loop iteration.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Execution is one agent run, from the first model call to the final text.
type Execution struct {
	ID                string
	AgentName         string
	ParentExecutionID string
	ParentIterationID string
	ConversationID    string
	Model             string
	Status            Status
	SystemPrompt      string
	UserMessage       string
	InputTokens       int
	OutputTokens      int
	CacheWriteTokens  int
	CacheReadTokens   int
	Iterations        int
	FinalText         string
	ErrorText         string
	StartedAt         time.Time
	CompletedAt       time.Time
	DurationMS        int64
}

// Iteration is one pass of an execution's tool-calling loop. Numbers are
// contiguous from 1 within an execution, and an iteration is completed,
// with its tool results recorded, before the next one starts. The JSON
// payload fields hold the exact prompt and tool traffic of the pass.
type Iteration struct {
	ID              string
	ExecutionID     string
	Number          int
	Status          Status
	InputSnapshot   string
	OutputText      string
	ToolCallsJSON   string
	ToolResultsJSON string
	ToolCalls       int
	InputTokens     int
	OutputTokens    int
	StartedAt       time.Time
	CompletedAt     time.Time
	DurationMS      int64
}

// APICall is one request to the upstream model API.
type APICall struct {
	ID               string
	ExecutionID      string
	IterationID      string
	Model            string
	StopReason       string
	InputTokens      int
	OutputTokens     int
	CacheWriteTokens int
	CacheReadTokens  int
	DurationMS       int64
	ErrorText        string
	CreatedAt        time.Time
}

// Recorder observes the lifecycle of agent executions. Agents emit events;
// they never read the ledger back, so recording failures must not disturb a
// running conversation.
type Recorder interface {
	ExecutionStarted(exec *Execution) error
	IterationStarted(iter *Iteration) error
	IterationCompleted(iter *Iteration) error
	APICallLogged(call *APICall) error
	ExecutionCompleted(exec *Execution) error
}

// NopRecorder discards all events.
type NopRecorder struct{}

func (NopRecorder) ExecutionStarted(*Execution) error   { return nil }
func (NopRecorder) IterationStarted(*Iteration) error   { return nil }
func (NopRecorder) IterationCompleted(*Iteration) error { return nil }
func (NopRecorder) APICallLogged(*APICall) error        { return nil }
func (NopRecorder) ExecutionCompleted(*Execution) error { return nil }
