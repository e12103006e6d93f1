// Package tools provides the tool framework and implementations the chatbot
// agents expose to the model.
package tools

import (
	"context"

	"github.com/festivo/festivo/internal/guest"
	"github.com/festivo/festivo/internal/provider"
)

// Invocation carries the per-turn context a tool call runs against: the
// event it targets, the resolved guest context for the conversation, and
// the raw model-supplied input.
type Invocation struct {
	EventID string
	Index   guest.ContextIndex
	Input   map[string]any

	// Set by the agent loop before tool execution so tools that spawn
	// sub-agents can link them into the ledger's call tree.
	ConversationID    string
	ParentExecutionID string
	ParentIterationID string
}

// Tool is the interface all chatbot tools implement. Execute receives the
// guest the call resolved to; resolution and caching happen in the Runner,
// not in individual tools.
type Tool interface {
	// Name returns the tool identifier used in tool_use blocks.
	Name() string
	// Description returns the description shown to the model.
	Description() string
	// InputSchema returns the JSON Schema for the tool input.
	InputSchema() map[string]any
	// ReadOnly reports whether the tool only reads guest data. Read-only
	// results are cacheable; anything else invalidates the event's cache.
	ReadOnly() bool
	// Execute runs the tool against the resolved guest.
	Execute(ctx context.Context, inv *Invocation, ref guest.Ref) (string, error)
	// Simulate returns the result the tool would report in simulation mode,
	// without touching persistent state.
	Simulate(ctx context.Context, inv *Invocation, ref guest.Ref) string
}

// Registry holds the tools exposed to one agent, in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Re-registering a name replaces the tool but keeps
// its manifest position.
func (r *Registry) Register(tool Tool) {
	if _, ok := r.tools[tool.Name()]; !ok {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Definitions returns the tool manifest in messages-API format. The final
// definition carries a cache hint so the whole manifest prefix is reusable
// across calls within a conversation.
func (r *Registry) Definitions() []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	if len(defs) > 0 {
		defs[len(defs)-1].CacheControl = provider.EphemeralCache()
	}
	return defs
}

// GetString extracts a string parameter with a default value.
func GetString(params map[string]any, key string, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// GetBool extracts a bool parameter with a default value.
func GetBool(params map[string]any, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}
