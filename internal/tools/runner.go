package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/festivo/festivo/internal/toolcache"
)

// Runner executes tool calls against a registry, applying the shared
// per-call pipeline: resolve the target guest, honor simulation mode,
// consult the read cache, run the tool, then update or invalidate the
// cache depending on whether the tool wrote anything.
type Runner struct {
	registry   *Registry
	cache      *toolcache.Cache
	simulation bool
	logger     *slog.Logger
}

// NewRunner creates a tool runner. A nil cache disables read caching.
func NewRunner(registry *Registry, cache *toolcache.Cache, simulation bool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry:   registry,
		cache:      cache,
		simulation: simulation,
		logger:     logger,
	}
}

// Registry returns the runner's underlying registry.
func (r *Runner) Registry() *Registry { return r.registry }

// Run executes one tool call. The guest_id input is resolved against the
// invocation's context index before the tool sees it; a guest outside the
// conversation's group fails here, not inside the tool.
func (r *Runner) Run(ctx context.Context, name string, inv *Invocation) (string, error) {
	tool, ok := r.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("tool not found: %s", name)
	}

	// The model may address a specific event when the guest is invited to
	// more than one; otherwise the invocation's default event applies.
	effective := *inv
	if eventID := GetString(inv.Input, "event_id", ""); eventID != "" {
		effective.EventID = eventID
	}

	ref, err := effective.Index.Resolve(effective.EventID, GetString(inv.Input, "guest_id", ""))
	if err != nil {
		return "", err
	}

	if r.simulation {
		r.logger.Info("tool simulated", "tool", name, "event_id", effective.EventID, "guest_id", ref.ID)
		return tool.Simulate(ctx, &effective, ref), nil
	}

	cacheKey := toolcache.Key(name, ref.ID)
	if tool.ReadOnly() && r.cache != nil {
		if cached, hit := r.cache.Get(effective.EventID, cacheKey); hit {
			r.logger.Debug("tool cache hit", "tool", name, "event_id", effective.EventID, "guest_id", ref.ID)
			return cached, nil
		}
	}

	result, err := tool.Execute(ctx, &effective, ref)
	if err != nil {
		r.logger.Warn("tool failed", "tool", name, "event_id", effective.EventID, "guest_id", ref.ID, "error", err)
		return "", err
	}

	if r.cache != nil {
		if tool.ReadOnly() {
			r.cache.Put(effective.EventID, cacheKey, result)
		} else {
			r.cache.InvalidateEvent(effective.EventID)
		}
	}

	r.logger.Info("tool executed", "tool", name, "event_id", effective.EventID, "guest_id", ref.ID, "read_only", tool.ReadOnly())
	return result, nil
}
