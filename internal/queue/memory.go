package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/festivo/festivo/internal/bus"
)

// MemoryBuffer is the in-process Buffer: a bare debouncer with no broker
// behind it. The default for single-node deployments.
type MemoryBuffer struct {
	*Debouncer
}

// NewMemoryBuffer creates an in-memory buffer.
func NewMemoryBuffer(window time.Duration, logger *slog.Logger) *MemoryBuffer {
	return &MemoryBuffer{Debouncer: NewDebouncer(window, logger)}
}

// Enqueue feeds a message straight into the debouncer.
func (b *MemoryBuffer) Enqueue(_ context.Context, msg *bus.InboundMessage) error {
	b.Add(msg)
	return nil
}

var _ Buffer = (*MemoryBuffer)(nil)
