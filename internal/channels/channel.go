// Package channels connects messaging platforms to the message bus.
package channels

import (
	"context"

	"github.com/festivo/festivo/internal/bus"
)

// Channel defines the interface for guest-facing chat platforms.
type Channel interface {
	// Name returns the channel name (e.g. "whatsapp").
	Name() string
	// Start starts the channel listener.
	Start(ctx context.Context) error
	// Stop stops the channel listener.
	Stop() error
	// Send sends a message to a specific chat.
	Send(ctx context.Context, msg *bus.OutboundMessage) error
}

// BaseChannel provides common functionality for channels.
type BaseChannel struct {
	Bus *bus.MessageBus
}
