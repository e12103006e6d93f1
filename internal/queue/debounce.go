// Package queue buffers inbound guest messages before they reach the
// chatbot: rapid-fire messages from the same sender are coalesced into one
// conversation turn, and redelivered messages are dropped by id.
package queue

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/festivo/festivo/internal/bus"
)

// Buffer is the inbound buffering boundary. Enqueue accepts raw channel
// messages; Consume yields debounced, deduplicated conversation turns.
type Buffer interface {
	Enqueue(ctx context.Context, msg *bus.InboundMessage) error
	Consume(ctx context.Context) (*bus.InboundMessage, error)
	Close() error
}

// dedupLimit bounds the remembered message-id set.
const dedupLimit = 4096

// Debouncer implements the coalescing window. Messages from one sender
// arriving within the window are merged, newline-joined, into a single
// turn that flushes when the sender goes quiet.
type Debouncer struct {
	window time.Duration
	out    chan *bus.InboundMessage
	logger *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pendingTurn
	seen     map[string]struct{}
	seenFIFO []string
	closed   bool
}

type pendingTurn struct {
	msg   *bus.InboundMessage
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration, logger *slog.Logger) *Debouncer {
	if window <= 0 {
		window = 8 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Debouncer{
		window:  window,
		out:     make(chan *bus.InboundMessage, 100),
		logger:  logger,
		pending: make(map[string]*pendingTurn),
		seen:    make(map[string]struct{}),
	}
}

// Add feeds one raw message into the debouncer.
func (d *Debouncer) Add(msg *bus.InboundMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if msg.MessageID != "" {
		if _, dup := d.seen[msg.MessageID]; dup {
			d.logger.Debug("duplicate message dropped", "message_id", msg.MessageID, "sender", msg.SenderID)
			return
		}
		d.remember(msg.MessageID)
	}

	key := msg.Channel + ":" + msg.SenderID
	if turn, ok := d.pending[key]; ok {
		turn.msg.Content = turn.msg.Content + "\n" + msg.Content
		turn.msg.Timestamp = msg.Timestamp
		turn.timer.Reset(d.window)
		return
	}

	cp := *msg
	turn := &pendingTurn{msg: &cp}
	turn.timer = time.AfterFunc(d.window, func() { d.flush(key) })
	d.pending[key] = turn
}

func (d *Debouncer) flush(key string) {
	d.mu.Lock()
	turn, ok := d.pending[key]
	if ok {
		delete(d.pending, key)
	}
	closed := d.closed
	d.mu.Unlock()
	if !ok || closed {
		return
	}
	turn.msg.Content = strings.TrimSpace(turn.msg.Content)
	d.out <- turn.msg
}

func (d *Debouncer) remember(id string) {
	d.seen[id] = struct{}{}
	d.seenFIFO = append(d.seenFIFO, id)
	if len(d.seenFIFO) > dedupLimit {
		oldest := d.seenFIFO[0]
		d.seenFIFO = d.seenFIFO[1:]
		delete(d.seen, oldest)
	}
}

// Consume blocks until a coalesced turn is ready or ctx is cancelled.
func (d *Debouncer) Consume(ctx context.Context) (*bus.InboundMessage, error) {
	select {
	case msg := <-d.out:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the debouncer. Pending turns are discarded.
func (d *Debouncer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	for key, turn := range d.pending {
		turn.timer.Stop()
		delete(d.pending, key)
	}
	return nil
}
