package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/festivo/festivo/internal/bus"
	"github.com/festivo/festivo/internal/config"
)

// KafkaBuffer is the broker-backed Buffer: inbound messages are produced
// to a topic keyed by sender, and a consumer-group reader feeds them into
// the debouncer. Lets several gateway replicas share one inbound stream.
type KafkaBuffer struct {
	writer *kafka.Writer
	reader *kafka.Reader
	deb    *Debouncer
	logger *slog.Logger
	cancel context.CancelFunc
}

// NewKafkaBuffer creates a Kafka-backed buffer and starts its consumer pump.
func NewKafkaBuffer(ctx context.Context, cfg config.QueueConfig, logger *slog.Logger) (*KafkaBuffer, error) {
	if cfg.KafkaBrokers == "" {
		return nil, fmt.Errorf("kafka backend requires brokers")
	}
	if logger == nil {
		logger = slog.Default()
	}
	brokers := strings.Split(cfg.KafkaBrokers, ",")

	b := &KafkaBuffer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.ConsumerGroup,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		deb:    NewDebouncer(cfg.DebounceWindow, logger),
		logger: logger,
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	go b.pump(pumpCtx)
	return b, nil
}

// Enqueue produces the message to the topic, keyed by sender so one
// sender's messages land on one partition in order.
func (b *KafkaBuffer) Enqueue(ctx context.Context, msg *bus.InboundMessage) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal inbound message: %w", err)
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Channel + ":" + msg.SenderID),
		Value: value,
		Time:  msg.Timestamp,
	})
}

func (b *KafkaBuffer) pump(ctx context.Context) {
	for {
		m, err := b.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("kafka read failed", "error", err)
			continue
		}
		var msg bus.InboundMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			b.logger.Warn("malformed inbound message dropped", "error", err)
			continue
		}
		b.deb.Add(&msg)
	}
}

// Consume yields the next debounced conversation turn.
func (b *KafkaBuffer) Consume(ctx context.Context) (*bus.InboundMessage, error) {
	return b.deb.Consume(ctx)
}

// Close stops the pump and releases the Kafka connections.
func (b *KafkaBuffer) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	b.deb.Close()
	rErr := b.reader.Close()
	wErr := b.writer.Close()
	if rErr != nil {
		return rErr
	}
	return wErr
}

var _ Buffer = (*KafkaBuffer)(nil)

// NewBuffer builds the Buffer selected by the configuration.
func NewBuffer(ctx context.Context, cfg config.QueueConfig, logger *slog.Logger) (Buffer, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryBuffer(cfg.DebounceWindow, logger), nil
	case "kafka":
		return NewKafkaBuffer(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown queue backend: %s", cfg.Backend)
	}
}
