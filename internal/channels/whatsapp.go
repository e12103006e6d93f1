package channels

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	_ "modernc.org/sqlite"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	"github.com/festivo/festivo/internal/bus"
	"github.com/festivo/festivo/internal/config"
)

// WhatsAppChannel is a native WhatsApp client. Inbound guest messages are
// published to the bus; outbound replies are delivered via Subscribe.
type WhatsAppChannel struct {
	BaseChannel
	client    *whatsmeow.Client
	container *sqlstore.Container
	config    config.WhatsAppConfig
	dbPath    string
	logger    *slog.Logger
	sendFn    func(ctx context.Context, msg *bus.OutboundMessage) error
}

// NewWhatsAppChannel creates a WhatsApp channel storing its pairing state
// in the sqlite database at dbPath.
func NewWhatsAppChannel(cfg config.WhatsAppConfig, dbPath string, messageBus *bus.MessageBus, logger *slog.Logger) *WhatsAppChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &WhatsAppChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		dbPath:      dbPath,
		logger:      logger,
	}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

func (c *WhatsAppChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	dbLog := waLog.Stdout("Database", "WARN", true)
	clientLog := waLog.Stdout("Client", "WARN", true)

	if err := os.MkdirAll(filepath.Dir(c.dbPath), 0o755); err != nil {
		return fmt.Errorf("create whatsapp db dir: %w", err)
	}

	container, err := sqlstore.New(ctx, "sqlite", "file:"+c.dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbLog)
	if err != nil {
		return fmt.Errorf("init whatsapp db: %w", err)
	}
	c.container = container

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("get device: %w", err)
	}

	c.client = whatsmeow.NewClient(deviceStore, clientLog)
	c.client.AddEventHandler(c.eventHandler)

	if c.client.Store.ID == nil {
		// No session yet; pair via QR.
		qrChan, _ := c.client.GetQRChannel(context.Background())
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				qrPath := filepath.Join(filepath.Dir(c.dbPath), "whatsapp-qr.png")
				if err := qrcode.WriteFile(evt.Code, qrcode.Medium, 512, qrPath); err == nil {
					fmt.Printf("WhatsApp login QR code saved to %s\n", qrPath)
					fmt.Println("Scan it with your phone to pair.")
				}
			} else {
				c.logger.Info("whatsapp login event", "event", evt.Event)
			}
		}
	} else {
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		c.logger.Info("whatsapp connected")
	}

	c.Bus.Subscribe(c.Name(), func(msg *bus.OutboundMessage) {
		go c.handleOutbound(msg)
	})

	return nil
}

func (c *WhatsAppChannel) Stop() error {
	if c.client != nil {
		c.client.Disconnect()
	}
	if c.container != nil {
		c.container.Close()
	}
	return nil
}

func (c *WhatsAppChannel) Send(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.client == nil {
		return fmt.Errorf("client not initialized")
	}

	jid, err := types.ParseJID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid JID: %w", err)
	}

	waMsg := &waE2E.Message{
		Conversation: proto.String(msg.Content),
	}
	_, err = c.client.SendMessage(ctx, jid, waMsg)
	return err
}

func (c *WhatsAppChannel) handleOutbound(msg *bus.OutboundMessage) {
	if msg.Content == "" {
		// Empty reply means the chatbot chose to stay silent.
		return
	}
	sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.sendOutbound(sendCtx, msg); err != nil {
		c.logger.Error("whatsapp send failed", "chat", msg.ChatID, "error", err)
		return
	}
	c.logger.Info("whatsapp reply sent", "chat", msg.ChatID)
}

func (c *WhatsAppChannel) sendOutbound(ctx context.Context, msg *bus.OutboundMessage) error {
	if c.sendFn != nil {
		return c.sendFn(ctx, msg)
	}
	return c.Send(ctx, msg)
}

func (c *WhatsAppChannel) eventHandler(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		c.handleMessage(v)
	}
}

func (c *WhatsAppChannel) handleMessage(v *events.Message) {
	if v.Info.IsFromMe {
		return
	}

	content := extractText(v.Message)
	if content == "" || shouldDropSystemNoise(content) {
		return
	}

	sender := v.Info.Sender.User
	if !c.isAllowed(sender) {
		c.logger.Warn("unauthorized whatsapp sender", "sender", sender)
		if c.config.DropUnauthorized {
			return
		}
	}

	c.Bus.PublishInbound(&bus.InboundMessage{
		Channel:   c.Name(),
		SenderID:  sender,
		ChatID:    v.Info.Chat.String(),
		MessageID: "wa:" + string(v.Info.ID),
		Content:   content,
		Timestamp: v.Info.Timestamp,
	})
}

// extractText pulls the text body out of a message. Media and reactions
// have no text the chatbot can act on, so they yield "".
func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if t := msg.GetConversation(); t != "" {
		return t
	}
	if t := msg.GetExtendedTextMessage().GetText(); t != "" {
		return t
	}
	return ""
}

// shouldDropSystemNoise filters raw protocol payloads that sometimes leak
// through as message text.
func shouldDropSystemNoise(content string) bool {
	if strings.Contains(content, "senderKeyDistributionMessage") {
		return true
	}
	if strings.Contains(content, "messageContextInfo") &&
		strings.Contains(content, "{") &&
		strings.Contains(content, ":") {
		return true
	}
	return false
}

func (c *WhatsAppChannel) isAllowed(sender string) bool {
	if len(c.config.AllowFrom) == 0 {
		return true
	}
	for _, allowed := range c.config.AllowFrom {
		if allowed == sender {
			return true
		}
	}
	return false
}
