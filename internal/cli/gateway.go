package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/festivo/festivo/internal/bus"
	"github.com/festivo/festivo/internal/channels"
	"github.com/festivo/festivo/internal/queue"
	"github.com/festivo/festivo/internal/session"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the chatbot gateway (WhatsApp)",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("Festivo Gateway")

	cfg := loadConfigOrExit()
	svc, err := buildServices(cfg)
	if err != nil {
		fmt.Printf("Setup error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions, err := session.NewManager(filepath.Join(cfg.Paths.DataDir, "sessions"))
	if err != nil {
		fmt.Printf("Session error: %v\n", err)
		os.Exit(1)
	}

	buffer, err := queue.NewBuffer(ctx, cfg.Queue, svc.logger)
	if err != nil {
		fmt.Printf("Queue error: %v\n", err)
		os.Exit(1)
	}
	defer buffer.Close()

	msgBus := bus.NewMessageBus()

	var active []channels.Channel
	if cfg.Channels.WhatsApp.Enabled {
		wa := channels.NewWhatsAppChannel(cfg.Channels.WhatsApp, cfg.Paths.WhatsAppDB, msgBus, svc.logger)
		if err := wa.Start(ctx); err != nil {
			fmt.Printf("WhatsApp error: %v\n", err)
			os.Exit(1)
		}
		active = append(active, wa)
		defer wa.Stop()
	}
	if len(active) == 0 {
		fmt.Println("Warning: no channels enabled; the gateway will idle.")
	}

	// Channel → buffer: raw inbound messages are debounced and deduplicated
	// before they reach the chatbot.
	go func() {
		for {
			msg, err := msgBus.ConsumeInbound(ctx)
			if err != nil {
				return
			}
			if err := buffer.Enqueue(ctx, msg); err != nil {
				svc.logger.Error("enqueue failed", "sender", msg.SenderID, "error", err)
			}
		}
	}()

	// Buffer → chatbot → channel.
	go func() {
		for {
			msg, err := buffer.Consume(ctx)
			if err != nil {
				return
			}
			go handleTurn(ctx, svc, sessions, msgBus, msg)
		}
	}()

	// Deliver outbound messages to their channel subscribers.
	go msgBus.DispatchOutbound(ctx)

	svc.logger.Info("gateway running",
		"model", cfg.Model.Name,
		"queue", cfg.Queue.Backend,
		"simulation", cfg.Chatbot.SimulationMode)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\nShutting down...")
}

// handleTurn runs one debounced guest turn through the chatbot and
// publishes the reply.
func handleTurn(ctx context.Context, svc *services, sessions *session.Manager, msgBus *bus.MessageBus, msg *bus.InboundMessage) {
	key := msg.Channel + ":" + msg.SenderID
	sess := sessions.GetOrCreate(key)
	history := sess.ProviderHistory(svc.cfg.Chatbot.HistoryLimit)

	reply, err := svc.chatbot.GenerateResponse(ctx, key, msg.SenderID, history, msg.Content)
	if err != nil {
		svc.logger.Error("turn failed", "sender", msg.SenderID, "error", err)
		return
	}
	if reply.Text == "" {
		// Unknown number or no active event: stay silent.
		return
	}

	sess.AddMessage("user", msg.Content)
	sess.AddMessage("assistant", reply.Text)
	if err := sessions.Save(sess); err != nil {
		svc.logger.Warn("session save failed", "key", key, "error", err)
	}

	msgBus.PublishOutbound(&bus.OutboundMessage{
		Channel:        msg.Channel,
		ChatID:         msg.ChatID,
		ConversationID: key,
		Content:        reply.Text,
	})
}
