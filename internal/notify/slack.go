// Package notify delivers host-facing notifications. Delivery is always
// best-effort: the guest conversation never waits on or fails with a
// notification.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/festivo/festivo/internal/config"
	"github.com/festivo/festivo/internal/guest"
)

// slackAPI is the slice of the Slack client the notifier uses.
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts special requests to a Slack channel for host review.
type SlackNotifier struct {
	client  slackAPI
	channel string
	logger  *slog.Logger
}

// NewSlackNotifier creates a Slack notifier, or nil when disabled.
func NewSlackNotifier(cfg config.SlackNotifyConfig, logger *slog.Logger) *SlackNotifier {
	if !cfg.Enabled || cfg.BotToken == "" || cfg.Channel == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{
		client:  slack.New(cfg.BotToken),
		channel: cfg.Channel,
		logger:  logger,
	}
}

// SpecialRequestFiled posts the filed request to the host channel.
func (n *SlackNotifier) SpecialRequestFiled(ctx context.Context, event *guest.Event, guestName, request string) {
	eventName := "unknown event"
	if event != nil {
		eventName = event.Name
	}
	text := fmt.Sprintf(":incoming_envelope: Special request for *%s*\nGuest: %s\nRequest: %s", eventName, guestName, request)

	_, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		n.logger.Warn("slack notification failed", "event", eventName, "error", err)
		return
	}
	n.logger.Info("special request posted to slack", "event", eventName, "guest", guestName)
}
