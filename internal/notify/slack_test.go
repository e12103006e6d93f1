package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/slack-go/slack"

	"github.com/festivo/festivo/internal/config"
	"github.com/festivo/festivo/internal/guest"
)

type fakeSlack struct {
	channels []string
	calls    int
	err      error
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, _ ...slack.MsgOption) (string, string, error) {
	f.calls++
	f.channels = append(f.channels, channelID)
	return channelID, "ts", f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSlackNotifierDisabled(t *testing.T) {
	if n := NewSlackNotifier(config.SlackNotifyConfig{}, nil); n != nil {
		t.Fatal("expected nil notifier when disabled")
	}
	if n := NewSlackNotifier(config.SlackNotifyConfig{Enabled: true}, nil); n != nil {
		t.Fatal("expected nil notifier without token and channel")
	}
}

func TestSpecialRequestFiled(t *testing.T) {
	f := &fakeSlack{}
	n := &SlackNotifier{client: f, channel: "C123", logger: discardLogger()}

	n.SpecialRequestFiled(context.Background(),
		&guest.Event{Name: "Garden Wedding"}, "Carla", "needs step-free access")

	if f.calls != 1 || f.channels[0] != "C123" {
		t.Fatalf("expected one post to C123, got %+v", f)
	}
}

func TestSpecialRequestFiledSwallowsErrors(t *testing.T) {
	f := &fakeSlack{err: errors.New("channel_not_found")}
	n := &SlackNotifier{client: f, channel: "C123", logger: discardLogger()}

	// Must not panic or propagate; notification is best-effort.
	n.SpecialRequestFiled(context.Background(), nil, "Carla", "anything")
	if f.calls != 1 {
		t.Fatalf("expected the post to be attempted, got %d calls", f.calls)
	}
}
