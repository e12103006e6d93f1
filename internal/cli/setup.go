package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/festivo/festivo/internal/agent"
	"github.com/festivo/festivo/internal/config"
	"github.com/festivo/festivo/internal/guest"
	"github.com/festivo/festivo/internal/ledger"
	"github.com/festivo/festivo/internal/notify"
	"github.com/festivo/festivo/internal/provider"
)

// services bundles everything a chatbot-running command needs.
type services struct {
	cfg      *config.Config
	store    *guest.SQLiteStore
	recorder *ledger.SQLiteRecorder
	chatbot  *agent.ChatbotService
	logger   *slog.Logger
}

func (s *services) Close() {
	if s.recorder != nil {
		s.recorder.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// buildServices opens the databases and wires the chatbot service from cfg.
func buildServices(cfg *config.Config) (*services, error) {
	if cfg.Providers.Anthropic.APIKey == "" {
		return nil, fmt.Errorf("no Anthropic API key configured (set FESTIVO_API_KEY or providers.anthropic.apiKey)")
	}

	logger := newLogger()

	store, err := guest.NewSQLiteStore(cfg.Paths.GuestDB)
	if err != nil {
		return nil, fmt.Errorf("open guest db: %w", err)
	}
	recorder, err := ledger.NewSQLiteRecorder(cfg.Paths.LedgerDB)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	prov := provider.NewAnthropicProvider(cfg.Providers.Anthropic.APIKey, cfg.Providers.Anthropic.APIBase, cfg.Model.Name)

	deps := agent.ServiceDeps{
		Provider: prov,
		Store:    store,
		Recorder: recorder,
		Logger:   logger,
		Model:    cfg.Model,
		Chatbot:  cfg.Chatbot,
	}
	if sn := notify.NewSlackNotifier(cfg.Notify.Slack, logger); sn != nil {
		deps.Notifier = sn
	}

	return &services{
		cfg:      cfg,
		store:    store,
		recorder: recorder,
		chatbot:  agent.NewChatbotService(deps),
		logger:   logger,
	}, nil
}

// openStore opens just the guest database, for record-inspection commands.
func openStore(cfg *config.Config) (*guest.SQLiteStore, error) {
	store, err := guest.NewSQLiteStore(cfg.Paths.GuestDB)
	if err != nil {
		return nil, fmt.Errorf("open guest db: %w", err)
	}
	return store, nil
}

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
