package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".festivo"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("FESTIVO_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := resolveHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := resolveHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

func resolveHomeDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("FESTIVO_HOME")); h != "" {
		if strings.HasPrefix(h, "~") {
			base, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(base, h[1:]), nil
		}
		return h, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home, nil
}

// Load reads the config file, applies env overrides, and fills defaults.
// A missing config file is not an error: defaults plus env apply.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if data, readErr := os.ReadFile(path); readErr == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(readErr) {
		return nil, fmt.Errorf("read config %s: %w", path, readErr)
	}

	// Each section is processed on its own so the envconfig tags map to
	// flat FESTIVO_* keys (FESTIVO_MODEL, FESTIVO_API_KEY, ...) instead of
	// keys derived from the nesting.
	for _, section := range []any{
		&cfg.Paths,
		&cfg.Model,
		&cfg.Chatbot,
		&cfg.Providers.Anthropic,
		&cfg.Channels.WhatsApp,
		&cfg.Queue,
		&cfg.Notify.Slack,
	} {
		if err := envconfig.Process("FESTIVO", section); err != nil {
			return nil, fmt.Errorf("apply env overrides: %w", err)
		}
	}

	cfg.expandPaths()
	return cfg, nil
}

// Save writes the config file, creating the directory if needed.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// expandPaths resolves ~ prefixes and fills derived per-database paths.
func (c *Config) expandPaths() {
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	if c.Paths.DataDir == "" {
		home, _ := os.UserHomeDir()
		c.Paths.DataDir = filepath.Join(home, ConfigDir)
	}
	if c.Paths.GuestDB == "" {
		c.Paths.GuestDB = filepath.Join(c.Paths.DataDir, "guests.db")
	}
	if c.Paths.LedgerDB == "" {
		c.Paths.LedgerDB = filepath.Join(c.Paths.DataDir, "ledger.db")
	}
	if c.Paths.WhatsAppDB == "" {
		c.Paths.WhatsAppDB = filepath.Join(c.Paths.DataDir, "whatsapp.db")
	}
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
