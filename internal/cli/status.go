package cli

import (
	"fmt"
	"os"

	"github.com/festivo/festivo/internal/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Festivo Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("Festivo Status")
		fmt.Printf("Version: %s\n", version)

		configPath, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Println("Config:  found (" + configPath + ")")
			} else {
				fmt.Println("Config:  not found (using defaults + env)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config error: %v\n", err)
			return
		}
		if cfg.Providers.Anthropic.APIKey != "" {
			fmt.Println("API key: found")
		} else {
			fmt.Println("API key: not found")
		}

		if cfg.Channels.WhatsApp.Enabled {
			fmt.Println("WhatsApp: enabled")
			if _, err := os.Stat(cfg.Paths.WhatsAppDB); err == nil {
				fmt.Println("WhatsApp link: session found (no QR needed)")
			} else {
				fmt.Println("WhatsApp link: not paired yet (QR shown on gateway start)")
			}
		} else {
			fmt.Println("WhatsApp: disabled")
		}

		fmt.Printf("Queue backend: %s\n", cfg.Queue.Backend)
		if cfg.Chatbot.SimulationMode {
			fmt.Println("Simulation mode: ON (guest records will not be modified)")
		}

		if _, err := os.Stat(cfg.Paths.GuestDB); err == nil {
			fmt.Println("Guest DB:  " + cfg.Paths.GuestDB)
		} else {
			fmt.Println("Guest DB:  not created yet")
		}
		if _, err := os.Stat(cfg.Paths.LedgerDB); err == nil {
			fmt.Println("Ledger DB: " + cfg.Paths.LedgerDB)
		} else {
			fmt.Println("Ledger DB: not created yet")
		}
	},
}
