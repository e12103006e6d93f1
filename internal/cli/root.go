// Package cli implements the festivo command line interface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/festivo/festivo/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"   __          _   _\n" +
		"  / _| ___ ___| |_(_)_   _____\n" +
		" | |_ / _ \\ __| __| \\ \\ / / _ \\\n" +
		" |  _|  __\\__ \\ |_| |\\ V / (_) |\n" +
		" |_|  \\___|___/\\__|_| \\_/ \\___/\n"
)

var rootCmd = &cobra.Command{
	Use:   "festivo",
	Short: "Festivo - event guest chatbot",
	Long:  color.CyanString(logo) + "\nAn AI chatbot that answers guest questions and keeps RSVP records current.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(guestsCmd)
	rootCmd.AddCommand(ledgerCmd)
}
