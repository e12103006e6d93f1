package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/festivo/festivo/internal/session"
)

var (
	chatPhone   string
	chatMessage string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the guest chatbot directly in the terminal",
	Long: "Talks to the chatbot as a guest would over WhatsApp. The phone number\n" +
		"selects which guest (and which events) the conversation is about.",
	Run: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatPhone, "phone", "p", "", "Guest phone number (required)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Single message to send (omit for interactive mode)")
}

func runChat(cmd *cobra.Command, args []string) {
	if chatPhone == "" {
		fmt.Println("Error: --phone is required")
		os.Exit(1)
	}

	cfg := loadConfigOrExit()
	svc, err := buildServices(cfg)
	if err != nil {
		fmt.Printf("Setup error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	sessions, err := session.NewManager(filepath.Join(cfg.Paths.DataDir, "sessions"))
	if err != nil {
		fmt.Printf("Session error: %v\n", err)
		os.Exit(1)
	}

	key := "cli:" + chatPhone
	sess := sessions.GetOrCreate(key)
	ctx := context.Background()

	if chatMessage != "" {
		reply := sendTurn(ctx, svc, sessions, sess, key, chatMessage)
		if reply != "" {
			fmt.Println("\n" + reply)
		}
		return
	}

	printHeader("Festivo Chat")
	fmt.Printf("Chatting as %s (%s). Type 'exit' to quit.\n\n", chatPhone, cfg.Model.Name)
	if cfg.Chatbot.SimulationMode {
		fmt.Println(color.YellowString("Simulation mode: record changes are dry-run only."))
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(color.GreenString("you> "))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}
		reply := sendTurn(ctx, svc, sessions, sess, key, line)
		if reply == "" {
			fmt.Println(color.YellowString("(no reply: this number has no active event)"))
			continue
		}
		fmt.Println(color.CyanString("bot> ") + reply)
	}
}

func sendTurn(ctx context.Context, svc *services, sessions *session.Manager, sess *session.Session, key, message string) string {
	history := sess.ProviderHistory(svc.cfg.Chatbot.HistoryLimit)
	reply, err := svc.chatbot.GenerateResponse(ctx, key, chatPhone, history, message)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		if reply == nil || reply.Text == "" {
			return ""
		}
	}
	sess.AddMessage("user", message)
	if reply.Text != "" {
		sess.AddMessage("assistant", reply.Text)
	}
	if err := sessions.Save(sess); err != nil {
		fmt.Printf("Warning: session save failed: %v\n", err)
	}
	return reply.Text
}
