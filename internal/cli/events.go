package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/festivo/festivo/internal/guest"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect and seed events",
}

var eventsShowCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show an event's details, FAQ and confirmation questions",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit()
		store, err := openStore(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ev, err := store.EventDetail(context.Background(), args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(color.CyanString(ev.Name))
		fmt.Printf("  ID:      %s\n", ev.ID)
		fmt.Printf("  Hosts:   %s\n", ev.Hosts)
		fmt.Printf("  Date:    %s\n", ev.Date.Format("2006-01-02 15:04"))
		if ev.VenueName != "" {
			fmt.Printf("  Venue:   %s (%s)\n", ev.VenueName, ev.VenueAddress)
		}
		fmt.Printf("  Active:  %v  Chatbot: %v\n", ev.Active, ev.ChatbotEnabled)
		if ev.FAQ != "" {
			fmt.Println("  FAQ:")
			fmt.Println("    " + ev.FAQ)
		}
		for _, q := range ev.Confirmations {
			fmt.Printf("  Question %s: %s\n", q.ID, q.Question)
			for _, opt := range q.Options {
				fmt.Printf("    - [%s] %s\n", opt.ID, opt.Label)
			}
		}
	},
}

var eventsRequestsCmd = &cobra.Command{
	Use:   "requests <event-id>",
	Short: "List open special requests for an event",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit()
		store, err := openStore(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		reqs, err := store.OpenSpecialRequests(context.Background(), args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(reqs) == 0 {
			fmt.Println("No open special requests.")
			return
		}
		for _, r := range reqs {
			fmt.Printf("%s  guest=%s  %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.GuestID, r.Request)
		}
	},
}

var eventsSeedDemoCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create a demo event with guests for trying the chatbot",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit()
		store, err := openStore(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx := context.Background()
		ev := &guest.Event{
			Name:           "Garden Wedding",
			Hosts:          "Ana & Bruno",
			Date:           time.Now().AddDate(0, 2, 0),
			VenueName:      "Quinta do Lago",
			VenueAddress:   "Estrada do Lago 12, Sintra",
			FAQ:            "Dress code: garden formal. Parking available on site. Ceremony starts at 16:00 sharp.",
			Active:         true,
			ChatbotEnabled: true,
		}
		if err := store.CreateEvent(ctx, ev); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		primary := &guest.Guest{
			EventID:        ev.ID,
			Name:           "Carla Mendes",
			Phone:          "5511999990001",
			IsPrimaryGuest: true,
		}
		if err := store.CreateGuest(ctx, primary); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		companion := &guest.Guest{
			EventID: ev.ID,
			GroupID: primary.GroupID,
		}
		if err := store.CreateGuest(ctx, companion); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		q := &guest.ConfirmationQuestion{
			EventID:  ev.ID,
			Question: "Which transfer bus will you take?",
			Options: []guest.ConfirmationOption{
				{Label: "15:00 from Rossio"},
				{Label: "15:30 from Cais do Sodré"},
				{Label: "Own transport"},
			},
		}
		if err := store.CreateConfirmationQuestion(ctx, q); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Demo event created.")
		fmt.Printf("  Event ID:  %s\n", ev.ID)
		fmt.Printf("  Primary:   %s (phone %s)\n", primary.ID, primary.Phone)
		fmt.Printf("  Companion: %s\n", companion.ID)
		fmt.Printf("\nTry it: festivo chat --phone %s -m \"what time does the ceremony start?\"\n", primary.Phone)
	},
}

func init() {
	eventsCmd.AddCommand(eventsShowCmd)
	eventsCmd.AddCommand(eventsRequestsCmd)
	eventsCmd.AddCommand(eventsSeedDemoCmd)
}
