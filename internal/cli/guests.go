package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/festivo/festivo/internal/guest"
)

var (
	guestsAddEvent     string
	guestsAddName      string
	guestsAddPhone     string
	guestsAddCompanion string
)

var guestsCmd = &cobra.Command{
	Use:   "guests",
	Short: "Inspect and manage guest records",
}

var guestsShowCmd = &cobra.Command{
	Use:   "show <phone>",
	Short: "Show all guest records reachable from a phone number",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfigOrExit()
		store, err := openStore(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx := context.Background()
		primaries, err := store.PrimaryGuestsByPhone(ctx, args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(primaries) == 0 {
			fmt.Println("No guest records for this number.")
			return
		}

		for _, p := range primaries {
			ev, err := store.EventDetail(ctx, p.EventID)
			evName := p.EventID
			if err == nil {
				evName = ev.Name
			}
			fmt.Println(color.CyanString(evName))
			printGuest(p)
			companions, err := store.Companions(ctx, p.GroupID, p.ID)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			for _, c := range companions {
				printGuest(c)
			}
		}
	},
}

func printGuest(g *guest.Guest) {
	role := "companion"
	if g.IsPrimaryGuest {
		role = "primary"
	}
	fmt.Printf("  %-36s %-9s %-10s %s\n", g.ID, role, g.Status, g.DisplayName())
	if g.DietaryRestrictions != "" {
		fmt.Printf("    dietary: %s\n", g.DietaryRestrictions)
	}
	if g.Notes != "" {
		fmt.Printf("    notes:   %s\n", g.Notes)
	}
	for _, r := range g.Responses {
		answer := r.OptionID
		if r.CustomResponse != "" {
			answer = r.CustomResponse
		}
		fmt.Printf("    answer:  %s -> %s\n", r.QuestionID, answer)
	}
}

var guestsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a guest to an event",
	Long: "Adds a primary guest (with --phone) or an unnamed companion\n" +
		"(with --companion-of pointing at the primary guest's ID).",
	Run: func(cmd *cobra.Command, args []string) {
		if guestsAddEvent == "" {
			fmt.Println("Error: --event is required")
			os.Exit(1)
		}
		if guestsAddCompanion == "" && guestsAddPhone == "" {
			fmt.Println("Error: either --phone (primary) or --companion-of is required")
			os.Exit(1)
		}

		cfg := loadConfigOrExit()
		store, err := openStore(cfg)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		ctx := context.Background()
		g := &guest.Guest{
			EventID: guestsAddEvent,
			Name:    guestsAddName,
		}
		if guestsAddCompanion != "" {
			primary, err := store.GuestByID(ctx, guestsAddCompanion)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			g.GroupID = primary.GroupID
		} else {
			g.Phone = guestsAddPhone
			g.IsPrimaryGuest = true
		}

		if err := store.CreateGuest(ctx, g); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Guest created: %s\n", g.ID)
	},
}

func init() {
	guestsAddCmd.Flags().StringVar(&guestsAddEvent, "event", "", "Event ID (required)")
	guestsAddCmd.Flags().StringVar(&guestsAddName, "name", "", "Guest name (companions may be unnamed)")
	guestsAddCmd.Flags().StringVar(&guestsAddPhone, "phone", "", "Phone number (primary guests only)")
	guestsAddCmd.Flags().StringVar(&guestsAddCompanion, "companion-of", "", "Primary guest ID this companion belongs to")

	guestsCmd.AddCommand(guestsShowCmd)
	guestsCmd.AddCommand(guestsAddCmd)
}
