package command

// watch.go keeps the push channel open and prints events as they arrive,
// while the stores reconcile and persist in the background.

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"librahub/internal/push"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch live updates from the library service",
	Long: `Connect to the live push channel and print reservation and catalog events
as they arrive. Notifications are persisted locally so they show up in
'librahub notifications list' afterwards. Press Ctrl-C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			return fmt.Errorf("not signed in, please run 'librahub auth signin'")
		}

		// Stores reconcile their state from the same events we print
		a.catalog.Bind(a.manager)
		a.reservations.Bind(a.manager)
		a.notifications.Bind(a.manager)
		defer a.catalog.Close()
		defer a.reservations.Close()
		defer a.notifications.Close()

		for _, event := range []string{
			push.EventReservationCreated,
			push.EventReservationUpdated,
			push.EventReservationApproved,
			push.EventReservationCancelled,
			push.EventBookReturned,
			push.EventBookStatusChanged,
			push.EventBookStatusUpdated,
			push.EventBookAdded,
			push.EventBookDeleted,
			push.EventBookUpdated,
		} {
			defer a.manager.Subscribe(event, func(data json.RawMessage) {
				printEvent(event, data)
			})()
		}

		fmt.Println("🔌 Connecting to the library service...")
		if a.manager.Connect(cmd.Context()) == nil {
			return fmt.Errorf("could not establish the push connection")
		}
		fmt.Println("✅ Connected! Waiting for events (Ctrl-C to exit)")

		// Seed local state so events patch something meaningful
		a.catalog.FetchAll(cmd.Context())
		a.reservations.FetchMine(cmd.Context())

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		<-interrupt

		fmt.Println("\nClosing connection...")
		return nil
	},
}

func printEvent(event string, data json.RawMessage) {
	title := push.ExtractBookTitle(data)
	if title == "" {
		title = "Unknown Book"
	}

	switch event {
	case push.EventReservationApproved:
		color.Green("✓ Reservation approved: %s", title)
	case push.EventReservationCancelled:
		color.Red("✗ Reservation cancelled: %s", title)
	case push.EventReservationCreated, push.EventReservationUpdated:
		color.Cyan("• %s: %s", event, title)
	case push.EventBookReturned:
		color.Yellow("↩ Book returned: %s", title)
	default:
		color.White("• %s: %s", event, title)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
