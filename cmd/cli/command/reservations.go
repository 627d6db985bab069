package command

// reservations.go handles reservation commands: list, reserve, cancel, delete.

import (
	"fmt"
	"strings"

	"librahub/internal/shared"

	"github.com/spf13/cobra"
)

var reservationsCmd = &cobra.Command{
	Use:   "reservations",
	Short: "Reservation commands",
	Long:  `Manage your book reservations. Requires being signed in.`,
}

var listReservationsCmd = &cobra.Command{
	Use:   "list",
	Short: "List your reservations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			return fmt.Errorf("not signed in, please run 'librahub auth signin'")
		}

		a.reservations.FetchMine(cmd.Context())
		items := a.reservations.List()
		if len(items) == 0 {
			fmt.Println("No reservations.")
			return nil
		}

		fmt.Printf("You have %d reservations:\n\n", len(items))
		for _, reservation := range items {
			printReservation(reservation)
		}
		return nil
	},
}

var reserveCmd = &cobra.Command{
	Use:   "reserve [book-id]",
	Short: "Reserve a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			return fmt.Errorf("not signed in, please run 'librahub auth signin'")
		}

		a.catalog.FetchAll(cmd.Context())
		reservation, err := a.reservations.Reserve(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("reservation failed: %w", err)
		}

		fmt.Println("✓ Book reserved!")
		printReservation(*reservation)
		return nil
	},
}

var cancelReservationCmd = &cobra.Command{
	Use:   "cancel [reservation-id]",
	Short: "Cancel a reservation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			return fmt.Errorf("not signed in, please run 'librahub auth signin'")
		}

		a.reservations.FetchMine(cmd.Context())
		if err := a.reservations.Cancel(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("cancellation failed: %w", err)
		}

		fmt.Println("✓ Reservation cancelled.")
		return nil
	},
}

var deleteReservationCmd = &cobra.Command{
	Use:   "delete [reservation-id]",
	Short: "Delete a reservation record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.session.Authenticated() {
			return fmt.Errorf("not signed in, please run 'librahub auth signin'")
		}

		if err := a.reservations.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("deletion failed: %w", err)
		}

		fmt.Println("✓ Reservation deleted.")
		return nil
	},
}

func printReservation(reservation shared.Reservation) {
	fmt.Printf("ID: %s\n", reservation.ID)
	if reservation.Book != nil {
		fmt.Printf("Book: %s\n", reservation.Book.Title)
	} else if reservation.BookID != "" {
		fmt.Printf("Book ID: %s\n", reservation.BookID)
	}
	fmt.Printf("Status: %s\n", reservation.Status)
	if reservation.DueAt != nil {
		fmt.Printf("Due: %s\n", reservation.DueAt.Format("2006-01-02 15:04"))
	}
	fmt.Println(strings.Repeat("-", 50))
}

func init() {
	reservationsCmd.AddCommand(listReservationsCmd)
	reservationsCmd.AddCommand(reserveCmd)
	reservationsCmd.AddCommand(cancelReservationCmd)
	reservationsCmd.AddCommand(deleteReservationCmd)
	rootCmd.AddCommand(reservationsCmd)
}
