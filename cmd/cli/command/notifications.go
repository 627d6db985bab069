package command

// notifications.go handles the locally persisted notification log.

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Notification commands",
	Long:  `View and manage notifications collected from the live push channel.`,
}

var listNotificationsCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		items := a.notifications.List()
		if len(items) == 0 {
			fmt.Println("No notifications.")
			return nil
		}

		fmt.Printf("%d notifications (%d unread):\n\n", len(items), a.notifications.UnreadCount())
		for _, item := range items {
			if item.Read {
				fmt.Printf("  %s  %s — %s (%s)\n", item.Date, item.Title, item.Message, item.ID)
			} else {
				color.Cyan("● %s  %s — %s (%s)", item.Date, item.Title, item.Message, item.ID)
			}
		}
		return nil
	},
}

var readNotificationCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.notifications.MarkRead(args[0])
		fmt.Printf("✓ Marked as read. %d unread remaining.\n", a.notifications.UnreadCount())
		return nil
	},
}

var readAllNotificationsCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark all notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.notifications.MarkAllRead()
		fmt.Println("✓ All notifications marked as read.")
		return nil
	},
}

func init() {
	notificationsCmd.AddCommand(listNotificationsCmd)
	notificationsCmd.AddCommand(readNotificationCmd)
	notificationsCmd.AddCommand(readAllNotificationsCmd)
	rootCmd.AddCommand(notificationsCmd)
}
