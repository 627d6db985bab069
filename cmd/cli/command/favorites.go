package command

// favorites.go handles favorite commands. Favorites work in guest mode too:
// the set is kept locally and merged into the account on the next sign-in.

import (
	"fmt"

	"github.com/spf13/cobra"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Favorite commands",
	Long:  `Manage your favorite books. Works signed in or as a guest; guest favorites merge into your account when you sign in.`,
}

var listFavoritesCmd = &cobra.Command{
	Use:   "list",
	Short: "List your favorite books",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.favorites.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load favorites: %w", err)
		}

		ids := a.favorites.IDs()
		if len(ids) == 0 {
			fmt.Println("No favorites yet.")
			return nil
		}

		// Resolve titles against the catalog where possible
		a.catalog.FetchAll(cmd.Context())
		fmt.Printf("You have %d favorites:\n\n", len(ids))
		for _, id := range ids {
			if book, ok := a.catalog.Get(id); ok {
				fmt.Printf("★ %s — %s (%s)\n", book.Title, book.Author, id)
			} else {
				fmt.Printf("★ %s\n", id)
			}
		}
		return nil
	},
}

var toggleFavoriteCmd = &cobra.Command{
	Use:   "toggle [book-id]",
	Short: "Add or remove a book from your favorites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.favorites.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load favorites: %w", err)
		}

		a.favorites.Toggle(cmd.Context(), args[0])
		if a.favorites.IsFavorite(args[0]) {
			fmt.Println("✓ Added to favorites.")
		} else {
			fmt.Println("✓ Removed from favorites.")
		}
		return nil
	},
}

func init() {
	favoritesCmd.AddCommand(listFavoritesCmd)
	favoritesCmd.AddCommand(toggleFavoriteCmd)
	rootCmd.AddCommand(favoritesCmd)
}
