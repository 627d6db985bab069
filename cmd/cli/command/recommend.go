package command

// recommend.go prints the recommendation list for the current student.

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show recommended books",
	Long: `Show a ranked recommendation list. Signed-in students with category
preferences get a list merged from their preferred categories; everyone else
gets the generic recommended list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		books, err := a.recommender.Load(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load recommendations: %w", err)
		}

		if len(books) == 0 {
			fmt.Println("No recommendations right now.")
			return nil
		}

		fmt.Printf("Recommended for you:\n\n")
		for i, book := range books {
			fmt.Printf("%2d. %s", i+1, book.Title)
			if book.Author != "" {
				fmt.Printf(" — %s", book.Author)
			}
			if len(book.Category) > 0 {
				fmt.Printf(" [%s]", strings.Join(book.Category, ", "))
			}
			fmt.Printf(" (♥ %d)\n", book.FavoritesCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)
}
