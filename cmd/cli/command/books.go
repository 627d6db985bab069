package command

// books.go handles catalog commands: list, get, search.

import (
	"fmt"
	"strings"

	"librahub/internal/shared"

	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Catalog commands",
	Long:  `Browse the library catalog: list all books, look one up, filter by category.`,
}

var listBooksCmd = &cobra.Command{
	Use:   "list",
	Short: "List the book catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		category, _ := cmd.Flags().GetString("category")

		var books []shared.Book
		if category != "" {
			books, err = a.client.FetchBooksByCategory(cmd.Context(), category)
			if err != nil {
				return fmt.Errorf("failed to fetch category %q: %w", category, err)
			}
		} else {
			a.catalog.FetchAll(cmd.Context())
			books = a.catalog.Books()
		}

		if len(books) == 0 {
			fmt.Println("No books found.")
			return nil
		}

		fmt.Printf("Found %d books:\n\n", len(books))
		for _, book := range books {
			printBook(book)
		}
		return nil
	},
}

var getBookCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show one catalog record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.catalog.FetchAll(cmd.Context())
		book, ok := a.catalog.Get(args[0])
		if !ok {
			return fmt.Errorf("no book with id %q in the catalog", args[0])
		}

		printBook(book)
		if a.favorites.IsFavorite(book.ID) {
			fmt.Println("★ In your favorites")
		}
		return nil
	},
}

var searchBooksCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog by title or author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		a.catalog.FetchAll(cmd.Context())

		query := strings.ToLower(args[0])
		matches := 0
		for _, book := range a.catalog.Books() {
			if strings.Contains(strings.ToLower(book.Title), query) ||
				strings.Contains(strings.ToLower(book.Author), query) {
				printBook(book)
				matches++
			}
		}

		if matches == 0 {
			fmt.Printf("No books matching %q.\n", args[0])
		}
		return nil
	},
}

func printBook(book shared.Book) {
	fmt.Printf("ID: %s\n", book.ID)
	fmt.Printf("Title: %s\n", book.Title)
	if book.Author != "" {
		fmt.Printf("Author: %s\n", book.Author)
	}
	if len(book.Category) > 0 {
		fmt.Printf("Categories: %s\n", strings.Join(book.Category, ", "))
	}
	if book.Available {
		fmt.Printf("Available: yes (%d copies)\n", book.AvailableCount)
	} else {
		fmt.Println("Available: no")
	}
	fmt.Println(strings.Repeat("-", 50))
}

func init() {
	booksCmd.AddCommand(listBooksCmd)
	booksCmd.AddCommand(getBookCmd)
	booksCmd.AddCommand(searchBooksCmd)
	rootCmd.AddCommand(booksCmd)

	listBooksCmd.Flags().StringP("category", "c", "", "Only list books in this category")
}
