package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"librahub/internal/api"
	"librahub/internal/shared"
)

// Compose merges per-category book lists into one ranked recommendation
// list: flatten, deduplicate by identifier (last write wins), sort by the
// favorites counter descending, truncate. Pure function so it can be tested
// without any network mocking.
func Compose(lists [][]shared.Book, limit int) []shared.Book {
	byID := make(map[string]shared.Book)
	order := make([]string, 0)

	for _, list := range lists {
		for _, book := range list {
			if book.ID == "" {
				continue
			}
			if _, seen := byID[book.ID]; !seen {
				order = append(order, book.ID)
			}
			byID[book.ID] = book
		}
	}

	merged := make([]shared.Book, 0, len(order))
	for _, id := range order {
		merged = append(merged, byID[id])
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].FavoritesCount > merged[j].FavoritesCount
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// Recommender aggregates recommendations for the current student.
type Recommender struct {
	client *api.Client
	auth   AuthState
	logger *slog.Logger
	limit  int
}

func NewRecommender(client *api.Client, auth AuthState, limit int, logger *slog.Logger) *Recommender {
	return &Recommender{client: client, auth: auth, limit: limit, logger: logger}
}

// Load returns the recommendation list. Authenticated students with category
// preferences get one concurrent request per category, merged through
// Compose. Guests, students without preferences, and any profile failure
// fall back to the generic recommended endpoint.
func (r *Recommender) Load(ctx context.Context) ([]shared.Book, error) {
	categories := r.categories(ctx)
	if len(categories) == 0 {
		return r.generic(ctx)
	}

	lists := make([][]shared.Book, len(categories))
	var wg sync.WaitGroup
	for i, category := range categories {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()
			books, err := r.client.FetchBooksByCategory(ctx, category)
			if err != nil {
				// A failed category contributes an empty list.
				r.logger.Warn("category fetch failed", "category", category, "error", err)
				return
			}
			lists[i] = books
		}(i, category)
	}
	wg.Wait()

	return Compose(lists, r.limit), nil
}

// categories resolves the student's category preferences, empty for guests
// and on any failure.
func (r *Recommender) categories(ctx context.Context) []string {
	if !r.auth.Authenticated() {
		return nil
	}

	if cached := r.auth.Student(); cached != nil && len(cached.Category) > 0 {
		return cached.Category
	}

	profile, err := r.client.FetchMe(ctx)
	if err != nil {
		r.logger.Warn("profile fetch failed, falling back to generic recommendations", "error", err)
		return nil
	}
	return profile.Category
}

func (r *Recommender) generic(ctx context.Context) ([]shared.Book, error) {
	books, err := r.client.FetchRecommended(ctx)
	if err != nil {
		return nil, err
	}
	if r.limit > 0 && len(books) > r.limit {
		books = books[:r.limit]
	}
	return books, nil
}
