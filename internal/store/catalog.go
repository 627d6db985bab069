package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"librahub/internal/api"
	"librahub/internal/push"
	"librahub/internal/shared"
)

// Catalog holds the in-memory replica of the book catalog. The collection is
// replaced wholesale on fetch; the only targeted mutation is the availability
// patch applied when a reservation or cancellation takes effect locally.
//
// Every fetch carries a monotonic sequence number and a response that lost
// the race against a newer fetch or a local mutation is discarded, so a slow
// earlier fetch can never overwrite newer state.
type Catalog struct {
	client *api.Client
	logger *slog.Logger

	mu       sync.RWMutex
	books    []shared.Book
	issueSeq uint64
	version  uint64

	unsubscribes []func()
}

func NewCatalog(client *api.Client, logger *slog.Logger) *Catalog {
	return &Catalog{client: client, logger: logger}
}

// beginFetch reserves a sequence number for a fetch about to be issued.
func (c *Catalog) beginFetch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issueSeq++
	return c.issueSeq
}

// FetchAll replaces the whole collection with the service's current list.
// Failures are non-fatal: the previous collection stays untouched.
func (c *Catalog) FetchAll(ctx context.Context) {
	seq := c.beginFetch()

	books, err := c.client.FetchBooks(ctx)
	if err != nil {
		c.logger.Warn("book fetch failed, keeping previous catalog", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.version {
		c.logger.Debug("discarding stale book fetch", "seq", seq, "version", c.version)
		return
	}
	c.version = seq
	c.books = books
}

// PatchAvailability updates exactly the matching record's availability flag.
// Local-only; no network call. The collection reference is replaced so
// dependent views can detect the change by identity.
func (c *Catalog) PatchAvailability(bookID string, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	patched := make([]shared.Book, len(c.books))
	copy(patched, c.books)
	for i := range patched {
		if patched[i].ID == bookID {
			patched[i].Available = available
		}
	}
	c.books = patched

	// Local mutations advance the version so in-flight fetches issued
	// before them cannot roll the patch back.
	c.issueSeq++
	c.version = c.issueSeq
}

// Books returns a copy of the current collection.
func (c *Catalog) Books() []shared.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()

	books := make([]shared.Book, len(c.books))
	copy(books, c.books)
	return books
}

// Get returns the cached record for one book.
func (c *Catalog) Get(bookID string) (shared.Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, book := range c.books {
		if book.ID == bookID {
			return book, true
		}
	}
	return shared.Book{}, false
}

// Bind subscribes the catalog to the push events that invalidate it. Each
// event triggers a full refetch; the sequence guard keeps refetch storms
// harmless.
func (c *Catalog) Bind(manager *push.Manager) {
	refetch := func(json.RawMessage) {
		go c.FetchAll(context.Background())
	}

	for _, event := range []string{
		push.EventBookStatusChanged,
		push.EventBookStatusUpdated,
		push.EventBookAdded,
		push.EventBookDeleted,
		push.EventBookUpdated,
		push.EventBookReturned,
	} {
		c.unsubscribes = append(c.unsubscribes, manager.Subscribe(event, refetch))
	}
}

// Close deregisters this store's push handlers. The shared connection itself
// stays up for the other consumers.
func (c *Catalog) Close() {
	for _, unsubscribe := range c.unsubscribes {
		unsubscribe()
	}
	c.unsubscribes = nil
}
