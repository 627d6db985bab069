package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"librahub/internal/api"
	"librahub/internal/shared"
	"librahub/internal/storage"
)

// AuthState is the slice of the session the stores need: whether a credential
// is held and who the current student is.
type AuthState interface {
	Authenticated() bool
	StudentID(ctx context.Context) (string, error)
	Student() *shared.Student
}

// Favorites holds the set of favorited book identifiers. Persistence is
// dual-mode: pre-authentication the set lives in local storage under the
// guest key; post-authentication the remote service is the source of truth
// and the in-memory set is a cache. The guest→authenticated transition runs
// a one-shot merge.
type Favorites struct {
	client *api.Client
	store  storage.Store
	auth   AuthState
	logger *slog.Logger

	mu  sync.RWMutex
	ids []string
}

func NewFavorites(client *api.Client, store storage.Store, auth AuthState, logger *slog.Logger) *Favorites {
	return &Favorites{client: client, store: store, auth: auth, logger: logger}
}

// readGuestSet loads the persisted guest favorites, empty on any problem.
func (f *Favorites) readGuestSet() []string {
	raw, err := f.store.GetItem(storage.KeyGuestFavorites)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			f.logger.Warn("could not read guest favorites", "error", err)
		}
		return nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

func (f *Favorites) writeGuestSet(ids []string) {
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := f.store.SetItem(storage.KeyGuestFavorites, string(raw)); err != nil {
		f.logger.Warn("could not persist guest favorites", "error", err)
	}
}

func flip(ids []string, bookID string) []string {
	for i, id := range ids {
		if id == bookID {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return append(ids, bookID)
}

// Toggle flips membership optimistically, then persists: guests rewrite the
// local set in full, authenticated users fire a toggle request whose outcome
// never corrects the optimistic state. A failed request is logged and the
// divergence heals on the next Load.
func (f *Favorites) Toggle(ctx context.Context, bookID string) {
	f.mu.Lock()
	f.ids = flip(f.ids, bookID)
	f.mu.Unlock()

	if !f.auth.Authenticated() {
		f.writeGuestSet(flip(f.readGuestSet(), bookID))
		return
	}

	if err := f.client.ToggleFavorite(ctx, bookID); err != nil {
		f.logger.Warn("favorite toggle not confirmed by service", "book_id", bookID, "error", err)
	}
}

// MergeGuestToServer pushes the guest set to the merge endpoint and clears
// the local guest entry. A missing or empty guest set is a no-op, which makes
// the operation idempotent: the first successful merge removes the entry, so
// a second invocation does nothing.
func (f *Favorites) MergeGuestToServer(ctx context.Context, studentID string) error {
	guest := f.readGuestSet()
	if len(guest) == 0 {
		return nil
	}

	f.logger.Info("merging guest favorites", "count", len(guest))
	if err := f.client.MergeFavorites(ctx, studentID, guest); err != nil {
		return err
	}

	if err := f.store.RemoveItem(storage.KeyGuestFavorites); err != nil {
		f.logger.Warn("could not clear guest favorites after merge", "error", err)
	}
	return nil
}

// Load seeds the favorite set. Guests read the local guest entry.
// Authenticated users run the one-shot merge first, then fetch the
// authoritative list so the merged favorites are included.
func (f *Favorites) Load(ctx context.Context) error {
	if !f.auth.Authenticated() {
		guest := f.readGuestSet()
		f.mu.Lock()
		f.ids = guest
		f.mu.Unlock()
		return nil
	}

	studentID, err := f.auth.StudentID(ctx)
	if err != nil {
		return err
	}

	if err := f.MergeGuestToServer(ctx, studentID); err != nil {
		// Merge failure keeps the guest entry for the next attempt.
		f.logger.Warn("guest favorites merge failed", "error", err)
	}

	ids, err := f.client.FetchFavorites(ctx, studentID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.ids = ids
	f.mu.Unlock()
	return nil
}

// IDs returns a copy of the current favorite set.
func (f *Favorites) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, len(f.ids))
	copy(ids, f.ids)
	return ids
}

// IsFavorite reports membership for one book.
func (f *Favorites) IsFavorite(bookID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, id := range f.ids {
		if id == bookID {
			return true
		}
	}
	return false
}
