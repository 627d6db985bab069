package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"librahub/internal/push"
	"librahub/internal/shared"
	"librahub/internal/storage"

	"github.com/google/uuid"
)

const unknownBookTitle = "Unknown Book"

// Notifications is the append-only, newest-first log of user-facing event
// notifications. It is a purely client-side projection of push events,
// persisted locally in full on every mutation.
type Notifications struct {
	store  storage.Store
	logger *slog.Logger

	// now and newID are swappable for tests
	now   func() time.Time
	newID func() string

	mu    sync.RWMutex
	items []shared.Notification

	unsubscribes []func()
}

func NewNotifications(store storage.Store, logger *slog.Logger) *Notifications {
	n := &Notifications{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	n.load()
	return n
}

// load seeds the list from local storage at process start.
func (n *Notifications) load() {
	raw, err := n.store.GetItem(storage.KeyNotifications)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			n.logger.Warn("could not read persisted notifications", "error", err)
		}
		return
	}

	var items []shared.Notification
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		n.logger.Warn("persisted notifications malformed, starting empty", "error", err)
		return
	}
	n.items = items
}

// persistLocked rewrites the full list. Callers hold the mutex.
func (n *Notifications) persistLocked() {
	raw, err := json.Marshal(n.items)
	if err != nil {
		return
	}
	if err := n.store.SetItem(storage.KeyNotifications, string(raw)); err != nil {
		n.logger.Warn("could not persist notifications", "error", err)
	}
}

// Add prepends a notification and re-persists the list.
func (n *Notifications) Add(notification shared.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append([]shared.Notification{notification}, n.items...)
	n.persistLocked()
}

// notify synthesizes and stores one notification from a push event.
func (n *Notifications) notify(title, message string) {
	n.Add(shared.Notification{
		ID:      n.newID(),
		Title:   title,
		Message: message,
		Date:    n.now().Format("2006-01-02 15:04"),
		Read:    false,
	})
}

// MarkRead flips one notification's read flag in place.
func (n *Notifications) MarkRead(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items[i].Read = true
		}
	}
	n.persistLocked()
}

// MarkAllRead flips every notification to read.
func (n *Notifications) MarkAllRead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		n.items[i].Read = true
	}
	n.persistLocked()
}

// UnreadCount is derived from the current list on every read, never tracked
// separately.
func (n *Notifications) UnreadCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	count := 0
	for _, item := range n.items {
		if !item.Read {
			count++
		}
	}
	return count
}

// List returns a copy of the notifications, newest first.
func (n *Notifications) List() []shared.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()

	items := make([]shared.Notification, len(n.items))
	copy(items, n.items)
	return items
}

// titleFromPayload extracts the display title, falling back to a placeholder.
func titleFromPayload(data json.RawMessage) string {
	if title := push.ExtractBookTitle(data); title != "" {
		return title
	}
	return unknownBookTitle
}

// Bind subscribes the store to the fixed set of push events it projects into
// notifications.
func (n *Notifications) Bind(manager *push.Manager) {
	n.unsubscribes = append(n.unsubscribes,
		manager.Subscribe(push.EventReservationCreated, func(data json.RawMessage) {
			n.notify("Reservation Made", fmt.Sprintf("You reserved the book %q.", titleFromPayload(data)))
		}),
		manager.Subscribe(push.EventReservationApproved, func(data json.RawMessage) {
			n.notify("Reservation Approved", fmt.Sprintf("Your reservation for %q was approved.", titleFromPayload(data)))
		}),
		manager.Subscribe(push.EventReservationCancelled, func(data json.RawMessage) {
			n.notify("Reservation Cancelled", fmt.Sprintf("Your reservation for %q was cancelled.", titleFromPayload(data)))
		}),
		manager.Subscribe(push.EventBookReturned, func(data json.RawMessage) {
			n.notify("Book Returned", fmt.Sprintf("The book %q has been returned.", titleFromPayload(data)))
		}),
	)
}

// Close deregisters this store's push handlers.
func (n *Notifications) Close() {
	for _, unsubscribe := range n.unsubscribes {
		unsubscribe()
	}
	n.unsubscribes = nil
}
