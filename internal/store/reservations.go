package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"librahub/internal/api"
	"librahub/internal/push"
	"librahub/internal/shared"

	"github.com/google/uuid"
)

// Reservations holds the current student's reservation list and reconciles
// it against three update sources that race freely: local optimistic
// mutations, HTTP fetch responses and push events. The rules are idempotent
// and order-tolerant: replace-by-identifier else prepend, never duplicate.
type Reservations struct {
	client  *api.Client
	catalog *Catalog
	auth    AuthState
	logger  *slog.Logger

	mu       sync.RWMutex
	items    []shared.Reservation
	issueSeq uint64
	version  uint64

	unsubscribes []func()
}

func NewReservations(client *api.Client, catalog *Catalog, auth AuthState, logger *slog.Logger) *Reservations {
	return &Reservations{client: client, catalog: catalog, auth: auth, logger: logger}
}

func (r *Reservations) beginFetch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issueSeq++
	return r.issueSeq
}

// bumpVersionLocked advances the version past every fetch issued so far, so
// in-flight responses older than this mutation get discarded.
func (r *Reservations) bumpVersionLocked() {
	r.issueSeq++
	r.version = r.issueSeq
}

// FetchMine replaces the list with the student's reservations. No-op when
// unauthenticated. A response that lost the race against a newer mutation or
// fetch is discarded.
func (r *Reservations) FetchMine(ctx context.Context) {
	if !r.auth.Authenticated() {
		return
	}

	seq := r.beginFetch()

	items, err := r.client.FetchMyReservations(ctx)
	if err != nil {
		r.logger.Warn("reservation fetch failed, keeping previous list", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq <= r.version {
		r.logger.Debug("discarding stale reservation fetch", "seq", seq, "version", r.version)
		return
	}
	r.version = seq
	r.items = items
}

// Reserve applies the optimistic mutation first: the catalog's availability
// flips to false and a pending placeholder is prepended immediately, before
// any network response. On success the placeholder is replaced by the
// server's reservation; on failure the optimistic state stays in place
// (best-effort model) and the error is surfaced for the user.
func (r *Reservations) Reserve(ctx context.Context, bookID string) (*shared.Reservation, error) {
	if !r.auth.Authenticated() {
		return nil, fmt.Errorf("not authenticated")
	}

	now := time.Now()
	placeholder := shared.Reservation{
		ID:        "local-" + uuid.NewString(),
		BookID:    bookID,
		Status:    shared.ReservationPending,
		CreatedAt: &now,
	}
	if book, ok := r.catalog.Get(bookID); ok {
		placeholder.Book = &book
	}

	r.mu.Lock()
	r.items = append([]shared.Reservation{placeholder}, r.items...)
	r.bumpVersionLocked()
	r.mu.Unlock()
	r.catalog.PatchAvailability(bookID, false)

	reservation, err := r.client.CreateReservation(ctx, bookID)
	if err != nil {
		r.logger.Warn("reserve not confirmed by service", "book_id", bookID, "error", err)
		return nil, err
	}

	r.upsert(*reservation, placeholder.ID)
	return reservation, nil
}

// Cancel flips the matching record to cancelled in place (the record is not
// removed) and patches the book's availability back to true using the cached
// book reference captured before the mutation. The optimistic mutation stays
// even when the request fails.
func (r *Reservations) Cancel(ctx context.Context, reservationID string) error {
	r.mu.Lock()
	var bookID string
	for i := range r.items {
		if r.items[i].ID == reservationID {
			r.items[i].Status = shared.ReservationCancelled
			bookID = r.items[i].BookID
			break
		}
	}
	r.bumpVersionLocked()
	r.mu.Unlock()

	if bookID != "" {
		r.catalog.PatchAvailability(bookID, true)
	}

	if err := r.client.CancelReservation(ctx, reservationID); err != nil {
		r.logger.Warn("cancel not confirmed by service", "reservation_id", reservationID, "error", err)
		return err
	}
	return nil
}

// Delete removes a reservation record entirely, locally only after the
// service confirmed.
func (r *Reservations) Delete(ctx context.Context, reservationID string) error {
	if err := r.client.DeleteReservation(ctx, reservationID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == reservationID {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			break
		}
	}
	r.bumpVersionLocked()
	return nil
}

// upsert replaces the entry matching the reservation's identifier, else
// prepends. replacedID names an optimistic placeholder to drop on the way;
// the result always holds at most one entry per identifier.
func (r *Reservations) upsert(reservation shared.Reservation, replacedID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]shared.Reservation, 0, len(r.items)+1)
	replaced := false
	for _, item := range r.items {
		if item.ID == replacedID && replacedID != "" {
			continue
		}
		if item.ID == reservation.ID {
			if !replaced {
				next = append(next, reservation)
				replaced = true
			}
			continue
		}
		next = append(next, item)
	}
	if !replaced {
		next = append([]shared.Reservation{reservation}, next...)
	}
	r.items = next
	r.bumpVersionLocked()
}

// ApplyUpdated reconciles a "reservation updated" push event: replace the
// matching record by identifier if present, else prepend as new.
func (r *Reservations) ApplyUpdated(reservation shared.Reservation) {
	r.upsert(reservation, "")
}

// ApplyCreated reconciles a "reservation created" push event (possibly from
// another session of the same user): prepend only when the identifier is not
// already present.
func (r *Reservations) ApplyCreated(reservation shared.Reservation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.items {
		if item.ID == reservation.ID {
			return
		}
	}
	r.items = append([]shared.Reservation{reservation}, r.items...)
	r.bumpVersionLocked()
}

// List returns a copy of the current reservation list.
func (r *Reservations) List() []shared.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]shared.Reservation, len(r.items))
	copy(items, r.items)
	return items
}

// Get returns the cached record for one reservation.
func (r *Reservations) Get(reservationID string) (shared.Reservation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.ID == reservationID {
			return item, true
		}
	}
	return shared.Reservation{}, false
}

// Bind subscribes the store to reservation push events.
func (r *Reservations) Bind(manager *push.Manager) {
	r.unsubscribes = append(r.unsubscribes,
		manager.Subscribe(push.EventReservationUpdated, func(data json.RawMessage) {
			reservation := push.DecodeReservationPayload(data)
			if reservation == nil {
				r.logger.Warn("reservationUpdated event carried no reservation", "payload", string(data))
				return
			}
			r.ApplyUpdated(*reservation)
		}),
		manager.Subscribe(push.EventReservationCreated, func(data json.RawMessage) {
			reservation := push.DecodeReservationPayload(data)
			if reservation == nil {
				r.logger.Warn("reservationCreated event carried no reservation", "payload", string(data))
				return
			}
			r.ApplyCreated(*reservation)
		}),
	)
}

// Close deregisters this store's push handlers.
func (r *Reservations) Close() {
	for _, unsubscribe := range r.unsubscribes {
		unsubscribe()
	}
	r.unsubscribes = nil
}
