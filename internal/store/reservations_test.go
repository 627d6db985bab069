package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"librahub/internal/api"
	"librahub/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogWith(t *testing.T, books ...shared.Book) *Catalog {
	t.Helper()
	catalog := NewCatalog(nil, testLogger())
	catalog.mu.Lock()
	catalog.books = books
	catalog.mu.Unlock()
	return catalog
}

func TestReserveAppliesOptimisticStateBeforeResponse(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode(map[string]any{"_id": "r1", "bookId": "book42", "status": "reserved"})
	}))
	defer server.Close()

	catalog := newCatalogWith(t, shared.Book{ID: "book42", Available: true, AvailableCount: 1})
	reservations := NewReservations(api.NewClient(server.URL), catalog, &fakeAuth{authenticated: true}, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		reservations.Reserve(context.Background(), "book42")
	}()

	// Before any network response: availability is false and a pending
	// reservation is already prepended.
	waitUntil(t, func() bool {
		book, _ := catalog.Get("book42")
		return !book.Available && len(reservations.List()) == 1
	})
	pending := reservations.List()[0]
	assert.Contains(t, []shared.ReservationStatus{shared.ReservationPending, shared.ReservationReserved}, pending.Status)
	assert.Equal(t, "book42", pending.BookID)

	close(release)
	<-done

	// The server's reservation replaced the placeholder, no duplicates.
	got := reservations.List()
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
	assert.Equal(t, shared.ReservationReserved, got[0].Status)
}

func TestReserveFailureKeepsOptimisticState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "no copies available"})
	}))
	defer server.Close()

	catalog := newCatalogWith(t, shared.Book{ID: "b1", Available: true})
	reservations := NewReservations(api.NewClient(server.URL), catalog, &fakeAuth{authenticated: true}, testLogger())

	_, err := reservations.Reserve(context.Background(), "b1")
	require.Error(t, err)

	var apiErr *api.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "no copies available", apiErr.Message)

	// Best-effort model: the optimistic mutation stays until the next
	// fetch or push reconciles it.
	require.Len(t, reservations.List(), 1)
	book, _ := catalog.Get("b1")
	assert.False(t, book.Available)
}

func TestReserveRequiresAuthentication(t *testing.T) {
	reservations := NewReservations(api.NewClient("http://unused"), newCatalogWith(t), &fakeAuth{}, testLogger())
	_, err := reservations.Reserve(context.Background(), "b1")
	assert.Error(t, err)
	assert.Empty(t, reservations.List())
}

func TestCancelFlipsStatusInPlaceAndRestoresAvailability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	catalog := newCatalogWith(t, shared.Book{ID: "b1", Available: false})
	reservations := NewReservations(api.NewClient(server.URL), catalog, &fakeAuth{authenticated: true}, testLogger())
	reservations.ApplyCreated(shared.Reservation{ID: "r1", BookID: "b1", Status: shared.ReservationReserved})

	require.NoError(t, reservations.Cancel(context.Background(), "r1"))

	got := reservations.List()
	require.Len(t, got, 1, "cancelled reservations are kept, not removed")
	assert.Equal(t, shared.ReservationCancelled, got[0].Status)

	book, _ := catalog.Get("b1")
	assert.True(t, book.Available)
}

func TestFetchMineNoOpWhenUnauthenticated(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	reservations := NewReservations(api.NewClient(server.URL), newCatalogWith(t), &fakeAuth{}, testLogger())
	reservations.FetchMine(context.Background())
	assert.Zero(t, requests)
}

func TestPushReconciliationKeepsIdentifiersUnique(t *testing.T) {
	reservations := NewReservations(nil, newCatalogWith(t), &fakeAuth{authenticated: true}, testLogger())

	reservations.ApplyCreated(shared.Reservation{ID: "r1", Status: shared.ReservationPending})
	reservations.ApplyCreated(shared.Reservation{ID: "r2", Status: shared.ReservationPending})

	// Created event for an existing identifier never duplicates
	reservations.ApplyCreated(shared.Reservation{ID: "r1", Status: shared.ReservationReserved})
	require.Len(t, reservations.List(), 2)
	r1, _ := reservations.Get("r1")
	assert.Equal(t, shared.ReservationPending, r1.Status, "created event must not replace an existing entry")

	// Updated event replaces by identifier
	reservations.ApplyUpdated(shared.Reservation{ID: "r1", Status: shared.ReservationApproved})
	require.Len(t, reservations.List(), 2)
	r1, _ = reservations.Get("r1")
	assert.Equal(t, shared.ReservationApproved, r1.Status)

	// Updated event for an unknown identifier prepends as new
	reservations.ApplyUpdated(shared.Reservation{ID: "r3", Status: shared.ReservationBorrowed})
	got := reservations.List()
	require.Len(t, got, 3)
	assert.Equal(t, "r3", got[0].ID)
}

func TestStaleFetchDiscardedAfterPushUpdate(t *testing.T) {
	// An in-flight fetch carrying status "reserved" was issued before a
	// push event reported "approved". The sequence guard discards the
	// stale response: the newer state wins.
	release := make(chan struct{})
	var mu sync.Mutex
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		mu.Unlock()
		<-release
		json.NewEncoder(w).Encode([]map[string]any{{"_id": "R1", "status": "reserved"}})
	}))
	defer server.Close()

	reservations := NewReservations(api.NewClient(server.URL), newCatalogWith(t), &fakeAuth{authenticated: true}, testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		reservations.FetchMine(context.Background())
	}()
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return requests == 1
	})

	// Push arrives while the fetch is still in flight
	reservations.ApplyUpdated(shared.Reservation{ID: "R1", Status: shared.ReservationApproved})

	close(release)
	<-done

	r1, ok := reservations.Get("R1")
	require.True(t, ok)
	assert.Equal(t, shared.ReservationApproved, r1.Status)
}

func TestDeleteRemovesRecordAfterConfirmation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	reservations := NewReservations(api.NewClient(server.URL), newCatalogWith(t), &fakeAuth{authenticated: true}, testLogger())
	reservations.ApplyCreated(shared.Reservation{ID: "r1", Status: shared.ReservationCancelled})

	require.NoError(t, reservations.Delete(context.Background(), "r1"))
	assert.Empty(t, reservations.List())
}
