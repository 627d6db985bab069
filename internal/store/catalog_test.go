package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"librahub/internal/api"
	"librahub/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogFetchAllReplacesCollection(t *testing.T) {
	books := []map[string]any{{"_id": "b1", "title": "Dune", "availableCount": 1}}
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		json.NewEncoder(w).Encode(books)
	}))
	defer server.Close()

	catalog := NewCatalog(api.NewClient(server.URL), testLogger())
	catalog.FetchAll(context.Background())
	require.Len(t, catalog.Books(), 1)

	mu.Lock()
	books = []map[string]any{
		{"_id": "b2", "title": "Hyperion"},
		{"_id": "b3", "title": "Solaris"},
	}
	mu.Unlock()

	catalog.FetchAll(context.Background())
	got := catalog.Books()
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0].ID)
}

func TestCatalogFetchFailureKeepsPreviousCollection(t *testing.T) {
	failing := false
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{{"_id": "b1", "title": "Dune"}})
	}))
	defer server.Close()

	catalog := NewCatalog(api.NewClient(server.URL), testLogger())
	catalog.FetchAll(context.Background())
	require.Len(t, catalog.Books(), 1)

	mu.Lock()
	failing = true
	mu.Unlock()

	catalog.FetchAll(context.Background())
	assert.Len(t, catalog.Books(), 1, "failed fetch must leave previous collection untouched")
}

func TestCatalogPatchAvailability(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"_id": "b1", "available": true},
			{"_id": "b2", "available": true},
		})
	}))
	defer server.Close()

	catalog := NewCatalog(api.NewClient(server.URL), testLogger())
	catalog.FetchAll(context.Background())

	catalog.PatchAvailability("b1", false)

	b1, ok := catalog.Get("b1")
	require.True(t, ok)
	assert.False(t, b1.Available)

	b2, ok := catalog.Get("b2")
	require.True(t, ok)
	assert.True(t, b2.Available, "only the matching record is patched")

	// Patching an unknown id is a no-op, not a panic
	catalog.PatchAvailability("missing", false)
}

func TestCatalogDiscardsStaleFetchResponse(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests++
		n := requests
		mu.Unlock()

		if n == 1 {
			// First (slow) fetch: stale data, held back until released
			<-release
			json.NewEncoder(w).Encode([]map[string]any{{"_id": "stale"}})
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{{"_id": "fresh"}})
	}))
	defer server.Close()

	catalog := NewCatalog(api.NewClient(server.URL), testLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		catalog.FetchAll(context.Background())
	}()

	// Wait until the slow fetch is in flight, then issue and complete a
	// newer one.
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return requests == 1
	})
	catalog.FetchAll(context.Background())
	require.Equal(t, "fresh", catalog.Books()[0].ID)

	close(release)
	<-done

	got := catalog.Books()
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID, "slow earlier fetch must not overwrite a faster later one")
}

func TestCatalogLocalPatchSurvivesInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		json.NewEncoder(w).Encode([]map[string]any{{"_id": "b1", "available": true}})
	}))
	defer server.Close()

	catalog := NewCatalog(api.NewClient(server.URL), testLogger())
	catalog.mu.Lock()
	catalog.books = []shared.Book{{ID: "b1", Available: true}}
	catalog.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		catalog.FetchAll(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)

	// A reservation lands while the fetch is in flight.
	catalog.PatchAvailability("b1", false)

	close(release)
	<-done

	b1, ok := catalog.Get("b1")
	require.True(t, ok)
	assert.False(t, b1.Available, "fetch issued before the patch must be discarded")
}

func waitUntil(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never met")
}
