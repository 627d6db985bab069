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

func TestComposeDeduplicatesAndRanks(t *testing.T) {
	lists := [][]shared.Book{
		{
			{ID: "b1", Title: "Dune", FavoritesCount: 5},
			{ID: "b2", Title: "Hyperion", FavoritesCount: 9},
		},
		{
			{ID: "b1", Title: "Dune (updated)", FavoritesCount: 7},
			{ID: "b3", Title: "Solaris", FavoritesCount: 2},
		},
	}

	got := Compose(lists, 10)
	require.Len(t, got, 3)

	// Ranked by favorites counter descending
	assert.Equal(t, "b2", got[0].ID)
	assert.Equal(t, "b1", got[1].ID)
	assert.Equal(t, "b3", got[2].ID)

	// Later lists win the duplicate
	assert.Equal(t, "Dune (updated)", got[1].Title)
	assert.Equal(t, 7, got[1].FavoritesCount)
}

func TestComposeTruncatesToLimit(t *testing.T) {
	lists := [][]shared.Book{{
		{ID: "b1", FavoritesCount: 1},
		{ID: "b2", FavoritesCount: 3},
		{ID: "b3", FavoritesCount: 2},
	}}

	got := Compose(lists, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b2", got[0].ID)
	assert.Equal(t, "b3", got[1].ID)
}

func TestComposeStableForEqualCounters(t *testing.T) {
	lists := [][]shared.Book{{
		{ID: "b1", FavoritesCount: 4},
		{ID: "b2", FavoritesCount: 4},
	}}

	got := Compose(lists, 0)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID, "ties keep first-appearance order")
	assert.Equal(t, "b2", got[1].ID)
}

func TestComposeSkipsEmptyAndNilLists(t *testing.T) {
	lists := [][]shared.Book{
		nil,
		{{ID: "b1"}},
		{},
	}
	assert.Len(t, Compose(lists, 0), 1)
}

// recommendServer counts requests per endpoint kind.
type recommendServer struct {
	mu               sync.Mutex
	categoryRequests []string
	genericRequests  int
	failCategories   bool
	profileCategory  []string
}

func (s *recommendServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/books/category/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		s.mu.Lock()
		s.categoryRequests = append(s.categoryRequests, name)
		fail := s.failCategories
		s.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{{"_id": "book-" + name, "category": name}})
	})

	mux.HandleFunc("GET /api/books/recommended", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.genericRequests++
		s.mu.Unlock()
		json.NewEncoder(w).Encode([]map[string]any{{"_id": "generic"}})
	})

	mux.HandleFunc("GET /api/students/me", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"_id": "s1", "category": s.profileCategory})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRecommenderFansOutPerCategory(t *testing.T) {
	fake := &recommendServer{}
	server := fake.start(t)

	auth := &fakeAuth{
		authenticated: true,
		studentID:     "s1",
		student:       &shared.Student{ID: "s1", Category: []string{"scifi", "history"}},
	}
	recommender := NewRecommender(api.NewClient(server.URL), auth, 10, testLogger())

	got, err := recommender.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"scifi", "history"}, fake.categoryRequests)
	assert.Zero(t, fake.genericRequests, "category mode never hits the generic endpoint")
}

func TestRecommenderGuestUsesGenericEndpointOnly(t *testing.T) {
	fake := &recommendServer{}
	server := fake.start(t)

	recommender := NewRecommender(api.NewClient(server.URL), &fakeAuth{}, 10, testLogger())
	got, err := recommender.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "generic", got[0].ID)
	assert.Equal(t, 1, fake.genericRequests)
	assert.Empty(t, fake.categoryRequests)
}

func TestRecommenderStudentWithoutPreferencesFallsBack(t *testing.T) {
	fake := &recommendServer{profileCategory: nil}
	server := fake.start(t)

	// No cached student: the profile is fetched, comes back without
	// preferences, and the generic endpoint serves the list.
	auth := &fakeAuth{authenticated: true, studentID: "s1"}
	recommender := NewRecommender(api.NewClient(server.URL), auth, 10, testLogger())

	got, err := recommender.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "generic", got[0].ID)
}

func TestRecommenderToleratesCategoryFailures(t *testing.T) {
	fake := &recommendServer{failCategories: true}
	server := fake.start(t)

	auth := &fakeAuth{
		authenticated: true,
		studentID:     "s1",
		student:       &shared.Student{ID: "s1", Category: []string{"scifi"}},
	}
	recommender := NewRecommender(api.NewClient(server.URL), auth, 10, testLogger())

	got, err := recommender.Load(context.Background())
	require.NoError(t, err, "a failed category list degrades to empty, not to an error")
	assert.Empty(t, got)
}
