package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]any{})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	// Guest mode: no header
	_, err := client.FetchBooks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)

	client.SetToken("tok-123")
	_, err = client.FetchBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClientSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "reservation quota exceeded"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CreateReservation(context.Background(), "b1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "reservation quota exceeded", apiErr.Message)
}

func TestClientEndpointPaths(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]any{"_id": "r1", "status": "reserved"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	_, err := client.CreateReservation(ctx, "book42")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/reservation/book42", gotPath)

	require.NoError(t, client.CancelReservation(ctx, "r1"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/reservation/r1/cancel", gotPath)

	require.NoError(t, client.DeleteReservation(ctx, "r1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/reservation/r1", gotPath)

	_, err = client.FetchBooksByCategory(ctx, "sci fi")
	require.NoError(t, err)
	assert.Equal(t, "/api/books/category/sci%20fi", gotPath)
}

func TestClientMergeFavoritesBody(t *testing.T) {
	var gotBody map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	require.NoError(t, client.MergeFavorites(context.Background(), "s1", []string{"B1"}))
	assert.Equal(t, map[string][]string{"favorites": {"B1"}}, gotBody)
}

func TestClientFetchMeRequiresStudentID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"name": "no id here"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchMe(context.Background())
	assert.Error(t, err)
}
