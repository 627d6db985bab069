package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"librahub/internal/shared"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second

	// Rate limiting for outbound requests
	defaultRateLimit = 10
	defaultRateBurst = 20

	userAgent = "LibraHub/1.0"
)

// Client talks to the remote library service over HTTP. All request/response
// bodies are JSON; authenticated requests carry a bearer credential in the
// Authorization header.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithRateLimit overrides the outbound request rate limit.
func WithRateLimit(perSecond, burst int) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// NewClient creates a new library service API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		rateLimiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultRateBurst),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets the bearer credential used for authenticated requests.
// An empty token switches the client back to guest mode.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently held bearer credential.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// APIError carries a business-rule rejection from the service, e.g. a
// reservation quota being exceeded. These are surfaced to the user directly
// and never retried automatically.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("service returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("service returned %d", e.StatusCode)
}

// doRequest performs an HTTP request with rate limiting and decodes the raw
// JSON body. Non-2xx responses are returned as *APIError with whatever
// message field the service included.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // Ensure the response body is closed

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: extractErrorMessage(data)}
	}

	return json.RawMessage(data), nil
}

// SignInRequest is the payload for POST /api/students/signin
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest is the payload for POST /api/students/signup
type SignUpRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Category []string `json:"category,omitempty"`
}

// AuthResponse is returned by signin/signup
type AuthResponse struct {
	Token   string          `json:"token"`
	Student *shared.Student `json:"student,omitempty"`
}

// SignIn authenticates the student and returns the bearer credential.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	raw, err := c.doRequest(ctx, http.MethodPost, "/api/students/signin", &SignInRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("sign in failed: %w", err)
	}

	var response AuthResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to decode sign in response: %w", err)
	}
	return &response, nil
}

// SignUp registers a new student account.
func (c *Client) SignUp(ctx context.Context, request *SignUpRequest) (*AuthResponse, error) {
	raw, err := c.doRequest(ctx, http.MethodPost, "/api/students/signup", request)
	if err != nil {
		return nil, fmt.Errorf("sign up failed: %w", err)
	}

	var response AuthResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("failed to decode sign up response: %w", err)
	}
	return &response, nil
}

// FetchBooks retrieves the full catalog.
func (c *Client) FetchBooks(ctx context.Context) ([]shared.Book, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/books", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch books: %w", err)
	}
	return NormalizeBookList(raw), nil
}

// FetchRecommended retrieves the generic recommended list.
func (c *Client) FetchRecommended(ctx context.Context) ([]shared.Book, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/books/recommended", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommended books: %w", err)
	}
	return NormalizeBookList(raw), nil
}

// FetchBooksByCategory retrieves the list for one category tag.
func (c *Client) FetchBooksByCategory(ctx context.Context, category string) ([]shared.Book, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/books/category/"+url.PathEscape(category), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category %q: %w", category, err)
	}
	return NormalizeBookList(raw), nil
}

// FetchMe retrieves the current authenticated profile.
func (c *Client) FetchMe(ctx context.Context) (*shared.Student, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/students/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	student := NormalizeStudent(raw)
	if student == nil || student.ID == "" {
		return nil, fmt.Errorf("profile response contained no student id")
	}
	return student, nil
}

// FetchFavorites retrieves the authoritative favorite set for a student,
// normalized to a flat list of book identifiers.
func (c *Client) FetchFavorites(ctx context.Context, studentID string) ([]string, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/students/"+url.PathEscape(studentID)+"/favorites", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch favorites: %w", err)
	}
	return NormalizeFavoriteIDs(raw), nil
}

// MergeFavorites pushes a guest favorite set to the server-side merge endpoint.
func (c *Client) MergeFavorites(ctx context.Context, studentID string, favorites []string) error {
	body := map[string][]string{"favorites": favorites}
	_, err := c.doRequest(ctx, http.MethodPost, "/api/students/"+url.PathEscape(studentID)+"/favorites/merge", body)
	if err != nil {
		return fmt.Errorf("failed to merge favorites: %w", err)
	}
	return nil
}

// ToggleFavorite flips one book's membership in the server-side favorite set.
func (c *Client) ToggleFavorite(ctx context.Context, bookID string) error {
	body := map[string]string{"bookId": bookID}
	_, err := c.doRequest(ctx, http.MethodPost, "/api/students/favorites/toggle", body)
	if err != nil {
		return fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return nil
}

// FetchMyReservations retrieves all reservations of the current student.
func (c *Client) FetchMyReservations(ctx context.Context) ([]shared.Reservation, error) {
	raw, err := c.doRequest(ctx, http.MethodGet, "/api/reservation/my", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservations: %w", err)
	}
	return NormalizeReservationList(raw), nil
}

// CreateReservation reserves a book and returns the created reservation.
func (c *Client) CreateReservation(ctx context.Context, bookID string) (*shared.Reservation, error) {
	body := map[string]string{"bookId": bookID}
	raw, err := c.doRequest(ctx, http.MethodPost, "/api/reservation/"+url.PathEscape(bookID), body)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve book: %w", err)
	}

	reservation := NormalizeReservation(raw)
	if reservation == nil {
		return nil, fmt.Errorf("reservation response contained no reservation")
	}
	return reservation, nil
}

// CancelReservation cancels an existing reservation.
func (c *Client) CancelReservation(ctx context.Context, reservationID string) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/api/reservation/"+url.PathEscape(reservationID)+"/cancel", nil)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	return nil
}

// DeleteReservation removes a reservation record entirely.
func (c *Client) DeleteReservation(ctx context.Context, reservationID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/api/reservation/"+url.PathEscape(reservationID), nil)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}
