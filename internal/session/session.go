package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"librahub/internal/api"
	"librahub/internal/shared"
	"librahub/internal/storage"

	"github.com/golang-jwt/jwt/v5"
)

// Session tracks the authentication state of the app: the stored bearer
// credential, the cached student snapshot and the remember-me login. It is
// the CredentialSource for the push connection manager.
type Session struct {
	store  storage.Store
	client *api.Client
	logger *slog.Logger

	mu      sync.RWMutex
	student *shared.Student
}

func New(store storage.Store, client *api.Client, logger *slog.Logger) *Session {
	return &Session{store: store, client: client, logger: logger}
}

// Load seeds the session from local storage at process start: the credential
// token (if any) is installed on the API client and the student snapshot is
// restored.
func (s *Session) Load() {
	token, err := s.store.GetItem(storage.KeyToken)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("could not read stored credential", "error", err)
		}
		return
	}

	if expired(token) {
		s.logger.Info("stored credential expired, operating as guest")
		s.store.RemoveItem(storage.KeyToken)
		s.store.RemoveItem(storage.KeyStudent)
		return
	}

	s.client.SetToken(token)

	if raw, err := s.store.GetItem(storage.KeyStudent); err == nil {
		var student shared.Student
		if err := json.Unmarshal([]byte(raw), &student); err == nil && student.ID != "" {
			s.mu.Lock()
			s.student = &student
			s.mu.Unlock()
		}
	}
}

// Token returns the current bearer credential, empty in guest mode.
func (s *Session) Token() string {
	return s.client.Token()
}

// Authenticated reports whether a credential is currently held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SignIn authenticates against the service and persists the credential and
// student snapshot. With remember set the login pair is stored for prefill;
// otherwise any previously remembered pair is cleared.
func (s *Session) SignIn(ctx context.Context, email, password string, remember bool) (*shared.Student, error) {
	response, err := s.client.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if response.Token == "" {
		return nil, fmt.Errorf("sign in response contained no token")
	}

	s.install(response)

	if remember {
		s.store.SetItem(storage.KeyRememberedEmail, email)
		s.store.SetItem(storage.KeyRememberedPassword, password)
		s.store.SetItem(storage.KeyRememberMe, "true")
	} else {
		s.store.RemoveItem(storage.KeyRememberedEmail)
		s.store.RemoveItem(storage.KeyRememberedPassword)
		s.store.RemoveItem(storage.KeyRememberMe)
	}

	return response.Student, nil
}

// SignUp registers a new account. When the service responds with a token the
// session is signed in immediately.
func (s *Session) SignUp(ctx context.Context, request *api.SignUpRequest) (*shared.Student, error) {
	response, err := s.client.SignUp(ctx, request)
	if err != nil {
		return nil, err
	}
	if response.Token != "" {
		s.install(response)
	}
	return response.Student, nil
}

func (s *Session) install(response *api.AuthResponse) {
	s.client.SetToken(response.Token)
	if err := s.store.SetItem(storage.KeyToken, response.Token); err != nil {
		s.logger.Warn("could not persist credential", "error", err)
	}

	if response.Student != nil && response.Student.ID != "" {
		s.mu.Lock()
		s.student = response.Student
		s.mu.Unlock()
		if raw, err := json.Marshal(response.Student); err == nil {
			s.store.SetItem(storage.KeyStudent, string(raw))
		}
	}
}

// SignOut clears the credential and the cached profile. The remembered login
// pair survives a sign-out on purpose: it only changes via the remember flag.
func (s *Session) SignOut() {
	s.client.SetToken("")
	s.store.RemoveItem(storage.KeyToken)
	s.store.RemoveItem(storage.KeyStudent)

	s.mu.Lock()
	s.student = nil
	s.mu.Unlock()
	s.logger.Info("signed out")
}

// Student returns the cached profile snapshot, nil when absent.
func (s *Session) Student() *shared.Student {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.student
}

// StudentID resolves the current user identifier: cached snapshot first, then
// a profile lookup which refreshes the cache.
func (s *Session) StudentID(ctx context.Context) (string, error) {
	if student := s.Student(); student != nil {
		return student.ID, nil
	}

	if !s.Authenticated() {
		return "", fmt.Errorf("not authenticated")
	}

	student, err := s.client.FetchMe(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.student = student
	s.mu.Unlock()
	if raw, err := json.Marshal(student); err == nil {
		s.store.SetItem(storage.KeyStudent, string(raw))
	}
	return student.ID, nil
}

// ResolveUserID implements push.CredentialSource.
func (s *Session) ResolveUserID(ctx context.Context) (string, error) {
	return s.StudentID(ctx)
}

// RememberedLogin returns the stored login pair when remember-me is on.
func (s *Session) RememberedLogin() (email, password string, ok bool) {
	flag, err := s.store.GetItem(storage.KeyRememberMe)
	if err != nil || flag != "true" {
		return "", "", false
	}

	email, err = s.store.GetItem(storage.KeyRememberedEmail)
	if err != nil {
		return "", "", false
	}
	password, err = s.store.GetItem(storage.KeyRememberedPassword)
	if err != nil {
		return "", "", false
	}
	return email, password, true
}

// expired reports whether a stored JWT credential is past its expiry claim.
// Tokens that don't parse as JWT or carry no expiry are assumed usable; the
// service rejects them with 401 if not.
func expired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return expiry.Before(time.Now())
}
