package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connection.go = owns the single shared push-channel connection.
// Multiple stores subscribe to overlapping event names independently; the
// connection is lazily established on first need and torn down only on an
// explicit Disconnect (app-wide logout), never because one consumer stops
// listening.

// Frame is the wire format of the push channel: one JSON object per message
// carrying a named event and its raw payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler receives the raw payload of one push event.
type Handler func(data json.RawMessage)

// CredentialSource provides the stored auth credential and resolves the
// current user identifier. Implemented by the session layer; faked in tests.
type CredentialSource interface {
	Token() string
	ResolveUserID(ctx context.Context) (string, error)
}

// Conn is a live, room-joined push channel connection.
type Conn struct {
	userID string

	writeMu sync.Mutex
	ws      *websocket.Conn
	closed  chan struct{}
}

// UserID returns the identifier of the room this connection joined.
func (c *Conn) UserID() string {
	return c.userID
}

func (c *Conn) emit(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(&Frame{Event: event, Data: payload})
}

// Manager is the process-scoped connection manager. It is injected into the
// stores rather than accessed as an implicit global so tests can substitute a
// fake channel.
type Manager struct {
	socketURL         string
	source            CredentialSource
	logger            *slog.Logger
	dialer            *websocket.Dialer
	reconnectAttempts int
	reconnectDelay    time.Duration

	mu       sync.Mutex
	conn     *Conn
	gen      uint64 // bumped on every Disconnect; invalidates in-flight reconnects
	handlers map[string]map[int]Handler
	nextID   int
}

// NewManager creates a connection manager. Reconnection uses bounded attempts
// with a fixed delay, matching the service transport settings.
func NewManager(socketURL string, source CredentialSource, attempts int, delay time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		socketURL:         socketURL,
		source:            source,
		logger:            logger,
		dialer:            websocket.DefaultDialer,
		reconnectAttempts: attempts,
		reconnectDelay:    delay,
		handlers:          make(map[string]map[int]Handler),
	}
}

// Connect returns the existing live connection if already connected.
// Otherwise it reads the stored credential, resolves the current user
// identifier, dials the push channel and joins the user's room. It returns
// nil without an error when any step fails: callers must treat nil as
// "operate in disconnected/best-effort mode".
func (m *Manager) Connect(ctx context.Context) *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return m.conn
	}

	token := m.source.Token()
	if token == "" {
		m.logger.Warn("no credential found, cannot join user room")
		return nil
	}

	userID, err := m.source.ResolveUserID(ctx)
	if err != nil {
		m.logger.Warn("could not resolve user id for push channel", "error", err)
		return nil
	}

	conn, err := m.dial(token, userID)
	if err != nil {
		m.logger.Error("push channel connection failed", "error", err)
		return nil
	}

	m.conn = conn
	m.logger.Info("push channel connected", "user_id", userID)
	go m.readLoop(conn)
	return conn
}

// Get returns the current connection without attempting to establish one.
func (m *Manager) Get() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn
}

// Disconnect tears the connection down. Called on app-wide logout only.
// The generation bump also stops any reconnect sequence currently sleeping
// through its backoff, so a dropped connection cannot be resurrected after
// an explicit logout.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return
	}
	close(conn.closed)
	conn.ws.Close()
	m.logger.Info("push channel disconnected")
}

// Subscribe registers a handler for one event name and returns the function
// that deregisters exactly that handler. Stores call the returned function on
// their own teardown.
func (m *Manager) Subscribe(event string, handler Handler) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handlers[event] == nil {
		m.handlers[event] = make(map[int]Handler)
	}
	id := m.nextID
	m.nextID++
	m.handlers[event][id] = handler

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers[event], id)
	}
}

func (m *Manager) dial(token, userID string) (*Conn, error) {
	header := http.Header{}
	header.Add("Authorization", "Bearer "+token)

	ws, _, err := m.dialer.Dial(m.socketURL, header)
	if err != nil {
		return nil, err
	}

	conn := &Conn{userID: userID, ws: ws, closed: make(chan struct{})}

	// Join the personal room for the user
	if err := conn.emit(EventJoinUser, userID); err != nil {
		ws.Close()
		return nil, err
	}
	return conn, nil
}

// readLoop dispatches incoming frames until the connection drops, then runs
// the bounded reconnect sequence.
func (m *Manager) readLoop(conn *Conn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			select {
			case <-conn.closed:
				// explicit Disconnect, do not reconnect
				return
			default:
			}
			m.logger.Warn("push channel read error", "error", err)
			m.reconnect(conn)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Event == "" {
			// Duck-typed payloads: log and drop unrecognized frames rather
			// than defaulting silently.
			m.logger.Warn("dropping unrecognized push frame", "payload", string(data))
			continue
		}

		m.dispatch(frame)
	}
}

func (m *Manager) dispatch(frame Frame) {
	m.mu.Lock()
	registered := m.handlers[frame.Event]
	snapshot := make([]Handler, 0, len(registered))
	for _, handler := range registered {
		snapshot = append(snapshot, handler)
	}
	m.mu.Unlock()

	for _, handler := range snapshot {
		handler(frame.Data)
	}
}

func (m *Manager) reconnect(dropped *Conn) {
	m.mu.Lock()
	if m.conn != dropped {
		// a newer connection already replaced this one
		m.mu.Unlock()
		return
	}
	m.conn = nil
	gen := m.gen
	userID := dropped.userID
	m.mu.Unlock()

	dropped.ws.Close()

	for attempt := 1; attempt <= m.reconnectAttempts; attempt++ {
		time.Sleep(m.reconnectDelay)

		m.mu.Lock()
		stale := m.gen != gen || m.conn != nil
		m.mu.Unlock()
		if stale {
			// Disconnect fired, or Connect already established a newer
			// connection, while we slept.
			return
		}

		// Re-read the credential each attempt: a re-sign-in during the
		// retry window must redial with the fresh token.
		token := m.source.Token()
		if token == "" {
			m.logger.Info("credential cleared, abandoning push channel reconnect")
			return
		}

		conn, err := m.dial(token, userID)
		if err != nil {
			m.logger.Warn("push channel reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		m.mu.Lock()
		if m.gen != gen || m.conn != nil {
			m.mu.Unlock()
			conn.ws.Close()
			return
		}
		m.conn = conn
		m.mu.Unlock()

		m.logger.Info("push channel reconnected", "attempt", attempt, "user_id", userID)
		go m.readLoop(conn)
		return
	}

	m.logger.Error("push channel reconnect attempts exhausted", "attempts", m.reconnectAttempts)
}
