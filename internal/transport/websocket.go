package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcpenterprise/server/internal/auth"
)

const (
	wsIdleTimeout    = 5 * time.Minute
	wsHeartbeat      = 30 * time.Second
	wsWriteQueueSize = 64
)

// ServerEvent is a server-initiated push over the WebSocket channel
// (§4.I): NOT a JSON-RPC response, since it isn't a reply to any single
// client request.
type ServerEvent struct {
	Type      string    `json:"type"`
	Channel   string    `json:"channel,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// wsClientCommand is a client->server control message over the socket.
type wsClientCommand struct {
	Command  string   `json:"command"`
	Channels []string `json:"channels,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocket implements §4.I's WebSocket transport: GET /ws upgrades to
// a bidirectional JSON channel carrying both JSON-RPC requests/responses
// and out-of-band server events pushed from the pub/sub bus.
type WebSocket struct {
	router Router
	bus    PubSub
	log    *slog.Logger

	defaultDeadline time.Duration
}

// PubSub is the pub/sub dependency the WebSocket transport subscribes
// connections to; it mirrors internal/pubsub.Bus's subscription
// methods with PubSubEvent in place of pubsub.Event (internal/server
// adapts one to the other), and is declared locally to avoid this
// package importing that one.
type PubSub interface {
	Subscribe(channel, subscriberID string) (<-chan PubSubEvent, bool)
	Unsubscribe(channel, subscriberID string)
	UnsubscribeAll(subscriberID string)
}

// PubSubEvent mirrors internal/pubsub.Event's field shape.
type PubSubEvent struct {
	Channel   string
	Payload   any
	Timestamp time.Time
}

// NewWebSocket builds the WebSocket transport.
func NewWebSocket(router Router, bus PubSub, log *slog.Logger) *WebSocket {
	if log == nil {
		log = slog.Default()
	}
	return &WebSocket{router: router, bus: bus, log: log, defaultDeadline: 30 * time.Second}
}

// ServeHTTP upgrades the connection and runs it until the client
// disconnects, the idle timeout elapses, or ctx (the request's context)
// is cancelled by server shutdown.
func (ws *WebSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Error("websocket: upgrade failed", "error", err)
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	session := &wsSession{
		id:        uuid.NewString(),
		conn:      conn,
		router:    ws.router,
		bus:       ws.bus,
		log:       ws.log,
		write:     make(chan []byte, wsWriteQueueSize),
		deadline:  ws.defaultDeadline,
		principal: principal,
	}
	session.run(r.Context())
}

type wsSession struct {
	id        string
	conn      *websocket.Conn
	router    Router
	bus       PubSub
	log       *slog.Logger
	write     chan []byte
	deadline  time.Duration
	principal *auth.Principal

	mu            sync.Mutex
	subscriptions map[string]bool
}

func (s *wsSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.conn.Close()
	defer s.bus.UnsubscribeAll(s.id)

	s.subscriptions = make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); s.writeLoop(ctx, cancel) }()
	go func() { defer wg.Done(); s.readLoop(ctx, cancel) }()
	wg.Wait()
}

func (s *wsSession) readLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	s.conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		s.handleMessage(ctx, data)
	}
}

func (s *wsSession) handleMessage(ctx context.Context, data []byte) {
	var cmd wsClientCommand
	if err := json.Unmarshal(data, &cmd); err == nil && cmd.Command != "" {
		s.handleCommand(cmd)
		return
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		s.enqueue(Response{JSONRPC: "2.0", Error: &Error{Code: CodeParseError, Message: "parse error: " + err.Error()}})
		return
	}

	resp := Response{JSONRPC: "2.0", ID: req.ID}
	result, callErr := routeRequest(ctx, s.router, req, s.principal, s.deadline, "websocket")
	if callErr != nil {
		resp.Error = ErrFromRPCError(callErr)
	} else {
		resp.Result = result
	}
	s.enqueue(resp)
}

func (s *wsSession) handleCommand(cmd wsClientCommand) {
	switch cmd.Command {
	case "ping":
		s.enqueueEvent(ServerEvent{Type: "pong", Timestamp: time.Now()})
	case "subscribe":
		for _, ch := range cmd.Channels {
			s.subscribeChannel(ch)
		}
	case "unsubscribe":
		for _, ch := range cmd.Channels {
			s.unsubscribeChannel(ch)
		}
	}
}

func (s *wsSession) subscribeChannel(channel string) {
	s.mu.Lock()
	if s.subscriptions[channel] {
		s.mu.Unlock()
		return
	}
	s.subscriptions[channel] = true
	s.mu.Unlock()

	events, ok := s.bus.Subscribe(channel, s.id)
	if !ok {
		s.enqueueEvent(ServerEvent{Type: "error", Channel: channel, Data: "unknown channel", Timestamp: time.Now()})
		return
	}
	go s.pumpChannel(channel, events)
}

func (s *wsSession) unsubscribeChannel(channel string) {
	s.mu.Lock()
	delete(s.subscriptions, channel)
	s.mu.Unlock()
	s.bus.Unsubscribe(channel, s.id)
}

func (s *wsSession) pumpChannel(channel string, events <-chan PubSubEvent) {
	for evt := range events {
		s.mu.Lock()
		active := s.subscriptions[channel]
		s.mu.Unlock()
		if !active {
			return
		}
		s.enqueueEvent(ServerEvent{Type: "event", Channel: evt.Channel, Data: evt.Payload, Timestamp: evt.Timestamp})
	}
}

func (s *wsSession) enqueue(resp Response) {
	encoded, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("websocket: failed to encode response", "error", err)
		return
	}
	s.send(encoded)
}

func (s *wsSession) enqueueEvent(evt ServerEvent) {
	encoded, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("websocket: failed to encode event", "error", err)
		return
	}
	s.send(encoded)
}

func (s *wsSession) send(data []byte) {
	select {
	case s.write <- data:
	default:
		s.log.Warn("websocket: write queue full, dropping message", "session", s.id)
	}
}

func (s *wsSession) writeLoop(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	ticker := time.NewTicker(wsHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-s.write:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
