// Package dashboard provides a real-time WebSocket feed of planner changes.
//
// The feed broadcasts record updates, save outcomes and board statistics to
// connected WebSocket clients so a presentation layer can refresh without
// polling. It is read-only: client messages are ignored.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// MessageType names the payload carried by a Message.
type MessageType string

const (
	// MessageTypeRecordUpdate: a task or exam was added, moved, updated or deleted.
	MessageTypeRecordUpdate MessageType = "record_update"

	// MessageTypeSyncComplete: a save finished, successfully or not.
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeStats carries board statistics.
	MessageTypeStats MessageType = "stats"
)

// Message is one frame of the feed.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

const (
	// queueSize is the number of frames buffered per client. A client that
	// falls this far behind is disconnected.
	queueSize   = 32
	sendTimeout = 5 * time.Second
)

// Config holds server configuration.
type Config struct {
	// Host to bind (default: all interfaces)
	Host string

	// Port to listen on (default: 8080, 0 picks a free port)
	Port int

	Logger *log.Logger
}

// DefaultConfig returns the defaults used for nil or zero fields.
func DefaultConfig() *Config {
	return &Config{
		Port:   8080,
		Logger: log.Default(),
	}
}

// subscriber is one connected client with its own outbound queue.
type subscriber struct {
	conn  *websocket.Conn
	queue chan []byte
}

// Server fans feed messages out to WebSocket subscribers.
type Server struct {
	addr    string
	logger  *log.Logger
	welcome func() Message

	listener net.Listener
	http     *http.Server

	mu   sync.Mutex
	subs map[*subscriber]struct{}

	ctx     context.Context
	cancel  context.CancelFunc
	writers sync.WaitGroup
	serving sync.WaitGroup
}

// NewServer creates a dashboard server. It does not listen until Start.
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:    net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		logger:  logger,
		welcome: func() Message { return Message{Type: MessageTypeStats} },
		subs:    make(map[*subscriber]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetWelcome sets the builder of the first message each client receives.
// Call it before Start.
func (s *Server) SetWelcome(fn func() Message) {
	if fn != nil {
		s.welcome = fn
	}
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleFeed)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	s.http = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	s.serving.Add(1)
	go func() {
		defer s.serving.Done()
		s.logger.Printf("Dashboard listening on %s", ln.Addr())
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("Server error: %v", err)
		}
	}()
	return nil
}

// Stop disconnects every client and shuts the listener down.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for sub := range s.subs {
		s.unsubscribeLocked(sub)
	}
	s.mu.Unlock()
	s.writers.Wait()

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down dashboard: %w", err)
		}
	}
	s.serving.Wait()
	s.logger.Println("Dashboard stopped")
	return nil
}

// Broadcast sends msg to every subscriber. Subscribers whose queue is full
// are disconnected; the others are unaffected.
func (s *Server) Broadcast(msg Message) {
	frame, err := encode(msg)
	if err != nil {
		s.logger.Printf("Dropping %s message: %v", msg.Type, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return
	}
	for sub := range s.subs {
		select {
		case sub.queue <- frame:
		default:
			s.logger.Println("Client too slow, disconnecting")
			s.unsubscribeLocked(sub)
		}
	}
}

// handleFeed upgrades the request and blocks until the client goes away.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn, queue: make(chan []byte, queueSize)}
	if frame, err := encode(s.welcome()); err == nil {
		sub.queue <- frame
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close(websocket.StatusGoingAway, "dashboard stopping")
		return
	}
	s.subs[sub] = struct{}{}
	n := len(s.subs)
	s.writers.Add(1)
	s.mu.Unlock()

	s.logger.Printf("Client connected (%d connected)", n)
	go s.deliver(sub)

	// Incoming frames are ignored; reading surfaces the disconnect.
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			break
		}
	}
	s.unsubscribe(sub)
}

// deliver writes queued frames until the queue is closed or a write fails.
func (s *Server) deliver(sub *subscriber) {
	defer s.writers.Done()

	for frame := range sub.queue {
		ctx, cancel := context.WithTimeout(s.ctx, sendTimeout)
		err := sub.conn.Write(ctx, websocket.MessageText, frame)
		cancel()
		if err != nil {
			s.unsubscribe(sub)
			_ = sub.conn.CloseNow()
			for range sub.queue {
			}
			return
		}
	}

	status, reason := websocket.StatusNormalClosure, ""
	if s.ctx.Err() != nil {
		status, reason = websocket.StatusGoingAway, "dashboard stopping"
	}
	_ = sub.conn.Close(status, reason)
}

func (s *Server) unsubscribe(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribeLocked(sub)
}

// unsubscribeLocked closes the subscriber's queue once. s.mu must be held.
func (s *Server) unsubscribeLocked(sub *subscriber) {
	if _, ok := s.subs[sub]; !ok {
		return
	}
	delete(s.subs, sub)
	close(sub.queue)
	s.logger.Printf("Client disconnected (%d connected)", len(s.subs))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Planner</title></head>
<body>
<h1>Planner feed</h1>
<p>Subscribe at <code>ws://%s/ws</code>. Messages: record_update, sync_complete, stats.</p>
<p><a href="/health">health</a></p>
</body>
</html>`, r.Host)
}

// Addr returns the listening address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func encode(msg Message) ([]byte, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return json.Marshal(msg)
}
