package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/store"
)

// Request is a client message on /subscribe
type Request struct {
	Type         string `json:"type"` // "subscribe" or "unsubscribe"
	Cycler       string `json:"cycler,omitempty"`
	Path         string `json:"path,omitempty"`
	Capacity     int    `json:"capacity,omitempty"`
	Subscription string `json:"subscription,omitempty"`
}

// Response is a server message on /subscribe
type Response struct {
	Type         string   `json:"type"` // "subscribed", "unsubscribed", "value" or "error"
	Subscription string   `json:"subscription,omitempty"`
	Error        string   `json:"error,omitempty"`
	Message      *Message `json:"message,omitempty"`
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	readTimeout  = 2 * pingInterval
	drainBatch   = 64
)

// Server exposes hub subscriptions over websockets and lists store slots
type Server struct {
	addr     string
	hub      *Hub
	store    *store.Store
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	clients  map[*client]struct{}
	closing  bool // set by Stop, guards wg.Add
	wg       sync.WaitGroup
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	subs    map[string]*Subscription
	subsMu  sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

// NewServer creates a server listening on addr. st can be nil, in which case
// paths are not validated and /paths is empty.
func NewServer(addr string, hub *Hub, st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:   addr,
		hub:    hub,
		store:  st,
		logger: logger.With("component", "telemetry_server"),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler with /subscribe and /paths
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/subscribe", s.handleSubscribe)
	mux.HandleFunc("/paths", s.handlePaths)
	return mux
}

// Start listens and serves in the background
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Server", "Start", "check running state")
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Start", "listen on "+s.addr)
	}
	s.listener = listener
	s.closing = false
	s.server = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	server := s.server
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Telemetry server failed", "error", err)
		}
	}()
	s.logger.Info("Telemetry server started", "address", listener.Addr().String())
	return nil
}

// Address returns the bound address once started
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop shuts the HTTP server down and disconnects every client. Connections
// and subscriptions arriving after Stop are refused.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.closing = true
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var err error
	if server != nil {
		err = server.Shutdown(ctx)
	}

	for _, c := range clients {
		s.disconnect(c)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Telemetry clients did not stop in time")
	}

	if err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "shutdown")
	}
	return nil
}

func (s *Server) handlePaths(w http.ResponseWriter, _ *http.Request) {
	infos := []store.SlotInfo{}
	if s.store != nil {
		infos = s.store.Describe()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(infos); err != nil {
		s.logger.Debug("Failed to write paths", "error", err)
	}
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		conn:   conn,
		subs:   make(map[string]*Subscription),
		closed: make(chan struct{}),
	}
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.clients[c] = struct{}{}
	s.wg.Add(2)
	s.mu.Unlock()

	go s.readLoop(c)
	go s.pingLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.wg.Done()
	defer s.disconnect(c)

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			s.send(c, Response{Type: "error", Error: "malformed request"})
			continue
		}

		switch req.Type {
		case "subscribe":
			s.subscribe(c, req)
		case "unsubscribe":
			c.subsMu.Lock()
			_, ok := c.subs[req.Subscription]
			delete(c.subs, req.Subscription)
			c.subsMu.Unlock()
			if !ok {
				s.send(c, Response{Type: "error", Subscription: req.Subscription, Error: "unknown subscription"})
				continue
			}
			s.hub.Unsubscribe(req.Subscription)
			s.send(c, Response{Type: "unsubscribed", Subscription: req.Subscription})
		default:
			s.send(c, Response{Type: "error", Error: fmt.Sprintf("unknown request type %q", req.Type)})
		}
	}
}

func (s *Server) subscribe(c *client, req Request) {
	if s.store != nil {
		if _, ok := s.store.TypeOf(req.Path); !ok {
			s.send(c, Response{Type: "error", Error: fmt.Sprintf("unknown path %q", req.Path)})
			return
		}
	}
	sub, err := s.hub.Subscribe(req.Cycler, req.Path, req.Capacity)
	if err != nil {
		s.send(c, Response{Type: "error", Error: err.Error()})
		return
	}
	if !s.track() {
		s.hub.Unsubscribe(sub.ID)
		s.send(c, Response{Type: "error", Error: "server is stopping"})
		return
	}

	c.subsMu.Lock()
	if c.subs == nil {
		// disconnected meanwhile
		c.subsMu.Unlock()
		s.hub.Unsubscribe(sub.ID)
		s.wg.Done()
		return
	}
	c.subs[sub.ID] = sub
	c.subsMu.Unlock()

	// the acknowledgement is written before any value of the subscription
	s.send(c, Response{Type: "subscribed", Subscription: sub.ID})

	go s.forward(c, sub)
}

// track adds one goroutine to the wait group unless Stop has begun
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

// forward writes the messages of one subscription until it or the client ends
func (s *Server) forward(c *client, sub *Subscription) {
	defer s.wg.Done()
	for {
		select {
		case <-c.closed:
			return
		case <-sub.Done():
			return
		case <-sub.Notify():
			for {
				msgs := sub.Drain(drainBatch)
				if len(msgs) == 0 {
					break
				}
				for i := range msgs {
					if err := s.send(c, Response{Type: "value", Subscription: sub.ID, Message: &msgs[i]}); err != nil {
						return
					}
				}
			}
		}
	}
}

func (s *Server) pingLoop(c *client) {
	defer s.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			c.writeMu.Unlock()
			if err != nil {
				s.disconnect(c)
				return
			}
		}
	}
}

func (s *Server) send(c *client, resp Response) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(resp); err != nil {
		s.logger.Debug("Failed to write to telemetry client", "error", err)
		return err
	}
	return nil
}

func (s *Server) disconnect(c *client) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()

		c.subsMu.Lock()
		for id := range c.subs {
			s.hub.Unsubscribe(id)
		}
		c.subs = nil
		c.subsMu.Unlock()

		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	})
}
