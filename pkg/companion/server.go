package companion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/badgelink/badgelink-go/pkg/pairing"
	"github.com/gorilla/websocket"
)

// Server defaults.
const (
	DefaultAddress      = ":4767"
	DefaultPath         = "/ws"
	DefaultSendQueue    = 32
	DefaultWriteTimeout = 5 * time.Second
	DefaultCallTimeout  = 2 * time.Second
)

// ErrNoController is returned by commands before SetController was called.
var ErrNoController = errors.New("no badge attached")

// Controller is the badge side of the link. *node.Node satisfies it.
type Controller interface {
	SetLocalBitmask(ctx context.Context, b []byte) error
	SetLocalPublicKey(ctx context.Context, key string) error
	SetRelayURL(ctx context.Context, url string) error
	Reset(ctx context.Context) error
	Status(ctx context.Context) (pairing.Status, error)
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on.
	Address string

	// Path of the WebSocket endpoint.
	Path string

	// SendQueue is the per-client outgoing line buffer. Lines are dropped
	// for a client whose queue is full.
	SendQueue int

	// WriteTimeout bounds a single WebSocket write.
	WriteTimeout time.Duration

	// CallTimeout bounds a command sent to the controller.
	CallTimeout time.Duration

	// AllowedOrigins lists accepted Origin headers. Empty accepts all.
	AllowedOrigins []string

	Logger *slog.Logger
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      DefaultAddress,
		Path:         DefaultPath,
		SendQueue:    DefaultSendQueue,
		WriteTimeout: DefaultWriteTimeout,
		CallTimeout:  DefaultCallTimeout,
	}
}

// Server serves companion apps over WebSocket and forwards badge
// notifications to every connected app. It implements pairing.Notifier.
type Server struct {
	config   ServerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.RWMutex
	ctrl    Controller
	clients map[*client]struct{}

	httpServer *http.Server
	listener   net.Listener
}

type client struct {
	conn *websocket.Conn
	send chan string
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// NewServer creates a server. Attach the badge with SetController.
func NewServer(config ServerConfig) *Server {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.SendQueue <= 0 {
		config.SendQueue = DefaultSendQueue
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}

	s := &Server{
		config:  config,
		logger:  config.Logger,
		clients: make(map[*client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// SetController attaches the badge.
func (s *Server) SetController(ctrl Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctrl = ctrl
}

func (s *Server) controller() Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctrl
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range s.config.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// Handler returns the HTTP handler serving the WebSocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, s)
	return mux
}

// Start listens on the configured address and serves until Close.
func (s *Server) Start() error {
	addr := s.config.Address
	if addr == "" {
		addr = DefaultAddress
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("companion listen: %w", err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.warn("companion server stopped", "error", err)
		}
	}()
	s.info("companion server listening", "address", ln.Addr().String(), "path", s.config.Path)
	return nil
}

// Addr returns the listen address after Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops the listener and disconnects all clients.
func (s *Server) Close() error {
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = s.httpServer.Shutdown(ctx)
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
	return err
}

// ClientCount returns the number of connected apps.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// ServeHTTP upgrades the request and runs the client until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.debug("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan string, s.config.SendQueue),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.info("companion connected", "remote", r.RemoteAddr)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		c.close()
		s.info("companion disconnected", "remote", r.RemoteAddr)
	}()

	go s.writeLoop(c)

	if ctrl := s.controller(); ctrl != nil {
		if st, err := s.status(ctrl); err == nil {
			s.enqueue(c, FormatStatus(st))
		}
	}
	s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	r := NewReassembler(MaxLineSize)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.debug("companion read failed", "error", err)
			}
			return
		}
		before := r.Overflows()
		for _, line := range r.Feed(data) {
			s.enqueue(c, s.handleLine(line))
		}
		if r.Overflows() != before {
			s.warn("companion line too long, buffer reset", "limit", MaxLineSize)
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for {
		select {
		case line := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line+string(Delimiter))); err != nil {
				s.debug("companion write failed", "error", err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (s *Server) enqueue(c *client, line string) {
	select {
	case c.send <- line:
	case <-c.done:
	default:
		s.warn("companion send queue full, line dropped", "line", line)
	}
}

// handleLine executes one command and returns the reply line.
func (s *Server) handleLine(line string) string {
	cmd, err := ParseCommand(line)
	if err != nil {
		return FormatError(err)
	}
	s.debug("companion command", "command", cmd.Kind.String())

	if cmd.Kind == CmdPing {
		return ReplyPong
	}

	ctrl := s.controller()
	if ctrl == nil {
		return FormatError(ErrNoController)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.CallTimeout)
	defer cancel()

	switch cmd.Kind {
	case CmdBitmask:
		err = ctrl.SetLocalBitmask(ctx, cmd.Bitmask)
	case CmdKey:
		err = ctrl.SetLocalPublicKey(ctx, cmd.Arg)
	case CmdURL:
		err = ctrl.SetRelayURL(ctx, cmd.Arg)
	case CmdReset:
		err = ctrl.Reset(ctx)
	case CmdStatus:
		st, err := ctrl.Status(ctx)
		if err != nil {
			return FormatError(err)
		}
		return FormatStatus(st)
	}
	if err != nil {
		return FormatError(err)
	}
	return ReplyOK
}

func (s *Server) status(ctrl Controller) (pairing.Status, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.CallTimeout)
	defer cancel()
	return ctrl.Status(ctx)
}

// Broadcast sends line to every connected app without blocking.
func (s *Server) Broadcast(line string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		s.enqueue(c, line)
	}
}

// PartnerKeyAvailable implements pairing.Notifier.
func (s *Server) PartnerKeyAvailable(key string) {
	s.Broadcast(FormatPartnerKey(key))
}

// RelayURLReceived implements pairing.Notifier.
func (s *Server) RelayURLReceived(url string) {
	s.Broadcast(FormatRelayURL(url))
}

// StateChanged forwards a pairing transition. Register it with
// node.OnStateChange.
func (s *Server) StateChanged(tr pairing.Transition) {
	s.Broadcast(FormatState(tr.To, tr.Partner))
}

func (s *Server) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Server) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Server) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

var _ pairing.Notifier = (*Server)(nil)
