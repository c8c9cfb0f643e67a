package bridge

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-blockstream/dsp/quantum"
)

const (
	defaultClientBuffer = 64
	pongWait            = 60 * time.Second
	pingPeriod          = pongWait * 9 / 10
	writeWait           = 5 * time.Second
)

// Sender accepts control events. *quantum.Controller implements it.
type Sender interface {
	Send(ev quantum.ControlEvent) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFallbackEngine sets the engine module-ready selects when the message
// names none.
func WithFallbackEngine(name string) Option {
	return func(s *Server) {
		s.fallback = name
	}
}

// WithClientBuffer sets how many outbound messages may queue per client
// before further ones are dropped for that client.
func WithClientBuffer(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// Server is an http.Handler that upgrades requests to websocket control
// sessions. Every client may send control events and receives every
// notification.
type Server struct {
	sender   Sender
	fallback string
	buffer   int
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	out  chan Outbound
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// NewServer returns a server forwarding inbound events to sender.
func NewServer(sender Sender, opts ...Option) (*Server, error) {
	if sender == nil {
		return nil, errors.New("bridge: nil sender")
	}
	s := &Server{
		sender: sender,
		buffer: defaultClientBuffer,
		logger: zap.NewNop(),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		clients: make(map[*client]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.clients)
}

// Broadcast queues n for every client. It never blocks; clients whose queue
// is full miss the message. It can be used as a quantum notifier.
func (s *Server) Broadcast(n quantum.Notification) {
	s.broadcast(Encode(n))
}

func (s *Server) broadcast(msg Outbound) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		select {
		case c.out <- msg:
		default:
			s.logger.Debug("client queue full, message dropped", zap.String("type", msg.Type))
		}
	}
}

// Close disconnects every client and rejects new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[*client]struct{})
	s.mu.Unlock()

	for c := range clients {
		c.close()
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn: conn,
		out:  make(chan Outbound, s.buffer),
		done: make(chan struct{}),
	}
	if !s.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer s.remove(c)

	log := s.logger.With(zap.String("remote", conn.RemoteAddr().String()))
	log.Info("client connected")
	defer log.Info("client disconnected")

	go s.writeLoop(c, log)
	s.readLoop(c, log)
}

func (s *Server) add(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	return true
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	c.close()
}

func (s *Server) readLoop(c *client, log *zap.Logger) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read failed", zap.Error(err))
			}
			return
		}

		ev, err := Decode(msg, s.fallback)
		if err == nil {
			err = s.sender.Send(ev)
		}
		if err != nil {
			log.Debug("message rejected", zap.String("type", msg.Type), zap.Error(err))
			s.reply(c, EncodeError(err))
		}
	}
}

func (s *Server) reply(c *client, msg Outbound) {
	select {
	case c.out <- msg:
	default:
	}
}

func (s *Server) writeLoop(c *client, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug("write failed", zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		}
	}
}
