package session

import (
	"log/slog"
	"roomchat/contract"
	"roomchat/errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ConnConfig bounds the time and memory one connection may use.
type ConnConfig struct {
	SendBufferSize int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

// Conn is one WebSocket connection. Reads happen on the session goroutine;
// writes are serialized through a bounded queue drained by writePump.
type Conn struct {
	id   string
	ws   *websocket.Conn
	cfg  ConnConfig
	log  *slog.Logger
	send chan []byte

	mu          sync.Mutex
	closed      bool
	closeCode   int
	closeReason string

	// done is closed once the socket has been released.
	done chan struct{}
}

var _ contract.Peer = (*Conn)(nil)

// NewConn wraps an upgraded socket and starts its write pump.
func NewConn(ws *websocket.Conn, cfg ConnConfig, log *slog.Logger) *Conn {
	c := &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		cfg:  cfg,
		log:  log,
		send: make(chan []byte, cfg.SendBufferSize),
		done: make(chan struct{}),
	}
	ws.SetReadLimit(cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})
	go c.writePump()
	return c
}

func (c *Conn) ID() string { return c.id }

// Send queues payload without blocking. A full queue means a slow consumer.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.ErrConnectionClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errors.ErrSendBufferFull
	}
}

// Close stops accepting frames. The write pump flushes what is queued, sends
// a close frame with code and releases the socket. Later calls are no-ops.
func (c *Conn) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

// Done is closed when the underlying socket has been released.
func (c *Conn) Done() <-chan struct{} { return c.done }

// ReadMessage blocks until the next text or binary frame arrives.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Abort releases the socket without a close handshake, unblocking a pending read.
func (c *Conn) Abort() {
	_ = c.ws.Close()
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.done)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.writeClose()
				return
			}
			if err := c.write(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "peer", c.id, "error", err)
				c.markBroken()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "peer", c.id, "error", err)
				c.markBroken()
				return
			}
		}
	}
}

func (c *Conn) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}

func (c *Conn) writeClose() {
	c.mu.Lock()
	code, reason := c.closeCode, c.closeReason
	c.mu.Unlock()

	message := websocket.FormatCloseMessage(code, reason)
	if err := c.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(c.cfg.WriteWait)); err != nil {
		// The peer may already be gone, nothing left to tell it.
		c.log.Debug("Close frame not sent", "peer", c.id, "code", code, "error", err)
	}
}

// markBroken refuses further sends once the socket cannot be written.
func (c *Conn) markBroken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
