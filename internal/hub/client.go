package hub

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	// tuning parameters
	writeWait          = 10 * time.Second       // time allowed to write a message to the peer
	pongWait           = 20 * time.Second       // time allowed to read the next pong message from the peer
	pingInterval       = (pongWait * 9) / 10    // send pings to peer with this period
	maxMessageSize     = 64 * 1024              // max inbound message size (64KB)
	kickOnFull         = true                   // when true, disconnect client when egress is full
	inboundSendTimeout = 500 * time.Millisecond // timeout for sending to the ingress queue
	closeGrace         = 5 * time.Second        // how long Close waits for the writer before forcing the socket shut
)

// Client is one WebSocket connection of an authenticated user. It runs three
// goroutines: ReadMessages feeds the ingress queue, dispatch drains it in
// order, WriteMessage drains egress and keeps the connection alive.
type Client struct {
	id      string
	user    *model.User
	conn    *websocket.Conn
	manager *Hub
	egress  chan event.WsEvent
	ingress chan event.WsEvent
	limiter *rate.Limiter
	logger  *zap.Logger

	// cancel or stop goroutine
	cancel         context.CancelFunc
	ctx            context.Context
	once           sync.Once
	connClosed     chan struct{}
	connClosedOnce sync.Once
	closed         bool         // tracks if client is closed
	closedMu       sync.RWMutex // protects closed flag and egress close
}

func newClient(user *model.User, conn *websocket.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(h.ctx)
	clientID := uuid.New().String()

	return &Client{
		id:         clientID,
		user:       user,
		conn:       conn,
		manager:    h,
		egress:     make(chan event.WsEvent, h.options.SendBuffer),
		ingress:    make(chan event.WsEvent, h.options.IngressBuffer),
		limiter:    rate.NewLimiter(rate.Limit(h.options.RateLimit), h.options.RateBurst),
		logger:     h.logger.With(zap.String("client_id", clientID), zap.String("user_id", user.UserID())),
		cancel:     cancel,
		ctx:        ctx,
		connClosed: make(chan struct{}),
	}
}

func (c *Client) ID() string        { return c.id }
func (c *Client) UserID() string    { return c.user.UserID() }
func (c *Client) User() *model.User { return c.user }

func (c *Client) ReadMessages() {
	defer func() {
		// the dispatcher finishes what is queued and then runs disconnect cleanup
		close(c.ingress)
		c.Close()
	}()

	c.conn.SetReadLimit(int64(maxMessageSize))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(c.pongHandler)

	for {
		var ev event.WsEvent

		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.logger.Debug("client disconnected")
				return
			}

			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseInternalServerErr,
				websocket.CloseProtocolError,
			) {
				c.logger.Warn("unexpected close", zap.Error(err))
			}

			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				c.logger.Info("client timed out - closing connection")
				return
			}

			if c.IsClosed() {
				return
			}

			// For other errors, log and exit (cleanup will happen in defer)
			c.logger.Debug("error reading from client", zap.Error(err))
			return
		}

		if !c.limiter.Allow() {
			c.Send(errorEvent(CodeRateLimited, "too many events, slow down"))
			continue
		}

		// bounded wait so one stalled dispatcher cannot pin the reader forever
		select {
		case c.ingress <- ev:
			// accepted for processing
		case <-time.After(inboundSendTimeout):
			c.logger.Warn("ingress queue full: dropping client")
			return
		case <-c.ctx.Done():
			return
		}
	}
}

// dispatch handles inbound events one at a time in arrival order. When the
// reader is gone and the queue is drained it runs the disconnect cascade.
func (c *Client) dispatch() {
	defer c.manager.disconnect(c)

	for ev := range c.ingress {
		c.manager.handleEvent(c, ev)
	}
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingInterval)

	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()

		// Safe close of connClosed channel using sync.Once
		c.connClosedOnce.Do(func() {
			close(c.connClosed)
		})
	}()

	for {
		select {
		case ev, ok := <-c.egress:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("ping error", zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) pongHandler(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// Send enqueues ev without blocking. A full buffer means the peer is not
// keeping up; with kickOnFull the client is disconnected.
func (c *Client) Send(ev event.WsEvent) bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		c.manager.metrics.DroppedEvents.Inc()
		return false
	}

	select {
	case c.egress <- ev:
		return true
	default:
		c.manager.metrics.DroppedEvents.Inc()
		c.logger.Warn("egress full", zap.String("event", ev.Event))
		if kickOnFull {
			go c.Close()
		}
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() {
		// Mark as closed BEFORE closing the channel
		c.closedMu.Lock()
		c.closed = true
		close(c.egress)
		c.closedMu.Unlock()

		c.cancel()

		// Wait for WriteMessage to close conn, or force close after timeout
		go func() {
			select {
			case <-c.connClosed:
				// WriteMessage closed it properly
			case <-time.After(closeGrace):
				_ = c.conn.Close()
				c.logger.Warn("safety timeout: force closed connection")
			}
		}()
	})
}

// IsClosed returns true if the client has been closed
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}
