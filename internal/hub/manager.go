package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Trushar30/AURA-Message/internal/auth"
	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Authenticator maps a handshake credential to a user
type Authenticator interface {
	Verify(ctx context.Context, credential string) (*model.User, error)
}

// Options tunes the gateway. Zero fields take the defaults below.
type Options struct {
	AllowedOrigins []string
	SendBuffer     int
	IngressBuffer  int
	RateLimit      float64 // inbound events per second per connection
	RateBurst      int
	StopTimeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.IngressBuffer <= 0 {
		o.IngressBuffer = 64
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 40
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = 10 * time.Second
	}
	return o
}

// Dependencies are the collaborators the gateway is built from
type Dependencies struct {
	Verifier      Authenticator
	Conversations repo.ConversationRepository
	Messages      repo.MessageRepository
	Statuses      StatusStore
	Publisher     MessagePublisher
	Metrics       *Metrics
	Logger        *zap.Logger
}

// Hub is the connection gateway. It authenticates handshakes, admits
// connections into the presence registry and their rooms, routes inbound
// events to the engines and runs the cleanup cascade on disconnect.
type Hub struct {
	verifier      Authenticator
	conversations repo.ConversationRepository

	presence *Presence
	rooms    *Rooms
	typing   *Typing
	receipts *Receipts
	fanout   *Fanout

	metrics  *Metrics
	logger   *zap.Logger
	options  Options
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[string]*Client
	stopping  bool

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(deps Dependencies, opts Options) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	opts = opts.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	rooms := NewRooms()
	presence := NewPresence(deps.Statuses, logger.Named("presence"))

	h := &Hub{
		verifier:      deps.Verifier,
		conversations: deps.Conversations,
		presence:      presence,
		rooms:         rooms,
		typing:        NewTyping(rooms),
		receipts:      NewReceipts(deps.Conversations, deps.Messages, rooms, logger.Named("receipts")),
		fanout:        NewFanout(deps.Conversations, deps.Messages, presence, rooms, deps.Publisher, metrics, logger.Named("fanout")),
		metrics:       metrics,
		logger:        logger,
		options:       opts,
		clients:       make(map[string]*Client),
		ctx:           ctx,
		cancel:        cancel,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) Presence() *Presence { return h.presence }
func (h *Hub) Rooms() *Rooms       { return h.rooms }
func (h *Hub) Typing() *Typing     { return h.typing }

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// non-browser clients do not send one
		return true
	}

	for _, allowed := range h.options.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ServeWS verifies the credential before upgrading. A rejected handshake
// answers 401 and leaves no state behind.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if h.ctx.Err() != nil {
		writeJSONError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}

	user, err := h.verifier.Verify(r.Context(), auth.ExtractToken(r))
	if err != nil {
		if reason := auth.Reason(err); reason != "" {
			h.metrics.AuthFailures.WithLabelValues(reason).Inc()
			h.logger.Debug("handshake rejected", zap.String("reason", reason), zap.String("remote", r.RemoteAddr))
			writeJSONError(w, http.StatusUnauthorized, reason)
			return
		}
		h.logger.Error("handshake verification failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "verification unavailable")
		return
	}

	conversations, err := h.conversations.FindParticipantConversations(r.Context(), user.UserID())
	if err != nil {
		h.logger.Error("failed to load conversations for admission",
			zap.String("user_id", user.UserID()),
			zap.Error(err),
		)
		writeJSONError(w, http.StatusInternalServerError, "could not load conversations")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	h.admit(newClient(user, conn, h), conversations)
}

// admit joins the client to its conversation rooms, marks it present and
// starts its goroutines
func (h *Hub) admit(c *Client, conversations []model.Conversation) {
	h.clientsMu.Lock()
	if h.stopping {
		h.clientsMu.Unlock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
		return
	}
	h.clients[c.ID()] = c
	h.wg.Add(1)
	h.clientsMu.Unlock()

	for _, conversation := range conversations {
		h.rooms.Join(c, conversation.ID.Hex())
	}
	h.presence.AddHandle(c)
	h.metrics.Connections.Inc()

	go c.WriteMessage()
	go c.dispatch()
	go c.ReadMessages()

	c.logger.Info("client admitted", zap.Int("rooms", len(conversations)))
}

// disconnect runs on the dispatcher once no more events of c can arrive.
// Typing facts go first so the stops still reach the rooms.
func (h *Hub) disconnect(c *Client) {
	defer h.wg.Done()

	c.Close()
	h.typing.ClearAll(c)
	h.rooms.LeaveAll(c)
	h.presence.RemoveHandle(c)
	h.metrics.Connections.Dec()

	h.clientsMu.Lock()
	delete(h.clients, c.ID())
	h.clientsMu.Unlock()

	c.logger.Info("client removed")
}

func (h *Hub) handleEvent(c *Client, ev event.WsEvent) {
	label := ev.Event
	if !event.Inbound(label) {
		label = "unknown"
	}
	h.metrics.Events.WithLabelValues(label).Inc()

	ctx := h.ctx
	var err error

	switch ev.Event {
	case event.ConversationJoin:
		err = h.join(ctx, c, ev.Payload)
	case event.ConversationLeave:
		err = h.leave(c, ev.Payload)
	case event.MessageSend:
		var p event.SendPayload
		if p, err = event.DecodeSend(ev.Payload); err == nil {
			_, err = h.fanout.Send(ctx, c, p)
		}
	case event.TypingStart:
		var ref event.ConversationRef
		if ref, err = event.DecodeConversationRef(ev.Payload); err == nil {
			err = h.typing.Start(c, ref.ConversationID)
		}
	case event.TypingStop:
		var ref event.ConversationRef
		if ref, err = event.DecodeConversationRef(ev.Payload); err == nil {
			h.typing.Stop(c, ref.ConversationID)
		}
	case event.MessageRead:
		var p event.ReceiptPayload
		if p, err = event.DecodeReceipt(ev.Payload); err == nil {
			_, err = h.receipts.MarkRead(ctx, c, p)
		}
	case event.MessageDelivered:
		var p event.ReceiptPayload
		if p, err = event.DecodeReceipt(ev.Payload); err == nil {
			_, err = h.receipts.MarkDelivered(ctx, c, p)
		}
	case event.StatusChange:
		var p event.StatusPayload
		if p, err = event.DecodeStatus(ev.Payload); err == nil {
			err = h.presence.SetStatus(c, p.Status)
		}
	default:
		c.Send(errorEvent(CodeUnknownEvent, "unknown event "+ev.Event))
		return
	}

	if err != nil {
		c.logger.Debug("event failed", zap.String("event", ev.Event), zap.Error(err))
		sendError(c, err)
	}
}

func (h *Hub) join(ctx context.Context, c *Client, payload json.RawMessage) error {
	ref, err := event.DecodeConversationRef(payload)
	if err != nil {
		return err
	}

	conversation, err := h.conversations.FindForParticipant(ctx, ref.ConversationID, c.UserID())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &DeliveryError{Code: CodeNotParticipant, Err: errNotParticipant}
		}
		return &DeliveryError{Code: CodePersistenceFailed, Err: err}
	}

	conversationID := conversation.ID.Hex()
	h.rooms.Join(c, conversationID)
	c.Send(event.New(event.ConversationJoined, event.ConversationRef{ConversationID: conversationID}))
	return nil
}

func (h *Hub) leave(c *Client, payload json.RawMessage) error {
	ref, err := event.DecodeConversationRef(payload)
	if err != nil {
		return err
	}

	h.typing.Stop(c, ref.ConversationID)
	h.rooms.Leave(c, ref.ConversationID)
	c.Send(event.New(event.ConversationLeft, ref))
	return nil
}

// ConnectionCount returns the number of admitted connections
func (h *Hub) ConnectionCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshotClients() []*Client {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

// Stop refuses new connections, closes every client and waits for their
// cleanup before flushing presence writes
func (h *Hub) Stop() {
	h.clientsMu.Lock()
	h.stopping = true
	h.clientsMu.Unlock()

	h.cancel()

	// Close all client connections
	for _, c := range h.snapshotClients() {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(h.options.StopTimeout):
		h.logger.Warn("timed out waiting for clients to disconnect")
	}

	h.presence.Close()
}

func writeJSONError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
