package hub

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"go.uber.org/zap"
)

// StatusStore persists the presence fields of a user document
type StatusStore interface {
	UpdatePresence(ctx context.Context, id string, status model.UserStatus, lastSeen *time.Time) error
}

type presenceEntry struct {
	handles  map[string]Conn
	status   model.UserStatus
	lastSeen time.Time
}

type statusWrite struct {
	userID   string
	status   model.UserStatus
	lastSeen *time.Time
}

// Presence tracks which users have at least one live connection.
// One mutex covers both the transition decision and its broadcast, so
// observers see online/offline events in the order they were decided.
// Store writes never run under that mutex: the latest write per user is
// parked in pending and a single writer goroutine drains it.
type Presence struct {
	mu     sync.Mutex
	users  map[string]*presenceEntry // users with at least one handle
	closed bool

	store        StatusStore
	pending      map[string]statusWrite
	pendingOrder []string
	kick         chan struct{}
	stop         chan struct{}
	writerDone   chan struct{}
	writeTimeout time.Duration
	closeOnce    sync.Once

	logger *zap.Logger
	now    func() time.Time
}

func NewPresence(store StatusStore, logger *zap.Logger) *Presence {
	p := &Presence{
		users:        make(map[string]*presenceEntry),
		store:        store,
		pending:      make(map[string]statusWrite),
		kick:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
		writerDone:   make(chan struct{}),
		writeTimeout: 5 * time.Second,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	go p.runWriter()
	return p
}

// AddHandle registers c and reports whether it made the user come online
func (p *Presence) AddHandle(c Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry := p.entry(c.UserID())
	if _, exists := entry.handles[c.ID()]; exists {
		return false
	}
	entry.handles[c.ID()] = c
	if len(entry.handles) > 1 {
		return false
	}

	entry.status = model.StatusOnline
	entry.lastSeen = p.now()
	p.persist(c.UserID(), entry.status, &entry.lastSeen)

	p.broadcastLocked(event.New(event.UserOnline, event.PresenceEvent{
		UserID: c.UserID(),
		Status: entry.status,
	}), c.ID())

	p.logger.Info("user online", zap.String("user_id", c.UserID()), zap.String("client_id", c.ID()))
	return true
}

// RemoveHandle drops c and reports whether the user went offline. Removing the
// last handle is the only way a user goes offline.
func (p *Presence) RemoveHandle(c Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[c.UserID()]
	if !ok {
		return false
	}
	if _, exists := entry.handles[c.ID()]; !exists {
		return false
	}
	delete(entry.handles, c.ID())
	if len(entry.handles) > 0 {
		return false
	}

	delete(p.users, c.UserID())
	entry.status = model.StatusOffline
	entry.lastSeen = p.now()
	p.persist(c.UserID(), entry.status, &entry.lastSeen)

	lastSeen := entry.lastSeen.UnixMilli()
	p.broadcastLocked(event.New(event.UserOffline, event.PresenceEvent{
		UserID:   c.UserID(),
		LastSeen: &lastSeen,
	}), c.ID())

	p.logger.Info("user offline", zap.String("user_id", c.UserID()), zap.String("client_id", c.ID()))
	return true
}

// SetStatus applies an explicit status chosen by the user behind c. The handle
// set is untouched and offline cannot be chosen.
func (p *Presence) SetStatus(c Conn, status model.UserStatus) error {
	if !status.Selectable() {
		return &DeliveryError{Code: CodeInvalidPayload, Err: errInvalidStatus}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[c.UserID()]
	if !ok || len(entry.handles) == 0 {
		return nil
	}

	entry.status = status
	p.persist(c.UserID(), status, nil)

	p.broadcastLocked(event.New(event.UserStatus, event.PresenceEvent{
		UserID: c.UserID(),
		Status: status,
	}), c.ID())
	return nil
}

func (p *Presence) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.users[userID]
	return ok && len(entry.handles) > 0
}

// Status returns the live presence of a connected user. A user who went
// offline is reported until the store has their last seen time.
func (p *Presence) Status(userID string) (model.Presence, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if entry, ok := p.users[userID]; ok {
		return snapshot(userID, entry), true
	}
	if w, ok := p.pending[userID]; ok && w.status == model.StatusOffline && w.lastSeen != nil {
		return model.Presence{UserID: userID, Status: model.StatusOffline, LastSeen: *w.lastSeen}, true
	}
	return model.Presence{}, false
}

// OnlineUsers lists every user with a live connection, ordered by id
func (p *Presence) OnlineUsers() []model.Presence {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.Presence, 0, len(p.users))
	for id, entry := range p.users {
		if len(entry.handles) > 0 {
			out = append(out, snapshot(id, entry))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Connections returns the live handles of the given users
func (p *Presence) Connections(userIDs ...string) []Conn {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Conn
	for _, id := range userIDs {
		entry, ok := p.users[id]
		if !ok {
			continue
		}
		for _, c := range entry.handles {
			out = append(out, c)
		}
	}
	return out
}

// Close stops the store writer after flushing pending writes
func (p *Presence) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.stop)
		p.mu.Unlock()
	})
	<-p.writerDone
}

func (p *Presence) entry(userID string) *presenceEntry {
	entry, ok := p.users[userID]
	if !ok {
		entry = &presenceEntry{handles: make(map[string]Conn), status: model.StatusOffline}
		p.users[userID] = entry
	}
	return entry
}

func (p *Presence) broadcastLocked(ev event.WsEvent, except string) {
	for _, entry := range p.users {
		for id, c := range entry.handles {
			if id == except || c.IsClosed() {
				continue
			}
			c.Send(ev)
		}
	}
}

// persist must be called with p.mu held. It only parks the write; a newer
// write for the same user replaces the older one but keeps its last seen.
func (p *Presence) persist(userID string, status model.UserStatus, lastSeen *time.Time) {
	if p.closed || p.store == nil {
		return
	}

	w := statusWrite{userID: userID, status: status}
	if lastSeen != nil {
		t := *lastSeen
		w.lastSeen = &t
	}
	if prev, ok := p.pending[userID]; ok {
		if w.lastSeen == nil {
			w.lastSeen = prev.lastSeen
		}
	} else {
		p.pendingOrder = append(p.pendingOrder, userID)
	}
	p.pending[userID] = w

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Presence) takePending() []statusWrite {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch := make([]statusWrite, 0, len(p.pendingOrder))
	for _, id := range p.pendingOrder {
		batch = append(batch, p.pending[id])
		delete(p.pending, id)
	}
	p.pendingOrder = p.pendingOrder[:0]
	return batch
}

func (p *Presence) runWriter() {
	defer close(p.writerDone)

	for {
		select {
		case <-p.kick:
			p.flush()
		case <-p.stop:
			p.flush()
			return
		}
	}
}

func (p *Presence) flush() {
	for _, w := range p.takePending() {
		ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		err := p.store.UpdatePresence(ctx, w.userID, w.status, w.lastSeen)
		cancel()
		if err != nil {
			p.logger.Warn("failed to persist presence",
				zap.String("user_id", w.userID),
				zap.String("status", string(w.status)),
				zap.Error(err),
			)
		}
	}
}

func snapshot(userID string, entry *presenceEntry) model.Presence {
	return model.Presence{
		UserID:      userID,
		Status:      entry.status,
		LastSeen:    entry.lastSeen,
		Online:      len(entry.handles) > 0,
		Connections: len(entry.handles),
	}
}
