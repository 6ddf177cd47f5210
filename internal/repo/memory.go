package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Trushar30/AURA-Message/internal/db"
	"github.com/Trushar30/AURA-Message/internal/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps users, conversations and messages in process memory.
// It backs local runs with store.driver=memory and the tests. Every read
// returns a copy so callers never share state with the store.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]model.User
	conversations map[string]model.Conversation
	direct        map[string]string
	messages      map[string]model.Message
	order         []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]model.User),
		conversations: make(map[string]model.Conversation),
		direct:        make(map[string]string),
		messages:      make(map[string]model.Message),
	}
}

// PutUser seeds a user, assigning an id when it has none
func (s *MemoryStore) PutUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Status == "" {
		u.Status = model.StatusOffline
	}
	s.users[u.ID.Hex()] = u
	return u
}

// PutConversation seeds a conversation as is
func (s *MemoryStore) PutConversation(c model.Conversation) model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.Participants = append([]model.Participant(nil), c.Participants...)
	s.conversations[c.ID.Hex()] = c
	if c.DirectKey != "" {
		s.direct[c.DirectKey] = c.ID.Hex()
	}
	return c
}

// Messages returns every stored message of a conversation in insertion order
func (s *MemoryStore) Messages(conversationID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Message
	for _, id := range s.order {
		m := s.messages[id]
		if m.ConversationID.Hex() == conversationID {
			out = append(out, copyMessage(m))
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// UserRepository
// -----------------------------------------------------------------------------

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UpdatePresence(_ context.Context, id string, status model.UserStatus, lastSeen *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	if lastSeen != nil {
		u.LastSeen = *lastSeen
	}
	now := time.Now().UTC()
	u.UpdatedAt = &now
	s.users[id] = u
	return nil
}

// -----------------------------------------------------------------------------
// ConversationRepository
// -----------------------------------------------------------------------------

func (s *MemoryStore) FindParticipantConversations(_ context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Conversation
	for _, c := range s.conversations {
		if c.HasParticipant(userID) {
			out = append(out, copyConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (s *MemoryStore) FindForParticipant(_ context.Context, conversationID, userID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, ErrInvalidChannelID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok || !c.HasParticipant(userID) {
		return nil, ErrNotFound
	}
	out := copyConversation(c)
	return &out, nil
}

func (s *MemoryStore) UpdateLastMessage(_ context.Context, conversationID, messageID primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID.Hex()]
	if !ok {
		return ErrNotFound
	}
	c.LastMessage = &messageID
	c.UpdatedAt = at
	s.conversations[conversationID.Hex()] = c
	return nil
}

func (s *MemoryStore) CreateDirect(_ context.Context, userID, recipientID string) (*model.Conversation, bool, error) {
	if userID == "" || recipientID == "" || userID == recipientID {
		return nil, false, ErrInvalidDirect
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := model.DirectKeyFor(userID, recipientID)
	if id, ok := s.direct[key]; ok {
		out := copyConversation(s.conversations[id])
		return &out, false, nil
	}

	now := time.Now().UTC()
	c := model.Conversation{
		ID:   primitive.NewObjectID(),
		Type: model.ConversationDirect,
		Participants: []model.Participant{
			{UserID: userID, Role: model.RoleMember, JoinedAt: now},
			{UserID: recipientID, Role: model.RoleMember, JoinedAt: now},
		},
		DirectKey: key,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.conversations[c.ID.Hex()] = c
	s.direct[key] = c.ID.Hex()

	out := copyConversation(c)
	return &out, true, nil
}

func (s *MemoryStore) CreateGroup(_ context.Context, creatorID, name, description string, participantIDs []string) (*model.Conversation, error) {
	c, err := NewGroupConversation(creatorID, name, description, participantIDs, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.conversations[c.ID.Hex()] = copyConversation(*c)
	s.mu.Unlock()
	return c, nil
}

// -----------------------------------------------------------------------------
// MessageRepository
// -----------------------------------------------------------------------------

func (s *MemoryStore) InsertMessage(_ context.Context, msg *model.Message) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	id := msg.ID.Hex()
	if _, exists := s.messages[id]; !exists {
		s.order = append(s.order, id)
	}
	stored := copyMessage(*msg)
	stored.Sender = nil
	s.messages[id] = stored
	return id, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyMessage(m)
	return &out, nil
}

func (s *MemoryStore) AppendReceipt(_ context.Context, kind model.ReceiptKind, conversationID primitive.ObjectID, userID string, messageIDs []primitive.ObjectID, at time.Time) (int64, error) {
	if _, _, err := receiptUpdate(kind, userID, at); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var modified int64
	for _, id := range messageIDs {
		m, ok := s.messages[id.Hex()]
		if !ok || m.ConversationID != conversationID {
			continue
		}
		if m.AddReceipt(kind, userID, at) {
			s.messages[id.Hex()] = m
			modified++
		}
	}
	return modified, nil
}

func (s *MemoryStore) FilterMessage(_ context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidChannelID
	}
	if page < 1 {
		page = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []model.Message
	for _, id := range s.order {
		m := s.messages[id]
		if m.ConversationID.Hex() == conversationID && !m.IsDeleted {
			all = append(all, m)
		}
	}

	total := int64(len(all))
	start := (page - 1) * historyPageSize
	end := start + historyPageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	data := make([]model.Message, 0, end-start)
	for _, m := range all[start:end] {
		data = append(data, copyMessage(m))
	}

	return &db.PaginatedResult[model.Message]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   historyPageSize,
		TotalPages: db.TotalPages(total, historyPageSize),
	}, nil
}

func copyConversation(c model.Conversation) model.Conversation {
	c.Participants = append([]model.Participant(nil), c.Participants...)
	return c
}

func copyMessage(m model.Message) model.Message {
	m.DeliveredTo = append([]model.DeliveryReceipt(nil), m.DeliveredTo...)
	m.ReadBy = append([]model.ReadReceipt(nil), m.ReadBy...)
	return m
}
