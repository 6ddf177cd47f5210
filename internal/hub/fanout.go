package hub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MessagePublisher forwards persisted messages to downstream consumers
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg *model.Message) error
}

type nopPublisher struct{}

func (nopPublisher) PublishMessage(context.Context, *model.Message) error { return nil }

// Fanout persists outgoing messages and delivers them to every live
// connection of the conversation
type Fanout struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	presence      *Presence
	rooms         *Rooms
	publisher     MessagePublisher
	metrics       *Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func NewFanout(conversations repo.ConversationRepository, messages repo.MessageRepository, presence *Presence, rooms *Rooms, publisher MessagePublisher, metrics *Metrics, logger *zap.Logger) *Fanout {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Fanout{
		conversations: conversations,
		messages:      messages,
		presence:      presence,
		rooms:         rooms,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Send stores the message with the sender already in both receipt sets,
// then pushes message:new to everyone else and acks the origin. Nothing is
// broadcast unless the message is durable.
func (f *Fanout) Send(ctx context.Context, c Conn, p event.SendPayload) (*model.Message, error) {
	var replyTo *primitive.ObjectID
	if p.ReplyTo != "" {
		id, err := primitive.ObjectIDFromHex(p.ReplyTo)
		if err != nil {
			return nil, &DeliveryError{Code: CodeInvalidPayload, Err: fmt.Errorf("%w: replyTo is not a message id", event.ErrInvalidPayload)}
		}
		replyTo = &id
	}

	conversation, err := f.conversations.FindForParticipant(ctx, p.ConversationID, c.UserID())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &DeliveryError{Code: CodeNotParticipant, Err: errNotParticipant}
		}
		return nil, &DeliveryError{Code: CodePersistenceFailed, Err: err}
	}

	now := f.now()
	msg := model.NewOutgoingMessage(conversation.ID, c.UserID(), p.Content, p.Type, replyTo, now)
	if _, err := f.messages.InsertMessage(ctx, msg); err != nil {
		f.logger.Error("failed to persist message",
			zap.String("conversation_id", p.ConversationID),
			zap.String("sender_id", c.UserID()),
			zap.Error(err),
		)
		return nil, &DeliveryError{Code: CodePersistenceFailed, Err: err}
	}

	// the message is already durable, a stale conversation pointer is not worth failing the send
	if err := f.conversations.UpdateLastMessage(ctx, conversation.ID, msg.ID, now); err != nil {
		f.logger.Warn("failed to update last message",
			zap.String("conversation_id", p.ConversationID),
			zap.String("message_id", msg.ID.Hex()),
			zap.Error(err),
		)
	}

	msg.Sender = c.User().AsSender()

	conversationID := conversation.ID.Hex()
	recipients := f.recipients(conversation, c.ID())
	delivered := sendAll(recipients, event.New(event.MessageNew, event.NewMessageEvent{
		Message:        msg,
		ConversationID: conversationID,
	}), c.ID())

	c.Send(event.New(event.MessageSent, event.SentEvent{
		MessageID:      msg.ID.Hex(),
		ConversationID: conversationID,
	}))

	f.metrics.MessagesSent.Inc()
	if err := f.publisher.PublishMessage(ctx, msg); err != nil {
		f.logger.Warn("failed to publish message event", zap.String("message_id", msg.ID.Hex()), zap.Error(err))
	}

	f.logger.Debug("message fanned out",
		zap.String("message_id", msg.ID.Hex()),
		zap.String("conversation_id", conversationID),
		zap.Int("recipients", delivered),
	)
	return msg, nil
}

// recipients is the union of the room members and the live connections of
// every participant, without the originating handle
func (f *Fanout) recipients(conversation *model.Conversation, origin string) []Conn {
	seen := map[string]struct{}{origin: {}}
	var out []Conn

	add := func(conns []Conn) {
		for _, c := range conns {
			if _, dup := seen[c.ID()]; dup {
				continue
			}
			seen[c.ID()] = struct{}{}
			out = append(out, c)
		}
	}

	add(f.rooms.MembersOf(conversation.ID.Hex()))
	add(f.presence.Connections(conversation.ParticipantIDs()...))
	return out
}
