package hub

import (
	"context"
	"errors"
	"time"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Receipts records delivered/read state and tells the room about it
type Receipts struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	rooms         *Rooms
	logger        *zap.Logger
	now           func() time.Time
}

func NewReceipts(conversations repo.ConversationRepository, messages repo.MessageRepository, rooms *Rooms, logger *zap.Logger) *Receipts {
	return &Receipts{
		conversations: conversations,
		messages:      messages,
		rooms:         rooms,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (r *Receipts) MarkDelivered(ctx context.Context, c Conn, p event.ReceiptPayload) ([]string, error) {
	return r.mark(ctx, c, model.ReceiptDelivered, p)
}

func (r *Receipts) MarkRead(ctx context.Context, c Conn, p event.ReceiptPayload) ([]string, error) {
	return r.mark(ctx, c, model.ReceiptRead, p)
}

// mark appends a receipt for the acting user on every listed message that
// lacks one, then sends a single coalesced event to the rest of the room.
// It returns the ids that were accepted for the batch.
func (r *Receipts) mark(ctx context.Context, c Conn, kind model.ReceiptKind, p event.ReceiptPayload) ([]string, error) {
	ids, objectIDs := filterMessageIDs(p.MessageIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	conversation, err := r.conversations.FindForParticipant(ctx, p.ConversationID, c.UserID())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &ReceiptError{Code: CodeNotParticipant, Err: errNotParticipant}
		}
		return nil, &ReceiptError{Code: CodePersistenceFailed, Err: err}
	}

	modified, err := r.messages.AppendReceipt(ctx, kind, conversation.ID, c.UserID(), objectIDs, r.now())
	if err != nil {
		r.logger.Error("failed to record receipts",
			zap.String("kind", string(kind)),
			zap.String("user_id", c.UserID()),
			zap.String("conversation_id", p.ConversationID),
			zap.Error(err),
		)
		return nil, &ReceiptError{Code: CodePersistenceFailed, Err: err}
	}

	conversationID := conversation.ID.Hex()
	name := event.MessageDelivered
	if kind == model.ReceiptRead {
		name = event.MessageRead
	}
	r.rooms.Broadcast(conversationID, event.New(name, event.ReceiptEvent{
		UserID:         c.UserID(),
		ConversationID: conversationID,
		MessageIDs:     ids,
	}), c.ID())

	r.logger.Debug("receipts recorded",
		zap.String("kind", string(kind)),
		zap.String("user_id", c.UserID()),
		zap.Int("batch", len(ids)),
		zap.Int64("modified", modified),
	)
	return ids, nil
}

// filterMessageIDs drops malformed and repeated ids, keeping request order
func filterMessageIDs(raw []string) ([]string, []primitive.ObjectID) {
	seen := make(map[primitive.ObjectID]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	objectIDs := make([]primitive.ObjectID, 0, len(raw))
	for _, id := range raw {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		if _, dup := seen[objectID]; dup {
			continue
		}
		seen[objectID] = struct{}{}
		ids = append(ids, objectID.Hex())
		objectIDs = append(objectIDs, objectID)
	}
	return ids, objectIDs
}
