package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Trushar30/AURA-Message/internal/db"
	"github.com/Trushar30/AURA-Message/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const MessagesCollection = "messages"

type MessageRepository interface {
	// InsertMessage stores msg and assigns its ID
	InsertMessage(ctx context.Context, msg *model.Message) (string, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	// AppendReceipt adds a receipt for userID to every listed message of the
	// conversation that does not already carry one. Returns how many grew.
	AppendReceipt(ctx context.Context, kind model.ReceiptKind, conversationID primitive.ObjectID, userID string, messageIDs []primitive.ObjectID, at time.Time) (int64, error)
	FilterMessage(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
}

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

func NewMessageRepository(con *mongo.Database, logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: db.NewRepository[model.Message](con, MessagesCollection),
		logger:    logger,
	}
}

func (m *messageRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	return m.mongoRepo.EnsureIndexes(ctx,
		mongo.IndexModel{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}}},
	)
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (string, error) {
	if err := validateMessage(msg); err != nil {
		return "", err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	// assigned up front so a retried insert after a lost ack hits the duplicate key instead of writing twice
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}

	attempts := 0
	err := withRetry(ctx, func(ctx context.Context) error {
		attempts++
		_, err := m.mongoRepo.Create(ctx, *msg)
		if err != nil && attempts > 1 && mongo.IsDuplicateKeyError(err) {
			return nil
		}
		if err != nil {
			m.logger.Warn("insert attempt failed",
				zap.Error(err),
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", maxRetries),
			)
		}
		return err
	})
	if err != nil {
		m.logger.Error("failed to insert message after all retries",
			zap.Error(err),
			zap.String("conversation_id", msg.ConversationID.Hex()),
		)
		return "", fmt.Errorf("insert message failed: %w", err)
	}

	m.logger.Info("message inserted successfully",
		zap.String("message_id", msg.ID.Hex()),
		zap.String("conversation_id", msg.ConversationID.Hex()),
		zap.Int("attempt", attempts),
	)
	return msg.ID.Hex(), nil
}

func (m *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	msg, err := m.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return msg, nil
}

// -----------------------------------------------------------------------------
// AppendReceipt
// -----------------------------------------------------------------------------

func (m *messageRepository) AppendReceipt(ctx context.Context, kind model.ReceiptKind, conversationID primitive.ObjectID, userID string, messageIDs []primitive.ObjectID, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}

	field, entry, err := receiptUpdate(kind, userID, at)
	if err != nil {
		return 0, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	// the $ne guard keeps one entry per user even when two devices race
	filter := db.NewFilter().
		In("_id", messageIDs).
		Eq("conversation_id", conversationID).
		Ne(field+".user_id", userID).
		Build()

	var modified int64
	err = withRetry(ctx, func(ctx context.Context) error {
		result, err := m.mongoRepo.PushMany(ctx, filter, field, entry)
		if err != nil {
			return err
		}
		modified += result.ModifiedCount
		return nil
	})
	if err != nil {
		m.logger.Error("failed to append receipts",
			zap.String("kind", string(kind)),
			zap.String("user_id", userID),
			zap.Int("batch", len(messageIDs)),
			zap.Error(err),
		)
		return modified, fmt.Errorf("append %s receipts: %w", kind, err)
	}

	m.logger.Debug("receipts appended",
		zap.String("kind", string(kind)),
		zap.String("user_id", userID),
		zap.Int("batch", len(messageIDs)),
		zap.Int64("modified", modified),
	)
	return modified, nil
}

func receiptUpdate(kind model.ReceiptKind, userID string, at time.Time) (string, any, error) {
	switch kind {
	case model.ReceiptDelivered:
		return "delivered_to", model.DeliveryReceipt{UserID: userID, DeliveredAt: at}, nil
	case model.ReceiptRead:
		return "read_by", model.ReadReceipt{UserID: userID, ReadAt: at}, nil
	}
	return "", nil, fmt.Errorf("unknown receipt kind %q", kind)
}

// -----------------------------------------------------------------------------
// FilterMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) FilterMessage(ctx context.Context, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if conversationID == "" {
		return nil, ErrInvalidChannelID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().
		ObjectID("conversation_id", conversationID).
		Eq("is_deleted", false).
		Build()

	m.logger.Debug("filtering messages",
		zap.String("conversation_id", conversationID),
		zap.Int64("page", page),
	)

	var result *db.PaginatedResult[model.Message]
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		result, err = m.mongoRepo.FindWithPagination(ctx, filter, db.PaginationParams{
			Page:     page,
			PageSize: historyPageSize,
			SortBy:   "created_at",
			SortDesc: false,
		})
		return err
	})
	if err != nil {
		return nil, m.handleReadError(err, conversationID)
	}
	return result, nil
}

func (m *messageRepository) handleReadError(err error, channelID string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout", zap.String("channel_id", channelID))
		return ErrOperationTimeout
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled", zap.String("channel_id", channelID))
		return err
	}

	m.logger.Error("read failed", zap.Error(err), zap.String("channel_id", channelID))
	return fmt.Errorf("filter messages failed: %w", err)
}

func validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if msg.ConversationID.IsZero() {
		return ErrInvalidChannelID
	}
	if msg.SenderID == "" {
		return ErrInvalidUserID
	}
	return nil
}
