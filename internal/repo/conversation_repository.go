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
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const ConversationsCollection = "conversations"

type ConversationRepository interface {
	// FindParticipantConversations lists every conversation the user takes part in
	FindParticipantConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	// FindForParticipant returns ErrNotFound when the conversation is missing or userID is not in it
	FindForParticipant(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	UpdateLastMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, at time.Time) error
	// CreateDirect returns the existing direct conversation for the pair when there is one
	CreateDirect(ctx context.Context, userID, recipientID string) (*model.Conversation, bool, error)
	CreateGroup(ctx context.Context, creatorID, name, description string, participantIDs []string) (*model.Conversation, error)
}

type conversationRepository struct {
	mongoRepo *db.Repository[model.Conversation]
	logger    *zap.Logger
}

func NewConversationRepository(con *mongo.Database, logger *zap.Logger) ConversationRepository {
	return &conversationRepository{
		mongoRepo: db.NewRepository[model.Conversation](con, ConversationsCollection),
		logger:    logger,
	}
}

// EnsureIndexes creates the participant lookup index and the unique direct-pair index
func (r *conversationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	return r.mongoRepo.EnsureIndexes(ctx,
		mongo.IndexModel{Keys: bson.D{{Key: "participants.user_id", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		mongo.IndexModel{
			Keys: bson.D{{Key: "direct_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"direct_key": bson.M{"$exists": true}}),
		},
	)
}

func (r *conversationRepository) FindParticipantConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("participants.user_id", userID).Build()

	var conversations []model.Conversation
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		conversations, err = r.mongoRepo.FindAll(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1, "type": 1, "participants": 1}))
		return err
	})
	if err != nil {
		r.logger.Error("failed to query participant conversations",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("find participant conversations: %w", err)
	}

	r.logger.Debug("participant conversations retrieved",
		zap.String("user_id", userID),
		zap.Int("count", len(conversations)),
	)
	return conversations, nil
}

func (r *conversationRepository) FindForParticipant(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	if conversationID == "" {
		return nil, ErrInvalidChannelID
	}
	objectID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().Eq("_id", objectID).Eq("participants.user_id", userID).Build()

	var conversation *model.Conversation
	err = withRetry(ctx, func(ctx context.Context) error {
		var err error
		conversation, err = r.mongoRepo.FindOne(ctx, filter)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to fetch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}

	return conversation, nil
}

func (r *conversationRepository) UpdateLastMessage(ctx context.Context, conversationID, messageID primitive.ObjectID, at time.Time) error {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	err := withRetry(ctx, func(ctx context.Context) error {
		_, err := r.mongoRepo.UpdateByID(ctx, conversationID, bson.M{
			"last_message": messageID,
			"updated_at":   at,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("update last message: %w", err)
	}
	return nil
}

func (r *conversationRepository) CreateDirect(ctx context.Context, userID, recipientID string) (*model.Conversation, bool, error) {
	if userID == "" || recipientID == "" || userID == recipientID {
		return nil, false, ErrInvalidDirect
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	key := model.DirectKeyFor(userID, recipientID)
	if existing, err := r.findDirect(ctx, key); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	conversation := model.Conversation{
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

	if _, err := r.mongoRepo.Create(ctx, conversation); err != nil {
		// lost a race with the other participant; the unique index kept one document
		if mongo.IsDuplicateKeyError(err) {
			existing, findErr := r.findDirect(ctx, key)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		r.logger.Error("failed to create direct conversation",
			zap.String("direct_key", key),
			zap.Error(err),
		)
		return nil, false, fmt.Errorf("create direct conversation: %w", err)
	}

	r.logger.Info("direct conversation created",
		zap.String("conversation_id", conversation.ID.Hex()),
		zap.String("direct_key", key),
	)
	return &conversation, true, nil
}

func (r *conversationRepository) findDirect(ctx context.Context, key string) (*model.Conversation, error) {
	filter := db.NewFilter().Eq("type", model.ConversationDirect).Eq("direct_key", key).Build()

	conversation, err := r.mongoRepo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find direct conversation: %w", err)
	}
	return conversation, nil
}

func (r *conversationRepository) CreateGroup(ctx context.Context, creatorID, name, description string, participantIDs []string) (*model.Conversation, error) {
	conversation, err := NewGroupConversation(creatorID, name, description, participantIDs, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if _, err := r.mongoRepo.Create(ctx, *conversation); err != nil {
		r.logger.Error("failed to create group conversation", zap.Error(err))
		return nil, fmt.Errorf("create group conversation: %w", err)
	}
	return conversation, nil
}

// NewGroupConversation builds a group with the creator as its only admin.
// Duplicate and empty participant ids are dropped.
func NewGroupConversation(creatorID, name, description string, participantIDs []string, now time.Time) (*model.Conversation, error) {
	if creatorID == "" {
		return nil, ErrInvalidUserID
	}
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	seen := map[string]struct{}{creatorID: {}}
	participants := []model.Participant{{UserID: creatorID, Role: model.RoleAdmin, JoinedAt: now}}
	for _, id := range participantIDs {
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, model.Participant{UserID: id, Role: model.RoleMember, JoinedAt: now})
	}

	return &model.Conversation{
		ID:           primitive.NewObjectID(),
		Type:         model.ConversationGroup,
		Name:         name,
		Description:  description,
		Participants: participants,
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
