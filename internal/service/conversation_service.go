package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Trushar30/AURA-Message/internal/db"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"go.uber.org/zap"
)

var (
	ErrUnknownRecipient = errors.New("recipient does not exist")
	ErrNotParticipant   = errors.New("not a participant of this conversation")
)

type ConversationService interface {
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	// StartDirect finds or creates the direct conversation with recipientID
	StartDirect(ctx context.Context, userID, recipientID string) (*model.Conversation, bool, error)
	CreateGroup(ctx context.Context, userID, name, description string, participantIDs []string) (*model.Conversation, error)
	GetRoomMessages(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error)
}

type conversationService struct {
	conversations repo.ConversationRepository
	messages      repo.MessageRepository
	users         repo.UserRepository
	logger        *zap.Logger
}

func NewConversationService(conversations repo.ConversationRepository, messages repo.MessageRepository, users repo.UserRepository, logger *zap.Logger) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		logger:        logger,
	}
}

func (s *conversationService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	return s.conversations.FindParticipantConversations(ctx, userID)
}

func (s *conversationService) StartDirect(ctx context.Context, userID, recipientID string) (*model.Conversation, bool, error) {
	if err := s.requireUser(ctx, recipientID); err != nil {
		return nil, false, err
	}

	conversation, created, err := s.conversations.CreateDirect(ctx, userID, recipientID)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.logger.Info("direct conversation started",
			zap.String("conversation_id", conversation.ID.Hex()),
			zap.String("user_id", userID),
		)
	}
	return conversation, created, nil
}

func (s *conversationService) CreateGroup(ctx context.Context, userID, name, description string, participantIDs []string) (*model.Conversation, error) {
	others := Filter(participantIDs, func(id string) bool { return id != "" && id != userID })
	for _, id := range others {
		if err := s.requireUser(ctx, id); err != nil {
			return nil, fmt.Errorf("participant %s: %w", id, err)
		}
	}
	return s.conversations.CreateGroup(ctx, userID, name, description, others)
}

func (s *conversationService) GetRoomMessages(ctx context.Context, userID, conversationID string, page int64) (*db.PaginatedResult[model.Message], error) {
	if _, err := s.conversations.FindForParticipant(ctx, conversationID, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotParticipant
		}
		return nil, err
	}
	return s.messages.FilterMessage(ctx, conversationID, page)
}

func (s *conversationService) requireUser(ctx context.Context, id string) error {
	if _, err := s.users.GetUser(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUnknownRecipient
		}
		return err
	}
	return nil
}
