package repo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Store groups the three repositories the realtime core depends on
type Store struct {
	Conversations ConversationRepository
	Messages      MessageRepository
	Users         UserRepository
}

// NewMongoStore wires the Mongo repositories and makes sure their indexes exist
func NewMongoStore(ctx context.Context, con *mongo.Database, logger *zap.Logger) (*Store, error) {
	conversations := NewConversationRepository(con, logger).(*conversationRepository)
	messages := NewMessageRepository(con, logger).(*messageRepository)

	if err := conversations.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("conversation indexes: %w", err)
	}
	if err := messages.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("message indexes: %w", err)
	}

	return &Store{
		Conversations: conversations,
		Messages:      messages,
		Users:         NewUserRepository(con, logger),
	}, nil
}

// NewMemoryBackedStore exposes one MemoryStore through all three interfaces
func NewMemoryBackedStore(mem *MemoryStore) *Store {
	return &Store{
		Conversations: mem,
		Messages:      mem,
		Users:         mem,
	}
}
