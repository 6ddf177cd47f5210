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

const UsersCollection = "users"

type UserRepository interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	// UpdatePresence stores status, and lastSeen when it is non-nil
	UpdatePresence(ctx context.Context, id string, status model.UserStatus, lastSeen *time.Time) error
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(con *mongo.Database, logger *zap.Logger) UserRepository {
	return &userRepository{
		mongoRepo: db.NewRepository[model.User](con, UsersCollection),
		logger:    logger,
	}
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var user *model.User
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		user, err = r.mongoRepo.FindByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || errors.Is(err, primitive.ErrInvalidHex) {
			return nil, ErrNotFound
		}
		r.logger.Error("failed to fetch user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) UpdatePresence(ctx context.Context, id string, status model.UserStatus, lastSeen *time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidUserID
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	update := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if lastSeen != nil {
		update["last_seen"] = *lastSeen
	}

	return withRetry(ctx, func(ctx context.Context) error {
		_, err := r.mongoRepo.UpdateByID(ctx, objectID, update)
		return err
	})
}
