package service

import (
	"context"
	"errors"

	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"go.uber.org/zap"
)

// PresenceReader is the read side of the live presence registry
type PresenceReader interface {
	Status(userID string) (model.Presence, bool)
	OnlineUsers() []model.Presence
}

type UserService interface {
	// GetUser loads the profile with its live status
	GetUser(ctx context.Context, id string) (*model.User, error)
	// OnlineUsers lists connected users, optionally only those with status
	OnlineUsers(status model.UserStatus) []model.Presence
	UserPresence(ctx context.Context, id string) (model.Presence, error)
}

type userService struct {
	repo     repo.UserRepository
	presence PresenceReader
	logger   *zap.Logger
}

func NewUserService(repo repo.UserRepository, presence PresenceReader, logger *zap.Logger) UserService {
	return &userService{
		repo:     repo,
		presence: presence,
		logger:   logger,
	}
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if live, ok := s.presence.Status(id); ok {
		user.Status = live.Status
		user.LastSeen = live.LastSeen
	}
	return user, nil
}

func (s *userService) OnlineUsers(status model.UserStatus) []model.Presence {
	online := s.presence.OnlineUsers()
	if status == "" {
		return online
	}
	return Filter(online, func(p model.Presence) bool { return p.Status == status })
}

// UserPresence prefers the live registry and falls back to the stored
// document. A stored non-offline status without a live connection is
// reported offline, since it is left over from an unclean shutdown.
func (s *userService) UserPresence(ctx context.Context, id string) (model.Presence, error) {
	if live, ok := s.presence.Status(id); ok {
		return live, nil
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.logger.Error("failed to load user presence", zap.String("user_id", id), zap.Error(err))
		}
		return model.Presence{}, err
	}
	return model.Presence{
		UserID:   id,
		Status:   model.StatusOffline,
		LastSeen: user.LastSeen,
	}, nil
}
