package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StatusStore is the authoritative presence writer the mirror decorates
type StatusStore interface {
	UpdatePresence(ctx context.Context, id string, status model.UserStatus, lastSeen *time.Time) error
}

// PresenceMirror copies every presence write into Redis and publishes it on
// a channel so other services can follow status changes. The wrapped store
// stays authoritative; Redis failures are logged and never fail the write.
//
// Keys used:
//   - <prefix>:presence:<userId> -> hash {status, last_seen}
//   - <prefix>:presence (channel) -> JSON {userId, status, last_seen}
type PresenceMirror struct {
	next   StatusStore
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

func NewPresenceMirror(next StatusStore, client redis.UniversalClient, prefix string, logger *zap.Logger) *PresenceMirror {
	return &PresenceMirror{next: next, client: client, prefix: prefix, logger: logger}
}

// Record is the mirrored presence of one user
type Record struct {
	UserID   string           `json:"userId"`
	Status   model.UserStatus `json:"status"`
	LastSeen int64            `json:"last_seen,omitempty"` // unix millis
}

func PresenceKey(prefix, userID string) string { return fmt.Sprintf("%s:presence:%s", prefix, userID) }
func PresenceChannel(prefix string) string     { return prefix + ":presence" }

func (m *PresenceMirror) UpdatePresence(ctx context.Context, id string, status model.UserStatus, lastSeen *time.Time) error {
	var err error
	if m.next != nil {
		err = m.next.UpdatePresence(ctx, id, status, lastSeen)
	}

	if mirrorErr := m.mirror(ctx, id, status, lastSeen); mirrorErr != nil {
		m.logger.Warn("failed to mirror presence to redis",
			zap.String("user_id", id),
			zap.Error(mirrorErr),
		)
	}
	return err
}

func (m *PresenceMirror) mirror(ctx context.Context, id string, status model.UserStatus, lastSeen *time.Time) error {
	fields, record := encodeRecord(id, status, lastSeen)
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, PresenceKey(m.prefix, id), fields)
	pipe.Publish(ctx, PresenceChannel(m.prefix), payload)
	_, err = pipe.Exec(ctx)
	return err
}

// encodeRecord builds the hash fields to write. last_seen is only written
// when the transition stamps it, so explicit status changes keep the old one.
func encodeRecord(id string, status model.UserStatus, lastSeen *time.Time) (map[string]any, Record) {
	fields := map[string]any{"status": string(status)}
	record := Record{UserID: id, Status: status}
	if lastSeen != nil {
		record.LastSeen = lastSeen.UnixMilli()
		fields["last_seen"] = record.LastSeen
	}
	return fields, record
}

// NewClient opens a Redis client and pings it
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
