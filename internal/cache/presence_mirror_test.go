package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingStore struct {
	calls int
	err   error
}

func (s *recordingStore) UpdatePresence(context.Context, string, model.UserStatus, *time.Time) error {
	s.calls++
	return s.err
}

func TestEncodeRecord(t *testing.T) {
	seen := time.UnixMilli(1_700_000_000_123)
	fields, record := encodeRecord("u1", model.StatusOffline, &seen)

	assert.Equal(t, "offline", fields["status"])
	assert.Equal(t, int64(1_700_000_000_123), fields["last_seen"])
	assert.Equal(t, record.LastSeen, seen.UnixMilli())
	assert.Equal(t, "u1", record.UserID)
}

func TestEncodeWithoutLastSeenKeepsField(t *testing.T) {
	fields, record := encodeRecord("u1", model.StatusBusy, nil)
	_, has := fields["last_seen"]
	assert.False(t, has)
	assert.Zero(t, record.LastSeen)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "aura:presence:u1", PresenceKey("aura", "u1"))
	assert.Equal(t, "aura:presence", PresenceChannel("aura"))
}

func TestMirrorFailureDoesNotFailWrite(t *testing.T) {
	// nothing listens on this port, so every redis call fails fast
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	next := &recordingStore{}
	mirror := NewPresenceMirror(next, client, "aura", zap.NewNop())
	require.NoError(t, mirror.UpdatePresence(context.Background(), "u1", model.StatusOnline, nil))
	assert.Equal(t, 1, next.calls)

	next.err = errors.New("mongo down")
	assert.ErrorIs(t, mirror.UpdatePresence(context.Background(), "u1", model.StatusOnline, nil), next.err)
}
