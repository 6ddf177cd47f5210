package hub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type failingInserts struct {
	*repo.MemoryStore
}

func (failingInserts) InsertMessage(context.Context, *model.Message) (string, error) {
	return "", errors.New("no primary")
}

type failingLastMessage struct {
	*repo.MemoryStore
}

func (failingLastMessage) UpdateLastMessage(context.Context, primitive.ObjectID, primitive.ObjectID, time.Time) error {
	return errors.New("no primary")
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*model.Message
}

func (p *recordingPublisher) PublishMessage(_ context.Context, msg *model.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

type fanoutRig struct {
	*fixture
	presence *Presence
	rooms    *Rooms
	fanout   *Fanout
	metrics  *Metrics
}

func newFanoutRig(t *testing.T, f *fixture, conversations repo.ConversationRepository, messages repo.MessageRepository, publisher MessagePublisher) *fanoutRig {
	t.Helper()
	presence := NewPresence(nil, zap.NewNop())
	t.Cleanup(presence.Close)
	rooms := NewRooms()
	metrics := NewMetrics(prometheus.NewRegistry())
	return &fanoutRig{
		fixture:  f,
		presence: presence,
		rooms:    rooms,
		metrics:  metrics,
		fanout:   NewFanout(conversations, messages, presence, rooms, publisher, metrics, zap.NewNop()),
	}
}

func (r *fanoutRig) connect(u model.User, conversationIDs ...string) *fakeConn {
	c := newFakeConn(u)
	for _, id := range conversationIDs {
		r.rooms.Join(c, id)
	}
	r.presence.AddHandle(c)
	c.reset()
	return c
}

func TestFanoutCompleteness(t *testing.T) {
	f := newFixture()
	publisher := &recordingPublisher{}
	rig := newFanoutRig(t, f, f.store, f.store, publisher)
	conversation := f.conversation(f.alice, f.bob)
	convID := conversation.ID.Hex()

	a := rig.connect(f.alice, convID)
	d := rig.connect(f.alice, convID)
	b := rig.connect(f.bob, convID)
	// a participant connection that has not joined the room still hears about it
	bOther := rig.connect(f.bob)
	outsider := rig.connect(f.carol)

	msg, err := rig.fanout.Send(context.Background(), a, event.SendPayload{
		ConversationID: convID,
		Content:        "hi",
		Type:           model.MessageText,
	})
	require.NoError(t, err)

	for _, c := range []*fakeConn{b, d, bOther} {
		got := c.named(event.MessageNew)
		require.Len(t, got, 1)
		payload := decode[event.NewMessageEvent](t, got[0])
		assert.Equal(t, convID, payload.ConversationID)
		assert.Equal(t, "hi", payload.Message.Content)
		require.NotNil(t, payload.Message.Sender)
		assert.Equal(t, "Alice", payload.Message.Sender.Name)
	}
	assert.Empty(t, a.named(event.MessageNew))
	assert.Empty(t, outsider.named(event.MessageNew))

	acks := a.named(event.MessageSent)
	require.Len(t, acks, 1)
	assert.Equal(t, msg.ID.Hex(), decode[event.SentEvent](t, acks[0]).MessageID)

	assert.Equal(t, 1.0, testutil.ToFloat64(rig.metrics.MessagesSent))
	assert.Len(t, publisher.msgs, 1)
}

func TestFanoutSelfReceipts(t *testing.T) {
	f := newFixture()
	rig := newFanoutRig(t, f, f.store, f.store, nil)
	conversation := f.conversation(f.alice, f.bob)
	a := rig.connect(f.alice, conversation.ID.Hex())

	msg, err := rig.fanout.Send(context.Background(), a, event.SendPayload{ConversationID: conversation.ID.Hex(), Content: "x", Type: model.MessageText})
	require.NoError(t, err)

	stored, err := f.store.FindByID(context.Background(), msg.ID.Hex())
	require.NoError(t, err)
	require.Len(t, stored.DeliveredTo, 1)
	require.Len(t, stored.ReadBy, 1)
	assert.Equal(t, f.alice.UserID(), stored.DeliveredTo[0].UserID)
	assert.Equal(t, f.alice.UserID(), stored.ReadBy[0].UserID)

	conv, err := f.store.FindForParticipant(context.Background(), conversation.ID.Hex(), f.alice.UserID())
	require.NoError(t, err)
	require.NotNil(t, conv.LastMessage)
	assert.Equal(t, msg.ID, *conv.LastMessage)
}

func TestFanoutPersistenceFailureBroadcastsNothing(t *testing.T) {
	f := newFixture()
	rig := newFanoutRig(t, f, f.store, failingInserts{f.store}, nil)
	conversation := f.conversation(f.alice, f.bob)
	a := rig.connect(f.alice, conversation.ID.Hex())
	b := rig.connect(f.bob, conversation.ID.Hex())

	_, err := rig.fanout.Send(context.Background(), a, event.SendPayload{ConversationID: conversation.ID.Hex(), Content: "x", Type: model.MessageText})
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodePersistenceFailed, de.Code)
	assert.Empty(t, b.named(event.MessageNew))
	assert.Empty(t, a.named(event.MessageSent))
}

func TestFanoutLastMessageFailureStillDelivers(t *testing.T) {
	f := newFixture()
	rig := newFanoutRig(t, f, failingLastMessage{f.store}, f.store, nil)
	conversation := f.conversation(f.alice, f.bob)
	a := rig.connect(f.alice, conversation.ID.Hex())
	b := rig.connect(f.bob, conversation.ID.Hex())

	_, err := rig.fanout.Send(context.Background(), a, event.SendPayload{ConversationID: conversation.ID.Hex(), Content: "x", Type: model.MessageText})
	require.NoError(t, err)
	assert.Len(t, b.named(event.MessageNew), 1)
}

func TestFanoutRejections(t *testing.T) {
	f := newFixture()
	rig := newFanoutRig(t, f, f.store, f.store, nil)
	conversation := f.conversation(f.alice, f.bob)
	carol := rig.connect(f.carol)
	alice := rig.connect(f.alice)

	_, err := rig.fanout.Send(context.Background(), carol, event.SendPayload{ConversationID: conversation.ID.Hex(), Content: "x", Type: model.MessageText})
	assert.Equal(t, CodeNotParticipant, errorCode(err))

	_, err = rig.fanout.Send(context.Background(), alice, event.SendPayload{ConversationID: conversation.ID.Hex(), Content: "x", Type: model.MessageText, ReplyTo: "zzz"})
	assert.Equal(t, CodeInvalidPayload, errorCode(err))

	assert.Empty(t, f.store.Messages(conversation.ID.Hex()))
}

func TestSendErrorHidesStorageDetails(t *testing.T) {
	f := newFixture()
	c := newFakeConn(f.alice)

	sendError(c, &DeliveryError{Code: CodePersistenceFailed, Err: errors.New("mongo: secret host")})
	got := c.named(event.Error)
	require.Len(t, got, 1)
	payload := decode[model.ErrorPayload](t, got[0])
	assert.Equal(t, CodePersistenceFailed, payload.Code)
	assert.False(t, strings.Contains(payload.Message, "secret"))
}
