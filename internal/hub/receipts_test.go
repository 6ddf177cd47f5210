package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Trushar30/AURA-Message/internal/event"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/Trushar30/AURA-Message/internal/repo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type failingReceipts struct {
	*repo.MemoryStore
}

func (failingReceipts) AppendReceipt(context.Context, model.ReceiptKind, primitive.ObjectID, string, []primitive.ObjectID, time.Time) (int64, error) {
	return 0, errors.New("write concern timeout")
}

func seedMessage(t *testing.T, f *fixture, conversation model.Conversation, sender model.User) *model.Message {
	t.Helper()
	msg := model.NewOutgoingMessage(conversation.ID, sender.UserID(), "hello", model.MessageText, nil, time.Now().UTC())
	_, err := f.store.InsertMessage(context.Background(), msg)
	require.NoError(t, err)
	return msg
}

func TestReceiptsConcurrentReaders(t *testing.T) {
	f := newFixture()
	conversation := f.conversation(f.alice, f.bob, f.carol)
	msg := seedMessage(t, f, conversation, f.alice)

	rooms := NewRooms()
	receipts := NewReceipts(f.store, f.store, rooms, zap.NewNop())

	alice := newFakeConn(f.alice)
	rooms.Join(alice, conversation.ID.Hex())

	payload := event.ReceiptPayload{ConversationID: conversation.ID.Hex(), MessageIDs: []string{msg.ID.Hex()}}

	var wg sync.WaitGroup
	for _, u := range []model.User{f.bob, f.carol, f.bob, f.carol} {
		wg.Add(1)
		go func(u model.User) {
			defer wg.Done()
			c := newFakeConn(u)
			_, err := receipts.MarkRead(context.Background(), c, payload)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	stored, err := f.store.FindByID(context.Background(), msg.ID.Hex())
	require.NoError(t, err)
	require.Len(t, stored.ReadBy, 3)
	assert.True(t, stored.IsReadBy(f.alice.UserID()))
	assert.True(t, stored.IsReadBy(f.bob.UserID()))
	assert.True(t, stored.IsReadBy(f.carol.UserID()))
	assert.Len(t, alice.named(event.MessageRead), 4)
}

func TestReceiptsCoalesceAndFilter(t *testing.T) {
	f := newFixture()
	conversation := f.conversation(f.alice, f.bob)
	m1 := seedMessage(t, f, conversation, f.alice)
	m2 := seedMessage(t, f, conversation, f.alice)

	rooms := NewRooms()
	receipts := NewReceipts(f.store, f.store, rooms, zap.NewNop())

	alice := newFakeConn(f.alice)
	bob := newFakeConn(f.bob)
	bobPhone := newFakeConn(f.bob)
	for _, c := range []*fakeConn{alice, bob, bobPhone} {
		rooms.Join(c, conversation.ID.Hex())
	}

	ids, err := receipts.MarkDelivered(context.Background(), bob, event.ReceiptPayload{
		ConversationID: conversation.ID.Hex(),
		MessageIDs:     []string{m1.ID.Hex(), "garbage", m2.ID.Hex(), m1.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{m1.ID.Hex(), m2.ID.Hex()}, ids)

	delivered := alice.named(event.MessageDelivered)
	require.Len(t, delivered, 1)
	payload := decode[event.ReceiptEvent](t, delivered[0])
	assert.Equal(t, f.bob.UserID(), payload.UserID)
	assert.Equal(t, ids, payload.MessageIDs)

	assert.Len(t, bobPhone.named(event.MessageDelivered), 1)
	assert.Empty(t, bob.named(event.MessageDelivered))

	for _, m := range []*model.Message{m1, m2} {
		stored, err := f.store.FindByID(context.Background(), m.ID.Hex())
		require.NoError(t, err)
		assert.Len(t, stored.DeliveredTo, 2)
	}
}

func TestReceiptsEmptyBatchIsSilent(t *testing.T) {
	f := newFixture()
	conversation := f.conversation(f.alice, f.bob)
	rooms := NewRooms()
	receipts := NewReceipts(f.store, f.store, rooms, zap.NewNop())

	alice := newFakeConn(f.alice)
	rooms.Join(alice, conversation.ID.Hex())

	ids, err := receipts.MarkRead(context.Background(), newFakeConn(f.bob), event.ReceiptPayload{
		ConversationID: conversation.ID.Hex(),
		MessageIDs:     []string{"nope", ""},
	})
	assert.NoError(t, err)
	assert.Empty(t, ids)
	assert.Empty(t, alice.named(event.MessageRead))
}

func TestReceiptsRejectNonParticipant(t *testing.T) {
	f := newFixture()
	conversation := f.conversation(f.alice, f.bob)
	msg := seedMessage(t, f, conversation, f.alice)
	receipts := NewReceipts(f.store, f.store, NewRooms(), zap.NewNop())

	_, err := receipts.MarkRead(context.Background(), newFakeConn(f.carol), event.ReceiptPayload{
		ConversationID: conversation.ID.Hex(),
		MessageIDs:     []string{msg.ID.Hex()},
	})
	var re *ReceiptError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodeNotParticipant, re.Code)
}

func TestReceiptsPersistenceFailureSkipsBroadcast(t *testing.T) {
	f := newFixture()
	conversation := f.conversation(f.alice, f.bob)
	msg := seedMessage(t, f, conversation, f.alice)

	rooms := NewRooms()
	receipts := NewReceipts(f.store, failingReceipts{f.store}, rooms, zap.NewNop())

	alice := newFakeConn(f.alice)
	rooms.Join(alice, conversation.ID.Hex())

	_, err := receipts.MarkRead(context.Background(), newFakeConn(f.bob), event.ReceiptPayload{
		ConversationID: conversation.ID.Hex(),
		MessageIDs:     []string{msg.ID.Hex()},
	})
	var re *ReceiptError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, CodePersistenceFailed, re.Code)
	assert.Empty(t, alice.named(event.MessageRead))
}
