package broker

import (
	"testing"
	"time"

	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewMessageSentEvent(t *testing.T) {
	now := time.Now().UTC()
	conversationID := primitive.NewObjectID()
	msg := model.NewOutgoingMessage(conversationID, "u1", "hello", model.MessageImage, nil, now)
	msg.ID = primitive.NewObjectID()

	ev := NewMessageSentEvent(msg)
	assert.Equal(t, "message.sent", ev.Type)
	assert.Equal(t, msg.ID.Hex(), ev.MessageID)
	assert.Equal(t, conversationID.Hex(), ev.ConversationID)
	assert.Equal(t, model.MessageImage, ev.ContentType)
	assert.Equal(t, now, ev.CreatedAt)
}
