package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Trushar30/AURA-Message/internal/model"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageSentEvent is the domain event written for every persisted message
type MessageSentEvent struct {
	Type           string    `json:"type"`
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ContentType    string    `json:"contentType"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

const messageSentType = "message.sent"

// KafkaPublisher writes message.sent events keyed by conversation id, so
// consumers see each conversation in order. The writer is asynchronous;
// delivery failures surface through the completion callback.
type KafkaPublisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				logger.Warn("kafka write failed", zap.Int("batch", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaPublisher{writer: w, logger: logger}
}

func (p *KafkaPublisher) PublishMessage(ctx context.Context, msg *model.Message) error {
	value, err := json.Marshal(NewMessageSentEvent(msg))
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(msg.ConversationID.Hex()),
		Value: value,
		Time:  msg.CreatedAt,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func NewMessageSentEvent(msg *model.Message) MessageSentEvent {
	return MessageSentEvent{
		Type:           messageSentType,
		MessageID:      msg.ID.Hex(),
		ConversationID: msg.ConversationID.Hex(),
		SenderID:       msg.SenderID,
		ContentType:    msg.Type,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	}
}
