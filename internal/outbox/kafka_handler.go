package outbox

import (
	"context"

	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/pkg/kafka"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// KafkaHandler publishes outbox messages to a Kafka topic, keyed by order id
// so all events of one order land on the same partition
type KafkaHandler struct {
	producer *kafka.Producer
	topic    string
	logger   logger.Logger
}

// NewKafkaHandler creates a new KafkaHandler
func NewKafkaHandler(producer *kafka.Producer, topic string, logger logger.Logger) *KafkaHandler {
	return &KafkaHandler{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// HandleMessage publishes the message payload
func (h *KafkaHandler) HandleMessage(ctx context.Context, message *models.OutboxMessage) error {
	return h.producer.SendMessage(ctx, h.topic, message.AggregateID, message.Payload)
}
