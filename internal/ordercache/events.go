package ordercache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// orderEvent decodes just enough of a published order event to act on it
type orderEvent struct {
	EventType string       `json:"event_type"`
	OrderID   int64        `json:"order_id"`
	Data      models.Order `json:"data"`
}

// EventHandler feeds Kafka order events into the cache, so a new order shows
// up before the next poll tick. Other event types are left to the periodic
// refresh to converge.
type EventHandler struct {
	cache  *Cache
	logger logger.Logger
}

// NewEventHandler creates a handler bound to the given cache
func NewEventHandler(cache *Cache, logger logger.Logger) *EventHandler {
	return &EventHandler{
		cache:  cache,
		logger: logger,
	}
}

// HandleMessage implements kafka.MessageHandler
func (h *EventHandler) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event orderEvent

	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	switch event.EventType {
	case models.EventOrderCreated:
		h.logger.Debug("Applying new order from event stream", "orderID", event.OrderID)
		h.cache.ApplyNewOrder(event.Data)
	default:
		h.logger.Debug("Ignoring order event", "eventType", event.EventType, "orderID", event.OrderID)
	}

	return nil
}
