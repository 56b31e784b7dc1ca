package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// OutboxStatus represents the status of an outbox message
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusCompleted  OutboxStatus = "completed"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// Event types written by the order service
const (
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderCompleted     = "order_completed"
	EventOrderDeleted       = "order_deleted"
)

// OutboxMessage is one row of the transactional outbox table
type OutboxMessage struct {
	ID                 int64        `db:"id" json:"id"`
	AggregateType      string       `db:"aggregate_type" json:"aggregate_type"`
	AggregateID        string       `db:"aggregate_id" json:"aggregate_id"`
	EventType          string       `db:"event_type" json:"event_type"`
	Payload            []byte       `db:"payload" json:"payload"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	ProcessedAt        *time.Time   `db:"processed_at" json:"processed_at,omitempty"`
	ProcessingAttempts int          `db:"processing_attempts" json:"processing_attempts"`
	LastError          *string      `db:"last_error" json:"last_error,omitempty"`
	Status             OutboxStatus `db:"status" json:"status"`
}

// OrderEvent is the payload published for every order mutation
type OrderEvent struct {
	EventType  string      `json:"event_type"`
	EventID    string      `json:"event_id"`
	OrderID    int64       `json:"order_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data,omitempty"`
}

func newOrderOutboxMessage(eventType string, orderID int64, data interface{}) (*OutboxMessage, error) {
	event := OrderEvent{
		EventType:  eventType,
		EventID:    GenerateID("evt"),
		OrderID:    orderID,
		OccurredAt: GetCurrentTime(),
		Data:       data,
	}

	payload, err := json.Marshal(event)

	if err != nil {
		return nil, err
	}

	return &OutboxMessage{
		AggregateType:      "order",
		AggregateID:        strconv.FormatInt(orderID, 10),
		EventType:          eventType,
		Payload:            payload,
		CreatedAt:          GetCurrentTime(),
		ProcessingAttempts: 0,
		Status:             OutboxStatusPending,
	}, nil
}

// NewOrderCreatedEvent builds the outbox message for a freshly placed order
func NewOrderCreatedEvent(order *Order) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderCreated, order.OrderID, order)
}

// NewOrderStatusChangedEvent builds the outbox message for a status transition
func NewOrderStatusChangedEvent(orderID int64, oldStatus, newStatus string) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderStatusChanged, orderID, map[string]string{
		"old_status": oldStatus,
		"new_status": newStatus,
	})
}

// NewOrderCompletedEvent builds the outbox message for a completed order
func NewOrderCompletedEvent(orderID int64) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderCompleted, orderID, nil)
}

// NewOrderDeletedEvent builds the outbox message for a deleted order
func NewOrderDeletedEvent(orderID int64) (*OutboxMessage, error) {
	return newOrderOutboxMessage(EventOrderDeleted, orderID, nil)
}
