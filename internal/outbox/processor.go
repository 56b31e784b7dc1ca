package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/repository"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// MessageHandler delivers one outbox message to a downstream channel
type MessageHandler interface {
	HandleMessage(ctx context.Context, message *models.OutboxMessage) error
}

// Processor drains the outbox table and fans each message out to the handlers
// registered for its event type. A message is completed only when every
// handler accepts it; otherwise it is requeued until MaxRetries is spent.
type Processor struct {
	outboxRepo      *repository.OutboxRepository
	handlers        map[string][]MessageHandler
	pollingInterval time.Duration
	batchSize       int
	maxRetries      int
	logger          logger.Logger
	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	running         bool
	mu              sync.Mutex
}

// ProcessorConfig holds the configuration for the Processor
type ProcessorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	MaxRetries      int
}

// NewProcessor creates a new Processor
func NewProcessor(outboxRepo *repository.OutboxRepository, config *ProcessorConfig, logger logger.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())

	return &Processor{
		outboxRepo:      outboxRepo,
		handlers:        make(map[string][]MessageHandler),
		pollingInterval: config.PollingInterval,
		batchSize:       config.BatchSize,
		maxRetries:      config.MaxRetries,
		logger:          logger,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// RegisterHandler adds a handler for an event type; multiple handlers per
// event type all receive the message
func (p *Processor) RegisterHandler(eventType string, handler MessageHandler) {
	p.handlers[eventType] = append(p.handlers[eventType], handler)
}

// Start starts the outbox processor
func (p *Processor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()
		p.run()
	}()

	p.logger.Info("Outbox processor started",
		"pollingInterval", p.pollingInterval,
		"batchSize", p.batchSize)
}

// Stop stops the outbox processor and waits for the poll loop to exit
func (p *Processor) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.wg.Wait()
	p.running = false

	p.logger.Info("Outbox processor stopped")
}

func (p *Processor) run() {
	ticker := time.NewTicker(p.pollingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.processBatch()
		}
	}
}

func (p *Processor) processBatch() {
	messages, err := p.outboxRepo.GetPendingMessages(p.ctx, p.batchSize)

	if err != nil {
		p.logger.Error("Failed to fetch pending outbox messages", "error", err)
		return
	}

	for _, msg := range messages {
		if p.ctx.Err() != nil {
			return
		}
		p.processMessage(msg)
	}
}

func (p *Processor) processMessage(msg *models.OutboxMessage) {
	handlers, ok := p.handlers[msg.EventType]

	if !ok || len(handlers) == 0 {
		p.logger.Warn("No handler registered for event type", "eventType", msg.EventType, "messageID", msg.ID)
		if err := p.outboxRepo.MarkAsFailed(p.ctx, msg.ID, "no handler registered"); err != nil {
			p.logger.Error("Failed to mark message as failed", "error", err, "messageID", msg.ID)
		}
		return
	}

	if err := p.outboxRepo.MarkAsProcessing(p.ctx, msg.ID); err != nil {
		p.logger.Error("Failed to claim outbox message", "error", err, "messageID", msg.ID)
		return
	}

	attempts := msg.ProcessingAttempts + 1

	for _, handler := range handlers {
		if err := handler.HandleMessage(p.ctx, msg); err != nil {
			p.logger.Error("Handler failed for outbox message",
				"error", err,
				"messageID", msg.ID,
				"eventType", msg.EventType,
				"attempt", attempts)

			if attempts >= p.maxRetries {
				if mErr := p.outboxRepo.MarkAsFailed(p.ctx, msg.ID, err.Error()); mErr != nil {
					p.logger.Error("Failed to mark message as failed", "error", mErr, "messageID", msg.ID)
				}
			} else {
				if mErr := p.outboxRepo.MarkAsPending(p.ctx, msg.ID, err.Error()); mErr != nil {
					p.logger.Error("Failed to requeue message", "error", mErr, "messageID", msg.ID)
				}
			}
			return
		}
	}

	if err := p.outboxRepo.MarkAsCompleted(p.ctx, msg.ID); err != nil {
		p.logger.Error("Failed to mark message as completed", "error", err, "messageID", msg.ID)
		return
	}

	p.logger.Debug("Outbox message delivered", "messageID", msg.ID, "eventType", msg.EventType)
}
