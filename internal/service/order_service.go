package service

import (
	"context"
	"fmt"

	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/repository"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// PlaceOrderInput carries the fields of a place-order request
type PlaceOrderInput struct {
	CustomerName  string                `json:"customerName"`
	ContactNumber string                `json:"contactNumber"`
	District      string                `json:"district"`
	Transport     string                `json:"transport"`
	Products      []models.OrderProduct `json:"products"`
}

// OrderService handles order placement, listing, mutation and deletion. Every
// multi-step write goes through a single transaction together with its outbox
// message.
type OrderService struct {
	orderRepo  *repository.OrderRepository
	outboxRepo *repository.OutboxRepository
	logger     logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo *repository.OrderRepository,
	outboxRepo *repository.OutboxRepository,
	logger logger.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

func validatePlaceOrder(in *PlaceOrderInput) error {
	if in.CustomerName == "" || in.ContactNumber == "" || len(in.Products) == 0 {
		return apperrors.NewInvalidInputError(
			"Customer name, contact number, and at least one product are required")
	}

	for i, p := range in.Products {
		if p.Micron == 0 || p.Meter == 0 || p.Size == "" || p.Color == "" || p.Quantity == 0 {
			return apperrors.NewInvalidInputError(
				fmt.Sprintf("product %d is missing required fields", i+1))
		}
	}

	return nil
}

// PlaceOrder validates the input and writes the order row, all of its line
// items, and the order_created outbox message in one transaction. Nothing is
// written when validation fails; everything rolls back when any insert fails.
func (s *OrderService) PlaceOrder(ctx context.Context, in *PlaceOrderInput) (*models.Order, error) {
	if err := validatePlaceOrder(in); err != nil {
		return nil, err
	}

	order := models.NewOrder(in.CustomerName, in.ContactNumber, in.District, in.Transport, in.Products)

	tx, err := s.orderRepo.BeginTx(ctx)

	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.orderRepo.CreateInTx(tx, order); err != nil {
		return nil, err
	}

	outboxMsg, err := models.NewOrderCreatedEvent(order)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err = s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order placed",
		"orderID", order.OrderID,
		"customer", order.CustomerName,
		"products", len(order.Products),
		"outboxID", outboxMsg.ID)
	return order, nil
}

// ListOrders retrieves orders newest first with nested line items. Completed
// orders are excluded from the active list unless includeCompleted is set.
func (s *OrderService) ListOrders(ctx context.Context, includeCompleted bool) ([]*models.Order, error) {
	return s.orderRepo.List(ctx, includeCompleted)
}

// UpdateOrderStatus changes an order's status and records the transition in
// the outbox within one transaction
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	if status == "" {
		return apperrors.NewInvalidInputError("Status is required")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)

	if err != nil {
		return err
	}

	if order.Status == status {
		return nil
	}

	return s.updateStatusTx(ctx, orderID, order.Status, status)
}

// CompleteOrder marks an order completed. The row is retained so completed
// orders stay queryable; the active list simply stops returning it.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID int64) error {
	order, err := s.orderRepo.GetByID(ctx, orderID)

	if err != nil {
		return err
	}

	if order.Status == string(models.OrderStatusCompleted) {
		return nil
	}

	return s.updateStatusTx(ctx, orderID, order.Status, string(models.OrderStatusCompleted))
}

func (s *OrderService) updateStatusTx(ctx context.Context, orderID int64, oldStatus, newStatus string) error {
	var outboxMsg *models.OutboxMessage
	var err error

	if newStatus == string(models.OrderStatusCompleted) {
		outboxMsg, err = models.NewOrderCompletedEvent(orderID)
	} else {
		outboxMsg, err = models.NewOrderStatusChangedEvent(orderID, oldStatus, newStatus)
	}

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	tx, err := s.orderRepo.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = s.orderRepo.UpdateStatusInTx(tx, orderID, newStatus); err != nil {
		return err
	}

	if err = s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Order status updated",
		"orderID", orderID,
		"oldStatus", oldStatus,
		"newStatus", newStatus,
		"outboxID", outboxMsg.ID)

	return nil
}

// DeleteOrder removes an order and all of its line items in one transaction,
// children first. Deleting an absent order succeeds with no effect and
// publishes nothing.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	tx, err := s.orderRepo.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	var deleted bool

	if deleted, err = s.orderRepo.DeleteInTx(tx, orderID); err != nil {
		return err
	}

	if deleted {
		var outboxMsg *models.OutboxMessage

		if outboxMsg, err = models.NewOrderDeletedEvent(orderID); err != nil {
			s.logger.Error("Failed to create outbox message", "error", err)
			return fmt.Errorf("failed to create outbox message: %w", err)
		}

		if err = s.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		s.logger.Error("Failed to commit transaction", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if deleted {
		s.logger.Info("Order deleted", "orderID", orderID)
	} else {
		s.logger.Debug("Delete of absent order ignored", "orderID", orderID)
	}

	return nil
}

// UpdateOrderProduct updates one line item addressed by its durable product id
func (s *OrderService) UpdateOrderProduct(ctx context.Context, orderID, productID int64, p *models.OrderProduct) (*models.OrderProduct, error) {
	if p.Micron == 0 || p.Meter == 0 || p.Size == "" || p.Color == "" || p.Quantity == 0 {
		return nil, apperrors.NewInvalidInputError("micron, meter, size, color and quantity are required")
	}

	if p.Unit == "" {
		p.Unit = models.DefaultUnit
	}

	if err := s.orderRepo.UpdateProduct(ctx, orderID, productID, p); err != nil {
		return nil, err
	}

	s.logger.Info("Order product updated", "orderID", orderID, "productID", productID)
	return p, nil
}
