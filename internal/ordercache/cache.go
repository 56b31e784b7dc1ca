// Package ordercache keeps a local, eventually-consistent mirror of the
// server's active order list. A fixed-interval refresh converges the mirror
// with changes made elsewhere; locally observed events are merged without a
// round-trip; every mutation goes to the server first and local state is
// reconciled from the outcome.
package ordercache

import (
	"context"
	"sync"
	"time"

	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// OrdersAPI is the server surface the cache reconciles against
type OrdersAPI interface {
	ListOrders(ctx context.Context) ([]models.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	UpdateOrderProduct(ctx context.Context, orderID, productID int64, p models.OrderProduct) (*models.OrderProduct, error)
	CompleteOrder(ctx context.Context, orderID int64) error
}

// State is the cache's display state
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateError   State = "error"
)

// Cache mirrors the active order list. All methods are safe for concurrent
// use. The loading flag is shared across operations: the last one to finish
// clears it, but each operation's data effect applies independently.
type Cache struct {
	api      OrdersAPI
	logger   logger.Logger
	interval time.Duration

	mu      sync.Mutex
	orders  []models.Order
	loading bool
	lastErr error
	stopped bool
}

// New creates a cache polling at the given interval
func New(api OrdersAPI, interval time.Duration, logger logger.Logger) *Cache {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &Cache{
		api:      api,
		logger:   logger,
		interval: interval,
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled
func (c *Cache) Run(ctx context.Context) {
	c.Refresh(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.stopped = true
			c.mu.Unlock()
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Snapshot returns a copy of the current orders and the display state. The
// copy is deep through Products, so later mutations never show through it.
func (c *Cache) Snapshot() ([]models.Order, State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	orders := make([]models.Order, len(c.orders))
	copy(orders, c.orders)

	for i := range orders {
		products := make([]models.OrderProduct, len(orders[i].Products))
		copy(products, orders[i].Products)
		orders[i].Products = products
	}

	return orders, c.stateLocked()
}

// Err returns the error recorded by the most recent failed operation
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Cache) stateLocked() State {
	switch {
	case c.loading:
		return StateLoading
	case c.lastErr != nil:
		return StateError
	default:
		return StateIdle
	}
}

func (c *Cache) begin() {
	c.mu.Lock()
	c.loading = true
	c.lastErr = nil
	c.mu.Unlock()
}

func (c *Cache) finish(err error) {
	c.mu.Lock()
	c.loading = false
	c.lastErr = err
	c.mu.Unlock()
}

// Refresh replaces local state wholesale with the server's order list
func (c *Cache) Refresh(ctx context.Context) error {
	c.begin()

	orders, err := c.api.ListOrders(ctx)

	if err != nil {
		c.logger.Error("Failed to refresh orders", "error", err)
		c.finish(err)
		return err
	}

	c.mu.Lock()
	// A response that lands after shutdown is stale; drop it.
	if !c.stopped {
		c.orders = orders
	}
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()

	return nil
}

// ApplyNewOrder prepends an order announced out-of-band, without any network
// call. The next refresh validates it against the server.
func (c *Cache) ApplyNewOrder(order models.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}

	for _, existing := range c.orders {
		if existing.OrderID == order.OrderID {
			return
		}
	}

	c.orders = append([]models.Order{order}, c.orders...)
}

// Delete removes an order server-side first; only a confirmed delete removes
// it locally. On failure prior state stays visible.
func (c *Cache) Delete(ctx context.Context, orderID int64) error {
	c.begin()

	if err := c.api.DeleteOrder(ctx, orderID); err != nil {
		c.logger.Error("Failed to delete order", "error", err, "orderID", orderID)
		c.finish(err)
		return err
	}

	c.mu.Lock()
	if !c.stopped {
		c.removeLocked(orderID)
	}
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()

	return nil
}

// UpdateProduct updates one line item server-side and, on success, replaces
// the matching item (by product id) in the matching order
func (c *Cache) UpdateProduct(ctx context.Context, orderID, productID int64, p models.OrderProduct) error {
	c.begin()

	updated, err := c.api.UpdateOrderProduct(ctx, orderID, productID, p)

	if err != nil {
		c.logger.Error("Failed to update order product", "error", err, "orderID", orderID, "productID", productID)
		c.finish(err)
		return err
	}

	c.mu.Lock()
	if !c.stopped {
		for i := range c.orders {
			if c.orders[i].OrderID != orderID {
				continue
			}
			for j := range c.orders[i].Products {
				if c.orders[i].Products[j].ProductID == productID {
					c.orders[i].Products[j] = *updated
				}
			}
		}
	}
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()

	return nil
}

// MarkCompleted completes an order server-side. Success drops it from the
// active list; failure forces one full refresh because the server-side
// outcome is uncertain.
func (c *Cache) MarkCompleted(ctx context.Context, orderID int64) error {
	c.begin()

	if err := c.api.CompleteOrder(ctx, orderID); err != nil {
		c.logger.Error("Failed to complete order", "error", err, "orderID", orderID)
		c.finish(err)
		c.Refresh(ctx)
		return err
	}

	c.mu.Lock()
	if !c.stopped {
		c.removeLocked(orderID)
	}
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()

	return nil
}

// caller must hold c.mu
func (c *Cache) removeLocked(orderID int64) {
	kept := c.orders[:0]

	for _, order := range c.orders {
		if order.OrderID != orderID {
			kept = append(kept, order)
		}
	}

	c.orders = kept
}
