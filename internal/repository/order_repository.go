package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/packlinehq/packline-api/internal/database"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/pkg/logger"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrDatabase = errors.New("database error")
)

// OrderRepository handles database operations for orders and their line items
type OrderRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:     db,
		logger: logger,
	}
}

// BeginTx starts a transaction for multi-step writes
func (r *OrderRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)

	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return tx, nil
}

// CreateInTx inserts the order row and all of its line items inside tx. The
// order id and per-item ids are filled in from the store's auto-increment.
func (r *OrderRepository) CreateInTx(tx *sql.Tx, order *models.Order) error {
	res, err := tx.Exec(
		`INSERT INTO orders (customer_name, contact_number, district, transport, status)
		 VALUES (?, ?, ?, ?, ?)`,
		order.CustomerName,
		order.ContactNumber,
		order.District,
		order.Transport,
		order.Status,
	)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	orderID, err := res.LastInsertId()

	if err != nil {
		return fmt.Errorf("failed to read order id: %w", err)
	}

	order.OrderID = orderID

	for i := range order.Products {
		p := &order.Products[i]

		res, err := tx.Exec(
			`INSERT INTO order_products (order_id, micron, meter, size, color, nos, unit, quantity)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			orderID, p.Micron, p.Meter, p.Size, p.Color, p.Nos, p.Unit, p.Quantity,
		)

		if err != nil {
			return fmt.Errorf("failed to add order products: %w", err)
		}

		if p.ProductID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read product id: %w", err)
		}
	}

	return nil
}

// orderProductRow is one flat row of the orders/order_products join. The
// product side is nullable because orders without line items still join.
type orderProductRow struct {
	OrderID       int64          `db:"order_id"`
	CustomerName  string         `db:"customer_name"`
	ContactNumber string         `db:"contact_number"`
	District      string         `db:"district"`
	Transport     string         `db:"transport"`
	Status        string         `db:"status"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	ProductID     sql.NullInt64  `db:"product_id"`
	Micron        sql.NullInt64  `db:"micron"`
	Meter         sql.NullInt64  `db:"meter"`
	Size          sql.NullString `db:"size"`
	Color         sql.NullString `db:"color"`
	Nos           sql.NullString `db:"nos"`
	Unit          sql.NullString `db:"unit"`
	Quantity      sql.NullInt64  `db:"quantity"`
}

// List retrieves all orders with their line items nested, newest order first.
// Completed orders are excluded unless includeCompleted is set.
func (r *OrderRepository) List(ctx context.Context, includeCompleted bool) ([]*models.Order, error) {
	query := `
		SELECT o.id AS order_id, o.customer_name, o.contact_number, o.district,
		       o.transport, o.status, o.created_at,
		       op.id AS product_id, op.micron, op.meter, op.size, op.color,
		       op.nos, op.unit, op.quantity
		FROM orders o
		LEFT JOIN order_products op ON o.id = op.order_id
	`
	args := []interface{}{}

	if !includeCompleted {
		query += ` WHERE o.status <> ?`
		args = append(args, string(models.OrderStatusCompleted))
	}

	query += ` ORDER BY o.created_at DESC, o.id DESC`

	var rows []orderProductRow
	err := r.db.DB.SelectContext(ctx, &rows, query, args...)

	if err != nil {
		r.logger.Error("Failed to list orders", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return reshapeOrderRows(rows), nil
}

// reshapeOrderRows groups flat join rows into orders with nested products,
// preserving row order. A NULL product side yields an order with an empty
// product list, not a skipped order.
func reshapeOrderRows(rows []orderProductRow) []*models.Order {
	orders := make([]*models.Order, 0)
	byID := make(map[int64]*models.Order)

	for _, row := range rows {
		order, seen := byID[row.OrderID]

		if !seen {
			order = &models.Order{
				OrderID:       row.OrderID,
				CustomerName:  row.CustomerName,
				ContactNumber: row.ContactNumber,
				District:      row.District,
				Transport:     row.Transport,
				Status:        row.Status,
				CreatedAt:     row.CreatedAt.Time,
				Products:      []models.OrderProduct{},
			}
			byID[row.OrderID] = order
			orders = append(orders, order)
		}

		if row.ProductID.Valid {
			order.Products = append(order.Products, models.OrderProduct{
				ProductID: row.ProductID.Int64,
				Micron:    int(row.Micron.Int64),
				Meter:     int(row.Meter.Int64),
				Size:      row.Size.String,
				Color:     row.Color.String,
				Nos:       row.Nos.String,
				Unit:      row.Unit.String,
				Quantity:  int(row.Quantity.Int64),
			})
		}
	}

	return orders
}

// GetByID retrieves a single order row without its line items
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	query := `
		SELECT id AS order_id, customer_name, contact_number, district, transport, status, created_at
		FROM orders
		WHERE id = ?
	`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// UpdateStatusInTx updates an order's status inside tx. Existence is checked
// by the caller first: MySQL reports zero affected rows for a no-op update,
// so RowsAffected cannot distinguish "absent" from "unchanged" here.
func (r *OrderRepository) UpdateStatusInTx(tx *sql.Tx, id int64, status string) error {
	_, err := tx.Exec(`UPDATE orders SET status = ? WHERE id = ?`, status, id)

	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return nil
}

// DeleteInTx removes an order's line items and then the order row inside tx.
// Children go first so a failed order delete never strands orphans. It reports
// whether the order row actually existed.
func (r *OrderRepository) DeleteInTx(tx *sql.Tx, id int64) (bool, error) {
	if _, err := tx.Exec(`DELETE FROM order_products WHERE order_id = ?`, id); err != nil {
		return false, fmt.Errorf("failed to delete order products: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM orders WHERE id = ?`, id)

	if err != nil {
		return false, fmt.Errorf("failed to delete order: %w", err)
	}

	rowsAffected, err := res.RowsAffected()

	if err != nil {
		return false, fmt.Errorf("failed to confirm order delete: %w", err)
	}

	return rowsAffected > 0, nil
}

// UpdateProduct updates one line item addressed by its durable id, scoped to
// its parent order
func (r *OrderRepository) UpdateProduct(ctx context.Context, orderID, productID int64, p *models.OrderProduct) error {
	query := `
		UPDATE order_products
		SET micron = ?, meter = ?, size = ?, color = ?, nos = ?, unit = ?, quantity = ?
		WHERE id = ? AND order_id = ?
	`

	res, err := r.db.DB.ExecContext(
		ctx,
		query,
		p.Micron, p.Meter, p.Size, p.Color, p.Nos, p.Unit, p.Quantity,
		productID, orderID,
	)

	if err != nil {
		r.logger.Error("Failed to update order product", "error", err, "orderID", orderID, "productID", productID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := res.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		// The item may exist with identical values; confirm before
		// reporting not found.
		var exists int
		if err := r.db.DB.GetContext(ctx, &exists,
			`SELECT COUNT(*) FROM order_products WHERE id = ? AND order_id = ?`,
			productID, orderID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		if exists == 0 {
			return ErrNotFound
		}
	}

	p.ProductID = productID
	return nil
}
