package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/packlinehq/packline-api/internal/database"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *models.Order {
	return models.NewOrder("Acme", "555-0100", "", "", []models.OrderProduct{
		{Micron: 40, Meter: 100, Size: "M", Color: "red", Quantity: 10},
	})
}

func newMockRepo(t *testing.T) (*OrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &database.Database{DB: sqlx.NewDb(mockDB, "sqlmock")}
	return NewOrderRepository(db, logger.NewLogger("error")), mock
}

var joinColumns = []string{
	"order_id", "customer_name", "contact_number", "district", "transport",
	"status", "created_at", "product_id", "micron", "meter", "size", "color",
	"nos", "unit", "quantity",
}

func TestListReshapesJoinRows(t *testing.T) {
	repo, mock := newMockRepo(t)

	newer := time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
	older := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(joinColumns).
		AddRow(2, "Acme", "555-0100", "", "", "pending", newer, 21, 40, 100, "M", "red", "", "Pcs", 10).
		AddRow(2, "Acme", "555-0100", "", "", "pending", newer, 22, 50, 200, "L", "blue", "2", "Kg", 5).
		AddRow(1, "Globex", "555-0200", "North", "rail", "shipped", older, nil, nil, nil, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT o.id AS order_id").WillReturnRows(rows)

	orders, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, int64(2), orders[0].OrderID)
	require.Len(t, orders[0].Products, 2)
	assert.Equal(t, int64(21), orders[0].Products[0].ProductID)
	assert.Equal(t, 40, orders[0].Products[0].Micron)
	assert.Equal(t, "Pcs", orders[0].Products[0].Unit)
	assert.Equal(t, int64(22), orders[0].Products[1].ProductID)

	// An order with no line items still appears, with an empty product list.
	assert.Equal(t, int64(1), orders[1].OrderID)
	assert.NotNil(t, orders[1].Products)
	assert.Empty(t, orders[1].Products)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListExcludesCompletedByDefault(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("WHERE o.status <> ?").
		WithArgs("completed").
		WillReturnRows(sqlmock.NewRows(joinColumns))

	orders, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInTxAssignsIDs(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs("Acme", "555-0100", "", "", "pending").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_products")).
		WithArgs(int64(7), 40, 100, "M", "red", "", "Pcs", 10).
		WillReturnResult(sqlmock.NewResult(71, 1))

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)

	order := newTestOrder()
	require.NoError(t, repo.CreateInTx(tx, order))

	assert.Equal(t, int64(7), order.OrderID)
	assert.Equal(t, int64(71), order.Products[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInTxRemovesChildrenFirst(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_products WHERE order_id = ?")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = ?")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)

	deleted, err := repo.DeleteInTx(tx, 3)
	require.NoError(t, err)
	assert.True(t, deleted)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteInTxReportsAbsentOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_products WHERE order_id = ?")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := repo.BeginTx(context.Background())
	require.NoError(t, err)

	deleted, err := repo.DeleteInTx(tx, 99)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id AS order_id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProductNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE order_products")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM order_products")).
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	order := newTestOrder()
	err := repo.UpdateProduct(context.Background(), 1, 5, &order.Products[0])
	assert.ErrorIs(t, err, ErrNotFound)
}
