package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/packlinehq/packline-api/internal/database"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/repository"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
	"github.com/packlinehq/packline-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockService(t *testing.T) (*OrderService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &database.Database{DB: sqlx.NewDb(mockDB, "sqlmock")}
	l := logger.NewLogger("error")

	return NewOrderService(
		repository.NewOrderRepository(db, l),
		repository.NewOutboxRepository(db, l),
		l,
	), mock
}

func validInput() *PlaceOrderInput {
	return &PlaceOrderInput{
		CustomerName:  "Acme",
		ContactNumber: "555-0100",
		Products: []models.OrderProduct{
			{Micron: 40, Meter: 100, Size: "M", Color: "red", Quantity: 10},
		},
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestPlaceOrderValidation(t *testing.T) {
	svc, mock := newMockService(t)

	tests := []struct {
		name   string
		mutate func(*PlaceOrderInput)
	}{
		{"missing customer name", func(in *PlaceOrderInput) { in.CustomerName = "" }},
		{"missing contact number", func(in *PlaceOrderInput) { in.ContactNumber = "" }},
		{"no products", func(in *PlaceOrderInput) { in.Products = nil }},
		{"product missing color", func(in *PlaceOrderInput) { in.Products[0].Color = "" }},
		{"product missing quantity", func(in *PlaceOrderInput) { in.Products[0].Quantity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)

			_, err := svc.PlaceOrder(context.Background(), in)
			assertValidationError(t, err)
		})
	}

	// Validation failures never touch the store.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderCommitsOrderProductsAndEvent(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WithArgs("Acme", "555-0100", "", "", "pending").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_products")).
		WithArgs(int64(42), 40, 100, "M", "red", "", "Pcs", 10).
		WillReturnResult(sqlmock.NewResult(420, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	order, err := svc.PlaceOrder(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, int64(42), order.OrderID)
	require.Len(t, order.Products, 1)
	assert.Equal(t, int64(420), order.Products[0].ProductID)
	// Omitted optional fields get their documented defaults.
	assert.Equal(t, "", order.Products[0].Nos)
	assert.Equal(t, "Pcs", order.Products[0].Unit)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderRollsBackWhenProductInsertFails(t *testing.T) {
	svc, mock := newMockService(t)

	in := validInput()
	in.Products = append(in.Products,
		models.OrderProduct{Micron: 50, Meter: 200, Size: "L", Color: "blue", Quantity: 5},
		models.OrderProduct{Micron: 60, Meter: 300, Size: "XL", Color: "green", Quantity: 2},
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders")).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_products")).
		WillReturnResult(sqlmock.NewResult(91, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_products")).
		WillReturnError(errors.New("duplicate entry"))
	mock.ExpectRollback()

	_, err := svc.PlaceOrder(context.Background(), in)
	require.Error(t, err)

	// The rollback expectation above is the point: item 2 of 3 failing must
	// leave no order row and no line items behind.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRequiresStatus(t *testing.T) {
	svc, _ := newMockService(t)

	err := svc.UpdateOrderStatus(context.Background(), 1, "")
	assertValidationError(t, err)
}

func TestUpdateOrderStatusNotFound(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT id AS order_id").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}))

	err := svc.UpdateOrderStatus(context.Background(), 99, "shipped")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func orderRow(id int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"order_id", "customer_name", "contact_number", "district", "transport", "status", "created_at",
	}).AddRow(id, "Acme", "555-0100", "", "", status, time.Now())
}

func TestUpdateOrderStatusCommitsWithEvent(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT id AS order_id").
		WithArgs(int64(7)).
		WillReturnRows(orderRow(7, "pending"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ? WHERE id = ?")).
		WithArgs("shipped", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.UpdateOrderStatus(context.Background(), 7, "shipped"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusNoopWhenUnchanged(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT id AS order_id").
		WithArgs(int64(7)).
		WillReturnRows(orderRow(7, "shipped"))

	require.NoError(t, svc.UpdateOrderStatus(context.Background(), 7, "shipped"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteOrderRetainsRow(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT id AS order_id").
		WithArgs(int64(4)).
		WillReturnRows(orderRow(4, "pending"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET status = ? WHERE id = ?")).
		WithArgs("completed", int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.CompleteOrder(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrderDeletesChildrenThenParent(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_products WHERE order_id = ?")).
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = ?")).
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_messages")).
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteOrder(context.Background(), 6))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrderNoopPublishesNoEvent(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_products WHERE order_id = ?")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM orders WHERE id = ?")).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	// No outbox expectation: deleting an absent order succeeds silently and
	// announces nothing downstream.
	require.NoError(t, svc.DeleteOrder(context.Background(), 99))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOrderRollsBackOnFailure(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_products WHERE order_id = ?")).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := svc.DeleteOrder(context.Background(), 6)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderProductValidation(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.UpdateOrderProduct(context.Background(), 1, 2, &models.OrderProduct{Size: "M"})
	assertValidationError(t, err)
}
