package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/packlinehq/packline-api/internal/database"
	"github.com/packlinehq/packline-api/internal/repository"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
	"github.com/packlinehq/packline-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := &database.Database{DB: sqlx.NewDb(mockDB, "sqlmock")}
	l := logger.NewLogger("error")

	return NewAuthService(repository.NewUserRepository(db, l), BcryptVerifier{}, l), mock
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.StatusCode)
	assert.Equal(t, "Invalid credentials", appErr.Message)
}

func TestLoginSuccess(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, username, name, password_hash FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "password_hash"}).
			AddRow(1, "alice", "Alice", hash))

	user, err := svc.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.Name)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, username, name, password_hash FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "password_hash"}).
			AddRow(1, "alice", "Alice", hash))

	_, err = svc.Login(context.Background(), "alice", "wrong")
	assertUnauthorized(t, err)
}

func TestLoginUnknownUserLooksLikeBadPassword(t *testing.T) {
	svc, mock := newAuthService(t)

	mock.ExpectQuery("SELECT id, username, name, password_hash FROM users").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "name", "password_hash"}))

	_, err := svc.Login(context.Background(), "nobody", "whatever")
	assertUnauthorized(t, err)
}

func TestLoginRequiresCredentials(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "", "pw")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestProductionLoginUsesProductionTable(t *testing.T) {
	svc, mock := newAuthService(t)

	hash, err := HashPassword("floor-pass")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, username, password_hash FROM production_users").
		WithArgs("line1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).
			AddRow(3, "line1", hash))

	user, err := svc.ProductionLogin(context.Background(), "line1", "floor-pass")
	require.NoError(t, err)
	assert.Equal(t, "line1", user.Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}
