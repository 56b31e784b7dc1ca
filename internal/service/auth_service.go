package service

import (
	"context"
	"errors"

	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/repository"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
	"github.com/packlinehq/packline-api/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier checks a submitted password against a stored hash. The
// implementation is replaceable; the service never sees plaintext storage.
type CredentialVerifier interface {
	Verify(hash, password string) error
}

// BcryptVerifier verifies bcrypt hashes
type BcryptVerifier struct{}

func (BcryptVerifier) Verify(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// HashPassword produces a bcrypt hash for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// AuthService authenticates dashboard and production-floor users
type AuthService struct {
	userRepo *repository.UserRepository
	verifier CredentialVerifier
	logger   logger.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo *repository.UserRepository, verifier CredentialVerifier, logger logger.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		verifier: verifier,
		logger:   logger,
	}
}

type userLookup func(ctx context.Context, username string) (*models.User, error)

func (s *AuthService) login(ctx context.Context, lookup userLookup, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, apperrors.NewInvalidInputError("Username and password are required")
	}

	user, err := lookup(ctx, username)

	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same response as a bad password so usernames cannot be probed.
			return nil, apperrors.NewUnauthorizedError("Invalid credentials")
		}
		return nil, err
	}

	if err := s.verifier.Verify(user.PasswordHash, password); err != nil {
		s.logger.Warn("Failed login attempt", "username", username)
		return nil, apperrors.NewUnauthorizedError("Invalid credentials")
	}

	return user, nil
}

// Login authenticates a dashboard user
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	return s.login(ctx, s.userRepo.GetByUsername, username, password)
}

// ProductionLogin authenticates a production-floor user
func (s *AuthService) ProductionLogin(ctx context.Context, username, password string) (*models.User, error) {
	return s.login(ctx, s.userRepo.GetProductionByUsername, username, password)
}
