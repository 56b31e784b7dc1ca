package service

import (
	"context"

	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/repository"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// StackService handles inventory stack CRUD
type StackService struct {
	stackRepo *repository.StackRepository
	logger    logger.Logger
}

// NewStackService creates a new StackService
func NewStackService(stackRepo *repository.StackRepository, logger logger.Logger) *StackService {
	return &StackService{
		stackRepo: stackRepo,
		logger:    logger,
	}
}

func validateStack(stack *models.Stack) error {
	if stack.Micron == 0 || stack.Meter == 0 || stack.Size == "" || stack.Color == "" {
		return apperrors.NewInvalidInputError("micron, meter, size and color are required")
	}
	return nil
}

// CreateStack validates and inserts a stack, returning it with its new id
func (s *StackService) CreateStack(ctx context.Context, stack *models.Stack) (*models.Stack, error) {
	if err := validateStack(stack); err != nil {
		return nil, err
	}

	if err := s.stackRepo.Create(ctx, stack); err != nil {
		return nil, err
	}

	s.logger.Info("Stack created", "stackID", stack.ID)
	return stack, nil
}

// ListStacks retrieves all stacks
func (s *StackService) ListStacks(ctx context.Context) ([]*models.Stack, error) {
	return s.stackRepo.List(ctx)
}

// UpdateStack validates and overwrites a stack
func (s *StackService) UpdateStack(ctx context.Context, stack *models.Stack) error {
	if err := validateStack(stack); err != nil {
		return err
	}

	if err := s.stackRepo.Update(ctx, stack); err != nil {
		return err
	}

	s.logger.Info("Stack updated", "stackID", stack.ID)
	return nil
}

// DeleteStack removes a stack; deleting an absent stack succeeds
func (s *StackService) DeleteStack(ctx context.Context, id int64) error {
	if err := s.stackRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Stack deleted", "stackID", id)
	return nil
}
