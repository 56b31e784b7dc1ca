package repository

import (
	"context"
	"fmt"

	"github.com/packlinehq/packline-api/internal/database"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// StackRepository handles database operations for inventory stacks
type StackRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewStackRepository creates a new StackRepository
func NewStackRepository(db *database.Database, logger logger.Logger) *StackRepository {
	return &StackRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new stack and fills in its id
func (r *StackRepository) Create(ctx context.Context, stack *models.Stack) error {
	res, err := r.db.DB.ExecContext(
		ctx,
		`INSERT INTO stacks (micron, meter, size, color, stock) VALUES (?, ?, ?, ?, ?)`,
		stack.Micron, stack.Meter, stack.Size, stack.Color, stack.Stock,
	)

	if err != nil {
		r.logger.Error("Failed to create stack", "error", err)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if stack.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// List retrieves all stacks
func (r *StackRepository) List(ctx context.Context) ([]*models.Stack, error) {
	var stacks []*models.Stack

	err := r.db.DB.SelectContext(ctx, &stacks,
		`SELECT id, micron, meter, size, color, stock FROM stacks ORDER BY id`)

	if err != nil {
		r.logger.Error("Failed to list stacks", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return stacks, nil
}

// Update overwrites a stack's fields
func (r *StackRepository) Update(ctx context.Context, stack *models.Stack) error {
	res, err := r.db.DB.ExecContext(
		ctx,
		`UPDATE stacks SET micron = ?, meter = ?, size = ?, color = ?, stock = ? WHERE id = ?`,
		stack.Micron, stack.Meter, stack.Size, stack.Color, stack.Stock, stack.ID,
	)

	if err != nil {
		r.logger.Error("Failed to update stack", "error", err, "stackID", stack.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := res.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		var exists int
		if err := r.db.DB.GetContext(ctx, &exists,
			`SELECT COUNT(*) FROM stacks WHERE id = ?`, stack.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
		if exists == 0 {
			return ErrNotFound
		}
	}

	return nil
}

// Delete removes a stack; removing an absent stack is a no-op
func (r *StackRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.DB.ExecContext(ctx, `DELETE FROM stacks WHERE id = ?`, id)

	if err != nil {
		r.logger.Error("Failed to delete stack", "error", err, "stackID", id)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}
