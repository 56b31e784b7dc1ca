package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/jmoiron/sqlx"
	"github.com/packlinehq/packline-api/internal/config"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// Database wraps the pooled connection shared by all repositories
type Database struct {
	DB     *sqlx.DB
	logger logger.Logger
}

// New creates a new pooled database connection
func New(cfg *config.Config, logger logger.Logger) (*Database, error) {
	db, err := sqlx.Connect("mysql", cfg.GetDSN())

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Connected to database", "host", cfg.DB.Host, "database", cfg.DB.Name)

	return &Database{
		DB:     db,
		logger: logger,
	}, nil
}

// Ping checks the database connection
func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.DB.Close()
}

// RunMigrations creates the schema on startup. Statements are executed one at a
// time because the MySQL driver rejects multi-statement Exec by default.
func (d *Database) RunMigrations() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			customer_name VARCHAR(255) NOT NULL,
			contact_number VARCHAR(50) NOT NULL,
			district VARCHAR(100) NOT NULL DEFAULT '',
			transport VARCHAR(100) NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_orders_status (status),
			KEY idx_orders_created_at (created_at)
		)`,
		// No FK cascade: child rows are removed by the service inside the
		// same transaction that removes the order.
		`CREATE TABLE IF NOT EXISTS order_products (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			micron INT NOT NULL,
			meter INT NOT NULL,
			size VARCHAR(50) NOT NULL,
			color VARCHAR(50) NOT NULL,
			nos VARCHAR(50) NOT NULL DEFAULT '',
			unit VARCHAR(20) NOT NULL DEFAULT 'Pcs',
			quantity INT NOT NULL,
			KEY idx_order_products_order_id (order_id)
		)`,
		`CREATE TABLE IF NOT EXISTS stacks (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			micron INT NOT NULL,
			meter INT NOT NULL,
			size VARCHAR(50) NOT NULL,
			color VARCHAR(50) NOT NULL,
			stock INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			password_hash VARCHAR(100) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS production_users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			password_hash VARCHAR(100) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outbox_messages (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			aggregate_type VARCHAR(50) NOT NULL,
			aggregate_id VARCHAR(50) NOT NULL,
			event_type VARCHAR(50) NOT NULL,
			payload JSON NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			processed_at TIMESTAMP NULL,
			processing_attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			KEY idx_outbox_status (status),
			KEY idx_outbox_aggregate (aggregate_type, aggregate_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	d.logger.Info("Database migrations completed successfully")
	return nil
}
