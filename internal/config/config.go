package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	LogLevel string
	Env      string
	BaseURL  string // path prefix for all routes, e.g. "/api"
	DB       DBConfig
	Kafka    KafkaConfig
	Orders   OrdersConfig
}

// DBConfig holds the MySQL connection configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// KafkaConfig holds the Kafka connection configuration
type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	ConsumerGroup string
}

// OrdersConfig holds order-subsystem tunables
type OrdersConfig struct {
	PollInterval time.Duration // order cache refresh period
	APIURL       string        // base URL the order cache and orderwatch talk to
}

// getEnv retrieves the value of an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// Load reads the configuration from the environment, after a best-effort .env load.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "5000"))

	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "3306"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "5s"))

	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}

	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		BaseURL:  getEnv("API_BASE_URL", ""),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "packline"),
			Password: getEnv("DB_PASSWORD", "packline"),
			Name:     getEnv("DB_NAME", "packline"),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			OrdersTopic:   getEnv("KAFKA_ORDERS_TOPIC", "packline.orders"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "packline-orderwatch"),
		},
		Orders: OrdersConfig{
			PollInterval: pollInterval,
			APIURL:       getEnv("ORDER_API_URL", "http://localhost:5000"),
		},
	}, nil
}

// GetDSN returns the MySQL connection string. parseTime is required so that
// created_at scans into time.Time.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

// IsDevelopment reports whether error detail may be included in responses
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
