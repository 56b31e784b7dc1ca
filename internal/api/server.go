package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/packlinehq/packline-api/internal/config"
	"github.com/packlinehq/packline-api/internal/database"
	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/outbox"
	"github.com/packlinehq/packline-api/internal/repository"
	"github.com/packlinehq/packline-api/internal/service"
	"github.com/packlinehq/packline-api/pkg/kafka"
	"github.com/packlinehq/packline-api/pkg/logger"
)

// OrderService is the order surface the handlers depend on
type OrderService interface {
	PlaceOrder(ctx context.Context, in *service.PlaceOrderInput) (*models.Order, error)
	ListOrders(ctx context.Context, includeCompleted bool) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error
	CompleteOrder(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
	UpdateOrderProduct(ctx context.Context, orderID, productID int64, p *models.OrderProduct) (*models.OrderProduct, error)
}

// StackService is the inventory surface the handlers depend on
type StackService interface {
	CreateStack(ctx context.Context, stack *models.Stack) (*models.Stack, error)
	ListStacks(ctx context.Context) ([]*models.Stack, error)
	UpdateStack(ctx context.Context, stack *models.Stack) error
	DeleteStack(ctx context.Context, id int64) error
}

// AuthService is the login surface the handlers depend on
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	ProductionLogin(ctx context.Context, username, password string) (*models.User, error)
}

type Server struct {
	config          *config.Config
	logger          logger.Logger
	router          *mux.Router
	httpServer      *http.Server
	db              *database.Database
	orderService    OrderService
	stackService    StackService
	authService     AuthService
	outboxProcessor *outbox.Processor
	kafkaProducer   *kafka.Producer
	hub             *Hub
}

// NewServer creates a new API server with the given configuration and logger.
func NewServer(cfg *config.Config, logger logger.Logger) *Server {
	r := mux.NewRouter()
	db, err := database.New(cfg, logger)

	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		panic(err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
		panic(err)
	}

	orderRepo := repository.NewOrderRepository(db, logger)
	outboxRepo := repository.NewOutboxRepository(db, logger)
	stackRepo := repository.NewStackRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)

	kafkaProducer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)

	if err != nil {
		logger.Error("Failed to create Kafka producer", "error", err)
		panic(err)
	}

	orderService := service.NewOrderService(orderRepo, outboxRepo, logger)
	stackService := service.NewStackService(stackRepo, logger)
	authService := service.NewAuthService(userRepo, service.BcryptVerifier{}, logger)

	hub := NewHub(logger)

	processorConfig := &outbox.ProcessorConfig{
		PollingInterval: 1 * time.Second,
		BatchSize:       20,
		MaxRetries:      3,
	}
	outboxProcessor := outbox.NewProcessor(outboxRepo, processorConfig, logger)

	kafkaHandler := outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.OrdersTopic, logger)

	// Every order event goes to Kafka and to connected websocket clients.
	for _, eventType := range []string{
		models.EventOrderCreated,
		models.EventOrderStatusChanged,
		models.EventOrderCompleted,
		models.EventOrderDeleted,
	} {
		outboxProcessor.RegisterHandler(eventType, kafkaHandler)
		outboxProcessor.RegisterHandler(eventType, hub)
	}

	server := &Server{
		router: r,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      corsMiddleware(r),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:          logger,
		config:          cfg,
		db:              db,
		orderService:    orderService,
		stackService:    stackService,
		authService:     authService,
		outboxProcessor: outboxProcessor,
		kafkaProducer:   kafkaProducer,
		hub:             hub,
	}

	server.setupRoutes()
	outboxProcessor.Start()

	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.outboxProcessor.Stop()
	s.hub.Close()

	if s.kafkaProducer != nil {
		if err := s.kafkaProducer.Close(); err != nil {
			s.logger.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Error closing database connection", "error", err)
	}

	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all the routes for our API
func (s *Server) setupRoutes() {
	s.router.Use(s.loggingMiddleware)
	s.router.NotFoundHandler = http.HandlerFunc(s.notFoundHandler)

	base := s.router
	if s.config.BaseURL != "" {
		base = s.router.PathPrefix(s.config.BaseURL).Subrouter()
	}

	base.HandleFunc("/health", s.healthCheckHandler).Methods(http.MethodGet)

	base.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)
	base.HandleFunc("/production-login", s.productionLoginHandler).Methods(http.MethodPost)

	base.HandleFunc("/stacks", s.createStackHandler).Methods(http.MethodPost)
	base.HandleFunc("/stacks", s.getStacksHandler).Methods(http.MethodGet)
	base.HandleFunc("/stacks/{id}", s.updateStackHandler).Methods(http.MethodPut)
	base.HandleFunc("/stacks/{id}", s.deleteStackHandler).Methods(http.MethodDelete)

	base.HandleFunc("/place-order", s.placeOrderHandler).Methods(http.MethodPost)
	base.HandleFunc("/orders", s.getOrdersHandler).Methods(http.MethodGet)
	base.HandleFunc("/orders/stream", s.orderStreamHandler).Methods(http.MethodGet)
	base.HandleFunc("/orders/{id}", s.updateOrderStatusHandler).Methods(http.MethodPatch)
	base.HandleFunc("/orders/{orderId}", s.deleteOrderHandler).Methods(http.MethodDelete)
	base.HandleFunc("/orders/{orderId}/products/{productId}", s.updateOrderProductHandler).Methods(http.MethodPut)
	base.HandleFunc("/orders/{id}/complete", s.completeOrderHandler).Methods(http.MethodPost)
}

func corsMiddleware(next http.Handler) http.Handler {
	return gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(next)
}

// Middleware for logging requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("Request processed",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
			"remoteAddr", r.RemoteAddr,
		)
	})
}
