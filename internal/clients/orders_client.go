package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/packlinehq/packline-api/internal/models"
	"github.com/packlinehq/packline-api/internal/service"
	"github.com/packlinehq/packline-api/pkg/circuitbreaker"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
	"github.com/packlinehq/packline-api/pkg/logger"
	"github.com/packlinehq/packline-api/pkg/retry"
)

// OrdersClient talks to the order API. Reads retry with backoff; every call
// passes through a circuit breaker so a down server is not hammered.
type OrdersClient struct {
	baseURL     string
	httpClient  *http.Client
	logger      logger.Logger
	breaker     *circuitbreaker.CircuitBreaker
	retryConfig *retry.RetryConfig
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Orders  []models.Order  `json:"orders"`
	OrderID int64           `json:"orderId"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// NewOrdersClient creates a client for the given server base URL
func NewOrdersClient(baseURL string, logger logger.Logger) *OrdersClient {
	return &OrdersClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: 5,
			ResetTimeout:     10 * time.Second,
			HalfOpenMaxCalls: 1,
		}),
		retryConfig: &retry.RetryConfig{
			MaxAttempts:     3,
			BackoffStrategy: retry.NewDefaultExponentialBackoff(),
			Logger:          logger,
			RetryableErrors: []error{
				apperrors.ErrTimeout,
				apperrors.ErrTemporaryFailure,
				apperrors.ErrServiceUnavailable,
			},
		},
	}
}

// ListOrders fetches the active order list
func (c *OrdersClient) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order

	err := retry.Retry(ctx, func() error {
		env, err := c.do(ctx, http.MethodGet, "/orders", nil)

		if err != nil {
			return err
		}

		orders = env.Orders
		return nil
	}, c.retryConfig)

	if err != nil {
		return nil, err
	}

	return orders, nil
}

// PlaceOrder submits a new order and returns its server-assigned id. Not
// retried: a timed-out attempt may have committed.
func (c *OrdersClient) PlaceOrder(ctx context.Context, in *service.PlaceOrderInput) (int64, error) {
	env, err := c.do(ctx, http.MethodPost, "/place-order", in)

	if err != nil {
		return 0, err
	}

	return env.OrderID, nil
}

// DeleteOrder removes an order
func (c *OrdersClient) DeleteOrder(ctx context.Context, orderID int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", orderID), nil)
	return err
}

// UpdateOrderStatus changes an order's status
func (c *OrdersClient) UpdateOrderStatus(ctx context.Context, orderID int64, status string) error {
	_, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d", orderID),
		map[string]string{"status": status})
	return err
}

// UpdateOrderProduct updates one line item by durable id and returns the
// updated item
func (c *OrdersClient) UpdateOrderProduct(ctx context.Context, orderID, productID int64, p models.OrderProduct) (*models.OrderProduct, error) {
	env, err := c.do(ctx, http.MethodPut,
		fmt.Sprintf("/orders/%d/products/%d", orderID, productID), p)

	if err != nil {
		return nil, err
	}

	var updated models.OrderProduct

	if err := json.Unmarshal(env.Data, &updated); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to decode updated product: %v", err))
	}

	return &updated, nil
}

// CompleteOrder marks an order completed
func (c *OrdersClient) CompleteOrder(ctx context.Context, orderID int64) error {
	_, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/orders/%d/complete", orderID), nil)
	return err
}

func (c *OrdersClient) do(ctx context.Context, method, path string, body interface{}) (*apiEnvelope, error) {
	if !c.breaker.Allow() {
		return nil, apperrors.NewServiceUnavailableError("order API circuit open")
	}

	env, err := c.roundTrip(ctx, method, path, body)

	if err != nil {
		if apperrors.IsRetryable(err) {
			c.breaker.Failure()
		}
		return nil, err
	}

	c.breaker.Success()
	return env, nil
}

func (c *OrdersClient) roundTrip(ctx context.Context, method, path string, body interface{}) (*apiEnvelope, error) {
	var reqBody io.Reader

	if body != nil {
		data, err := json.Marshal(body)

		if err != nil {
			return nil, apperrors.NewInternalError(fmt.Sprintf("failed to encode request: %v", err))
		}

		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)

	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)

	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, apperrors.NewTimeoutError("request timed out")
		}
		return nil, apperrors.NewTemporaryError(fmt.Sprintf("failed to reach order API: %v", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to read response body: %v", err))
	}

	var env apiEnvelope

	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to decode response: %v", err))
	}

	if resp.StatusCode >= 500 {
		return nil, apperrors.NewTemporaryError(env.Error)
	}

	if resp.StatusCode >= 400 {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, env.Error, resp.StatusCode, false)
	}

	return &env, nil
}
