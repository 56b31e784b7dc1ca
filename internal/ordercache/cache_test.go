package ordercache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/packlinehq/packline-api/internal/models"
	apperrors "github.com/packlinehq/packline-api/pkg/errors"
	"github.com/packlinehq/packline-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI counts calls and serves a configurable order list
type fakeAPI struct {
	mu sync.Mutex

	orders      []models.Order
	listErr     error
	deleteErr   error
	updateErr   error
	completeErr error

	listCalls     int
	deleteCalls   int
	completeCalls int
}

func (f *fakeAPI) ListOrders(ctx context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	orders := make([]models.Order, len(f.orders))
	copy(orders, f.orders)
	return orders, nil
}

func (f *fakeAPI) DeleteOrder(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeAPI) UpdateOrderProduct(ctx context.Context, orderID, productID int64, p models.OrderProduct) (*models.OrderProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	p.ProductID = productID
	return &p, nil
}

func (f *fakeAPI) CompleteOrder(ctx context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completeCalls++
	return f.completeErr
}

func (f *fakeAPI) calls() (list, del, complete int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls, f.deleteCalls, f.completeCalls
}

func order(id int64) models.Order {
	return models.Order{
		OrderID:      id,
		CustomerName: "Acme",
		Status:       string(models.OrderStatusPending),
		Products: []models.OrderProduct{
			{ProductID: id * 10, Micron: 40, Meter: 100, Size: "M", Color: "red", Unit: "Pcs", Quantity: 1},
		},
	}
}

func newTestCache(api *fakeAPI) *Cache {
	return New(api, time.Minute, logger.NewLogger("error"))
}

func orderIDs(orders []models.Order) []int64 {
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
	}
	return ids
}

func TestRefreshReplacesWholesale(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1), order(2)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	orders, state := c.Snapshot()
	assert.Equal(t, []int64{1, 2}, orderIDs(orders))
	assert.Equal(t, StateIdle, state)

	// The next server list has no overlap; nothing local survives.
	api.mu.Lock()
	api.orders = []models.Order{order(5)}
	api.mu.Unlock()

	require.NoError(t, c.Refresh(context.Background()))

	orders, _ = c.Snapshot()
	assert.Equal(t, []int64{5}, orderIDs(orders))
}

func TestRefreshFailureKeepsPriorOrders(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	api.mu.Lock()
	api.listErr = apperrors.NewTemporaryError("connection refused")
	api.mu.Unlock()

	require.Error(t, c.Refresh(context.Background()))

	orders, state := c.Snapshot()
	assert.Equal(t, []int64{1}, orderIDs(orders))
	assert.Equal(t, StateError, state)
	assert.Error(t, c.Err())
}

func TestApplyNewOrderPrependsWithoutNetwork(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1), order(2)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))
	listBefore, _, _ := api.calls()

	c.ApplyNewOrder(order(3))

	orders, _ := c.Snapshot()
	assert.Equal(t, []int64{3, 1, 2}, orderIDs(orders))

	listAfter, _, _ := api.calls()
	assert.Equal(t, listBefore, listAfter, "merge must not trigger a fetch")
}

func TestApplyNewOrderIgnoresDuplicates(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	c.ApplyNewOrder(order(1))

	orders, _ := c.Snapshot()
	assert.Equal(t, []int64{1}, orderIDs(orders))
}

func TestDeleteRemovesOnlyAfterServerConfirms(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1), order(2)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.Delete(context.Background(), 1))

	orders, state := c.Snapshot()
	assert.Equal(t, []int64{2}, orderIDs(orders))
	assert.Equal(t, StateIdle, state)
}

func TestDeleteFailureLeavesStateVisible(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	api.mu.Lock()
	api.deleteErr = apperrors.NewTemporaryError("server unavailable")
	api.mu.Unlock()

	require.Error(t, c.Delete(context.Background(), 1))

	orders, state := c.Snapshot()
	assert.Equal(t, []int64{1}, orderIDs(orders))
	assert.Equal(t, StateError, state)
}

func TestUpdateProductReplacesByProductID(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1), order(2)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	updated := models.OrderProduct{Micron: 50, Meter: 250, Size: "L", Color: "blue", Unit: "Pcs", Quantity: 7}
	require.NoError(t, c.UpdateProduct(context.Background(), 2, 20, updated))

	orders, _ := c.Snapshot()
	require.Len(t, orders, 2)

	// Order 1 untouched, order 2's item replaced under its durable id.
	assert.Equal(t, "red", orders[0].Products[0].Color)
	assert.Equal(t, int64(20), orders[1].Products[0].ProductID)
	assert.Equal(t, "blue", orders[1].Products[0].Color)
	assert.Equal(t, 7, orders[1].Products[0].Quantity)
}

func TestSnapshotIsolatedFromLaterWrites(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	before, _ := c.Snapshot()
	require.Len(t, before, 1)
	require.Len(t, before[0].Products, 1)

	updated := models.OrderProduct{Micron: 50, Meter: 250, Size: "L", Color: "blue", Unit: "Pcs", Quantity: 7}
	require.NoError(t, c.UpdateProduct(context.Background(), 1, 10, updated))

	// A snapshot handed out earlier must not change under the reader.
	assert.Equal(t, "red", before[0].Products[0].Color)

	after, _ := c.Snapshot()
	assert.Equal(t, "blue", after[0].Products[0].Color)
}

func TestMarkCompletedDropsFromActiveList(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1), order(2)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.MarkCompleted(context.Background(), 1))

	orders, state := c.Snapshot()
	assert.Equal(t, []int64{2}, orderIDs(orders))
	assert.Equal(t, StateIdle, state)

	list, _, complete := api.calls()
	assert.Equal(t, 1, list, "success must not refetch")
	assert.Equal(t, 1, complete)
}

func TestMarkCompletedFailureForcesExactlyOneRefresh(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1), order(2)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	api.mu.Lock()
	api.completeErr = apperrors.NewTemporaryError("timeout")
	api.mu.Unlock()

	require.Error(t, c.MarkCompleted(context.Background(), 1))

	// The reconciling refresh still reports order 1: the completion never
	// landed server-side, so it stays in the list.
	orders, _ := c.Snapshot()
	assert.Equal(t, []int64{1, 2}, orderIDs(orders))

	list, _, _ := api.calls()
	assert.Equal(t, 2, list, "failure triggers one reconciling fetch")
}

func TestRefreshAfterStopIsDiscarded(t *testing.T) {
	api := &fakeAPI{orders: []models.Order{order(1)}}
	c := newTestCache(api)

	require.NoError(t, c.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	<-done

	api.mu.Lock()
	api.orders = []models.Order{order(9)}
	api.mu.Unlock()

	// The response arrives after shutdown; the mirror must not change.
	_ = c.Refresh(context.Background())

	orders, _ := c.Snapshot()
	assert.Equal(t, []int64{1}, orderIDs(orders))
}
