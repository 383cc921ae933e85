package consumer_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb/dynamodbtest"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/consumer"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

func setup(t *testing.T) (*consumer.OrderConfirmationConsumer, *repository.OrderRepository) {
	t.Helper()
	fake := dynamodbtest.NewFake()
	orders := repository.NewOrderRepository(dynamodb.NewTable(fake, "Orders"))
	products := repository.NewProductRepository(dynamodb.NewTable(fake, "Products"))
	customers := repository.NewCustomerRepository(dynamodb.NewTable(fake, "Customers"))
	logger := zap.NewNop()
	svc := services.NewOrderService(orders, customers, products,
		services.NewStockReserver(products, 3, nil, logger),
		services.NewOrderDispatcher(nil, nil, "", nil, logger),
		nil, logger)
	return consumer.NewOrderConfirmationConsumer(nil, svc, nil, logger), orders
}

func pendingOrder(t *testing.T, orders *repository.OrderRepository) *models.Order {
	t.Helper()
	o := &models.Order{CustomerName: "Ada", ProductName: "Kettle", Quantity: 1, TotalPrice: 20, Status: models.OrderPending, OrderDate: time.Now().UTC()}
	o.RowKey = "o1"
	require.NoError(t, orders.Create(context.Background(), o))
	return o
}

func body(t *testing.T, o *models.Order) string {
	t.Helper()
	raw, err := json.Marshal(models.NewOrderMessage(o))
	require.NoError(t, err)
	return string(raw)
}

func TestHandleMessage_ConfirmsSameRow(t *testing.T) {
	ctx := context.Background()
	c, orders := setup(t)
	o := pendingOrder(t, orders)

	require.NoError(t, c.HandleMessage(ctx, body(t, o)))

	all, err := orders.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "o1", all[0].RowKey)
	assert.Equal(t, models.OrderConfirmed, all[0].Status)
}

func TestHandleMessage_RedeliveryIsNoOp(t *testing.T) {
	ctx := context.Background()
	c, orders := setup(t)
	o := pendingOrder(t, orders)
	msg := body(t, o)

	require.NoError(t, c.HandleMessage(ctx, msg))
	require.NoError(t, c.HandleMessage(ctx, msg))

	got, err := orders.FindByKey(ctx, models.OrderPartition, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, got.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestHandleMessage_UnwrapsSNSEnvelope(t *testing.T) {
	ctx := context.Background()
	c, orders := setup(t)
	o := pendingOrder(t, orders)

	env, err := json.Marshal(map[string]string{"Type": "Notification", "Message": body(t, o)})
	require.NoError(t, err)
	require.NoError(t, c.HandleMessage(ctx, string(env)))

	got, err := orders.FindByKey(ctx, models.OrderPartition, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, got.Status)
}

func TestHandleMessage_PoisonMessages(t *testing.T) {
	c, _ := setup(t)
	tests := map[string]string{
		"malformed json": "{not json",
		"missing id":     `{"customerName":"Ada"}`,
		"unknown order":  `{"orderId":"nope","partitionKey":"Orders"}`,
	}
	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			err := c.HandleMessage(context.Background(), msg)
			assert.ErrorIs(t, err, awspkg.ErrPoisonMessage)
		})
	}
}

type conflictingConfirmer struct{}

func (conflictingConfirmer) Confirm(context.Context, string, string) (*models.Order, bool, error) {
	return nil, false, apperrors.Conflict("Order was changed by someone else")
}

func TestHandleMessage_ConflictIsTransient(t *testing.T) {
	c := consumer.NewOrderConfirmationConsumer(nil, conflictingConfirmer{}, nil, zap.NewNop())

	err := c.HandleMessage(context.Background(), `{"orderId":"o1","partitionKey":"Orders"}`)
	require.Error(t, err)
	assert.False(t, errors.Is(err, awspkg.ErrPoisonMessage))
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

type stubPoller struct {
	bodies []string
	errs   []error
}

func (p *stubPoller) StartPolling(ctx context.Context, handler awspkg.MessageHandler) error {
	for _, b := range p.bodies {
		p.errs = append(p.errs, handler(ctx, b))
	}
	return context.Canceled
}

func TestStart_RoutesMessagesToHandler(t *testing.T) {
	ctx := context.Background()
	_, orders := setup(t)
	o := pendingOrder(t, orders)

	poller := &stubPoller{bodies: []string{body(t, o), "garbage"}}
	svc := services.NewOrderService(orders, nil, nil, nil, nil, nil, zap.NewNop())
	c := consumer.NewOrderConfirmationConsumer(poller, svc, nil, zap.NewNop())

	c.Start(ctx)
	require.Len(t, poller.errs, 2)
	assert.NoError(t, poller.errs[0])
	assert.ErrorIs(t, poller.errs[1], awspkg.ErrPoisonMessage)
}
