// Package consumer confirms placed orders as their queue messages arrive.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

// OrderConfirmer moves a Pending order to Confirmed.
type OrderConfirmer interface {
	Confirm(ctx context.Context, partitionKey, id string) (*models.Order, bool, error)
}

// Poller delivers queue messages to a handler until ctx is cancelled.
type Poller interface {
	StartPolling(ctx context.Context, handler awspkg.MessageHandler) error
}

type OrderConfirmationConsumer struct {
	queue   Poller
	orders  OrderConfirmer
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

func NewOrderConfirmationConsumer(queue Poller, orders OrderConfirmer, metrics *awspkg.MetricsClient, logger *zap.Logger) *OrderConfirmationConsumer {
	return &OrderConfirmationConsumer{queue: queue, orders: orders, metrics: metrics, logger: logger}
}

// Start polls until ctx is cancelled.
func (c *OrderConfirmationConsumer) Start(ctx context.Context) {
	c.logger.Info("Order confirmation consumer started")
	err := c.queue.StartPolling(ctx, c.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Order confirmation consumer stopped", zap.Error(err))
		return
	}
	c.logger.Info("Order confirmation consumer stopped")
}

// snsEnvelope is the wrapper SNS adds when a topic fans out to the queue.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

// HandleMessage confirms the order named by one queue message. Errors wrapping
// awspkg.ErrPoisonMessage are never retried.
func (c *OrderConfirmationConsumer) HandleMessage(ctx context.Context, body string) error {
	c.metrics.RecordCountAsync(awspkg.MetricSQSMessages, map[string]string{"Queue": "orders"})

	var env snsEnvelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Message != "" {
		body = env.Message
	}

	var msg models.OrderMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		c.deadLettered()
		return fmt.Errorf("%w: invalid JSON: %v", awspkg.ErrPoisonMessage, err)
	}
	if msg.OrderID == "" {
		c.deadLettered()
		return fmt.Errorf("%w: message carries no order id", awspkg.ErrPoisonMessage)
	}

	log := c.logger.With(zap.String("order_id", msg.OrderID))
	order, changed, err := c.orders.Confirm(ctx, msg.PartitionKey, msg.OrderID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.deadLettered()
		return fmt.Errorf("%w: order %s does not exist", awspkg.ErrPoisonMessage, msg.OrderID)
	case err != nil:
		// Conflicts and transport failures are retried on redelivery.
		return fmt.Errorf("confirm order %s: %w", msg.OrderID, err)
	case !changed:
		log.Debug("Order already past Pending, ignoring message", zap.String("status", string(order.Status)))
	default:
		log.Info("Order confirmed",
			zap.String("customer", msg.CustomerName),
			zap.String("product", msg.ProductName),
			zap.Int("quantity", msg.Quantity))
	}
	return nil
}

func (c *OrderConfirmationConsumer) deadLettered() {
	c.metrics.RecordCountAsync(awspkg.MetricSQSDeadLettered, map[string]string{"Queue": "orders"})
}
