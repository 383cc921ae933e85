package services

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
)

const EventOrderPlaced = "OrderPlaced"

// OrderDispatcher announces stored orders on the order queue and, when a topic is
// configured, as an OrderPlaced event. Both are best effort: the order row is the
// source of truth.
type OrderDispatcher struct {
	queue    OrderQueue
	events   awspkg.SNSPublisher
	topicArn string
	metrics  *awspkg.MetricsClient
	logger   *zap.Logger
}

func NewOrderDispatcher(queue OrderQueue, events awspkg.SNSPublisher, topicArn string, metrics *awspkg.MetricsClient, logger *zap.Logger) *OrderDispatcher {
	return &OrderDispatcher{queue: queue, events: events, topicArn: topicArn, metrics: metrics, logger: logger}
}

// Dispatch reports whether the queue accepted the message.
func (d *OrderDispatcher) Dispatch(ctx context.Context, order *models.Order) bool {
	msg := models.NewOrderMessage(order)
	queued := false

	if d.queue != nil {
		body, err := json.Marshal(msg)
		if err != nil {
			d.logger.Error("Failed to marshal order message", zap.String("order_id", order.RowKey), zap.Error(err))
		} else if id, err := d.queue.Send(ctx, string(body)); err != nil {
			d.metrics.RecordCountAsync(awspkg.MetricOrderQueueFailures, nil)
			d.logger.Warn("Failed to queue order message", zap.String("order_id", order.RowKey), zap.Error(err))
		} else {
			queued = true
			d.logger.Debug("Order message queued", zap.String("order_id", order.RowKey), zap.String("message_id", id))
		}
	}

	if d.events != nil && d.topicArn != "" {
		if err := d.events.PublishEvent(ctx, d.topicArn, EventOrderPlaced, msg); err != nil {
			d.logger.Warn("SNS publish failed", zap.String("order_id", order.RowKey), zap.Error(err))
		}
	}
	return queued
}
