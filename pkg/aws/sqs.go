package aws

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// ErrPoisonMessage marks a message that can never be processed. Handlers wrap it
// so the queue dead-letters the message instead of waiting for redelivery.
var ErrPoisonMessage = errors.New("poison message")

const pollErrorBackoff = 5 * time.Second

// SQSAPI is the subset of the SQS client used by SQSQueue.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// Message is a received queue message.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
	ReceiveCount  int
}

// MessageHandler processes a single message body.
type MessageHandler func(ctx context.Context, body string) error

// QueueOptions tunes polling and dead-lettering.
type QueueOptions struct {
	DeadLetterURL string
	// MaxReceives is the receive count after which a failing message is dead-lettered.
	MaxReceives       int
	Workers           int
	WaitTimeSeconds   int32
	VisibilityTimeout int32
}

// SQSQueue sends, receives and dead-letters messages on one queue.
type SQSQueue struct {
	client   SQSAPI
	queueURL string
	opts     QueueOptions
	logger   *zap.Logger
}

// NewSQSQueue creates a queue handle for the given queue URL.
func NewSQSQueue(client SQSAPI, queueURL string, opts QueueOptions, logger *zap.Logger) *SQSQueue {
	if opts.MaxReceives <= 0 {
		opts.MaxReceives = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.WaitTimeSeconds <= 0 {
		opts.WaitTimeSeconds = 20 // long polling
	}
	if opts.VisibilityTimeout <= 0 {
		opts.VisibilityTimeout = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQSQueue{client: client, queueURL: queueURL, opts: opts, logger: logger}
}

// NewSQSClient creates an SQS client from AWS config.
func NewSQSClient(cfg aws.Config) *sqs.Client {
	return sqs.NewFromConfig(cfg)
}

// QueueURLResolver looks a queue up by name.
type QueueURLResolver interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
}

// GetQueueURL retrieves the URL for a queue name
func GetQueueURL(ctx context.Context, client QueueURLResolver, queueName string) (string, error) {
	result, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: &queueName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get queue URL: %w", err)
	}
	return *result.QueueUrl, nil
}

// Send sends a single message and returns its id.
func (q *SQSQueue) Send(ctx context.Context, body string) (string, error) {
	out, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &q.queueURL,
		MessageBody: &body,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// Receive fetches up to max messages, waiting at most the configured long-poll time.
func (q *SQSQueue) Receive(ctx context.Context, max int32) ([]Message, error) {
	if max <= 0 || max > 10 {
		max = 10
	}
	result, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.queueURL,
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     q.opts.WaitTimeSeconds,
		VisibilityTimeout:   q.opts.VisibilityTimeout,
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	msgs := make([]Message, 0, len(result.Messages))
	for _, m := range result.Messages {
		if m.Body == nil {
			continue
		}
		count, _ := strconv.Atoi(m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
		msgs = append(msgs, Message{
			ID:            aws.ToString(m.MessageId),
			Body:          *m.Body,
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			ReceiveCount:  count,
		})
	}
	return msgs, nil
}

// Delete removes a received message using its receipt handle.
func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &q.queueURL,
		ReceiptHandle: &receiptHandle,
	}); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// Count returns the approximate number of visible messages.
func (q *SQSQueue) Count(ctx context.Context) (int, error) {
	out, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       &q.queueURL,
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameApproximateNumberOfMessages},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get queue attributes: %w", err)
	}
	n, err := strconv.Atoi(out.Attributes[string(types.QueueAttributeNameApproximateNumberOfMessages)])
	if err != nil {
		return 0, fmt.Errorf("invalid message count: %w", err)
	}
	return n, nil
}

// StartPolling polls the queue and processes messages with the handler on up to
// Workers goroutines. Runs until ctx is cancelled.
func (q *SQSQueue) StartPolling(ctx context.Context, handler MessageHandler) error {
	q.logger.Info("Starting SQS polling", zap.String("queue_url", q.queueURL), zap.Int("workers", q.opts.Workers))

	sem := make(chan struct{}, q.opts.Workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("SQS polling stopped", zap.String("queue_url", q.queueURL))
			return ctx.Err()
		default:
		}

		msgs, err := q.Receive(ctx, 10)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			q.logger.Error("Error polling SQS", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(pollErrorBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			sem <- struct{}{}
			wg.Add(1)
			go func(m Message) {
				defer func() {
					<-sem
					wg.Done()
				}()
				q.Process(ctx, m, handler)
			}(msg)
		}
	}
}

// Process runs the handler for one message. Successful messages are deleted, poison
// messages and messages past MaxReceives are dead-lettered, anything else is left to
// become visible again after the visibility timeout.
func (q *SQSQueue) Process(ctx context.Context, msg Message, handler MessageHandler) {
	err := handler(ctx, msg.Body)
	if err == nil {
		if err := q.Delete(ctx, msg.ReceiptHandle); err != nil {
			q.logger.Error("Failed to delete message", zap.String("message_id", msg.ID), zap.Error(err))
		}
		return
	}

	if !errors.Is(err, ErrPoisonMessage) && msg.ReceiveCount < q.opts.MaxReceives {
		q.logger.Warn("Failed to process message, will be redelivered",
			zap.String("message_id", msg.ID),
			zap.Int("receive_count", msg.ReceiveCount),
			zap.Error(err))
		return
	}

	q.logger.Error("Dead-lettering message",
		zap.String("message_id", msg.ID),
		zap.Int("receive_count", msg.ReceiveCount),
		zap.Error(err))
	if q.opts.DeadLetterURL != "" {
		if _, dlqErr := q.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(q.opts.DeadLetterURL),
			MessageBody: aws.String(msg.Body),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"error": {DataType: aws.String("String"), StringValue: aws.String(err.Error())},
			},
		}); dlqErr != nil {
			// keep the message on the source queue so it is not lost
			q.logger.Error("Failed to forward message to dead-letter queue", zap.String("message_id", msg.ID), zap.Error(dlqErr))
			return
		}
	}
	if err := q.Delete(ctx, msg.ReceiptHandle); err != nil {
		q.logger.Error("Failed to delete dead-lettered message", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
