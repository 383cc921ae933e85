package aws

import (
	"context"
	"encoding/json"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher publishes typed events to an SNS topic.
type SNSPublisher interface {
	PublishEvent(ctx context.Context, topicArn, eventType string, payload interface{}) error
}

type SNSClient struct {
	client *sns.Client
}

func NewSNSClient(cfg sdkaws.Config) *SNSClient {
	return &SNSClient{client: sns.NewFromConfig(cfg)}
}

// PublishEvent marshals payload to JSON and publishes it with an eventType attribute
// so subscribers can filter.
func (s *SNSClient) PublishEvent(ctx context.Context, topicArn, eventType string, payload interface{}) error {
	if topicArn == "" {
		return fmt.Errorf("empty topicArn")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &topicArn,
		Message:  sdkaws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {DataType: sdkaws.String("String"), StringValue: sdkaws.String(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish failed for topic %s: %w", topicArn, err)
	}
	return nil
}
