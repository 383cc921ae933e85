package aws

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	defaultRegion      = "us-east-1"
	defaultMaxAttempts = 5
	defaultMaxBackoff  = 5 * time.Second
)

// LoadAWSConfig loads AWS config with the standard retryer (exponential backoff with jitter)
// and supports LocalStack through AWS_ENDPOINT. Retry behaviour is tuned with AWS_MAX_ATTEMPTS
// and AWS_MAX_BACKOFF (a Go duration).
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = defaultRegion
	}

	maxAttempts := defaultMaxAttempts
	if v, err := strconv.Atoi(os.Getenv("AWS_MAX_ATTEMPTS")); err == nil && v > 0 {
		maxAttempts = v
	}
	maxBackoff := defaultMaxBackoff
	if v, err := time.ParseDuration(os.Getenv("AWS_MAX_BACKOFF")); err == nil && v > 0 {
		maxBackoff = v
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithRetryer(func() sdkaws.Retryer {
			return NewRetryer(maxAttempts, maxBackoff)
		}),
	}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" || secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secret, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load aws config: %w", err)
	}

	// Same endpoint for every service so the LocalStack edge port is used.
	if endpoint := os.Getenv("AWS_ENDPOINT"); endpoint != "" {
		cfg.BaseEndpoint = sdkaws.String(endpoint)
	}

	return cfg, nil
}

// NewRetryer returns the SDK standard retryer with exponential jittered backoff capped at maxBackoff.
func NewRetryer(maxAttempts int, maxBackoff time.Duration) sdkaws.Retryer {
	return retry.NewStandard(func(o *retry.StandardOptions) {
		o.MaxAttempts = maxAttempts
		o.MaxBackoff = maxBackoff
		o.Backoff = retry.NewExponentialJitterBackoff(maxBackoff)
	})
}
