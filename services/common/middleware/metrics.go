package middleware

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
)

// MetricsMiddleware creates a Gin middleware that tracks HTTP metrics
func MetricsMiddleware(metricsClient *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// Route template rather than raw path keeps dimension cardinality bounded.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dimensions := map[string]string{
			"Service": serviceName,
			"Method":  method,
			"Route":   route,
			"Status":  statusCodeToRange(statusCode),
		}

		// One batched PutMetricData call per request, off the request goroutine.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			names := []string{awspkg.MetricHTTPRequests}
			switch {
			case statusCode >= 500:
				names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP5xx)
			case statusCode >= 400:
				names = append(names, awspkg.MetricHTTPErrors, awspkg.MetricHTTP4xx)
			}

			now := time.Now()
			dims := toDimensions(dimensions)
			data := make([]types.MetricDatum, 0, len(names)+1)
			for _, name := range names {
				data = append(data, types.MetricDatum{
					MetricName: aws.String(name),
					Value:      aws.Float64(1),
					Unit:       types.StandardUnitCount,
					Timestamp:  aws.Time(now),
					Dimensions: dims,
				})
			}
			data = append(data, types.MetricDatum{
				MetricName: aws.String(awspkg.MetricHTTPLatency),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       types.StandardUnitMilliseconds,
				Timestamp:  aws.Time(now),
				Dimensions: dims,
			})
			_ = metricsClient.PutMetricBatch(ctx, data)
		}()
	}
}

func toDimensions(m map[string]string) []types.Dimension {
	dims := make([]types.Dimension, 0, len(m))
	for k, v := range m {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}
	return dims
}

// statusCodeToRange converts status code to a range string (2xx, 3xx, 4xx, 5xx)
func statusCodeToRange(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
