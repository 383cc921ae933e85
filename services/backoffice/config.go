package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/database"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
)

// Config holds all environment variables for the back-office service.
type Config struct {
	Env  string
	Port string

	JWTSecret     string
	SessionTTL    time.Duration
	SecureCookies bool

	DB database.Settings

	ProductsTable  string
	CustomersTable string
	OrdersTable    string
	CartTable      string

	ImagesBucket    string
	DocumentsBucket string

	OrderQueueURL      string
	OrderQueueName     string
	OrderDLQURL        string
	OrderEventTopicArn string

	ConsumerEnabled     bool
	ConsumerWorkers     int
	ConsumerMaxReceives int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioSecure    bool
	FileShare      string
	ShareDirectory string

	RedisURL          string
	DashboardCacheTTL time.Duration

	StockReserveAttempts int

	MetricsEnabled    bool
	MetricsNamespace  string
	CloudWatchEnabled bool
	CloudWatchGroup   string

	CORSOrigins       []string
	AuthRatePerMinute int
	AuthRateBurst     int
}

// LoadConfig loads environment variables into Config and validates them.
// If AWS_USE_SECRETS=true the JWT secret and database credentials are read from
// Secrets Manager, falling back to env vars on failure.
func LoadConfig(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:  getEnv("APP_ENV", "development"),
		Port: getEnv("PORT", "8080"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		SessionTTL:    getDuration("SESSION_TTL", 8*time.Hour),
		SecureCookies: getBool("SECURE_COOKIES", false),

		DB: database.Settings{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Name:     getEnv("POSTGRES_DB", "abcretailers"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},

		ProductsTable:  getEnv("DDB_TABLE_PRODUCTS", "Products"),
		CustomersTable: getEnv("DDB_TABLE_CUSTOMERS", "Customers"),
		OrdersTable:    getEnv("DDB_TABLE_ORDERS", "Orders"),
		CartTable:      getEnv("DDB_TABLE_CART", "Cart"),

		ImagesBucket:    getEnv("S3_BUCKET_PRODUCT_IMAGES", services.ProductImagesContainer),
		DocumentsBucket: getEnv("S3_BUCKET_DOCUMENTS", services.DocumentsContainer),

		OrderQueueURL:      os.Getenv("ORDER_QUEUE_URL"),
		OrderQueueName:     os.Getenv("ORDER_QUEUE_NAME"),
		OrderDLQURL:        os.Getenv("ORDER_DLQ_URL"),
		OrderEventTopicArn: os.Getenv("ORDER_EVENTS_TOPIC_ARN"),

		ConsumerEnabled:     getBool("ORDER_CONSUMER_ENABLED", true),
		ConsumerWorkers:     getInt("ORDER_CONSUMER_WORKERS", 4),
		ConsumerMaxReceives: getInt("SQS_MAX_RECEIVES", 5),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioSecure:    getBool("MINIO_SECURE", false),
		FileShare:      getEnv("FILE_SHARE", services.DocumentsShare),
		ShareDirectory: getEnv("FILE_SHARE_DIRECTORY", services.UploadsDirectory),

		RedisURL:          os.Getenv("REDIS_URL"),
		DashboardCacheTTL: getDuration("DASHBOARD_CACHE_TTL", services.DefaultDashboardTTL),

		StockReserveAttempts: getInt("STOCK_RESERVE_ATTEMPTS", services.DefaultReserveAttempts),

		MetricsEnabled:    getBool("METRICS_ENABLED", false),
		MetricsNamespace:  getEnv("METRICS_NAMESPACE", "ABCRetailers/Backoffice"),
		CloudWatchEnabled: getBool("CLOUDWATCH_ENABLED", false),
		CloudWatchGroup:   getEnv("CLOUDWATCH_LOG_GROUP", "/abc-retailers/backoffice"),

		CORSOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRatePerMinute: getInt("AUTH_RATE_LIMIT_PER_MINUTE", 20),
		AuthRateBurst:     getInt("AUTH_RATE_LIMIT_BURST", 10),
	}

	if getBool("AWS_USE_SECRETS", false) {
		applySecrets(ctx, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applySecrets(ctx context.Context, cfg *Config) {
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return
	}
	sm := awspkg.NewSecretsClient(awsCfg)

	if jwt, err := sm.GetSecret(ctx, "backoffice/JWT_SECRET"); err == nil && jwt != "" {
		cfg.JWTSecret = jwt
	}
	if creds, err := sm.GetSecretMap(ctx, "backoffice/DB_CREDENTIALS"); err == nil {
		if v := creds["username"]; v != "" {
			cfg.DB.User = v
		}
		if v := creds["password"]; v != "" {
			cfg.DB.Password = v
		}
		if v := creds["host"]; v != "" {
			cfg.DB.Host = v
		}
	}
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 && c.Env == "production" {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.DB.User == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	if c.OrderQueueURL == "" && c.OrderQueueName == "" {
		return fmt.Errorf("ORDER_QUEUE_URL or ORDER_QUEUE_NAME is required")
	}
	if c.StockReserveAttempts <= 0 {
		return fmt.Errorf("STOCK_RESERVE_ATTEMPTS must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
