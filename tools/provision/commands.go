package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/pkg/fileshare"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/database"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	"github.com/yashrajoria/abc-retailers/backend/services/common/logger"
)

type options struct {
	tables     []string
	buckets    []string
	queues     []string
	share      string
	directory  string
	adminUser  string
	adminEmail string
	timeout    time.Duration
}

// runner carries the clients shared by every subcommand.
type runner struct {
	opts   *options
	log    *zap.Logger
	awsCfg sdkaws.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	r := &runner{opts: opts}

	root := &cobra.Command{
		Use:   "provision",
		Short: "Create the storage the back-office service runs against",
		Long: `Provision DynamoDB tables, S3 buckets, SQS queues and the MinIO file share.
Works against AWS or LocalStack (set AWS_ENDPOINT).

Examples:
  provision all
  provision tables --tables Products,Orders
  provision seed-admin --admin root        # password from ADMIN_PASSWORD`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.init(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if r.log != nil {
				_ = r.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringSliceVar(&opts.tables, "tables", splitEnv("PROVISION_TABLES", "Products,Customers,Orders,Cart"), "DynamoDB tables")
	pf.StringSliceVar(&opts.buckets, "buckets", splitEnv("PROVISION_BUCKETS", "productimages,documents"), "S3 buckets")
	pf.StringSliceVar(&opts.queues, "queues", splitEnv("PROVISION_QUEUES", "orders,orders-dlq"), "SQS queues")
	pf.StringVar(&opts.share, "share", envOr("FILE_SHARE", "documents"), "MinIO share (bucket)")
	pf.StringVar(&opts.directory, "directory", envOr("FILE_SHARE_DIRECTORY", "uploads"), "directory created inside the share")
	pf.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall deadline")

	seed := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an Admin user in the user database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return r.withTimeout(cmd.Context(), r.seedAdmin)
		},
	}
	seed.Flags().StringVar(&opts.adminUser, "admin", os.Getenv("ADMIN_USERNAME"), "admin username")
	seed.Flags().StringVar(&opts.adminEmail, "admin-email", envOr("ADMIN_EMAIL", "admin@abcretailers.local"), "admin email")

	root.AddCommand(
		&cobra.Command{
			Use:   "all",
			Short: "Provision tables, buckets, queues and the file share",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withTimeout(cmd.Context(), func(ctx context.Context) error {
					for _, step := range []func(context.Context) error{r.ensureTables, r.ensureBuckets, r.ensureQueues, r.ensureShare} {
						if err := step(ctx); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "tables",
			Short: "Create the DynamoDB tables",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withTimeout(cmd.Context(), r.ensureTables)
			},
		},
		&cobra.Command{
			Use:   "buckets",
			Short: "Create the S3 buckets",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withTimeout(cmd.Context(), r.ensureBuckets)
			},
		},
		&cobra.Command{
			Use:   "queues",
			Short: "Create the SQS queues",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withTimeout(cmd.Context(), r.ensureQueues)
			},
		},
		&cobra.Command{
			Use:   "share",
			Short: "Create the MinIO share and its upload directory",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return r.withTimeout(cmd.Context(), r.ensureShare)
			},
		},
		seed,
	)
	return root
}

func (r *runner) init(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := logger.New(envOr("APP_ENV", "development"), nil)
	if err != nil {
		return err
	}
	r.log = log

	cfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return err
	}
	r.awsCfg = cfg
	return nil
}

func (r *runner) withTimeout(parent context.Context, fn func(context.Context) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, r.opts.timeout)
	defer cancel()
	return fn(ctx)
}

func (r *runner) ensureTables(ctx context.Context) error {
	client := dynamodb.NewClientFromConfig(r.awsCfg)
	for _, t := range r.opts.tables {
		if err := dynamodb.EnsureTable(ctx, client, t); err != nil {
			return err
		}
		r.log.Info("Table ready", zap.String("table", t))
	}
	return nil
}

func (r *runner) ensureBuckets(ctx context.Context) error {
	blobs := awspkg.NewS3BlobStore(awspkg.NewS3Client(r.awsCfg))
	for _, b := range r.opts.buckets {
		if err := blobs.EnsureContainer(ctx, b); err != nil {
			return fmt.Errorf("bucket %s: %w", b, err)
		}
		r.log.Info("Bucket ready", zap.String("bucket", b))
	}
	return nil
}

func (r *runner) ensureQueues(ctx context.Context) error {
	client := awspkg.NewSQSClient(r.awsCfg)
	for _, q := range r.opts.queues {
		out, err := client.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: sdkaws.String(q)})
		if err != nil {
			return fmt.Errorf("queue %s: %w", q, err)
		}
		r.log.Info("Queue ready", zap.String("queue", q), zap.String("url", sdkaws.ToString(out.QueueUrl)))
	}
	return nil
}

func (r *runner) ensureShare(ctx context.Context) error {
	client, err := fileshare.NewMinioClient(envOr("MINIO_ENDPOINT", "localhost:9000"),
		os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), os.Getenv("MINIO_SECURE") == "true")
	if err != nil {
		return err
	}
	share := fileshare.NewMinioShare(client)
	if err := share.EnsureShare(ctx, r.opts.share); err != nil {
		return err
	}
	if err := share.CreateDirectory(ctx, r.opts.share, r.opts.directory); err != nil {
		return err
	}
	r.log.Info("File share ready", zap.String("share", r.opts.share), zap.String("directory", r.opts.directory))
	return nil
}

func (r *runner) seedAdmin(ctx context.Context) error {
	if r.opts.adminUser == "" {
		return fmt.Errorf("--admin (or ADMIN_USERNAME) is required")
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if len(password) < 6 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 6 characters")
	}

	db, err := database.Connect(database.Settings{
		Host:     envOr("POSTGRES_HOST", "localhost"),
		Port:     envOr("POSTGRES_PORT", "5432"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     envOr("POSTGRES_DB", "abcretailers"),
		SSLMode:  envOr("POSTGRES_SSLMODE", "disable"),
	}, r.log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	users := repository.NewUserRepository(db)
	if _, err := users.FindByUsername(ctx, r.opts.adminUser); err == nil {
		r.log.Info("Admin already present", zap.String("username", r.opts.adminUser))
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &models.User{
		Username:     r.opts.adminUser,
		Email:        r.opts.adminEmail,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}); err != nil {
		return err
	}
	r.log.Info("Admin user created", zap.String("username", r.opts.adminUser))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitEnv(key, fallback string) []string {
	var out []string
	for _, p := range strings.Split(envOr(key, fallback), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
