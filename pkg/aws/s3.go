package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrBlobNotFound is returned when a container or blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes a stored blob.
type BlobInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// NewS3Client creates a new S3 client from AWS config. Path-style addressing keeps
// bucket names out of the host so LocalStack works without DNS tricks.
func NewS3Client(cfg sdkaws.Config) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
}

// S3BlobStore stores blobs in S3, one bucket per container.
type S3BlobStore struct {
	client    *s3.Client
	uploader  *manager.Uploader
	presigner *s3.PresignClient
}

func NewS3BlobStore(client *s3.Client) *S3BlobStore {
	return &S3BlobStore{
		client:    client,
		uploader:  manager.NewUploader(client),
		presigner: s3.NewPresignClient(client),
	}
}

// Upload writes the blob and returns its URI.
func (s *S3BlobStore) Upload(ctx context.Context, container, name string, body io.Reader, size int64, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: &container,
		Key:    &name,
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = &contentType
	}
	if size > 0 {
		input.ContentLength = &size
	}
	out, err := s.uploader.Upload(ctx, input)
	if err != nil {
		return "", fmt.Errorf("s3 upload %s/%s failed: %w", container, name, err)
	}
	if out.Location != "" {
		return out.Location, nil
	}
	return fmt.Sprintf("s3://%s/%s", container, name), nil
}

// Download opens the blob for reading. Callers must close the reader.
func (s *S3BlobStore) Download(ctx context.Context, container, name string) (io.ReadCloser, string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &container, Key: &name})
	if err != nil {
		if isS3NotFound(err) {
			return nil, "", ErrBlobNotFound
		}
		return nil, "", fmt.Errorf("s3 get %s/%s failed: %w", container, name, err)
	}
	return out.Body, sdkaws.ToString(out.ContentType), nil
}

// Delete removes a blob. A missing blob is ErrBlobNotFound.
func (s *S3BlobStore) Delete(ctx context.Context, container, name string) error {
	exists, err := s.Exists(ctx, container, name)
	if err != nil {
		return err
	}
	if !exists {
		return ErrBlobNotFound
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &container, Key: &name}); err != nil {
		return fmt.Errorf("s3 delete %s/%s failed: %w", container, name, err)
	}
	return nil
}

// List returns every blob in the container.
func (s *S3BlobStore) List(ctx context.Context, container string) ([]BlobInfo, error) {
	var blobs []BlobInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: &container})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isS3NotFound(err) {
				return nil, ErrBlobNotFound
			}
			return nil, fmt.Errorf("s3 list %s failed: %w", container, err)
		}
		for _, obj := range page.Contents {
			blobs = append(blobs, BlobInfo{
				Name:         sdkaws.ToString(obj.Key),
				Size:         sdkaws.ToInt64(obj.Size),
				LastModified: sdkaws.ToTime(obj.LastModified),
			})
		}
	}
	return blobs, nil
}

func (s *S3BlobStore) Exists(ctx context.Context, container, name string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &container, Key: &name})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("s3 head %s/%s failed: %w", container, name, err)
	}
	return true, nil
}

// PresignGet generates a presigned GET URL valid for expiry.
func (s *S3BlobStore) PresignGet(ctx context.Context, container, name string, expiry time.Duration) (string, error) {
	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &container, Key: &name},
		func(o *s3.PresignOptions) {
			o.Expires = expiry
		})
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return presigned.URL, nil
}

// EnsureContainer creates the bucket if it does not exist yet.
func (s *S3BlobStore) EnsureContainer(ctx context.Context, container string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &container})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create bucket %s failed: %w", container, err)
	}
	return nil
}

// BlobNameFromURI extracts the blob name from a URI returned by Upload.
func BlobNameFromURI(uri string) string {
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

func isS3NotFound(err error) bool {
	var noKey *types.NoSuchKey
	var noBucket *types.NoSuchBucket
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &noBucket) || errors.As(err, &notFound)
}
