// Package fileshare implements a hierarchical file share (share / directory / file)
// on top of an S3-compatible MinIO server. A share is a bucket and directories are
// key prefixes.
package fileshare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrFileNotFound is returned when the share or file does not exist.
var ErrFileNotFound = errors.New("file not found")

// FileInfo describes a file or sub-directory in a share directory.
type FileInfo struct {
	Name         string    `json:"name"`
	Directory    string    `json:"directory"`
	IsDirectory  bool      `json:"isDirectory"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// NewMinioClient connects to a MinIO endpoint with static credentials.
func NewMinioClient(endpoint, accessKey, secretKey string, secure bool) (*minio.Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", endpoint, err)
	}
	return client, nil
}

type MinioShare struct {
	client *minio.Client
}

func NewMinioShare(client *minio.Client) *MinioShare {
	return &MinioShare{client: client}
}

// ObjectKey joins directory and file name. The file name is reduced to its base so
// callers cannot escape the directory.
func ObjectKey(directory, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	dir := strings.Trim(path.Clean("/"+directory), "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// EnsureShare creates the share if it does not exist.
func (s *MinioShare) EnsureShare(ctx context.Context, share string) error {
	exists, err := s.client.BucketExists(ctx, share)
	if err != nil {
		return fmt.Errorf("check share %s: %w", share, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, share, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create share %s: %w", share, err)
	}
	return nil
}

// CreateDirectory writes an empty directory marker.
func (s *MinioShare) CreateDirectory(ctx context.Context, share, directory string) error {
	key := strings.Trim(path.Clean("/"+directory), "/") + "/"
	if key == "/" {
		return nil
	}
	_, err := s.client.PutObject(ctx, share, key, bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("create directory %s/%s: %w", share, directory, err)
	}
	return nil
}

// Upload stores the file and returns its share path.
func (s *MinioShare) Upload(ctx context.Context, share, directory, filename string, body io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(directory, filename)
	_, err := s.client.PutObject(ctx, share, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", share, key, err)
	}
	return share + "/" + key, nil
}

// Download opens the file for reading. Callers must close the reader.
func (s *MinioShare) Download(ctx context.Context, share, directory, filename string) (io.ReadCloser, string, error) {
	key := ObjectKey(directory, filename)
	info, err := s.client.StatObject(ctx, share, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrFileNotFound
		}
		return nil, "", fmt.Errorf("stat %s/%s: %w", share, key, err)
	}
	obj, err := s.client.GetObject(ctx, share, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get %s/%s: %w", share, key, err)
	}
	return obj, info.ContentType, nil
}

// Delete removes the file. A missing file is ErrFileNotFound.
func (s *MinioShare) Delete(ctx context.Context, share, directory, filename string) error {
	exists, err := s.Exists(ctx, share, directory, filename)
	if err != nil {
		return err
	}
	if !exists {
		return ErrFileNotFound
	}
	key := ObjectKey(directory, filename)
	if err := s.client.RemoveObject(ctx, share, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", share, key, err)
	}
	return nil
}

func (s *MinioShare) Exists(ctx context.Context, share, directory, filename string) (bool, error) {
	_, err := s.client.StatObject(ctx, share, ObjectKey(directory, filename), minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s/%s: %w", share, filename, err)
	}
	return true, nil
}

// List returns the entries directly inside a directory. Sub-directories are
// returned with IsDirectory set and no size.
func (s *MinioShare) List(ctx context.Context, share, directory string) ([]FileInfo, error) {
	prefix := strings.Trim(path.Clean("/"+directory), "/")
	if prefix != "" {
		prefix += "/"
	}
	var files []FileInfo
	for obj := range s.client.ListObjects(ctx, share, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			if isNotFound(obj.Err) {
				return nil, ErrFileNotFound
			}
			return nil, fmt.Errorf("list %s/%s: %w", share, prefix, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" {
			continue
		}
		if strings.HasSuffix(name, "/") {
			files = append(files, FileInfo{
				Name:        strings.TrimSuffix(name, "/"),
				Directory:   strings.TrimSuffix(prefix, "/"),
				IsDirectory: true,
			})
			continue
		}
		files = append(files, FileInfo{
			Name:         name,
			Directory:    strings.TrimSuffix(prefix, "/"),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return files, nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}
