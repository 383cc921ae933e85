package services

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/pkg/fileshare"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

const (
	DocumentsContainer = "documents"
	DocumentsShare     = "documents"
	UploadsDirectory   = "uploads"

	MaxBlobUploadSize  = 10 << 20
	MaxShareUploadSize = 20 << 20
	BlobURLExpiry      = 15 * time.Minute
)

var blobExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".pdf": true, ".doc": true, ".docx": true,
}

// FileLocations names where uploads go.
type FileLocations struct {
	BlobContainer  string
	Share          string
	ShareDirectory string
}

type UploadResult struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
	Size int64  `json:"size"`
}

type FileListing struct {
	Blobs      []awspkg.BlobInfo    `json:"blobs"`
	ShareFiles []fileshare.FileInfo `json:"shareFiles"`
}

// Download is an open file ready to stream. Callers close Body.
type Download struct {
	Name        string
	ContentType string
	Body        io.ReadCloser
}

type FileService struct {
	blobs   BlobStore
	share   FileShare
	loc     FileLocations
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

func NewFileService(blobs BlobStore, share FileShare, loc FileLocations, metrics *awspkg.MetricsClient, logger *zap.Logger) *FileService {
	if loc.BlobContainer == "" {
		loc.BlobContainer = DocumentsContainer
	}
	if loc.Share == "" {
		loc.Share = DocumentsShare
	}
	if loc.ShareDirectory == "" {
		loc.ShareDirectory = UploadsDirectory
	}
	return &FileService{blobs: blobs, share: share, loc: loc, metrics: metrics, logger: logger}
}

// ValidateBlobUpload checks the size and extension limits for blob uploads.
func ValidateBlobUpload(filename string, size int64) error {
	if size <= 0 {
		return apperrors.Validation("Please select a file to upload")
	}
	if size > MaxBlobUploadSize {
		return apperrors.Validation("File size cannot exceed 10MB")
	}
	if !blobExtensions[strings.ToLower(filepath.Ext(filename))] {
		return apperrors.Validation("Only images (jpg, jpeg, png, gif) and documents (pdf, doc, docx) can be uploaded")
	}
	return nil
}

func ValidateShareUpload(size int64) error {
	if size <= 0 {
		return apperrors.Validation("Please select a file to upload")
	}
	if size > MaxShareUploadSize {
		return apperrors.Validation("File size cannot exceed 20MB")
	}
	return nil
}

// UploadBlob stores a document under a generated name that keeps the extension.
func (s *FileService) UploadBlob(ctx context.Context, fh *multipart.FileHeader) (*UploadResult, error) {
	if err := ValidateBlobUpload(fh.Filename, fh.Size); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.Validation("Could not read the uploaded file")
	}
	defer f.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(fh.Filename))
	uri, err := s.blobs.Upload(ctx, s.loc.BlobContainer, name, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Error("Blob upload failed", zap.String("file", fh.Filename), zap.Error(err))
		return nil, apperrors.Transport("Could not store the file", err)
	}
	s.metrics.RecordCountAsync(awspkg.MetricFilesUploaded, map[string]string{"Target": "blob"})
	s.logger.Info("File uploaded to blob storage", zap.String("name", name), zap.Int64("size", fh.Size))
	return &UploadResult{Name: name, URI: uri, Size: fh.Size}, nil
}

// UploadShare stores a file under its original name in the uploads directory, or in
// subdir below it when subdir is set.
func (s *FileService) UploadShare(ctx context.Context, fh *multipart.FileHeader, subdir string) (*UploadResult, error) {
	if err := ValidateShareUpload(fh.Size); err != nil {
		return nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.Validation("Could not read the uploaded file")
	}
	defer f.Close()

	name := filepath.Base(fh.Filename)
	uri, err := s.share.Upload(ctx, s.loc.Share, s.shareDirectory(subdir), name, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Error("File share upload failed", zap.String("file", fh.Filename), zap.Error(err))
		return nil, apperrors.Transport("Could not store the file", err)
	}
	s.metrics.RecordCountAsync(awspkg.MetricFilesUploaded, map[string]string{"Target": "share"})
	return &UploadResult{Name: name, URI: uri, Size: fh.Size}, nil
}

// shareDirectory keeps subdir inside the uploads directory.
func (s *FileService) shareDirectory(subdir string) string {
	sub := strings.Trim(path.Clean("/"+strings.ReplaceAll(subdir, "\\", "/")), "/")
	if sub == "" {
		return s.loc.ShareDirectory
	}
	return s.loc.ShareDirectory + "/" + sub
}

// List returns every blob and the entries of one share directory. subdir names a
// folder below uploads; sub-folders show up as directory entries.
func (s *FileService) List(ctx context.Context, subdir string) (*FileListing, error) {
	blobs, err := s.blobs.List(ctx, s.loc.BlobContainer)
	if err != nil && !errors.Is(err, awspkg.ErrBlobNotFound) {
		return nil, apperrors.Transport("Could not list stored files", err)
	}
	files, err := s.share.List(ctx, s.loc.Share, s.shareDirectory(subdir))
	if err != nil && !errors.Is(err, fileshare.ErrFileNotFound) {
		return nil, apperrors.Transport("Could not list shared files", err)
	}
	if blobs == nil {
		blobs = []awspkg.BlobInfo{}
	}
	if files == nil {
		files = []fileshare.FileInfo{}
	}
	return &FileListing{Blobs: blobs, ShareFiles: files}, nil
}

func (s *FileService) DownloadBlob(ctx context.Context, name string) (*Download, error) {
	body, contentType, err := s.blobs.Download(ctx, s.loc.BlobContainer, name)
	if err != nil {
		return nil, fileError(err, name)
	}
	return &Download{Name: name, ContentType: contentType, Body: body}, nil
}

func (s *FileService) DownloadShare(ctx context.Context, name, subdir string) (*Download, error) {
	body, contentType, err := s.share.Download(ctx, s.loc.Share, s.shareDirectory(subdir), name)
	if err != nil {
		return nil, fileError(err, name)
	}
	return &Download{Name: name, ContentType: contentType, Body: body}, nil
}

func (s *FileService) DeleteBlob(ctx context.Context, name string) error {
	if err := s.blobs.Delete(ctx, s.loc.BlobContainer, name); err != nil {
		return fileError(err, name)
	}
	return nil
}

func (s *FileService) DeleteShare(ctx context.Context, name, subdir string) error {
	if err := s.share.Delete(ctx, s.loc.Share, s.shareDirectory(subdir), name); err != nil {
		return fileError(err, name)
	}
	return nil
}

// BlobURL returns a time-limited download link.
func (s *FileService) BlobURL(ctx context.Context, name string) (string, error) {
	url, err := s.blobs.PresignGet(ctx, s.loc.BlobContainer, name, BlobURLExpiry)
	if err != nil {
		return "", fileError(err, name)
	}
	return url, nil
}

func fileError(err error, name string) error {
	if errors.Is(err, awspkg.ErrBlobNotFound) || errors.Is(err, fileshare.ErrFileNotFound) {
		return apperrors.NotFound("File %s not found", name)
	}
	return apperrors.Transport("File storage is unavailable, please try again later", err)
}
