package controllers

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type FileAPI interface {
	UploadBlob(ctx context.Context, fh *multipart.FileHeader) (*services.UploadResult, error)
	UploadShare(ctx context.Context, fh *multipart.FileHeader, subdir string) (*services.UploadResult, error)
	List(ctx context.Context, subdir string) (*services.FileListing, error)
	DownloadBlob(ctx context.Context, name string) (*services.Download, error)
	DownloadShare(ctx context.Context, name, subdir string) (*services.Download, error)
	DeleteBlob(ctx context.Context, name string) error
	DeleteShare(ctx context.Context, name, subdir string) error
	BlobURL(ctx context.Context, name string) (string, error)
}

type FileController struct {
	service FileAPI
}

func NewFileController(service FileAPI) *FileController {
	return &FileController{service: service}
}

// ListFiles takes an optional ?directory= naming a share folder under uploads.
func (fc *FileController) ListFiles(c *gin.Context) {
	listing, err := fc.service.List(c.Request.Context(), c.Query("directory"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// UploadBlob handles POST /files/blob with a multipart "file" field.
func (fc *FileController) UploadBlob(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("Please select a file to upload"))
		return
	}
	res, err := fc.service.UploadBlob(c.Request.Context(), fh)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// UploadShare accepts an optional "directory" field naming a folder under uploads.
func (fc *FileController) UploadShare(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		apperrors.Respond(c, apperrors.Validation("Please select a file to upload"))
		return
	}
	res, err := fc.service.UploadShare(c.Request.Context(), fh, c.PostForm("directory"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (fc *FileController) DownloadBlob(c *gin.Context) {
	d, err := fc.service.DownloadBlob(c.Request.Context(), c.Param("name"))
	fc.stream(c, d, err)
}

func (fc *FileController) DownloadShare(c *gin.Context) {
	d, err := fc.service.DownloadShare(c.Request.Context(), c.Param("name"), c.Query("directory"))
	fc.stream(c, d, err)
}

func (fc *FileController) stream(c *gin.Context, d *services.Download, err error) {
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	defer d.Body.Close()
	contentType := d.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, d.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, d.Name),
	})
}

func (fc *FileController) DeleteBlob(c *gin.Context) {
	if err := fc.service.DeleteBlob(c.Request.Context(), c.Param("name")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

func (fc *FileController) DeleteShare(c *gin.Context) {
	if err := fc.service.DeleteShare(c.Request.Context(), c.Param("name"), c.Query("directory")); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully"})
}

// BlobURL returns a short-lived presigned link to a blob.
func (fc *FileController) BlobURL(c *gin.Context) {
	url, err := fc.service.BlobURL(c.Request.Context(), c.Param("name"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
