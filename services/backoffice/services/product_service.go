package services

import (
	"context"
	"mime/multipart"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

const (
	ProductImagesContainer = "productimages"
	LowStockThreshold      = 10
	maxImageSize           = 10 << 20
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

type ProductFilter struct {
	Search   string
	Category string
}

type ProductInput struct {
	Name          string  `json:"name" form:"name" validate:"required,max=100"`
	Description   string  `json:"description" form:"description" validate:"max=1000"`
	Price         float64 `json:"price" form:"price" validate:"gt=0"`
	Category      string  `json:"category" form:"category" validate:"max=50"`
	StockQuantity int     `json:"stockQuantity" form:"stockQuantity" validate:"gte=0"`
}

type ProductService struct {
	products  repository.ProductRepo
	blobs     BlobStore
	container string
	metrics   *awspkg.MetricsClient
	logger    *zap.Logger
}

func NewProductService(products repository.ProductRepo, blobs BlobStore, container string, metrics *awspkg.MetricsClient, logger *zap.Logger) *ProductService {
	if container == "" {
		container = ProductImagesContainer
	}
	return &ProductService{products: products, blobs: blobs, container: container, metrics: metrics, logger: logger}
}

// List returns products sorted by name.
func (s *ProductService) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	all, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, "Products")
	}
	out := make([]models.Product, 0, len(all))
	for i := range all {
		p := &all[i]
		if filter.Category != "" && !strings.EqualFold(p.Category, filter.Category) {
			continue
		}
		if !p.Matches(filter.Search) {
			continue
		}
		out = append(out, *p)
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

// Categories returns the distinct non-empty categories in use.
func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	all, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, "Products")
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range all {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Product")
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput, image *multipart.FileHeader) (*models.Product, error) {
	p := &models.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		Category:      strings.TrimSpace(in.Category),
		StockQuantity: in.StockQuantity,
		CreatedDate:   time.Now().UTC(),
	}
	p.RowKey = uuid.NewString()
	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		p.ImageURL = url
	}
	if err := s.products.Create(ctx, p); err != nil {
		s.deleteImage(ctx, p.ImageURL)
		return nil, storeError(err, "Product")
	}
	s.metrics.RecordCountAsync(awspkg.MetricProductsCreated, nil)
	s.logger.Info("Product created", zap.String("product_id", p.RowKey), zap.String("name", p.Name))
	return p, nil
}

// Update overwrites a product if version still matches the stored row.
func (s *ProductService) Update(ctx context.Context, id string, version int64, in ProductInput, image *multipart.FileHeader) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Product")
	}
	if version != 0 && version != p.Version {
		return nil, apperrors.Conflict("Product was changed by someone else. Reload and try again")
	}

	oldImage := p.ImageURL
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Category = strings.TrimSpace(in.Category)
	p.StockQuantity = in.StockQuantity
	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		p.ImageURL = url
	}

	if err := s.products.Update(ctx, p); err != nil {
		if p.ImageURL != oldImage {
			s.deleteImage(ctx, p.ImageURL)
		}
		return nil, storeError(err, "Product")
	}
	if p.ImageURL != oldImage {
		s.deleteImage(ctx, oldImage)
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "Product")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return storeError(err, "Product")
	}
	s.deleteImage(ctx, p.ImageURL)
	return nil
}

// LowStock returns products with fewer than LowStockThreshold units, lowest first.
func (s *ProductService) LowStock(ctx context.Context) ([]models.Product, error) {
	all, err := s.products.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, "Products")
	}
	return lowStock(all), nil
}

func lowStock(all []models.Product) []models.Product {
	out := []models.Product{}
	for _, p := range all {
		if p.StockQuantity < LowStockThreshold {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StockQuantity < out[j].StockQuantity })
	return out
}

func (s *ProductService) uploadImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExtensions[ext] {
		return "", apperrors.Validation("Product images must be .jpg, .jpeg, .png or .gif")
	}
	if fh.Size > maxImageSize {
		return "", apperrors.Validation("Product images may not exceed 10MB")
	}
	f, err := fh.Open()
	if err != nil {
		return "", apperrors.Validation("Could not read the uploaded image")
	}
	defer f.Close()

	name := uuid.NewString() + ext
	url, err := s.blobs.Upload(ctx, s.container, name, f, fh.Size, fh.Header.Get("Content-Type"))
	if err != nil {
		s.logger.Error("Product image upload failed", zap.String("file", fh.Filename), zap.Error(err))
		return "", apperrors.Transport("Could not store the product image", err)
	}
	return url, nil
}

func (s *ProductService) deleteImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	name := awspkg.BlobNameFromURI(url)
	if err := s.blobs.Delete(ctx, s.container, name); err != nil {
		s.logger.Warn("Failed to delete product image", zap.String("blob", name), zap.Error(err))
	}
}
