package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

func TestProductService_CreateWithImageAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	blobs := newFakeBlobs()
	svc := services.NewProductService(f.products, blobs, "", nil, zap.NewNop())

	img := fileHeader(t, "image", "kettle.PNG", []byte("png-bytes"))
	p, err := svc.Create(ctx, services.ProductInput{Name: " Kettle ", Price: 20, Category: "Kitchen", StockQuantity: 3}, img)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", p.Name)
	assert.Contains(t, p.ImageURL, services.ProductImagesContainer+"/")
	assert.Len(t, blobs.objects, 1)

	require.NoError(t, svc.Delete(ctx, p.RowKey))
	assert.Empty(t, blobs.objects)
	_, err = svc.Get(ctx, p.RowKey)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductService_RejectsBadImages(t *testing.T) {
	f := newFixture(t)
	svc := services.NewProductService(f.products, newFakeBlobs(), "", nil, zap.NewNop())

	_, err := svc.Create(context.Background(), services.ProductInput{Name: "Kettle", Price: 20},
		fileHeader(t, "image", "kettle.exe", []byte("MZ")))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Zero(t, f.fake.Len("Products"))
}

func TestProductService_UploadFailureIsTransport(t *testing.T) {
	f := newFixture(t)
	blobs := newFakeBlobs()
	blobs.err = errBoom
	svc := services.NewProductService(f.products, blobs, "", nil, zap.NewNop())

	_, err := svc.Create(context.Background(), services.ProductInput{Name: "Kettle", Price: 20},
		fileHeader(t, "image", "kettle.jpg", []byte("jpg")))
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, 503, apperrors.HTTPStatus(err))
}

func TestProductService_UpdateWithStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := services.NewProductService(f.products, newFakeBlobs(), "", nil, zap.NewNop())
	p := f.addProduct(t, "p1", "Kettle", 20, 5)

	updated, err := svc.Update(ctx, "p1", p.Version, services.ProductInput{Name: "Kettle", Price: 22, StockQuantity: 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, p.Version+1, updated.Version)

	_, err = svc.Update(ctx, "p1", p.Version, services.ProductInput{Name: "Kettle", Price: 25, StockQuantity: 5}, nil)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	got, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 22.0, got.Price)
}

func TestProductService_ListSearchCategoriesAndLowStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := services.NewProductService(f.products, newFakeBlobs(), "", nil, zap.NewNop())
	f.addProduct(t, "p1", "Steel Kettle", 20, 50)
	f.addProduct(t, "p2", "Toaster", 30, 2)
	toaster, err := f.products.FindByID(ctx, "p2")
	require.NoError(t, err)
	toaster.Category = "Appliances"
	toaster.Description = "Two slice"
	require.NoError(t, f.products.Update(ctx, toaster))

	found, err := svc.List(ctx, services.ProductFilter{Search: "slice"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].RowKey)

	byCategory, err := svc.List(ctx, services.ProductFilter{Category: "general"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "p1", byCategory[0].RowKey)

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Appliances", "General"}, cats)

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "p2", low[0].RowKey)
}
