package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/abc-retailers/backend/pkg/aws"
	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb/dynamodbtest"
	"github.com/yashrajoria/abc-retailers/backend/pkg/fileshare"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
)

type fakeQueue struct {
	mu       sync.Mutex
	bodies   []string
	err      error
	countErr error
}

func (q *fakeQueue) Send(_ context.Context, body string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.bodies = append(q.bodies, body)
	return fmt.Sprintf("msg-%d", len(q.bodies)), nil
}

func (q *fakeQueue) Count(context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.countErr != nil {
		return 0, q.countErr
	}
	return len(q.bodies), nil
}

func (q *fakeQueue) Sent() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.bodies...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (e *fakeEvents) PublishEvent(_ context.Context, _, eventType string, _ interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, eventType)
	return nil
}

type fixture struct {
	fake      *dynamodbtest.Fake
	products  *repository.ProductRepository
	customers *repository.CustomerRepository
	carts     *repository.CartRepository
	orders    *repository.OrderRepository
	queue     *fakeQueue
	events    *fakeEvents

	cart     *services.CartService
	checkout *services.CheckoutService
	orderSvc *services.OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	fake := dynamodbtest.NewFake()
	f := &fixture{
		fake:      fake,
		products:  repository.NewProductRepository(dynamodb.NewTable(fake, "Products")),
		customers: repository.NewCustomerRepository(dynamodb.NewTable(fake, "Customers")),
		carts:     repository.NewCartRepository(dynamodb.NewTable(fake, "Cart")),
		orders:    repository.NewOrderRepository(dynamodb.NewTable(fake, "Orders")),
		queue:     &fakeQueue{},
		events:    &fakeEvents{},
	}
	stock := services.NewStockReserver(f.products, 3, nil, logger)
	dispatcher := services.NewOrderDispatcher(f.queue, f.events, "arn:aws:sns:us-east-1:000000000000:orders", nil, logger)
	f.cart = services.NewCartService(f.carts, f.products, logger)
	f.checkout = services.NewCheckoutService(f.carts, f.products, f.orders, f.customers, stock, dispatcher, nil, logger)
	f.orderSvc = services.NewOrderService(f.orders, f.customers, f.products, stock, dispatcher, nil, logger)
	return f
}

func (f *fixture) addProduct(t *testing.T, id, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, StockQuantity: stock, Category: "General", CreatedDate: time.Now().UTC()}
	p.RowKey = id
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) addCustomer(t *testing.T, id, first, last, email string) *models.Customer {
	t.Helper()
	c := &models.Customer{FirstName: first, LastName: last, Email: email}
	c.RowKey = id
	require.NoError(t, f.customers.Create(context.Background(), c))
	return c
}

func (f *fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

// fakeBlobs is an in-memory BlobStore.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeBlobs() *fakeBlobs { return &fakeBlobs{objects: map[string][]byte{}} }

func (b *fakeBlobs) Upload(_ context.Context, container, name string, body io.Reader, _ int64, _ string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[container+"/"+name] = data
	return "s3://" + container + "/" + name, nil
}

func (b *fakeBlobs) Download(_ context.Context, container, name string) (io.ReadCloser, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[container+"/"+name]
	if !ok {
		return nil, "", awspkg.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "application/octet-stream", nil
}

func (b *fakeBlobs) Delete(_ context.Context, container, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[container+"/"+name]; !ok {
		return awspkg.ErrBlobNotFound
	}
	delete(b.objects, container+"/"+name)
	return nil
}

func (b *fakeBlobs) List(_ context.Context, container string) ([]awspkg.BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []awspkg.BlobInfo
	for key, data := range b.objects {
		if len(key) > len(container) && key[:len(container)+1] == container+"/" {
			out = append(out, awspkg.BlobInfo{Name: key[len(container)+1:], Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (b *fakeBlobs) PresignGet(_ context.Context, container, name string, expiry time.Duration) (string, error) {
	if _, ok := b.objects[container+"/"+name]; !ok {
		return "", awspkg.ErrBlobNotFound
	}
	return "https://blobs.local/" + container + "/" + name + "?expires=" + expiry.String(), nil
}

// fakeShare is an in-memory FileShare.
type fakeShare struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeShare() *fakeShare { return &fakeShare{files: map[string][]byte{}} }

func (s *fakeShare) Upload(_ context.Context, share, dir, filename string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := share + "/" + fileshare.ObjectKey(dir, filename)
	s.files[key] = data
	return key, nil
}

func (s *fakeShare) Download(_ context.Context, share, dir, filename string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[share+"/"+fileshare.ObjectKey(dir, filename)]
	if !ok {
		return nil, "", fileshare.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "text/plain", nil
}

func (s *fakeShare) Delete(_ context.Context, share, dir, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := share + "/" + fileshare.ObjectKey(dir, filename)
	if _, ok := s.files[key]; !ok {
		return fileshare.ErrFileNotFound
	}
	delete(s.files, key)
	return nil
}

// List mirrors a non-recursive MinIO listing: files directly in dir, plus one
// entry per sub-directory.
func (s *fakeShare) List(_ context.Context, share, dir string) ([]fileshare.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []fileshare.FileInfo
	seen := map[string]bool{}
	prefix := share + "/" + dir + "/"
	for key, data := range s.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			sub := rest[:i]
			if !seen[sub] {
				seen[sub] = true
				out = append(out, fileshare.FileInfo{Name: sub, Directory: dir, IsDirectory: true})
			}
			continue
		}
		out = append(out, fileshare.FileInfo{Name: rest, Directory: dir, Size: int64(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// fileHeader builds a multipart file header as a handler would receive it.
func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	_, fh, err := req.FormFile(field)
	require.NoError(t, err)
	return fh
}

var errBoom = errors.New("boom")

var (
	_ services.BlobStore  = (*fakeBlobs)(nil)
	_ services.FileShare  = (*fakeShare)(nil)
	_ services.OrderQueue = (*fakeQueue)(nil)
	_ services.QueueDepth = (*fakeQueue)(nil)
)

func zapNop() *zap.Logger { return zap.NewNop() }
