package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	"github.com/yashrajoria/abc-retailers/backend/services/common/auth"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
	"github.com/yashrajoria/abc-retailers/backend/services/common/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var shopper = &auth.Principal{UserID: 7, Username: "alice", Email: "alice@example.com", Role: models.RoleCustomer, CustomerID: "cust-1"}

func withUser(p *auth.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			middleware.SetCurrentUser(c, p)
		}
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type noopInvalidator struct{ calls int }

func (n *noopInvalidator) Invalidate(context.Context) { n.calls++ }

// ---- cart ----

type fakeCart struct {
	lines     []models.CartLine
	addedFor  string
	addedQty  int
	updateErr error
}

func (f *fakeCart) Add(_ context.Context, userID, productID string, qty int) (*models.CartLine, error) {
	f.addedFor, f.addedQty = userID, qty
	if productID == "missing" {
		return nil, apperrors.NotFound("Product not found")
	}
	line := models.CartLine{ProductID: productID, ProductName: "Widget", Quantity: qty, Price: 2}
	f.lines = append(f.lines, line)
	return &line, nil
}

func (f *fakeCart) Update(_ context.Context, _, _ string, qty int) (*models.CartLine, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if qty <= 0 {
		return nil, nil
	}
	return &models.CartLine{Quantity: qty}, nil
}

func (f *fakeCart) Remove(context.Context, string, string) error { return nil }

func (f *fakeCart) List(context.Context, string) (*services.CartView, error) {
	return &services.CartView{Lines: f.lines, TotalItems: len(f.lines)}, nil
}

func (f *fakeCart) Count(context.Context, string) (int, error) { return len(f.lines), nil }

type fakeCheckout struct {
	err    error
	orders []models.Order
	buyer  services.Buyer
}

func (f *fakeCheckout) PrepareCheckout(context.Context, string) (*services.CheckoutSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.CheckoutSummary{GrandTotal: 10}, nil
}

func (f *fakeCheckout) PlaceOrder(_ context.Context, buyer services.Buyer) ([]models.Order, error) {
	f.buyer = buyer
	return f.orders, f.err
}

func cartRouter(cart *fakeCart, checkout *fakeCheckout, p *auth.Principal) *gin.Engine {
	r := gin.New()
	cc := NewCartController(cart, checkout, NewRequestValidator())
	g := r.Group("/cart", withUser(p))
	g.GET("", cc.GetCart)
	g.POST("/add", cc.AddToCart)
	g.POST("/update", cc.UpdateCart)
	g.GET("/checkout", cc.Checkout)
	g.POST("/placeorder", cc.PlaceOrder)
	g.GET("/count", cc.CartCount)
	return r
}

func TestCart_RequiresUser(t *testing.T) {
	r := cartRouter(&fakeCart{}, &fakeCheckout{}, nil)
	w := doJSON(r, http.MethodGet, "/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCart_AddDefaultsQuantityAndUsesUserID(t *testing.T) {
	cart := &fakeCart{}
	r := cartRouter(cart, &fakeCheckout{}, shopper)

	w := doJSON(r, http.MethodPost, "/cart/add", gin.H{"productId": "p1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", cart.addedFor)
	assert.Equal(t, 1, cart.addedQty)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["cartCount"])
}

func TestCart_AddValidation(t *testing.T) {
	r := cartRouter(&fakeCart{}, &fakeCheckout{}, shopper)
	w := doJSON(r, http.MethodPost, "/cart/add", gin.H{"quantity": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.KindValidation), decode(t, w)["kind"])
}

func TestCart_AddMissingProduct(t *testing.T) {
	r := cartRouter(&fakeCart{}, &fakeCheckout{}, shopper)
	w := doJSON(r, http.MethodPost, "/cart/add", gin.H{"productId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCart_UpdateToZeroRemoves(t *testing.T) {
	r := cartRouter(&fakeCart{}, &fakeCheckout{}, shopper)
	w := doJSON(r, http.MethodPost, "/cart/update", gin.H{"rowKey": "l1", "quantity": 0})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Item removed from cart", decode(t, w)["message"])
}

func TestCart_CheckoutEmpty(t *testing.T) {
	r := cartRouter(&fakeCart{}, &fakeCheckout{err: apperrors.ErrEmptyCart}, shopper)
	w := doJSON(r, http.MethodGet, "/cart/checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.KindEmptyCart), decode(t, w)["kind"])
}

func TestCart_PlaceOrder(t *testing.T) {
	checkout := &fakeCheckout{orders: []models.Order{{ProductID: "p1", Quantity: 1}}}
	r := cartRouter(&fakeCart{}, checkout, shopper)

	w := doJSON(r, http.MethodPost, "/cart/placeorder", nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "7", checkout.buyer.UserID)
	assert.Equal(t, "cust-1", checkout.buyer.CustomerID)
}

func TestCart_PlaceOrderInsufficientStock(t *testing.T) {
	checkout := &fakeCheckout{err: apperrors.InsufficientStock("Insufficient stock for Widget")}
	r := cartRouter(&fakeCart{}, checkout, shopper)

	w := doJSON(r, http.MethodPost, "/cart/placeorder", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Widget")
}

func TestCart_PlaceOrderPartialFailureListsPlacedOrders(t *testing.T) {
	checkout := &fakeCheckout{err: &services.PlacementError{
		PlacedOrderIDs: []string{"o1"},
		Err:            apperrors.Transport("Orders are unavailable", io.ErrUnexpectedEOF),
	}}
	r := cartRouter(&fakeCart{}, checkout, shopper)

	w := doJSON(r, http.MethodPost, "/cart/placeorder", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, []interface{}{"o1"}, decode(t, w)["placedOrderIds"])
}

// ---- products ----

type fakeProducts struct {
	created      *services.ProductInput
	image        *multipart.FileHeader
	updatedVer   int64
	updateErr    error
	listedFilter services.ProductFilter
}

func (f *fakeProducts) List(_ context.Context, filter services.ProductFilter) ([]models.Product, error) {
	f.listedFilter = filter
	return []models.Product{{Name: "Widget"}}, nil
}

func (f *fakeProducts) Categories(context.Context) ([]string, error) { return []string{"Tools"}, nil }

func (f *fakeProducts) Get(_ context.Context, id string) (*models.Product, error) {
	if id == "missing" {
		return nil, apperrors.NotFound("Product not found")
	}
	return &models.Product{Entity: dynamodb.Entity{RowKey: id}, Name: "Widget"}, nil
}

func (f *fakeProducts) Create(_ context.Context, in services.ProductInput, image *multipart.FileHeader) (*models.Product, error) {
	f.created, f.image = &in, image
	return &models.Product{Name: in.Name}, nil
}

func (f *fakeProducts) Update(_ context.Context, id string, version int64, in services.ProductInput, _ *multipart.FileHeader) (*models.Product, error) {
	f.updatedVer = version
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &models.Product{Entity: dynamodb.Entity{RowKey: id}, Name: in.Name}, nil
}

func (f *fakeProducts) Delete(context.Context, string) error { return nil }

func productRouter(svc *fakeProducts, inv *noopInvalidator) *gin.Engine {
	r := gin.New()
	pc := NewProductController(svc, inv, NewRequestValidator())
	r.GET("/products", pc.GetProducts)
	r.GET("/products/:id", pc.GetProduct)
	r.POST("/products", pc.CreateProduct)
	r.PUT("/products/:id", pc.UpdateProduct)
	r.DELETE("/products/:id", pc.DeleteProduct)
	return r
}

func TestProducts_ListPassesFilter(t *testing.T) {
	svc := &fakeProducts{}
	w := doJSON(productRouter(svc, &noopInvalidator{}), http.MethodGet, "/products?search=wid&category=Tools", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.ProductFilter{Search: "wid", Category: "Tools"}, svc.listedFilter)
	assert.Equal(t, []interface{}{"Tools"}, decode(t, w)["categories"])
}

func TestProducts_GetNotFound(t *testing.T) {
	w := doJSON(productRouter(&fakeProducts{}, &noopInvalidator{}), http.MethodGet, "/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProducts_CreateMultipartWithImage(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Widget"))
	require.NoError(t, mw.WriteField("price", "9.99"))
	require.NoError(t, mw.WriteField("stockQuantity", "4"))
	fw, err := mw.CreateFormFile("image", "widget.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	svc := &fakeProducts{}
	inv := &noopInvalidator{}
	productRouter(svc, inv).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Widget", svc.created.Name)
	assert.Equal(t, 9.99, svc.created.Price)
	assert.Equal(t, 4, svc.created.StockQuantity)
	require.NotNil(t, svc.image)
	assert.Equal(t, "widget.png", svc.image.Filename)
	assert.Equal(t, 1, inv.calls)
}

func TestProducts_CreateRejectsNonPositivePrice(t *testing.T) {
	svc := &fakeProducts{}
	w := doJSON(productRouter(svc, &noopInvalidator{}), http.MethodPost, "/products", gin.H{"name": "Widget", "price": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.created)
}

func TestProducts_UpdateConflict(t *testing.T) {
	svc := &fakeProducts{updateErr: apperrors.Conflict("Product was changed by someone else")}
	w := doJSON(productRouter(svc, &noopInvalidator{}), http.MethodPut, "/products/p1?version=3", gin.H{"name": "Widget", "price": 1})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int64(3), svc.updatedVer)
}

func TestProducts_UpdateBadVersion(t *testing.T) {
	w := doJSON(productRouter(&fakeProducts{}, &noopInvalidator{}), http.MethodPut, "/products/p1?version=abc", gin.H{"name": "Widget", "price": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- orders ----

type fakeOrders struct {
	statusReq []string
	createErr error
}

func (f *fakeOrders) List(_ context.Context, filter services.OrderFilter) ([]models.Order, error) {
	if filter.Status == "Bogus" {
		return nil, apperrors.Validation("Unknown order status %q", filter.Status)
	}
	return []models.Order{{Status: models.OrderPending}}, nil
}

func (f *fakeOrders) Statuses() []models.OrderStatus { return models.OrderStatuses }

func (f *fakeOrders) Get(_ context.Context, pk, id string) (*models.Order, error) {
	return &models.Order{Entity: dynamodb.Entity{PartitionKey: pk, RowKey: id}}, nil
}

func (f *fakeOrders) Create(_ context.Context, req services.CreateOrderRequest) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &models.Order{ProductID: req.ProductID, Quantity: req.Quantity}, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, pk, id, status string) (*models.Order, error) {
	f.statusReq = []string{pk, id, status}
	return &models.Order{Status: models.OrderStatus(status)}, nil
}

func (f *fakeOrders) Delete(context.Context, string, string) error { return nil }

func (f *fakeOrders) Search(context.Context, string) ([]services.SearchResult, error) {
	return []services.SearchResult{{ID: "o1", Text: "Alice - Widget - Pending - 2024-01-01"}}, nil
}

func orderRouter(svc *fakeOrders) *gin.Engine {
	r := gin.New()
	oc := NewOrderController(svc, &noopInvalidator{}, NewRequestValidator())
	r.GET("/orders", oc.GetOrders)
	r.GET("/orders/search", oc.SearchOrders)
	r.GET("/orders/:id", oc.GetOrder)
	r.POST("/orders", oc.CreateOrder)
	r.POST("/orders/updatestatus", oc.UpdateOrderStatus)
	return r
}

func TestOrders_ListInvalidStatus(t *testing.T) {
	w := doJSON(orderRouter(&fakeOrders{}), http.MethodGet, "/orders?status=Bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders_ListIncludesStatuses(t *testing.T) {
	w := doJSON(orderRouter(&fakeOrders{}), http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["statuses"], len(models.OrderStatuses))
}

func TestOrders_GetUsesPartitionQuery(t *testing.T) {
	w := doJSON(orderRouter(&fakeOrders{}), http.MethodGet, "/orders/o1?pk=Cart_7", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Cart_7", decode(t, w)["partitionKey"])
}

func TestOrders_CreateValidatesQuantity(t *testing.T) {
	w := doJSON(orderRouter(&fakeOrders{}), http.MethodPost, "/orders", gin.H{"customerId": "c", "productId": "p", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders_CreateInsufficientStock(t *testing.T) {
	svc := &fakeOrders{createErr: apperrors.InsufficientStock("Insufficient stock for Widget")}
	w := doJSON(orderRouter(svc), http.MethodPost, "/orders", gin.H{"customerId": "c", "productId": "p", "quantity": 3})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrders_UpdateStatus(t *testing.T) {
	svc := &fakeOrders{}
	w := doJSON(orderRouter(svc), http.MethodPost, "/orders/updatestatus", gin.H{"rowKey": "o1", "status": "Shipped"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"", "o1", "Shipped"}, svc.statusReq)
	assert.Equal(t, true, decode(t, w)["success"])
}

func TestOrders_Search(t *testing.T) {
	w := doJSON(orderRouter(&fakeOrders{}), http.MethodGet, "/orders/search?term=ali", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice - Widget")
}

// ---- customers ----

type fakeCustomers struct{ created *services.CustomerInput }

func (f *fakeCustomers) List(context.Context, string) ([]models.Customer, error) {
	return []models.Customer{{FirstName: "Alice"}}, nil
}

func (f *fakeCustomers) Get(context.Context, string) (*models.Customer, error) {
	return nil, apperrors.NotFound("Customer not found")
}

func (f *fakeCustomers) Create(_ context.Context, in services.CustomerInput) (*models.Customer, error) {
	f.created = &in
	return &models.Customer{FirstName: in.FirstName}, nil
}

func (f *fakeCustomers) Update(context.Context, string, services.CustomerInput) (*models.Customer, error) {
	return nil, apperrors.Conflict("Customer was changed by someone else")
}

func (f *fakeCustomers) Delete(context.Context, string) error { return nil }

func TestCustomers_CRUD(t *testing.T) {
	svc := &fakeCustomers{}
	inv := &noopInvalidator{}
	cc := NewCustomerController(svc, inv, NewRequestValidator())
	r := gin.New()
	r.GET("/customers/:id", cc.GetCustomer)
	r.POST("/customers", cc.CreateCustomer)
	r.PUT("/customers/:id", cc.UpdateCustomer)

	w := doJSON(r, http.MethodPost, "/customers", gin.H{"firstName": "Alice", "lastName": "Smith", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "email")

	w = doJSON(r, http.MethodPost, "/customers", gin.H{"firstName": "Alice", "lastName": "Smith", "email": "alice@example.com"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, inv.calls)

	w = doJSON(r, http.MethodGet, "/customers/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPut, "/customers/c1", gin.H{"firstName": "Alice", "lastName": "Smith", "email": "alice@example.com", "version": 1})
	assert.Equal(t, http.StatusConflict, w.Code)
}

// ---- files ----

type fakeFiles struct {
	uploaded string
	subdir   string
}

func (f *fakeFiles) UploadBlob(_ context.Context, fh *multipart.FileHeader) (*services.UploadResult, error) {
	f.uploaded = fh.Filename
	return &services.UploadResult{Name: "generated.pdf", Size: fh.Size}, nil
}

func (f *fakeFiles) UploadShare(_ context.Context, fh *multipart.FileHeader, subdir string) (*services.UploadResult, error) {
	f.subdir = subdir
	if err := services.ValidateShareUpload(fh.Size); err != nil {
		return nil, err
	}
	return &services.UploadResult{Name: fh.Filename}, nil
}

func (f *fakeFiles) List(_ context.Context, subdir string) (*services.FileListing, error) {
	f.subdir = subdir
	return &services.FileListing{}, nil
}

func (f *fakeFiles) DownloadBlob(_ context.Context, name string) (*services.Download, error) {
	if name == "missing.pdf" {
		return nil, apperrors.NotFound("File %s not found", name)
	}
	return &services.Download{Name: name, ContentType: "application/pdf", Body: io.NopCloser(strings.NewReader("%PDF"))}, nil
}

func (f *fakeFiles) DownloadShare(_ context.Context, name, subdir string) (*services.Download, error) {
	f.subdir = subdir
	return &services.Download{Name: name, Body: io.NopCloser(strings.NewReader("hello"))}, nil
}

func (f *fakeFiles) DeleteBlob(context.Context, string) error { return nil }
func (f *fakeFiles) DeleteShare(_ context.Context, _, subdir string) error {
	f.subdir = subdir
	return nil
}

func (f *fakeFiles) BlobURL(_ context.Context, name string) (string, error) {
	return "https://example.com/" + name, nil
}

func fileRouter(svc *fakeFiles) *gin.Engine {
	r := gin.New()
	fc := NewFileController(svc)
	r.POST("/files/blob", fc.UploadBlob)
	r.POST("/files/share", fc.UploadShare)
	r.GET("/files/blob/:name", fc.DownloadBlob)
	r.GET("/files/share/:name", fc.DownloadShare)
	r.GET("/files/blob/:name/url", fc.BlobURL)
	r.GET("/files", fc.ListFiles)
	r.DELETE("/files/share/:name", fc.DeleteShare)
	return r
}

func TestFiles_UploadRequiresFile(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/files/blob", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()

	fileRouter(&fakeFiles{}).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFiles_UploadBlob(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "invoice.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/files/blob", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	svc := &fakeFiles{}

	fileRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "invoice.pdf", svc.uploaded)
	assert.Equal(t, "generated.pdf", decode(t, w)["name"])
}

func TestFiles_UploadShareWithDirectory(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("directory", "reports"))
	fw, err := mw.CreateFormFile("file", "q1.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("%PDF"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/files/share", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	svc := &fakeFiles{}

	fileRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "reports", svc.subdir)
}

func TestFiles_DownloadStreamsAttachment(t *testing.T) {
	w := doJSON(fileRouter(&fakeFiles{}), http.MethodGet, "/files/blob/report.pdf", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF", w.Body.String())
}

func TestFiles_DownloadDefaultsContentType(t *testing.T) {
	w := doJSON(fileRouter(&fakeFiles{}), http.MethodGet, "/files/share/notes.txt", nil)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
}

func TestFiles_ShareDirectoryQuery(t *testing.T) {
	svc := &fakeFiles{}
	r := fileRouter(svc)

	w := doJSON(r, http.MethodGet, "/files?directory=reports", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reports", svc.subdir)

	w = doJSON(r, http.MethodGet, "/files/share/q1.pdf?directory=archive", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "archive", svc.subdir)

	w = doJSON(r, http.MethodDelete, "/files/share/q1.pdf?directory=old", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "old", svc.subdir)
}

func TestFiles_DownloadMissing(t *testing.T) {
	w := doJSON(fileRouter(&fakeFiles{}), http.MethodGet, "/files/blob/missing.pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---- auth ----

type fakeAuth struct {
	loginErr error
}

func (f *fakeAuth) Register(_ context.Context, req services.RegisterRequest) (*models.User, error) {
	if req.Username == "taken" {
		return nil, apperrors.Conflict("Username already exists")
	}
	return &models.User{ID: 1, Username: req.Username}, nil
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (*services.Session, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.Session{Token: "tok", ExpiresAt: time.Now().Add(time.Hour), User: auth.Principal{UserID: 1, Username: username}}, nil
}

func (f *fakeAuth) Me(_ context.Context, userID uint) (*auth.Principal, error) {
	return &auth.Principal{UserID: userID, Username: "alice"}, nil
}

func authRouter(svc *fakeAuth, p *auth.Principal) *gin.Engine {
	r := gin.New()
	ac := NewAuthController(svc, NewRequestValidator(), time.Hour, false)
	r.POST("/auth/register", ac.Register)
	r.POST("/auth/login", ac.Login)
	r.POST("/auth/logout", ac.Logout)
	r.GET("/auth/me", withUser(p), ac.Me)
	return r
}

var validRegistration = gin.H{
	"username": "alice", "email": "alice@example.com", "password": "secret1",
	"firstName": "Alice", "lastName": "Smith",
}

func TestAuth_Register(t *testing.T) {
	w := doJSON(authRouter(&fakeAuth{}, nil), http.MethodPost, "/auth/register", validRegistration)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "alice", decode(t, w)["username"])
}

func TestAuth_RegisterShortPassword(t *testing.T) {
	req := gin.H{}
	for k, v := range validRegistration {
		req[k] = v
	}
	req["password"] = "abc"
	w := doJSON(authRouter(&fakeAuth{}, nil), http.MethodPost, "/auth/register", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "Password")
}

func TestAuth_RegisterDuplicate(t *testing.T) {
	req := gin.H{}
	for k, v := range validRegistration {
		req[k] = v
	}
	req["username"] = "taken"
	w := doJSON(authRouter(&fakeAuth{}, nil), http.MethodPost, "/auth/register", req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuth_LoginSetsCookie(t *testing.T) {
	w := doJSON(authRouter(&fakeAuth{}, nil), http.MethodPost, "/auth/login", gin.H{"username": "alice", "password": "secret1"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), auth.SessionCookie+"=tok")
	assert.NotContains(t, w.Body.String(), "tok\"")
}

func TestAuth_LoginFailure(t *testing.T) {
	svc := &fakeAuth{loginErr: apperrors.Unauthorized("Invalid username or password")}
	w := doJSON(authRouter(svc, nil), http.MethodPost, "/auth/login", gin.H{"username": "alice", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
}

func TestAuth_Me(t *testing.T) {
	w := doJSON(authRouter(&fakeAuth{}, shopper), http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(authRouter(&fakeAuth{}, nil), http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ---- dashboard ----

type fakeDashboard struct{ err error }

func (f fakeDashboard) Summary(context.Context) (*models.Dashboard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Dashboard{TotalOrders: 3, TotalRevenue: 42}, nil
}

func TestDashboard(t *testing.T) {
	r := gin.New()
	r.GET("/dashboard", NewDashboardController(fakeDashboard{}).GetDashboard)
	r.GET("/down", NewDashboardController(fakeDashboard{err: apperrors.Transport("Orders are unavailable", io.EOF)}).GetDashboard)
	r.GET("/health", Health("backoffice"))

	w := doJSON(r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/down", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "EOF")

	w = doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}
