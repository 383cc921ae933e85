package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/controllers"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/common/middleware"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Auth      *controllers.AuthController
	Cart      *controllers.CartController
	Products  *controllers.ProductController
	Customers *controllers.CustomerController
	Orders    *controllers.OrderController
	Files     *controllers.FileController
	Dashboard *controllers.DashboardController
}

// Options configures the guards placed in front of the routes.
type Options struct {
	Tokens            middleware.TokenParser
	AuthRatePerMinute int
	AuthRateBurst     int
}

func RegisterRoutes(r *gin.Engine, ctl Controllers, opts Options) {
	requireAuth := middleware.RequireAuth(opts.Tokens)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	r.GET("/health", controllers.Health("backoffice"))

	authRoutes := r.Group("/auth")
	{
		limited := authRoutes.Group("", middleware.RateLimitMiddleware(opts.AuthRatePerMinute, opts.AuthRateBurst))
		limited.POST("/register", ctl.Auth.Register)
		limited.POST("/login", ctl.Auth.Login)
		authRoutes.POST("/logout", ctl.Auth.Logout)
		authRoutes.GET("/me", requireAuth, ctl.Auth.Me)
	}

	cartRoutes := r.Group("/cart", requireAuth)
	{
		cartRoutes.GET("", ctl.Cart.GetCart)
		cartRoutes.POST("/add", ctl.Cart.AddToCart)
		cartRoutes.POST("/update", ctl.Cart.UpdateCart)
		cartRoutes.POST("/remove", ctl.Cart.RemoveFromCart)
		cartRoutes.GET("/checkout", ctl.Cart.Checkout)
		cartRoutes.POST("/placeorder", ctl.Cart.PlaceOrder)
		cartRoutes.GET("/count", ctl.Cart.CartCount)
	}

	productRoutes := r.Group("/products", requireAuth)
	{
		productRoutes.GET("", ctl.Products.GetProducts)
		productRoutes.GET("/categories", ctl.Products.GetCategories)
		productRoutes.GET("/:id", ctl.Products.GetProduct)
		productRoutes.POST("", adminOnly, ctl.Products.CreateProduct)
		productRoutes.PUT("/:id", adminOnly, ctl.Products.UpdateProduct)
		productRoutes.DELETE("/:id", adminOnly, ctl.Products.DeleteProduct)
	}

	customerRoutes := r.Group("/customers", requireAuth, adminOnly)
	{
		customerRoutes.GET("", ctl.Customers.GetCustomers)
		customerRoutes.POST("", ctl.Customers.CreateCustomer)
		customerRoutes.GET("/:id", ctl.Customers.GetCustomer)
		customerRoutes.PUT("/:id", ctl.Customers.UpdateCustomer)
		customerRoutes.DELETE("/:id", ctl.Customers.DeleteCustomer)
	}

	orderRoutes := r.Group("/orders", requireAuth)
	{
		orderRoutes.GET("", ctl.Orders.GetOrders)
		orderRoutes.GET("/statuses", ctl.Orders.GetStatuses)
		orderRoutes.GET("/search", ctl.Orders.SearchOrders)
		orderRoutes.GET("/:id", ctl.Orders.GetOrder)
		orderRoutes.POST("", adminOnly, ctl.Orders.CreateOrder)
		orderRoutes.POST("/updatestatus", adminOnly, ctl.Orders.UpdateOrderStatus)
		orderRoutes.DELETE("/:id", adminOnly, ctl.Orders.DeleteOrder)
	}

	fileRoutes := r.Group("/files", requireAuth)
	{
		fileRoutes.GET("", ctl.Files.ListFiles)
		fileRoutes.POST("/blob", ctl.Files.UploadBlob)
		fileRoutes.POST("/share", ctl.Files.UploadShare)
		fileRoutes.GET("/blob/:name", ctl.Files.DownloadBlob)
		fileRoutes.GET("/blob/:name/url", ctl.Files.BlobURL)
		fileRoutes.DELETE("/blob/:name", ctl.Files.DeleteBlob)
		fileRoutes.GET("/share/:name", ctl.Files.DownloadShare)
		fileRoutes.DELETE("/share/:name", ctl.Files.DeleteShare)
	}

	r.GET("/dashboard", requireAuth, adminOnly, ctl.Dashboard.GetDashboard)
}
