package models

// Dashboard is the admin home page summary.
type Dashboard struct {
	TotalCustomers    int                 `json:"totalCustomers"`
	TotalProducts     int                 `json:"totalProducts"`
	TotalOrders       int                 `json:"totalOrders"`
	TotalRevenue      float64             `json:"totalRevenue"`
	RecentOrders      []Order             `json:"recentOrders"`
	OrderStatusCounts map[OrderStatus]int `json:"orderStatusCounts"`
	LowStockProducts  []Product           `json:"lowStockProducts"`
	// PendingConfirmations is the approximate number of order messages not yet consumed.
	PendingConfirmations int `json:"pendingConfirmations"`
}
