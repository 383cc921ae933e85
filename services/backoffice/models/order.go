package models

import (
	"time"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
)

const OrderPartition = "Orders"

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderConfirmed OrderStatus = "Confirmed"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderCancelled OrderStatus = "Cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCancelled}

// ParseOrderStatus accepts a status name in any letter case.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	for _, st := range OrderStatuses {
		if equalFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

type Order struct {
	dynamodb.Entity
	CustomerID    string      `dynamodbav:"CustomerId" json:"customerId"`
	CustomerName  string      `dynamodbav:"CustomerName" json:"customerName"`
	CustomerEmail string      `dynamodbav:"CustomerEmail,omitempty" json:"customerEmail,omitempty"`
	ProductID     string      `dynamodbav:"ProductId" json:"productId"`
	ProductName   string      `dynamodbav:"ProductName" json:"productName"`
	Quantity      int         `dynamodbav:"Quantity" json:"quantity"`
	UnitPrice     float64     `dynamodbav:"UnitPrice" json:"unitPrice"`
	TotalPrice    float64     `dynamodbav:"TotalPrice" json:"totalPrice"`
	Status        OrderStatus `dynamodbav:"Status" json:"status"`
	OrderDate     time.Time   `dynamodbav:"OrderDate" json:"orderDate"`
	ShippedDate   *time.Time  `dynamodbav:"ShippedDate,omitempty" json:"shippedDate,omitempty"`
	DeliveredDate *time.Time  `dynamodbav:"DeliveredDate,omitempty" json:"deliveredDate,omitempty"`
}

// Matches searches customer, product, status and email.
func (o *Order) Matches(term string) bool {
	return matchesAny(term, o.CustomerName, o.ProductName, string(o.Status), o.CustomerEmail)
}

// SearchText is the one-line label used by order autocomplete.
func (o *Order) SearchText() string {
	return o.CustomerName + " - " + o.ProductName + " - " + string(o.Status) + " - " + o.OrderDate.Format("2006-01-02")
}

// OrderMessage is the order summary sent to the order queue. OrderID and
// PartitionKey identify the order row the consumer confirms.
type OrderMessage struct {
	OrderID      string    `json:"orderId"`
	PartitionKey string    `json:"partitionKey"`
	CustomerID   string    `json:"customerId"`
	CustomerName string    `json:"customerName"`
	ProductID    string    `json:"productId"`
	ProductName  string    `json:"productName"`
	Quantity     int       `json:"quantity"`
	TotalPrice   float64   `json:"totalPrice"`
	OrderDate    time.Time `json:"orderDate"`
}

func NewOrderMessage(o *Order) OrderMessage {
	return OrderMessage{
		OrderID:      o.RowKey,
		PartitionKey: o.PartitionKey,
		CustomerID:   o.CustomerID,
		CustomerName: o.CustomerName,
		ProductID:    o.ProductID,
		ProductName:  o.ProductName,
		Quantity:     o.Quantity,
		TotalPrice:   o.TotalPrice,
		OrderDate:    o.OrderDate,
	}
}
