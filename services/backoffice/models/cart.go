package models

import (
	"time"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
)

// CartPartition is the partition holding a user's cart lines.
func CartPartition(userID string) string {
	return "Cart_" + userID
}

// CartLine is one product in a user's cart. Name, price and image are snapshots
// taken when the product was added.
type CartLine struct {
	dynamodb.Entity
	UserID      string    `dynamodbav:"UserId" json:"userId"`
	ProductID   string    `dynamodbav:"ProductId" json:"productId"`
	ProductName string    `dynamodbav:"ProductName" json:"productName"`
	Price       float64   `dynamodbav:"Price" json:"price"`
	ImageURL    string    `dynamodbav:"ImageUrl,omitempty" json:"imageUrl,omitempty"`
	Quantity    int       `dynamodbav:"Quantity" json:"quantity"`
	AddedDate   time.Time `dynamodbav:"AddedDate" json:"addedDate"`
}

func (l *CartLine) LineTotal() float64 {
	return l.Price * float64(l.Quantity)
}
