package models

import (
	"time"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
)

const ProductPartition = "Products"

type Product struct {
	dynamodb.Entity
	Name          string    `dynamodbav:"Name" json:"name"`
	Description   string    `dynamodbav:"Description" json:"description"`
	Price         float64   `dynamodbav:"Price" json:"price"`
	Category      string    `dynamodbav:"Category" json:"category"`
	StockQuantity int       `dynamodbav:"StockQuantity" json:"stockQuantity"`
	ImageURL      string    `dynamodbav:"ImageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedDate   time.Time `dynamodbav:"CreatedDate" json:"createdDate"`
}

func (p *Product) ID() string { return p.RowKey }

// Matches searches name, description and category.
func (p *Product) Matches(term string) bool {
	return matchesAny(term, p.Name, p.Description, p.Category)
}

func (p *Product) InStock() bool { return p.StockQuantity > 0 }
