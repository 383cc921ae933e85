package models

import (
	"time"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
)

const CustomerPartition = "Customers"

type Customer struct {
	dynamodb.Entity
	FirstName   string    `dynamodbav:"FirstName" json:"firstName"`
	LastName    string    `dynamodbav:"LastName" json:"lastName"`
	Email       string    `dynamodbav:"Email" json:"email"`
	Phone       string    `dynamodbav:"Phone" json:"phone"`
	Address     string    `dynamodbav:"Address" json:"address"`
	CreatedDate time.Time `dynamodbav:"CreatedDate" json:"createdDate"`
}

func (c *Customer) ID() string { return c.RowKey }

func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Matches searches names, email, phone and address.
func (c *Customer) Matches(term string) bool {
	return matchesAny(term, c.FirstName, c.LastName, c.Email, c.Phone, c.Address)
}
