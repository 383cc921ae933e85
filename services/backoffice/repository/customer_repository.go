package repository

import (
	"context"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
)

type CustomerRepository struct {
	table *dynamodb.Table
}

func NewCustomerRepository(table *dynamodb.Table) *CustomerRepository {
	return &CustomerRepository{table: table}
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	if err := r.table.Get(ctx, models.CustomerPartition, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]models.Customer, error) {
	var out []models.Customer
	if err := r.table.List(ctx, models.CustomerPartition, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	return r.table.Count(ctx, models.CustomerPartition)
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	c.PartitionKey = models.CustomerPartition
	return r.table.Insert(ctx, c)
}

func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	return r.table.Replace(ctx, c)
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	return r.table.Delete(ctx, models.CustomerPartition, id)
}
