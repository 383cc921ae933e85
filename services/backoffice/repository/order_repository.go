package repository

import (
	"context"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
)

type OrderRepository struct {
	table *dynamodb.Table
}

func NewOrderRepository(table *dynamodb.Table) *OrderRepository {
	return &OrderRepository{table: table}
}

func (r *OrderRepository) FindByKey(ctx context.Context, partitionKey, id string) (*models.Order, error) {
	if partitionKey == "" {
		partitionKey = models.OrderPartition
	}
	var o models.Order
	if err := r.table.Get(ctx, partitionKey, id, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := r.table.List(ctx, models.OrderPartition, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	return r.table.Count(ctx, models.OrderPartition)
}

func (r *OrderRepository) Create(ctx context.Context, o *models.Order) error {
	o.PartitionKey = models.OrderPartition
	return r.table.Insert(ctx, o)
}

func (r *OrderRepository) Update(ctx context.Context, o *models.Order) error {
	return r.table.Replace(ctx, o)
}

func (r *OrderRepository) Delete(ctx context.Context, partitionKey, id string) error {
	if partitionKey == "" {
		partitionKey = models.OrderPartition
	}
	return r.table.Delete(ctx, partitionKey, id)
}
