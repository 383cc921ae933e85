package repository

import (
	"context"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
)

type ProductRepository struct {
	table *dynamodb.Table
}

func NewProductRepository(table *dynamodb.Table) *ProductRepository {
	return &ProductRepository{table: table}
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := r.table.Get(ctx, models.ProductPartition, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]models.Product, error) {
	var out []models.Product
	if err := r.table.List(ctx, models.ProductPartition, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	return r.table.Count(ctx, models.ProductPartition)
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	p.PartitionKey = models.ProductPartition
	return r.table.Insert(ctx, p)
}

func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	return r.table.Replace(ctx, p)
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.table.Delete(ctx, models.ProductPartition, id)
}
