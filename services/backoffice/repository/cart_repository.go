package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
)

type CartRepository struct {
	table *dynamodb.Table
}

func NewCartRepository(table *dynamodb.Table) *CartRepository {
	return &CartRepository{table: table}
}

func (r *CartRepository) FindByUser(ctx context.Context, userID string) ([]models.CartLine, error) {
	var out []models.CartLine
	if err := r.table.List(ctx, models.CartPartition(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CartRepository) FindLine(ctx context.Context, userID, lineID string) (*models.CartLine, error) {
	var l models.CartLine
	if err := r.table.Get(ctx, models.CartPartition(userID), lineID, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *CartRepository) Create(ctx context.Context, line *models.CartLine) error {
	line.PartitionKey = models.CartPartition(line.UserID)
	return r.table.Insert(ctx, line)
}

func (r *CartRepository) Update(ctx context.Context, line *models.CartLine) error {
	return r.table.Replace(ctx, line)
}

func (r *CartRepository) Delete(ctx context.Context, userID, lineID string) error {
	return r.table.Delete(ctx, models.CartPartition(userID), lineID)
}

// DeleteAll empties a user's cart. Lines already gone are ignored.
func (r *CartRepository) DeleteAll(ctx context.Context, userID string) error {
	lines, err := r.FindByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if err := r.table.Delete(ctx, l.PartitionKey, l.RowKey); err != nil && !errors.Is(err, dynamodb.ErrNotFound) {
			return fmt.Errorf("delete cart line %s: %w", l.RowKey, err)
		}
	}
	return nil
}
