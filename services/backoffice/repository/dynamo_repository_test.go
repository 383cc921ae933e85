package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb/dynamodbtest"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
)

func TestCartRepository_PartitionsPerUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewCartRepository(dynamodb.NewTable(dynamodbtest.NewFake(), "Cart"))

	require.NoError(t, repo.Create(ctx, &models.CartLine{Entity: dynamodb.Entity{RowKey: "a"}, UserID: "1", ProductID: "p1", Quantity: 1}))
	require.NoError(t, repo.Create(ctx, &models.CartLine{Entity: dynamodb.Entity{RowKey: "b"}, UserID: "1", ProductID: "p2", Quantity: 2}))
	require.NoError(t, repo.Create(ctx, &models.CartLine{Entity: dynamodb.Entity{RowKey: "c"}, UserID: "2", ProductID: "p1", Quantity: 3}))

	lines, err := repo.FindByUser(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	assert.Equal(t, "Cart_1", lines[0].PartitionKey)

	require.NoError(t, repo.DeleteAll(ctx, "1"))
	lines, err = repo.FindByUser(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	other, err := repo.FindLine(ctx, "2", "c")
	require.NoError(t, err)
	assert.Equal(t, 3, other.Quantity)
}

func TestProductRepository_UpdateIsVersionGuarded(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProductRepository(dynamodb.NewTable(dynamodbtest.NewFake(), "Products"))

	p := &models.Product{Entity: dynamodb.Entity{RowKey: "p1"}, Name: "Kettle", Price: 20, StockQuantity: 5}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, models.ProductPartition, p.PartitionKey)

	first, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, "p1")
	require.NoError(t, err)

	first.StockQuantity = 4
	require.NoError(t, repo.Update(ctx, first))

	second.StockQuantity = 3
	assert.ErrorIs(t, repo.Update(ctx, second), repository.ErrConflict)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderRepository_DefaultsPartition(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(dynamodb.NewTable(dynamodbtest.NewFake(), "Orders"))

	require.NoError(t, repo.Create(ctx, &models.Order{Entity: dynamodb.Entity{RowKey: "o1"}, Status: models.OrderPending}))

	o, err := repo.FindByKey(ctx, "", "o1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPartition, o.PartitionKey)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Delete(ctx, models.OrderPartition, "o1"))
	assert.ErrorIs(t, repo.Delete(ctx, models.OrderPartition, "o1"), repository.ErrNotFound)
}
