package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

func TestCustomerService_CRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := services.NewCustomerService(f.customers, zap.NewNop())

	c, err := svc.Create(ctx, services.CustomerInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "555-0100"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.RowKey)
	assert.Equal(t, int64(1), c.Version)

	updated, err := svc.Update(ctx, c.RowKey, services.CustomerInput{FirstName: "Ada", LastName: "King", Email: "ada@example.com", Version: 1})
	require.NoError(t, err)
	assert.Equal(t, "King", updated.LastName)

	_, err = svc.Update(ctx, c.RowKey, services.CustomerInput{FirstName: "Ada", LastName: "Byron", Email: "ada@example.com", Version: 1})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, svc.Delete(ctx, c.RowKey))
	_, err = svc.Get(ctx, c.RowKey)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCustomerService_ListSearchesAndSorts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := services.NewCustomerService(f.customers, zap.NewNop())
	f.addCustomer(t, "c1", "Grace", "Hopper", "grace@navy.mil")
	f.addCustomer(t, "c2", "Ada", "Lovelace", "ada@example.com")
	f.addCustomer(t, "c3", "Alan", "Hopper", "alan@example.com")

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c3", "c1", "c2"}, []string{all[0].RowKey, all[1].RowKey, all[2].RowKey})

	found, err := svc.List(ctx, "EXAMPLE.com")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}
