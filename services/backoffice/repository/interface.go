package repository

import (
	"context"
	"errors"

	"github.com/yashrajoria/abc-retailers/backend/pkg/dynamodb"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
)

// Row stores report missing rows and stale writes with these errors.
var (
	ErrNotFound = dynamodb.ErrNotFound
	ErrConflict = dynamodb.ErrConflict
)

// ErrUserNotFound is returned by the user store when no account matches.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned when a username or email is already taken.
var ErrUserExists = errors.New("user already exists")

// ProductRepo stores catalogue rows. Update is guarded by the product's Version.
type ProductRepo interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	FindAll(ctx context.Context) ([]models.Product, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

type CustomerRepo interface {
	FindByID(ctx context.Context, id string) (*models.Customer, error)
	FindAll(ctx context.Context) ([]models.Customer, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, c *models.Customer) error
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, id string) error
}

// CartRepo stores cart lines, one partition per user.
type CartRepo interface {
	FindByUser(ctx context.Context, userID string) ([]models.CartLine, error)
	FindLine(ctx context.Context, userID, lineID string) (*models.CartLine, error)
	Create(ctx context.Context, line *models.CartLine) error
	Update(ctx context.Context, line *models.CartLine) error
	Delete(ctx context.Context, userID, lineID string) error
	DeleteAll(ctx context.Context, userID string) error
}

type OrderRepo interface {
	FindByKey(ctx context.Context, partitionKey, id string) (*models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order) error
	Delete(ctx context.Context, partitionKey, id string) error
}

// UserStore is the relational account store. Transaction runs fn against a store
// bound to a single database transaction.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	Transaction(ctx context.Context, fn func(UserStore) error) error
}
