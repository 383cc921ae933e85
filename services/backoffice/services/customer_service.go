package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type CustomerInput struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"max=30"`
	Address   string `json:"address" validate:"max=200"`
	Version   int64  `json:"version"`
}

type CustomerService struct {
	customers repository.CustomerRepo
	logger    *zap.Logger
}

func NewCustomerService(customers repository.CustomerRepo, logger *zap.Logger) *CustomerService {
	return &CustomerService{customers: customers, logger: logger}
}

// List returns customers ordered by last then first name.
func (s *CustomerService) List(ctx context.Context, search string) ([]models.Customer, error) {
	all, err := s.customers.FindAll(ctx)
	if err != nil {
		return nil, storeError(err, "Customers")
	}
	out := make([]models.Customer, 0, len(all))
	for i := range all {
		if all[i].Matches(search) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].LastName), strings.ToLower(out[j].LastName)
		if a != b {
			return a < b
		}
		return strings.ToLower(out[i].FirstName) < strings.ToLower(out[j].FirstName)
	})
	return out, nil
}

func (s *CustomerService) Get(ctx context.Context, id string) (*models.Customer, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Customer")
	}
	return c, nil
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*models.Customer, error) {
	c := &models.Customer{CreatedDate: time.Now().UTC()}
	applyCustomerInput(c, in)
	c.RowKey = uuid.NewString()
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, storeError(err, "Customer")
	}
	s.logger.Info("Customer created", zap.String("customer_id", c.RowKey))
	return c, nil
}

// Update overwrites a customer if in.Version still matches the stored row. A zero
// version skips the check against the client's copy; the write itself stays guarded.
func (s *CustomerService) Update(ctx context.Context, id string, in CustomerInput) (*models.Customer, error) {
	c, err := s.customers.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Customer")
	}
	if in.Version != 0 && in.Version != c.Version {
		return nil, apperrors.Conflict("Customer was changed by someone else. Reload and try again")
	}
	applyCustomerInput(c, in)
	if err := s.customers.Update(ctx, c); err != nil {
		return nil, storeError(err, "Customer")
	}
	return c, nil
}

func (s *CustomerService) Delete(ctx context.Context, id string) error {
	if err := s.customers.Delete(ctx, id); err != nil {
		return storeError(err, "Customer")
	}
	return nil
}

func applyCustomerInput(c *models.Customer, in CustomerInput) {
	c.FirstName = strings.TrimSpace(in.FirstName)
	c.LastName = strings.TrimSpace(in.LastName)
	c.Email = strings.TrimSpace(in.Email)
	c.Phone = strings.TrimSpace(in.Phone)
	c.Address = strings.TrimSpace(in.Address)
}
