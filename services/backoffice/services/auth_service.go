package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/repository"
	"github.com/yashrajoria/abc-retailers/backend/services/common/auth"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type ITokenService interface {
	Issue(p auth.Principal) (string, time.Time, error)
}

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=100"`
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"max=30"`
	Address   string `json:"address" validate:"max=200"`
}

// Session is a signed-in user and the token carrying it.
type Session struct {
	Token     string         `json:"-"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      auth.Principal `json:"user"`
}

type AuthService struct {
	users     repository.UserStore
	customers repository.CustomerRepo
	tokens    ITokenService
	logger    *zap.Logger
}

func NewAuthService(users repository.UserStore, customers repository.CustomerRepo, tokens ITokenService, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, customers: customers, tokens: tokens, logger: logger}
}

func principalOf(u *models.User) auth.Principal {
	return auth.Principal{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		CustomerID: u.CustomerID(),
	}
}

// Register creates a customer row and a linked Customer account. The customer row
// is removed again if the account cannot be written.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.New(apperrors.KindInternal, "Failed to hash password", err)
	}

	var created *models.User
	err = s.users.Transaction(ctx, func(tx repository.UserStore) error {
		if err := ensureAbsent(tx.FindByUsername(ctx, username)); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return apperrors.Conflict("Username already exists")
			}
			return err
		}
		if err := ensureAbsent(tx.FindByEmail(ctx, email)); err != nil {
			if errors.Is(err, apperrors.ErrConflict) {
				return apperrors.Conflict("Email already registered")
			}
			return err
		}

		customer := &models.Customer{
			FirstName:   strings.TrimSpace(req.FirstName),
			LastName:    strings.TrimSpace(req.LastName),
			Email:       email,
			Phone:       strings.TrimSpace(req.Phone),
			Address:     strings.TrimSpace(req.Address),
			CreatedDate: time.Now().UTC(),
		}
		customer.RowKey = uuid.NewString()
		if err := s.customers.Create(ctx, customer); err != nil {
			return storeError(err, "Customer")
		}

		rowKey := customer.RowKey
		user := &models.User{
			Username:       username,
			PasswordHash:   string(hash),
			Role:           models.RoleCustomer,
			Email:          email,
			CustomerRowKey: &rowKey,
		}
		if err := tx.Create(ctx, user); err != nil {
			if delErr := s.customers.Delete(ctx, rowKey); delErr != nil {
				s.logger.Error("Failed to remove customer row after account insert failed",
					zap.String("customer_id", rowKey), zap.Error(delErr))
			}
			if errors.Is(err, repository.ErrUserExists) {
				return apperrors.Conflict("Username or email already registered")
			}
			return apperrors.Transport("Could not create the account", err)
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("User registered", zap.Uint("user_id", created.ID), zap.String("username", created.Username))
	return created, nil
}

// ensureAbsent turns a lookup result into nil when no user was found and Conflict
// when one was.
func ensureAbsent(_ *models.User, err error) error {
	switch {
	case err == nil:
		return apperrors.ErrConflict
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	default:
		return apperrors.Transport("User store is unavailable", err)
	}
}

// Login verifies credentials, records the login time and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperrors.Unauthorized("Invalid username or password")
	}
	if err != nil {
		return nil, apperrors.Transport("User store is unavailable", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized("Invalid username or password")
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn("Failed to record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	p := principalOf(user)
	token, exp, err := s.tokens.Issue(p)
	if err != nil {
		return nil, apperrors.New(apperrors.KindInternal, "Failed to issue session", err)
	}
	s.logger.Info("User logged in", zap.Uint("user_id", user.ID))
	return &Session{Token: token, ExpiresAt: exp, User: p}, nil
}

// Me reloads the signed-in user so role changes are visible.
func (s *AuthService) Me(ctx context.Context, userID uint) (*auth.Principal, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperrors.Unauthorized("Session no longer valid")
	}
	if err != nil {
		return nil, apperrors.Transport("User store is unavailable", err)
	}
	p := principalOf(user)
	return &p, nil
}
