package controllers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yashrajoria/abc-retailers/backend/services/common/auth"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
	"github.com/yashrajoria/abc-retailers/backend/services/common/middleware"
)

// RequestValidator binds request bodies and checks their validate tags.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// Bind decodes the request (JSON or form, by content type) into dst and validates it.
func (rv *RequestValidator) Bind(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBind(dst); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return rv.Struct(dst)
}

func (rv *RequestValidator) Struct(v interface{}) error {
	if err := rv.validate.Struct(v); err != nil {
		return apperrors.Validation("%s", validationMessage(err))
	}
	return nil
}

// validationMessage renders the first failing field as a readable sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", strings.ToLower(field))
	}
}

// principal returns the signed-in user, writing a 401 when there is none.
func principal(c *gin.Context) (*auth.Principal, bool) {
	p, ok := middleware.CurrentUser(c)
	if !ok {
		apperrors.Respond(c, apperrors.Unauthorized("Please log in"))
		return nil, false
	}
	return p, true
}
