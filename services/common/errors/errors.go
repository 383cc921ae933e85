package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind classifies an application error.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindInsufficientStock Kind = "InsufficientStock"
	KindEmptyCart         Kind = "EmptyCart"
	KindValidation        Kind = "ValidationFailure"
	KindConflict          Kind = "Conflict"
	KindTransport         Kind = "TransportFailure"
	KindUnauthorized      Kind = "Unauthorized"
	KindForbidden         Kind = "Forbidden"
	KindInternal          Kind = "Internal"
)

var kindStatus = map[Kind]int{
	KindNotFound:          http.StatusNotFound,
	KindInsufficientStock: http.StatusConflict,
	KindEmptyCart:         http.StatusBadRequest,
	KindValidation:        http.StatusBadRequest,
	KindConflict:          http.StatusConflict,
	KindTransport:         http.StatusServiceUnavailable,
	KindUnauthorized:      http.StatusUnauthorized,
	KindForbidden:         http.StatusForbidden,
	KindInternal:          http.StatusInternalServerError,
}

// Error represents an application error
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so errors.Is(err, ErrNotFound)
// matches any not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// New creates a new Error
func New(kind Kind, message string, err error) *Error {
	code, ok := kindStatus[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Sentinels for errors.Is matching.
var (
	ErrNotFound          = New(KindNotFound, "Not found", nil)
	ErrInsufficientStock = New(KindInsufficientStock, "Insufficient stock", nil)
	ErrEmptyCart         = New(KindEmptyCart, "Your cart is empty", nil)
	ErrValidation        = New(KindValidation, "Validation error", nil)
	ErrConflict          = New(KindConflict, "Conflict", nil)
	ErrTransport         = New(KindTransport, "Storage service unavailable", nil)
	ErrUnauthorized      = New(KindUnauthorized, "Unauthorized", nil)
	ErrForbidden         = New(KindForbidden, "Forbidden", nil)
	ErrInternalServer    = New(KindInternal, "Internal server error", nil)
)

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...), nil)
}

func InsufficientStock(format string, args ...interface{}) *Error {
	return New(KindInsufficientStock, fmt.Sprintf(format, args...), nil)
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...), nil)
}

func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, fmt.Sprintf(format, args...), nil)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message, nil)
}

// Transport wraps a storage or queue failure.
func Transport(message string, err error) *Error {
	return New(KindTransport, message, err)
}

// As returns the *Error in err's chain, or an internal error wrapping err.
func As(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return New(KindInternal, ErrInternalServer.Message, err)
}

// HTTPStatus maps any error to a response status.
func HTTPStatus(err error) int {
	return As(err).Code
}

// Respond writes err as a JSON error body. Internal details of wrapped errors are
// never exposed to the client.
func Respond(c *gin.Context, err error) {
	appErr := As(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message, "kind": appErr.Kind})
}

// ErrorMiddleware renders the last error attached with c.Error when the handler
// has not written a response.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			Respond(c, c.Errors.Last().Err)
			c.Abort()
		}
	}
}
