package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/common/auth"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

const (
	UserIDKey    = "userID"
	principalKey = "principal"
)

// TokenParser validates a session token.
type TokenParser interface {
	Parse(tokenStr string) (*auth.Principal, error)
}

// RequireAuth reads the session cookie (or an Authorization bearer token) and
// stores the principal on the context.
func RequireAuth(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := c.Cookie(auth.SessionCookie)
		if err != nil || tokenStr == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				tokenStr = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if tokenStr == "" {
			apperrors.Respond(c, apperrors.Unauthorized("Please log in"))
			c.Abort()
			return
		}

		p, err := tokens.Parse(tokenStr)
		if err != nil {
			apperrors.Respond(c, apperrors.Unauthorized("Session expired, please log in again"))
			c.Abort()
			return
		}

		c.Set(principalKey, p)
		c.Set(UserIDKey, strconv.FormatUint(uint64(p.UserID), 10))
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentUser(c)
		if !ok {
			apperrors.Respond(c, apperrors.Unauthorized("Please log in"))
			c.Abort()
			return
		}
		for _, r := range roles {
			if strings.EqualFold(p.Role, r) {
				c.Next()
				return
			}
		}
		apperrors.Respond(c, apperrors.New(apperrors.KindForbidden, "Access denied", nil))
		c.Abort()
	}
}

// CurrentUser returns the principal stored by RequireAuth.
func CurrentUser(c *gin.Context) (*auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*auth.Principal)
	return p, ok && p != nil
}

// SetCurrentUser stores p as the authenticated principal.
func SetCurrentUser(c *gin.Context, p *auth.Principal) {
	c.Set(principalKey, p)
	c.Set(UserIDKey, strconv.FormatUint(uint64(p.UserID), 10))
}
