package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

// SessionCookie is the HttpOnly cookie carrying the session token.
const SessionCookie = "abc_session"

const tokenTypeAccess = "access"

// Principal is the authenticated user as carried in the session token.
type Principal struct {
	UserID     uint   `json:"userId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	CustomerID string `json:"customerId,omitempty"`
}

// TokenService issues and validates HS256 session tokens.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secretKey: []byte(secret), ttl: ttl}
}

// TTL is the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for p and returns it with its expiry.
func (s *TokenService) Issue(p Principal) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(p.UserID), 10),
		"name":     p.Username,
		"email":    p.Email,
		"role":     p.Role,
		"customer": p.CustomerID,
		"typ":      tokenTypeAccess,
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse validates tokenStr and returns its principal.
func (s *TokenService) Parse(tokenStr string) (*Principal, error) {
	if len(s.secretKey) == 0 {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeAccess {
		return nil, fmt.Errorf("invalid token type")
	}

	sub, _ := claims["sub"].(string)
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject")
	}
	p := &Principal{UserID: uint(id)}
	p.Username, _ = claims["name"].(string)
	p.Email, _ = claims["email"].(string)
	p.Role, _ = claims["role"].(string)
	p.CustomerID, _ = claims["customer"].(string)
	return p, nil
}

// SetSessionCookie writes the HttpOnly session cookie.
func SetSessionCookie(c *gin.Context, token string, maxAge time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(maxAge.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}
