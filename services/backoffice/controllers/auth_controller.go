package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/models"
	"github.com/yashrajoria/abc-retailers/backend/services/backoffice/services"
	"github.com/yashrajoria/abc-retailers/backend/services/common/auth"
	apperrors "github.com/yashrajoria/abc-retailers/backend/services/common/errors"
)

type AuthAPI interface {
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, username, password string) (*services.Session, error)
	Me(ctx context.Context, userID uint) (*auth.Principal, error)
}

type loginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type AuthController struct {
	service       AuthAPI
	validator     *RequestValidator
	sessionTTL    time.Duration
	secureCookies bool
}

func NewAuthController(service AuthAPI, v *RequestValidator, sessionTTL time.Duration, secureCookies bool) *AuthController {
	return &AuthController{service: service, validator: v, sessionTTL: sessionTTL, secureCookies: secureCookies}
}

func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := ac.validator.Bind(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	user, err := ac.service.Register(c.Request.Context(), req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Registration successful. Please log in.",
		"id":       user.ID,
		"username": user.Username,
	})
}

// Login sets the session cookie on success.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := ac.validator.Bind(c, &req); err != nil {
		apperrors.Respond(c, err)
		return
	}
	session, err := ac.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	auth.SetSessionCookie(c, session.Token, ac.sessionTTL, ac.secureCookies)
	c.JSON(http.StatusOK, session)
}

func (ac *AuthController) Logout(c *gin.Context) {
	auth.ClearSessionCookie(c, ac.secureCookies)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (ac *AuthController) Me(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	me, err := ac.service.Me(c.Request.Context(), p.UserID)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, me)
}
