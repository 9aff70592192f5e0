package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/emberhollow/auth-service/internal/domain"
	"github.com/emberhollow/auth-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

// authUsecaser is the subset of AuthUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authUsecaser interface {
	Register(ctx context.Context, email, password string) (string, *domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	RequestMagicLink(ctx context.Context, email, origin string) error
	VerifyMagicLink(ctx context.Context, rawToken string) (string, *domain.User, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type magicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type magicLinkVerifyRequest struct {
	Token string `json:"token" binding:"required"`
}

type userView struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
}

type tokenEnvelope struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userView `json:"user"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:         u.ID,
		Email:      u.Email,
		IsActive:   u.IsActive,
		DateJoined: u.CreatedAt,
	}
}

func newTokenEnvelope(accessToken string, u *domain.User) tokenEnvelope {
	return tokenEnvelope{
		AccessToken: accessToken,
		TokenType:   "bearer",
		User:        newUserView(u),
	}
}

// POST /auth/register
// 201 with a token envelope, 400 on validation failure or duplicate email.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	accessToken, user, err := h.authUsecase.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			c.JSON(http.StatusBadRequest, gin.H{"message": errEmailTaken})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}

	c.JSON(http.StatusCreated, newTokenEnvelope(accessToken, user))
}

// POST /auth/login
// 200 with a token envelope, 401 on any credential failure.
func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	accessToken, user, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": errInvalidCredentials})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, newTokenEnvelope(accessToken, user))
}

// POST /auth/magic-link/request
// 200 once the link email is accepted, 404 when no active account matches.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	origin := c.GetHeader("Origin")
	if err := h.authUsecase.RequestMagicLink(c.Request.Context(), req.Email, origin); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": errNoActiveAccount})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "request magic link", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": msgMagicLinkSent})
}

// POST /auth/magic-link/verify
// 200 with a token envelope. Absent, expired, and already-used links all
// yield the same 400.
func (h *AuthHandler) VerifyMagicLink(c *gin.Context) {
	var req magicLinkVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	accessToken, user, err := h.authUsecase.VerifyMagicLink(c.Request.Context(), req.Token)
	if err != nil {
		if errors.Is(err, domain.ErrLinkInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"message": errLinkInvalid})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "verify magic link", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, newTokenEnvelope(accessToken, user))
}

// GET /auth/me
// Runs behind the Auth middleware, which resolves the bearer token.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := c.MustGet(middleware.UserKey).(*domain.User)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"message": errInternalServer})
		return
	}
	c.JSON(http.StatusOK, newUserView(user))
}
