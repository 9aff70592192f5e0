package httptransport

import (
	"log/slog"

	"github.com/emberhollow/auth-service/internal/transport/http/handler"
	"github.com/emberhollow/auth-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(logger *slog.Logger, authHandler *handler.AuthHandler, verifier middleware.CredentialVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	auth := r.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/magic-link/request", authHandler.RequestMagicLink)
	auth.POST("/magic-link/verify", authHandler.VerifyMagicLink)
	auth.GET("/me", middleware.Auth(verifier), authHandler.Me)

	return r
}
