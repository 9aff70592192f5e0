package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/emberhollow/auth-service/internal/domain"
	"github.com/gin-gonic/gin"
)

const errUnauthorized = "Unauthorized"

// UserKey is the gin context key under which Auth stores the
// authenticated user.
const UserKey = "currentUser"

// CredentialVerifier maps a raw bearer token to a live user identity.
// Implemented by usecase.AuthUsecase; the middleware never touches the
// token format itself.
type CredentialVerifier interface {
	Authenticate(ctx context.Context, rawToken string) (*domain.User, error)
}

// Auth validates the Authorization header via the verifier and stores
// the resolved user in the gin context.
func Auth(verifier CredentialVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthorized})
			return
		}

		rawToken := strings.TrimPrefix(header, "Bearer ")

		user, err := verifier.Authenticate(c.Request.Context(), rawToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": errUnauthorized})
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}
