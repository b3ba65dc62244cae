package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/croswell/taskmaster-api/internal/auth"
	"github.com/croswell/taskmaster-api/internal/constants"
	apierrors "github.com/croswell/taskmaster-api/internal/errors"
	"github.com/croswell/taskmaster-api/internal/models"
	"github.com/croswell/taskmaster-api/internal/repository"
)

// RequireAuth resolves the caller's identity from the Authorization header.
// Any token failure, as well as a subject that no longer exists, yields 401;
// a deactivated account yields 403. The resolved user is stored on the
// request context and never cached beyond it.
func RequireAuth(codec *auth.TokenCodec, userRepo repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		userID, err := codec.Verify(token)
		if err != nil {
			// Malformed, tampered and expired tokens are indistinguishable
			// at the boundary.
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		user, err := userRepo.FindByID(userID)
		if err != nil {
			apierrors.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		if !user.IsActive {
			apierrors.Inactive(c)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyUser, user)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(uint64)
	return id, ok
}

// GetCurrentUser retrieves the resolved user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}

	user, ok := value.(*models.User)
	return user, ok
}
