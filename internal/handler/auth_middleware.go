package handler

import (
	"context"
	"net/http"

	"github.com/Trushar30/AURA-Message/internal/auth"
	"github.com/Trushar30/AURA-Message/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userContextKey = "auth.user"

type Authenticator interface {
	Verify(ctx context.Context, credential string) (*model.User, error)
}

// RequireUser verifies the bearer token and stores the user on the context
func RequireUser(verifier Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := verifier.Verify(c.Request.Context(), auth.ExtractToken(c.Request))
		if err != nil {
			if reason := auth.Reason(err); reason != "" {
				fail(c, http.StatusUnauthorized, reason)
				return
			}
			logger.Error("token verification failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "verification unavailable")
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}
