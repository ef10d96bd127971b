package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"medride/internal/auth"
	"medride/internal/service"
)

// ActorContextKey is the key used to store the caller in the Gin context.
const ActorContextKey = "actor"

// ActorResolver maps a verified token subject to an actor.
type ActorResolver interface {
	Actor(ctx context.Context, userID string) (service.Actor, error)
}

// AuthMiddleware validates the bearer token and resolves the caller's profile.
// Websocket clients that cannot set headers may pass the token as access_token.
func AuthMiddleware(verifier *auth.Verifier, profiles ActorResolver, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "MISSING_AUTH_HEADER", "Authorization header is required")
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"path":  c.Request.URL.Path,
				"ip":    c.ClientIP(),
				"error": err.Error(),
			}).Warn("auth failed")

			if errors.Is(err, auth.ErrTokenExpired) {
				abortUnauthorized(c, "TOKEN_EXPIRED", "Access token has expired")
				return
			}
			abortUnauthorized(c, "INVALID_TOKEN", "Invalid access token")
			return
		}

		actor, err := profiles.Actor(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				abortUnauthorized(c, "UNKNOWN_PROFILE", "No profile for this token")
				return
			}
			logger.WithError(err).Error("failed to resolve profile")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(ActorContextKey, actor)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			abortUnauthorized(c, "MISSING_USER_CONTEXT", "User context not found")
			return
		}
		for _, r := range roles {
			if string(actor.Role) == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "forbidden",
			"code":  "INSUFFICIENT_ROLE",
		})
	}
}

// ActorFrom returns the authenticated caller stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (service.Actor, bool) {
	v, ok := c.Get(ActorContextKey)
	if !ok {
		return service.Actor{}, false
	}
	actor, ok := v.(service.Actor)
	return actor, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", false
		}
		token := strings.TrimSpace(parts[1])
		return token, token != ""
	}
	if token := c.Query("access_token"); token != "" {
		return token, true
	}
	return "", false
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
		"code":    code,
	})
}
