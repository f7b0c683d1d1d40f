package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"spotrunner-api/models"
	"spotrunner-api/repositories"
	"spotrunner-api/utils"
)

const identityKey = "identity"

// AuthMiddleware requires a valid bearer token and resolves the caller's
// identity once for the rest of the request.
func AuthMiddleware(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			utils.SendError(c, http.StatusUnauthorized, "Authorization token required")
			c.Abort()
			return
		}

		identity, status, msg := authenticate(c, jwtSecret, db, raw)
		if identity == nil {
			utils.SendError(c, status, msg)
			c.Abort()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

// OptionalAuth resolves the identity when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, ok := bearerToken(c); ok {
			if identity, _, _ := authenticate(c, jwtSecret, db, raw); identity != nil {
				setIdentity(c, identity)
			}
		}
		c.Next()
	}
}

// Identity returns the identity resolved by AuthMiddleware, or nil.
func Identity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}

func setIdentity(c *gin.Context, identity *models.Identity) {
	c.Set(identityKey, identity)
	c.Set("user_id", identity.User.ID)
	c.Set("role", string(identity.Role()))
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func authenticate(c *gin.Context, jwtSecret string, db *gorm.DB, raw string) (*models.Identity, int, string) {
	claims, err := utils.ParseToken(jwtSecret, raw)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	identity, err := repositories.NewProfileRepository(db.WithContext(c.Request.Context())).ResolveIdentity(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repositories.ErrNoProfile) {
			return nil, http.StatusUnauthorized, "Account no longer exists"
		}
		slog.Error("failed to resolve identity", "user_id", claims.UserID, "error", err)
		return nil, http.StatusInternalServerError, "Failed to authenticate"
	}
	if identity.User.TokenVersion != claims.Version {
		return nil, http.StatusUnauthorized, "Session has been logged out"
	}
	return identity, 0, ""
}
