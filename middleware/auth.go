package middleware

import (
	"strings"

	"site-cms/helper"
	"site-cms/logger"
	"site-cms/models"
	"site-cms/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxRole     = "role"
)

func AuthMiddleware(authService services.AuthService, h *helper.HTTPHelper) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			h.SendUnauthorizedError(c, "Authorization header required", h.EmptyJsonMap())
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			h.SendUnauthorizedError(c, "Bearer token required", h.EmptyJsonMap())
			c.Abort()
			return
		}

		claims, err := authService.ParseToken(tokenString)
		if err != nil {
			h.SendUnauthorizedError(c, "Invalid token: "+err.Error(), h.EmptyJsonMap())
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			h.SendUnauthorizedError(c, "Token is not valid", h.EmptyJsonMap())
			c.Abort()
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxRole, models.UserRole(claims.Role))
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

func RequireRole(h *helper.HTTPHelper, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(ctxRole)
		if !exists {
			h.SendUnauthorizedError(c, "User role not found", h.EmptyJsonMap())
			c.Abort()
			return
		}

		role, _ := userRole.(models.UserRole)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		h.SendForbiddenError(c, "Insufficient permissions", h.EmptyJsonMap())
		c.Abort()
	}
}

// ReviewerFrom returns the staff identity set by AuthMiddleware.
func ReviewerFrom(c *gin.Context) (models.Reviewer, bool) {
	id, ok := c.Get(ctxUserID)
	if !ok {
		return models.Reviewer{}, false
	}
	userID, ok := id.(uuid.UUID)
	if !ok {
		return models.Reviewer{}, false
	}
	role, _ := c.Get(ctxRole)
	r, _ := role.(models.UserRole)
	return models.Reviewer{ID: userID, Name: c.GetString(ctxUsername), Role: r}, true
}
