package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hostbay/sitehost-api/internal/handler"
	"github.com/hostbay/sitehost-api/pkg/auth"
)

const (
	ContextOwnerID = "owner_id"
	ContextEmail   = "email"
	ContextRole    = "role"

	RoleOwner    = "owner"
	RoleOperator = "operator"
)

// AuthMiddleware validates session tokens on protected routes.
type AuthMiddleware struct {
	jwtSvc auth.JWTService
}

func NewAuthMiddleware(jwtSvc auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtSvc: jwtSvc}
}

// RequireAuth rejects requests without a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.claims(c)
		if claims == nil {
			return
		}

		c.Set(ContextOwnerID, claims.OwnerID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole additionally restricts the route to one role.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.claims(c)
		if claims == nil {
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden,
				handler.NewErrorResponse("insufficient permissions"))
			return
		}

		c.Set(ContextOwnerID, claims.OwnerID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

func (m *AuthMiddleware) claims(c *gin.Context) *auth.Claims {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			handler.NewErrorResponse("missing authorization token"))
		return nil
	}

	claims, err := m.jwtSvc.ValidateToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			handler.NewErrorResponse("invalid or expired token"))
		return nil
	}
	return claims
}
