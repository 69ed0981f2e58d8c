package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nurhakim/campus-scheduler-api/internal/middleware"
	"github.com/nurhakim/campus-scheduler-api/internal/models"
	appErrors "github.com/nurhakim/campus-scheduler-api/pkg/errors"
)

// requireTenant rejects requests whose token belongs to a different
// university. Admin tokens without a tenant binding pass.
func requireTenant(c *gin.Context, universityID string) error {
	claims := claimsFromContext(c)
	if claims == nil || claims.UniversityID == "" {
		return nil
	}
	if claims.UniversityID != universityID {
		return appErrors.Clone(appErrors.ErrForbidden, "token is scoped to another university")
	}
	return nil
}

// tenantScope returns the university the token is bound to, or "" for
// tokens without a tenant binding.
func tenantScope(c *gin.Context) string {
	claims := claimsFromContext(c)
	if claims == nil {
		return ""
	}
	return claims.UniversityID
}

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
