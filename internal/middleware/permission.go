package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/pkg/errors"
	"github.com/charlesng35/agencydesk/pkg/metrics"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// AdminLookup resolves the acting admin record.
type AdminLookup interface {
	Get(ctx context.Context, id string) (*models.Admin, error)
}

// RequireSuperAdmin checks that the authenticated admin currently holds the superAdmin role.
// The role is re-read from storage rather than trusted from the token.
func RequireSuperAdmin(admins AdminLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID := AdminID(c)
		if adminID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		admin, err := admins.Get(c.Request.Context(), adminID)
		if err != nil {
			appErr := errors.FromError(err)
			if appErr.StatusCode == http.StatusNotFound {
				metrics.RoleChecks.WithLabelValues(models.RoleSuperAdmin, "denied").Inc()
				response.Error(c, errors.ErrForbidden)
				c.Abort()
				return
			}
			metrics.RoleChecks.WithLabelValues(models.RoleSuperAdmin, "error").Inc()
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"success": false, "error": gin.H{"code": errors.ErrInternalServer.Code, "message": "role check failed"}})
			return
		}
		if !admin.IsSuperAdmin() {
			metrics.RoleChecks.WithLabelValues(models.RoleSuperAdmin, "denied").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.RoleChecks.WithLabelValues(models.RoleSuperAdmin, "allowed").Inc()
		c.Next()
	}
}
