package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/middleware"
	"github.com/charlesng35/agencydesk/pkg/errors"
	"github.com/charlesng35/agencydesk/pkg/response"
)

// requestContext returns the request context, falling back to Background when there is no request.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// actingAdmin returns the admin id resolved by the auth middleware. When it is missing the
// request is answered with 401 and ok is false.
func actingAdmin(c *gin.Context) (string, bool) {
	adminID := middleware.AdminID(c)
	if adminID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return adminID, true
}
