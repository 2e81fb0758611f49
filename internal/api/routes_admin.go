package api

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/agencydesk/internal/handlers"
	"github.com/charlesng35/agencydesk/internal/middleware"
	"github.com/charlesng35/agencydesk/internal/models"
)

func registerAdminRoutes(api *gin.RouterGroup, admins *handlers.AdminHandler, assignments *handlers.AssignmentHandler, lookup middleware.AdminLookup) {
	api.GET("/me", admins.Me)

	group := api.Group("/admins")
	{
		group.GET("/assignable", assignments.Assignable)
		group.POST("", middleware.RequireSuperAdmin(lookup), admins.Create)
	}
}

// workItemCollections are the URL segments of the work item collections.
var workItemCollections = []string{"reviews", "bugs"}

func registerWorkItemRoutes(api *gin.RouterGroup, workItems *handlers.WorkItemHandler, assignments *handlers.AssignmentHandler) error {
	for _, collection := range workItemCollections {
		kind, err := models.ParseWorkItemKind(collection)
		if err != nil {
			return fmt.Errorf("register work item routes: %w", err)
		}

		group := api.Group("/" + collection)
		group.GET("", workItems.List(kind))
		group.GET("/:id", workItems.Get(kind))
		group.PATCH("/:id/status", workItems.UpdateStatus(kind))
		group.POST("/:id/assign", assignments.Assign(kind))
	}
	return nil
}
