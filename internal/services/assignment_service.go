package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/store"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/metrics"
)

// AssignInput assigns (or with an empty AssigneeID, unassigns) a work item.
type AssignInput struct {
	Kind         models.WorkItemKind
	WorkItemID   string
	ActorID      string
	AssigneeID   string
	AssigneeName string
}

// AssignmentService implements the assignment workflow.
type AssignmentService struct {
	store         *store.Store
	admins        *AdminService
	workItems     *WorkItemService
	notifications *NotificationService
	email         *EmailService
	now           Clock
	log           *zap.Logger
}

// NewAssignmentService constructs an AssignmentService. email may be nil.
func NewAssignmentService(st *store.Store, admins *AdminService, workItems *WorkItemService, notifications *NotificationService, email *EmailService, clock Clock) (*AssignmentService, error) {
	if st == nil || admins == nil || workItems == nil || notifications == nil {
		return nil, errors.New("assignment service: store, admins, work items and notifications are required")
	}
	return &AssignmentService{
		store:         st,
		admins:        admins,
		workItems:     workItems,
		notifications: notifications,
		email:         email,
		now:           clock,
		log:           logger.WithModule("assignments"),
	}, nil
}

// Assign writes the assignment fields on a work item and notifies the new assignee.
func (s *AssignmentService) Assign(ctx context.Context, input AssignInput) (WorkItem, error) {
	ctx = ensureContext(ctx)
	model, err := modelFor(input.Kind)
	if err != nil {
		return WorkItem{}, err
	}

	actor, err := s.admins.Get(ctx, input.ActorID)
	if err != nil {
		return WorkItem{}, err
	}

	item, err := loadWorkItem(ctx, s.store, input.Kind, input.WorkItemID)
	if err != nil {
		return WorkItem{}, err
	}

	assigneeID := strings.TrimSpace(input.AssigneeID)
	if assigneeID == "" {
		return s.unassign(ctx, model, item, actor)
	}

	assignee, err := s.admins.Get(ctx, assigneeID)
	if err != nil {
		return WorkItem{}, err
	}
	if err := s.authorize(actor, assignee); err != nil {
		return WorkItem{}, err
	}

	now := nowFrom(s.now)
	name := defaultIfEmpty(strings.TrimSpace(input.AssigneeName), assignee.DisplayName())
	fields := map[string]any{
		"assigned_to":      assignee.ID,
		"assigned_to_name": name,
		"assigned_by":      actor.ID,
		"assigned_at":      now,
	}
	if err := s.store.Update(ctx, model, item.ID, fields); err != nil {
		return WorkItem{}, notFoundAs(err, ErrWorkItemNotFound)
	}

	item.AssignedTo = assignee.ID
	item.AssignedToName = name
	item.AssignedBy = actor.ID
	item.AssignedAt = &now

	s.log.Info("work item assigned",
		zap.String("kind", string(item.Kind)),
		zap.String("item_id", item.ID),
		zap.String("assignee_id", assignee.ID),
		zap.String("actor_id", actor.ID),
	)

	if assignee.ID != actor.ID {
		s.notifications.CreateAssignmentNotification(ctx, assignee.ID, item, actor.ID, actor.DisplayName())
		if models.IsHighPriority(item.Priority) {
			s.notifications.CreateHighPriorityNotification(ctx, assignee.ID, item)
		}
		s.sendAssignmentEmail(ctx, item, assignee, actor)
	}

	return item, nil
}

func (s *AssignmentService) unassign(ctx context.Context, model any, item WorkItem, actor *models.Admin) (WorkItem, error) {
	if item.AssignedTo == "" && item.AssignedBy == "" && item.AssignedAt == nil && item.AssignedToName == "" {
		return item, nil
	}

	fields := map[string]any{
		"assigned_to":      nil,
		"assigned_to_name": nil,
		"assigned_by":      nil,
		"assigned_at":      nil,
	}
	if err := s.store.Update(ctx, model, item.ID, fields); err != nil {
		return WorkItem{}, notFoundAs(err, ErrWorkItemNotFound)
	}

	s.log.Info("work item unassigned",
		zap.String("kind", string(item.Kind)),
		zap.String("item_id", item.ID),
		zap.String("previous_assignee_id", item.AssignedTo),
		zap.String("actor_id", actor.ID),
	)

	item = item.applyAssignment(models.Assignment{})
	return item, nil
}

// authorize enforces that only a superAdmin can hand work to a superAdmin.
func (s *AssignmentService) authorize(actor, assignee *models.Admin) error {
	if assignee.IsSuperAdmin() && !actor.IsSuperAdmin() {
		metrics.RoleChecks.WithLabelValues(actor.Role, "denied").Inc()
		s.log.Warn("assignment to superAdmin rejected",
			zap.String("actor_id", actor.ID),
			zap.String("assignee_id", assignee.ID),
		)
		return ErrAssigneeForbidden
	}
	metrics.RoleChecks.WithLabelValues(actor.Role, "allowed").Inc()
	return nil
}

func (s *AssignmentService) sendAssignmentEmail(ctx context.Context, item WorkItem, assignee, actor *models.Admin) {
	if !s.email.Enabled() {
		return
	}

	details := &ReviewDetails{
		ID:       item.ID,
		Email:    item.Email,
		Company:  item.Company,
		Phone:    item.Phone,
		Message:  item.Message,
		Title:    item.Title,
		Priority: item.Priority,
	}
	if item.Kind == models.KindReview {
		details.FirstName = item.ContactName
		details.ClientStatus = item.Status
	}

	id, err := s.email.SendAssignmentEmail(ctx, AssignmentEmail{
		RecipientEmail: assignee.Email,
		RecipientName:  assignee.DisplayName(),
		AssignerName:   actor.DisplayName(),
		ReviewDetails:  details,
	})
	if err != nil {
		s.log.Warn("assignment email failed",
			zap.String("item_id", item.ID),
			zap.String("assignee_id", assignee.ID),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("assignment email sent", zap.String("item_id", item.ID), zap.String("message_id", id))
}

// AssignableAdmins returns the admins actorID may pick as assignee.
func (s *AssignmentService) AssignableAdmins(ctx context.Context, actorID string) ([]models.Admin, error) {
	return s.admins.Visible(ctx, actorID)
}

// ListWorkItems lists work items for actorID. Filtering by a superAdmin assignee requires a superAdmin actor.
func (s *AssignmentService) ListWorkItems(ctx context.Context, actorID string, kind models.WorkItemKind, input ListWorkItemsInput) ([]WorkItem, error) {
	ctx = ensureContext(ctx)
	actor, err := s.admins.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if assigneeID := strings.TrimSpace(input.AssignedTo); assigneeID != "" && !actor.IsSuperAdmin() {
		assignee, err := s.admins.Get(ctx, assigneeID)
		switch {
		case errors.Is(err, ErrAdminNotFound):
		case err != nil:
			return nil, fmt.Errorf("assignment service: resolve assignee filter: %w", err)
		case assignee.IsSuperAdmin():
			metrics.RoleChecks.WithLabelValues(actor.Role, "denied").Inc()
			return nil, ErrAssigneeForbidden
		}
	}

	return s.workItems.List(ctx, kind, input)
}
