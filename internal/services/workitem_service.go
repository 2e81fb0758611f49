package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/store"
	apperrors "github.com/charlesng35/agencydesk/pkg/errors"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/validator"
)

const maxWorkItemsPerList = 500

// CreateReviewInput is a public client inquiry submission.
type CreateReviewInput struct {
	FirstName string `json:"firstName" validate:"required,max=128"`
	LastName  string `json:"lastName" validate:"max=128"`
	Email     string `json:"email" validate:"required,email"`
	Company   string `json:"company" validate:"max=255"`
	Phone     string `json:"phone" validate:"max=64"`
	Message   string `json:"message" validate:"required"`
	Priority  string `json:"priority" validate:"priority"`
}

// CreateBugInput is a public bug report submission.
type CreateBugInput struct {
	Title         string `json:"title" validate:"required,max=255"`
	Description   string `json:"description"`
	PageURL       string `json:"pageUrl" validate:"omitempty,max=2048"`
	ReporterEmail string `json:"reporterEmail" validate:"omitempty,email"`
	Priority      string `json:"priority" validate:"priority"`
}

// UpdateStatusInput moves a work item to a new status.
type UpdateStatusInput struct {
	Kind    models.WorkItemKind
	ID      string
	ActorID string
	Status  string
}

// ListWorkItemsInput filters work item listings.
type ListWorkItemsInput struct {
	AssignedTo string
	Status     string
	Limit      int
	Offset     int
}

// WorkItemService handles intake, status transitions and listings of reviews and bug reports.
type WorkItemService struct {
	store         *store.Store
	admins        *AdminService
	notifications *NotificationService
	now           Clock
	log           *zap.Logger
}

// NewWorkItemService constructs a WorkItemService.
func NewWorkItemService(st *store.Store, admins *AdminService, notifications *NotificationService, clock Clock) (*WorkItemService, error) {
	if st == nil || admins == nil || notifications == nil {
		return nil, errors.New("work item service: store, admins and notifications are required")
	}
	return &WorkItemService{
		store:         st,
		admins:        admins,
		notifications: notifications,
		now:           clock,
		log:           logger.WithModule("workitems"),
	}, nil
}

// Get loads a work item of kind.
func (s *WorkItemService) Get(ctx context.Context, kind models.WorkItemKind, id string) (WorkItem, error) {
	return loadWorkItem(ensureContext(ctx), s.store, kind, id)
}

// CreateReview stores a new Pending inquiry and alerts superAdmins when it is high priority.
func (s *WorkItemService) CreateReview(ctx context.Context, input CreateReviewInput) (WorkItem, error) {
	ctx = ensureContext(ctx)
	if err := validator.ValidateStruct(input); err != nil {
		return WorkItem{}, apperrors.NewBadRequest(err.Error())
	}

	review := models.Review{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Company:      strings.TrimSpace(input.Company),
		Phone:        strings.TrimSpace(input.Phone),
		Message:      strings.TrimSpace(input.Message),
		ClientStatus: models.ReviewStatusPending,
		Priority:     models.NormalizePriority(input.Priority),
	}
	if err := s.store.Insert(ctx, &review); err != nil {
		return WorkItem{}, fmt.Errorf("work item service: create review: %w", err)
	}

	item := reviewItem(review)
	s.alertHighPriority(ctx, item)
	return item, nil
}

// CreateBug stores a new unresolved bug report and alerts superAdmins when it is high priority.
func (s *WorkItemService) CreateBug(ctx context.Context, input CreateBugInput) (WorkItem, error) {
	ctx = ensureContext(ctx)
	if err := validator.ValidateStruct(input); err != nil {
		return WorkItem{}, apperrors.NewBadRequest(err.Error())
	}

	bug := models.Bug{
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		PageURL:       strings.TrimSpace(input.PageURL),
		ReporterEmail: strings.ToLower(strings.TrimSpace(input.ReporterEmail)),
		Status:        models.BugStatusUnresolved,
		Priority:      models.NormalizePriority(input.Priority),
		Timestamp:     nowFrom(s.now),
	}
	if err := s.store.Insert(ctx, &bug); err != nil {
		return WorkItem{}, fmt.Errorf("work item service: create bug: %w", err)
	}

	item := bugItem(bug)
	s.alertHighPriority(ctx, item)
	return item, nil
}

func (s *WorkItemService) alertHighPriority(ctx context.Context, item WorkItem) {
	if !models.IsHighPriority(item.Priority) {
		return
	}
	supers, err := s.admins.ListByRole(ctx, models.RoleSuperAdmin)
	if err != nil {
		s.log.Error("load superAdmins for high priority alert failed", zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	for _, admin := range supers {
		s.notifications.CreateHighPriorityNotification(ctx, admin.ID, item)
	}
}

// UpdateStatus moves a work item to input.Status, stamping the monitored timestamps, and notifies the assignee.
func (s *WorkItemService) UpdateStatus(ctx context.Context, input UpdateStatusInput) (WorkItem, error) {
	ctx = ensureContext(ctx)
	if _, err := modelFor(input.Kind); err != nil {
		return WorkItem{}, err
	}
	status := strings.TrimSpace(input.Status)
	if !validStatus(input.Kind, status) {
		return WorkItem{}, ErrInvalidStatus
	}

	actor, err := s.admins.Get(ctx, input.ActorID)
	if err != nil {
		return WorkItem{}, err
	}

	item, err := loadWorkItem(ctx, s.store, input.Kind, input.ID)
	if err != nil {
		return WorkItem{}, err
	}
	if item.Status == status {
		return item, nil
	}

	now := nowFrom(s.now)
	fields := map[string]any{statusField(input.Kind): status}
	switch input.Kind {
	case models.KindReview:
		if status == models.ReviewStatusInProgress {
			fields["in_progress_started_at"] = now
			item.MonitoredSince = &now
		} else {
			fields["in_progress_started_at"] = nil
			item.MonitoredSince = nil
		}
	case models.KindBug:
		if status == models.BugStatusResolved {
			fields["resolved_at"] = now
		} else {
			fields["resolved_at"] = nil
		}
	}

	model, _ := modelFor(input.Kind)
	if err := s.store.Update(ctx, model, item.ID, fields); err != nil {
		return WorkItem{}, notFoundAs(err, ErrWorkItemNotFound)
	}

	oldStatus := item.Status
	item.Status = status
	if item.AssignedTo != "" {
		s.notifications.CreateStatusChangeNotification(ctx, item.AssignedTo, item, oldStatus, status, actor.ID, actor.DisplayName())
	}

	s.log.Info("work item status changed",
		zap.String("kind", string(item.Kind)),
		zap.String("item_id", item.ID),
		zap.String("from", oldStatus),
		zap.String("to", status),
		zap.String("actor_id", actor.ID),
	)
	return item, nil
}

// List returns work items of kind, newest first.
func (s *WorkItemService) List(ctx context.Context, kind models.WorkItemKind, input ListWorkItemsInput) ([]WorkItem, error) {
	ctx = ensureContext(ctx)
	var filters []store.Filter
	if assignee := strings.TrimSpace(input.AssignedTo); assignee != "" {
		filters = append(filters, store.Eq("assigned_to", assignee))
	}
	if status := strings.TrimSpace(input.Status); status != "" {
		if !validStatus(kind, status) {
			return nil, ErrInvalidStatus
		}
		filters = append(filters, store.Eq(statusField(kind), status))
	}

	limit := input.Limit
	if limit <= 0 || limit > maxWorkItemsPerList {
		limit = maxWorkItemsPerList
	}
	query := store.Query{Filters: filters, OrderBy: "created_at", Descending: true, Limit: limit, Offset: input.Offset}

	switch kind {
	case models.KindReview:
		var rows []models.Review
		if err := s.store.Find(ctx, &rows, query); err != nil {
			return nil, fmt.Errorf("work item service: list reviews: %w", err)
		}
		items := make([]WorkItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, reviewItem(row))
		}
		return items, nil
	case models.KindBug:
		var rows []models.Bug
		if err := s.store.Find(ctx, &rows, query); err != nil {
			return nil, fmt.Errorf("work item service: list bugs: %w", err)
		}
		items := make([]WorkItem, 0, len(rows))
		for _, row := range rows {
			items = append(items, bugItem(row))
		}
		return items, nil
	default:
		return nil, ErrInvalidWorkItemKind
	}
}
