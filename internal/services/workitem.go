package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/store"
)

// WorkItem is the variant-independent view of a review or bug report.
type WorkItem struct {
	Kind     models.WorkItemKind `json:"kind"`
	ID       string              `json:"id"`
	Status   string              `json:"status"`
	Priority string              `json:"priority"`

	AssignedTo     string     `json:"assigned_to,omitempty"`
	AssignedToName string     `json:"assigned_to_name,omitempty"`
	AssignedBy     string     `json:"assigned_by,omitempty"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`

	ContactName string `json:"contact_name,omitempty"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Title       string `json:"title,omitempty"`
	Message     string `json:"message,omitempty"`

	// MonitoredSince is in_progress_started_at for reviews and the report timestamp for bugs.
	MonitoredSince *time.Time `json:"monitored_since,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Label names the item in notification and email copy.
func (w WorkItem) Label() string {
	if w.Kind == models.KindBug {
		return defaultIfEmpty(w.Title, "Untitled bug report")
	}
	if w.ContactName != "" && w.Company != "" {
		return w.ContactName + " (" + w.Company + ")"
	}
	return defaultIfEmpty(defaultIfEmpty(w.ContactName, w.Company), defaultIfEmpty(w.Email, "a client"))
}

// Snapshot copies the display fields stored alongside notifications.
func (w WorkItem) Snapshot() models.WorkItemSnapshot {
	return models.WorkItemSnapshot{
		Version:     models.SnapshotVersion,
		Kind:        w.Kind,
		ContactName: w.ContactName,
		Company:     w.Company,
		Email:       w.Email,
		Title:       w.Title,
		Priority:    w.Priority,
		Status:      w.Status,
	}
}

func (w WorkItem) applyAssignment(a models.Assignment) WorkItem {
	w.AssignedTo = a.Assignee()
	w.AssignedToName = derefString(a.AssignedToName)
	w.AssignedBy = derefString(a.AssignedBy)
	w.AssignedAt = a.AssignedAt
	return w
}

func reviewItem(r models.Review) WorkItem {
	item := WorkItem{
		Kind:           models.KindReview,
		ID:             r.ID,
		Status:         r.ClientStatus,
		Priority:       r.Priority,
		ContactName:    r.ContactName(),
		Company:        r.Company,
		Email:          r.Email,
		Phone:          r.Phone,
		Message:        r.Message,
		MonitoredSince: r.InProgressStartedAt,
		CreatedAt:      r.CreatedAt,
	}
	return item.applyAssignment(r.Assignment)
}

func bugItem(b models.Bug) WorkItem {
	reported := b.Timestamp
	item := WorkItem{
		Kind:           models.KindBug,
		ID:             b.ID,
		Status:         b.Status,
		Priority:       b.Priority,
		Title:          b.Title,
		Email:          b.ReporterEmail,
		Message:        b.Description,
		MonitoredSince: &reported,
		CreatedAt:      b.CreatedAt,
	}
	return item.applyAssignment(b.Assignment)
}

// modelFor returns an empty model of kind, used to address its collection.
func modelFor(kind models.WorkItemKind) (any, error) {
	switch kind {
	case models.KindReview:
		return &models.Review{}, nil
	case models.KindBug:
		return &models.Bug{}, nil
	default:
		return nil, ErrInvalidWorkItemKind
	}
}

func statusField(kind models.WorkItemKind) string {
	if kind == models.KindBug {
		return "status"
	}
	return "client_status"
}

func validStatus(kind models.WorkItemKind, status string) bool {
	if kind == models.KindBug {
		return containsString(models.BugStatuses, status)
	}
	return containsString(models.ReviewStatuses, status)
}

func loadWorkItem(ctx context.Context, st *store.Store, kind models.WorkItemKind, id string) (WorkItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return WorkItem{}, ErrWorkItemNotFound
	}

	switch kind {
	case models.KindReview:
		var review models.Review
		if err := st.Get(ctx, &review, id); err != nil {
			return WorkItem{}, notFoundAs(err, ErrWorkItemNotFound)
		}
		return reviewItem(review), nil
	case models.KindBug:
		var bug models.Bug
		if err := st.Get(ctx, &bug, id); err != nil {
			return WorkItem{}, notFoundAs(err, ErrWorkItemNotFound)
		}
		return bugItem(bug), nil
	default:
		return WorkItem{}, ErrInvalidWorkItemKind
	}
}

func notFoundAs(err, target error) error {
	if errors.Is(err, store.ErrNotFound) {
		return target
	}
	return err
}
