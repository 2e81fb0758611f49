package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/charlesng35/agencydesk/internal/models"
	"github.com/charlesng35/agencydesk/internal/realtime"
	"github.com/charlesng35/agencydesk/internal/store"
	"github.com/charlesng35/agencydesk/pkg/logger"
	"github.com/charlesng35/agencydesk/pkg/metrics"
)

// DefaultNotificationTTL is how long a notification lives before the lazy sweep removes it.
const DefaultNotificationTTL = 48 * time.Hour

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string                  `json:"id"`
	AdminID   string                  `json:"admin_id"`
	Type      string                  `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	ReviewID  string                  `json:"review_id,omitempty"`
	BugID     string                  `json:"bug_id,omitempty"`
	Snapshot  models.WorkItemSnapshot `json:"snapshot"`
	IsRead    bool                    `json:"is_read"`
	ReadAt    *time.Time              `json:"read_at,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	ExpiresAt time.Time               `json:"expires_at"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	AdminID  string
	Type     string
	Title    string
	Message  string
	ReviewID string
	BugID    string
	Snapshot *models.WorkItemSnapshot
}

// NotificationEventPayload represents data sent to realtime consumers.
type NotificationEventPayload struct {
	Notification   *NotificationDTO `json:"notification,omitempty"`
	NotificationID string           `json:"notification_id,omitempty"`
}

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// WithNotificationClock overrides the time source.
func WithNotificationClock(clock Clock) NotificationOption {
	return func(s *NotificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithNotificationTTL overrides the notification lifetime.
func WithNotificationTTL(ttl time.Duration) NotificationOption {
	return func(s *NotificationService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NotificationService manages per-admin in-app notifications.
type NotificationService struct {
	store     *store.Store
	publisher realtime.Publisher
	now       Clock
	ttl       time.Duration
	log       *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(st *store.Store, publisher realtime.Publisher, opts ...NotificationOption) (*NotificationService, error) {
	if st == nil {
		return nil, errors.New("notification service: store is required")
	}
	svc := &NotificationService{
		store:     st,
		publisher: publisher,
		ttl:       DefaultNotificationTTL,
		log:       logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateNotification stores a notification that expires after the configured TTL and returns its id.
// Missing fields and store failures are logged and reported as ("", false).
func (s *NotificationService) CreateNotification(ctx context.Context, input CreateNotificationInput) (string, bool) {
	ctx = ensureContext(ctx)
	adminID := strings.TrimSpace(input.AdminID)
	title := strings.TrimSpace(input.Title)
	message := strings.TrimSpace(input.Message)
	if adminID == "" || title == "" || message == "" {
		s.log.Warn("notification rejected: admin id, title and message are required",
			zap.String("admin_id", adminID),
			zap.String("type", input.Type),
		)
		return "", false
	}

	now := nowFrom(s.now)
	notification := models.Notification{
		BaseModel: models.BaseModel{CreatedAt: now, UpdatedAt: now},
		AdminID:   adminID,
		Type:      strings.TrimSpace(input.Type),
		Title:     title,
		Message:   message,
		ReviewID:  stringPtr(input.ReviewID),
		BugID:     stringPtr(input.BugID),
		ExpiresAt: now.Add(s.ttl),
	}
	if input.Snapshot != nil {
		notification.Snapshot = datatypes.NewJSONType(*input.Snapshot)
	}

	if err := s.store.Insert(ctx, &notification); err != nil {
		s.log.Error("create notification failed",
			zap.String("admin_id", adminID),
			zap.String("type", notification.Type),
			zap.Error(err),
		)
		return "", false
	}

	metrics.NotificationsCreated.WithLabelValues(notification.Type).Inc()
	dto := mapNotification(notification)
	s.publish(adminID, realtime.EventNotificationCreated, &NotificationEventPayload{Notification: &dto})
	return notification.ID, true
}

// CreateAssignmentNotification tells adminID that assignedBy handed them item. Self-assignment is not notified.
func (s *NotificationService) CreateAssignmentNotification(ctx context.Context, adminID string, item WorkItem, assignedBy, assignerName string) (string, bool) {
	if adminID == assignedBy {
		return "", false
	}
	types := models.NotificationTypesFor(item.Kind)
	assigner := defaultIfEmpty(assignerName, "An admin")

	title := "New Review Assignment"
	message := fmt.Sprintf("%s assigned you the inquiry from %s.", assigner, item.Label())
	if item.Kind == models.KindBug {
		title = "New Bug Assignment"
		message = fmt.Sprintf("%s assigned you the bug report %q.", assigner, item.Label())
	}
	return s.CreateNotification(ctx, s.itemInput(adminID, types.Assignment, title, message, item))
}

// CreateStatusChangeNotification tells adminID that changedBy moved item from oldStatus to newStatus.
// A change made by the recipient is not notified.
func (s *NotificationService) CreateStatusChangeNotification(ctx context.Context, adminID string, item WorkItem, oldStatus, newStatus, changedBy, changerName string) (string, bool) {
	if adminID == changedBy {
		return "", false
	}
	types := models.NotificationTypesFor(item.Kind)
	changer := defaultIfEmpty(changerName, "An admin")

	title := "Review Status Updated"
	if item.Kind == models.KindBug {
		title = "Bug Status Updated"
	}
	message := fmt.Sprintf("%s changed %s from %s to %s.", changer, item.Label(),
		defaultIfEmpty(oldStatus, "none"), newStatus)
	return s.CreateNotification(ctx, s.itemInput(adminID, types.StatusChange, title, message, item))
}

// CreateHighPriorityNotification flags a high or highest priority item to adminID. It always notifies.
func (s *NotificationService) CreateHighPriorityNotification(ctx context.Context, adminID string, item WorkItem) (string, bool) {
	types := models.NotificationTypesFor(item.Kind)

	title := "High Priority Review"
	if item.Kind == models.KindBug {
		title = "High Priority Bug"
	}
	message := fmt.Sprintf("%s is marked %s priority.", item.Label(), defaultIfEmpty(item.Priority, models.PriorityHigh))
	return s.CreateNotification(ctx, s.itemInput(adminID, types.HighPriority, title, message, item))
}

// CreateReminderNotification reminds adminID that item has been waiting for days days.
func (s *NotificationService) CreateReminderNotification(ctx context.Context, adminID string, item WorkItem, days int) (string, bool) {
	types := models.NotificationTypesFor(item.Kind)

	title := "Review Reminder"
	message := fmt.Sprintf("The inquiry from %s has been In Progress for %d days.", item.Label(), days)
	if item.Kind == models.KindBug {
		title = "Bug Reminder"
		message = fmt.Sprintf("The bug report %q has been unresolved for %d days.", item.Label(), days)
	}
	return s.CreateNotification(ctx, s.itemInput(adminID, types.Reminder, title, message, item))
}

func (s *NotificationService) itemInput(adminID, notificationType, title, message string, item WorkItem) CreateNotificationInput {
	snapshot := item.Snapshot()
	input := CreateNotificationInput{
		AdminID:  adminID,
		Type:     notificationType,
		Title:    title,
		Message:  message,
		Snapshot: &snapshot,
	}
	if item.Kind == models.KindBug {
		input.BugID = item.ID
	} else {
		input.ReviewID = item.ID
	}
	return input
}

// DeleteNotification removes a notification by id. Deleting a missing notification succeeds.
func (s *NotificationService) DeleteNotification(ctx context.Context, id string) bool {
	return s.deleteNotification(ensureContext(ctx), store.Eq("id", id))
}

// DeleteNotificationFor removes id only if it belongs to adminID.
func (s *NotificationService) DeleteNotificationFor(ctx context.Context, adminID, id string) bool {
	if strings.TrimSpace(adminID) == "" {
		return false
	}
	return s.deleteNotification(ensureContext(ctx), store.Eq("id", id), store.Eq("admin_id", adminID))
}

func (s *NotificationService) deleteNotification(ctx context.Context, filters ...store.Filter) bool {
	var deleted *models.Notification
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var rows []models.Notification
		if err := tx.Find(ctx, &rows, store.Query{Filters: filters, Limit: 1}); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := tx.DeleteByID(ctx, &models.Notification{}, rows[0].ID); err != nil {
			return err
		}
		deleted = &rows[0]
		return nil
	})
	if err != nil {
		s.log.Error("delete notification failed", zap.Error(err))
		return false
	}

	if deleted != nil {
		s.publish(deleted.AdminID, realtime.EventNotificationDeleted, &NotificationEventPayload{NotificationID: deleted.ID})
	}
	return true
}

// DeleteAllNotifications removes every notification for adminID in one batch.
func (s *NotificationService) DeleteAllNotifications(ctx context.Context, adminID string) bool {
	ctx = ensureContext(ctx)
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return false
	}

	deleted, err := s.store.DeleteWhere(ctx, &models.Notification{}, store.Eq("admin_id", adminID))
	if err != nil {
		s.log.Error("delete all notifications failed", zap.String("admin_id", adminID), zap.Error(err))
		return false
	}
	if deleted > 0 {
		s.publish(adminID, realtime.EventNotificationsClear, nil)
	}
	return true
}

// DeleteExpiredNotifications removes every notification whose expiry has passed and returns the count.
func (s *NotificationService) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	deleted, err := s.store.DeleteWhere(ctx, &models.Notification{}, store.Lt("expires_at", nowFrom(s.now)))
	if err != nil {
		return 0, fmt.Errorf("notification service: delete expired: %w", err)
	}
	if deleted > 0 {
		metrics.NotificationsExpired.Add(float64(deleted))
		s.log.Debug("expired notifications removed", zap.Int64("count", deleted))
	}
	return deleted, nil
}

// GetUnreadNotificationCount sweeps expired notifications, then counts adminID's unread ones.
func (s *NotificationService) GetUnreadNotificationCount(ctx context.Context, adminID string) (int64, error) {
	ctx = ensureContext(ctx)
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return 0, errors.New("notification service: admin id is required")
	}
	s.sweepExpired(ctx)

	count, err := s.store.Count(ctx, &models.Notification{}, store.Eq("admin_id", adminID), store.IsNull("read_at"))
	if err != nil {
		return 0, fmt.Errorf("notification service: count unread: %w", err)
	}
	return count, nil
}

// GetNotifications sweeps expired notifications, then returns adminID's notifications newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, adminID string) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return nil, errors.New("notification service: admin id is required")
	}
	s.sweepExpired(ctx)

	var rows []models.Notification
	if err := s.store.Find(ctx, &rows, store.Query{
		Filters:    []store.Filter{store.Eq("admin_id", adminID)},
		OrderBy:    "created_at",
		Descending: true,
	}); err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

// MarkRead stamps read_at on a notification owned by adminID.
func (s *NotificationService) MarkRead(ctx context.Context, adminID, id string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)

	var rows []models.Notification
	if err := s.store.Find(ctx, &rows, store.Query{
		Filters: []store.Filter{store.Eq("id", id), store.Eq("admin_id", adminID)},
		Limit:   1,
	}); err != nil {
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotificationMissing
	}

	notification := rows[0]
	if notification.ReadAt == nil {
		now := nowFrom(s.now)
		if err := s.store.Update(ctx, &models.Notification{}, notification.ID, map[string]any{"read_at": now}); err != nil {
			return nil, fmt.Errorf("notification service: mark read: %w", err)
		}
		notification.ReadAt = &now
	}

	dto := mapNotification(notification)
	s.publish(adminID, realtime.EventNotificationRead, &NotificationEventPayload{Notification: &dto, NotificationID: dto.ID})
	return &dto, nil
}

// MarkAllRead stamps read_at on every unread notification of adminID and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, adminID string) (int64, error) {
	ctx = ensureContext(ctx)
	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return 0, errors.New("notification service: admin id is required")
	}

	updated, err := s.store.UpdateWhere(ctx, &models.Notification{},
		map[string]any{"read_at": nowFrom(s.now)},
		store.Eq("admin_id", adminID), store.IsNull("read_at"),
	)
	if err != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", err)
	}
	if updated > 0 {
		s.publish(adminID, realtime.EventNotificationRead, nil)
	}
	return updated, nil
}

func (s *NotificationService) sweepExpired(ctx context.Context) {
	if _, err := s.DeleteExpiredNotifications(ctx); err != nil {
		s.log.Warn("lazy expiry sweep failed", zap.Error(err))
	}
}

func (s *NotificationService) publish(adminID, event string, payload *NotificationEventPayload) {
	if s.publisher == nil {
		return
	}
	message := realtime.Message{Event: event}
	if payload != nil {
		message.Data = payload
	}
	s.publisher.Publish(adminID, message)
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		AdminID:   row.AdminID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		ReviewID:  derefString(row.ReviewID),
		BugID:     derefString(row.BugID),
		Snapshot:  row.Snapshot.Data(),
		IsRead:    row.ReadAt != nil,
		ReadAt:    row.ReadAt,
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
	}
}
