package models

import (
	"time"

	"gorm.io/datatypes"
)

// Review namespace notification types.
const (
	NotificationAssignment   = "assignment"
	NotificationStatusChange = "status-change"
	NotificationHighPriority = "high-priority"
	NotificationReminder     = "reminder"
)

// Bug namespace notification types.
const (
	NotificationBugAssignment   = "bug-assignment"
	NotificationBugStatusChange = "bug-status-change"
	NotificationBugHighPriority = "high-priority-bug"
	NotificationBugReminder     = "bug-reminder"
)

// NotificationTypes groups the event names used for one work item variant.
type NotificationTypes struct {
	Assignment   string
	StatusChange string
	HighPriority string
	Reminder     string
}

// NotificationTypesFor returns the notification namespace of kind.
func NotificationTypesFor(kind WorkItemKind) NotificationTypes {
	if kind == KindBug {
		return NotificationTypes{
			Assignment:   NotificationBugAssignment,
			StatusChange: NotificationBugStatusChange,
			HighPriority: NotificationBugHighPriority,
			Reminder:     NotificationBugReminder,
		}
	}
	return NotificationTypes{
		Assignment:   NotificationAssignment,
		StatusChange: NotificationStatusChange,
		HighPriority: NotificationHighPriority,
		Reminder:     NotificationReminder,
	}
}

// SnapshotVersion is bumped whenever WorkItemSnapshot changes shape.
const SnapshotVersion = 1

// WorkItemSnapshot is a copy of the referenced work item taken when the notification was created.
type WorkItemSnapshot struct {
	Version     int          `json:"version"`
	Kind        WorkItemKind `json:"kind"`
	ContactName string       `json:"contact_name,omitempty"`
	Company     string       `json:"company,omitempty"`
	Email       string       `json:"email,omitempty"`
	Title       string       `json:"title,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	Status      string       `json:"status,omitempty"`
}

// Notification is a per-admin, auto-expiring message about a work item event.
type Notification struct {
	BaseModel

	AdminID string `gorm:"type:varchar(36);index;not null" json:"admin_id"`
	Type    string `gorm:"type:varchar(32);not null" json:"type"`
	Title   string `gorm:"type:varchar(255);not null" json:"title"`
	Message string `gorm:"type:text;not null" json:"message"`

	ReviewID *string `gorm:"type:varchar(36);index" json:"review_id,omitempty"`
	BugID    *string `gorm:"type:varchar(36);index" json:"bug_id,omitempty"`

	Snapshot datatypes.JSONType[WorkItemSnapshot] `json:"snapshot"`

	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	ReadAt    *time.Time `gorm:"index" json:"read_at"`
}

// TableName pins the collection name.
func (Notification) TableName() string { return "notifications" }
