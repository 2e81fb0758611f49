package models

import (
	"strings"
	"time"
)

// Review (client inquiry) statuses.
const (
	ReviewStatusPending    = "Pending"
	ReviewStatusInProgress = "In Progress"
	ReviewStatusCompleted  = "Completed"
	ReviewStatusCancelled  = "Cancelled"
)

// ReviewStatuses lists the accepted client_status values.
var ReviewStatuses = []string{ReviewStatusPending, ReviewStatusInProgress, ReviewStatusCompleted, ReviewStatusCancelled}

// Review is an inbound client inquiry tracked through the admin panel.
type Review struct {
	BaseModel

	FirstName string `gorm:"type:varchar(128)" json:"first_name"`
	LastName  string `gorm:"type:varchar(128)" json:"last_name"`
	Email     string `gorm:"type:varchar(255);index" json:"email"`
	Company   string `gorm:"type:varchar(255)" json:"company"`
	Phone     string `gorm:"type:varchar(64)" json:"phone"`
	Message   string `gorm:"type:text" json:"message"`

	ClientStatus string `gorm:"type:varchar(32);not null;default:'Pending';index" json:"client_status"`
	Priority     string `gorm:"type:varchar(16);not null;default:'medium'" json:"priority"`

	Assignment `gorm:"embedded"`

	InProgressStartedAt *time.Time `gorm:"index" json:"in_progress_started_at"`
}

// TableName pins the collection name.
func (Review) TableName() string { return "reviews" }

// ContactName joins the contact's first and last name.
func (r Review) ContactName() string {
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}
