package models

import "time"

// Bug report statuses.
const (
	BugStatusUnresolved = "unresolved"
	BugStatusInProgress = "in-progress"
	BugStatusResolved   = "resolved"
)

// BugStatuses lists the accepted bug status values.
var BugStatuses = []string{BugStatusUnresolved, BugStatusInProgress, BugStatusResolved}

// Bug is a site feedback / bug report stored in the feedback collection.
type Bug struct {
	BaseModel

	Title         string `gorm:"type:varchar(255);not null" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	PageURL       string `gorm:"type:text" json:"page_url"`
	ReporterEmail string `gorm:"type:varchar(255)" json:"reporter_email"`

	Status   string `gorm:"type:varchar(32);not null;default:'unresolved';index" json:"status"`
	Priority string `gorm:"type:varchar(16);not null;default:'medium'" json:"priority"`

	Assignment `gorm:"embedded"`

	// Timestamp is the report time; staleness of unresolved bugs is measured from it.
	Timestamp  time.Time  `gorm:"column:timestamp;index;not null" json:"timestamp"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

// TableName pins the collection name.
func (Bug) TableName() string { return "feedback" }
