package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all persistent documents.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures UUID identifiers are generated automatically.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Assignment records who owns a work item. The four fields are always written and
// cleared together.
type Assignment struct {
	AssignedTo     *string    `gorm:"type:varchar(36);index" json:"assigned_to"`
	AssignedToName *string    `gorm:"type:varchar(255)" json:"assigned_to_name"`
	AssignedBy     *string    `gorm:"type:varchar(36)" json:"assigned_by"`
	AssignedAt     *time.Time `json:"assigned_at"`
}

// IsAssigned reports whether an assignee is present.
func (a Assignment) IsAssigned() bool {
	return a.AssignedTo != nil && *a.AssignedTo != ""
}

// Assignee returns the assignee id or an empty string.
func (a Assignment) Assignee() string {
	if a.AssignedTo == nil {
		return ""
	}
	return *a.AssignedTo
}
