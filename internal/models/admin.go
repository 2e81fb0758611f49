package models

import "strings"

// Admin roles.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superAdmin"
)

// Admin is an internal staff account that can own reviews and bug reports.
type Admin struct {
	BaseModel

	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName string `gorm:"type:varchar(255)" json:"full_name"`
	Username string `gorm:"type:varchar(128)" json:"username"`
	Role     string `gorm:"type:varchar(16);not null;default:'admin';index" json:"role"`
}

// TableName pins the collection name.
func (Admin) TableName() string { return "admins" }

// IsSuperAdmin reports whether the admin holds the superAdmin role.
func (a Admin) IsSuperAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// DisplayName prefers the full name, then the username, then the email.
func (a Admin) DisplayName() string {
	for _, candidate := range []string{a.FullName, a.Username, a.Email} {
		if v := strings.TrimSpace(candidate); v != "" {
			return v
		}
	}
	return a.ID
}

// ValidRole reports whether role is a known admin role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}
