package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/agencydesk/pkg/errors"
)

// Domain errors surfaced to handlers.
var (
	ErrInvalidWorkItemKind = apperrors.New("INVALID_WORK_ITEM_KIND", "Unknown work item kind", http.StatusBadRequest)
	ErrInvalidStatus       = apperrors.New("INVALID_STATUS", "Status is not valid for this work item", http.StatusBadRequest)
	ErrInvalidRole         = apperrors.New("INVALID_ROLE", "Role must be admin or superAdmin", http.StatusBadRequest)
	ErrWorkItemNotFound    = apperrors.New("WORK_ITEM_NOT_FOUND", "Work item not found", http.StatusNotFound)
	ErrAdminNotFound       = apperrors.New("ADMIN_NOT_FOUND", "Admin not found", http.StatusNotFound)
	ErrNotificationMissing = apperrors.New("NOTIFICATION_NOT_FOUND", "Notification not found", http.StatusNotFound)
	ErrAssigneeForbidden   = apperrors.New("ASSIGNEE_FORBIDDEN", "Only a superAdmin can assign work to a superAdmin", http.StatusForbidden)
	ErrAdminExists         = apperrors.New("ADMIN_EXISTS", "An admin with this email already exists", http.StatusConflict)
	ErrEmailNotConfigured  = apperrors.ErrConfiguration.WithMessage("Server configuration error")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
