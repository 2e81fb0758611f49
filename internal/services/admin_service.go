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
	"github.com/charlesng35/agencydesk/pkg/metrics"
	"github.com/charlesng35/agencydesk/pkg/validator"
)

// CreateAdminInput describes a new admin account.
type CreateAdminInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"max=255"`
	Username string `json:"username" validate:"max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=admin superAdmin"`
}

// AdminService is the admin directory.
type AdminService struct {
	store *store.Store
	log   *zap.Logger
}

// NewAdminService constructs an AdminService.
func NewAdminService(st *store.Store) (*AdminService, error) {
	if st == nil {
		return nil, errors.New("admin service: store is required")
	}
	return &AdminService{store: st, log: logger.WithModule("admins")}, nil
}

// Get loads an admin by id.
func (s *AdminService) Get(ctx context.Context, id string) (*models.Admin, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrAdminNotFound
	}

	var admin models.Admin
	if err := s.store.Get(ctx, &admin, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("admin service: get admin: %w", err)
	}
	return &admin, nil
}

// List returns every admin ordered by email.
func (s *AdminService) List(ctx context.Context) ([]models.Admin, error) {
	ctx = ensureContext(ctx)
	var admins []models.Admin
	if err := s.store.Find(ctx, &admins, store.Query{OrderBy: "email"}); err != nil {
		return nil, fmt.Errorf("admin service: list admins: %w", err)
	}
	return admins, nil
}

// ListByRole returns admins holding any of roles.
func (s *AdminService) ListByRole(ctx context.Context, roles ...string) ([]models.Admin, error) {
	ctx = ensureContext(ctx)
	if len(roles) == 0 {
		return nil, nil
	}
	var admins []models.Admin
	if err := s.store.Find(ctx, &admins, store.Query{
		Filters: []store.Filter{store.In("role", roles)},
		OrderBy: "email",
	}); err != nil {
		return nil, fmt.Errorf("admin service: list %s admins: %w", strings.Join(roles, ","), err)
	}
	return admins, nil
}

// Visible applies the role visibility rule: a superAdmin sees every admin, a regular admin
// sees everyone except superAdmins.
func (s *AdminService) Visible(ctx context.Context, actorID string) ([]models.Admin, error) {
	actor, err := s.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if actor.IsSuperAdmin() {
		metrics.RoleChecks.WithLabelValues(actor.Role, "allowed").Inc()
		return s.List(ctx)
	}

	var admins []models.Admin
	if err := s.store.Find(ensureContext(ctx), &admins, store.Query{
		Filters: []store.Filter{store.Neq("role", models.RoleSuperAdmin)},
		OrderBy: "email",
	}); err != nil {
		return nil, fmt.Errorf("admin service: list assignable admins: %w", err)
	}
	metrics.RoleChecks.WithLabelValues(actor.Role, "filtered").Inc()
	return admins, nil
}

// Create adds an admin. Only superAdmins may create accounts.
func (s *AdminService) Create(ctx context.Context, actorID string, input CreateAdminInput) (*models.Admin, error) {
	ctx = ensureContext(ctx)
	actor, err := s.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		metrics.RoleChecks.WithLabelValues(actor.Role, "denied").Inc()
		return nil, apperrors.ErrForbidden.WithMessage("Only a superAdmin can create admins")
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Role = defaultIfEmpty(strings.TrimSpace(input.Role), models.RoleAdmin)
	if err := validator.ValidateStruct(input); err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	if !models.ValidRole(input.Role) {
		return nil, ErrInvalidRole
	}

	admin := models.Admin{
		Email:    input.Email,
		FullName: strings.TrimSpace(input.FullName),
		Username: strings.TrimSpace(input.Username),
		Role:     input.Role,
	}
	if err := s.store.Insert(ctx, &admin); err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("admin service: create admin: %w", err)
	}

	s.log.Info("admin created",
		zap.String("admin_id", admin.ID),
		zap.String("role", admin.Role),
		zap.String("created_by", actor.ID),
	)
	return &admin, nil
}

// Directory returns every admin keyed by id.
func (s *AdminService) Directory(ctx context.Context) (map[string]models.Admin, error) {
	admins, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]models.Admin, len(admins))
	for _, admin := range admins {
		index[admin.ID] = admin
	}
	return index, nil
}
