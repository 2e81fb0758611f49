package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/agencydesk/internal/app"
	iauth "github.com/charlesng35/agencydesk/internal/auth"
	"github.com/charlesng35/agencydesk/internal/models"
)

// issueAdminToken prints an access token for the admin with the given email. The JWT secret must
// come from configuration, otherwise the token would not verify against any running server.
func issueAdminToken(ctx context.Context, cfg *app.Config, email string, generated map[string]bool, out io.Writer, log *zap.Logger) error {
	if generated["auth.jwt.secret"] {
		return errors.New("issue token: auth.jwt.secret must be configured, a generated secret is not shared with the server")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return errors.New("issue token: admin email is required")
	}

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	var admin models.Admin
	if err := db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("issue token: no admin with email %q", email)
		}
		return fmt.Errorf("issue token: load admin: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		AdminID: admin.ID,
		Email:   admin.Email,
		Role:    admin.Role,
	})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
