package app

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/charlesng35/agencydesk/internal/services"
	"github.com/charlesng35/agencydesk/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation. The mailer is only
// enabled when email is switched on and a host is present; missing credentials surface as a
// configuration error when a send is attempted.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.Enabled && strings.TrimSpace(c.SMTP.Host) != "",
		Host:     strings.TrimSpace(c.SMTP.Host),
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     strings.TrimSpace(c.SMTP.From),
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// ServiceSettings converts EmailConfig into the settings consumed by the email service.
func (c EmailConfig) ServiceSettings() (services.EmailSettings, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		loaded, err := time.LoadLocation(tz)
		if err != nil {
			return services.EmailSettings{}, fmt.Errorf("email: load timezone %q: %w", tz, err)
		}
		loc = loaded
	}

	return services.EmailSettings{
		Enabled:  c.Enabled,
		Host:     strings.TrimSpace(c.SMTP.Host),
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     strings.TrimSpace(c.SMTP.From),
		SiteName: strings.TrimSpace(c.SiteName),
		AdminURL: strings.TrimRight(strings.TrimSpace(c.AdminURL), "/"),
		Location: loc,
	}, nil
}
