package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	gomail "gopkg.in/gomail.v2"

	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

// AdminDirectory resolves a tenant to its owning administrator's address.
// The auth system is the source of truth; this port keeps it out of scope.
type AdminDirectory interface {
	AdminEmail(ctx context.Context, tenantID uuid.UUID) (string, error)
}

type Mailer struct {
	dialer *gomail.Dialer
	from   string
	admins AdminDirectory
}

func NewMailer(host string, port int, username, password, from string, admins AdminDirectory) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		admins: admins,
	}
}

func (m *Mailer) ArchivedNotice(ctx context.Context, tenantID uuid.UUID, property domain.Property) error {
	to, err := m.admins.AdminEmail(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("resolve admin for tenant %s: %w", tenantID, err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Property %q moved to archive", property.Label))
	msg.SetBody("text/plain", fmt.Sprintf(
		"The %s property %q (%s) passed its 90 day soft-delete window and was moved to the archive.\n\n"+
			"It can be restored for 7 years through an approved restoration request.\n\n"+
			"Deletion reason: %s\n",
		property.ObjectType, property.Name, property.DataType, property.DeletionReason,
	))
	return m.dialer.DialAndSend(msg)
}

// StaticDirectory sends every tenant's notices to one configured address.
// Stands in until the auth system exposes a per-tenant admin lookup.
type StaticDirectory struct {
	Email string
}

func (d StaticDirectory) AdminEmail(ctx context.Context, tenantID uuid.UUID) (string, error) {
	if d.Email == "" {
		return "", fmt.Errorf("no admin address configured")
	}
	return d.Email, nil
}

// Nop discards notices. Used by the CLI sweep and in tests.
type Nop struct{}

func (Nop) ArchivedNotice(ctx context.Context, tenantID uuid.UUID, property domain.Property) error {
	return nil
}
