// Package identity establishes who is invoking a command and whether
// they hold admin rights.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/splitwarden/splitwarden/internal/common"
)

// Identity is an authenticated caller.
type Identity struct {
	Email   string
	Name    string
	IsAdmin bool
}

// Provider resolves a credential into an Identity.
type Provider interface {
	Authenticate(ctx context.Context, credential string) (*Identity, error)
}

// RequireAdmin returns ErrAdminOnly unless the identity is an admin.
func RequireAdmin(id *Identity) error {
	if id == nil {
		return common.ErrUnauthorized
	}
	if !id.IsAdmin {
		return fmt.Errorf("%s: %w", id.Email, common.ErrAdminOnly)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isAdminEmail(email string, adminEmails []string) bool {
	email = normalizeEmail(email)
	for _, admin := range adminEmails {
		if normalizeEmail(admin) == email {
			return true
		}
	}
	return false
}
