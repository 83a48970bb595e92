package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/model"
)

// ListMembers returns all member mappings.
func (e *Engine) ListMembers(ctx context.Context, ident *identity.Identity) ([]model.MemberMapping, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}
	return e.store.ListMemberMappings(ctx)
}

// UpsertMember creates or updates the mapping from a login email to the
// member name used inside items. Names must be bare first names; the
// ledger resolver matches on nothing else.
func (e *Engine) UpsertMember(ctx context.Context, ident *identity.Identity, email, name string, groups []string, active bool) (*model.MemberMapping, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" || name == "" {
		return nil, fmt.Errorf("email and name are required: %w", common.ErrValidation)
	}
	if strings.Contains(name, " ") {
		return nil, fmt.Errorf("member name %q must be a first name without spaces: %w", name, common.ErrValidation)
	}

	mapping := &model.MemberMapping{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     name,
		Groups:   groups,
		IsActive: active,
	}
	if existing, err := e.store.GetMemberMappingByEmail(ctx, email); err == nil {
		mapping.ID = existing.ID
	}

	if err := e.store.SaveMemberMapping(ctx, mapping); err != nil {
		return nil, fmt.Errorf("failed to save mapping for %s: %w", email, err)
	}

	e.logger.Info("member mapping saved",
		"email", email,
		"name", name,
		"groups", len(groups),
		"active", active)
	return mapping, nil
}
