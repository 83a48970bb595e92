// Package engine implements the request review and apply workflow for
// itemized splits.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/service"
	"github.com/splitwarden/splitwarden/internal/splitwise"
)

// Engine orchestrates member requests against the local mirror and the
// external ledger.
type Engine struct {
	store    service.Store
	ledger   splitwise.Ledger
	resolver *splitwise.MemberResolver
	logger   *slog.Logger

	// tolerance bounds the acceptable drift between original and
	// recomputed expense totals.
	tolerance decimal.Decimal

	// expenseLocks serializes Apply per expense id. Different expenses
	// proceed independently.
	expenseLocks sync.Map
}

// Config holds configuration options for the engine.
type Config struct {
	// Tolerance for total reconciliation, e.g. "0.01".
	Tolerance decimal.Decimal
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Tolerance: decimal.NewFromFloat(0.01),
	}
}

// New creates an engine with the given dependencies.
func New(store service.Store, ledger splitwise.Ledger, cfg Config) *Engine {
	tolerance := cfg.Tolerance
	if tolerance.IsZero() {
		tolerance = DefaultConfig().Tolerance
	}
	return &Engine{
		store:     store,
		ledger:    ledger,
		resolver:  splitwise.NewMemberResolver(ledger),
		logger:    slog.Default().With("component", "engine"),
		tolerance: tolerance,
	}
}

func (e *Engine) lockExpense(splitwiseID string) func() {
	muAny, _ := e.expenseLocks.LoadOrStore(splitwiseID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// memberFor resolves the caller's member mapping. Every member-facing
// operation goes through here; an unmapped or deactivated caller gets
// an authorization error, not a lookup error.
func (e *Engine) memberFor(ctx context.Context, ident *identity.Identity) (*model.MemberMapping, error) {
	if ident == nil {
		return nil, common.ErrUnauthorized
	}
	mapping, err := e.store.GetMemberMappingByEmail(ctx, ident.Email)
	if err != nil {
		return nil, fmt.Errorf("no member mapping for %s: %w", ident.Email, common.ErrUnauthorized)
	}
	if !mapping.IsActive {
		return nil, fmt.Errorf("member %s is deactivated: %w", ident.Email, common.ErrUnauthorized)
	}
	return mapping, nil
}

// SubmitRequest records a member's wish to join or leave one item of a
// split. The request starts pending and waits for an admin decision.
func (e *Engine) SubmitRequest(ctx context.Context, ident *identity.Identity, splitID, itemName string, action model.ChangeAction) (*model.PendingUpdate, error) {
	if !action.Valid() {
		return nil, fmt.Errorf("unknown action %q: %w", action, common.ErrValidation)
	}

	mapping, err := e.memberFor(ctx, ident)
	if err != nil {
		return nil, err
	}

	s, err := e.store.GetSplit(ctx, splitID)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", splitID, err)
	}
	if !ident.IsAdmin && !mapping.CanAccess(s.GroupID) {
		return nil, fmt.Errorf("member %s has no access to group %s: %w", ident.Email, s.GroupID, common.ErrUnauthorized)
	}

	item := s.FindItem(itemName)
	if item == nil {
		return nil, fmt.Errorf("split %s has no item %q: %w", splitID, itemName, common.ErrValidation)
	}

	// Submitting a change that is already true is allowed; apply is
	// idempotent per member-item pair. But flag the obvious case.
	if action == model.ActionJoin && item.HasMember(mapping.Name) {
		e.logger.Debug("join request for item already containing member",
			"split_id", splitID, "item", itemName, "member", mapping.Name)
	}

	req := &model.PendingUpdate{
		ID:               uuid.New().String(),
		SplitID:          s.ID,
		SplitwiseID:      s.SplitwiseID,
		RequestedByEmail: mapping.Email,
		RequestedByName:  mapping.Name,
		Changes:          []model.Change{{ItemName: itemName, Action: action}},
		Status:           model.StatusPending,
	}
	if err := e.store.CreateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to save request: %w", err)
	}

	e.logger.Info("request submitted",
		"request_id", req.ID,
		"expense_id", s.SplitwiseID,
		"member", mapping.Name,
		"item", itemName,
		"action", action)
	return req, nil
}

// ListMySplits returns the splits in groups the caller belongs to.
// Admins see everything.
func (e *Engine) ListMySplits(ctx context.Context, ident *identity.Identity) ([]model.Split, error) {
	mapping, err := e.memberFor(ctx, ident)
	if err != nil {
		return nil, err
	}
	if ident.IsAdmin {
		return e.store.ListSplits(ctx)
	}
	return e.store.ListSplitsByGroups(ctx, mapping.Groups)
}

// GetSplit returns one split, enforcing group access for non-admins.
func (e *Engine) GetSplit(ctx context.Context, ident *identity.Identity, splitID string) (*model.Split, error) {
	mapping, err := e.memberFor(ctx, ident)
	if err != nil {
		return nil, err
	}
	s, err := e.store.GetSplit(ctx, splitID)
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", splitID, err)
	}
	if !ident.IsAdmin && !mapping.CanAccess(s.GroupID) {
		return nil, fmt.Errorf("member %s has no access to group %s: %w", ident.Email, s.GroupID, common.ErrUnauthorized)
	}
	return s, nil
}

// ListMyRequests returns the caller's own requests, newest submission
// order last.
func (e *Engine) ListMyRequests(ctx context.Context, ident *identity.Identity) ([]model.PendingUpdate, error) {
	if _, err := e.memberFor(ctx, ident); err != nil {
		return nil, err
	}
	return e.store.ListRequests(ctx, service.RequestFilter{Email: ident.Email})
}
