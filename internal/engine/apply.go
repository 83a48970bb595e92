package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/notes"
	"github.com/splitwarden/splitwarden/internal/split"
	"github.com/splitwarden/splitwarden/internal/splitwise"
)

// ApplyResult reports a successful apply.
type ApplyResult struct {
	SplitwiseID     string
	AppliedRequests int
	AffectedMembers []string
	// NoChanges is set when the expense had no approved requests;
	// nothing was written anywhere.
	NoChanges bool
}

// Apply pushes an expense's approved requests to the ledger and then to
// the local mirror, in that order.
//
// The write is two-phase. Phase A rewrites the external expense; if it
// fails, every request stays approved and nothing local changes, so the
// apply can simply be retried. Phase B persists the new items on the
// mirror and marks requests applied; if Phase B fails the ledger and
// mirror now disagree, requests move to critical, and the returned
// error demands manual reconciliation. Critical requests are never
// retried automatically.
func (e *Engine) Apply(ctx context.Context, ident *identity.Identity, splitwiseID string) (*ApplyResult, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	unlock := e.lockExpense(splitwiseID)
	defer unlock()

	s, err := e.store.GetSplitBySplitwiseID(ctx, splitwiseID)
	if err != nil {
		return nil, fmt.Errorf("expense %s: %w", splitwiseID, err)
	}

	approved, err := e.approvedRequests(ctx, splitwiseID)
	if err != nil {
		return nil, err
	}
	if len(approved) == 0 {
		return &ApplyResult{SplitwiseID: splitwiseID, NoChanges: true}, nil
	}

	updated := finalItems(s.Items, approved)
	newSplits := split.ComputeMemberSplits(updated)
	originalSplits := split.ComputeMemberSplits(s.Items)
	if !split.TotalsReconcile(originalSplits, newSplits, e.tolerance) {
		e.logger.Warn("totals drift beyond tolerance, applying anyway",
			"expense_id", splitwiseID,
			"original", split.Total(originalSplits).StringFixed(2),
			"new", split.Total(newSplits).StringFixed(2))
	}

	// Phase A: external ledger first. Any failure leaves requests
	// approved and the mirror untouched.
	if err := e.updateLedger(ctx, s, updated, newSplits); err != nil {
		e.logger.Error("ledger update failed, requests remain approved",
			"expense_id", splitwiseID,
			"requests", len(approved),
			"error", err)
		return nil, err
	}

	// Phase B: mirror and request states. From here on a failure means
	// the two systems disagree.
	requestIDs := make([]string, len(approved))
	for i, req := range approved {
		requestIDs[i] = req.ID
	}

	if err := e.store.UpdateSplitItems(ctx, s.ID, updated, newSplits); err != nil {
		e.markCritical(ctx, approved)
		return nil, &common.CriticalError{
			Err:        fmt.Errorf("ledger updated but mirror write failed: %w", err),
			ExpenseID:  splitwiseID,
			RequestIDs: requestIDs,
		}
	}

	for i := range approved {
		req := &approved[i]
		if err := req.Transition(model.StatusApplied); err != nil {
			continue
		}
		if err := e.store.UpdateRequestStatus(ctx, req); err != nil {
			// The store still holds approved for this request; reset the
			// in-memory copy so markCritical picks it up too.
			req.Status = model.StatusApproved
			e.markCritical(ctx, approved[i:])
			return nil, &common.CriticalError{
				Err:        fmt.Errorf("mirror updated but request %s not marked applied: %w", req.ID, err),
				ExpenseID:  splitwiseID,
				RequestIDs: requestIDs,
			}
		}
	}

	diffs := split.Diff(originalSplits, newSplits)
	result := &ApplyResult{
		SplitwiseID:     splitwiseID,
		AppliedRequests: len(approved),
		AffectedMembers: affectedMembers(diffs),
	}

	e.logger.Info("expense applied",
		"expense_id", splitwiseID,
		"requests", result.AppliedRequests,
		"affected_members", len(result.AffectedMembers),
		"admin", ident.Email)
	return result, nil
}

// updateLedger builds the Splitwise payload for the recomputed items
// and pushes it. The payer carries the full paid share plus their own
// owed share; everyone else pays zero and owes their share; members
// owing nothing are omitted entirely.
func (e *Engine) updateLedger(ctx context.Context, s *model.Split, items []model.Item, memberSplits map[string]decimal.Decimal) error {
	expenseID, err := strconv.ParseInt(s.SplitwiseID, 10, 64)
	if err != nil {
		return fmt.Errorf("expense id %q is not numeric: %w", s.SplitwiseID, common.ErrValidation)
	}

	payerID, err := e.resolver.Resolve(ctx, s.PaidBy)
	if err != nil {
		return &common.LedgerError{
			Err:       fmt.Errorf("cannot resolve payer: %w", err),
			ExpenseID: expenseID,
		}
	}

	zero := decimal.Zero.StringFixed(2)
	users := []splitwise.ExpenseUser{{
		UserID:    payerID,
		PaidShare: s.TotalAmount.StringFixed(2),
		OwedShare: memberSplits[s.PaidBy].StringFixed(2),
	}}

	names := make([]string, 0, len(memberSplits))
	for name := range memberSplits {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		owed := memberSplits[name]
		if name == s.PaidBy || owed.IsZero() {
			continue
		}
		userID, err := e.resolver.Resolve(ctx, name)
		if err != nil {
			return &common.LedgerError{
				Err:       fmt.Errorf("cannot resolve member: %w", err),
				ExpenseID: expenseID,
			}
		}
		users = append(users, splitwise.ExpenseUser{
			UserID:    userID,
			PaidShare: zero,
			OwedShare: owed.StringFixed(2),
		})
	}

	updatedSplit := *s
	updatedSplit.Items = items
	updatedSplit.MemberSplits = memberSplits
	note, err := notes.Encode(&updatedSplit, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to encode note for expense %s: %w", s.SplitwiseID, err)
	}

	groupID, err := strconv.ParseInt(s.GroupID, 10, 64)
	if err != nil {
		return fmt.Errorf("group id %q is not numeric: %w", s.GroupID, common.ErrValidation)
	}

	return e.ledger.UpdateExpense(ctx, expenseID, splitwise.ExpenseUpdate{
		Cost:        s.TotalAmount.StringFixed(2),
		Description: s.Description,
		Details:     note,
		GroupID:     groupID,
		Users:       users,
	})
}

// markCritical is best-effort: if even the status write fails, the
// CriticalError already carries the request ids for manual cleanup.
func (e *Engine) markCritical(ctx context.Context, requests []model.PendingUpdate) {
	for i := range requests {
		req := &requests[i]
		if req.Status != model.StatusApproved {
			continue
		}
		if err := req.Transition(model.StatusCritical); err != nil {
			continue
		}
		if err := e.store.UpdateRequestStatus(ctx, req); err != nil {
			e.logger.Error("failed to mark request critical",
				"request_id", req.ID, "error", err)
		}
	}
}
