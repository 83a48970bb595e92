package engine

import (
	"context"
	"fmt"

	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/service"
)

// DecisionResult reports what a batch decision actually did.
type DecisionResult struct {
	Approved int
	Rejected int
	// Ignored counts ids that were not pending requests of this
	// expense: already decided, unknown, or belonging elsewhere.
	Ignored int
}

// CommitDecisions applies an admin's batch decision for one expense.
// Only requests that are currently pending AND belong to the expense
// move; everything else is counted as ignored. Re-committing the same
// decision is therefore harmless: an applied request can never regress.
func (e *Engine) CommitDecisions(ctx context.Context, ident *identity.Identity, splitwiseID string, approvedIDs, rejectedIDs []string, notes string) (*DecisionResult, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	pending, err := e.store.ListRequests(ctx, service.RequestFilter{
		SplitwiseID: splitwiseID,
		Status:      model.StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests for expense %s: %w", splitwiseID, err)
	}

	byID := make(map[string]*model.PendingUpdate, len(pending))
	for i := range pending {
		byID[pending[i].ID] = &pending[i]
	}

	result := &DecisionResult{}
	decide := func(ids []string, next model.RequestStatus) error {
		for _, id := range ids {
			req, ok := byID[id]
			if !ok {
				result.Ignored++
				e.logger.Warn("decision ignored for non-pending request",
					"request_id", id, "expense_id", splitwiseID)
				continue
			}
			if err := req.Transition(next); err != nil {
				result.Ignored++
				continue
			}
			req.AdminNotes = notes
			if err := e.store.UpdateRequestStatus(ctx, req); err != nil {
				return fmt.Errorf("failed to save decision for request %s: %w", id, err)
			}
			// A request decided once must not be decided again within
			// this batch if the same id appears in both lists.
			delete(byID, id)
			switch next {
			case model.StatusApproved:
				result.Approved++
			case model.StatusRejected:
				result.Rejected++
			}
		}
		return nil
	}

	if err := decide(approvedIDs, model.StatusApproved); err != nil {
		return nil, err
	}
	if err := decide(rejectedIDs, model.StatusRejected); err != nil {
		return nil, err
	}

	e.logger.Info("decisions committed",
		"expense_id", splitwiseID,
		"approved", result.Approved,
		"rejected", result.Rejected,
		"ignored", result.Ignored,
		"admin", ident.Email)
	return result, nil
}
