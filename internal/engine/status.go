package engine

import (
	"context"
	"fmt"

	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/model"
)

// StatusReport summarizes where an expense sits in the review workflow.
type StatusReport struct {
	SplitwiseID    string
	Description    string
	Counts         map[model.RequestStatus]int
	WorkflowStatus model.WorkflowStatus
	CanPreview     bool
	CanApply       bool
	HasCritical    bool
}

// ExpenseStatus reports an expense's per-status request counts and what
// an admin can do next.
func (e *Engine) ExpenseStatus(ctx context.Context, ident *identity.Identity, splitwiseID string) (*StatusReport, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	s, err := e.store.GetSplitBySplitwiseID(ctx, splitwiseID)
	if err != nil {
		return nil, fmt.Errorf("expense %s: %w", splitwiseID, err)
	}

	counts, err := e.store.CountRequestsByStatus(ctx, splitwiseID)
	if err != nil {
		return nil, fmt.Errorf("failed to count requests for expense %s: %w", splitwiseID, err)
	}

	return &StatusReport{
		SplitwiseID:    splitwiseID,
		Description:    s.Description,
		Counts:         counts,
		WorkflowStatus: model.DetermineWorkflowStatus(counts),
		CanPreview:     counts[model.StatusApproved] > 0,
		CanApply:       counts[model.StatusApproved] > 0,
		HasCritical:    counts[model.StatusCritical] > 0,
	}, nil
}
