package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/service"
)

// ExpenseQueue is the pending requests for one expense, ready for a
// batch decision.
type ExpenseQueue struct {
	SplitwiseID string
	SplitID     string
	Description string
	GroupName   string
	TotalAmount decimal.Decimal
	Requesters  []string
	Requests    []model.PendingUpdate
}

// GroupedPending returns all pending requests grouped by expense, the
// admin review queue. Expenses are ordered by their oldest pending
// request so the queue is stable between calls.
func (e *Engine) GroupedPending(ctx context.Context, ident *identity.Identity) ([]ExpenseQueue, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	pending, err := e.store.ListRequests(ctx, service.RequestFilter{Status: model.StatusPending})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}

	byExpense := make(map[string]*ExpenseQueue)
	var order []string
	for _, req := range pending {
		q, ok := byExpense[req.SplitwiseID]
		if !ok {
			s, err := e.store.GetSplit(ctx, req.SplitID)
			if err != nil {
				return nil, fmt.Errorf("split %s for request %s: %w", req.SplitID, req.ID, err)
			}
			q = &ExpenseQueue{
				SplitwiseID: req.SplitwiseID,
				SplitID:     s.ID,
				Description: s.Description,
				GroupName:   s.GroupName,
				TotalAmount: s.TotalAmount,
			}
			byExpense[req.SplitwiseID] = q
			order = append(order, req.SplitwiseID)
		}
		q.Requests = append(q.Requests, req)
	}

	queues := make([]ExpenseQueue, 0, len(order))
	for _, id := range order {
		q := byExpense[id]
		q.Requesters = uniqueRequesters(q.Requests)
		queues = append(queues, *q)
	}
	return queues, nil
}

func uniqueRequesters(requests []model.PendingUpdate) []string {
	seen := make(map[string]bool, len(requests))
	var names []string
	for _, r := range requests {
		if !seen[r.RequestedByName] {
			seen[r.RequestedByName] = true
			names = append(names, r.RequestedByName)
		}
	}
	sort.Strings(names)
	return names
}
