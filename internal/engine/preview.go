package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/notes"
	"github.com/splitwarden/splitwarden/internal/service"
	"github.com/splitwarden/splitwarden/internal/split"
)

// ItemChange describes how one item's membership would change.
type ItemChange struct {
	Name            string
	Price           decimal.Decimal
	OriginalMembers []string
	NewMembers      []string
	Added           []string
	Removed         []string
	PerPersonBefore decimal.Decimal
	PerPersonAfter  decimal.Decimal
}

// Validation summarizes whether the recomputed totals still reconcile.
type Validation struct {
	TotalMatches  bool
	OriginalTotal decimal.Decimal
	NewTotal      decimal.Decimal
}

// Preview is the dry-run result of applying an expense's approved
// requests.
type Preview struct {
	SplitwiseID     string
	Description     string
	HasChanges      bool
	RequestCount    int
	OriginalSplits  map[string]decimal.Decimal
	NewSplits       map[string]decimal.Decimal
	Diffs           map[string]split.MemberDiff
	ItemChanges     []ItemChange
	AffectedMembers []string
	Validation      Validation
	NotePreview     string
}

// finalItems replays approved requests over the original items. Joins
// and leaves are idempotent per member-item pair and cumulative across
// requests, in submission order.
func finalItems(original []model.Item, approved []model.PendingUpdate) []model.Item {
	items := model.CloneItems(original)
	for _, req := range approved {
		for _, change := range req.Changes {
			for i := range items {
				if items[i].Name != change.ItemName {
					continue
				}
				switch change.Action {
				case model.ActionJoin:
					if !items[i].HasMember(req.RequestedByName) {
						items[i].Members = append(items[i].Members, req.RequestedByName)
					}
				case model.ActionLeave:
					items[i].Members = removeMember(items[i].Members, req.RequestedByName)
				}
			}
		}
	}
	return items
}

func removeMember(members []string, name string) []string {
	out := members[:0]
	for _, m := range members {
		if m != name {
			out = append(out, m)
		}
	}
	return out
}

// approvedRequests returns an expense's approved requests in submission
// order, the order finalItems replays them in.
func (e *Engine) approvedRequests(ctx context.Context, splitwiseID string) ([]model.PendingUpdate, error) {
	approved, err := e.store.ListRequests(ctx, service.RequestFilter{
		SplitwiseID: splitwiseID,
		Status:      model.StatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list approved requests for expense %s: %w", splitwiseID, err)
	}
	return approved, nil
}

// PreviewChanges recomputes the cost split an expense would have after
// its approved requests, without touching the ledger or the mirror.
// An expense with no approved requests previews as a no-op, not an
// error.
func (e *Engine) PreviewChanges(ctx context.Context, ident *identity.Identity, splitwiseID string) (*Preview, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	s, err := e.store.GetSplitBySplitwiseID(ctx, splitwiseID)
	if err != nil {
		return nil, fmt.Errorf("expense %s: %w", splitwiseID, err)
	}

	approved, err := e.approvedRequests(ctx, splitwiseID)
	if err != nil {
		return nil, err
	}

	preview := &Preview{
		SplitwiseID:    splitwiseID,
		Description:    s.Description,
		RequestCount:   len(approved),
		OriginalSplits: split.ComputeMemberSplits(s.Items),
	}
	if len(approved) == 0 {
		preview.NewSplits = preview.OriginalSplits
		preview.Validation = Validation{
			TotalMatches:  true,
			OriginalTotal: split.Total(preview.OriginalSplits),
			NewTotal:      split.Total(preview.OriginalSplits),
		}
		return preview, nil
	}

	updated := finalItems(s.Items, approved)
	preview.HasChanges = true
	preview.NewSplits = split.ComputeMemberSplits(updated)
	preview.Diffs = split.Diff(preview.OriginalSplits, preview.NewSplits)
	preview.ItemChanges = itemChanges(s.Items, updated)
	preview.AffectedMembers = affectedMembers(preview.Diffs)
	preview.Validation = Validation{
		TotalMatches:  split.TotalsReconcile(preview.OriginalSplits, preview.NewSplits, e.tolerance),
		OriginalTotal: split.Total(preview.OriginalSplits),
		NewTotal:      split.Total(preview.NewSplits),
	}

	previewSplit := *s
	previewSplit.Items = updated
	previewSplit.MemberSplits = preview.NewSplits
	note, err := notes.Encode(&previewSplit, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to render note preview for expense %s: %w", splitwiseID, err)
	}
	preview.NotePreview = note

	return preview, nil
}

func itemChanges(original, updated []model.Item) []ItemChange {
	var changes []ItemChange
	for i := range original {
		before := original[i]
		after := updated[i]
		added, removed := memberDelta(before.Members, after.Members)
		if len(added) == 0 && len(removed) == 0 {
			continue
		}
		changes = append(changes, ItemChange{
			Name:            before.Name,
			Price:           before.Price,
			OriginalMembers: append([]string(nil), before.Members...),
			NewMembers:      append([]string(nil), after.Members...),
			Added:           added,
			Removed:         removed,
			PerPersonBefore: split.PerPersonShare(before),
			PerPersonAfter:  split.PerPersonShare(after),
		})
	}
	return changes
}

func memberDelta(before, after []string) (added, removed []string) {
	inBefore := make(map[string]bool, len(before))
	for _, m := range before {
		inBefore[m] = true
	}
	inAfter := make(map[string]bool, len(after))
	for _, m := range after {
		inAfter[m] = true
	}
	for _, m := range after {
		if !inBefore[m] {
			added = append(added, m)
		}
	}
	for _, m := range before {
		if !inAfter[m] {
			removed = append(removed, m)
		}
	}
	return added, removed
}

func affectedMembers(diffs map[string]split.MemberDiff) []string {
	var members []string
	for name, d := range diffs {
		if !d.Difference.IsZero() {
			members = append(members, name)
		}
	}
	sort.Strings(members)
	return members
}
