package engine

import (
	"context"
	"errors"
	"fmt"
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

// ImportStatus classifies what happened to one expense during import.
type ImportStatus string

// Import outcomes.
const (
	ImportStatusImported      ImportStatus = "imported"
	ImportStatusAlreadyExists ImportStatus = "already_exists"
	ImportStatusNoItemData    ImportStatus = "no_item_data"
	ImportStatusFailed        ImportStatus = "failed"
)

// ImportOutcome is the per-expense result of a bulk import.
type ImportOutcome struct {
	ExpenseID   int64
	Description string
	Status      ImportStatus
	Reason      string
}

// BulkImportResult aggregates a bulk import run.
type BulkImportResult struct {
	Found          int
	Imported       int
	AlreadyExisted int
	NoItemData     int
	Failed         int
	Outcomes       []ImportOutcome
}

// ImportExpense mirrors one external expense locally. The expense's
// note must carry an itemized breakdown; an expense already mirrored is
// a no-op and returns the existing record.
func (e *Engine) ImportExpense(ctx context.Context, ident *identity.Identity, expenseID int64) (*model.Split, ImportStatus, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, ImportStatusFailed, err
	}

	expense, err := e.ledger.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, ImportStatusFailed, fmt.Errorf("expense %d: %w", expenseID, err)
	}

	groupNames, err := e.groupNames(ctx)
	if err != nil {
		return nil, ImportStatusFailed, err
	}

	return e.importOne(ctx, ident, expense, groupNames)
}

// BulkImportOptions scope a bulk import run. Zero Start/End leave that
// side of the window open; zero GroupID means all groups. Progress, if
// set, is called after each expense.
type BulkImportOptions struct {
	Start    time.Time
	End      time.Time
	GroupID  int64
	Progress func(done, total int)
}

// BulkImport mirrors every itemized expense in the given window. One
// expense's failure never aborts the rest; every expense gets an
// outcome.
func (e *Engine) BulkImport(ctx context.Context, ident *identity.Identity, opts BulkImportOptions) (*BulkImportResult, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	expenses, err := e.ledger.GetExpenses(ctx, opts.GroupID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	groupNames, err := e.groupNames(ctx)
	if err != nil {
		return nil, err
	}

	var window []*splitwise.Expense
	for i := range expenses {
		if inWindow(expenses[i].Date, opts.Start, opts.End) {
			window = append(window, &expenses[i])
		}
	}

	result := &BulkImportResult{Found: len(window)}
	for i, expense := range window {
		outcome := ImportOutcome{ExpenseID: expense.ID, Description: expense.Description}
		_, status, err := e.importOne(ctx, ident, expense, groupNames)
		outcome.Status = status
		if err != nil {
			outcome.Reason = err.Error()
		}

		switch status {
		case ImportStatusImported:
			result.Imported++
		case ImportStatusAlreadyExists:
			result.AlreadyExisted++
		case ImportStatusNoItemData:
			result.NoItemData++
		case ImportStatusFailed:
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
		if opts.Progress != nil {
			opts.Progress(i+1, len(window))
		}
	}

	e.logger.Info("bulk import finished",
		"found", result.Found,
		"imported", result.Imported,
		"already_existed", result.AlreadyExisted,
		"no_item_data", result.NoItemData,
		"failed", result.Failed)
	return result, nil
}

func (e *Engine) importOne(ctx context.Context, ident *identity.Identity, expense *splitwise.Expense, groupNames map[int64]string) (*model.Split, ImportStatus, error) {
	splitwiseID := strconv.FormatInt(expense.ID, 10)

	existing, err := e.store.GetSplitBySplitwiseID(ctx, splitwiseID)
	if err == nil {
		return existing, ImportStatusAlreadyExists, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, ImportStatusFailed, fmt.Errorf("expense %s: %w", splitwiseID, err)
	}

	items, ok := notes.Decode(expense.Details)
	if !ok {
		return nil, ImportStatusNoItemData, fmt.Errorf("expense %s has no itemized data: %w", splitwiseID, common.ErrValidation)
	}

	payer, err := payerName(expense)
	if err != nil {
		return nil, ImportStatusFailed, fmt.Errorf("expense %s: %w", splitwiseID, err)
	}

	total, err := decimal.NewFromString(expense.Cost)
	if err != nil {
		return nil, ImportStatusFailed, fmt.Errorf("expense %s has invalid cost %q: %w", splitwiseID, expense.Cost, common.ErrValidation)
	}

	s := &model.Split{
		SplitwiseID:  splitwiseID,
		GroupID:      strconv.FormatInt(expense.GroupID, 10),
		GroupName:    groupNames[expense.GroupID],
		Description:  expense.Description,
		TotalAmount:  total,
		PaidBy:       payer,
		CreatedBy:    ident.Email,
		Items:        items,
		MemberSplits: split.ComputeMemberSplits(items),
	}
	if err := e.store.CreateSplit(ctx, s); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			return nil, ImportStatusAlreadyExists, nil
		}
		return nil, ImportStatusFailed, fmt.Errorf("failed to save expense %s: %w", splitwiseID, err)
	}

	e.logger.Info("expense imported",
		"expense_id", splitwiseID,
		"description", expense.Description,
		"items", len(items),
		"paid_by", payer)
	return s, ImportStatusImported, nil
}

// payerName finds the single participant with a nonzero paid share.
// More than one payer cannot be expressed by PaidBy and is rejected;
// none at all falls back to "Unknown".
func payerName(expense *splitwise.Expense) (string, error) {
	var payer string
	var found bool
	for _, u := range expense.Users {
		paid, err := decimal.NewFromString(u.PaidShare)
		if err != nil || paid.IsZero() {
			continue
		}
		if found {
			return "", fmt.Errorf("expense has multiple payers: %w", common.ErrValidation)
		}
		payer = u.FirstName()
		found = true
	}
	if payer == "" {
		return "Unknown", nil
	}
	return payer, nil
}

func (e *Engine) groupNames(ctx context.Context) (map[int64]string, error) {
	groups, err := e.ledger.GetGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	names := make(map[int64]string, len(groups))
	for _, g := range groups {
		names[g.ID] = g.Name
	}
	return names, nil
}

// inWindow checks an expense date against an inclusive window. Zero
// bounds are open; an unparseable date fails open so an odd timestamp
// cannot hide an expense from import.
func inWindow(date string, start, end time.Time) bool {
	if date == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return true
	}
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}
