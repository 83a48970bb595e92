package splitwise

import (
	"context"
	"fmt"

	"github.com/splitwarden/splitwarden/internal/common"
)

// MockLedger is a mock implementation of Ledger for testing.
type MockLedger struct {
	// Functions that can be set by tests to control behavior
	GetExpenseFn     func(ctx context.Context, expenseID int64) (*Expense, error)
	GetExpensesFn    func(ctx context.Context, groupID int64, limit int) ([]Expense, error)
	UpdateExpenseFn  func(ctx context.Context, expenseID int64, update ExpenseUpdate) error
	GetCurrentUserFn func(ctx context.Context) (*User, error)
	GetFriendsFn     func(ctx context.Context) ([]User, error)
	GetGroupsFn      func(ctx context.Context) ([]Group, error)

	// Expenses backs the default behavior: fetch and update operate on
	// this map directly, so tests can inspect what was written.
	Expenses map[int64]*Expense
	Users    []User

	// Call tracking
	UpdateExpenseCalls []UpdateExpenseCall
	GetExpenseCalls    []int64
}

// UpdateExpenseCall records the parameters of an UpdateExpense call.
type UpdateExpenseCall struct {
	ExpenseID int64
	Update    ExpenseUpdate
}

// NewMockLedger creates a new mock ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{
		Expenses: make(map[int64]*Expense),
	}
}

// GetExpense implements Ledger.GetExpense.
func (m *MockLedger) GetExpense(ctx context.Context, expenseID int64) (*Expense, error) {
	m.GetExpenseCalls = append(m.GetExpenseCalls, expenseID)
	if m.GetExpenseFn != nil {
		return m.GetExpenseFn(ctx, expenseID)
	}
	e, ok := m.Expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %d: %w", expenseID, common.ErrNotFound)
	}
	return e, nil
}

// GetExpenses implements Ledger.GetExpenses.
func (m *MockLedger) GetExpenses(ctx context.Context, groupID int64, limit int) ([]Expense, error) {
	if m.GetExpensesFn != nil {
		return m.GetExpensesFn(ctx, groupID, limit)
	}
	var out []Expense
	for _, e := range m.Expenses {
		if groupID == 0 || e.GroupID == groupID {
			out = append(out, *e)
		}
	}
	return out, nil
}

// UpdateExpense implements Ledger.UpdateExpense.
func (m *MockLedger) UpdateExpense(ctx context.Context, expenseID int64, update ExpenseUpdate) error {
	m.UpdateExpenseCalls = append(m.UpdateExpenseCalls, UpdateExpenseCall{ExpenseID: expenseID, Update: update})
	if m.UpdateExpenseFn != nil {
		return m.UpdateExpenseFn(ctx, expenseID, update)
	}
	e, ok := m.Expenses[expenseID]
	if !ok {
		return &common.LedgerError{
			Err:       fmt.Errorf("expense %d: %w", expenseID, common.ErrNotFound),
			ExpenseID: expenseID,
		}
	}
	e.Cost = update.Cost
	e.Description = update.Description
	e.Details = update.Details
	e.Users = update.Users
	return nil
}

// GetCurrentUser implements Ledger.GetCurrentUser.
func (m *MockLedger) GetCurrentUser(ctx context.Context) (*User, error) {
	if m.GetCurrentUserFn != nil {
		return m.GetCurrentUserFn(ctx)
	}
	if len(m.Users) > 0 {
		u := m.Users[0]
		return &u, nil
	}
	return &User{ID: 1, FirstName: "Admin"}, nil
}

// GetFriends implements Ledger.GetFriends.
func (m *MockLedger) GetFriends(ctx context.Context) ([]User, error) {
	if m.GetFriendsFn != nil {
		return m.GetFriendsFn(ctx)
	}
	if len(m.Users) > 1 {
		return m.Users[1:], nil
	}
	return []User{}, nil
}

// GetGroups implements Ledger.GetGroups.
func (m *MockLedger) GetGroups(ctx context.Context) ([]Group, error) {
	if m.GetGroupsFn != nil {
		return m.GetGroupsFn(ctx)
	}
	return []Group{}, nil
}
