package splitwise

import "context"

// Ledger defines the contract for talking to the external expense ledger.
// This interface allows for easy mocking in tests and swapping backends.
type Ledger interface {
	GetExpense(ctx context.Context, expenseID int64) (*Expense, error)
	GetExpenses(ctx context.Context, groupID int64, limit int) ([]Expense, error)
	UpdateExpense(ctx context.Context, expenseID int64, update ExpenseUpdate) error
	GetCurrentUser(ctx context.Context) (*User, error)
	GetFriends(ctx context.Context) ([]User, error)
	GetGroups(ctx context.Context) ([]Group, error)
}
