package splitwise

import "encoding/json"

// User is a Splitwise account as returned by the user and friend endpoints.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// ExpenseUser is one participant's share of an expense.
type ExpenseUser struct {
	User      *User  `json:"user,omitempty"`
	UserID    int64  `json:"user_id"`
	PaidShare string `json:"paid_share"`
	OwedShare string `json:"owed_share"`
}

// FirstName returns the participant's first name when the nested user
// record is present.
func (eu ExpenseUser) FirstName() string {
	if eu.User != nil {
		return eu.User.FirstName
	}
	return ""
}

// Expense is a Splitwise expense. Details carries the free-form note,
// which is where itemized breakdowns are stored.
type Expense struct {
	ID          int64         `json:"id"`
	GroupID     int64         `json:"group_id"`
	Description string        `json:"description"`
	Details     string        `json:"details"`
	Cost        string        `json:"cost"`
	Date        string        `json:"date"`
	DeletedAt   *string       `json:"deleted_at"`
	Users       []ExpenseUser `json:"users"`
}

// Group is a Splitwise group.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ExpenseUpdate is the payload for rewriting an expense's cost, note,
// and per-member shares.
type ExpenseUpdate struct {
	Cost        string
	Description string
	Details     string
	GroupID     int64
	Users       []ExpenseUser
}

type apiError struct {
	Errors map[string]json.RawMessage `json:"errors"`
	Error  string                     `json:"error"`
}

func (e apiError) hasErrors() bool {
	if e.Error != "" {
		return true
	}
	for _, raw := range e.Errors {
		trimmed := string(raw)
		if trimmed != "" && trimmed != "[]" && trimmed != "{}" && trimmed != "null" {
			return true
		}
	}
	return false
}
