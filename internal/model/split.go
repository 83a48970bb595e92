// Package model defines the core domain types for splitwarden.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a single priced line on a split, shared equally among its members.
type Item struct {
	// Name identifies the item within its split (e.g., "Pizza").
	Name string

	// Price is the item's cost. Must be >= 0.
	Price decimal.Decimal

	// Members are the names of the people sharing this item.
	// An item with no members contributes nothing to anyone's share.
	Members []string
}

// HasMember reports whether name currently shares this item.
func (i *Item) HasMember(name string) bool {
	for _, m := range i.Members {
		if m == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	out := i
	out.Members = append([]string(nil), i.Members...)
	return out
}

// CloneItems returns a deep copy of an item list.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}

// Split is the local mirror of one itemized expense in the external ledger.
//
// MemberSplits is derived from Items and must only diverge from them
// transiently, inside the two-phase apply window.
type Split struct {
	// ID is the store-generated identifier (UUID format).
	ID string

	// SplitwiseID is the external ledger's expense id, kept as a natural
	// key so re-importing the same expense is an idempotent no-op.
	SplitwiseID string

	// GroupID is the external ledger group this expense belongs to.
	GroupID string

	// GroupName is the display name of the group at import time.
	GroupName string

	// Description is the expense description from the external ledger.
	Description string

	// TotalAmount is the full expense cost.
	TotalAmount decimal.Decimal

	// PaidBy is the member name of the payer.
	PaidBy string

	// CreatedBy is the email of the user who imported this expense.
	CreatedBy string

	// Items are the priced lines making up the expense.
	Items []Item

	// MemberSplits maps member name to the amount they owe, recomputable
	// from Items at any time.
	MemberSplits map[string]decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindItem returns the item with the given name, or nil.
func (s *Split) FindItem(name string) *Item {
	for i := range s.Items {
		if s.Items[i].Name == name {
			return &s.Items[i]
		}
	}
	return nil
}
