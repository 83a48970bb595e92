package model

import "time"

// MemberMapping resolves a caller's email to the canonical member name used
// inside Item.Members, and to the set of ledger groups they may see.
// These records are owned by the identity side of the system; the core only
// reads them for access-control decisions.
type MemberMapping struct {
	// ID is the store-generated identifier (UUID format).
	ID string

	// Email is the login email, unique across mappings.
	Email string

	// Name is the canonical member name (first name only, by convention).
	Name string

	// Groups are the external ledger group ids visible to this member.
	Groups []string

	// IsActive disables a mapping without deleting it.
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanAccess reports whether the mapping grants access to the given group.
func (m *MemberMapping) CanAccess(groupID string) bool {
	for _, g := range m.Groups {
		if g == groupID {
			return true
		}
	}
	return false
}
