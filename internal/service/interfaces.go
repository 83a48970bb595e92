// Package service defines the interfaces shared across application layers.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/model"
)

// RequestFilter defines filtering options for request queries.
type RequestFilter struct {
	SplitwiseID string
	Email       string
	Status      model.RequestStatus
}

// Store defines the contract for the persistence layer. Splits and member
// mappings are regular CRUD records; pending updates are append-only apart
// from status transitions, so there is deliberately no delete operation for
// them (they are the audit trail).
type Store interface {
	// Split operations
	CreateSplit(ctx context.Context, s *model.Split) error
	GetSplit(ctx context.Context, id string) (*model.Split, error)
	GetSplitBySplitwiseID(ctx context.Context, splitwiseID string) (*model.Split, error)
	UpdateSplitItems(ctx context.Context, id string, items []model.Item, memberSplits map[string]decimal.Decimal) error
	ListSplitsByGroups(ctx context.Context, groupIDs []string) ([]model.Split, error)
	ListSplits(ctx context.Context) ([]model.Split, error)

	// Pending update operations
	CreateRequest(ctx context.Context, r *model.PendingUpdate) error
	GetRequest(ctx context.Context, id string) (*model.PendingUpdate, error)
	UpdateRequestStatus(ctx context.Context, r *model.PendingUpdate) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]model.PendingUpdate, error)
	CountRequestsByStatus(ctx context.Context, splitwiseID string) (map[model.RequestStatus]int, error)

	// Member mapping operations
	GetMemberMappingByEmail(ctx context.Context, email string) (*model.MemberMapping, error)
	SaveMemberMapping(ctx context.Context, m *model.MemberMapping) error
	ListMemberMappings(ctx context.Context) ([]model.MemberMapping, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations against external
// systems.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions returns sensible defaults for external API calls.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}
