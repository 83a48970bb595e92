// Package testutil provides shared fixtures for storage and engine tests.
package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/service"
	"github.com/splitwarden/splitwarden/internal/split"
	"github.com/splitwarden/splitwarden/internal/storage"
)

// SetupTestDB creates a migrated in-memory store and registers its
// cleanup with t.
func SetupTestDB(t *testing.T) service.Store {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedMember saves an active member mapping.
func SeedMember(t *testing.T, store service.Store, email, name string, groups ...string) *model.MemberMapping {
	t.Helper()

	mapping := &model.MemberMapping{
		Email:    email,
		Name:     name,
		Groups:   groups,
		IsActive: true,
	}
	if err := store.SaveMemberMapping(context.Background(), mapping); err != nil {
		t.Fatalf("failed to seed member %s: %v", email, err)
	}
	return mapping
}

// SeedSplit saves a split with member splits computed from its items.
func SeedSplit(t *testing.T, store service.Store, splitwiseID, groupID, description, paidBy string, items []model.Item) *model.Split {
	t.Helper()

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	s := &model.Split{
		SplitwiseID:  splitwiseID,
		GroupID:      groupID,
		GroupName:    "Test Group",
		Description:  description,
		TotalAmount:  total,
		PaidBy:       paidBy,
		CreatedBy:    "admin@example.com",
		Items:        items,
		MemberSplits: split.ComputeMemberSplits(items),
	}
	if err := store.CreateSplit(context.Background(), s); err != nil {
		t.Fatalf("failed to seed split %s: %v", splitwiseID, err)
	}
	return s
}

// PizzaItems is the canonical three-item fixture used across tests.
func PizzaItems() []model.Item {
	return []model.Item{
		{Name: "Pizza", Price: decimal.NewFromInt(20), Members: []string{"Alice", "Bob", "Carol"}},
		{Name: "Salad", Price: decimal.NewFromInt(12), Members: []string{"Alice", "Bob"}},
		{Name: "Wine", Price: decimal.NewFromInt(18), Members: []string{"Carol"}},
	}
}
