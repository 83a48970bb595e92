package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/testutil"
)

func TestCheckConsistencyClean(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	seedDinner(t, store)

	report, err := eng.CheckConsistency(context.Background(), adminIdent)
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 4, report.MappingsChecked)
	assert.Equal(t, 1, report.SplitsChecked)
}

func TestCheckConsistencyRequiresAdmin(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	_, err := eng.CheckConsistency(context.Background(), daveIdent)
	assert.ErrorIs(t, err, common.ErrAdminOnly)
}

func TestCheckConsistencyFlagsNamesWithSpaces(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	testutil.SeedMember(t, store, "alice@example.com", "Alice Smith", "42")
	testutil.SeedSplit(t, store, "1001", "42", "Dinner", "Alice Smith", []model.Item{
		{Name: "Pizza", Price: decimal.NewFromInt(20), Members: []string{"Alice Smith", "Bob"}},
		{Name: "Salad", Price: decimal.NewFromInt(12), Members: []string{"Alice Smith"}},
	})

	report, err := eng.CheckConsistency(context.Background(), adminIdent)
	require.NoError(t, err)
	require.Len(t, report.Issues, 2)

	assert.Equal(t, IssueNameHasSpaces, report.Issues[0].Kind)
	assert.Equal(t, "alice@example.com", report.Issues[0].Subject)

	// The same member is reported once per split, not once per item.
	assert.Equal(t, IssueNameHasSpaces, report.Issues[1].Kind)
	assert.Equal(t, "1001", report.Issues[1].Subject)
}

func TestCheckConsistencyFlagsDriftedSplits(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	s := seedDinner(t, store)
	ctx := context.Background()

	// Corrupt the stored splits without touching the items.
	drifted := make(map[string]decimal.Decimal, len(s.MemberSplits))
	for name, amount := range s.MemberSplits {
		drifted[name] = amount
	}
	drifted["Bob"] = drifted["Bob"].Add(decimal.NewFromInt(5))
	require.NoError(t, store.UpdateSplitItems(ctx, s.ID, s.Items, drifted))

	report, err := eng.CheckConsistency(ctx, adminIdent)
	require.NoError(t, err)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueSplitsDrift, report.Issues[0].Kind)
	assert.Equal(t, "1001", report.Issues[0].Subject)
	assert.Contains(t, report.Issues[0].Detail, "Bob")
}

func TestUpsertMemberDeactivation(t *testing.T) {
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()

	mapping, err := eng.UpsertMember(ctx, adminIdent, "eve@example.com", "Eve", []string{"42"}, true)
	require.NoError(t, err)

	again, err := eng.UpsertMember(ctx, adminIdent, "eve@example.com", "Eve", []string{"42"}, false)
	require.NoError(t, err)
	assert.Equal(t, mapping.ID, again.ID)

	stored, err := store.GetMemberMappingByEmail(ctx, "eve@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}
