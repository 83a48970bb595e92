package split

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitwarden/splitwarden/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestItemShares(t *testing.T) {
	tests := []struct {
		want map[string]string
		name string
		item model.Item
	}{
		{
			name: "even division",
			item: model.Item{Name: "Salad", Price: dec("12.00"), Members: []string{"Alice", "Bob"}},
			want: map[string]string{"Alice": "6.00", "Bob": "6.00"},
		},
		{
			name: "remainder cents go to earliest names",
			item: model.Item{Name: "Pizza", Price: dec("20.00"), Members: []string{"Alice", "Bob", "Carol"}},
			want: map[string]string{"Alice": "6.67", "Bob": "6.67", "Carol": "6.66"},
		},
		{
			name: "single member takes full price",
			item: model.Item{Name: "Wine", Price: dec("18.00"), Members: []string{"Carol"}},
			want: map[string]string{"Carol": "18.00"},
		},
		{
			name: "no members yields nothing",
			item: model.Item{Name: "Bread", Price: dec("4.50"), Members: nil},
			want: map[string]string{},
		},
		{
			name: "duplicate member listed once",
			item: model.Item{Name: "Pizza", Price: dec("10.00"), Members: []string{"Alice", "Alice", "Bob"}},
			want: map[string]string{"Alice": "5.00", "Bob": "5.00"},
		},
		{
			name: "sub-cent price rounds to nearest cent first",
			item: model.Item{Name: "Gum", Price: dec("0.01"), Members: []string{"Alice", "Bob"}},
			want: map[string]string{"Alice": "0.01", "Bob": "0.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares := ItemShares(tt.item)
			require.Len(t, shares, len(tt.want))
			for member, want := range tt.want {
				assert.True(t, shares[member].Equal(dec(want)),
					"member %s: want %s, got %s", member, want, shares[member])
			}
		})
	}
}

func TestItemSharesSumToPrice(t *testing.T) {
	prices := []string{"20.00", "19.99", "0.03", "7.77", "100.01"}
	memberSets := [][]string{
		{"Alice"},
		{"Alice", "Bob"},
		{"Alice", "Bob", "Carol"},
		{"Dave", "Alice", "Carol", "Bob"},
	}

	for _, price := range prices {
		for _, members := range memberSets {
			item := model.Item{Name: "x", Price: dec(price), Members: members}
			sum := Total(ItemShares(item))
			assert.True(t, sum.Equal(dec(price)),
				"price %s among %d members: shares sum to %s", price, len(members), sum)
		}
	}
}

func TestItemSharesOrderIndependent(t *testing.T) {
	a := model.Item{Name: "Pizza", Price: dec("20.00"), Members: []string{"Carol", "Alice", "Bob"}}
	b := model.Item{Name: "Pizza", Price: dec("20.00"), Members: []string{"Bob", "Carol", "Alice"}}

	sharesA := ItemShares(a)
	sharesB := ItemShares(b)
	require.Equal(t, len(sharesA), len(sharesB))
	for member, share := range sharesA {
		assert.True(t, share.Equal(sharesB[member]), "member %s differs", member)
	}
}

func TestComputeMemberSplits(t *testing.T) {
	items := []model.Item{
		{Name: "Pizza", Price: dec("20.00"), Members: []string{"Alice", "Bob", "Carol"}},
		{Name: "Salad", Price: dec("12.00"), Members: []string{"Alice", "Bob"}},
		{Name: "Wine", Price: dec("18.00"), Members: []string{"Carol"}},
	}

	splits := ComputeMemberSplits(items)
	require.Len(t, splits, 3)
	assert.True(t, splits["Alice"].Equal(dec("12.67")))
	assert.True(t, splits["Bob"].Equal(dec("12.67")))
	assert.True(t, splits["Carol"].Equal(dec("24.66")))
	assert.True(t, Total(splits).Equal(dec("50.00")))
}

func TestComputeMemberSplitsSkipsMemberlessItems(t *testing.T) {
	items := []model.Item{
		{Name: "Pizza", Price: dec("20.00"), Members: []string{"Alice"}},
		{Name: "Orphan", Price: dec("5.00"), Members: nil},
	}

	splits := ComputeMemberSplits(items)
	require.Len(t, splits, 1)
	assert.True(t, Total(splits).Equal(dec("20.00")))
}

func TestPerPersonShare(t *testing.T) {
	item := model.Item{Name: "Pizza", Price: dec("20.00"), Members: []string{"Alice", "Bob", "Carol"}}
	assert.True(t, PerPersonShare(item).Equal(dec("6.67")))

	empty := model.Item{Name: "Orphan", Price: dec("5.00")}
	assert.True(t, PerPersonShare(empty).IsZero())
}

func TestDiff(t *testing.T) {
	original := map[string]decimal.Decimal{
		"Alice": dec("12.67"),
		"Bob":   dec("12.67"),
		"Carol": dec("24.66"),
	}
	updated := map[string]decimal.Decimal{
		"Alice": dec("16.00"),
		"Bob":   dec("9.34"),
		"Carol": dec("24.66"),
	}

	diffs := Diff(original, updated)
	require.Len(t, diffs, 3)

	assert.True(t, diffs["Alice"].Difference.Equal(dec("3.33")))
	assert.True(t, diffs["Alice"].PercentChange.Equal(dec("26.3")))
	assert.True(t, diffs["Bob"].Difference.Equal(dec("-3.33")))
	assert.True(t, diffs["Carol"].Difference.IsZero())
	assert.True(t, diffs["Carol"].PercentChange.IsZero())
}

func TestDiffZeroOriginal(t *testing.T) {
	diffs := Diff(
		map[string]decimal.Decimal{},
		map[string]decimal.Decimal{"Dave": dec("10.00")},
	)

	require.Contains(t, diffs, "Dave")
	assert.True(t, diffs["Dave"].Difference.Equal(dec("10.00")))
	// Percent change against nothing is reported as zero, not infinity.
	assert.True(t, diffs["Dave"].PercentChange.IsZero())
}

func TestDiffMemberLeavingEntirely(t *testing.T) {
	diffs := Diff(
		map[string]decimal.Decimal{"Eve": dec("8.00")},
		map[string]decimal.Decimal{},
	)

	require.Contains(t, diffs, "Eve")
	assert.True(t, diffs["Eve"].New.IsZero())
	assert.True(t, diffs["Eve"].Difference.Equal(dec("-8.00")))
	assert.True(t, diffs["Eve"].PercentChange.Equal(dec("-100")))
}

func TestTotalsReconcile(t *testing.T) {
	tolerance := dec("0.01")

	original := map[string]decimal.Decimal{"Alice": dec("10.00"), "Bob": dec("10.00")}

	assert.True(t, TotalsReconcile(original,
		map[string]decimal.Decimal{"Alice": dec("15.00"), "Bob": dec("5.00")}, tolerance))

	// Largest-remainder allocation keeps totals exact, so drift right at
	// the tolerance is already a failure.
	assert.False(t, TotalsReconcile(original,
		map[string]decimal.Decimal{"Alice": dec("15.00"), "Bob": dec("5.01")}, tolerance))

	assert.True(t, TotalsReconcile(original,
		map[string]decimal.Decimal{"Alice": dec("15.005"), "Bob": dec("5.00")}, tolerance))
}
