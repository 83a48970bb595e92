// Package split implements the cost-split arithmetic for itemized expenses.
//
// All amounts are decimal; cent allocation uses largest-remainder rounding so
// that each item's shares sum exactly to the item price. Rounding happens only
// at allocation boundaries, never mid-computation, and results are independent
// of item order and member iteration order.
package split

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/model"
)

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -2)
)

// ItemShares allocates one item's price across its members to the penny.
// Each member receives price/n; leftover cents go to the members earliest in
// name order so the allocation is deterministic. An item with no members
// returns an empty map.
func ItemShares(item model.Item) map[string]decimal.Decimal {
	shares := make(map[string]decimal.Decimal)
	n := int64(len(item.Members))
	if n == 0 {
		return shares
	}

	// Deduplicate and sort so allocation is deterministic regardless of the
	// stored member order. Listing a member twice is not additive.
	seen := make(map[string]bool, len(item.Members))
	members := make([]string, 0, len(item.Members))
	for _, m := range item.Members {
		if !seen[m] {
			seen[m] = true
			members = append(members, m)
		}
	}
	sort.Strings(members)
	n = int64(len(members))

	cents := item.Price.Mul(hundred).Round(0)
	base := cents.Div(decimal.NewFromInt(n)).Floor()
	remainder := cents.Sub(base.Mul(decimal.NewFromInt(n))).IntPart()

	for i, member := range members {
		share := base
		if int64(i) < remainder {
			share = share.Add(decimal.NewFromInt(1))
		}
		shares[member] = share.Mul(cent)
	}
	return shares
}

// ComputeMemberSplits turns an item list into per-member owed amounts.
// The sum over all members equals the sum of prices of items that have at
// least one member.
func ComputeMemberSplits(items []model.Item) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, item := range items {
		for member, share := range ItemShares(item) {
			totals[member] = totals[member].Add(share)
		}
	}
	return totals
}

// PerPersonShare returns the nominal per-member amount for one item, used in
// human-readable breakdowns. Zero when the item has no members.
func PerPersonShare(item model.Item) decimal.Decimal {
	n := int64(len(item.Members))
	if n == 0 {
		return decimal.Zero
	}
	return item.Price.DivRound(decimal.NewFromInt(n), 2)
}

// Total sums a member-split mapping.
func Total(splits map[string]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, amount := range splits {
		sum = sum.Add(amount)
	}
	return sum
}

// MemberDiff describes how one member's owed amount changes.
type MemberDiff struct {
	Original      decimal.Decimal
	New           decimal.Decimal
	Difference    decimal.Decimal
	PercentChange decimal.Decimal
}

// Diff compares two member-split mappings. Members appearing in either input
// appear in the output. PercentChange is rounded to one decimal place and is
// zero when the original amount is zero.
func Diff(original, updated map[string]decimal.Decimal) map[string]MemberDiff {
	diffs := make(map[string]MemberDiff)
	for member := range original {
		diffs[member] = MemberDiff{}
	}
	for member := range updated {
		diffs[member] = MemberDiff{}
	}

	for member := range diffs {
		orig := original[member]
		upd := updated[member]
		difference := upd.Sub(orig)

		percent := decimal.Zero
		if !orig.IsZero() && !difference.IsZero() {
			percent = difference.Div(orig).Mul(hundred).Round(1)
		}

		diffs[member] = MemberDiff{
			Original:      orig.Round(2),
			New:           upd.Round(2),
			Difference:    difference.Round(2),
			PercentChange: percent,
		}
	}
	return diffs
}

// TotalsReconcile reports whether the totals of two member-split mappings
// agree within tolerance. A join/leave redistribution must conserve the
// expense total, so a false result signals a data-integrity problem.
func TotalsReconcile(original, updated map[string]decimal.Decimal, tolerance decimal.Decimal) bool {
	return Total(original).Sub(Total(updated)).Abs().LessThan(tolerance)
}
