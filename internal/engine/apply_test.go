package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/notes"
	"github.com/splitwarden/splitwarden/internal/service"
	"github.com/splitwarden/splitwarden/internal/splitwise"
	"github.com/splitwarden/splitwarden/internal/testutil"
)

func TestApply(t *testing.T) {
	eng, store, ledger := newTestEngine(t)
	s := seedDinner(t, store)
	seedLedgerExpense(ledger, s)
	ctx := context.Background()

	join := submit(t, eng, daveIdent, s.ID, "Pizza", model.ActionJoin)
	leave := submitLeave(t, eng, s.ID, "Salad")
	approve(t, eng, "1001", join.ID, leave.ID)

	result, err := eng.Apply(ctx, adminIdent, "1001")
	require.NoError(t, err)
	assert.False(t, result.NoChanges)
	assert.Equal(t, 2, result.AppliedRequests)
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, result.AffectedMembers)

	// Phase A: the ledger got exactly one update with the right shares.
	require.Len(t, ledger.UpdateExpenseCalls, 1)
	call := ledger.UpdateExpenseCalls[0]
	assert.Equal(t, int64(1001), call.ExpenseID)
	assert.Equal(t, "50.00", call.Update.Cost)
	assert.Equal(t, int64(42), call.Update.GroupID)

	// Payer first with full paid share and own owed share, everyone
	// else zero-paid, ordered by name.
	require.Len(t, call.Update.Users, 4)
	payer := call.Update.Users[0]
	assert.Equal(t, int64(1), payer.UserID)
	assert.Equal(t, "50.00", payer.PaidShare)
	assert.Equal(t, "17.00", payer.OwedShare)
	for _, u := range call.Update.Users[1:] {
		assert.Equal(t, "0.00", u.PaidShare)
	}
	assert.Equal(t, int64(2), call.Update.Users[1].UserID)
	assert.Equal(t, "5.00", call.Update.Users[1].OwedShare)
	assert.Equal(t, int64(3), call.Update.Users[2].UserID)
	assert.Equal(t, "23.00", call.Update.Users[2].OwedShare)
	assert.Equal(t, int64(4), call.Update.Users[3].UserID)
	assert.Equal(t, "5.00", call.Update.Users[3].OwedShare)

	// The written note decodes back to the post-change items.
	items, ok := notes.Decode(call.Update.Details)
	require.True(t, ok)
	assert.Contains(t, items[0].Members, "Dave")
	assert.NotContains(t, items[1].Members, "Bob")

	// Phase B: mirror and request states caught up.
	mirror, err := store.GetSplit(ctx, s.ID)
	require.NoError(t, err)
	assert.Contains(t, mirror.Items[0].Members, "Dave")
	assert.True(t, mirror.MemberSplits["Dave"].Equal(decimal.RequireFromString("5.00")))

	for _, id := range []string{join.ID, leave.ID} {
		req, err := store.GetRequest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApplied, req.Status)
	}
}

func TestApplyOmitsZeroOwedMembers(t *testing.T) {
	eng, store, ledger := newTestEngine(t)
	testutil.SeedMember(t, store, "admin@example.com", "Alice", "42")
	testutil.SeedMember(t, store, "bob@example.com", "Bob", "42")
	s := testutil.SeedSplit(t, store, "1001", "42", "Coffee", "Alice", []model.Item{
		{Name: "Espresso", Price: decimal.NewFromInt(4), Members: []string{"Alice", "Bob"}},
	})
	seedLedgerExpense(ledger, s)
	ctx := context.Background()

	bob := submitLeave(t, eng, s.ID, "Espresso")
	approve(t, eng, "1001", bob.ID)

	_, err := eng.Apply(ctx, adminIdent, "1001")
	require.NoError(t, err)

	// Bob owes nothing after leaving, so he is not on the expense at all.
	require.Len(t, ledger.UpdateExpenseCalls, 1)
	users := ledger.UpdateExpenseCalls[0].Update.Users
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].UserID)
	assert.Equal(t, "4.00", users[0].OwedShare)
}

func TestApplyNoApprovedRequests(t *testing.T) {
	eng, store, ledger := newTestEngine(t)
	s := seedDinner(t, store)
	seedLedgerExpense(ledger, s)
	ctx := context.Background()

	// A pending request is not enough.
	submit(t, eng, daveIdent, s.ID, "Pizza", model.ActionJoin)

	result, err := eng.Apply(ctx, adminIdent, "1001")
	require.NoError(t, err)
	assert.True(t, result.NoChanges)
	assert.Empty(t, ledger.UpdateExpenseCalls)
}

func TestApplyLedgerFailureKeepsRequestsApproved(t *testing.T) {
	eng, store, ledger := newTestEngine(t)
	s := seedDinner(t, store)
	seedLedgerExpense(ledger, s)
	ctx := context.Background()

	req := submit(t, eng, daveIdent, s.ID, "Pizza", model.ActionJoin)
	approve(t, eng, "1001", req.ID)

	ledger.UpdateExpenseFn = func(_ context.Context, expenseID int64, _ splitwise.ExpenseUpdate) error {
		return &common.LedgerError{Err: errors.New("splitwise is down"), ExpenseID: expenseID}
	}

	_, err := eng.Apply(ctx, adminIdent, "1001")
	require.Error(t, err)
	var ledgerErr *common.LedgerError
	assert.ErrorAs(t, err, &ledgerErr)
	assert.False(t, common.IsCritical(err))

	// Requests stay approved; the mirror is untouched; apply can simply
	// be retried.
	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)

	mirror, err := store.GetSplit(ctx, s.ID)
	require.NoError(t, err)
	assert.NotContains(t, mirror.Items[0].Members, "Dave")

	// Retry succeeds once the ledger recovers.
	ledger.UpdateExpenseFn = nil
	result, err := eng.Apply(ctx, adminIdent, "1001")
	require.NoError(t, err)
	assert.Equal(t, 1, result.AppliedRequests)
}

func TestApplyUnresolvablePayerFails(t *testing.T) {
	eng, store, ledger := newTestEngine(t)
	testutil.SeedMember(t, store, "admin@example.com", "Alice", "42")
	testutil.SeedMember(t, store, "dave@example.com", "Dave", "42")
	s := testutil.SeedSplit(t, store, "1001", "42", "Dinner", "Zeke", testutil.PizzaItems())
	seedLedgerExpense(ledger, s)
	ctx := context.Background()

	req := submit(t, eng, daveIdent, s.ID, "Pizza", model.ActionJoin)
	approve(t, eng, "1001", req.ID)

	_, err := eng.Apply(ctx, adminIdent, "1001")
	require.Error(t, err)
	assert.Empty(t, ledger.UpdateExpenseCalls)

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, got.Status)
}

// brokenStore wraps a Store and fails UpdateSplitItems, simulating a
// mirror write failure after the ledger accepted the update.
type brokenStore struct {
	service.Store
	mu          sync.Mutex
	failUpdates bool
}

func (b *brokenStore) UpdateSplitItems(ctx context.Context, id string, items []model.Item, memberSplits map[string]decimal.Decimal) error {
	b.mu.Lock()
	fail := b.failUpdates
	b.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return b.Store.UpdateSplitItems(ctx, id, items, memberSplits)
}

func TestApplyMirrorFailureGoesCritical(t *testing.T) {
	store := testutil.SetupTestDB(t)
	broken := &brokenStore{Store: store, failUpdates: true}
	ledger := splitwise.NewMockLedger()
	ledger.Users = []splitwise.User{
		{ID: 1, FirstName: "Alice"},
		{ID: 2, FirstName: "Bob"},
		{ID: 3, FirstName: "Carol"},
		{ID: 4, FirstName: "Dave"},
	}
	eng := New(broken, ledger, DefaultConfig())
	ctx := context.Background()

	s := seedDinner(t, store)
	seedLedgerExpense(ledger, s)

	req := submit(t, eng, daveIdent, s.ID, "Pizza", model.ActionJoin)
	approve(t, eng, "1001", req.ID)

	_, err := eng.Apply(ctx, adminIdent, "1001")
	require.Error(t, err)
	assert.True(t, common.IsCritical(err))

	var critical *common.CriticalError
	require.ErrorAs(t, err, &critical)
	assert.Equal(t, "1001", critical.ExpenseID)
	assert.Equal(t, []string{req.ID}, critical.RequestIDs)

	// The ledger write went through; the request is now critical and
	// must never be retried automatically.
	assert.Len(t, ledger.UpdateExpenseCalls, 1)
	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCritical, got.Status)

	// A second apply finds no approved requests and is a no-op.
	broken.mu.Lock()
	broken.failUpdates = false
	broken.mu.Unlock()
	result, err := eng.Apply(ctx, adminIdent, "1001")
	require.NoError(t, err)
	assert.True(t, result.NoChanges)
	assert.Len(t, ledger.UpdateExpenseCalls, 1)
}

func TestApplySerializesPerExpense(t *testing.T) {
	eng, store, ledger := newTestEngine(t)
	s := seedDinner(t, store)
	seedLedgerExpense(ledger, s)
	ctx := context.Background()

	req := submit(t, eng, daveIdent, s.ID, "Pizza", model.ActionJoin)
	approve(t, eng, "1001", req.ID)

	// Concurrent applies of one expense must not double-write: exactly
	// one sees the approved request, the rest are no-ops.
	var wg sync.WaitGroup
	results := make([]*ApplyResult, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = eng.Apply(ctx, adminIdent, "1001")
		}(i)
	}
	wg.Wait()

	applied := 0
	for i, result := range results {
		require.NoError(t, errs[i])
		if !result.NoChanges {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, ledger.UpdateExpenseCalls, 1)
}
