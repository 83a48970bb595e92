package splitwise

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberResolver(t *testing.T) {
	ledger := NewMockLedger()
	ledger.Users = []User{
		{ID: 1, FirstName: "Alice"},
		{ID: 2, FirstName: "Bob"},
		{ID: 3, FirstName: "Carol"},
	}
	resolver := NewMemberResolver(ledger)
	ctx := context.Background()

	id, err := resolver.Resolve(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	// Case and surrounding whitespace are ignored.
	id, err = resolver.Resolve(ctx, " bob ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	_, err = resolver.Resolve(ctx, "Mallory")
	assert.Error(t, err)
}

func TestMemberResolverResolveAll(t *testing.T) {
	ledger := NewMockLedger()
	ledger.Users = []User{
		{ID: 1, FirstName: "Alice"},
		{ID: 2, FirstName: "Bob"},
	}
	resolver := NewMemberResolver(ledger)

	ids, err := resolver.ResolveAll(context.Background(), []string{"Alice", "Bob"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Alice": 1, "Bob": 2}, ids)

	_, err = resolver.ResolveAll(context.Background(), []string{"Alice", "Mallory"})
	assert.Error(t, err)
}

func TestMemberResolverCachesDirectory(t *testing.T) {
	calls := 0
	ledger := NewMockLedger()
	ledger.GetCurrentUserFn = func(_ context.Context) (*User, error) {
		calls++
		return &User{ID: 1, FirstName: "Alice"}, nil
	}
	ledger.GetFriendsFn = func(_ context.Context) ([]User, error) {
		return []User{{ID: 2, FirstName: "Bob"}}, nil
	}
	resolver := NewMemberResolver(ledger)

	for range 3 {
		_, err := resolver.Resolve(context.Background(), "Bob")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}

func TestMemberResolverDuplicateFirstNameKeepsFirst(t *testing.T) {
	ledger := NewMockLedger()
	ledger.Users = []User{
		{ID: 1, FirstName: "Alice"},
		{ID: 2, FirstName: "alice"},
	}
	resolver := NewMemberResolver(ledger)

	id, err := resolver.Resolve(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestMemberResolverPropagatesLedgerErrors(t *testing.T) {
	ledger := NewMockLedger()
	ledger.GetFriendsFn = func(_ context.Context) ([]User, error) {
		return nil, errors.New("splitwise is down")
	}
	resolver := NewMemberResolver(ledger)

	_, err := resolver.Resolve(context.Background(), "Alice")
	assert.Error(t, err)
}
