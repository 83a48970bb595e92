package splitwise

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitwarden/splitwarden/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestGetExpense(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get_expense/123", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"expense": map[string]any{
				"id":          123,
				"group_id":    42,
				"description": "Dinner",
				"details":     "itemized note",
				"cost":        "50.00",
				"users": []map[string]any{
					{"user": map[string]any{"id": 1, "first_name": "Alice"}, "paid_share": "50.00", "owed_share": "12.67"},
				},
			},
		})
	}))

	expense, err := client.GetExpense(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), expense.ID)
	assert.Equal(t, "50.00", expense.Cost)
	require.Len(t, expense.Users, 1)
	assert.Equal(t, "Alice", expense.Users[0].FirstName())
}

func TestGetExpenseDeleted(t *testing.T) {
	deletedAt := "2026-01-01T00:00:00Z"
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"expense": map[string]any{"id": 123, "deleted_at": deletedAt},
		})
	}))

	_, err := client.GetExpense(context.Background(), 123)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetExpenseNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetExpense(context.Background(), 999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetExpensesFiltersDeleted(t *testing.T) {
	deletedAt := "2026-01-01T00:00:00Z"
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("group_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"expenses": []map[string]any{
				{"id": 1, "cost": "10.00"},
				{"id": 2, "cost": "20.00", "deleted_at": deletedAt},
				{"id": 3, "cost": "30.00"},
			},
		})
	}))

	expenses, err := client.GetExpenses(context.Background(), 42, 0)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, int64(1), expenses[0].ID)
	assert.Equal(t, int64(3), expenses[1].ID)
}

func TestUpdateExpense(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/update_expense/123", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"expenses": []map[string]any{{"id": 123}},
			"errors":   map[string]any{},
		})
	}))

	err := client.UpdateExpense(context.Background(), 123, ExpenseUpdate{
		Cost:        "50.00",
		Description: "Dinner",
		Details:     "note",
		GroupID:     42,
		Users: []ExpenseUser{
			{UserID: 1, PaidShare: "50.00", OwedShare: "12.67"},
			{UserID: 2, PaidShare: "0.00", OwedShare: "37.33"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "50.00", captured["cost"])
	assert.Equal(t, float64(1), captured["users__0__user_id"])
	assert.Equal(t, "12.67", captured["users__0__owed_share"])
	assert.Equal(t, "0.00", captured["users__1__paid_share"])
}

func TestUpdateExpenseFailsClosed(t *testing.T) {
	t.Run("errors in body", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"expenses": []map[string]any{},
				"errors":   map[string]any{"base": []string{"expense no longer exists"}},
			})
		}))

		err := client.UpdateExpense(context.Background(), 123, ExpenseUpdate{})
		require.Error(t, err)
		var ledgerErr *common.LedgerError
		assert.ErrorAs(t, err, &ledgerErr)
	})

	t.Run("empty expenses list", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"expenses": []map[string]any{}})
		}))

		err := client.UpdateExpense(context.Background(), 123, ExpenseUpdate{})
		var ledgerErr *common.LedgerError
		assert.ErrorAs(t, err, &ledgerErr)
	})

	t.Run("server error is not retried", func(t *testing.T) {
		var calls atomic.Int32
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))

		err := client.UpdateExpense(context.Background(), 123, ExpenseUpdate{})
		require.Error(t, err)
		// A write whose outcome is unknown must not be replayed.
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestGetCurrentUserAndFriends(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_current_user":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"user": map[string]any{"id": 1, "first_name": "Alice"},
			})
		case "/get_friends":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"friends": []map[string]any{
					{"id": 2, "first_name": "Bob"},
					{"id": 3, "first_name": "Carol"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.FirstName)

	friends, err := client.GetFriends(context.Background())
	require.NoError(t, err)
	assert.Len(t, friends, 2)
}

func TestGetGroups(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"groups": []map[string]any{{"id": 42, "name": "Flat 12"}},
		})
	}))

	groups, err := client.GetGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Flat 12", groups[0].Name)
}

func TestReadsRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"expense": map[string]any{"id": 123, "cost": "10.00"},
		})
	}))

	expense, err := client.GetExpense(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, int64(123), expense.ID)
	assert.Equal(t, int32(3), calls.Load())
}
