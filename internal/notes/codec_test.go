package notes

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitwarden/splitwarden/internal/model"
)

func sampleSplit() *model.Split {
	return &model.Split{
		SplitwiseID: "123456",
		Description: "Dinner",
		TotalAmount: decimal.NewFromInt(50),
		PaidBy:      "Alice",
		Items: []model.Item{
			{Name: "Pizza", Price: decimal.NewFromInt(20), Members: []string{"Alice", "Bob", "Carol"}},
			{Name: "Salad", Price: decimal.NewFromInt(12), Members: []string{"Alice", "Bob"}},
			{Name: "Wine", Price: decimal.NewFromInt(18), Members: []string{"Carol"}},
		},
	}
}

func TestEncodeLayout(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	note, err := Encode(sampleSplit(), at)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(note, "=== MEMBER SPLITS BY ITEM ==="))
	assert.Contains(t, note, "Alice --> Pizza ($6.67), Salad ($6.00)")
	assert.Contains(t, note, "   Total: $12.67")
	assert.Contains(t, note, strings.Repeat("=", 40))
	assert.Contains(t, note, "EXPENSE_ID:123456")
	assert.Contains(t, note, "Dinner (Updated via Batch Approval)")
	assert.Contains(t, note, "Updated at: 2026-03-14 09:26:53 UTC")

	// Prose first, sentinel once, payload after.
	assert.Equal(t, 1, strings.Count(note, Sentinel))
	_, payload, found := strings.Cut(note, Sentinel)
	require.True(t, found)
	assert.Contains(t, payload, `"name": "Pizza"`)
	assert.Contains(t, payload, `"price": 20`)
}

func TestEncodeDeterministic(t *testing.T) {
	at := time.Now().UTC()
	first, err := Encode(sampleSplit(), at)
	require.NoError(t, err)
	second, err := Encode(sampleSplit(), at)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRoundTrip(t *testing.T) {
	s := sampleSplit()
	note, err := Encode(s, time.Now().UTC())
	require.NoError(t, err)

	items, ok := Decode(note)
	require.True(t, ok)
	require.Len(t, items, len(s.Items))
	for i, item := range items {
		assert.Equal(t, s.Items[i].Name, item.Name)
		assert.True(t, s.Items[i].Price.Equal(item.Price))
		assert.Equal(t, s.Items[i].Members, item.Members)
	}
}

func TestRoundTripFractionalPrices(t *testing.T) {
	s := &model.Split{
		SplitwiseID: "77",
		Description: "Groceries",
		Items: []model.Item{
			{Name: "Cheese", Price: decimal.RequireFromString("7.49"), Members: []string{"Bob"}},
			{Name: "Empty", Price: decimal.RequireFromString("0.99"), Members: []string{}},
		},
	}

	note, err := Encode(s, time.Now().UTC())
	require.NoError(t, err)

	items, ok := Decode(note)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("7.49")))
	assert.Equal(t, []string{}, items[1].Members)
}

func TestDecodeRefusals(t *testing.T) {
	tests := []struct {
		name string
		note string
	}{
		{"empty note", ""},
		{"plain prose", "paid for dinner, see receipt"},
		{"sentinel without payload", Sentinel},
		{"sentinel with garbage", Sentinel + "\nnot json"},
		{"sentinel with wrong shape", Sentinel + "\n{\"name\": \"Pizza\"}"},
		{"payload before sentinel only", "[{\"name\":\"Pizza\",\"price\":20,\"members\":[]}]"},
		{"non-numeric price", Sentinel + "\n[{\"name\":\"Pizza\",\"price\":\"twenty\",\"members\":[]}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, ok := Decode(tt.note)
			assert.False(t, ok)
			assert.Nil(t, items)
		})
	}
}

func TestDecodeIgnoresProse(t *testing.T) {
	// Anything before the sentinel is free text and must not affect
	// parsing, even if it mentions prices or looks like JSON.
	note := "random note [;{] with $9.99 amounts\n" + Sentinel + "\n" +
		`[{"name":"Pizza","price":"20.5","members":["Alice"]}]`

	items, ok := Decode(note)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "Pizza", items[0].Name)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("20.5")))
}
