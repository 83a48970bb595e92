// Package notes encodes and decodes the expense note attached to external
// ledger entries. The note carries a human-readable per-member breakdown
// followed by a machine-parseable item payload; only the payload after the
// sentinel is ever parsed back, so the prose sections can change freely while
// the payload format must stay byte-for-byte stable across versions.
package notes

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/split"
)

// Sentinel introduces the machine-parseable item payload inside a note.
const Sentinel = "---ITEMDATA---"

const (
	breakdownHeader = "=== MEMBER SPLITS BY ITEM ==="
	expenseIDPrefix = "EXPENSE_ID:"
)

// wireItem is the serialized form of one item. Price travels as a JSON
// number so notes written by earlier versions of the system parse unchanged.
type wireItem struct {
	Name    string      `json:"name"`
	Price   json.Number `json:"price"`
	Members []string    `json:"members"`
}

// Encode renders the note for a split: member breakdown, delimiter,
// expense-id header, then the sentinel and item payload. updatedAt is
// stamped into the prose section; everything else is deterministic.
func Encode(s *model.Split, updatedAt time.Time) (string, error) {
	var b strings.Builder

	b.WriteString(breakdownHeader)
	b.WriteString("\n\n")

	type memberLine struct {
		items []string
		total decimal.Decimal
	}
	perMember := make(map[string]*memberLine)
	for _, item := range s.Items {
		share := split.PerPersonShare(item)
		for _, member := range item.Members {
			line, ok := perMember[member]
			if !ok {
				line = &memberLine{}
				perMember[member] = line
			}
			line.items = append(line.items, fmt.Sprintf("%s ($%s)", item.Name, share.StringFixed(2)))
			line.total = line.total.Add(share)
		}
	}

	members := make([]string, 0, len(perMember))
	for member := range perMember {
		members = append(members, member)
	}
	sort.Strings(members)

	for _, member := range members {
		line := perMember[member]
		sort.Strings(line.items)
		fmt.Fprintf(&b, "%s --> %s\n", member, strings.Join(line.items, ", "))
		fmt.Fprintf(&b, "   Total: $%s\n\n", line.total.StringFixed(2))
	}

	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s%s\n", expenseIDPrefix, s.SplitwiseID)
	fmt.Fprintf(&b, "%s (Updated via Batch Approval)\n", s.Description)
	fmt.Fprintf(&b, "Updated at: %s UTC\n", updatedAt.UTC().Format("2006-01-02 15:04:05"))
	b.WriteString(Sentinel)
	b.WriteString("\n")

	wire := make([]wireItem, len(s.Items))
	for i, item := range s.Items {
		members := item.Members
		if members == nil {
			members = []string{}
		}
		wire[i] = wireItem{
			Name:    item.Name,
			Price:   json.Number(item.Price.String()),
			Members: members,
		}
	}
	payload, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode item payload: %w", err)
	}
	b.Write(payload)

	return b.String(), nil
}

// Decode recovers the item list from a note. The second return value is
// false when the sentinel is missing or the payload does not parse; callers
// must treat that as "this entry was not created by this system" and refuse
// to import it rather than guessing.
func Decode(note string) ([]model.Item, bool) {
	_, payload, found := strings.Cut(note, Sentinel)
	if !found {
		return nil, false
	}

	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(payload)))
	dec.UseNumber()
	var wire []wireItem
	if err := dec.Decode(&wire); err != nil {
		return nil, false
	}

	items := make([]model.Item, len(wire))
	for i, w := range wire {
		price, err := decimal.NewFromString(w.Price.String())
		if err != nil {
			return nil, false
		}
		members := w.Members
		if members == nil {
			members = []string{}
		}
		items[i] = model.Item{Name: w.Name, Price: price, Members: members}
	}
	return items, true
}
