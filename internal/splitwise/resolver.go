package splitwise

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// MemberResolver maps the first names used in itemized breakdowns to
// Splitwise user IDs. Names come from the current user plus their friend
// list; resolution is case-insensitive and cached for the lifetime of
// the resolver.
type MemberResolver struct {
	ledger Ledger
	logger *slog.Logger

	mu     sync.Mutex
	byName map[string]int64
	loaded bool
}

// NewMemberResolver creates a resolver backed by the given ledger.
func NewMemberResolver(ledger Ledger) *MemberResolver {
	return &MemberResolver{
		ledger: ledger,
		logger: slog.Default().With("component", "splitwise"),
	}
}

// Resolve returns the Splitwise user ID for a first name. Unknown names
// are an error: writing a share for a guessed ID would corrupt the
// ledger.
func (r *MemberResolver) Resolve(ctx context.Context, name string) (int64, error) {
	if err := r.load(ctx); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("no splitwise user found for member %q", name)
	}
	return id, nil
}

// ResolveAll maps every name, failing on the first unknown one.
func (r *MemberResolver) ResolveAll(ctx context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))
	for _, name := range names {
		id, err := r.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, nil
}

func (r *MemberResolver) load(ctx context.Context) error {
	r.mu.Lock()
	if r.loaded {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	current, err := r.ledger.GetCurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch current user: %w", err)
	}
	friends, err := r.ledger.GetFriends(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch friends: %w", err)
	}

	byName := make(map[string]int64, len(friends)+1)
	add := func(u User) {
		key := strings.ToLower(strings.TrimSpace(u.FirstName))
		if key == "" {
			return
		}
		if existing, ok := byName[key]; ok && existing != u.ID {
			r.logger.Warn("duplicate first name among splitwise users, keeping first",
				"name", u.FirstName,
				"kept_id", existing,
				"dropped_id", u.ID)
			return
		}
		byName[key] = u.ID
	}

	add(*current)
	for _, f := range friends {
		add(f)
	}

	r.mu.Lock()
	r.byName = byName
	r.loaded = true
	r.mu.Unlock()

	r.logger.Debug("loaded member directory", "users", len(byName))
	return nil
}
