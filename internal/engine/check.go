package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/splitwarden/splitwarden/internal/identity"
	"github.com/splitwarden/splitwarden/internal/split"
)

// ConsistencyIssue is one finding from the data audit.
type ConsistencyIssue struct {
	Kind    string
	Subject string
	Detail  string
}

// Issue kinds reported by CheckConsistency.
const (
	IssueNameHasSpaces = "name_has_spaces"
	IssueSplitsDrift   = "member_splits_drift"
)

// ConsistencyReport is the result of the data audit.
type ConsistencyReport struct {
	MappingsChecked int
	SplitsChecked   int
	Issues          []ConsistencyIssue
}

// Clean reports whether the audit found nothing.
func (r *ConsistencyReport) Clean() bool {
	return len(r.Issues) == 0
}

// CheckConsistency audits the mirror for two classes of problems:
// member names that are not bare first names (the ledger resolver only
// matches on first names), and stored member splits that no longer
// match what the items imply.
func (e *Engine) CheckConsistency(ctx context.Context, ident *identity.Identity) (*ConsistencyReport, error) {
	if err := identity.RequireAdmin(ident); err != nil {
		return nil, err
	}

	report := &ConsistencyReport{}

	mappings, err := e.store.ListMemberMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list member mappings: %w", err)
	}
	report.MappingsChecked = len(mappings)
	for _, m := range mappings {
		if strings.Contains(strings.TrimSpace(m.Name), " ") {
			report.Issues = append(report.Issues, ConsistencyIssue{
				Kind:    IssueNameHasSpaces,
				Subject: m.Email,
				Detail:  fmt.Sprintf("mapping name %q contains spaces; use first name only", m.Name),
			})
		}
	}

	splits, err := e.store.ListSplits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	report.SplitsChecked = len(splits)
	for i := range splits {
		s := &splits[i]

		seen := make(map[string]bool)
		for _, item := range s.Items {
			for _, member := range item.Members {
				if seen[member] {
					continue
				}
				seen[member] = true
				if strings.Contains(strings.TrimSpace(member), " ") {
					report.Issues = append(report.Issues, ConsistencyIssue{
						Kind:    IssueNameHasSpaces,
						Subject: s.SplitwiseID,
						Detail:  fmt.Sprintf("item %q member %q contains spaces; use first name only", item.Name, member),
					})
				}
			}
		}

		recomputed := split.ComputeMemberSplits(s.Items)
		for member, d := range split.Diff(s.MemberSplits, recomputed) {
			if d.Difference.Abs().LessThan(e.tolerance) {
				continue
			}
			report.Issues = append(report.Issues, ConsistencyIssue{
				Kind:    IssueSplitsDrift,
				Subject: s.SplitwiseID,
				Detail: fmt.Sprintf("member %s stored at %s but items imply %s",
					member, d.Original.StringFixed(2), d.New.StringFixed(2)),
			})
		}
	}

	e.logger.Info("consistency check finished",
		"mappings", report.MappingsChecked,
		"splits", report.SplitsChecked,
		"issues", len(report.Issues))
	return report, nil
}
