package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/splitwarden/splitwarden/internal/engine"
	"github.com/splitwarden/splitwarden/internal/model"
)

// RenderQueue renders the grouped pending-request queue for admins.
func RenderQueue(queues []engine.ExpenseQueue) string {
	if len(queues) == 0 {
		return FormatInfo("No pending requests.")
	}

	var b strings.Builder
	for _, q := range queues {
		header := fmt.Sprintf("%s  %s  $%s", q.SplitwiseID, q.Description, q.TotalAmount.StringFixed(2))
		if q.GroupName != "" {
			header += "  " + SubtleStyle.Render("("+q.GroupName+")")
		}
		b.WriteString(BoldStyle.Render(header))
		b.WriteString("\n")
		for _, req := range q.Requests {
			for _, change := range req.Changes {
				b.WriteString(fmt.Sprintf("  %s  %s wants to %s %q\n",
					SubtleStyle.Render(req.ID),
					req.RequestedByName,
					change.Action,
					change.ItemName))
			}
		}
		b.WriteString(SubtleStyle.Render("  requesters: " + strings.Join(q.Requesters, ", ")))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPreview renders the dry-run result of an apply.
func RenderPreview(p *engine.Preview) string {
	var b strings.Builder
	b.WriteString(FormatTitle(fmt.Sprintf("Preview for %s (%s)", p.Description, p.SplitwiseID)))
	b.WriteString("\n")

	if !p.HasChanges {
		b.WriteString(FormatInfo("No approved requests; nothing would change."))
		return b.String()
	}

	for _, ic := range p.ItemChanges {
		b.WriteString(BoldStyle.Render(fmt.Sprintf("%s ($%s)", ic.Name, ic.Price.StringFixed(2))))
		b.WriteString("\n")
		if len(ic.Added) > 0 {
			b.WriteString(SuccessStyle.Render("  + " + strings.Join(ic.Added, ", ")))
			b.WriteString("\n")
		}
		if len(ic.Removed) > 0 {
			b.WriteString(ErrorStyle.Render("  - " + strings.Join(ic.Removed, ", ")))
			b.WriteString("\n")
		}
		b.WriteString(SubtleStyle.Render(fmt.Sprintf("  per person: $%s -> $%s",
			ic.PerPersonBefore.StringFixed(2), ic.PerPersonAfter.StringFixed(2))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(TableHeaderStyle.Render("Member          Before     After      Change"))
	b.WriteString("\n")

	members := make([]string, 0, len(p.Diffs))
	for name := range p.Diffs {
		members = append(members, name)
	}
	sort.Strings(members)
	for _, name := range members {
		d := p.Diffs[name]
		line := fmt.Sprintf("%-15s $%-9s $%-9s %+.2f (%+.1f%%)",
			name,
			d.Original.StringFixed(2),
			d.New.StringFixed(2),
			d.Difference.InexactFloat64(),
			d.PercentChange.InexactFloat64())
		switch {
		case d.Difference.IsPositive():
			b.WriteString(WarningStyle.Render(line))
		case d.Difference.IsNegative():
			b.WriteString(SuccessStyle.Render(line))
		default:
			b.WriteString(SubtleStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if p.Validation.TotalMatches {
		b.WriteString(FormatSuccess(fmt.Sprintf("Totals reconcile: $%s", p.Validation.NewTotal.StringFixed(2))))
	} else {
		b.WriteString(FormatWarning(fmt.Sprintf("Totals drift: $%s -> $%s",
			p.Validation.OriginalTotal.StringFixed(2), p.Validation.NewTotal.StringFixed(2))))
	}
	return b.String()
}

// RenderStatus renders an expense's workflow status.
func RenderStatus(r *engine.StatusReport) string {
	var b strings.Builder
	b.WriteString(FormatTitle(fmt.Sprintf("%s (%s)", r.Description, r.SplitwiseID)))
	b.WriteString("\n")

	for _, status := range []model.RequestStatus{
		model.StatusPending, model.StatusApproved, model.StatusRejected,
		model.StatusApplied, model.StatusError, model.StatusCritical,
	} {
		if r.Counts[status] == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-10s %d\n", status, r.Counts[status]))
	}

	b.WriteString("\n")
	switch r.WorkflowStatus {
	case model.WorkflowCriticalError:
		b.WriteString(FormatError("critical requests need manual reconciliation"))
	case model.WorkflowNeedsDecisions:
		b.WriteString(FormatWarning("pending requests need decisions"))
	case model.WorkflowReadyForPreview:
		b.WriteString(FormatInfo("approved requests ready to preview and apply"))
	case model.WorkflowCompleted:
		b.WriteString(FormatSuccess("all requests applied"))
	default:
		b.WriteString(SubtleStyle.Render("no requests for this expense"))
	}
	return b.String()
}

// RenderConsistency renders the data audit report.
func RenderConsistency(r *engine.ConsistencyReport) string {
	var b strings.Builder
	b.WriteString(FormatTitle(fmt.Sprintf("Checked %d mappings, %d splits", r.MappingsChecked, r.SplitsChecked)))
	b.WriteString("\n")
	if r.Clean() {
		b.WriteString(FormatSuccess("No issues found."))
		return b.String()
	}
	for _, issue := range r.Issues {
		b.WriteString(FormatWarning(fmt.Sprintf("[%s] %s: %s", issue.Kind, issue.Subject, issue.Detail)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
