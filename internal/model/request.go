package model

import (
	"fmt"
	"time"
)

// ChangeAction is the kind of participation change a member can request.
type ChangeAction string

// Supported change actions.
const (
	ActionJoin  ChangeAction = "join"
	ActionLeave ChangeAction = "leave"
)

// Valid reports whether the action is one of the supported values.
func (a ChangeAction) Valid() bool {
	return a == ActionJoin || a == ActionLeave
}

// RequestStatus is the lifecycle state of a PendingUpdate.
type RequestStatus string

// Request lifecycle states. Rejected, applied, error and critical are terminal.
const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusApplied  RequestStatus = "applied"
	StatusError    RequestStatus = "error"
	StatusCritical RequestStatus = "critical"
)

// Valid reports whether the status is a known lifecycle state.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusApplied, StatusError, StatusCritical:
		return true
	}
	return false
}

// legalTransitions encodes the request state machine. An approved request
// that fails at the external ledger may return to approved for a retry;
// critical never transitions anywhere (manual reconciliation only).
var legalTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusApplied, StatusError, StatusCritical},
	StatusError:    {StatusApproved},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Change is one requested item-level participation change.
type Change struct {
	// ItemName names the item within the target split.
	ItemName string

	// Action is join or leave.
	Action ChangeAction
}

// PendingUpdate is a member-submitted request to change their participation
// in one item of a split. Requests are never deleted; terminal states remain
// as the audit trail.
type PendingUpdate struct {
	// ID is the store-generated identifier (UUID format).
	ID string

	// SplitID references the local mirror record.
	SplitID string

	// SplitwiseID is the external expense id, used to aggregate requests
	// per expense at review time.
	SplitwiseID string

	// RequestedByEmail and RequestedByName identify the requester.
	// RequestedByName is the canonical member name used inside Item.Members.
	RequestedByEmail string
	RequestedByName  string

	// Changes are applied in order during preview and apply.
	Changes []Change

	// Status is the request's lifecycle state.
	Status RequestStatus

	// AdminNotes is free-text commentary recorded at decision time.
	AdminNotes string

	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// Transition moves the request to next, enforcing the state machine.
// Calling it with an illegal source state returns an error and leaves the
// request unchanged, so a re-committed decision cannot regress an already
// applied request.
func (p *PendingUpdate) Transition(next RequestStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown request status %q", next)
	}
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal status transition %s -> %s for request %s", p.Status, next, p.ID)
	}
	p.Status = next
	now := time.Now().UTC()
	p.ProcessedAt = &now
	return nil
}

// WorkflowStatus classifies what an admin should do next for an expense.
type WorkflowStatus string

// Workflow classifications, in priority order.
const (
	WorkflowNeedsDecisions  WorkflowStatus = "needs_decisions"
	WorkflowReadyForPreview WorkflowStatus = "ready_for_preview"
	WorkflowCompleted       WorkflowStatus = "completed"
	WorkflowCriticalError   WorkflowStatus = "critical_error"
	WorkflowNoRequests      WorkflowStatus = "no_pending_requests"
)

// DetermineWorkflowStatus classifies an expense from its per-status request
// counts. Ties resolve in priority order: pending > approved > applied > critical.
func DetermineWorkflowStatus(counts map[RequestStatus]int) WorkflowStatus {
	switch {
	case counts[StatusPending] > 0:
		return WorkflowNeedsDecisions
	case counts[StatusApproved] > 0:
		return WorkflowReadyForPreview
	case counts[StatusApplied] > 0:
		return WorkflowCompleted
	case counts[StatusCritical] > 0:
		return WorkflowCriticalError
	default:
		return WorkflowNoRequests
	}
}
