package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/splitwarden/splitwarden/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidSplit   = errors.New("invalid split")
	ErrInvalidRequest = errors.New("invalid pending update")
	ErrInvalidMapping = errors.New("invalid member mapping")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSplit validates a split before persisting it.
func validateSplit(s *model.Split) error {
	if s == nil {
		return fmt.Errorf("%w: split", ErrNilParameter)
	}
	if s.SplitwiseID == "" {
		return fmt.Errorf("%w: missing splitwise ID", ErrInvalidSplit)
	}
	if s.GroupID == "" {
		return fmt.Errorf("%w: missing group ID", ErrInvalidSplit)
	}
	if s.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: negative total amount", ErrInvalidSplit)
	}
	for i, item := range s.Items {
		if item.Name == "" {
			return fmt.Errorf("%w: item at index %d missing name", ErrInvalidSplit, i)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("%w: item %q has negative price", ErrInvalidSplit, item.Name)
		}
	}
	return nil
}

// validateRequest validates a pending update before persisting it.
func validateRequest(r *model.PendingUpdate) error {
	if r == nil {
		return fmt.Errorf("%w: pending update", ErrNilParameter)
	}
	if r.SplitID == "" {
		return fmt.Errorf("%w: missing split ID", ErrInvalidRequest)
	}
	if r.SplitwiseID == "" {
		return fmt.Errorf("%w: missing splitwise ID", ErrInvalidRequest)
	}
	if r.RequestedByEmail == "" {
		return fmt.Errorf("%w: missing requester email", ErrInvalidRequest)
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, r.Status)
	}
	if len(r.Changes) == 0 {
		return fmt.Errorf("%w: no proposed changes", ErrInvalidRequest)
	}
	for i, change := range r.Changes {
		if change.ItemName == "" {
			return fmt.Errorf("%w: change at index %d missing item name", ErrInvalidRequest, i)
		}
		if !change.Action.Valid() {
			return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, change.Action)
		}
	}
	return nil
}

// validateMapping validates a member mapping before persisting it.
func validateMapping(m *model.MemberMapping) error {
	if m == nil {
		return fmt.Errorf("%w: member mapping", ErrNilParameter)
	}
	if m.Email == "" {
		return fmt.Errorf("%w: missing email", ErrInvalidMapping)
	}
	if m.Name == "" {
		return fmt.Errorf("%w: missing member name", ErrInvalidMapping)
	}
	return nil
}
