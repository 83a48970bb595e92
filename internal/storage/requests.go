package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/model"
	"github.com/splitwarden/splitwarden/internal/service"
)

const requestColumns = "id, split_id, splitwise_id, requested_by_email, requested_by_name, changes, status, admin_notes, created_at, processed_at"

// CreateRequest persists a new pending update. Requests are append-only;
// there is no delete.
func (s *SQLiteStore) CreateRequest(ctx context.Context, r *model.PendingUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRequest(r); err != nil {
		return err
	}

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	changesJSON, err := json.Marshal(r.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal changes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pending_updates (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SplitID, r.SplitwiseID, r.RequestedByEmail, r.RequestedByName,
		string(changesJSON), string(r.Status), r.AdminNotes, r.CreatedAt, r.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pending update: %w", err)
	}
	return nil
}

// GetRequest retrieves a pending update by id.
func (s *SQLiteStore) GetRequest(ctx context.Context, id string) (*model.PendingUpdate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM pending_updates WHERE id = ?", id)
	request, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pending update %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending update: %w", err)
	}
	return request, nil
}

// UpdateRequestStatus writes a request's status, admin notes and processed
// timestamp. The legality of the transition is the caller's responsibility
// (model.PendingUpdate.Transition); the store only records the result.
func (s *SQLiteStore) UpdateRequestStatus(ctx context.Context, r *model.PendingUpdate) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%w: pending update", ErrNilParameter)
	}
	if err := validateString(r.ID, "id"); err != nil {
		return err
	}
	if !r.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, r.Status)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE pending_updates SET status = ?, admin_notes = ?, processed_at = ? WHERE id = ?",
		string(r.Status), r.AdminNotes, r.ProcessedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pending update: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pending update %s", common.ErrNotFound, r.ID)
	}
	return nil
}

// ListRequests returns requests matching the filter, oldest first so that
// apply-time aggregation observes submission order.
func (s *SQLiteStore) ListRequests(ctx context.Context, filter service.RequestFilter) ([]model.PendingUpdate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := "SELECT " + requestColumns + " FROM pending_updates WHERE 1=1"
	var args []any
	if filter.SplitwiseID != "" {
		query += " AND splitwise_id = ?"
		args = append(args, filter.SplitwiseID)
	}
	if filter.Email != "" {
		query += " AND requested_by_email = ?"
		args = append(args, filter.Email)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending updates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var requests []model.PendingUpdate
	for rows.Next() {
		request, scanErr := scanRequest(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan pending update: %w", scanErr)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending updates: %w", err)
	}
	return requests, nil
}

// CountRequestsByStatus aggregates the requests for one expense by status.
func (s *SQLiteStore) CountRequestsByStatus(ctx context.Context, splitwiseID string) (map[model.RequestStatus]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(splitwiseID, "splitwiseID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM pending_updates WHERE splitwise_id = ? GROUP BY status",
		splitwiseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending updates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.RequestStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[model.RequestStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status counts: %w", err)
	}
	return counts, nil
}

func scanRequest(row rowScanner) (*model.PendingUpdate, error) {
	var (
		request     model.PendingUpdate
		changesJSON string
		status      string
		processedAt sql.NullTime
	)
	err := row.Scan(
		&request.ID, &request.SplitID, &request.SplitwiseID,
		&request.RequestedByEmail, &request.RequestedByName,
		&changesJSON, &status, &request.AdminNotes,
		&request.CreatedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(changesJSON), &request.Changes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal changes: %w", err)
	}
	request.Status = model.RequestStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		request.ProcessedAt = &t
	}
	return &request, nil
}
