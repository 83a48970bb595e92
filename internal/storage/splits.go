package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/model"
)

const splitColumns = "id, splitwise_id, group_id, group_name, description, total_amount, paid_by, created_by, items, member_splits, created_at, updated_at"

// CreateSplit persists a new mirrored expense. A second insert with the same
// splitwise_id reports common.ErrDuplicateEntry so imports stay idempotent.
func (s *SQLiteStore) CreateSplit(ctx context.Context, split *model.Split) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSplit(split); err != nil {
		return err
	}

	if split.ID == "" {
		split.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if split.CreatedAt.IsZero() {
		split.CreatedAt = now
	}
	split.UpdatedAt = now

	itemsJSON, err := marshalItems(split.Items)
	if err != nil {
		return err
	}
	splitsJSON, err := marshalMemberSplits(split.MemberSplits)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO splits (`+splitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		split.ID, split.SplitwiseID, split.GroupID, split.GroupName,
		split.Description, split.TotalAmount.String(), split.PaidBy, split.CreatedBy,
		itemsJSON, splitsJSON, split.CreatedAt, split.UpdatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: splitwise id %s", common.ErrDuplicateEntry, split.SplitwiseID)
		}
		return fmt.Errorf("failed to insert split: %w", err)
	}
	return nil
}

// GetSplit retrieves a split by its store-generated id.
func (s *SQLiteStore) GetSplit(ctx context.Context, id string) (*model.Split, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getSplit(ctx, "id", id)
}

// GetSplitBySplitwiseID retrieves a split by the external expense id.
func (s *SQLiteStore) GetSplitBySplitwiseID(ctx context.Context, splitwiseID string) (*model.Split, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(splitwiseID, "splitwiseID"); err != nil {
		return nil, err
	}
	return s.getSplit(ctx, "splitwise_id", splitwiseID)
}

func (s *SQLiteStore) getSplit(ctx context.Context, column, value string) (*model.Split, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+splitColumns+" FROM splits WHERE "+column+" = ?", value)
	split, err := scanSplit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: split %s=%s", common.ErrNotFound, column, value)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get split: %w", err)
	}
	return split, nil
}

// UpdateSplitItems replaces the items and derived member splits on a mirror
// record. This is the Phase B write of the apply workflow.
func (s *SQLiteStore) UpdateSplitItems(ctx context.Context, id string, items []model.Item, memberSplits map[string]decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	itemsJSON, err := marshalItems(items)
	if err != nil {
		return err
	}
	splitsJSON, err := marshalMemberSplits(memberSplits)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE splits SET items = ?, member_splits = ?, updated_at = ? WHERE id = ?",
		itemsJSON, splitsJSON, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update split items: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: split %s", common.ErrNotFound, id)
	}
	return nil
}

// ListSplitsByGroups returns all splits in any of the given groups, newest
// first. An empty group list yields no splits.
func (s *SQLiteStore) ListSplitsByGroups(ctx context.Context, groupIDs []string) ([]model.Split, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(groupIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(groupIDs))
	for i, g := range groupIDs {
		args[i] = g
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+splitColumns+" FROM splits WHERE group_id IN ("+placeholders+") ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSplits(rows)
}

// ListSplits returns every mirrored split, newest first.
func (s *SQLiteStore) ListSplits(ctx context.Context) ([]model.Split, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+splitColumns+" FROM splits ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectSplits(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSplit(row rowScanner) (*model.Split, error) {
	var (
		split      model.Split
		total      string
		itemsJSON  string
		splitsJSON string
	)
	err := row.Scan(
		&split.ID, &split.SplitwiseID, &split.GroupID, &split.GroupName,
		&split.Description, &total, &split.PaidBy, &split.CreatedBy,
		&itemsJSON, &splitsJSON, &split.CreatedAt, &split.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	split.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("invalid total amount %q: %w", total, err)
	}
	split.Items, err = unmarshalItems(itemsJSON)
	if err != nil {
		return nil, err
	}
	split.MemberSplits, err = unmarshalMemberSplits(splitsJSON)
	if err != nil {
		return nil, err
	}
	return &split, nil
}

func collectSplits(rows *sql.Rows) ([]model.Split, error) {
	var splits []model.Split
	for rows.Next() {
		split, err := scanSplit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, *split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}
