package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitwarden/splitwarden/internal/common"
	"github.com/splitwarden/splitwarden/internal/model"
)

const mappingColumns = "id, email, name, group_ids, is_active, created_at, updated_at"

// GetMemberMappingByEmail resolves a caller email to their member mapping.
func (s *SQLiteStore) GetMemberMappingByEmail(ctx context.Context, email string) (*model.MemberMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(email, "email"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+mappingColumns+" FROM member_mappings WHERE email = ?", email)
	mapping, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: member mapping for %s", common.ErrNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member mapping: %w", err)
	}
	return mapping, nil
}

// SaveMemberMapping inserts or updates a mapping, keyed by email.
func (s *SQLiteStore) SaveMemberMapping(ctx context.Context, m *model.MemberMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(m); err != nil {
		return err
	}

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	groupsJSON, err := marshalStrings(m.Groups)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO member_mappings (`+mappingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			group_ids = excluded.group_ids,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		m.ID, m.Email, m.Name, groupsJSON, m.IsActive, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save member mapping: %w", err)
	}
	return nil
}

// ListMemberMappings returns all mappings ordered by email.
func (s *SQLiteStore) ListMemberMappings(ctx context.Context) ([]model.MemberMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+mappingColumns+" FROM member_mappings ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("failed to list member mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.MemberMapping
	for rows.Next() {
		mapping, scanErr := scanMapping(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan member mapping: %w", scanErr)
		}
		mappings = append(mappings, *mapping)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate member mappings: %w", err)
	}
	return mappings, nil
}

func scanMapping(row rowScanner) (*model.MemberMapping, error) {
	var (
		mapping    model.MemberMapping
		groupsJSON string
	)
	err := row.Scan(
		&mapping.ID, &mapping.Email, &mapping.Name, &groupsJSON,
		&mapping.IsActive, &mapping.CreatedAt, &mapping.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	mapping.Groups, err = unmarshalStrings(groupsJSON)
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}
