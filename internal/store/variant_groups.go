package store

import (
	"context"
	"fmt"
)

// CreateVariantGroup mints a new grouping token.
func (s *PostgresStore) CreateVariantGroup(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO variant_groups DEFAULT VALUES RETURNING id
	`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create variant group: %w", err)
	}
	return id, nil
}

// DeleteVariantGroup removes the group row. Members must be detached first.
func (s *PostgresStore) DeleteVariantGroup(ctx context.Context, variantGroupID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM variant_groups WHERE id=$1
	`, variantGroupID)
	if err != nil {
		return fmt.Errorf("delete variant group: %w", err)
	}
	return nil
}

// CountVariantGroupMembers reports how many files reference the group.
func (s *PostgresStore) CountVariantGroupMembers(ctx context.Context, variantGroupID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM submission_files WHERE variant_group_id=$1
	`, variantGroupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count variant group members: %w", err)
	}
	return count, nil
}
