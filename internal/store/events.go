package store

import (
	"context"
	"fmt"
)

// InsertEvent appends one audit record.
func (s *PostgresStore) InsertEvent(ctx context.Context, entry EventLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO event_log (assoc_type, assoc_id, event_type, user_id, message)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.AssocType, entry.AssocID, entry.EventType, entry.UserID, entry.Message)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns the audit trail for one scope, newest first.
func (s *PostgresStore) ListEvents(ctx context.Context, assocType string, assocID int64) ([]EventLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assoc_type, assoc_id, event_type, user_id, message, created_at
		FROM event_log
		WHERE assoc_type=$1 AND assoc_id=$2
		ORDER BY created_at DESC, id DESC
	`, assocType, assocID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	entries := make([]EventLogEntry, 0)
	for rows.Next() {
		var entry EventLogEntry
		if err := rows.Scan(&entry.ID, &entry.AssocType, &entry.AssocID, &entry.EventType, &entry.UserID, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return entries, nil
}
