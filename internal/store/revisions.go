package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AppendRevision records that the submission file now points at the given
// blob. Idempotent: when the latest revision already references that blob,
// no new row is written, so metadata-only edits leave history untouched.
func (s *PostgresStore) AppendRevision(ctx context.Context, submissionFileID, fileID int64) (int64, error) {
	return appendRevision(ctx, s.db, submissionFileID, fileID)
}

func appendRevision(ctx context.Context, q querier, submissionFileID, fileID int64) (int64, error) {
	var latestID, latestFileID int64
	err := q.QueryRowContext(ctx, `
		SELECT id, file_id
		FROM submission_file_revisions
		WHERE submission_file_id=$1
		ORDER BY id DESC
		LIMIT 1
	`, submissionFileID).Scan(&latestID, &latestFileID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read latest revision: %w", err)
	}
	if err == nil && latestFileID == fileID {
		return latestID, nil
	}

	var id int64
	err = q.QueryRowContext(ctx, `
		INSERT INTO submission_file_revisions (submission_file_id, file_id)
		VALUES ($1, $2)
		RETURNING id
	`, submissionFileID, fileID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append revision: %w", err)
	}
	return id, nil
}

// ListRevisions returns the revision history newest-first, each entry
// carrying its blob's path and mimetype.
func (s *PostgresStore) ListRevisions(ctx context.Context, submissionFileID int64) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.submission_file_id, r.file_id, f.path, f.mimetype
		FROM submission_file_revisions r
		JOIN files f ON f.id = r.file_id
		WHERE r.submission_file_id=$1
		ORDER BY r.id DESC
	`, submissionFileID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	revisions := make([]Revision, 0)
	for rows.Next() {
		var rev Revision
		if err := rows.Scan(&rev.ID, &rev.SubmissionFileID, &rev.FileID, &rev.Path, &rev.Mimetype); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revisions, nil
}

// deleteRevisionRows removes the revision chain and returns the blob ids it
// referenced, so the cascade can clean up orphaned blobs after the entity
// row is gone. Runs inside the cascade-delete transaction.
func deleteRevisionRows(ctx context.Context, q querier, submissionFileID int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		DELETE FROM submission_file_revisions
		WHERE submission_file_id=$1
		RETURNING file_id
	`, submissionFileID)
	if err != nil {
		return nil, fmt.Errorf("delete revisions: %w", err)
	}
	defer rows.Close()

	var fileIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan deleted revision: %w", err)
		}
		fileIDs = append(fileIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deleted revisions: %w", err)
	}
	return fileIDs, nil
}

// deleteOrphanBlobs removes the given blobs unless some other revision
// chain or submission file still references them.
func deleteOrphanBlobs(ctx context.Context, q querier, fileIDs []int64) error {
	if len(fileIDs) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		DELETE FROM files
		WHERE id = ANY($1)
		AND id NOT IN (SELECT file_id FROM submission_file_revisions)
		AND id NOT IN (SELECT file_id FROM submission_files)
	`, fileIDs)
	if err != nil {
		return fmt.Errorf("delete orphan blobs: %w", err)
	}
	return nil
}
