package store

import (
	"context"
	"fmt"
)

// CreateFile records one blob in the ledger. Blobs are immutable: there is
// no update and no direct delete; rows disappear only when their owning
// revision chain is removed.
func (s *PostgresStore) CreateFile(ctx context.Context, path, mimetype string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO files (path, mimetype)
		VALUES ($1, $2)
		RETURNING id
	`, path, mimetype).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetFile(ctx context.Context, fileID int64) (File, error) {
	var file File
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, mimetype FROM files WHERE id=$1
	`, fileID).Scan(&file.ID, &file.Path, &file.Mimetype)
	if err != nil {
		return File{}, err
	}
	return file, nil
}
