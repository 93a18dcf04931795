package store

import (
	"context"
	"database/sql"
	"fmt"
)

const submissionFileColumns = `
	sf.id, sf.submission_id, sf.file_id, sf.file_stage, sf.assoc_type,
	sf.assoc_id, sf.genre_id, sf.uploader_user_id, sf.viewable,
	COALESCE(sf.variant_group_id, 0), sf.created_at, sf.updated_at, sf.locale
`

func scanSubmissionFile(row interface{ Scan(...any) error }) (SubmissionFile, error) {
	var f SubmissionFile
	err := row.Scan(
		&f.ID,
		&f.SubmissionID,
		&f.FileID,
		&f.Stage,
		&f.AssocType,
		&f.AssocID,
		&f.GenreID,
		&f.UploaderUserID,
		&f.Viewable,
		&f.VariantGroupID,
		&f.CreatedAt,
		&f.UpdatedAt,
		&f.Locale,
	)
	return f, err
}

// InsertSubmissionFile writes the entity, its localized settings, and the
// first revision row as one unit of work, and returns the new id.
func (s *PostgresStore) InsertSubmissionFile(ctx context.Context, f *SubmissionFile) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert submission file: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO submission_files (
			submission_id, file_id, file_stage, assoc_type, assoc_id,
			genre_id, uploader_user_id, viewable, variant_group_id,
			created_at, updated_at, locale
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, 0), $10, $11, $12)
		RETURNING id
	`, f.SubmissionID, f.FileID, f.Stage, f.AssocType, f.AssocID,
		f.GenreID, f.UploaderUserID, f.Viewable, f.VariantGroupID,
		f.CreatedAt, f.UpdatedAt, f.Locale).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert submission file: %w", err)
	}

	if err := replaceSettings(ctx, tx, id, f); err != nil {
		return 0, err
	}
	if _, err := appendRevision(ctx, tx, id, f.FileID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert submission file: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetSubmissionFile(ctx context.Context, id int64) (SubmissionFile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+submissionFileColumns+`
		FROM submission_files sf
		WHERE sf.id=$1
	`, id)
	f, err := scanSubmissionFile(row)
	if err != nil {
		return SubmissionFile{}, err
	}
	if err := s.loadSettings(ctx, []*SubmissionFile{&f}); err != nil {
		return SubmissionFile{}, err
	}
	return f, nil
}

// UpdateSubmissionFile rewrites the entity row and settings, and appends a
// revision when the blob reference changed (the append is idempotent, so
// metadata-only updates add no history).
func (s *PostgresStore) UpdateSubmissionFile(ctx context.Context, f *SubmissionFile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update submission file: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE submission_files
		SET file_id=$2, file_stage=$3, assoc_type=$4, assoc_id=$5,
			genre_id=$6, viewable=$7, variant_group_id=NULLIF($8, 0),
			updated_at=$9, locale=$10
		WHERE id=$1
	`, f.ID, f.FileID, f.Stage, f.AssocType, f.AssocID,
		f.GenreID, f.Viewable, f.VariantGroupID, f.UpdatedAt, f.Locale)
	if err != nil {
		return fmt.Errorf("update submission file: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	if err := replaceSettings(ctx, tx, f.ID, f); err != nil {
		return err
	}
	if _, err := appendRevision(ctx, tx, f.ID, f.FileID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update submission file: %w", err)
	}
	return nil
}

// DeleteSubmissionFile cascades in one transaction: reviewer grants first,
// then round associations, settings, revision rows, the entity, and finally
// any blobs nothing references anymore. Child rows go first so foreign keys
// never dangle; a failure anywhere rolls the whole cascade back.
func (s *PostgresStore) DeleteSubmissionFile(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete submission file: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM review_files WHERE submission_file_id=$1`, id); err != nil {
		return fmt.Errorf("delete reviewer grants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM review_round_files WHERE submission_file_id=$1`, id); err != nil {
		return fmt.Errorf("delete review round files: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM submission_file_settings WHERE submission_file_id=$1`, id); err != nil {
		return fmt.Errorf("delete submission file settings: %w", err)
	}

	blobIDs, err := deleteRevisionRows(ctx, tx, id)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM submission_files WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete submission file: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	if err := deleteOrphanBlobs(ctx, tx, blobIDs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete submission file: %w", err)
	}
	return nil
}

// localized settings

var localizedSettings = []string{"name", "caption", "credit"}

func settingMap(f *SubmissionFile, name string) map[string]string {
	switch name {
	case "name":
		return f.Name
	case "caption":
		return f.Caption
	case "credit":
		return f.Credit
	}
	return nil
}

func replaceSettings(ctx context.Context, q querier, id int64, f *SubmissionFile) error {
	if _, err := q.ExecContext(ctx, `
		DELETE FROM submission_file_settings WHERE submission_file_id=$1
	`, id); err != nil {
		return fmt.Errorf("clear submission file settings: %w", err)
	}
	for _, setting := range localizedSettings {
		for locale, value := range settingMap(f, setting) {
			if value == "" {
				continue
			}
			if _, err := q.ExecContext(ctx, `
				INSERT INTO submission_file_settings (submission_file_id, locale, setting_name, setting_value)
				VALUES ($1, $2, $3, $4)
			`, id, locale, setting, value); err != nil {
				return fmt.Errorf("insert submission file setting %s: %w", setting, err)
			}
		}
	}
	return nil
}

// loadSettings fills the localized maps for a batch of files in one query.
func (s *PostgresStore) loadSettings(ctx context.Context, files []*SubmissionFile) error {
	if len(files) == 0 {
		return nil
	}
	byID := make(map[int64]*SubmissionFile, len(files))
	ids := make([]int64, 0, len(files))
	for _, f := range files {
		f.Name = make(map[string]string)
		f.Caption = make(map[string]string)
		f.Credit = make(map[string]string)
		byID[f.ID] = f
		ids = append(ids, f.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT submission_file_id, locale, setting_name, setting_value
		FROM submission_file_settings
		WHERE submission_file_id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("load submission file settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var locale, name, value string
		if err := rows.Scan(&id, &locale, &name, &value); err != nil {
			return fmt.Errorf("scan submission file setting: %w", err)
		}
		if f := byID[id]; f != nil {
			if m := settingMap(f, name); m != nil {
				m[locale] = value
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate submission file settings: %w", err)
	}
	return nil
}

// ClearVariantGroup detaches every member of the group.
func (s *PostgresStore) ClearVariantGroup(ctx context.Context, variantGroupID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE submission_files SET variant_group_id=NULL WHERE variant_group_id=$1
	`, variantGroupID)
	if err != nil {
		return fmt.Errorf("clear variant group: %w", err)
	}
	return nil
}

// SetVariantGroup points one file at a group; zero detaches it.
func (s *PostgresStore) SetVariantGroup(ctx context.Context, submissionFileID, variantGroupID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE submission_files SET variant_group_id=NULLIF($2, 0) WHERE id=$1
	`, submissionFileID, variantGroupID)
	if err != nil {
		return fmt.Errorf("set variant group: %w", err)
	}
	return nil
}
