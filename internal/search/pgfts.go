package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher over the submission file settings table, used
// as a fallback when Meilisearch is absent or down.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL file-name searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches localized file names with plainto_tsquery, ranked by
// ts_rank, one row per file using its best-ranked name.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := `s.setting_name = 'name'
		AND to_tsvector('simple', s.setting_value) @@ plainto_tsquery('simple', $1)`
	args := []any{q.Text}
	if q.SubmissionID != 0 {
		where += " AND sf.submission_id = $2"
		args = append(args, q.SubmissionID)
	}

	base := fmt.Sprintf(`
		SELECT DISTINCT ON (sf.id)
			sf.id, sf.submission_id, sf.file_stage, s.setting_value,
			ts_rank(to_tsvector('simple', s.setting_value), plainto_tsquery('simple', $1)) AS rank
		FROM submission_file_settings s
		JOIN submission_files sf ON sf.id = s.submission_file_id
		WHERE %s
		ORDER BY sf.id, rank DESC`, where)

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub", base)
	dataSQL := fmt.Sprintf(`SELECT id, submission_id, file_stage, setting_value
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`, base, limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.Stage, &r.Name); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every file with its localized names for full
// reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]FileRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT sf.id, sf.submission_id, sf.file_stage, s.locale, s.setting_value
		FROM submission_files sf
		JOIN submission_file_settings s ON s.submission_file_id = sf.id
		WHERE s.setting_name = 'name'
		ORDER BY sf.id
	`)
	if err != nil {
		return nil, fmt.Errorf("load file names: %w", err)
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var (
			id, submissionID int64
			stage            string
			locale, name     string
		)
		if err := rows.Scan(&id, &submissionID, &stage, &locale, &name); err != nil {
			return nil, fmt.Errorf("scan file name: %w", err)
		}
		if len(records) == 0 || records[len(records)-1].ID != id {
			records = append(records, FileRecord{
				ID:           id,
				SubmissionID: submissionID,
				Stage:        stage,
				Name:         map[string]string{},
			})
		}
		records[len(records)-1].Name[locale] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file names: %w", err)
	}
	return records, nil
}
