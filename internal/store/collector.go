package store

import (
	"context"
	"fmt"
	"strings"

	"pressroom/api/internal/filestage"
)

// Collector accumulates filter criteria for submission file queries. The
// zero value matches everything except dependent files, which stay hidden
// unless IncludeDependent is set or a dependent stage is named explicitly.
// Results are ordered newest-first by creation time.
type Collector struct {
	SubmissionIDs    []int64
	Stages           []filestage.Stage
	GenreIDs         []int64
	ReviewRoundIDs   []int64
	ReviewIDs        []int64
	FileIDs          []int64
	AssocType        filestage.AssocType
	AssocIDs         []int64
	UploaderIDs      []int64
	VariantGroupIDs  []int64
	IncludeDependent bool
	Limit            int
	Offset           int
}

// BySubmission is the usual entry point: all files of one submission.
func BySubmission(submissionID int64) Collector {
	return Collector{SubmissionIDs: []int64{submissionID}}
}

func (c Collector) WithStages(stages ...filestage.Stage) Collector {
	c.Stages = append(c.Stages, stages...)
	return c
}

func (c Collector) WithReviewRounds(roundIDs ...int64) Collector {
	c.ReviewRoundIDs = append(c.ReviewRoundIDs, roundIDs...)
	return c
}

func (c Collector) WithReviews(reviewIDs ...int64) Collector {
	c.ReviewIDs = append(c.ReviewIDs, reviewIDs...)
	return c
}

func (c Collector) WithAssoc(assocType filestage.AssocType, assocIDs ...int64) Collector {
	c.AssocType = assocType
	c.AssocIDs = append(c.AssocIDs, assocIDs...)
	return c
}

func (c Collector) WithUploaders(userIDs ...int64) Collector {
	c.UploaderIDs = append(c.UploaderIDs, userIDs...)
	return c
}

func (c Collector) WithVariantGroups(groupIDs ...int64) Collector {
	c.VariantGroupIDs = append(c.VariantGroupIDs, groupIDs...)
	return c
}

// buildQuery compiles the criteria into one SQL statement with numbered
// placeholders. Kept separate from execution so it can be tested without a
// database.
func (c Collector) buildQuery() (string, []any) {
	var where []string
	var args []any

	arg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(c.SubmissionIDs) > 0 {
		where = append(where, "sf.submission_id = ANY("+arg(c.SubmissionIDs)+")")
	}
	if len(c.Stages) > 0 {
		stages := make([]string, 0, len(c.Stages))
		for _, stage := range c.Stages {
			stages = append(stages, string(stage))
		}
		where = append(where, "sf.file_stage = ANY("+arg(stages)+")")
	} else if !c.IncludeDependent {
		where = append(where, "sf.file_stage <> "+arg(string(filestage.StageDependent)))
	}
	if len(c.GenreIDs) > 0 {
		where = append(where, "sf.genre_id = ANY("+arg(c.GenreIDs)+")")
	}
	if len(c.ReviewRoundIDs) > 0 {
		where = append(where, "sf.id IN (SELECT submission_file_id FROM review_round_files WHERE review_round_id = ANY("+arg(c.ReviewRoundIDs)+"))")
	}
	if len(c.ReviewIDs) > 0 {
		where = append(where, "sf.id IN (SELECT submission_file_id FROM review_files WHERE review_id = ANY("+arg(c.ReviewIDs)+"))")
	}
	if len(c.FileIDs) > 0 {
		where = append(where, "sf.id IN (SELECT submission_file_id FROM submission_file_revisions WHERE file_id = ANY("+arg(c.FileIDs)+"))")
	}
	if c.AssocType != filestage.AssocNone {
		where = append(where, "sf.assoc_type = "+arg(string(c.AssocType)))
		if len(c.AssocIDs) > 0 {
			where = append(where, "sf.assoc_id = ANY("+arg(c.AssocIDs)+")")
		}
	}
	if len(c.UploaderIDs) > 0 {
		where = append(where, "sf.uploader_user_id = ANY("+arg(c.UploaderIDs)+")")
	}
	if len(c.VariantGroupIDs) > 0 {
		where = append(where, "sf.variant_group_id = ANY("+arg(c.VariantGroupIDs)+")")
	}

	query := "SELECT " + submissionFileColumns + " FROM submission_files sf"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY sf.created_at DESC, sf.id DESC"
	if c.Limit > 0 {
		query += " LIMIT " + arg(c.Limit)
	}
	if c.Offset > 0 {
		query += " OFFSET " + arg(c.Offset)
	}
	return query, args
}

// CollectFiles runs the collector and returns fully loaded submission
// files, localized settings included. Re-invoke to restart; result sets are
// not resumable mid-stream.
func (s *PostgresStore) CollectFiles(ctx context.Context, c Collector) ([]SubmissionFile, error) {
	query, args := c.buildQuery()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collect submission files: %w", err)
	}
	defer rows.Close()

	files := make([]SubmissionFile, 0)
	for rows.Next() {
		f, err := scanSubmissionFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collected file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collected files: %w", err)
	}

	refs := make([]*SubmissionFile, len(files))
	for i := range files {
		refs[i] = &files[i]
	}
	if err := s.loadSettings(ctx, refs); err != nil {
		return nil, err
	}
	return files, nil
}
