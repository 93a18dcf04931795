package store

import (
	"context"
	"fmt"

	"pressroom/api/internal/filestage"
)

func (s *PostgresStore) GetReviewRound(ctx context.Context, reviewRoundID int64) (ReviewRound, error) {
	var round ReviewRound
	err := s.db.QueryRowContext(ctx, `
		SELECT id, submission_id, workflow_stage, round, status
		FROM review_rounds
		WHERE id=$1
	`, reviewRoundID).Scan(&round.ID, &round.SubmissionID, &round.WorkflowStage, &round.Round, &round.Status)
	if err != nil {
		return ReviewRound{}, err
	}
	return round, nil
}

func (s *PostgresStore) GetReviewAssignment(ctx context.Context, reviewID int64) (ReviewAssignment, error) {
	var assignment ReviewAssignment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, review_round_id, submission_id, reviewer_id
		FROM review_assignments
		WHERE id=$1
	`, reviewID).Scan(&assignment.ID, &assignment.ReviewRoundID, &assignment.SubmissionID, &assignment.ReviewerID)
	if err != nil {
		return ReviewAssignment{}, err
	}
	return assignment, nil
}

// AssignReviewRoundFile links a submission file to a review round. The
// unique constraint on (submission_id, review_round_id, submission_file_id)
// makes repeated assignment a no-op.
func (s *PostgresStore) AssignReviewRoundFile(ctx context.Context, submissionID, reviewRoundID int64, workflowStage filestage.WorkflowStage, submissionFileID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_round_files (submission_id, review_round_id, stage_id, submission_file_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (submission_id, review_round_id, submission_file_id) DO NOTHING
	`, submissionID, reviewRoundID, workflowStage, submissionFileID)
	if err != nil {
		return fmt.Errorf("assign review round file: %w", err)
	}
	return nil
}

// GrantReviewerFile makes a submission file visible to one review
// assignment.
func (s *PostgresStore) GrantReviewerFile(ctx context.Context, reviewID, submissionFileID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_files (review_id, submission_file_id)
		VALUES ($1, $2)
		ON CONFLICT (review_id, submission_file_id) DO NOTHING
	`, reviewID, submissionFileID)
	if err != nil {
		return fmt.Errorf("grant reviewer file: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetReviewRoundStatus(ctx context.Context, reviewRoundID int64, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE review_rounds SET status=$2 WHERE id=$1
	`, reviewRoundID, status)
	if err != nil {
		return fmt.Errorf("set review round status: %w", err)
	}
	return nil
}

// CountRoundRevisionFiles counts author revision files attached to the
// round, used to recompute round status after uploads and deletes.
func (s *PostgresStore) CountRoundRevisionFiles(ctx context.Context, reviewRoundID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM review_round_files rrf
		JOIN submission_files sf ON sf.id = rrf.submission_file_id
		WHERE rrf.review_round_id=$1 AND sf.file_stage = ANY($2)
	`, reviewRoundID, []string{
		string(filestage.StageReviewRevision),
		string(filestage.StageInternalReviewRevision),
	}).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count round revision files: %w", err)
	}
	return count, nil
}
