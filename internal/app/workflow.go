package app

import (
	"context"
	"database/sql"
	"errors"

	"pressroom/api/internal/filestage"
	"pressroom/api/internal/store"
)

// WorkflowStage resolves the workflow stage a file currently belongs to.
// Broken association chains (orphaned rounds, notes, queries, parents)
// resolve to an empty stage rather than an error; only an unrecognized file
// stage fails, because that is a data or caller bug.
func (s *Service) WorkflowStage(ctx context.Context, f store.SubmissionFile) (filestage.WorkflowStage, error) {
	switch f.Stage {
	case filestage.StageSubmission:
		return filestage.WorkflowSubmission, nil

	case filestage.StageFinal, filestage.StageCopyedit:
		return filestage.WorkflowEditing, nil

	case filestage.StageProof, filestage.StageProductionReady, filestage.StageMedia:
		return filestage.WorkflowProduction, nil

	case filestage.StageDependent:
		return s.parentWorkflowStage(ctx, f)

	case filestage.StageReviewFile, filestage.StageInternalReviewFile,
		filestage.StageReviewRevision, filestage.StageInternalReviewRevision,
		filestage.StageAttachment:
		round, err := s.store.GetReviewRound(ctx, f.AssocID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return round.WorkflowStage, nil

	case filestage.StageReviewAttachment:
		assignment, err := s.store.GetReviewAssignment(ctx, f.AssocID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		round, err := s.store.GetReviewRound(ctx, assignment.ReviewRoundID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return round.WorkflowStage, nil

	case filestage.StageQuery, filestage.StageNote:
		return s.discussionWorkflowStage(ctx, f)
	}

	return "", unsupportedStageError(string(f.Stage))
}

// parentWorkflowStage follows a dependent file to its parent. The chain is
// at most one level deep: a dependent file may not parent another, so a
// dependent parent terminates as unknown instead of recursing forever.
func (s *Service) parentWorkflowStage(ctx context.Context, f store.SubmissionFile) (filestage.WorkflowStage, error) {
	if f.AssocType != filestage.AssocSubmissionFile || f.AssocID == 0 {
		return "", nil
	}
	parent, err := s.store.GetSubmissionFile(ctx, f.AssocID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if parent.Stage == filestage.StageDependent {
		return "", nil
	}
	return s.WorkflowStage(ctx, parent)
}

// discussionWorkflowStage follows file -> note -> query and returns the
// query's stage; any missing link resolves to unknown.
func (s *Service) discussionWorkflowStage(ctx context.Context, f store.SubmissionFile) (filestage.WorkflowStage, error) {
	if f.AssocType != filestage.AssocNote || f.AssocID == 0 {
		return "", nil
	}
	note, err := s.store.GetNote(ctx, f.AssocID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	query, err := s.store.GetQuery(ctx, note.AssocID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return query.WorkflowStage, nil
}

// SupportsDependentFiles reports whether other files may attach to this one
// as dependents, based on its stage and the current blob's mimetype.
func (s *Service) SupportsDependentFiles(ctx context.Context, f store.SubmissionFile) (bool, error) {
	if f.Stage == filestage.StageDependent || f.Stage == filestage.StageQuery {
		return false, nil
	}
	blob, err := s.store.GetFile(ctx, f.FileID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, notFoundError("file", f.FileID)
	}
	if err != nil {
		return false, err
	}
	return filestage.SupportsDependents(f.Stage, blob.Mimetype), nil
}
