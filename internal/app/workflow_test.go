package app

import (
	"context"
	"testing"

	"pressroom/api/internal/filestage"
	"pressroom/api/internal/store"
)

func TestWorkflowStageDirectMappings(t *testing.T) {
	svc := newTestService(&fakeStore{})

	cases := []struct {
		stage filestage.Stage
		want  filestage.WorkflowStage
	}{
		{filestage.StageSubmission, filestage.WorkflowSubmission},
		{filestage.StageFinal, filestage.WorkflowEditing},
		{filestage.StageCopyedit, filestage.WorkflowEditing},
		{filestage.StageProof, filestage.WorkflowProduction},
		{filestage.StageProductionReady, filestage.WorkflowProduction},
		{filestage.StageMedia, filestage.WorkflowProduction},
	}
	for _, tc := range cases {
		f := baseFile()
		f.Stage = tc.stage
		got, err := svc.WorkflowStage(context.Background(), f)
		if err != nil {
			t.Fatalf("%s: %v", tc.stage, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.stage, got, tc.want)
		}
	}
}

func TestWorkflowStageFromReviewRound(t *testing.T) {
	st := &fakeStore{
		getReviewRoundFn: func(_ context.Context, id int64) (store.ReviewRound, error) {
			return store.ReviewRound{ID: id, WorkflowStage: filestage.WorkflowInternalReview}, nil
		},
	}
	svc := newTestService(st)

	f := baseFile()
	f.Stage = filestage.StageInternalReviewFile
	f.AssocType = filestage.AssocReviewRound
	f.AssocID = 12
	got, err := svc.WorkflowStage(context.Background(), f)
	if err != nil {
		t.Fatalf("WorkflowStage: %v", err)
	}
	if got != filestage.WorkflowInternalReview {
		t.Fatalf("got %q", got)
	}
}

func TestWorkflowStageOrphanedRoundIsUnknown(t *testing.T) {
	svc := newTestService(&fakeStore{})

	f := baseFile()
	f.Stage = filestage.StageReviewFile
	f.AssocType = filestage.AssocReviewRound
	f.AssocID = 12
	got, err := svc.WorkflowStage(context.Background(), f)
	if err != nil {
		t.Fatalf("WorkflowStage: %v", err)
	}
	if got != "" {
		t.Fatalf("expected unknown stage, got %q", got)
	}
}

func TestWorkflowStageFromReviewAssignment(t *testing.T) {
	st := &fakeStore{
		getReviewAssignmentFn: func(_ context.Context, id int64) (store.ReviewAssignment, error) {
			return store.ReviewAssignment{ID: id, ReviewRoundID: 12}, nil
		},
		getReviewRoundFn: func(_ context.Context, id int64) (store.ReviewRound, error) {
			return store.ReviewRound{ID: id, WorkflowStage: filestage.WorkflowExternalReview}, nil
		},
	}
	svc := newTestService(st)

	f := baseFile()
	f.Stage = filestage.StageReviewAttachment
	f.AssocType = filestage.AssocReviewAssignment
	f.AssocID = 4
	got, err := svc.WorkflowStage(context.Background(), f)
	if err != nil {
		t.Fatalf("WorkflowStage: %v", err)
	}
	if got != filestage.WorkflowExternalReview {
		t.Fatalf("got %q", got)
	}
}

func TestWorkflowStageFollowsDependentParent(t *testing.T) {
	st := &fakeStore{
		getSubmissionFileFn: func(_ context.Context, id int64) (store.SubmissionFile, error) {
			parent := baseFile()
			parent.ID = id
			parent.Stage = filestage.StageCopyedit
			return parent, nil
		},
	}
	svc := newTestService(st)

	f := baseFile()
	f.Stage = filestage.StageDependent
	f.AssocType = filestage.AssocSubmissionFile
	f.AssocID = 2
	got, err := svc.WorkflowStage(context.Background(), f)
	if err != nil {
		t.Fatalf("WorkflowStage: %v", err)
	}
	if got != filestage.WorkflowEditing {
		t.Fatalf("got %q", got)
	}
}

func TestWorkflowStageDependentParentChainTerminates(t *testing.T) {
	// A dependent parent does not recurse further; the stage is unknown.
	st := &fakeStore{
		getSubmissionFileFn: func(_ context.Context, id int64) (store.SubmissionFile, error) {
			parent := baseFile()
			parent.ID = id
			parent.Stage = filestage.StageDependent
			parent.AssocType = filestage.AssocSubmissionFile
			parent.AssocID = id + 1
			return parent, nil
		},
	}
	svc := newTestService(st)

	f := baseFile()
	f.Stage = filestage.StageDependent
	f.AssocType = filestage.AssocSubmissionFile
	f.AssocID = 2
	got, err := svc.WorkflowStage(context.Background(), f)
	if err != nil {
		t.Fatalf("WorkflowStage: %v", err)
	}
	if got != "" {
		t.Fatalf("expected unknown stage, got %q", got)
	}
}

func TestWorkflowStageFromDiscussionChain(t *testing.T) {
	st := &fakeStore{
		getNoteFn: func(_ context.Context, id int64) (store.Note, error) {
			return store.Note{ID: id, AssocType: filestage.AssocNone, AssocID: 8}, nil
		},
		getQueryFn: func(_ context.Context, id int64) (store.Query, error) {
			return store.Query{ID: id, WorkflowStage: filestage.WorkflowEditing}, nil
		},
	}
	svc := newTestService(st)

	for _, stage := range []filestage.Stage{filestage.StageQuery, filestage.StageNote} {
		f := baseFile()
		f.Stage = stage
		f.AssocType = filestage.AssocNote
		f.AssocID = 6
		got, err := svc.WorkflowStage(context.Background(), f)
		if err != nil {
			t.Fatalf("%s: %v", stage, err)
		}
		if got != filestage.WorkflowEditing {
			t.Fatalf("%s: got %q", stage, got)
		}
	}
}

func TestWorkflowStageBrokenDiscussionChainIsUnknown(t *testing.T) {
	st := &fakeStore{
		getNoteFn: func(_ context.Context, id int64) (store.Note, error) {
			return store.Note{ID: id, AssocID: 8}, nil
		},
		// query 8 does not exist
	}
	svc := newTestService(st)

	f := baseFile()
	f.Stage = filestage.StageQuery
	f.AssocType = filestage.AssocNote
	f.AssocID = 6
	got, err := svc.WorkflowStage(context.Background(), f)
	if err != nil {
		t.Fatalf("WorkflowStage: %v", err)
	}
	if got != "" {
		t.Fatalf("expected unknown stage, got %q", got)
	}
}

func TestWorkflowStageRejectsUnknownFileStage(t *testing.T) {
	svc := newTestService(&fakeStore{})

	f := baseFile()
	f.Stage = "galley"
	_, err := svc.WorkflowStage(context.Background(), f)
	de := asDomainError(t, err)
	if de.Code != CodeUnsupportedStage {
		t.Fatalf("got code %s", de.Code)
	}
}

func TestSupportsDependentFiles(t *testing.T) {
	st := &fakeStore{
		getFileFn: func(_ context.Context, fileID int64) (store.File, error) {
			mimetype := "text/html"
			if fileID == 99 {
				mimetype = "application/pdf"
			}
			return store.File{ID: fileID, Mimetype: mimetype}, nil
		},
	}
	svc := newTestService(st)

	f := baseFile()
	ok, err := svc.SupportsDependentFiles(context.Background(), f)
	if err != nil {
		t.Fatalf("SupportsDependentFiles: %v", err)
	}
	if !ok {
		t.Fatalf("html submission file should accept dependents")
	}

	f.FileID = 99
	ok, err = svc.SupportsDependentFiles(context.Background(), f)
	if err != nil {
		t.Fatalf("SupportsDependentFiles: %v", err)
	}
	if ok {
		t.Fatalf("pdf blob should not accept dependents")
	}

	f.Stage = filestage.StageDependent
	ok, err = svc.SupportsDependentFiles(context.Background(), f)
	if err != nil {
		t.Fatalf("SupportsDependentFiles: %v", err)
	}
	if ok {
		t.Fatalf("dependent files never nest")
	}
}
