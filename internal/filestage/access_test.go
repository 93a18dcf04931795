package filestage

import "testing"

func TestAssignedFileStages(t *testing.T) {
	cases := []struct {
		name        string
		assignments map[WorkflowStage][]Role
		action      Action
		want        []Stage
		wantAbsent  []Stage
	}{
		{
			name:        "editor on submission",
			assignments: map[WorkflowStage][]Role{WorkflowSubmission: {RoleManager}},
			action:      ActionWrite,
			want:        []Stage{StageSubmission},
		},
		{
			name:        "author read on submission",
			assignments: map[WorkflowStage][]Role{WorkflowSubmission: {RoleAuthor}},
			action:      ActionRead,
			want:        []Stage{StageSubmission},
		},
		{
			name:        "author write on submission",
			assignments: map[WorkflowStage][]Role{WorkflowSubmission: {RoleAuthor}},
			action:      ActionWrite,
			wantAbsent:  []Stage{StageSubmission},
		},
		{
			name:        "assistant on external review",
			assignments: map[WorkflowStage][]Role{WorkflowExternalReview: {RoleAssistant}},
			action:      ActionWrite,
			want:        []Stage{StageReviewRevision, StageAttachment, StageReviewFile},
		},
		{
			name:        "author read on external review never unlocks review files",
			assignments: map[WorkflowStage][]Role{WorkflowExternalReview: {RoleAuthor}},
			action:      ActionRead,
			want:        []Stage{StageReviewRevision, StageAttachment},
			wantAbsent:  []Stage{StageReviewFile, StageInternalReviewFile},
		},
		{
			name:        "author with editorial co-assignment writes revisions",
			assignments: map[WorkflowStage][]Role{WorkflowExternalReview: {RoleAuthor, RoleSubEditor}},
			action:      ActionWrite,
			want:        []Stage{StageReviewRevision, StageAttachment, StageReviewFile},
		},
		{
			name:        "sub-editor on internal review",
			assignments: map[WorkflowStage][]Role{WorkflowInternalReview: {RoleSubEditor}},
			action:      ActionRead,
			want:        []Stage{StageInternalReviewRevision, StageInternalReviewFile},
		},
		{
			name:        "editing and production grants",
			assignments: map[WorkflowStage][]Role{WorkflowEditing: {RoleManager}, WorkflowProduction: {RoleManager}},
			action:      ActionWrite,
			want:        []Stage{StageCopyedit, StageFinal, StageProof, StageProductionReady},
		},
		{
			name:        "author never writes production ready",
			assignments: map[WorkflowStage][]Role{WorkflowProduction: {RoleAuthor}},
			action:      ActionWrite,
			wantAbsent:  []Stage{StageProof, StageProductionReady},
		},
		{
			name:        "reviewer role contributes nothing",
			assignments: map[WorkflowStage][]Role{WorkflowExternalReview: {RoleReviewer}},
			action:      ActionRead,
			wantAbsent:  []Stage{StageReviewFile, StageReviewRevision, StageAttachment},
		},
		{
			name:        "unknown workflow stage ignored",
			assignments: map[WorkflowStage][]Role{WorkflowStage("launch"): {RoleManager}},
			action:      ActionRead,
			wantAbsent:  []Stage{StageSubmission},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := AssignedFileStages(tc.assignments, tc.action)
			for _, stage := range tc.want {
				if !got[stage] {
					t.Errorf("AssignedFileStages missing %q", stage)
				}
			}
			for _, stage := range tc.wantAbsent {
				if got[stage] {
					t.Errorf("AssignedFileStages must not include %q", stage)
				}
			}
		})
	}
}

func TestAssignedFileStagesIsPure(t *testing.T) {
	assignments := map[WorkflowStage][]Role{
		WorkflowSubmission:     {RoleAuthor},
		WorkflowExternalReview: {RoleManager},
	}
	first := AssignedFileStages(assignments, ActionRead)
	second := AssignedFileStages(assignments, ActionRead)
	if len(first) != len(second) {
		t.Fatalf("repeated calls disagree: %v vs %v", first, second)
	}
	for stage := range first {
		if !second[stage] {
			t.Fatalf("repeated calls disagree on %q", stage)
		}
	}
}
