package filestage

import "testing"

func TestKnown(t *testing.T) {
	for stage := range allStages {
		if !Known(stage) {
			t.Errorf("Known(%q) = false", stage)
		}
	}
	if Known(Stage("galley")) {
		t.Error("Known accepted an unrecognized stage")
	}
}

func TestRequiresReviewRound(t *testing.T) {
	cases := []struct {
		stage Stage
		want  bool
	}{
		{StageReviewFile, true},
		{StageInternalReviewFile, true},
		{StageReviewRevision, true},
		{StageInternalReviewRevision, true},
		{StageAttachment, true},
		{StageReviewAttachment, false}, // reviewer attachments hang off the assignment
		{StageSubmission, false},
		{StageProof, false},
	}
	for _, tc := range cases {
		if got := RequiresReviewRound(tc.stage); got != tc.want {
			t.Errorf("RequiresReviewRound(%q) = %v, want %v", tc.stage, got, tc.want)
		}
	}
}

func TestDirCoversAllStages(t *testing.T) {
	for stage := range allStages {
		if Dir(stage) == "" {
			t.Errorf("Dir(%q) is empty", stage)
		}
	}
	if Dir(Stage("galley")) != "" {
		t.Error("Dir returned a path for an unrecognized stage")
	}
}

func TestSupportsDependents(t *testing.T) {
	cases := []struct {
		name     string
		stage    Stage
		mimetype string
		want     bool
	}{
		{"html proof", StageProof, "text/html", true},
		{"xml production", StageProductionReady, "application/xml", true},
		{"pdf submission", StageSubmission, "application/pdf", false},
		{"dependent never nests", StageDependent, "text/html", false},
		{"discussion file never nests", StageQuery, "text/html", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SupportsDependents(tc.stage, tc.mimetype); got != tc.want {
				t.Errorf("SupportsDependents(%q, %q) = %v, want %v", tc.stage, tc.mimetype, got, tc.want)
			}
		})
	}
}
