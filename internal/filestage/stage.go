// Package filestage defines the closed vocabulary of the submission file
// store: file stages, association types, workflow stages, and the
// stage-assignment access matrix.
package filestage

type Stage string

const (
	StageSubmission             Stage = "submission"
	StageNote                   Stage = "note"
	StageReviewFile             Stage = "reviewFile"
	StageReviewAttachment       Stage = "reviewAttachment"
	StageReviewRevision         Stage = "reviewRevision"
	StageInternalReviewFile     Stage = "internalReviewFile"
	StageInternalReviewRevision Stage = "internalReviewRevision"
	StageFinal                  Stage = "final"
	StageCopyedit               Stage = "copyedit"
	StageProof                  Stage = "proof"
	StageProductionReady        Stage = "productionReady"
	StageAttachment             Stage = "attachment"
	StageDependent              Stage = "dependent"
	StageQuery                  Stage = "query"
	StageMedia                  Stage = "media"
)

type AssocType string

const (
	AssocNone             AssocType = ""
	AssocSubmissionFile   AssocType = "submissionFile"
	AssocReviewRound      AssocType = "reviewRound"
	AssocReviewAssignment AssocType = "reviewAssignment"
	AssocNote             AssocType = "note"
	AssocRepresentation   AssocType = "representation"
)

type WorkflowStage string

const (
	WorkflowSubmission     WorkflowStage = "submission"
	WorkflowInternalReview WorkflowStage = "internalReview"
	WorkflowExternalReview WorkflowStage = "externalReview"
	WorkflowEditing        WorkflowStage = "editing"
	WorkflowProduction     WorkflowStage = "production"
)

type Role string

const (
	RoleManager   Role = "manager"
	RoleSubEditor Role = "subEditor"
	RoleAssistant Role = "assistant"
	RoleAuthor    Role = "author"
	RoleReviewer  Role = "reviewer"
	RoleReader    Role = "reader"
)

var allStages = map[Stage]bool{
	StageSubmission:             true,
	StageNote:                   true,
	StageReviewFile:             true,
	StageReviewAttachment:       true,
	StageReviewRevision:         true,
	StageInternalReviewFile:     true,
	StageInternalReviewRevision: true,
	StageFinal:                  true,
	StageCopyedit:               true,
	StageProof:                  true,
	StageProductionReady:        true,
	StageAttachment:             true,
	StageDependent:              true,
	StageQuery:                  true,
	StageMedia:                  true,
}

// Known reports whether stage is part of the closed enumeration.
func Known(stage Stage) bool {
	return allStages[stage]
}

// roundStages are the stages whose files belong to a review round via an
// assocType of reviewRound.
var roundStages = map[Stage]bool{
	StageReviewFile:             true,
	StageInternalReviewFile:     true,
	StageReviewRevision:         true,
	StageInternalReviewRevision: true,
	StageAttachment:             true,
}

// RequiresReviewRound reports whether files of this stage must carry a
// reviewRound association.
func RequiresReviewRound(stage Stage) bool {
	return roundStages[stage]
}

// RequiresReviewAssignment reports whether files of this stage must carry a
// reviewAssignment association (reviewer attachments only).
func RequiresReviewAssignment(stage Stage) bool {
	return stage == StageReviewAttachment
}

// IsRevision reports whether an upload to this stage is an author revision
// of a review round.
func IsRevision(stage Stage) bool {
	return stage == StageReviewRevision || stage == StageInternalReviewRevision
}

// OwnedByRound reports whether the file's workflow stage is resolved
// through a review round (directly or via a review assignment).
func OwnedByRound(stage Stage) bool {
	return roundStages[stage] || stage == StageReviewAttachment
}

// stageDirs maps each stage to the directory segment below the submission
// directory in the storage path convention.
var stageDirs = map[Stage]string{
	StageSubmission:             "submission",
	StageNote:                   "note",
	StageReviewFile:             "submission/review",
	StageReviewAttachment:       "submission/review/attachment",
	StageReviewRevision:         "submission/review/revision",
	StageInternalReviewFile:     "submission/review/internal",
	StageInternalReviewRevision: "submission/review/internal/revision",
	StageFinal:                  "submission/final",
	StageCopyedit:               "submission/copyedit",
	StageProof:                  "submission/proof",
	StageProductionReady:        "submission/productionReady",
	StageAttachment:             "attachment",
	StageDependent:              "submission/dependent",
	StageQuery:                  "submission/query",
	StageMedia:                  "submission/media",
}

// Dir returns the per-stage storage subdirectory, or an empty string for an
// unrecognized stage.
func Dir(stage Stage) string {
	return stageDirs[stage]
}

// embeddableMimetypes lists the document formats that may reference
// dependent files (images, stylesheets) from their markup.
var embeddableMimetypes = map[string]bool{
	"text/html":             true,
	"text/xml":              true,
	"application/xml":       true,
	"application/xhtml+xml": true,
}

// SupportsDependents reports whether a file of the given stage and mimetype
// can be the parent of dependent files. Dependent and discussion files can
// never nest further.
func SupportsDependents(stage Stage, mimetype string) bool {
	if stage == StageDependent || stage == StageQuery {
		return false
	}
	return embeddableMimetypes[mimetype]
}
