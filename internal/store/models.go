package store

import (
	"time"

	"pressroom/api/internal/filestage"
)

// File is one immutable row in the blob ledger: where the bytes live and
// what they are. Created once per physical upload, never mutated.
type File struct {
	ID       int64
	Path     string
	Mimetype string
}

// Revision ties a submission file to one blob in its history. Ordering by
// ID descending yields newest-first history.
type Revision struct {
	ID               int64
	SubmissionFileID int64
	FileID           int64
	Path             string
	Mimetype         string
}

// SubmissionFile is the logical file record a manuscript accumulates. Its
// FileID always points at the blob of the latest revision. VariantGroupID
// is zero while the file is ungrouped.
type SubmissionFile struct {
	ID             int64
	SubmissionID   int64
	FileID         int64
	Stage          filestage.Stage
	AssocType      filestage.AssocType
	AssocID        int64
	GenreID        int64
	UploaderUserID int64
	Viewable       bool
	VariantGroupID int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Locale         string
	Name           map[string]string
	Caption        map[string]string
	Credit         map[string]string
}

// ReviewRound is a single round of internal or external review.
type ReviewRound struct {
	ID            int64
	SubmissionID  int64
	WorkflowStage filestage.WorkflowStage
	Round         int
	Status        string
}

// Review round statuses relevant to revision uploads.
const (
	RoundStatusPending            = "pending"
	RoundStatusRevisionsRequested = "revisionsRequested"
	RoundStatusRevisionsSubmitted = "revisionsSubmitted"
)

// ReviewAssignment links a reviewer to a review round.
type ReviewAssignment struct {
	ID            int64
	ReviewRoundID int64
	SubmissionID  int64
	ReviewerID    int64
}

// Note is a message inside a discussion query; discussion files attach to
// notes, not to the query directly.
type Note struct {
	ID        int64
	AssocType filestage.AssocType
	AssocID   int64
}

// Query is an editorial discussion thread pinned to a workflow stage.
type Query struct {
	ID            int64
	AssocType     filestage.AssocType
	AssocID       int64
	WorkflowStage filestage.WorkflowStage
}

// User carries the minimum identity needed for uploads and notifications.
type User struct {
	ID          int64
	Email       string
	DisplayName string
	LastLoginAt *time.Time
}

// EventLogEntry is one audit record, scoped either to a submission file or
// to its submission.
type EventLogEntry struct {
	ID        int64
	AssocType string
	AssocID   int64
	EventType string
	UserID    int64
	Message   string
	CreatedAt time.Time
}

// Audit event scopes and message keys.
const (
	EventAssocSubmissionFile = "submissionFile"
	EventAssocSubmission     = "submission"

	EventFileUploaded     = "fileUploaded"
	EventRevisionUploaded = "revisionUploaded"
	EventFileEdited       = "fileEdited"
	EventFileDeleted      = "fileDeleted"
)

// FileUpload is what the upload collaborator hands to the repository after
// the physical byte transfer: nothing more, nothing less.
type FileUpload struct {
	Path             string
	Mimetype         string
	Size             int64
	OriginalFileName string
	UploaderUserID   int64
}
