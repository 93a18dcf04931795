// Package app orchestrates the submission file store: lifecycle operations
// with their side effects, stage-based access resolution, workflow-stage
// inference, and variant-group maintenance.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"pressroom/api/internal/filestage"
	"pressroom/api/internal/search"
	"pressroom/api/internal/store"
)

// Store is the persistence surface the service drives. Implemented by
// store.PostgresStore; faked in tests.
type Store interface {
	Ping(ctx context.Context) error

	CreateFile(ctx context.Context, path, mimetype string) (int64, error)
	GetFile(ctx context.Context, fileID int64) (store.File, error)

	AppendRevision(ctx context.Context, submissionFileID, fileID int64) (int64, error)
	ListRevisions(ctx context.Context, submissionFileID int64) ([]store.Revision, error)

	InsertSubmissionFile(ctx context.Context, f *store.SubmissionFile) (int64, error)
	GetSubmissionFile(ctx context.Context, id int64) (store.SubmissionFile, error)
	UpdateSubmissionFile(ctx context.Context, f *store.SubmissionFile) error
	DeleteSubmissionFile(ctx context.Context, id int64) error
	CollectFiles(ctx context.Context, c store.Collector) ([]store.SubmissionFile, error)

	GetReviewRound(ctx context.Context, reviewRoundID int64) (store.ReviewRound, error)
	GetReviewAssignment(ctx context.Context, reviewID int64) (store.ReviewAssignment, error)
	AssignReviewRoundFile(ctx context.Context, submissionID, reviewRoundID int64, workflowStage filestage.WorkflowStage, submissionFileID int64) error
	GrantReviewerFile(ctx context.Context, reviewID, submissionFileID int64) error
	SetReviewRoundStatus(ctx context.Context, reviewRoundID int64, status string) error
	CountRoundRevisionFiles(ctx context.Context, reviewRoundID int64) (int, error)

	GetNote(ctx context.Context, noteID int64) (store.Note, error)
	GetQuery(ctx context.Context, queryID int64) (store.Query, error)

	GetUser(ctx context.Context, userID int64) (store.User, error)
	ListAssignedEditors(ctx context.Context, submissionID int64) ([]store.User, error)
	GetStageAssignments(ctx context.Context, submissionID, userID int64) (map[filestage.WorkflowStage][]filestage.Role, error)

	InsertEvent(ctx context.Context, entry store.EventLogEntry) error
	ListEvents(ctx context.Context, assocType string, assocID int64) ([]store.EventLogEntry, error)

	CreateVariantGroup(ctx context.Context) (int64, error)
	DeleteVariantGroup(ctx context.Context, variantGroupID int64) error
	CountVariantGroupMembers(ctx context.Context, variantGroupID int64) (int, error)
	ClearVariantGroup(ctx context.Context, variantGroupID int64) error
	SetVariantGroup(ctx context.Context, submissionFileID, variantGroupID int64) error
}

// Mailer delivers editor notifications. Failures are best-effort: logged,
// never allowed to block a data mutation.
type Mailer interface {
	SendRevisionsSubmitted(to, recipientName string, submissionID int64) error
}

// NotificationLimiter rate-limits editor notices: at most one per editor
// per day, and none while a previous notice predates the editor's last
// login.
type NotificationLimiter interface {
	AllowEditorNotice(ctx context.Context, submissionID, editorID int64, lastLogin *time.Time) (bool, error)
}

// FileIndexer pushes file metadata into the search collaborator. Invoked,
// not awaited.
type FileIndexer interface {
	IndexFile(rec search.FileRecord)
	RemoveFile(submissionFileID int64)
}

type Service struct {
	store   Store
	mailer  Mailer
	limiter NotificationLimiter
	indexer FileIndexer
	now     func() time.Time
}

func New(dataStore Store, mailer Mailer, limiter NotificationLimiter, indexer FileIndexer) *Service {
	return &Service{
		store:   dataStore,
		mailer:  mailer,
		limiter: limiter,
		indexer: indexer,
		now:     time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Get loads one submission file.
func (s *Service) Get(ctx context.Context, id int64) (store.SubmissionFile, error) {
	f, err := s.store.GetSubmissionFile(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.SubmissionFile{}, notFoundError("submission file", id)
	}
	if err != nil {
		return store.SubmissionFile{}, err
	}
	return f, nil
}

// Collect runs a collector query.
func (s *Service) Collect(ctx context.Context, c store.Collector) ([]store.SubmissionFile, error) {
	return s.store.CollectFiles(ctx, c)
}

// Revisions lists a file's revision history, newest first.
func (s *Service) Revisions(ctx context.Context, id int64) ([]store.Revision, error) {
	return s.store.ListRevisions(ctx, id)
}

// Events lists the audit trail for one file.
func (s *Service) Events(ctx context.Context, id int64) ([]store.EventLogEntry, error) {
	return s.store.ListEvents(ctx, store.EventAssocSubmissionFile, id)
}

// AddUpload registers the blob produced by the upload collaborator and adds
// the submission file pointing at it. When no localized name was supplied,
// the original filename becomes the name in the file's locale.
func (s *Service) AddUpload(ctx context.Context, upload store.FileUpload, f store.SubmissionFile, allowedLocales []string, primaryLocale string) (store.SubmissionFile, error) {
	f.UploaderUserID = upload.UploaderUserID
	if len(f.Name) == 0 && upload.OriginalFileName != "" {
		locale := f.Locale
		if locale == "" {
			locale = primaryLocale
		}
		f.Name = map[string]string{locale: upload.OriginalFileName}
	}

	fileID, err := s.store.CreateFile(ctx, upload.Path, upload.Mimetype)
	if err != nil {
		return store.SubmissionFile{}, err
	}
	f.FileID = fileID
	return s.Add(ctx, f, allowedLocales, primaryLocale)
}

// Add inserts a new submission file with its first revision and runs the
// side effects: audit entries, review round bookkeeping, editor
// notification, search indexing.
func (s *Service) Add(ctx context.Context, f store.SubmissionFile, allowedLocales []string, primaryLocale string) (store.SubmissionFile, error) {
	if fields := s.Validate(&f, nil, allowedLocales, primaryLocale); len(fields) > 0 {
		return store.SubmissionFile{}, validationError(fields)
	}

	round, err := s.resolveRound(ctx, &f)
	if err != nil {
		return store.SubmissionFile{}, err
	}

	now := s.now().UTC()
	f.CreatedAt = now
	f.UpdatedAt = now

	id, err := s.store.InsertSubmissionFile(ctx, &f)
	if err != nil {
		return store.SubmissionFile{}, err
	}
	f.ID = id

	s.logEvent(ctx, store.EventAssocSubmissionFile, id, store.EventFileUploaded, f.UploaderUserID)
	s.logEvent(ctx, store.EventAssocSubmission, f.SubmissionID, store.EventFileUploaded, f.UploaderUserID)

	if round != nil {
		if err := s.store.AssignReviewRoundFile(ctx, f.SubmissionID, round.ID, round.WorkflowStage, id); err != nil {
			return store.SubmissionFile{}, err
		}
		if filestage.IsRevision(f.Stage) {
			s.afterRevisionUpload(ctx, *round, f)
		}
	}

	s.index(f)

	added, err := s.store.GetSubmissionFile(ctx, id)
	if err != nil {
		return store.SubmissionFile{}, err
	}
	return added, nil
}

// FileChanges is the closed set of fields Edit may touch. Nil pointers and
// nil maps mean "unchanged". The file stage is deliberately absent: stage
// transitions go through MoveToStage, never through a field merge.
type FileChanges struct {
	FileID   *int64
	Name     map[string]string
	Caption  map[string]string
	Credit   map[string]string
	GenreID  *int64
	Viewable *bool
	Locale   *string
}

func (c FileChanges) touchesCommonMediaFields() bool {
	return c.GenreID != nil || c.Viewable != nil || c.Caption != nil || c.Credit != nil
}

// commonMediaChanges strips the change set down to the fields shared across
// a variant group.
func (c FileChanges) commonMediaChanges() FileChanges {
	return FileChanges{
		Caption:  c.Caption,
		Credit:   c.Credit,
		GenreID:  c.GenreID,
		Viewable: c.Viewable,
	}
}

func applyChanges(f *store.SubmissionFile, changes FileChanges) {
	if changes.FileID != nil {
		f.FileID = *changes.FileID
	}
	if changes.Name != nil {
		f.Name = changes.Name
	}
	if changes.Caption != nil {
		f.Caption = changes.Caption
	}
	if changes.Credit != nil {
		f.Credit = changes.Credit
	}
	if changes.GenreID != nil {
		f.GenreID = *changes.GenreID
	}
	if changes.Viewable != nil {
		f.Viewable = *changes.Viewable
	}
	if changes.Locale != nil {
		f.Locale = *changes.Locale
	}
}

// Edit merges the change set into a fresh copy of the file. A changed blob
// reference is a content revision and appends to the revision ledger;
// anything else is a metadata edit and leaves history untouched. Either way
// updatedAt advances and both audit scopes get an entry.
func (s *Service) Edit(ctx context.Context, id int64, changes FileChanges, allowedLocales []string, primaryLocale string) (store.SubmissionFile, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return store.SubmissionFile{}, err
	}

	merged := current
	applyChanges(&merged, changes)

	if fields := s.Validate(&merged, &current, allowedLocales, primaryLocale); len(fields) > 0 {
		return store.SubmissionFile{}, validationError(fields)
	}

	contentRevision := changes.FileID != nil && *changes.FileID != current.FileID
	if contentRevision {
		if _, err := s.store.GetFile(ctx, merged.FileID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.SubmissionFile{}, notFoundError("file", merged.FileID)
			}
			return store.SubmissionFile{}, err
		}
	}

	merged.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSubmissionFile(ctx, &merged); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.SubmissionFile{}, notFoundError("submission file", id)
		}
		return store.SubmissionFile{}, err
	}

	eventType := store.EventFileEdited
	if contentRevision {
		eventType = store.EventRevisionUploaded
	}
	s.logEvent(ctx, store.EventAssocSubmissionFile, id, eventType, merged.UploaderUserID)
	s.logEvent(ctx, store.EventAssocSubmission, merged.SubmissionID, eventType, merged.UploaderUserID)

	if merged.Stage == filestage.StageMedia && merged.VariantGroupID != 0 {
		if err := s.ApplyMetadataToSiblings(ctx, merged, changes, merged.SubmissionID); err != nil {
			return store.SubmissionFile{}, err
		}
	}

	s.index(merged)

	return s.Get(ctx, id)
}

// MoveToStage is the dedicated stage-transition operation: it revalidates
// the stage/association pairing, resolves any review round the target stage
// implies, and records the transfer. Direct stage mutation through Edit is
// not possible.
func (s *Service) MoveToStage(ctx context.Context, id int64, stage filestage.Stage, assocType filestage.AssocType, assocID int64, allowedLocales []string, primaryLocale string) (store.SubmissionFile, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return store.SubmissionFile{}, err
	}

	moved := current
	moved.Stage = stage
	moved.AssocType = assocType
	moved.AssocID = assocID

	if fields := s.Validate(&moved, &current, allowedLocales, primaryLocale); len(fields) > 0 {
		return store.SubmissionFile{}, validationError(fields)
	}

	round, err := s.resolveRound(ctx, &moved)
	if err != nil {
		return store.SubmissionFile{}, err
	}

	moved.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSubmissionFile(ctx, &moved); err != nil {
		return store.SubmissionFile{}, err
	}
	if round != nil {
		if err := s.store.AssignReviewRoundFile(ctx, moved.SubmissionID, round.ID, round.WorkflowStage, id); err != nil {
			return store.SubmissionFile{}, err
		}
	}

	s.logEvent(ctx, store.EventAssocSubmissionFile, id, store.EventFileEdited, moved.UploaderUserID)
	s.index(moved)

	return s.Get(ctx, id)
}

// Delete removes the file with its full cascade, then runs the
// variant-group cleanup pass and review round bookkeeping.
func (s *Service) Delete(ctx context.Context, f store.SubmissionFile) error {
	var round *store.ReviewRound
	if filestage.IsRevision(f.Stage) && f.AssocType == filestage.AssocReviewRound {
		if r, err := s.store.GetReviewRound(ctx, f.AssocID); err == nil {
			round = &r
		}
	}

	if err := s.store.DeleteSubmissionFile(ctx, f.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("submission file", f.ID)
		}
		return err
	}

	s.logEvent(ctx, store.EventAssocSubmission, f.SubmissionID, store.EventFileDeleted, f.UploaderUserID)

	if f.VariantGroupID != 0 {
		if err := s.CleanupVariantGroup(ctx, f.VariantGroupID, f.SubmissionID); err != nil {
			return err
		}
	}

	if round != nil {
		s.recomputeRoundStatus(ctx, *round)
	}

	s.deindex(f.ID)
	return nil
}

// DeleteByID loads the file and deletes it.
func (s *Service) DeleteByID(ctx context.Context, id int64) error {
	f, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.Delete(ctx, f)
}

// GrantReviewerAccess opens a file to one reviewer, typically before the
// reviewer confirms the assignment.
func (s *Service) GrantReviewerAccess(ctx context.Context, reviewID, submissionFileID int64) error {
	if _, err := s.store.GetReviewAssignment(ctx, reviewID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFoundError("review assignment", reviewID)
		}
		return err
	}
	if _, err := s.Get(ctx, submissionFileID); err != nil {
		return err
	}
	return s.store.GrantReviewerFile(ctx, reviewID, submissionFileID)
}

// resolveRound returns the review round the file's stage requires, or nil
// for stages outside the review family. A dangling association is a
// NotFound failure: the caller handed us a broken invariant.
func (s *Service) resolveRound(ctx context.Context, f *store.SubmissionFile) (*store.ReviewRound, error) {
	switch {
	case filestage.RequiresReviewRound(f.Stage):
		round, err := s.store.GetReviewRound(ctx, f.AssocID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("review round", f.AssocID)
		}
		if err != nil {
			return nil, err
		}
		return &round, nil
	case filestage.RequiresReviewAssignment(f.Stage):
		assignment, err := s.store.GetReviewAssignment(ctx, f.AssocID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("review assignment", f.AssocID)
		}
		if err != nil {
			return nil, err
		}
		round, err := s.store.GetReviewRound(ctx, assignment.ReviewRoundID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError("review round", assignment.ReviewRoundID)
		}
		if err != nil {
			return nil, err
		}
		return &round, nil
	}
	return nil, nil
}

// afterRevisionUpload moves the round out of revisionsRequested and, when
// the uploader is an author, notifies the assigned editors.
func (s *Service) afterRevisionUpload(ctx context.Context, round store.ReviewRound, f store.SubmissionFile) {
	if round.Status == store.RoundStatusRevisionsRequested {
		if err := s.store.SetReviewRoundStatus(ctx, round.ID, store.RoundStatusRevisionsSubmitted); err != nil {
			log.Printf("app: set round %d status: %v", round.ID, err)
		}
	}

	isAuthor, err := s.uploaderIsAuthor(ctx, f.SubmissionID, f.UploaderUserID)
	if err != nil {
		log.Printf("app: resolve uploader role: %v", err)
		return
	}
	if isAuthor {
		s.notifyEditors(ctx, f.SubmissionID, f.UploaderUserID)
	}
}

// recomputeRoundStatus walks a round back to revisionsRequested when the
// last revision file is deleted.
func (s *Service) recomputeRoundStatus(ctx context.Context, round store.ReviewRound) {
	if round.Status != store.RoundStatusRevisionsSubmitted {
		return
	}
	count, err := s.store.CountRoundRevisionFiles(ctx, round.ID)
	if err != nil {
		log.Printf("app: count round %d revision files: %v", round.ID, err)
		return
	}
	if count == 0 {
		if err := s.store.SetReviewRoundStatus(ctx, round.ID, store.RoundStatusRevisionsRequested); err != nil {
			log.Printf("app: set round %d status: %v", round.ID, err)
		}
	}
}

func (s *Service) uploaderIsAuthor(ctx context.Context, submissionID, userID int64) (bool, error) {
	assignments, err := s.store.GetStageAssignments(ctx, submissionID, userID)
	if err != nil {
		return false, err
	}
	for _, roles := range assignments {
		for _, role := range roles {
			if role == filestage.RoleAuthor {
				return true, nil
			}
		}
	}
	return false, nil
}

// notifyEditors emails every assigned editor, subject to the per-editor
// daily rate limit. Send failures are logged and swallowed: notification is
// best-effort and never rolls back the upload.
func (s *Service) notifyEditors(ctx context.Context, submissionID, uploaderID int64) {
	if s.mailer == nil || s.limiter == nil {
		return
	}
	editors, err := s.store.ListAssignedEditors(ctx, submissionID)
	if err != nil {
		log.Printf("app: list editors for submission %d: %v", submissionID, err)
		return
	}
	for _, editor := range editors {
		if editor.ID == uploaderID {
			continue
		}
		allowed, err := s.limiter.AllowEditorNotice(ctx, submissionID, editor.ID, editor.LastLoginAt)
		if err != nil {
			log.Printf("app: notification limiter: %v", err)
			continue
		}
		if !allowed {
			continue
		}
		if err := s.mailer.SendRevisionsSubmitted(editor.Email, editor.DisplayName, submissionID); err != nil {
			log.Printf("app: notify editor %d: %v", editor.ID, err)
		}
	}
}

// logEvent appends an audit entry. The audit sink is a collaborator; a
// write failure is logged, not surfaced.
func (s *Service) logEvent(ctx context.Context, assocType string, assocID int64, eventType string, userID int64) {
	err := s.store.InsertEvent(ctx, store.EventLogEntry{
		AssocType: assocType,
		AssocID:   assocID,
		EventType: eventType,
		UserID:    userID,
		Message:   eventType,
	})
	if err != nil {
		log.Printf("app: log %s for %s %d: %v", eventType, assocType, assocID, err)
	}
}

func (s *Service) index(f store.SubmissionFile) {
	if s.indexer == nil {
		return
	}
	s.indexer.IndexFile(search.FileRecord{
		ID:           f.ID,
		SubmissionID: f.SubmissionID,
		Stage:        string(f.Stage),
		Name:         f.Name,
	})
}

func (s *Service) deindex(id int64) {
	if s.indexer == nil {
		return
	}
	s.indexer.RemoveFile(id)
}

// AssignedFileStages resolves the file stages the user can reach on the
// submission for the given action.
func (s *Service) AssignedFileStages(ctx context.Context, submissionID, userID int64, action filestage.Action) (map[filestage.Stage]bool, error) {
	assignments, err := s.store.GetStageAssignments(ctx, submissionID, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve stage assignments: %w", err)
	}
	return filestage.AssignedFileStages(assignments, action), nil
}
