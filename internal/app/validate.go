package app

import (
	"pressroom/api/internal/filestage"
	"pressroom/api/internal/store"
)

// Validate checks a candidate submission file and returns field-keyed
// errors; an empty map means the candidate is acceptable. current is nil
// for a new file and the stored state for an edit — edits may not touch the
// uploader or the creation timestamp, and each stage/association family is
// checked under its own key.
func (s *Service) Validate(candidate *store.SubmissionFile, current *store.SubmissionFile, allowedLocales []string, primaryLocale string) map[string]string {
	errs := make(map[string]string)

	if candidate.SubmissionID == 0 {
		errs["submissionId"] = "a submission is required"
	}
	if candidate.FileID == 0 {
		errs["fileId"] = "a file upload is required"
	}
	if !filestage.Known(candidate.Stage) {
		errs["fileStage"] = "unrecognized file stage"
	}

	if candidate.Locale != "" && !localeAllowed(candidate.Locale, allowedLocales) {
		errs["locale"] = "locale is not supported"
	}
	for locale := range candidate.Name {
		if !localeAllowed(locale, allowedLocales) {
			errs["name"] = "name uses an unsupported locale"
			break
		}
	}
	if current == nil && candidate.Name[primaryLocale] == "" {
		errs["name"] = "a name in the primary locale is required"
	}

	if current != nil {
		if candidate.UploaderUserID != current.UploaderUserID {
			errs["uploaderUserId"] = "the uploader cannot be changed"
		}
		if !candidate.CreatedAt.IsZero() && !candidate.CreatedAt.Equal(current.CreatedAt) {
			errs["createdAt"] = "the creation timestamp cannot be changed"
		}
	}

	validateAssociations(candidate, errs)
	return errs
}

// validateAssociations enforces the stage/assocType pairing, one check per
// association family.
func validateAssociations(f *store.SubmissionFile, errs map[string]string) {
	if filestage.RequiresReviewRound(f.Stage) {
		if f.AssocType != filestage.AssocReviewRound || f.AssocID == 0 {
			errs["reviewRound"] = "this stage requires a review round association"
		}
	} else if f.AssocType == filestage.AssocReviewRound {
		errs["reviewRound"] = "a review round association is not allowed at this stage"
	}

	if filestage.RequiresReviewAssignment(f.Stage) {
		if f.AssocType != filestage.AssocReviewAssignment || f.AssocID == 0 {
			errs["reviewAssignment"] = "review attachments require a review assignment association"
		}
	} else if f.AssocType == filestage.AssocReviewAssignment {
		errs["reviewAssignment"] = "a review assignment association is not allowed at this stage"
	}

	if f.Stage == filestage.StageDependent {
		if f.AssocType != filestage.AssocSubmissionFile || f.AssocID == 0 {
			errs["dependent"] = "dependent files must reference a parent submission file"
		}
	} else if f.AssocType == filestage.AssocSubmissionFile {
		errs["dependent"] = "a parent file association is only allowed for dependent files"
	}

	if f.Stage == filestage.StageQuery || f.Stage == filestage.StageNote {
		if f.AssocType != filestage.AssocNote || f.AssocID == 0 {
			errs["note"] = "discussion files must reference a note"
		}
	} else if f.AssocType == filestage.AssocNote {
		errs["note"] = "a note association is only allowed for discussion files"
	}

	if f.AssocType == filestage.AssocRepresentation && f.Stage != filestage.StageProof {
		errs["representation"] = "a representation association is only allowed for proof files"
	}
}

func localeAllowed(locale string, allowedLocales []string) bool {
	for _, allowed := range allowedLocales {
		if locale == allowed {
			return true
		}
	}
	return false
}
