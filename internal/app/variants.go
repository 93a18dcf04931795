package app

import (
	"context"
	"log"

	"pressroom/api/internal/filestage"
	"pressroom/api/internal/store"
)

// MaxVariantGroupSize caps a variant group at two interchangeable media
// files.
const MaxVariantGroupSize = 2

// LinkVariants groups two media files as interchangeable variants. Linking
// is commutative in outcome; capacity is checked before any mutation, and
// two files already in different groups cannot be merged. Afterward the
// common media fields flow one way, from primary onto secondary.
func (s *Service) LinkVariants(ctx context.Context, primaryID, secondaryID, submissionID int64) error {
	primary, err := s.Get(ctx, primaryID)
	if err != nil {
		return err
	}
	secondary, err := s.Get(ctx, secondaryID)
	if err != nil {
		return err
	}

	fields := map[string]string{}
	if primary.Stage != filestage.StageMedia {
		fields["fileId"] = "only media files can be grouped as variants"
	}
	if secondary.Stage != filestage.StageMedia {
		fields["otherFileId"] = "only media files can be grouped as variants"
	}
	if primary.SubmissionID != submissionID || secondary.SubmissionID != submissionID {
		fields["submissionId"] = "both files must belong to the submission"
	}
	if len(fields) > 0 {
		return validationError(fields)
	}

	if primary.VariantGroupID != 0 && secondary.VariantGroupID != 0 {
		if primary.VariantGroupID != secondary.VariantGroupID {
			return groupConflictError()
		}
		return nil // already linked
	}

	groupID := primary.VariantGroupID
	if groupID == 0 {
		groupID = secondary.VariantGroupID
	}

	if groupID != 0 {
		count, err := s.store.CountVariantGroupMembers(ctx, groupID)
		if err != nil {
			return err
		}
		if count >= MaxVariantGroupSize {
			return groupCapacityError(groupID)
		}
	} else {
		groupID, err = s.store.CreateVariantGroup(ctx)
		if err != nil {
			return err
		}
	}

	if primary.VariantGroupID == 0 {
		if err := s.store.SetVariantGroup(ctx, primary.ID, groupID); err != nil {
			return err
		}
	}
	if secondary.VariantGroupID == 0 {
		if err := s.store.SetVariantGroup(ctx, secondary.ID, groupID); err != nil {
			return err
		}
	}

	// Primary wins: its common media fields overwrite the secondary's.
	secondary.Caption = primary.Caption
	secondary.Credit = primary.Credit
	secondary.GenreID = primary.GenreID
	secondary.Viewable = primary.Viewable
	secondary.VariantGroupID = groupID
	secondary.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSubmissionFile(ctx, &secondary); err != nil {
		return err
	}
	return nil
}

// UnlinkVariants dissolves the file's variant group and returns every
// affected file id. Unlinking an ungrouped file is a no-op that reports
// just the file itself.
func (s *Service) UnlinkVariants(ctx context.Context, fileID, submissionID int64) ([]int64, error) {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f.VariantGroupID == 0 {
		return []int64{f.ID}, nil
	}

	members, err := s.variantGroupMembers(ctx, f.VariantGroupID, submissionID)
	if err != nil {
		return nil, err
	}

	if err := s.store.ClearVariantGroup(ctx, f.VariantGroupID); err != nil {
		return nil, err
	}
	if err := s.store.DeleteVariantGroup(ctx, f.VariantGroupID); err != nil {
		return nil, err
	}

	affected := make([]int64, 0, len(members))
	for _, member := range members {
		affected = append(affected, member.ID)
	}
	return affected, nil
}

// CleanupVariantGroup runs after a sibling's deletion: a group of one loses
// its last grouping, and a group of at most one loses its row.
func (s *Service) CleanupVariantGroup(ctx context.Context, variantGroupID, submissionID int64) error {
	count, err := s.store.CountVariantGroupMembers(ctx, variantGroupID)
	if err != nil {
		return err
	}
	if count > 1 {
		return nil
	}
	if count == 1 {
		if err := s.store.ClearVariantGroup(ctx, variantGroupID); err != nil {
			return err
		}
	}
	return s.store.DeleteVariantGroup(ctx, variantGroupID)
}

// ApplyMetadataToSiblings re-applies the common media subset of a change to
// every other member of the file's variant group. A no-op for ungrouped
// files or changes touching no common field.
func (s *Service) ApplyMetadataToSiblings(ctx context.Context, f store.SubmissionFile, changes FileChanges, submissionID int64) error {
	if f.VariantGroupID == 0 || !changes.touchesCommonMediaFields() {
		return nil
	}
	common := changes.commonMediaChanges()

	members, err := s.variantGroupMembers(ctx, f.VariantGroupID, submissionID)
	if err != nil {
		return err
	}
	for _, member := range members {
		if member.ID == f.ID {
			continue
		}
		applyChanges(&member, common)
		member.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateSubmissionFile(ctx, &member); err != nil {
			return err
		}
		log.Printf("app: propagated media metadata from file %d to variant %d", f.ID, member.ID)
	}
	return nil
}

func (s *Service) variantGroupMembers(ctx context.Context, variantGroupID, submissionID int64) ([]store.SubmissionFile, error) {
	collector := store.Collector{
		SubmissionIDs:   []int64{submissionID},
		Stages:          []filestage.Stage{filestage.StageMedia},
		VariantGroupIDs: []int64{variantGroupID},
	}
	return s.store.CollectFiles(ctx, collector)
}
