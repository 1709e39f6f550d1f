package repositories

import (
	"context"
	"time"

	"site-cms/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type pendingSubmissionRepository struct {
	db *gorm.DB
}

func NewPendingSubmissionRepository(db *gorm.DB) PendingSubmissionRepository {
	return &pendingSubmissionRepository{db: db}
}

func (r *pendingSubmissionRepository) CreateReserved(ctx context.Context, submission *models.PendingSubmission, now time.Time) error {
	if submission.LinkID == nil {
		return ErrLinkUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The row lock taken by this UPDATE serializes concurrent intakes on
		// the same link; the WHERE clause is re-evaluated after the lock.
		res := tx.Model(&models.SubmissionLink{}).
			Where("id = ? AND is_active = ? AND expires_at > ? AND current_submissions < max_submissions",
				*submission.LinkID, true, now).
			UpdateColumn("current_submissions", gorm.Expr("current_submissions + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLinkUnavailable
		}
		return tx.Create(submission).Error
	})
}

func (r *pendingSubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PendingSubmission, error) {
	var submission models.PendingSubmission
	err := r.db.WithContext(ctx).
		Preload("ApprovalSteps", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).
		First(&submission, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &submission, nil
}

func (r *pendingSubmissionRepository) List(ctx context.Context, params models.SubmissionListParams) ([]models.PendingSubmission, int64, error) {
	var submissions []models.PendingSubmission
	var total int64

	query := r.db.WithContext(ctx).Model(&models.PendingSubmission{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.LinkID != "" {
		query = query.Where("link_id = ?", params.LinkID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("submitted_at desc").
		Offset(offset(params.Page, params.Limit)).
		Limit(params.Limit).
		Find(&submissions).Error
	return submissions, total, err
}

func (r *pendingSubmissionRepository) ListByLink(ctx context.Context, linkID uuid.UUID) ([]models.PendingSubmission, error) {
	var submissions []models.PendingSubmission
	err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("submitted_at asc").
		Find(&submissions).Error
	return submissions, err
}

func (r *pendingSubmissionRepository) Transition(ctx context.Context, id uuid.UUID, from []models.SubmissionStatus, change models.SubmissionTransition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":        change.To,
			"reviewed_by":   change.Reviewer.ID,
			"reviewer_name": change.Reviewer.Name,
			"reviewed_at":   change.At,
			"review_notes":  change.Notes,
			"updated_at":    change.At,
		}
		if change.RevisionDetails != "" {
			updates["revision_details"] = change.RevisionDetails
		}
		if change.FinalStoryID != nil {
			updates["final_story_id"] = *change.FinalStoryID
		}

		res := tx.Model(&models.PendingSubmission{}).
			Where("id = ? AND status IN ?", id, from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleState
		}

		step := change.Step(id)
		return tx.Create(&step).Error
	})
}

func (r *pendingSubmissionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission models.PendingSubmission
		if err := tx.Select("id", "link_id").First(&submission, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("submission_id = ?", id).Delete(&models.ApprovalStep{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.PendingSubmission{}, "id = ?", id).Error; err != nil {
			return err
		}
		if submission.LinkID == nil {
			return nil
		}
		// Unscoped so a slot is released even on a soft-deleted link.
		return tx.Unscoped().Model(&models.SubmissionLink{}).
			Where("id = ? AND current_submissions > 0", *submission.LinkID).
			UpdateColumn("current_submissions", gorm.Expr("current_submissions - 1")).Error
	})
}
