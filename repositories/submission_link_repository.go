package repositories

import (
	"context"
	"errors"

	"site-cms/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type submissionLinkRepository struct {
	db *gorm.DB
}

func NewSubmissionLinkRepository(db *gorm.DB) SubmissionLinkRepository {
	return &submissionLinkRepository{db: db}
}

func (r *submissionLinkRepository) Create(ctx context.Context, link *models.SubmissionLink) error {
	err := r.db.WithContext(ctx).Create(link).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateToken
	}
	return err
}

func (r *submissionLinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SubmissionLink, error) {
	var link models.SubmissionLink
	if err := r.db.WithContext(ctx).First(&link, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

func (r *submissionLinkRepository) GetByToken(ctx context.Context, token string) (*models.SubmissionLink, error) {
	var link models.SubmissionLink
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&link).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

func (r *submissionLinkRepository) List(ctx context.Context, params models.LinkListParams) ([]models.SubmissionLink, int64, error) {
	var links []models.SubmissionLink
	var total int64

	query := r.db.WithContext(ctx).Model(&models.SubmissionLink{})
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at desc").
		Offset(offset(params.Page, params.Limit)).
		Limit(params.Limit).
		Find(&links).Error
	return links, total, err
}

func (r *submissionLinkRepository) Toggle(ctx context.Context, id uuid.UUID) (*models.SubmissionLink, error) {
	var link models.SubmissionLink
	res := r.db.WithContext(ctx).Model(&link).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		UpdateColumn("is_active", gorm.Expr("NOT is_active"))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &link, nil
}

func (r *submissionLinkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.SubmissionLink{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *submissionLinkRepository) AppendUsage(ctx context.Context, usage *models.LinkUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *submissionLinkRepository) UsageLog(ctx context.Context, linkID uuid.UUID) ([]models.LinkUsage, error) {
	var log []models.LinkUsage
	err := r.db.WithContext(ctx).
		Where("link_id = ?", linkID).
		Order("attempted_at asc, id asc").
		Find(&log).Error
	return log, err
}
