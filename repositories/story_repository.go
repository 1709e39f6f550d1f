package repositories

import (
	"context"
	"errors"

	"site-cms/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type storyRepository struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) StoryRepository {
	return &storyRepository{db: db}
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	err := r.db.WithContext(ctx).Create(story).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSlug
	}
	return err
}

func (r *storyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	var story models.Story
	if err := r.db.WithContext(ctx).First(&story, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &story, nil
}

func (r *storyRepository) GetBySlug(ctx context.Context, slug string) (*models.Story, error) {
	var story models.Story
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&story).Error; err != nil {
		return nil, translate(err)
	}
	return &story, nil
}

func (r *storyRepository) List(ctx context.Context, params models.StoryListParams, publishedOnly bool) ([]models.Story, int64, error) {
	var stories []models.Story
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Story{})
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("published_at desc").
		Offset(offset(params.Page, params.Limit)).
		Limit(params.Limit).
		Find(&stories).Error
	return stories, total, err
}

func (r *storyRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Story{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// Delete removes the row outright so its slug can be taken again.
func (r *storyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.Story{}, "id = ?", id).Error
}
