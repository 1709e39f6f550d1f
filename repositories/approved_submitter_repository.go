package repositories

import (
	"context"
	"time"

	"site-cms/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type approvedSubmitterRepository struct {
	db *gorm.DB
}

func NewApprovedSubmitterRepository(db *gorm.DB) ApprovedSubmitterRepository {
	return &approvedSubmitterRepository{db: db}
}

func (r *approvedSubmitterRepository) Record(ctx context.Context, email, name string, storyID uuid.UUID, at time.Time) error {
	entry := models.ApprovedSubmitter{
		Email:           email,
		Name:            name,
		ApprovedCount:   1,
		StoryIDs:        datatypes.JSONSlice[uuid.UUID]{storyID},
		FirstApprovedAt: at,
		LastApprovedAt:  at,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":             name,
			"approved_count":   gorm.Expr("approved_submitters.approved_count + 1"),
			"story_ids":        gorm.Expr("approved_submitters.story_ids || EXCLUDED.story_ids"),
			"last_approved_at": at,
		}),
	}).Create(&entry).Error
}

func (r *approvedSubmitterRepository) GetByEmail(ctx context.Context, email string) (*models.ApprovedSubmitter, error) {
	var entry models.ApprovedSubmitter
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&entry).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}
