package services

import (
	"context"
	"errors"

	"site-cms/models"
	"site-cms/repositories"

	"github.com/sirupsen/logrus"
)

type StoryService interface {
	ListPublic(ctx context.Context, params models.StoryListParams) ([]models.Story, int64, error)
	// GetPublic returns a published story and counts the view.
	GetPublic(ctx context.Context, slug string) (*models.Story, error)
	List(ctx context.Context, params models.StoryListParams) ([]models.Story, int64, error)
}

type storyService struct {
	storyRepo repositories.StoryRepository
	log       logrus.FieldLogger
}

func NewStoryService(storyRepo repositories.StoryRepository, log logrus.FieldLogger) StoryService {
	return &storyService{storyRepo: storyRepo, log: log}
}

func (s *storyService) ListPublic(ctx context.Context, params models.StoryListParams) ([]models.Story, int64, error) {
	return s.list(ctx, params, true)
}

func (s *storyService) List(ctx context.Context, params models.StoryListParams) ([]models.Story, int64, error) {
	return s.list(ctx, params, false)
}

func (s *storyService) list(ctx context.Context, params models.StoryListParams, publishedOnly bool) ([]models.Story, int64, error) {
	if params.Category != "" && !models.Category(params.Category).Valid() {
		return nil, 0, models.NewValidationError("unknown category filter", map[string]string{"category": params.Category})
	}
	params.Page, params.Limit = models.Normalize(params.Page, params.Limit)
	stories, total, err := s.storyRepo.List(ctx, params, publishedOnly)
	if err != nil {
		return nil, 0, models.NewInternalError("could not list stories", err)
	}
	return stories, total, nil
}

func (s *storyService) GetPublic(ctx context.Context, slug string) (*models.Story, error) {
	story, err := s.storyRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewNotFoundError("story")
		}
		return nil, models.NewInternalError("could not load story", err)
	}
	if !story.IsPublished {
		return nil, models.NewNotFoundError("story")
	}

	if err := s.storyRepo.IncrementViews(ctx, story.ID); err != nil {
		s.log.WithError(err).WithField("story_id", story.ID).Warn("Failed to count story view")
	} else {
		story.Views++
	}
	return story, nil
}
