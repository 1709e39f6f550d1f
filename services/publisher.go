package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"site-cms/helper"
	"site-cms/models"
	"site-cms/repositories"
	"site-cms/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const maxSlugAttempts = 100

// Publication is a story created for an approval that is not committed
// yet, together with the files uploaded for it.
type Publication struct {
	Story    *models.Story
	Uploaded []models.FileRef
}

type Publisher interface {
	// Publish materializes sub as a story. replacement, when given, is a
	// reviewer supplied image used only if the submission carries none.
	Publish(ctx context.Context, sub *models.PendingSubmission, overrides *models.StoryOverrides, replacement *storage.Upload) (*Publication, error)
	// Retract undoes a Publish whose approval could not be committed.
	Retract(ctx context.Context, pub *Publication)
	// RecordApproval bumps the approved submitter ledger. Failures are only
	// logged.
	RecordApproval(ctx context.Context, sub *models.PendingSubmission, story *models.Story)
}

type publisher struct {
	storyRepo     repositories.StoryRepository
	submitterRepo repositories.ApprovedSubmitterRepository
	files         storage.FileStore
	log           logrus.FieldLogger
	now           func() time.Time
}

func NewPublisher(storyRepo repositories.StoryRepository, submitterRepo repositories.ApprovedSubmitterRepository, files storage.FileStore, log logrus.FieldLogger) Publisher {
	return &publisher{
		storyRepo:     storyRepo,
		submitterRepo: submitterRepo,
		files:         files,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (p *publisher) Publish(ctx context.Context, sub *models.PendingSubmission, overrides *models.StoryOverrides, replacement *storage.Upload) (*Publication, error) {
	story := buildStory(sub, overrides)
	files := sub.Files.Data()

	if strings.TrimSpace(story.Title) == "" {
		return nil, models.NewPublishError("story title cannot be empty")
	}
	switch story.Category {
	case models.CategoryVideo:
		if story.VideoURL == "" {
			return nil, models.NewPublishError("video stories need a video url")
		}
	case models.CategoryResources:
		if files.ResourceFile == nil {
			return nil, models.NewPublishError("resource stories need an uploaded file")
		}
		applyResourceFile(story, files.ResourceFile)
		if story.FilePath == "" || story.FileType == "" {
			return nil, models.NewPublishError("resource file has no usable path or type")
		}
	}

	pub := &Publication{Story: story}
	switch {
	case files.MainImage != nil:
		story.Image = files.MainImage.URL
	case replacement != nil:
		ref, err := p.files.Save(ctx, storage.Folder(models.FileMainImage, story.Category), *replacement)
		if err != nil {
			return nil, models.NewStorageError("could not store replacement image", err)
		}
		story.Image = ref.URL
		pub.Uploaded = append(pub.Uploaded, *ref)
	default:
		story.Image = models.DefaultImage(story.Category)
	}

	if files.AuthorImage != nil {
		story.AuthorImage = files.AuthorImage.URL
	} else if story.Category == models.CategoryBlog {
		story.AuthorImage = models.DefaultAuthorImage
	}

	story.PublishedAt = p.now()
	if err := p.insertWithUniqueSlug(ctx, story); err != nil {
		p.discard(ctx, pub.Uploaded)
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"story_id":      story.ID,
		"slug":          story.Slug,
		"submission_id": sub.ID,
	}).Info("Story published")
	return pub, nil
}

// insertWithUniqueSlug lets the unique index arbitrate between concurrent
// publishers, moving to the next suffix on every conflict.
func (p *publisher) insertWithUniqueSlug(ctx context.Context, story *models.Story) error {
	base := helper.Slugify(story.Title)
	for n := 0; n < maxSlugAttempts; n++ {
		story.ID = uuid.New()
		story.Slug = helper.SlugCandidate(base, n)

		err := p.storyRepo.Create(ctx, story)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repositories.ErrDuplicateSlug) {
			return models.NewInternalError("could not save story", err)
		}
	}
	return models.NewConflictError("no free slug for " + base)
}

func buildStory(sub *models.PendingSubmission, o *models.StoryOverrides) *models.Story {
	sourceID := sub.ID
	story := &models.Story{
		Title:              sub.Title,
		Description:        sub.Description,
		Content:            sub.Content,
		Category:           sub.Category,
		Author:             sub.Author,
		ReadTime:           sub.ReadTime,
		VideoURL:           sub.VideoURL,
		Duration:           sub.Duration,
		Speakers:           sub.Speakers,
		ResourceType:       sub.ResourceType,
		PageCount:          sub.PageCount,
		Includes:           sub.Includes,
		SubmittedBy:        sub.SubmitterName,
		SourceSubmissionID: &sourceID,
		IsPublished:        true,
	}
	if story.Author == "" {
		story.Author = sub.SubmitterName
	}

	if o != nil {
		override(&story.Title, o.Title)
		override(&story.Description, o.Description)
		override(&story.Content, o.Content)
		override(&story.Author, o.Author)
		override(&story.ReadTime, o.ReadTime)
		override(&story.VideoURL, o.VideoURL)
		override(&story.Duration, o.Duration)
		override(&story.ResourceType, o.ResourceType)
		if o.PageCount != nil {
			story.PageCount = *o.PageCount
		}
		if o.Speakers != nil {
			story.Speakers = datatypes.JSONSlice[string](o.Speakers)
		}
		if o.Includes != nil {
			story.Includes = datatypes.JSONSlice[string](o.Includes)
		}
	}

	story.Title = strings.TrimSpace(story.Title)
	story.VideoURL = strings.TrimSpace(story.VideoURL)
	if story.Category == models.CategoryBlog && story.ReadTime == "" {
		story.ReadTime = models.DefaultReadTime
	}
	return story
}

func override(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func applyResourceFile(story *models.Story, ref *models.FileRef) {
	story.FilePath = ref.URL
	story.FileSize = ref.Size
	story.FileType = strings.ToUpper(strings.TrimPrefix(filepath.Ext(ref.OriginalName), "."))
	if story.FileType == "" && ref.MimeType != "" {
		mime := ref.MimeType
		if i := strings.LastIndex(mime, "/"); i >= 0 {
			mime = mime[i+1:]
		}
		story.FileType = strings.ToUpper(mime)
	}
}

func (p *publisher) Retract(ctx context.Context, pub *Publication) {
	if err := p.storyRepo.Delete(ctx, pub.Story.ID); err != nil {
		p.log.WithError(err).WithField("story_id", pub.Story.ID).Error("Failed to retract story")
	}
	p.discard(ctx, pub.Uploaded)
}

func (p *publisher) RecordApproval(ctx context.Context, sub *models.PendingSubmission, story *models.Story) {
	email := strings.ToLower(strings.TrimSpace(sub.SubmitterEmail))
	if email == "" {
		return
	}
	if err := p.submitterRepo.Record(ctx, email, sub.SubmitterName, story.ID, p.now()); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{
			"email":    email,
			"story_id": story.ID,
		}).Warn("Failed to update approved submitters ledger")
	}
}

func (p *publisher) discard(ctx context.Context, refs []models.FileRef) {
	if err := storage.DeleteAll(ctx, p.files, refs); err != nil {
		p.log.WithError(err).Warn("Failed to remove uploaded files")
	}
}
