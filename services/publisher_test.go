package services

import (
	"context"
	"sync"
	"testing"

	"site-cms/logger"
	"site-cms/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func pendingSubmission(category models.Category, title string) *models.PendingSubmission {
	return &models.PendingSubmission{
		ID:             uuid.New(),
		Title:          title,
		Category:       category,
		SubmitterName:  "Ana Lima",
		SubmitterEmail: "Ana@Example.com",
		Status:         models.StatusPending,
	}
}

func TestPublishBlogUsesDefaults(t *testing.T) {
	h := newHarness()
	sub := pendingSubmission(models.CategoryBlog, "Our Green Future")

	pub, err := h.publisher.Publish(context.Background(), sub, nil, nil)
	require.NoError(t, err)
	story := pub.Story
	assert.Equal(t, "our-green-future", story.Slug)
	assert.Equal(t, "Ana Lima", story.Author)
	assert.Equal(t, "Ana Lima", story.SubmittedBy)
	assert.Equal(t, models.DefaultReadTime, story.ReadTime)
	assert.Equal(t, models.DefaultImage(models.CategoryBlog), story.Image)
	assert.Equal(t, models.DefaultAuthorImage, story.AuthorImage)
	assert.Equal(t, h.now, story.PublishedAt)
	assert.True(t, story.IsPublished)
	require.NotNil(t, story.SourceSubmissionID)
	assert.Equal(t, sub.ID, *story.SourceSubmissionID)
	assert.Empty(t, pub.Uploaded)
}

func TestPublishOverrides(t *testing.T) {
	h := newHarness()
	sub := pendingSubmission(models.CategoryBlog, "Original")
	sub.Author = "Guest Writer"
	title, pages := "Renamed", 12

	pub, err := h.publisher.Publish(context.Background(), sub, &models.StoryOverrides{
		Title:     &title,
		PageCount: &pages,
		Speakers:  []string{"A", "B"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", pub.Story.Title)
	assert.Equal(t, "renamed", pub.Story.Slug)
	assert.Equal(t, "Guest Writer", pub.Story.Author)
	assert.Equal(t, 12, pub.Story.PageCount)
	assert.Equal(t, []string{"A", "B"}, []string(pub.Story.Speakers))

	blank := "  "
	_, err = h.publisher.Publish(context.Background(), sub, &models.StoryOverrides{Title: &blank}, nil)
	assert.Equal(t, models.KindPublish, models.ErrorKindOf(err))
}

func TestPublishCategoryGates(t *testing.T) {
	h := newHarness()

	video := pendingSubmission(models.CategoryVideo, "Talk")
	_, err := h.publisher.Publish(context.Background(), video, nil, nil)
	assert.Equal(t, models.KindPublish, models.ErrorKindOf(err))

	resource := pendingSubmission(models.CategoryResources, "Guide")
	_, err = h.publisher.Publish(context.Background(), resource, nil, nil)
	assert.Equal(t, models.KindPublish, models.ErrorKindOf(err))

	resource.Files = datatypes.NewJSONType(models.SubmissionFiles{
		ResourceFile: &models.FileRef{OriginalName: "guide.pdf", URL: "https://cdn.test/guide.pdf", Size: 2048, MimeType: "application/pdf"},
	})
	pub, err := h.publisher.Publish(context.Background(), resource, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/guide.pdf", pub.Story.FilePath)
	assert.Equal(t, "PDF", pub.Story.FileType)
	assert.EqualValues(t, 2048, pub.Story.FileSize)
	assert.Empty(t, pub.Story.AuthorImage)
}

func TestApplyResourceFileFallsBackToMime(t *testing.T) {
	story := &models.Story{}
	applyResourceFile(story, &models.FileRef{OriginalName: "slides", URL: "/u/slides", MimeType: "application/vnd.ms-powerpoint"})
	assert.Equal(t, "VND.MS-POWERPOINT", story.FileType)
}

func TestPublishImagePriority(t *testing.T) {
	ctx := context.Background()

	t.Run("submitted image wins over a replacement", func(t *testing.T) {
		h := newHarness()
		sub := pendingSubmission(models.CategoryBlog, "With image")
		sub.Files = datatypes.NewJSONType(models.SubmissionFiles{
			MainImage:   &models.FileRef{URL: "https://cdn.test/main.png"},
			AuthorImage: &models.FileRef{URL: "https://cdn.test/me.png"},
		})
		replacement := upload(models.FileMainImage, "new.png", "png")

		pub, err := h.publisher.Publish(ctx, sub, nil, &replacement)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.test/main.png", pub.Story.Image)
		assert.Equal(t, "https://cdn.test/me.png", pub.Story.AuthorImage)
		assert.Empty(t, pub.Uploaded)
		assert.Zero(t, h.files.count())
	})

	t.Run("replacement used when the submission has none", func(t *testing.T) {
		h := newHarness()
		sub := pendingSubmission(models.CategoryVideo, "Talk")
		sub.VideoURL = "https://video.test/1"
		replacement := upload(models.FileMainImage, "new.png", "png")

		pub, err := h.publisher.Publish(ctx, sub, nil, &replacement)
		require.NoError(t, err)
		require.Len(t, pub.Uploaded, 1)
		assert.Equal(t, pub.Uploaded[0].URL, pub.Story.Image)
		assert.Equal(t, 1, h.files.count())

		h.publisher.Retract(ctx, pub)
		assert.Zero(t, h.files.count())
		_, err = h.repos.Stories.GetByID(ctx, pub.Story.ID)
		assert.Error(t, err)
	})
}

func TestPublishSlugsStayUniqueUnderConcurrency(t *testing.T) {
	h := newHarness()
	const n = 5

	slugs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			pub, err := h.publisher.Publish(context.Background(), pendingSubmission(models.CategoryBlog, "Our Green Future"), nil, nil)
			if assert.NoError(t, err) {
				slugs[i] = pub.Story.Slug
			}
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []string{
		"our-green-future",
		"our-green-future-1",
		"our-green-future-2",
		"our-green-future-3",
		"our-green-future-4",
	}, slugs)
}

func TestRecordApproval(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sub := pendingSubmission(models.CategoryBlog, "Ledger")

	for i := 0; i < 2; i++ {
		pub, err := h.publisher.Publish(ctx, sub, nil, nil)
		require.NoError(t, err)
		h.publisher.RecordApproval(ctx, sub, pub.Story)
	}

	entry, err := h.repos.Submitters.GetByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.ApprovedCount)
	assert.Len(t, entry.StoryIDs, 2)
	assert.Equal(t, "Ana Lima", entry.Name)
}

func TestRecordApprovalFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	p := NewPublisher(h.repos.Stories, failingLedger{}, h.files, logger.Discard())
	sub := pendingSubmission(models.CategoryBlog, "Ledger down")

	pub, err := p.Publish(context.Background(), sub, nil, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { p.RecordApproval(context.Background(), sub, pub.Story) })
}
