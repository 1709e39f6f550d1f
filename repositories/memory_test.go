package repositories

import (
	"context"
	"testing"
	"time"

	"site-cms/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/datatypes"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
	repos Set
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	s.repos = s.store.Set()
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *MemoryStoreSuite) createLink(max int) *models.SubmissionLink {
	link := &models.SubmissionLink{
		ID:                uuid.New(),
		Title:             "Partner stories",
		Token:             uuid.NewString(),
		Password:          "0420",
		AllowedCategories: datatypes.JSONSlice[models.Category]{models.CategoryBlog},
		IsActive:          true,
		ExpiresAt:         s.now.Add(24 * time.Hour),
		MaxSubmissions:    max,
	}
	s.Require().NoError(s.repos.Links.Create(s.ctx, link))
	return link
}

func (s *MemoryStoreSuite) submission(link *models.SubmissionLink) *models.PendingSubmission {
	return &models.PendingSubmission{
		ID:          uuid.New(),
		LinkID:      &link.ID,
		Title:       "Hello",
		Category:    models.CategoryBlog,
		Status:      models.StatusPending,
		SubmittedAt: s.now,
	}
}

func (s *MemoryStoreSuite) TestCreateReservedStopsAtLimit() {
	link := s.createLink(1)

	s.Require().NoError(s.repos.Submissions.CreateReserved(s.ctx, s.submission(link), s.now))
	err := s.repos.Submissions.CreateReserved(s.ctx, s.submission(link), s.now)
	s.ErrorIs(err, ErrLinkUnavailable)

	stored, err := s.repos.Links.GetByID(s.ctx, link.ID)
	s.Require().NoError(err)
	s.Equal(1, stored.CurrentSubmissions)

	subs, err := s.repos.Submissions.ListByLink(s.ctx, link.ID)
	s.Require().NoError(err)
	s.Len(subs, 1)
}

func (s *MemoryStoreSuite) TestCreateReservedRefusesExpiredAndInactive() {
	link := s.createLink(5)
	err := s.repos.Submissions.CreateReserved(s.ctx, s.submission(link), s.now.Add(48*time.Hour))
	s.ErrorIs(err, ErrLinkUnavailable)

	_, err = s.repos.Links.Toggle(s.ctx, link.ID)
	s.Require().NoError(err)
	err = s.repos.Submissions.CreateReserved(s.ctx, s.submission(link), s.now)
	s.ErrorIs(err, ErrLinkUnavailable)
}

func (s *MemoryStoreSuite) TestTransitionAppendsStepAndDetectsStaleState() {
	link := s.createLink(5)
	sub := s.submission(link)
	s.Require().NoError(s.repos.Submissions.CreateReserved(s.ctx, sub, s.now))

	change := models.SubmissionTransition{
		Action:   models.ActionReject,
		To:       models.StatusRejected,
		Reviewer: models.Reviewer{ID: uuid.New(), Name: "ed"},
		Notes:    "off topic",
		At:       s.now,
	}
	s.Require().NoError(s.repos.Submissions.Transition(s.ctx, sub.ID, models.SourceStatuses(models.ActionReject), change))

	err := s.repos.Submissions.Transition(s.ctx, sub.ID, models.SourceStatuses(models.ActionReject), change)
	s.ErrorIs(err, ErrStaleState)

	got, err := s.repos.Submissions.GetByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, got.Status)
	s.Equal("ed", got.ReviewerName)
	s.Require().Len(got.ApprovalSteps, 1)
	s.Equal(models.ActionReject, got.ApprovalSteps[0].Action)
}

func (s *MemoryStoreSuite) TestDeleteReleasesSlotEvenForDeletedLink() {
	link := s.createLink(2)
	sub := s.submission(link)
	s.Require().NoError(s.repos.Submissions.CreateReserved(s.ctx, sub, s.now))
	s.Require().NoError(s.repos.Links.Delete(s.ctx, link.ID))

	s.Require().NoError(s.repos.Submissions.Delete(s.ctx, sub.ID))
	s.Equal(0, s.store.deleted[link.ID].CurrentSubmissions)

	_, err := s.repos.Submissions.GetByID(s.ctx, sub.ID)
	s.ErrorIs(err, ErrNotFound)
	s.ErrorIs(s.repos.Submissions.Delete(s.ctx, sub.ID), ErrNotFound)
}

func (s *MemoryStoreSuite) TestStorySlugIsUnique() {
	first := &models.Story{ID: uuid.New(), Slug: "our-green-future", Title: "Our Green Future"}
	s.Require().NoError(s.repos.Stories.Create(s.ctx, first))

	second := &models.Story{ID: uuid.New(), Slug: "our-green-future", Title: "Our Green Future"}
	s.ErrorIs(s.repos.Stories.Create(s.ctx, second), ErrDuplicateSlug)

	s.Require().NoError(s.repos.Stories.Delete(s.ctx, first.ID))
	s.NoError(s.repos.Stories.Create(s.ctx, second))
}

func (s *MemoryStoreSuite) TestApprovedSubmitterLedger() {
	a, b := uuid.New(), uuid.New()
	s.Require().NoError(s.repos.Submitters.Record(s.ctx, "ana@example.com", "Ana", a, s.now))
	s.Require().NoError(s.repos.Submitters.Record(s.ctx, "ana@example.com", "Ana", b, s.now.Add(time.Hour)))

	entry, err := s.repos.Submitters.GetByEmail(s.ctx, "ana@example.com")
	s.Require().NoError(err)
	s.Equal(2, entry.ApprovedCount)
	s.Equal([]uuid.UUID{a, b}, []uuid.UUID(entry.StoryIDs))
	s.Equal(s.now, entry.FirstApprovedAt)
	s.Equal(s.now.Add(time.Hour), entry.LastApprovedAt)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func TestDuplicateLinkToken(t *testing.T) {
	repos := NewMemoryStore().Set()
	ctx := context.Background()
	link := &models.SubmissionLink{ID: uuid.New(), Token: "abc"}
	require.NoError(t, repos.Links.Create(ctx, link))

	dup := &models.SubmissionLink{ID: uuid.New(), Token: "abc"}
	assert.ErrorIs(t, repos.Links.Create(ctx, dup), ErrDuplicateToken)
}
