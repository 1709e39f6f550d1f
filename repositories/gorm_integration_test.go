//go:build integration

package repositories_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"site-cms/config"
	"site-cms/models"
	"site-cms/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormIntegrationSuite runs the gorm repositories against the database named
// by the DB_* environment. Run with: go test -tags integration ./repositories/
type GormIntegrationSuite struct {
	suite.Suite
	db     *gorm.DB
	links  repositories.SubmissionLinkRepository
	subs   repositories.PendingSubmissionRepository
	story  repositories.StoryRepository
	ledger repositories.ApprovedSubmitterRepository
	ctx    context.Context
}

func TestGormIntegrationSuite(t *testing.T) {
	suite.Run(t, new(GormIntegrationSuite))
}

func (s *GormIntegrationSuite) SetupSuite() {
	cfg, err := config.Load()
	s.Require().NoError(err)

	db, err := config.InitDB(cfg)
	if err != nil {
		s.T().Skipf("postgres not reachable: %v", err)
	}
	s.Require().NoError(config.AutoMigrate(db))

	s.db = db
	s.ctx = context.Background()
	s.links = repositories.NewSubmissionLinkRepository(db)
	s.subs = repositories.NewPendingSubmissionRepository(db)
	s.story = repositories.NewStoryRepository(db)
	s.ledger = repositories.NewApprovedSubmitterRepository(db)
}

func (s *GormIntegrationSuite) SetupTest() {
	s.Require().NoError(s.db.Exec(`TRUNCATE approval_steps, pending_submissions, link_usage_logs,
		submission_links, stories, approved_submitters RESTART IDENTITY CASCADE`).Error)
}

func (s *GormIntegrationSuite) newLink(capacity int, expiresAt time.Time) *models.SubmissionLink {
	link := &models.SubmissionLink{
		ID:                uuid.New(),
		Title:             "Partner stories",
		Token:             uuid.NewString(),
		Password:          "1234",
		AllowedCategories: datatypes.JSONSlice[models.Category]{models.CategoryBlog},
		IsActive:          true,
		ExpiresAt:         expiresAt,
		MaxSubmissions:    capacity,
		CreatedBy:         uuid.New(),
	}
	s.Require().NoError(s.links.Create(s.ctx, link))
	return link
}

func newSubmission(linkID uuid.UUID) *models.PendingSubmission {
	return &models.PendingSubmission{
		ID:             uuid.New(),
		LinkID:         &linkID,
		Title:          "Field notes",
		Category:       models.CategoryBlog,
		SubmitterName:  "Sam Doe",
		SubmitterEmail: "sam@example.com",
		Status:         models.StatusPending,
		SubmittedAt:    time.Now().UTC(),
	}
}

func (s *GormIntegrationSuite) TestConcurrentReservationsStopAtCapacity() {
	const capacity, attempts = 3, 12
	link := s.newLink(capacity, time.Now().Add(time.Hour))

	results := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		i := i
		g.Go(func() error {
			results[i] = s.subs.CreateReserved(s.ctx, newSubmission(link.ID), time.Now())
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	accepted := 0
	for _, err := range results {
		if err == nil {
			accepted++
			continue
		}
		s.ErrorIs(err, repositories.ErrLinkUnavailable)
	}
	s.Equal(capacity, accepted)

	stored, err := s.links.GetByID(s.ctx, link.ID)
	s.Require().NoError(err)
	s.Equal(capacity, stored.CurrentSubmissions)

	subs, err := s.subs.ListByLink(s.ctx, link.ID)
	s.Require().NoError(err)
	s.Len(subs, capacity)
}

func (s *GormIntegrationSuite) TestReservationRefusedAtExpiry() {
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Microsecond)
	link := s.newLink(5, expiresAt)

	err := s.subs.CreateReserved(s.ctx, newSubmission(link.ID), expiresAt)
	s.ErrorIs(err, repositories.ErrLinkUnavailable)

	stored, err := s.links.GetByID(s.ctx, link.ID)
	s.Require().NoError(err)
	s.Equal(0, stored.CurrentSubmissions)
}

func (s *GormIntegrationSuite) TestReservationRefusedOnInactiveLink() {
	link := s.newLink(5, time.Now().Add(time.Hour))
	toggled, err := s.links.Toggle(s.ctx, link.ID)
	s.Require().NoError(err)
	s.False(toggled.IsActive)

	err = s.subs.CreateReserved(s.ctx, newSubmission(link.ID), time.Now())
	s.ErrorIs(err, repositories.ErrLinkUnavailable)

	toggled, err = s.links.Toggle(s.ctx, link.ID)
	s.Require().NoError(err)
	s.True(toggled.IsActive)
	s.NoError(s.subs.CreateReserved(s.ctx, newSubmission(link.ID), time.Now()))
}

func (s *GormIntegrationSuite) TestTransitionGuardsFromState() {
	link := s.newLink(5, time.Now().Add(time.Hour))
	sub := newSubmission(link.ID)
	s.Require().NoError(s.subs.CreateReserved(s.ctx, sub, time.Now()))

	reviewer := models.Reviewer{ID: uuid.New(), Name: "Rita Reviewer", Role: models.RoleAdmin}
	change := models.SubmissionTransition{
		Action:   models.ActionReject,
		To:       models.StatusRejected,
		Reviewer: reviewer,
		Notes:    "Off topic",
		At:       time.Now().UTC(),
	}
	s.Require().NoError(s.subs.Transition(s.ctx, sub.ID, []models.SubmissionStatus{models.StatusPending}, change))

	err := s.subs.Transition(s.ctx, sub.ID, []models.SubmissionStatus{models.StatusPending}, change)
	s.ErrorIs(err, repositories.ErrStaleState)

	stored, err := s.subs.GetByID(s.ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, stored.Status)
	s.Equal("Rita Reviewer", stored.ReviewerName)
	s.Len(stored.ApprovalSteps, 1)
}

func (s *GormIntegrationSuite) TestDeleteReleasesSlotOnDeletedLink() {
	link := s.newLink(2, time.Now().Add(time.Hour))
	sub := newSubmission(link.ID)
	s.Require().NoError(s.subs.CreateReserved(s.ctx, sub, time.Now()))
	s.Require().NoError(s.links.Delete(s.ctx, link.ID))

	s.Require().NoError(s.subs.Delete(s.ctx, sub.ID))

	var stored models.SubmissionLink
	s.Require().NoError(s.db.Unscoped().First(&stored, "id = ?", link.ID).Error)
	s.Equal(0, stored.CurrentSubmissions)

	_, err := s.subs.GetByID(s.ctx, sub.ID)
	s.ErrorIs(err, repositories.ErrNotFound)
	s.ErrorIs(s.subs.Delete(s.ctx, sub.ID), repositories.ErrNotFound)
}

func (s *GormIntegrationSuite) TestDuplicateTokenAndSlug() {
	link := s.newLink(1, time.Now().Add(time.Hour))
	dup := *link
	dup.ID = uuid.New()
	s.ErrorIs(s.links.Create(s.ctx, &dup), repositories.ErrDuplicateToken)

	first := &models.Story{ID: uuid.New(), Slug: "field-notes", Title: "Field notes", Category: models.CategoryBlog}
	s.Require().NoError(s.story.Create(s.ctx, first))
	second := &models.Story{ID: uuid.New(), Slug: "field-notes", Title: "Field notes", Category: models.CategoryBlog}
	err := s.story.Create(s.ctx, second)
	s.True(errors.Is(err, repositories.ErrDuplicateSlug), "got %v", err)
}

func (s *GormIntegrationSuite) TestLedgerAccumulatesApprovals() {
	first, second := uuid.New(), uuid.New()
	at := time.Now().UTC()
	s.Require().NoError(s.ledger.Record(s.ctx, "sam@example.com", "Sam", first, at))
	s.Require().NoError(s.ledger.Record(s.ctx, "sam@example.com", "Sam Doe", second, at.Add(time.Minute)))

	entry, err := s.ledger.GetByEmail(s.ctx, "sam@example.com")
	s.Require().NoError(err)
	s.Equal(2, entry.ApprovedCount)
	s.Equal("Sam Doe", entry.Name)
	s.Equal([]uuid.UUID{first, second}, []uuid.UUID(entry.StoryIDs))
	s.True(entry.LastApprovedAt.After(entry.FirstApprovedAt))
}
