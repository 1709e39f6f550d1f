package services

import (
	"context"
	"testing"
	"time"

	"site-cms/models"
	"site-cms/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ReviewServiceSuite struct {
	suite.Suite
	h    *harness
	link *models.SubmissionLink
	ctx  context.Context
}

func TestReviewServiceSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceSuite))
}

func (s *ReviewServiceSuite) SetupTest() {
	s.h = newHarness()
	s.ctx = context.Background()
	s.link = s.h.issueLink(5)
}

func (s *ReviewServiceSuite) submitBlog(title string) uuid.UUID {
	resp, err := s.h.submit(s.link, blogRequest(s.link.Password, title), upload(models.FileMainImage, "cover.png", "png"))
	s.Require().NoError(err)
	return resp.ID
}

func (s *ReviewServiceSuite) TestApprovePublishesStory() {
	id := s.submitBlog("Our Green Future")

	sub, story, err := s.h.review.Approve(s.ctx, id, models.ApproveRequest{ReviewNotes: "lovely"}, nil, editor)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, sub.Status)
	s.Require().NotNil(sub.FinalStoryID)
	s.Equal(story.ID, *sub.FinalStoryID)
	s.Equal(editor.Name, sub.ReviewerName)
	s.Require().Len(sub.ApprovalSteps, 1)
	s.Equal(models.ActionApprove, sub.ApprovalSteps[0].Action)
	s.Equal("lovely", sub.ApprovalSteps[0].Notes)

	s.Equal("our-green-future", story.Slug)
	s.Equal(sub.Files.Data().MainImage.URL, story.Image)

	ledger, err := s.h.repos.Submitters.GetByEmail(s.ctx, "ana@example.com")
	s.Require().NoError(err)
	s.Equal(1, ledger.ApprovedCount)

	s.Contains(s.h.notifier.names("admin"), "submission_updated")
	s.Equal([]string{"story_created"}, s.h.notifier.names("public"))
	s.Eventually(func() bool {
		sent := s.h.mailer.statuses()
		return len(sent) == 1 && sent[0] == models.StatusApproved
	}, time.Second, 10*time.Millisecond)
}

func (s *ReviewServiceSuite) TestRejectRequiresNotes() {
	id := s.submitBlog("Rejected")

	_, err := s.h.review.Reject(s.ctx, id, models.RejectRequest{ReviewNotes: " "}, editor)
	s.Equal(models.KindValidation, models.ErrorKindOf(err))

	sub, err := s.h.review.Reject(s.ctx, id, models.RejectRequest{ReviewNotes: "off topic"}, editor)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, sub.Status)
	s.Equal("off topic", sub.ReviewNotes)
	s.Len(sub.ApprovalSteps, 1)
}

func (s *ReviewServiceSuite) TestRevisionOnlyFromPending() {
	id := s.submitBlog("Needs work")

	_, err := s.h.review.RequestRevision(s.ctx, id, models.RevisionRequest{}, editor)
	s.Equal(models.KindValidation, models.ErrorKindOf(err))

	sub, err := s.h.review.RequestRevision(s.ctx, id, models.RevisionRequest{RevisionDetails: "add sources", ReviewNotes: "close"}, editor)
	s.Require().NoError(err)
	s.Equal(models.StatusNeedsRevision, sub.Status)
	s.Equal("add sources", sub.RevisionDetails)
	s.Require().Len(sub.ApprovalSteps, 1)
	s.Equal("add sources\nclose", sub.ApprovalSteps[0].Notes)

	_, err = s.h.review.RequestRevision(s.ctx, id, models.RevisionRequest{RevisionDetails: "again"}, editor)
	s.Equal(models.KindInvalidStateTransition, models.ErrorKindOf(err))

	sub, _, err = s.h.review.Approve(s.ctx, id, models.ApproveRequest{}, nil, editor)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, sub.Status)
	s.Len(sub.ApprovalSteps, 2)
}

func (s *ReviewServiceSuite) TestTerminalStatesAcceptNothing() {
	approved := s.submitBlog("Approved")
	_, _, err := s.h.review.Approve(s.ctx, approved, models.ApproveRequest{}, nil, editor)
	s.Require().NoError(err)

	rejected := s.submitBlog("Rejected")
	_, err = s.h.review.Reject(s.ctx, rejected, models.RejectRequest{ReviewNotes: "no"}, editor)
	s.Require().NoError(err)

	for _, id := range []uuid.UUID{approved, rejected} {
		_, _, err = s.h.review.Approve(s.ctx, id, models.ApproveRequest{}, nil, editor)
		s.Equal(models.KindInvalidStateTransition, models.ErrorKindOf(err))
		_, err = s.h.review.Reject(s.ctx, id, models.RejectRequest{ReviewNotes: "x"}, editor)
		s.Equal(models.KindInvalidStateTransition, models.ErrorKindOf(err))
		_, err = s.h.review.RequestRevision(s.ctx, id, models.RevisionRequest{RevisionDetails: "x"}, editor)
		s.Equal(models.KindInvalidStateTransition, models.ErrorKindOf(err))

		sub, err := s.h.review.Get(s.ctx, id)
		s.Require().NoError(err)
		s.Len(sub.ApprovalSteps, 1)
	}

	stories, total, err := s.h.repos.Stories.List(s.ctx, models.StoryListParams{Page: 1, Limit: 10}, true)
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Len(stories, 1)
}

func (s *ReviewServiceSuite) TestPublishFailureLeavesSubmissionPending() {
	req := blogRequest(s.link.Password, "Talk")
	req.Category = models.CategoryVideo
	req.Fields.VideoURL = "https://video.test/1"
	resp, err := s.h.submit(s.link, req)
	s.Require().NoError(err)

	blank := ""
	_, _, err = s.h.review.Approve(s.ctx, resp.ID, models.ApproveRequest{
		StoryOverrides: &models.StoryOverrides{VideoURL: &blank},
	}, nil, editor)
	s.Equal(models.KindPublish, models.ErrorKindOf(err))

	sub, err := s.h.review.Get(s.ctx, resp.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, sub.Status)
	s.Nil(sub.FinalStoryID)
	s.Empty(sub.ApprovalSteps)

	_, total, err := s.h.repos.Stories.List(s.ctx, models.StoryListParams{Page: 1, Limit: 10}, false)
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *ReviewServiceSuite) TestApproveLosingARaceRetractsStory() {
	resp, err := s.h.submit(s.link, blogRequest(s.link.Password, "Contested"))
	s.Require().NoError(err)
	id := resp.ID
	replacement := upload(models.FileMainImage, "new.png", "png")

	// A second reviewer rejects between publish and commit.
	s.h.review.publisher = publishThen(s.h.publisher, func() {
		_, err := s.h.review.Reject(s.ctx, id, models.RejectRequest{ReviewNotes: "first"}, editor)
		s.Require().NoError(err)
	})

	_, _, err = s.h.review.Approve(s.ctx, id, models.ApproveRequest{}, &replacement, editor)
	s.Equal(models.KindInvalidStateTransition, models.ErrorKindOf(err))

	_, total, err := s.h.repos.Stories.List(s.ctx, models.StoryListParams{Page: 1, Limit: 10}, false)
	s.Require().NoError(err)
	s.Zero(total)
	s.Zero(s.h.files.count())
	s.Len(s.h.files.deleted, 1)

	sub, err := s.h.review.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, sub.Status)
	s.Len(sub.ApprovalSteps, 1)
}

type publishHook struct {
	Publisher
	after func()
}

func (p publishHook) Publish(ctx context.Context, sub *models.PendingSubmission, o *models.StoryOverrides, replacement *storage.Upload) (*Publication, error) {
	pub, err := p.Publisher.Publish(ctx, sub, o, replacement)
	if err == nil {
		p.after()
	}
	return pub, err
}

func publishThen(p Publisher, after func()) Publisher {
	return publishHook{Publisher: p, after: after}
}

func (s *ReviewServiceSuite) TestDeleteReleasesSlotAndFiles() {
	id := s.submitBlog("Delete me")
	s.Equal(1, s.h.files.count())

	_, err := s.h.review.Reject(s.ctx, id, models.RejectRequest{ReviewNotes: "no"}, editor)
	s.Require().NoError(err)

	s.Require().NoError(s.h.review.Delete(s.ctx, id))
	s.Zero(s.h.files.count())

	link, err := s.h.repos.Links.GetByID(s.ctx, s.link.ID)
	s.Require().NoError(err)
	s.Zero(link.CurrentSubmissions)

	_, err = s.h.review.Get(s.ctx, id)
	s.Equal(models.KindNotFound, models.ErrorKindOf(err))
	s.Contains(s.h.notifier.names("admin"), "submission_deleted")

	s.Equal(models.KindNotFound, models.ErrorKindOf(s.h.review.Delete(s.ctx, id)))
}

func (s *ReviewServiceSuite) TestListValidatesFilters() {
	s.submitBlog("One")

	_, _, err := s.h.review.List(s.ctx, models.SubmissionListParams{Status: "archived"})
	s.Equal(models.KindValidation, models.ErrorKindOf(err))
	_, _, err = s.h.review.List(s.ctx, models.SubmissionListParams{LinkID: "nope"})
	s.Equal(models.KindValidation, models.ErrorKindOf(err))

	subs, total, err := s.h.review.List(s.ctx, models.SubmissionListParams{Status: "pending", LinkID: s.link.ID.String()})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Len(subs, 1)
}

func TestApproveUnknownSubmission(t *testing.T) {
	h := newHarness()
	_, _, err := h.review.Approve(context.Background(), uuid.New(), models.ApproveRequest{}, nil, editor)
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.ErrorKindOf(err))
}
