package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"site-cms/models"
	"site-cms/notify"
	"site-cms/repositories"
	"site-cms/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ReviewService interface {
	List(ctx context.Context, params models.SubmissionListParams) ([]models.PendingSubmission, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PendingSubmission, error)
	Approve(ctx context.Context, id uuid.UUID, req models.ApproveRequest, replacement *storage.Upload, reviewer models.Reviewer) (*models.PendingSubmission, *models.Story, error)
	Reject(ctx context.Context, id uuid.UUID, req models.RejectRequest, reviewer models.Reviewer) (*models.PendingSubmission, error)
	RequestRevision(ctx context.Context, id uuid.UUID, req models.RevisionRequest, reviewer models.Reviewer) (*models.PendingSubmission, error)
	// Delete removes the submission from any state, frees its link slot and
	// removes its files.
	Delete(ctx context.Context, id uuid.UUID) error
}

type reviewService struct {
	submissionRepo repositories.PendingSubmissionRepository
	publisher      Publisher
	files          storage.FileStore
	notifier       notify.Notifier
	mailer         notify.Mailer
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewReviewService(submissionRepo repositories.PendingSubmissionRepository, publisher Publisher, files storage.FileStore, notifier notify.Notifier, mailer notify.Mailer, log logrus.FieldLogger) ReviewService {
	return &reviewService{
		submissionRepo: submissionRepo,
		publisher:      publisher,
		files:          files,
		notifier:       notifier,
		mailer:         mailer,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *reviewService) List(ctx context.Context, params models.SubmissionListParams) ([]models.PendingSubmission, int64, error) {
	if params.Status != "" && !models.SubmissionStatus(params.Status).Valid() {
		return nil, 0, models.NewValidationError("unknown status filter", map[string]string{"status": params.Status})
	}
	if params.Category != "" && !models.Category(params.Category).Valid() {
		return nil, 0, models.NewValidationError("unknown category filter", map[string]string{"category": params.Category})
	}
	if params.LinkID != "" {
		if _, err := uuid.Parse(params.LinkID); err != nil {
			return nil, 0, models.NewValidationError("invalid link id", map[string]string{"link_id": params.LinkID})
		}
	}
	params.Page, params.Limit = models.Normalize(params.Page, params.Limit)

	subs, total, err := s.submissionRepo.List(ctx, params)
	if err != nil {
		return nil, 0, models.NewInternalError("could not list submissions", err)
	}
	return subs, total, nil
}

func (s *reviewService) Get(ctx context.Context, id uuid.UUID) (*models.PendingSubmission, error) {
	sub, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewNotFoundError("pending submission")
		}
		return nil, models.NewInternalError("could not load submission", err)
	}
	return sub, nil
}

func (s *reviewService) Approve(ctx context.Context, id uuid.UUID, req models.ApproveRequest, replacement *storage.Upload, reviewer models.Reviewer) (*models.PendingSubmission, *models.Story, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	next, err := models.NextStatus(sub.Status, models.ActionApprove)
	if err != nil {
		return nil, nil, err
	}

	pub, err := s.publisher.Publish(ctx, sub, req.StoryOverrides, replacement)
	if err != nil {
		return nil, nil, err
	}

	storyID := pub.Story.ID
	change := models.SubmissionTransition{
		Action:       models.ActionApprove,
		To:           next,
		Reviewer:     reviewer,
		Notes:        strings.TrimSpace(req.ReviewNotes),
		FinalStoryID: &storyID,
		At:           s.now(),
	}
	if err := s.transition(ctx, id, change); err != nil {
		s.publisher.Retract(ctx, pub)
		return nil, nil, err
	}

	s.publisher.RecordApproval(ctx, sub, pub.Story)
	updated, err := s.afterTransition(ctx, id, change, pub.Story)
	if err != nil {
		return nil, nil, err
	}
	s.notifier.Publish(notify.ChannelPublic, notify.EventStoryCreated, pub.Story)
	return updated, pub.Story, nil
}

func (s *reviewService) Reject(ctx context.Context, id uuid.UUID, req models.RejectRequest, reviewer models.Reviewer) (*models.PendingSubmission, error) {
	notes := strings.TrimSpace(req.ReviewNotes)
	if notes == "" {
		return nil, models.NewValidationError("review notes are required", map[string]string{"review_notes": "is required"})
	}
	return s.apply(ctx, id, models.SubmissionTransition{
		Action:   models.ActionReject,
		Reviewer: reviewer,
		Notes:    notes,
	})
}

func (s *reviewService) RequestRevision(ctx context.Context, id uuid.UUID, req models.RevisionRequest, reviewer models.Reviewer) (*models.PendingSubmission, error) {
	details := strings.TrimSpace(req.RevisionDetails)
	if details == "" {
		return nil, models.NewValidationError("revision details are required", map[string]string{"revision_details": "is required"})
	}
	return s.apply(ctx, id, models.SubmissionTransition{
		Action:          models.ActionRequestRevision,
		Reviewer:        reviewer,
		Notes:           strings.TrimSpace(req.ReviewNotes),
		RevisionDetails: details,
	})
}

// apply runs a transition that needs no publishing.
func (s *reviewService) apply(ctx context.Context, id uuid.UUID, change models.SubmissionTransition) (*models.PendingSubmission, error) {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if change.To, err = models.NextStatus(sub.Status, change.Action); err != nil {
		return nil, err
	}
	change.At = s.now()

	if err := s.transition(ctx, id, change); err != nil {
		return nil, err
	}
	return s.afterTransition(ctx, id, change, nil)
}

// transition writes change only from the statuses its action allows, so a
// concurrent review that got there first turns into a state error.
func (s *reviewService) transition(ctx context.Context, id uuid.UUID, change models.SubmissionTransition) error {
	err := s.submissionRepo.Transition(ctx, id, models.SourceStatuses(change.Action), change)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrStaleState):
		current, getErr := s.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		return models.NewInvalidStateTransition(current.Status, change.Action)
	case errors.Is(err, repositories.ErrNotFound):
		return models.NewNotFoundError("pending submission")
	}
	s.log.WithError(err).WithFields(logrus.Fields{
		"operation":     change.Action,
		"submission_id": id,
	}).Error("Review transition failed")
	return models.NewInternalError("could not update submission", err)
}

func (s *reviewService) afterTransition(ctx context.Context, id uuid.UUID, change models.SubmissionTransition, story *models.Story) (*models.PendingSubmission, error) {
	s.log.WithFields(logrus.Fields{
		"submission_id": id,
		"action":        change.Action,
		"status":        change.To,
		"reviewer_id":   change.Reviewer.ID,
	}).Info("Submission reviewed")

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Publish(notify.ChannelAdmin, notify.EventSubmissionUpdated, updated)
	go s.sendStatus(context.WithoutCancel(ctx), updated, story)
	return updated, nil
}

func (s *reviewService) sendStatus(ctx context.Context, sub *models.PendingSubmission, story *models.Story) {
	if err := s.mailer.SendStatus(ctx, sub, story); err != nil {
		s.log.WithError(err).WithField("submission_id", sub.ID).Warn("Failed to send status email")
	}
}

func (s *reviewService) Delete(ctx context.Context, id uuid.UUID) error {
	sub, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.submissionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.NewNotFoundError("pending submission")
		}
		return models.NewInternalError("could not delete submission", err)
	}

	if err := storage.DeleteAll(ctx, s.files, sub.StoredFiles()); err != nil {
		s.log.WithError(err).WithField("submission_id", id).Warn("Failed to remove submission files")
	}

	s.log.WithFields(logrus.Fields{
		"submission_id": id,
		"status":        sub.Status,
	}).Info("Pending submission deleted")
	payload := map[string]any{"id": id}
	if sub.LinkID != nil {
		payload["link_id"] = *sub.LinkID
	}
	s.notifier.Publish(notify.ChannelAdmin, notify.EventSubmissionDeleted, payload)
	return nil
}
