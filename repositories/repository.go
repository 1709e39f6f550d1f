package repositories

import (
	"context"
	"errors"
	"time"

	"site-cms/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateSlug   = errors.New("slug already taken")
	ErrDuplicateToken  = errors.New("link token already issued")
	ErrDuplicateEmail  = errors.New("email or username already registered")
	ErrStaleState      = errors.New("submission is no longer in the expected state")
	ErrLinkUnavailable = errors.New("submission link cannot accept submissions")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Count(ctx context.Context) (int64, error)
}

type SubmissionLinkRepository interface {
	Create(ctx context.Context, link *models.SubmissionLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.SubmissionLink, error)
	GetByToken(ctx context.Context, token string) (*models.SubmissionLink, error)
	List(ctx context.Context, params models.LinkListParams) ([]models.SubmissionLink, int64, error)
	Toggle(ctx context.Context, id uuid.UUID) (*models.SubmissionLink, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AppendUsage(ctx context.Context, usage *models.LinkUsage) error
	UsageLog(ctx context.Context, linkID uuid.UUID) ([]models.LinkUsage, error)
}

type PendingSubmissionRepository interface {
	// CreateReserved consumes one slot of the submission's link and inserts
	// the submission as a single atomic step. It returns ErrLinkUnavailable
	// when the link is expired, inactive, deleted or full at now.
	CreateReserved(ctx context.Context, submission *models.PendingSubmission, now time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PendingSubmission, error)
	List(ctx context.Context, params models.SubmissionListParams) ([]models.PendingSubmission, int64, error)
	ListByLink(ctx context.Context, linkID uuid.UUID) ([]models.PendingSubmission, error)
	// Transition applies change only while the submission is still in one
	// of the from statuses, appending exactly one approval step. It returns
	// ErrStaleState when the status moved in between.
	Transition(ctx context.Context, id uuid.UUID, from []models.SubmissionStatus, change models.SubmissionTransition) error
	// Delete removes the submission and its approval steps and releases the
	// slot it held on its link.
	Delete(ctx context.Context, id uuid.UUID) error
}

type StoryRepository interface {
	// Create inserts the story, returning ErrDuplicateSlug when its slug is
	// already used.
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
	GetBySlug(ctx context.Context, slug string) (*models.Story, error)
	List(ctx context.Context, params models.StoryListParams, publishedOnly bool) ([]models.Story, int64, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ApprovedSubmitterRepository interface {
	// Record creates the submitter entry or bumps its counter, appending
	// storyID either way.
	Record(ctx context.Context, email, name string, storyID uuid.UUID, at time.Time) error
	GetByEmail(ctx context.Context, email string) (*models.ApprovedSubmitter, error)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	}
	return err
}

func offset(page, limit int) int {
	return (page - 1) * limit
}

// Set bundles one implementation of every repository.
type Set struct {
	Users       UserRepository
	Links       SubmissionLinkRepository
	Submissions PendingSubmissionRepository
	Stories     StoryRepository
	Submitters  ApprovedSubmitterRepository
}

func NewGormSet(db *gorm.DB) Set {
	return Set{
		Users:       NewUserRepository(db),
		Links:       NewSubmissionLinkRepository(db),
		Submissions: NewPendingSubmissionRepository(db),
		Stories:     NewStoryRepository(db),
		Submitters:  NewApprovedSubmitterRepository(db),
	}
}
