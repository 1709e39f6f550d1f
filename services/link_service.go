package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"site-cms/models"
	"site-cms/notify"
	"site-cms/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const (
	tokenBytes        = 24
	tokenMintAttempts = 3
)

type LinkService interface {
	CreateLink(ctx context.Context, req models.CreateLinkRequest, issuer models.Reviewer) (*models.SubmissionLink, error)
	Toggle(ctx context.Context, id uuid.UUID) (*models.SubmissionLink, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ValidateAccess(ctx context.Context, token, password string, client models.ClientInfo) (*models.AccessGrant, error)
	// Admit runs the access gate and returns the admitted link. Every attempt
	// against an existing link is written to its usage log.
	Admit(ctx context.Context, token, password string, client models.ClientInfo) (*models.SubmissionLink, error)
	List(ctx context.Context, params models.LinkListParams) ([]models.SubmissionLink, int64, error)
	Detail(ctx context.Context, id uuid.UUID) (*models.LinkDetail, error)
}

type linkService struct {
	linkRepo       repositories.SubmissionLinkRepository
	submissionRepo repositories.PendingSubmissionRepository
	notifier       notify.Notifier
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewLinkService(linkRepo repositories.SubmissionLinkRepository, submissionRepo repositories.PendingSubmissionRepository, notifier notify.Notifier, log logrus.FieldLogger) LinkService {
	return &linkService{
		linkRepo:       linkRepo,
		submissionRepo: submissionRepo,
		notifier:       notifier,
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *linkService) CreateLink(ctx context.Context, req models.CreateLinkRequest, issuer models.Reviewer) (*models.SubmissionLink, error) {
	categories, err := validateLinkRequest(&req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	link := &models.SubmissionLink{
		ID:                uuid.New(),
		Title:             strings.TrimSpace(req.Title),
		Description:       strings.TrimSpace(req.Description),
		AllowedCategories: datatypes.JSONSlice[models.Category](categories),
		IsActive:          true,
		ExpiresAt:         now.AddDate(0, 0, req.ExpiresInDays),
		MaxSubmissions:    req.MaxSubmissions,
		CreatedBy:         issuer.ID,
	}

	for attempt := 0; ; attempt++ {
		if link.Token, err = newToken(); err != nil {
			return nil, models.NewInternalError("could not mint link token", err)
		}
		if link.Password, err = newPassword(); err != nil {
			return nil, models.NewInternalError("could not mint link password", err)
		}

		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrDuplicateToken) || attempt+1 == tokenMintAttempts {
			return nil, models.NewInternalError("could not save submission link", err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"link_id":    link.ID,
		"created_by": issuer.ID,
	}).Info("Submission link created")
	s.notifier.Publish(notify.ChannelAdmin, notify.EventLinkCreated, link)
	return link, nil
}

func validateLinkRequest(req *models.CreateLinkRequest) ([]models.Category, error) {
	fields := map[string]string{}
	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = "title is required"
	}

	var categories []models.Category
	seen := map[models.Category]bool{}
	for _, c := range req.AllowedCategories {
		if !c.Valid() {
			fields["allowed_categories"] = fmt.Sprintf("unknown category %q", c)
			continue
		}
		if !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	if len(req.AllowedCategories) == 0 {
		fields["allowed_categories"] = "at least one category is required"
	}

	if req.MaxSubmissions == 0 {
		req.MaxSubmissions = models.DefaultMaxSubmissions
	}
	if req.MaxSubmissions < models.MinMaxSubmissions || req.MaxSubmissions > models.MaxMaxSubmissions {
		fields["max_submissions"] = fmt.Sprintf("must be between %d and %d", models.MinMaxSubmissions, models.MaxMaxSubmissions)
	}
	if req.ExpiresInDays == 0 {
		req.ExpiresInDays = models.DefaultExpiresInDays
	}
	if req.ExpiresInDays < 0 {
		fields["expires_in_days"] = "must be positive"
	}

	if len(fields) > 0 {
		return nil, models.NewValidationError("invalid submission link", fields)
	}
	return categories, nil
}

// newToken returns a hex encoded random token of tokenBytes bytes.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// newPassword returns a random 4-digit numeric password, leading zeros kept.
func newPassword() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

func (s *linkService) Toggle(ctx context.Context, id uuid.UUID) (*models.SubmissionLink, error) {
	link, err := s.linkRepo.Toggle(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewNotFoundError("submission link")
		}
		return nil, models.NewInternalError("could not toggle submission link", err)
	}
	s.notifier.Publish(notify.ChannelAdmin, notify.EventLinkUpdated, link)
	return link, nil
}

func (s *linkService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.linkRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.NewNotFoundError("submission link")
		}
		return models.NewInternalError("could not delete submission link", err)
	}
	s.log.WithField("link_id", id).Info("Submission link deleted")
	s.notifier.Publish(notify.ChannelAdmin, notify.EventLinkDeleted, map[string]uuid.UUID{"id": id})
	return nil
}

func (s *linkService) ValidateAccess(ctx context.Context, token, password string, client models.ClientInfo) (*models.AccessGrant, error) {
	link, err := s.Admit(ctx, token, password, client)
	if err != nil {
		return nil, err
	}
	return &models.AccessGrant{
		Title:                link.Title,
		Description:          link.Description,
		AllowedCategories:    link.AllowedCategories,
		RemainingSubmissions: link.Remaining(),
		ExpiresAt:            link.ExpiresAt,
	}, nil
}

func (s *linkService) Admit(ctx context.Context, token, password string, client models.ClientInfo) (*models.SubmissionLink, error) {
	link, err := s.linkRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewLinkError(models.LinkNotFound)
		}
		return nil, models.NewInternalError("could not load submission link", err)
	}

	now := s.now()
	reason := link.AccessFailure(now)
	if reason == "" && subtle.ConstantTimeCompare([]byte(password), []byte(link.Password)) != 1 {
		reason = models.LinkBadPassword
	}

	usage := &models.LinkUsage{
		LinkID:      link.ID,
		IP:          client.IP,
		UserAgent:   client.UserAgent,
		Success:     reason == "",
		AttemptedAt: now,
	}
	if err := s.linkRepo.AppendUsage(ctx, usage); err != nil {
		s.log.WithError(err).WithField("link_id", link.ID).Error("Failed to append link usage")
	}

	if reason != "" {
		s.log.WithFields(logrus.Fields{
			"link_id": link.ID,
			"reason":  reason,
			"ip":      client.IP,
		}).Info("Submission link access refused")
		return nil, models.NewLinkError(reason)
	}
	return link, nil
}

func (s *linkService) List(ctx context.Context, params models.LinkListParams) ([]models.SubmissionLink, int64, error) {
	params.Page, params.Limit = models.Normalize(params.Page, params.Limit)
	links, total, err := s.linkRepo.List(ctx, params)
	if err != nil {
		return nil, 0, models.NewInternalError("could not list submission links", err)
	}
	return links, total, nil
}

func (s *linkService) Detail(ctx context.Context, id uuid.UUID) (*models.LinkDetail, error) {
	link, err := s.linkRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, models.NewNotFoundError("submission link")
		}
		return nil, models.NewInternalError("could not load submission link", err)
	}

	usage, err := s.linkRepo.UsageLog(ctx, id)
	if err != nil {
		return nil, models.NewInternalError("could not load link usage", err)
	}
	submissions, err := s.submissionRepo.ListByLink(ctx, id)
	if err != nil {
		return nil, models.NewInternalError("could not load link submissions", err)
	}
	return &models.LinkDetail{Link: *link, UsageLog: usage, Submissions: submissions}, nil
}
