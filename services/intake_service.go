package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"site-cms/helper"
	"site-cms/models"
	"site-cms/notify"
	"site-cms/repositories"
	"site-cms/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

type IntakeService interface {
	// Submit admits the caller through the link gate, stores the uploads and
	// persists a pending submission, consuming one slot of the link.
	Submit(ctx context.Context, token string, req models.SubmitRequest, uploads []storage.Upload, client models.ClientInfo) (*models.SubmitResponse, error)
}

type intakeService struct {
	links          LinkService
	linkRepo       repositories.SubmissionLinkRepository
	submissionRepo repositories.PendingSubmissionRepository
	files          storage.FileStore
	notifier       notify.Notifier
	validate       *validator.Validate
	log            logrus.FieldLogger
	now            func() time.Time
}

func NewIntakeService(links LinkService, linkRepo repositories.SubmissionLinkRepository, submissionRepo repositories.PendingSubmissionRepository, files storage.FileStore, notifier notify.Notifier, log logrus.FieldLogger) IntakeService {
	return &intakeService{
		links:          links,
		linkRepo:       linkRepo,
		submissionRepo: submissionRepo,
		files:          files,
		notifier:       notifier,
		validate:       newFormValidator(),
		log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *intakeService) Submit(ctx context.Context, token string, req models.SubmitRequest, uploads []storage.Upload, client models.ClientInfo) (*models.SubmitResponse, error) {
	link, err := s.links.Admit(ctx, token, req.Password, client)
	if err != nil {
		return nil, err
	}

	trimSubmitRequest(&req)
	if err := s.validateRequest(link, &req); err != nil {
		return nil, err
	}

	files, stored, err := s.storeUploads(ctx, req.Category, uploads)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sub := &models.PendingSubmission{
		ID:                    uuid.New(),
		LinkID:                &link.ID,
		Title:                 req.Title,
		Description:           req.Description,
		Content:               req.Content,
		Category:              req.Category,
		SubmitterName:         req.Submitter.Name,
		SubmitterEmail:        req.Submitter.Email,
		SubmitterOrganization: req.Submitter.Organization,
		Author:                req.Fields.Author,
		ReadTime:              req.Fields.ReadTime,
		VideoURL:              req.Fields.VideoURL,
		Duration:              req.Fields.Duration,
		Speakers:              datatypes.JSONSlice[string](req.Fields.Speakers),
		ResourceType:          req.Fields.ResourceType,
		PageCount:             req.Fields.PageCount,
		Includes:              datatypes.JSONSlice[string](req.Fields.Includes),
		Files:                 datatypes.NewJSONType(files),
		Status:                models.StatusPending,
		SubmittedIP:           client.IP,
		SubmittedUserAgent:    client.UserAgent,
		SubmittedAt:           now,
	}

	if err := s.submissionRepo.CreateReserved(ctx, sub, now); err != nil {
		s.discard(ctx, stored)
		if errors.Is(err, repositories.ErrLinkUnavailable) {
			return nil, models.NewLinkError(s.unavailableReason(ctx, link.ID, now))
		}
		return nil, models.NewInternalError("could not save submission", err)
	}

	s.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"link_id":       link.ID,
		"category":      sub.Category,
		"files":         len(stored),
	}).Info("Pending submission received")
	s.notifier.Publish(notify.ChannelAdmin, notify.EventSubmissionCreated, sub)

	return &models.SubmitResponse{
		ID:                  sub.ID,
		TrackingReference:   sub.TrackingReference(),
		Status:              sub.Status,
		EstimatedReviewTime: models.EstimatedReviewTime,
	}, nil
}

func trimSubmitRequest(req *models.SubmitRequest) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Submitter.Name = strings.TrimSpace(req.Submitter.Name)
	req.Submitter.Email = strings.TrimSpace(req.Submitter.Email)
	req.Submitter.Organization = strings.TrimSpace(req.Submitter.Organization)
	req.Fields.Author = strings.TrimSpace(req.Fields.Author)
	req.Fields.ReadTime = strings.TrimSpace(req.Fields.ReadTime)
	req.Fields.VideoURL = strings.TrimSpace(req.Fields.VideoURL)
	req.Fields.Duration = strings.TrimSpace(req.Fields.Duration)
	req.Fields.ResourceType = strings.TrimSpace(req.Fields.ResourceType)
	req.Fields.PageCountText = strings.TrimSpace(req.Fields.PageCountText)
}

// validateRequest checks the common fields, the link's categories and the
// category specific requirements, filling Blog defaults.
func (s *intakeService) validateRequest(link *models.SubmissionLink, req *models.SubmitRequest) error {
	fields := map[string]string{}

	if raw := req.Fields.PageCountText; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields["page_count"] = "must be a whole number"
		} else {
			req.Fields.PageCount = n
		}
	}

	var verrs validator.ValidationErrors
	if err := s.validate.Struct(req); errors.As(err, &verrs) {
		for _, fe := range verrs {
			fields[fe.Field()] = fieldMessage(fe)
		}
	} else if err != nil {
		return models.NewValidationError(err.Error(), nil)
	}

	if _, bad := fields["category"]; !bad && !link.Allows(req.Category) {
		fields["category"] = fmt.Sprintf("category %s is not accepted by this link", req.Category)
	}

	switch req.Category {
	case models.CategoryVideo:
		if req.Fields.VideoURL == "" {
			fields["video_url"] = "video url is required for Video submissions"
		}
	case models.CategoryResources:
		if req.Fields.ResourceType == "" {
			fields["resource_type"] = "resource type is required for Resources submissions"
		}
	case models.CategoryBlog:
		if req.Fields.Author == "" {
			req.Fields.Author = req.Submitter.Name
		}
		if req.Fields.ReadTime == "" {
			req.Fields.ReadTime = models.DefaultReadTime
		}
	}

	if len(fields) > 0 {
		return models.NewValidationError("invalid submission", fields)
	}
	return nil
}

// newFormValidator reports fields by their form names.
func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return helper.Underscore(fld.Name)
		}
		return name
	})
	return v
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid url"
	case "oneof":
		return "must be one of " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

// storeUploads saves every upload, removing what was already written when
// one of them fails.
func (s *intakeService) storeUploads(ctx context.Context, category models.Category, uploads []storage.Upload) (models.SubmissionFiles, []models.FileRef, error) {
	var files models.SubmissionFiles
	var stored []models.FileRef
	for _, up := range uploads {
		ref, err := s.files.Save(ctx, storage.Folder(up.Field, category), up)
		if err != nil {
			s.discard(ctx, stored)
			if errors.Is(err, storage.ErrTooLarge) {
				return files, nil, models.NewValidationError("upload is too large", map[string]string{string(up.Field): err.Error()})
			}
			return files, nil, models.NewStorageError("could not store "+string(up.Field), err)
		}
		if prev := fileFor(files, up.Field); prev != nil {
			s.discard(ctx, []models.FileRef{*prev})
		}
		files.Set(up.Field, ref)
		stored = append(stored, *ref)
	}
	return files, stored, nil
}

func fileFor(files models.SubmissionFiles, role models.FileRole) *models.FileRef {
	switch role {
	case models.FileMainImage:
		return files.MainImage
	case models.FileAuthorImage:
		return files.AuthorImage
	case models.FileResourceFile:
		return files.ResourceFile
	}
	return nil
}

func (s *intakeService) discard(ctx context.Context, refs []models.FileRef) {
	if err := storage.DeleteAll(ctx, s.files, refs); err != nil {
		s.log.WithError(err).Warn("Failed to clean up uploaded files")
	}
}

// unavailableReason explains a refused reservation by re-reading the link.
func (s *intakeService) unavailableReason(ctx context.Context, linkID uuid.UUID, now time.Time) models.LinkReason {
	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		return models.LinkNotFound
	}
	if reason := link.AccessFailure(now); reason != "" {
		return reason
	}
	return models.LinkLimitReached
}
