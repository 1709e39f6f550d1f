package handlers

import (
	"encoding/json"
	"strings"

	"site-cms/helper"
	"site-cms/middleware"
	"site-cms/models"
	"site-cms/services"
	"site-cms/storage"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type PendingSubmissionHandler struct {
	intakeService services.IntakeService
	reviewService services.ReviewService
	Helper        *helper.HTTPHelper
}

func NewPendingSubmissionHandler(intakeService services.IntakeService, reviewService services.ReviewService, h *helper.HTTPHelper) *PendingSubmissionHandler {
	return &PendingSubmissionHandler{
		intakeService: intakeService,
		reviewService: reviewService,
		Helper:        h,
	}
}

// Submit accepts a public multipart contribution under a link token.
func (h *PendingSubmissionHandler) Submit(c *gin.Context) {
	var req models.SubmitRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}
	if err := c.ShouldBindWith(&req.Submitter, binding.FormMultipart); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}
	if err := c.ShouldBindWith(&req.Fields, binding.FormMultipart); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}
	req.Fields.Speakers = helper.ParseDelimitedList(c.PostFormArray("speakers"))
	req.Fields.Includes = helper.ParseDelimitedList(c.PostFormArray("includes"))

	uploads, closeUploads, err := formUploads(c, uploadFields...)
	if err != nil {
		h.Helper.SendBadRequest(c, "Invalid upload: "+err.Error(), h.Helper.EmptyJsonMap())
		return
	}
	defer closeUploads()

	response, err := h.intakeService.Submit(c.Request.Context(), linkToken(c), req, uploads, clientInfo(c))
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Submission received", response)
}

func (h *PendingSubmissionHandler) GetSubmissions(c *gin.Context) {
	var params models.SubmissionListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	subs, total, err := h.reviewService.List(c.Request.Context(), params)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	page, limit := models.Normalize(params.Page, params.Limit)
	h.Helper.SendPaginated(c, "Pending submissions loaded", subs, page, limit, total)
}

func (h *PendingSubmissionHandler) GetSubmission(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Pending submission not found", h.Helper.EmptyJsonMap())
		return
	}

	sub, err := h.reviewService.Get(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Pending submission loaded", sub)
}

// Approve takes either a JSON body or a multipart form carrying
// review_notes, a story_overrides JSON document and an optional image.
func (h *PendingSubmissionHandler) Approve(c *gin.Context) {
	reviewer, ok := middleware.ReviewerFrom(c)
	if !ok {
		h.Helper.SendUnauthorizedError(c, "User not found in context", h.Helper.EmptyJsonMap())
		return
	}
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Pending submission not found", h.Helper.EmptyJsonMap())
		return
	}

	var req models.ApproveRequest
	var replacement *storage.Upload
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req.ReviewNotes = c.PostForm("review_notes")
		if raw := strings.TrimSpace(c.PostForm("story_overrides")); raw != "" {
			req.StoryOverrides = &models.StoryOverrides{}
			if err := json.Unmarshal([]byte(raw), req.StoryOverrides); err != nil {
				h.Helper.SendBadRequest(c, "story_overrides must be a JSON object", h.Helper.EmptyJsonMap())
				return
			}
		}

		uploads, closeUploads, err := formUploads(c, models.FileMainImage)
		if err != nil {
			h.Helper.SendBadRequest(c, "Invalid upload: "+err.Error(), h.Helper.EmptyJsonMap())
			return
		}
		defer closeUploads()
		if len(uploads) > 0 {
			replacement = &uploads[0]
		}
	} else if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Helper.SendBindError(c, err)
			return
		}
	}

	sub, story, err := h.reviewService.Approve(c.Request.Context(), id, req, replacement, reviewer)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Submission approved", gin.H{
		"submission": sub,
		"story":      story,
	})
}

func (h *PendingSubmissionHandler) Reject(c *gin.Context) {
	reviewer, ok := middleware.ReviewerFrom(c)
	if !ok {
		h.Helper.SendUnauthorizedError(c, "User not found in context", h.Helper.EmptyJsonMap())
		return
	}
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Pending submission not found", h.Helper.EmptyJsonMap())
		return
	}

	var req models.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	sub, err := h.reviewService.Reject(c.Request.Context(), id, req, reviewer)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Submission rejected", sub)
}

func (h *PendingSubmissionHandler) RequestRevision(c *gin.Context) {
	reviewer, ok := middleware.ReviewerFrom(c)
	if !ok {
		h.Helper.SendUnauthorizedError(c, "User not found in context", h.Helper.EmptyJsonMap())
		return
	}
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Pending submission not found", h.Helper.EmptyJsonMap())
		return
	}

	var req models.RevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	sub, err := h.reviewService.RequestRevision(c.Request.Context(), id, req, reviewer)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Revision requested", sub)
}

func (h *PendingSubmissionHandler) DeleteSubmission(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Pending submission not found", h.Helper.EmptyJsonMap())
		return
	}

	if err := h.reviewService.Delete(c.Request.Context(), id); err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Pending submission deleted", h.Helper.EmptyJsonMap())
}
