package handlers

import (
	"site-cms/helper"
	"site-cms/middleware"
	"site-cms/models"
	"site-cms/services"

	"github.com/gin-gonic/gin"
)

type SubmissionLinkHandler struct {
	linkService services.LinkService
	Helper      *helper.HTTPHelper
}

func NewSubmissionLinkHandler(linkService services.LinkService, h *helper.HTTPHelper) *SubmissionLinkHandler {
	return &SubmissionLinkHandler{linkService: linkService, Helper: h}
}

func (h *SubmissionLinkHandler) CreateLink(c *gin.Context) {
	issuer, ok := middleware.ReviewerFrom(c)
	if !ok {
		h.Helper.SendUnauthorizedError(c, "User not found in context", h.Helper.EmptyJsonMap())
		return
	}

	var req models.CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	link, err := h.linkService.CreateLink(c.Request.Context(), req, issuer)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendCreated(c, "Submission link created", link)
}

func (h *SubmissionLinkHandler) GetLinks(c *gin.Context) {
	var params models.LinkListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	links, total, err := h.linkService.List(c.Request.Context(), params)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	page, limit := models.Normalize(params.Page, params.Limit)
	h.Helper.SendPaginated(c, "Submission links loaded", links, page, limit, total)
}

func (h *SubmissionLinkHandler) GetLink(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Submission link not found", h.Helper.EmptyJsonMap())
		return
	}

	detail, err := h.linkService.Detail(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Submission link loaded", detail)
}

func (h *SubmissionLinkHandler) ToggleLink(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Submission link not found", h.Helper.EmptyJsonMap())
		return
	}

	link, err := h.linkService.Toggle(c.Request.Context(), id)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Submission link updated", link)
}

func (h *SubmissionLinkHandler) DeleteLink(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.Helper.SendNotFoundError(c, "Submission link not found", h.Helper.EmptyJsonMap())
		return
	}

	if err := h.linkService.Delete(c.Request.Context(), id); err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Submission link deleted", h.Helper.EmptyJsonMap())
}

// ValidateLink is the public gate check run before showing the form.
func (h *SubmissionLinkHandler) ValidateLink(c *gin.Context) {
	var req models.ValidateLinkRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Helper.SendBindError(c, err)
			return
		}
	}

	grant, err := h.linkService.ValidateAccess(c.Request.Context(), linkToken(c), req.Password, clientInfo(c))
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Access granted", grant)
}
