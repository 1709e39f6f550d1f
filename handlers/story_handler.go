package handlers

import (
	"context"

	"site-cms/helper"
	"site-cms/models"
	"site-cms/services"

	"github.com/gin-gonic/gin"
)

type StoryHandler struct {
	storyService services.StoryService
	Helper       *helper.HTTPHelper
}

func NewStoryHandler(storyService services.StoryService, h *helper.HTTPHelper) *StoryHandler {
	return &StoryHandler{storyService: storyService, Helper: h}
}

func (h *StoryHandler) GetPublicStories(c *gin.Context) {
	h.list(c, h.storyService.ListPublic)
}

func (h *StoryHandler) GetStories(c *gin.Context) {
	h.list(c, h.storyService.List)
}

func (h *StoryHandler) list(c *gin.Context, load func(ctx context.Context, params models.StoryListParams) ([]models.Story, int64, error)) {
	var params models.StoryListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.Helper.SendBindError(c, err)
		return
	}

	stories, total, err := load(c.Request.Context(), params)
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	page, limit := models.Normalize(params.Page, params.Limit)
	h.Helper.SendPaginated(c, "Stories loaded", stories, page, limit, total)
}

func (h *StoryHandler) GetPublicStory(c *gin.Context) {
	story, err := h.storyService.GetPublic(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.Helper.SendAppError(c, err)
		return
	}

	h.Helper.SendSuccess(c, "Story loaded", story)
}
