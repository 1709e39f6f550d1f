package models

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Username string   `json:"username" binding:"required,min=3,max=50"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type CreateLinkRequest struct {
	Title             string     `json:"title" binding:"required,max=255"`
	Description       string     `json:"description"`
	AllowedCategories []Category `json:"allowed_categories" binding:"required,min=1,dive,oneof=Blog Video Resources"`
	MaxSubmissions    int        `json:"max_submissions" binding:"omitempty,min=1,max=100"`
	ExpiresInDays     int        `json:"expires_in_days" binding:"omitempty,min=1,max=365"`
}

// ValidateLinkRequest carries no binding rules: an empty password still goes
// through the link gate and is logged as a failed attempt.
type ValidateLinkRequest struct {
	Password string `json:"password"`
}

// AccessGrant is what a contributor learns about a link once admitted.
type AccessGrant struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	AllowedCategories    []Category `json:"allowed_categories"`
	RemainingSubmissions int        `json:"remaining_submissions"`
	ExpiresAt            time.Time  `json:"expires_at"`
}

type LinkDetail struct {
	Link        SubmissionLink      `json:"link"`
	UsageLog    []LinkUsage         `json:"usage_log"`
	Submissions []PendingSubmission `json:"submissions"`
}

// ClientInfo identifies the caller of a public endpoint.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// SubmitterInfo is who sent a contribution.
type SubmitterInfo struct {
	Name         string `form:"submitter_name" json:"submitter_name" validate:"required,max=255"`
	Email        string `form:"submitter_email" json:"submitter_email" validate:"required,email"`
	Organization string `form:"submitter_organization" json:"submitter_organization" validate:"max=255"`
}

// CategoryFields carries the per-category extras of a contribution.
type CategoryFields struct {
	Author       string   `form:"author" json:"author"`
	ReadTime     string   `form:"read_time" json:"read_time"`
	VideoURL     string   `form:"video_url" json:"video_url" validate:"omitempty,url"`
	Duration     string   `form:"duration" json:"duration"`
	Speakers     []string `form:"-" json:"speakers"`
	ResourceType string   `form:"resource_type" json:"resource_type"`
	PageCount    int      `form:"-" json:"page_count" validate:"min=0"`
	// PageCountText is the raw form value, parsed into PageCount once the
	// link gate has passed.
	PageCountText string   `form:"page_count" json:"-"`
	Includes      []string `form:"-" json:"includes"`
}

type SubmitRequest struct {
	Password    string         `form:"password" validate:"required"`
	Title       string         `form:"title" validate:"required,max=255"`
	Description string         `form:"description"`
	Content     string         `form:"content"`
	Category    Category       `form:"category" validate:"required,oneof=Blog Video Resources"`
	Submitter   SubmitterInfo  `form:"-"`
	Fields      CategoryFields `form:"-"`
}

type SubmitResponse struct {
	ID                  uuid.UUID        `json:"id"`
	TrackingReference   string           `json:"tracking_reference"`
	Status              SubmissionStatus `json:"status"`
	EstimatedReviewTime string           `json:"estimated_review_time"`
}

// StoryOverrides lets a reviewer replace submission fields at approval.
type StoryOverrides struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Content      *string  `json:"content"`
	Author       *string  `json:"author"`
	ReadTime     *string  `json:"read_time"`
	VideoURL     *string  `json:"video_url"`
	Duration     *string  `json:"duration"`
	Speakers     []string `json:"speakers"`
	ResourceType *string  `json:"resource_type"`
	PageCount    *int     `json:"page_count"`
	Includes     []string `json:"includes"`
}

type ApproveRequest struct {
	ReviewNotes    string          `json:"review_notes" form:"review_notes"`
	StoryOverrides *StoryOverrides `json:"story_overrides"`
}

type RejectRequest struct {
	ReviewNotes string `json:"review_notes" binding:"required"`
}

type RevisionRequest struct {
	RevisionDetails string `json:"revision_details" binding:"required"`
	ReviewNotes     string `json:"review_notes"`
}

type SubmissionListParams struct {
	Status   string `form:"status"`
	Category string `form:"category"`
	LinkID   string `form:"link_id"`
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=10"`
}

type LinkListParams struct {
	Active *bool `form:"active"`
	Page   int   `form:"page,default=1"`
	Limit  int   `form:"limit,default=10"`
}

type StoryListParams struct {
	Category string `form:"category"`
	Page     int    `form:"page,default=1"`
	Limit    int    `form:"limit,default=10"`
}

// Normalize applies paging defaults and bounds.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
