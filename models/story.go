package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultReadTime    = "5 min read"
	DefaultAuthorImage = "/assets/stories/defaults/author.png"
)

var defaultCategoryImages = map[Category]string{
	CategoryBlog:      "/assets/stories/defaults/blog.jpg",
	CategoryVideo:     "/assets/stories/defaults/video.jpg",
	CategoryResources: "/assets/stories/defaults/resources.jpg",
}

// DefaultImage returns the stock image used when a story has none.
func DefaultImage(c Category) string {
	return defaultCategoryImages[c]
}

type Story struct {
	ID                 uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey"`
	Slug               string                      `json:"slug" gorm:"size:64;uniqueIndex;not null"`
	Title              string                      `json:"title" gorm:"not null"`
	Description        string                      `json:"description" gorm:"type:text"`
	Content            string                      `json:"content" gorm:"type:text"`
	Category           Category                    `json:"category" gorm:"not null;index"`
	Image              string                      `json:"image"`
	Author             string                      `json:"author,omitempty"`
	AuthorImage        string                      `json:"author_image,omitempty"`
	ReadTime           string                      `json:"read_time,omitempty"`
	VideoURL           string                      `json:"video_url,omitempty"`
	Duration           string                      `json:"duration,omitempty"`
	Speakers           datatypes.JSONSlice[string] `json:"speakers,omitempty" gorm:"type:jsonb"`
	ResourceType       string                      `json:"resource_type,omitempty"`
	FilePath           string                      `json:"file_path,omitempty"`
	FileType           string                      `json:"file_type,omitempty"`
	FileSize           int64                       `json:"file_size,omitempty"`
	PageCount          int                         `json:"page_count,omitempty"`
	Includes           datatypes.JSONSlice[string] `json:"includes,omitempty" gorm:"type:jsonb"`
	SubmittedBy        string                      `json:"submitted_by,omitempty"`
	SourceSubmissionID *uuid.UUID                  `json:"source_submission_id,omitempty" gorm:"type:uuid"`
	IsPublished        bool                        `json:"is_published" gorm:"default:true"`
	Views              int64                       `json:"views" gorm:"default:0"`
	Likes              int64                       `json:"likes" gorm:"default:0"`
	Shares             int64                       `json:"shares" gorm:"default:0"`
	Downloads          int64                       `json:"downloads" gorm:"default:0"`
	PublishedAt        time.Time                   `json:"published_at"`
	CreatedAt          time.Time                   `json:"created_at"`
	UpdatedAt          time.Time                   `json:"updated_at"`
	DeletedAt          gorm.DeletedAt              `json:"-" gorm:"index"`
}

func (Story) TableName() string { return "stories" }

// ApprovedSubmitter counts the stories published from one submitter email.
type ApprovedSubmitter struct {
	ID              uint                           `json:"id" gorm:"primarykey"`
	Email           string                         `json:"email" gorm:"uniqueIndex;not null"`
	Name            string                         `json:"name"`
	ApprovedCount   int                            `json:"approved_count" gorm:"not null;default:0"`
	StoryIDs        datatypes.JSONSlice[uuid.UUID] `json:"story_ids" gorm:"type:jsonb"`
	FirstApprovedAt time.Time                      `json:"first_approved_at"`
	LastApprovedAt  time.Time                      `json:"last_approved_at"`
}

func (ApprovedSubmitter) TableName() string { return "approved_submitters" }
