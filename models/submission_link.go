package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category string

const (
	CategoryBlog      Category = "Blog"
	CategoryVideo     Category = "Video"
	CategoryResources Category = "Resources"
)

func (c Category) Valid() bool {
	return c == CategoryBlog || c == CategoryVideo || c == CategoryResources
}

const (
	DefaultMaxSubmissions = 10
	MinMaxSubmissions     = 1
	MaxMaxSubmissions     = 100
	DefaultExpiresInDays  = 30
)

type SubmissionLink struct {
	ID                 uuid.UUID                     `json:"id" gorm:"type:uuid;primaryKey"`
	Title              string                        `json:"title" gorm:"not null"`
	Description        string                        `json:"description" gorm:"type:text"`
	Token              string                        `json:"token" gorm:"size:64;uniqueIndex;not null"`
	Password           string                        `json:"password" gorm:"size:4;not null"`
	AllowedCategories  datatypes.JSONSlice[Category] `json:"allowed_categories" gorm:"type:jsonb;not null"`
	IsActive           bool                          `json:"is_active" gorm:"not null;default:true"`
	ExpiresAt          time.Time                     `json:"expires_at" gorm:"not null;index"`
	MaxSubmissions     int                           `json:"max_submissions" gorm:"not null;default:10"`
	CurrentSubmissions int                           `json:"current_submissions" gorm:"not null;default:0"`
	CreatedBy          uuid.UUID                     `json:"created_by" gorm:"type:uuid"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
	DeletedAt          gorm.DeletedAt                `json:"-" gorm:"index"`
}

func (SubmissionLink) TableName() string { return "submission_links" }

func (l *SubmissionLink) Allows(category Category) bool {
	for _, c := range l.AllowedCategories {
		if c == category {
			return true
		}
	}
	return false
}

func (l *SubmissionLink) Remaining() int {
	if r := l.MaxSubmissions - l.CurrentSubmissions; r > 0 {
		return r
	}
	return 0
}

// AccessFailure returns the reason the link refuses intake at now, checking
// expiry, activity and capacity. Password correctness is checked separately
// and only after these pass. A link is expired from ExpiresAt on, matching
// the reservation query.
func (l *SubmissionLink) AccessFailure(now time.Time) LinkReason {
	switch {
	case !now.Before(l.ExpiresAt):
		return LinkExpired
	case !l.IsActive:
		return LinkInactive
	case l.CurrentSubmissions >= l.MaxSubmissions:
		return LinkLimitReached
	}
	return ""
}

// LinkUsage is one append-only access attempt against a link.
type LinkUsage struct {
	ID          uint      `json:"id" gorm:"primarykey"`
	LinkID      uuid.UUID `json:"link_id" gorm:"type:uuid;index;not null"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"user_agent"`
	Success     bool      `json:"success"`
	AttemptedAt time.Time `json:"attempted_at"`
}

func (LinkUsage) TableName() string { return "link_usage_logs" }
