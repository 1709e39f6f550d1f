package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const EstimatedReviewTime = "2-3 business days"

// FileRole names the upload field a stored file came from.
type FileRole string

const (
	FileMainImage    FileRole = "image"
	FileAuthorImage  FileRole = "authorImage"
	FileResourceFile FileRole = "file"
)

// FileRef describes one stored upload.
type FileRef struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Path         string `json:"path"`
	MimeType     string `json:"mime_type"`
	Size         int64  `json:"size"`
	URL          string `json:"url"`
}

// SubmissionFiles holds one optional file per upload role.
type SubmissionFiles struct {
	MainImage    *FileRef `json:"main_image,omitempty"`
	AuthorImage  *FileRef `json:"author_image,omitempty"`
	ResourceFile *FileRef `json:"resource_file,omitempty"`
}

func (f *SubmissionFiles) Set(role FileRole, ref *FileRef) {
	switch role {
	case FileMainImage:
		f.MainImage = ref
	case FileAuthorImage:
		f.AuthorImage = ref
	case FileResourceFile:
		f.ResourceFile = ref
	}
}

func (f SubmissionFiles) All() []FileRef {
	var out []FileRef
	for _, ref := range []*FileRef{f.MainImage, f.AuthorImage, f.ResourceFile} {
		if ref != nil {
			out = append(out, *ref)
		}
	}
	return out
}

type PendingSubmission struct {
	ID                    uuid.UUID                           `json:"id" gorm:"type:uuid;primaryKey"`
	LinkID                *uuid.UUID                          `json:"link_id" gorm:"type:uuid;index"`
	Title                 string                              `json:"title" gorm:"not null"`
	Description           string                              `json:"description" gorm:"type:text"`
	Content               string                              `json:"content" gorm:"type:text"`
	Category              Category                            `json:"category" gorm:"not null;index"`
	SubmitterName         string                              `json:"submitter_name" gorm:"not null"`
	SubmitterEmail        string                              `json:"submitter_email" gorm:"not null;index"`
	SubmitterOrganization string                              `json:"submitter_organization"`
	Author                string                              `json:"author,omitempty"`
	ReadTime              string                              `json:"read_time,omitempty"`
	VideoURL              string                              `json:"video_url,omitempty"`
	Duration              string                              `json:"duration,omitempty"`
	Speakers              datatypes.JSONSlice[string]         `json:"speakers,omitempty" gorm:"type:jsonb"`
	ResourceType          string                              `json:"resource_type,omitempty"`
	PageCount             int                                 `json:"page_count,omitempty"`
	Includes              datatypes.JSONSlice[string]         `json:"includes,omitempty" gorm:"type:jsonb"`
	Files                 datatypes.JSONType[SubmissionFiles] `json:"files" gorm:"type:jsonb"`
	Attachments           datatypes.JSONSlice[FileRef]        `json:"attachments,omitempty" gorm:"type:jsonb"`
	Status                SubmissionStatus                    `json:"status" gorm:"not null;default:'pending';index"`
	RevisionDetails       string                              `json:"revision_details,omitempty" gorm:"type:text"`
	ReviewedBy            *uuid.UUID                          `json:"reviewed_by,omitempty" gorm:"type:uuid"`
	ReviewerName          string                              `json:"reviewer_name,omitempty"`
	ReviewedAt            *time.Time                          `json:"reviewed_at,omitempty"`
	ReviewNotes           string                              `json:"review_notes,omitempty" gorm:"type:text"`
	FinalStoryID          *uuid.UUID                          `json:"final_story_id,omitempty" gorm:"type:uuid"`
	SubmittedIP           string                              `json:"submitted_ip"`
	SubmittedUserAgent    string                              `json:"submitted_user_agent"`
	SubmittedAt           time.Time                           `json:"submitted_at" gorm:"index"`
	ApprovalSteps         []ApprovalStep                      `json:"approval_steps,omitempty" gorm:"foreignKey:SubmissionID"`
	CreatedAt             time.Time                           `json:"created_at"`
	UpdatedAt             time.Time                           `json:"updated_at"`
}

func (PendingSubmission) TableName() string { return "pending_submissions" }

// TrackingReference is the short identifier handed to the submitter.
func (p *PendingSubmission) TrackingReference() string {
	return TrackingReference(p.ID)
}

func TrackingReference(id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return strings.ToUpper(hex[len(hex)-8:])
}

// StoredFiles lists every file the submission references, including the
// legacy flat attachment list.
func (p *PendingSubmission) StoredFiles() []FileRef {
	files := p.Files.Data().All()
	return append(files, p.Attachments...)
}

// ApprovalStep is one append-only review audit entry.
type ApprovalStep struct {
	ID           uint         `json:"id" gorm:"primarykey"`
	SubmissionID uuid.UUID    `json:"submission_id" gorm:"type:uuid;index;not null"`
	ReviewerID   uuid.UUID    `json:"reviewer_id" gorm:"type:uuid"`
	ReviewerName string       `json:"reviewer_name"`
	Action       ReviewAction `json:"action" gorm:"not null"`
	Notes        string       `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (ApprovalStep) TableName() string { return "approval_steps" }

// SubmissionTransition is the change a review action writes onto a
// submission together with its audit step.
type SubmissionTransition struct {
	Action          ReviewAction
	To              SubmissionStatus
	Reviewer        Reviewer
	Notes           string
	RevisionDetails string
	FinalStoryID    *uuid.UUID
	At              time.Time
}

// Step builds the audit entry recorded for the transition.
func (t SubmissionTransition) Step(submissionID uuid.UUID) ApprovalStep {
	notes := t.Notes
	if t.Action == ActionRequestRevision && t.RevisionDetails != "" {
		notes = strings.TrimSpace(t.RevisionDetails + "\n" + t.Notes)
	}
	return ApprovalStep{
		SubmissionID: submissionID,
		ReviewerID:   t.Reviewer.ID,
		ReviewerName: t.Reviewer.Name,
		Action:       t.Action,
		Notes:        notes,
		CreatedAt:    t.At,
	}
}
