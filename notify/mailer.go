package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"site-cms/models"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// Mailer tells submitters what happened to their submission.
type Mailer interface {
	SendStatus(ctx context.Context, sub *models.PendingSubmission, story *models.Story) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SiteURL is used to link published stories.
	SiteURL string
}

type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (m *SMTPMailer) SendStatus(ctx context.Context, sub *models.PendingSubmission, story *models.Story) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body := StatusMessage(sub, story, m.cfg.SiteURL)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", sub.SubmitterEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send status email: %w", err)
	}
	return nil
}

// LogMailer only logs, used when SMTP is not configured.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) SendStatus(_ context.Context, sub *models.PendingSubmission, _ *models.Story) error {
	m.Log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"status":        sub.Status,
	}).Debug("SMTP not configured, skipping status email")
	return nil
}

// StatusMessage renders the subject and html body for the submission's
// current status. Submitter and reviewer text is escaped before it is placed
// in the body.
func StatusMessage(sub *models.PendingSubmission, story *models.Story, siteURL string) (string, string) {
	ref := sub.TrackingReference()
	var subject, text string
	switch sub.Status {
	case models.StatusApproved:
		subject = fmt.Sprintf("Your submission %q has been published", sub.Title)
		text = "Good news! Your submission was approved and is now live."
		if story != nil {
			url := html.EscapeString(strings.TrimRight(siteURL, "/") + "/stories/" + story.Slug)
			text += fmt.Sprintf(` Read it at <a href="%s">%s</a>.`, url, url)
		}
	case models.StatusRejected:
		subject = fmt.Sprintf("Update on your submission %q", sub.Title)
		text = "Thank you for your submission. Unfortunately we are unable to publish it."
	case models.StatusNeedsRevision:
		subject = fmt.Sprintf("Revision requested for %q", sub.Title)
		text = "Our editors asked for changes before your submission can be published."
		if sub.RevisionDetails != "" {
			text += "<br><br><strong>Requested changes:</strong><br>" + html.EscapeString(sub.RevisionDetails)
		}
	default:
		subject = fmt.Sprintf("We received your submission %q", sub.Title)
		text = "Your submission is waiting for review. Expect an answer within " + models.EstimatedReviewTime + "."
	}
	if sub.ReviewNotes != "" && sub.Status != models.StatusPending {
		text += "<br><br><strong>Reviewer notes:</strong><br>" + html.EscapeString(sub.ReviewNotes)
	}

	body := fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>Reference: %s</p>", html.EscapeString(sub.SubmitterName), text, ref)
	return subject, body
}
