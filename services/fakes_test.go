package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"site-cms/logger"
	"site-cms/models"
	"site-cms/repositories"
	"site-cms/storage"

	"github.com/google/uuid"
)

var errDiskFull = errors.New("disk full")

// fileStore keeps uploads in memory and can be told to fail the n-th save.
type fileStore struct {
	mu      sync.Mutex
	files   map[string][]byte
	saves   int
	failAt  int
	deleted []string
}

func newFileStore() *fileStore {
	return &fileStore{files: map[string][]byte{}}
}

func (f *fileStore) Save(_ context.Context, folder string, up storage.Upload) (*models.FileRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.failAt > 0 && f.saves == f.failAt {
		return nil, errDiskFull
	}
	data, err := io.ReadAll(up.Reader)
	if err != nil {
		return nil, err
	}
	name := string(up.Field) + "-" + uuid.NewString()
	path := "stories/" + folder + "/" + name
	f.files[path] = data
	return &models.FileRef{
		Filename:     name,
		OriginalName: up.OriginalName,
		Path:         path,
		MimeType:     up.ContentType,
		Size:         int64(len(data)),
		URL:          "https://cdn.test/" + path,
	}, nil
}

func (f *fileStore) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fileStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type publishedEvent struct {
	Channel string
	Event   string
	Payload any
}

type notifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *notifier) Publish(channel, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{channel, event, payload})
}

func (n *notifier) names(channel string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, e := range n.events {
		if e.Channel == channel {
			out = append(out, e.Event)
		}
	}
	return out
}

type mailer struct {
	mu   sync.Mutex
	sent []models.SubmissionStatus
}

func (m *mailer) SendStatus(_ context.Context, sub *models.PendingSubmission, _ *models.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sub.Status)
	return nil
}

func (m *mailer) statuses() []models.SubmissionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SubmissionStatus(nil), m.sent...)
}

// failingLedger simulates a broken approved submitters table.
type failingLedger struct{}

func (failingLedger) Record(context.Context, string, string, uuid.UUID, time.Time) error {
	return errors.New("ledger unavailable")
}

func (failingLedger) GetByEmail(context.Context, string) (*models.ApprovedSubmitter, error) {
	return nil, repositories.ErrNotFound
}

// harness wires every service over a fresh memory store.
type harness struct {
	store    *repositories.MemoryStore
	repos    repositories.Set
	files    *fileStore
	notifier *notifier
	mailer   *mailer
	now      time.Time

	links     *linkService
	intake    *intakeService
	publisher *publisher
	review    *reviewService
}

func newHarness() *harness {
	h := &harness{
		store:    repositories.NewMemoryStore(),
		files:    newFileStore(),
		notifier: &notifier{},
		mailer:   &mailer{},
		now:      time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	h.repos = h.store.Set()
	log := logger.Discard()
	clock := func() time.Time { return h.now }

	h.links = NewLinkService(h.repos.Links, h.repos.Submissions, h.notifier, log).(*linkService)
	h.links.now = clock
	h.intake = NewIntakeService(h.links, h.repos.Links, h.repos.Submissions, h.files, h.notifier, log).(*intakeService)
	h.intake.now = clock
	h.publisher = NewPublisher(h.repos.Stories, h.repos.Submitters, h.files, log).(*publisher)
	h.publisher.now = clock
	h.review = NewReviewService(h.repos.Submissions, h.publisher, h.files, h.notifier, h.mailer, log).(*reviewService)
	h.review.now = clock
	return h
}

var (
	editor = models.Reviewer{ID: uuid.New(), Name: "editor", Role: models.RoleEditor}
	client = models.ClientInfo{IP: "203.0.113.7", UserAgent: "test-agent"}
)

func (h *harness) issueLink(max int, categories ...models.Category) *models.SubmissionLink {
	if len(categories) == 0 {
		categories = []models.Category{models.CategoryBlog, models.CategoryVideo, models.CategoryResources}
	}
	link, err := h.links.CreateLink(context.Background(), models.CreateLinkRequest{
		Title:             "Partner stories",
		AllowedCategories: categories,
		MaxSubmissions:    max,
	}, editor)
	if err != nil {
		panic(err)
	}
	return link
}

func blogRequest(password, title string) models.SubmitRequest {
	return models.SubmitRequest{
		Password: password,
		Title:    title,
		Content:  "Body",
		Category: models.CategoryBlog,
		Submitter: models.SubmitterInfo{
			Name:  "Ana Lima",
			Email: "ana@example.com",
		},
	}
}

func (h *harness) submit(link *models.SubmissionLink, req models.SubmitRequest, uploads ...storage.Upload) (*models.SubmitResponse, error) {
	return h.intake.Submit(context.Background(), link.Token, req, uploads, client)
}
