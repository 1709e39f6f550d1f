package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"site-cms/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryStore keeps every collection in process memory behind a single
// RWMutex, so multi-record operations are atomic the same way a database
// transaction would make them. It backs `serve --store memory` and tests.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*models.User
	links       map[uuid.UUID]*models.SubmissionLink
	deleted     map[uuid.UUID]*models.SubmissionLink
	usage       []models.LinkUsage
	submissions map[uuid.UUID]*models.PendingSubmission
	steps       map[uuid.UUID][]models.ApprovalStep
	stories     map[uuid.UUID]*models.Story
	slugs       map[string]uuid.UUID
	submitters  map[string]*models.ApprovedSubmitter
	nextSerial  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]*models.User),
		links:       make(map[uuid.UUID]*models.SubmissionLink),
		deleted:     make(map[uuid.UUID]*models.SubmissionLink),
		submissions: make(map[uuid.UUID]*models.PendingSubmission),
		steps:       make(map[uuid.UUID][]models.ApprovalStep),
		stories:     make(map[uuid.UUID]*models.Story),
		slugs:       make(map[string]uuid.UUID),
		submitters:  make(map[string]*models.ApprovedSubmitter),
	}
}

func (m *MemoryStore) Users() UserRepository                           { return memoryUsers{m} }
func (m *MemoryStore) Links() SubmissionLinkRepository                 { return memoryLinks{m} }
func (m *MemoryStore) Submissions() PendingSubmissionRepository        { return memorySubmissions{m} }
func (m *MemoryStore) Stories() StoryRepository                        { return memoryStories{m} }
func (m *MemoryStore) ApprovedSubmitters() ApprovedSubmitterRepository { return memorySubmitters{m} }

func (m *MemoryStore) serial() uint {
	m.nextSerial++
	return m.nextSerial
}

func page[T any](items []T, pageNum, limit int) []T {
	start := offset(pageNum, limit)
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return ErrDuplicateEmail
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	r.m.users[user.ID] = &stored
	return nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, u := range r.m.users {
		if strings.EqualFold(u.Email, email) {
			stored := *u
			return &stored, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	stored := *u
	return &stored, nil
}

func (r memoryUsers) Count(context.Context) (int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return int64(len(r.m.users)), nil
}

type memoryLinks struct{ m *MemoryStore }

func (r memoryLinks) Create(_ context.Context, link *models.SubmissionLink) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, l := range r.m.links {
		if l.Token == link.Token {
			return ErrDuplicateToken
		}
	}
	now := time.Now().UTC()
	link.CreatedAt, link.UpdatedAt = now, now
	stored := *link
	r.m.links[link.ID] = &stored
	return nil
}

func (r memoryLinks) GetByID(_ context.Context, id uuid.UUID) (*models.SubmissionLink, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	l, ok := r.m.links[id]
	if !ok {
		return nil, ErrNotFound
	}
	stored := *l
	return &stored, nil
}

func (r memoryLinks) GetByToken(_ context.Context, token string) (*models.SubmissionLink, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, l := range r.m.links {
		if l.Token == token {
			stored := *l
			return &stored, nil
		}
	}
	return nil, ErrNotFound
}

func (r memoryLinks) List(_ context.Context, params models.LinkListParams) ([]models.SubmissionLink, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []models.SubmissionLink
	for _, l := range r.m.links {
		if params.Active != nil && l.IsActive != *params.Active {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, params.Page, params.Limit), int64(len(out)), nil
}

func (r memoryLinks) Toggle(_ context.Context, id uuid.UUID) (*models.SubmissionLink, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.links[id]
	if !ok {
		return nil, ErrNotFound
	}
	l.IsActive = !l.IsActive
	l.UpdatedAt = time.Now().UTC()
	stored := *l
	return &stored, nil
}

func (r memoryLinks) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.links[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.m.links, id)
	r.m.deleted[id] = l
	return nil
}

func (r memoryLinks) AppendUsage(_ context.Context, usage *models.LinkUsage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	usage.ID = r.m.serial()
	r.m.usage = append(r.m.usage, *usage)
	return nil
}

func (r memoryLinks) UsageLog(_ context.Context, linkID uuid.UUID) ([]models.LinkUsage, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []models.LinkUsage
	for _, u := range r.m.usage {
		if u.LinkID == linkID {
			out = append(out, u)
		}
	}
	return out, nil
}

type memorySubmissions struct{ m *MemoryStore }

func (r memorySubmissions) CreateReserved(_ context.Context, submission *models.PendingSubmission, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if submission.LinkID == nil {
		return ErrLinkUnavailable
	}
	link, ok := r.m.links[*submission.LinkID]
	if !ok || link.AccessFailure(now) != "" {
		return ErrLinkUnavailable
	}
	link.CurrentSubmissions++
	link.UpdatedAt = now

	submission.CreatedAt, submission.UpdatedAt = now, now
	stored := *submission
	stored.ApprovalSteps = nil
	r.m.submissions[submission.ID] = &stored
	return nil
}

func (r memorySubmissions) get(id uuid.UUID) (*models.PendingSubmission, bool) {
	s, ok := r.m.submissions[id]
	if !ok {
		return nil, false
	}
	stored := *s
	stored.ApprovalSteps = append([]models.ApprovalStep(nil), r.m.steps[id]...)
	return &stored, true
}

func (r memorySubmissions) GetByID(_ context.Context, id uuid.UUID) (*models.PendingSubmission, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r memorySubmissions) List(_ context.Context, params models.SubmissionListParams) ([]models.PendingSubmission, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []models.PendingSubmission
	for _, s := range r.m.submissions {
		if params.Status != "" && string(s.Status) != params.Status {
			continue
		}
		if params.Category != "" && string(s.Category) != params.Category {
			continue
		}
		if params.LinkID != "" && (s.LinkID == nil || s.LinkID.String() != params.LinkID) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return page(out, params.Page, params.Limit), int64(len(out)), nil
}

func (r memorySubmissions) ListByLink(_ context.Context, linkID uuid.UUID) ([]models.PendingSubmission, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []models.PendingSubmission
	for _, s := range r.m.submissions {
		if s.LinkID != nil && *s.LinkID == linkID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (r memorySubmissions) Transition(_ context.Context, id uuid.UUID, from []models.SubmissionStatus, change models.SubmissionTransition) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.submissions[id]
	if !ok {
		return ErrNotFound
	}
	allowed := false
	for _, status := range from {
		if s.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrStaleState
	}

	reviewer := change.Reviewer.ID
	at := change.At
	s.Status = change.To
	s.ReviewedBy = &reviewer
	s.ReviewerName = change.Reviewer.Name
	s.ReviewedAt = &at
	s.ReviewNotes = change.Notes
	s.UpdatedAt = at
	if change.RevisionDetails != "" {
		s.RevisionDetails = change.RevisionDetails
	}
	if change.FinalStoryID != nil {
		storyID := *change.FinalStoryID
		s.FinalStoryID = &storyID
	}

	step := change.Step(id)
	step.ID = r.m.serial()
	r.m.steps[id] = append(r.m.steps[id], step)
	return nil
}

func (r memorySubmissions) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.submissions[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.m.submissions, id)
	delete(r.m.steps, id)
	if s.LinkID == nil {
		return nil
	}
	link, ok := r.m.links[*s.LinkID]
	if !ok {
		link, ok = r.m.deleted[*s.LinkID]
	}
	if ok && link.CurrentSubmissions > 0 {
		link.CurrentSubmissions--
	}
	return nil
}

type memoryStories struct{ m *MemoryStore }

func (r memoryStories) Create(_ context.Context, story *models.Story) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, taken := r.m.slugs[story.Slug]; taken {
		return ErrDuplicateSlug
	}
	now := time.Now().UTC()
	story.CreatedAt, story.UpdatedAt = now, now
	stored := *story
	r.m.stories[story.ID] = &stored
	r.m.slugs[story.Slug] = story.ID
	return nil
}

func (r memoryStories) GetByID(_ context.Context, id uuid.UUID) (*models.Story, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	s, ok := r.m.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	stored := *s
	return &stored, nil
}

func (r memoryStories) GetBySlug(_ context.Context, slug string) (*models.Story, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	id, ok := r.m.slugs[slug]
	if !ok {
		return nil, ErrNotFound
	}
	stored := *r.m.stories[id]
	return &stored, nil
}

func (r memoryStories) List(_ context.Context, params models.StoryListParams, publishedOnly bool) ([]models.Story, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []models.Story
	for _, s := range r.m.stories {
		if publishedOnly && !s.IsPublished {
			continue
		}
		if params.Category != "" && string(s.Category) != params.Category {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.After(out[j].PublishedAt) })
	return page(out, params.Page, params.Limit), int64(len(out)), nil
}

func (r memoryStories) IncrementViews(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.m.stories[id]; ok {
		s.Views++
	}
	return nil
}

func (r memoryStories) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.m.stories[id]; ok {
		delete(r.m.slugs, s.Slug)
		delete(r.m.stories, id)
	}
	return nil
}

type memorySubmitters struct{ m *MemoryStore }

func (r memorySubmitters) Record(_ context.Context, email, name string, storyID uuid.UUID, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	entry, ok := r.m.submitters[email]
	if !ok {
		entry = &models.ApprovedSubmitter{ID: r.m.serial(), Email: email, FirstApprovedAt: at}
		r.m.submitters[email] = entry
	}
	entry.Name = name
	entry.ApprovedCount++
	entry.StoryIDs = append(entry.StoryIDs, storyID)
	entry.LastApprovedAt = at
	return nil
}

func (r memorySubmitters) GetByEmail(_ context.Context, email string) (*models.ApprovedSubmitter, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	entry, ok := r.m.submitters[email]
	if !ok {
		return nil, ErrNotFound
	}
	stored := *entry
	stored.StoryIDs = append(datatypes.JSONSlice[uuid.UUID](nil), entry.StoryIDs...)
	return &stored, nil
}

func (m *MemoryStore) Set() Set {
	return Set{
		Users:       m.Users(),
		Links:       m.Links(),
		Submissions: m.Submissions(),
		Stories:     m.Stories(),
		Submitters:  m.ApprovedSubmitters(),
	}
}
