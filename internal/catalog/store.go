package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reader gives the conversation engine read access to an org's catalog.
type Reader interface {
	Snapshot(ctx context.Context, orgID string) (*Snapshot, error)
}

// Writer creates catalog entries.
type Writer interface {
	CreateItem(ctx context.Context, draft ItemDraft) (*Item, error)
	CreateCategory(ctx context.Context, draft CategoryDraft) (*Category, error)
}

// Store is a full catalog backend.
type Store interface {
	Reader
	Writer
}

// MemoryStore keeps catalogs in process memory. Used in development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	categories map[string][]Category
	items      map[string][]Item
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories: make(map[string][]Category),
		items:      make(map[string][]Item),
	}
}

// Seed replaces an org's catalog. Missing ids and slugs are filled in.
func (s *MemoryStore) Seed(orgID string, categories []Category, items []Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cats := make([]Category, 0, len(categories))
	for _, c := range categories {
		c.OrgID = orgID
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Slug == "" {
			c.Slug = Slugify(c.Name)
		}
		cats = append(cats, c)
	}
	its := make([]Item, 0, len(items))
	for _, it := range items {
		it.OrgID = orgID
		if it.ID == "" {
			it.ID = uuid.NewString()
		}
		if it.Kind == "" {
			it.Kind = KindService
		}
		its = append(its, it)
	}
	s.categories[orgID] = cats
	s.items[orgID] = its
}

// Snapshot returns a copy of the org's catalog.
func (s *MemoryStore) Snapshot(ctx context.Context, orgID string) (*Snapshot, error) {
	if orgID == "" {
		return nil, ErrMissingOrgID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		OrgID:      orgID,
		Categories: append([]Category(nil), s.categories[orgID]...),
		Items:      append([]Item(nil), s.items[orgID]...),
	}
	sort.SliceStable(snap.Categories, func(i, j int) bool {
		return snap.Categories[i].Name < snap.Categories[j].Name
	})
	return snap, nil
}

// CreateItem stores a new item under an existing category.
func (s *MemoryStore) CreateItem(ctx context.Context, draft ItemDraft) (*Item, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var category *Category
	for i, c := range s.categories[draft.OrgID] {
		if c.ID == draft.CategoryID {
			category = &s.categories[draft.OrgID][i]
			break
		}
	}
	if category == nil {
		return nil, ErrUnknownCategory
	}

	item := Item{
		ID:          uuid.NewString(),
		OrgID:       draft.OrgID,
		Title:       strings.TrimSpace(draft.Title),
		Kind:        draft.Kind,
		CategoryID:  category.ID,
		Category:    category.Name,
		Description: strings.TrimSpace(draft.Description),
		Price:       draft.Price,
		CreatedAt:   time.Now().UTC(),
	}
	s.items[draft.OrgID] = append(s.items[draft.OrgID], item)
	return &item, nil
}

// CreateCategory stores a new category; slugs are unique per org.
func (s *MemoryStore) CreateCategory(ctx context.Context, draft CategoryDraft) (*Category, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := Slugify(draft.Name)
	for _, c := range s.categories[draft.OrgID] {
		if c.Slug == slug {
			return nil, ErrDuplicateCategory
		}
	}
	category := Category{
		ID:          uuid.NewString(),
		OrgID:       draft.OrgID,
		Name:        strings.TrimSpace(draft.Name),
		Slug:        slug,
		Description: strings.TrimSpace(draft.Description),
		CreatedAt:   time.Now().UTC(),
	}
	s.categories[draft.OrgID] = append(s.categories[draft.OrgID], category)
	return &category, nil
}
