package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage. Create carries no
// idempotency key; callers that must not duplicate leads guard it themselves.
type Repository interface {
	Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error)
	GetByID(ctx context.Context, orgID, id string) (*Lead, error)
	ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error)
}

// ListLeadsFilter pages and narrows an org's leads, newest first.
type ListLeadsFilter struct {
	Source string
	Limit  int
	Offset int
}

func (f ListLeadsFilter) normalized() ListLeadsFilter {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// InMemoryRepository is a Repository backed by process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Lead),
	}
}

// Create creates a new lead in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	lead := req.toLead(uuid.New().String(), time.Now().UTC())

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return lead, nil
}

// GetByID retrieves a lead by ID within an org
func (r *InMemoryRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok || lead.OrgID != orgID {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

func (r *InMemoryRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	filter = filter.normalized()

	r.mu.RLock()
	var out []*Lead
	for _, lead := range r.leads {
		if lead.OrgID != orgID {
			continue
		}
		if filter.Source != "" && lead.Source != filter.Source {
			continue
		}
		out = append(out, lead)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset >= len(out) {
		return []*Lead{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Count returns the number of stored leads across all orgs.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.leads)
}
