package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"govregistry/internal/organization/models"
)

// InMemoryStore keeps organizations in an id-indexed map. It favors
// clarity over performance and backs unit tests and local development.
type InMemoryStore struct {
	mu   sync.RWMutex
	orgs map[uuid.UUID]*models.GovernmentOrganization
	seq  map[uuid.UUID]int
	next int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orgs: make(map[uuid.UUID]*models.GovernmentOrganization),
		seq:  make(map[uuid.UUID]int),
	}
}

func (s *InMemoryStore) Save(_ context.Context, org *models.GovernmentOrganization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; !ok {
		s.seq[org.ID] = s.next
		s.next++
	}
	s.orgs[org.ID] = org.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.GovernmentOrganization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return org.Clone(), nil
}

// List returns organizations matching the filter in creation order.
func (s *InMemoryStore) List(_ context.Context, filter Filter, page Page) ([]*models.GovernmentOrganization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.GovernmentOrganization, 0, len(s.orgs))
	for _, org := range s.orgs {
		if s.matches(org, filter) {
			out = append(out, org.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return paginate(out, page), nil
}

// ListByParent returns the direct children of a parent in creation order.
func (s *InMemoryStore) ListByParent(_ context.Context, parentID uuid.UUID) ([]*models.GovernmentOrganization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.GovernmentOrganization
	for _, org := range s.orgs {
		if org.ParentID != nil && *org.ParentID == parentID {
			out = append(out, org.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

// ListTopLevel returns organizations without a parent in creation order.
func (s *InMemoryStore) ListTopLevel(_ context.Context) ([]*models.GovernmentOrganization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.GovernmentOrganization
	for _, org := range s.orgs {
		if org.ParentID == nil {
			out = append(out, org.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[out[i].ID] < s.seq[out[j].ID]
	})
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, filter Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, org := range s.orgs {
		if s.matches(org, filter) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) matches(org *models.GovernmentOrganization, f Filter) bool {
	if f.ActiveOnly && !org.IsActive() {
		return false
	}
	if f.OrgType != "" && !strings.EqualFold(string(org.OrgType), f.OrgType) {
		return false
	}
	if f.Branch != "" && !strings.EqualFold(string(org.Branch), f.Branch) {
		return false
	}
	if f.Jurisdiction != "" {
		found := false
		for _, area := range org.JurisdictionAreas {
			if strings.EqualFold(area, f.Jurisdiction) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func paginate(orgs []*models.GovernmentOrganization, page Page) []*models.GovernmentOrganization {
	if page.Offset > 0 {
		if page.Offset >= len(orgs) {
			return nil
		}
		orgs = orgs[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(orgs) {
		orgs = orgs[:page.Limit]
	}
	return orgs
}
