// Package service implements the organization registry: entity lifecycle
// and hierarchy operations over a pluggable store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"govregistry/internal/audit"
	"govregistry/internal/organization/metrics"
	"govregistry/internal/organization/models"
	"govregistry/internal/organization/store"
	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/platform/sentinel"
	"govregistry/pkg/requestcontext"
)

// Store is the persistence surface the registry requires.
type Store interface {
	Save(ctx context.Context, org *models.GovernmentOrganization) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error)
	List(ctx context.Context, filter store.Filter, page store.Page) ([]*models.GovernmentOrganization, error)
	ListByParent(ctx context.Context, parentID uuid.UUID) ([]*models.GovernmentOrganization, error)
	ListTopLevel(ctx context.Context) ([]*models.GovernmentOrganization, error)
	Count(ctx context.Context, filter store.Filter) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates organization lifecycle and hierarchy queries.
type Service struct {
	orgs           Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(orgs Store, opts ...Option) *Service {
	s := &Service{orgs: orgs}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and persists a new organization. The caller-provided
// id, createdAt and updatedAt are ignored.
func (s *Service) Create(ctx context.Context, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error) {
	org = org.Clone()
	org.OfficialName = strings.TrimSpace(org.OfficialName)
	org.Acronym = strings.TrimSpace(org.Acronym)
	if org.SourceOfRecord == "" {
		org.SourceOfRecord = models.SourceManual
	}

	if fieldErrs := org.Validate(); len(fieldErrs) > 0 {
		return nil, dErrors.NewValidation("invalid organization", fieldErrs...)
	}
	if org.ParentID != nil {
		if _, err := s.orgs.FindByID(ctx, *org.ParentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, dErrors.NewValidation("invalid organization", dErrors.FieldError{
					Field:   "parentId",
					Value:   org.ParentID.String(),
					Message: "parent organization does not exist",
				})
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve parent")
		}
	}

	now := requestcontext.Now(ctx)
	org.ID = uuid.New()
	org.CreatedAt = now
	org.UpdatedAt = now

	if err := s.orgs.Save(ctx, org); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}

	s.logAudit(ctx, audit.EventOrganizationCreated, org)
	if s.metrics != nil {
		s.metrics.OrganizationsCreated.Inc()
	}
	return org, nil
}

// Update replaces the mutable fields of an existing organization.
// ID and CreatedAt are preserved; UpdatedAt is bumped.
func (s *Service) Update(ctx context.Context, id uuid.UUID, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	org = org.Clone()
	org.OfficialName = strings.TrimSpace(org.OfficialName)
	org.Acronym = strings.TrimSpace(org.Acronym)
	if org.SourceOfRecord == "" {
		org.SourceOfRecord = existing.SourceOfRecord
	}

	if fieldErrs := org.Validate(); len(fieldErrs) > 0 {
		return nil, dErrors.NewValidation("invalid organization", fieldErrs...)
	}
	if org.ParentID != nil {
		if err := s.checkParentChain(ctx, id, *org.ParentID); err != nil {
			return nil, err
		}
	}

	org.ID = existing.ID
	org.CreatedAt = existing.CreatedAt
	org.UpdatedAt = requestcontext.Now(ctx)

	if err := s.orgs.Save(ctx, org); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update organization")
	}

	s.logAudit(ctx, audit.EventOrganizationUpdated, org)
	if s.metrics != nil {
		s.metrics.OrganizationsUpdated.Inc()
	}
	return org, nil
}

// SoftDelete dissolves an organization. Dissolving an already-dissolved
// organization is a no-op, not an error.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error) {
	org, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !org.IsActive() {
		return org, nil
	}

	now := requestcontext.Now(ctx)
	dissolved := models.DateOf(now)
	org.DissolvedDate = &dissolved
	org.UpdatedAt = now

	if err := s.orgs.Save(ctx, org); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to dissolve organization")
	}

	s.logAudit(ctx, audit.EventOrganizationDissolved, org)
	if s.metrics != nil {
		s.metrics.OrganizationsDissolved.Inc()
	}
	return org, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error) {
	return s.get(ctx, id)
}

// List returns organizations matching the filter, in creation order.
func (s *Service) List(ctx context.Context, filter store.Filter, page store.Page) ([]*models.GovernmentOrganization, error) {
	orgs, err := s.orgs.List(ctx, filter, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	return orgs, nil
}

// ListActive returns only organizations without a dissolved date.
func (s *Service) ListActive(ctx context.Context, page store.Page) ([]*models.GovernmentOrganization, error) {
	return s.List(ctx, store.Filter{ActiveOnly: true}, page)
}

// ListAll returns every organization, dissolved ones included.
func (s *Service) ListAll(ctx context.Context, page store.Page) ([]*models.GovernmentOrganization, error) {
	return s.List(ctx, store.Filter{}, page)
}

// Ancestors walks the parent chain upward, nearest parent first. A
// top-level organization yields an empty chain. A revisited node aborts
// the walk with an integrity error instead of looping.
func (s *Service) Ancestors(ctx context.Context, id uuid.UUID) ([]*models.GovernmentOrganization, error) {
	org, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{org.ID: true}
	chain := []*models.GovernmentOrganization{}
	current := org
	for current.ParentID != nil {
		parentID := *current.ParentID
		if visited[parentID] {
			return nil, dErrors.Wrap(sentinel.ErrCycle, dErrors.CodeIntegrity, "hierarchy cycle detected at organization "+parentID.String())
		}
		visited[parentID] = true

		parent, err := s.orgs.FindByID(ctx, parentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, dErrors.Newf(dErrors.CodeIntegrity, "parent organization %s is missing", parentID)
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to walk ancestors")
		}
		chain = append(chain, parent)
		current = parent
	}

	if s.metrics != nil {
		s.metrics.HierarchyDepth.Observe(float64(len(chain)))
	}
	return chain, nil
}

// Descendants returns the transitive set of organizations whose parent
// chain passes through id, breadth-first in creation order.
func (s *Service) Descendants(ctx context.Context, id uuid.UUID) ([]*models.GovernmentOrganization, error) {
	if _, err := s.get(ctx, id); err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{id: true}
	result := []*models.GovernmentOrganization{}
	queue := []uuid.UUID{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		children, err := s.orgs.ListByParent(ctx, next)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to walk descendants")
		}
		for _, child := range children {
			if visited[child.ID] {
				return nil, dErrors.Wrap(sentinel.ErrCycle, dErrors.CodeIntegrity, "hierarchy cycle detected at organization "+child.ID.String())
			}
			visited[child.ID] = true
			result = append(result, child)
			queue = append(queue, child.ID)
		}
	}
	return result, nil
}

// TopLevel returns all organizations without a parent.
func (s *Service) TopLevel(ctx context.Context) ([]*models.GovernmentOrganization, error) {
	orgs, err := s.orgs.ListTopLevel(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list top-level organizations")
	}
	return orgs, nil
}

// HierarchyView bundles an organization with its ancestor chain and its
// direct children. Children of any activity status are included so
// dissolution never hides structure.
type HierarchyView struct {
	Organization *models.GovernmentOrganization   `json:"organization"`
	Ancestors    []*models.GovernmentOrganization `json:"ancestors"`
	Children     []*models.GovernmentOrganization `json:"children"`
}

// Hierarchy returns the organization, its ancestors, and its direct
// children only (not the full descendant subtree).
func (s *Service) Hierarchy(ctx context.Context, id uuid.UUID) (*HierarchyView, error) {
	org, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	ancestors, err := s.Ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	children, err := s.orgs.ListByParent(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list children")
	}
	return &HierarchyView{Organization: org, Ancestors: ancestors, Children: children}, nil
}

// Statistics summarizes the active registry population.
type Statistics struct {
	TotalActive   int            `json:"total_active"`
	TotalAll      int            `json:"total_all"`
	CountByType   map[string]int `json:"count_by_type"`
	CountByBranch map[string]int `json:"count_by_branch"`
}

// Statistics aggregates active counts by type and branch.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	active, err := s.orgs.List(ctx, store.Filter{ActiveOnly: true}, store.Page{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute statistics")
	}
	total, err := s.orgs.Count(ctx, store.Filter{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute statistics")
	}

	stats := &Statistics{
		TotalActive:   len(active),
		TotalAll:      total,
		CountByType:   make(map[string]int),
		CountByBranch: make(map[string]int),
	}
	for _, org := range active {
		stats.CountByType[string(org.OrgType)]++
		stats.CountByBranch[string(org.Branch)]++
	}
	return stats, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error) {
	org, err := s.orgs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}

// checkParentChain rejects a parent assignment that would route orgID's
// chain back through itself.
func (s *Service) checkParentChain(ctx context.Context, orgID, parentID uuid.UUID) error {
	visited := map[uuid.UUID]bool{}
	current := parentID
	for {
		if current == orgID {
			return dErrors.New(dErrors.CodeIntegrity, "organization cannot be its own ancestor")
		}
		if visited[current] {
			return dErrors.Wrap(sentinel.ErrCycle, dErrors.CodeIntegrity, "hierarchy cycle detected at organization "+current.String())
		}
		visited[current] = true

		parent, err := s.orgs.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.NewValidation("invalid organization", dErrors.FieldError{
					Field:   "parentId",
					Value:   current.String(),
					Message: "parent organization does not exist",
				})
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve parent")
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
}

func (s *Service) logAudit(ctx context.Context, eventType audit.EventType, org *models.GovernmentOrganization) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:         string(eventType),
		OrganizationID: org.ID.String(),
		Source:         string(org.SourceOfRecord),
		Detail:         org.OfficialName,
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", string(eventType),
			"organization_id", org.ID,
			"error", err,
		)
	}
}
