package extsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"govregistry/internal/audit"
	"govregistry/internal/importer"
	"govregistry/internal/organization/metrics"
	"govregistry/internal/organization/models"
	"govregistry/internal/organization/service"
	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/requestcontext"
)

// Registry is the write surface the coordinator upserts through.
type Registry interface {
	Create(ctx context.Context, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error)
	Update(ctx context.Context, id uuid.UUID, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error)
}

// Matcher resolves a feed record to an existing organization.
type Matcher interface {
	ExactMatch(ctx context.Context, nameOrAcronym string) (*models.GovernmentOrganization, error)
}

// StatsProvider supplies the registry counts for the status snapshot.
type StatsProvider interface {
	Statistics(ctx context.Context) (*service.Statistics, error)
}

// HistoryStore records completed sync runs.
type HistoryStore interface {
	Record(ctx context.Context, record importer.HistoryRecord) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SyncResult summarizes one sync run. Failures that stopped the run
// short still produce a result; errorMessages carries the reasons.
type SyncResult struct {
	Added         int      `json:"added"`
	Updated       int      `json:"updated"`
	Skipped       int      `json:"skipped"`
	Errors        int      `json:"errors"`
	Total         int      `json:"total"`
	ErrorMessages []string `json:"error_messages"`
}

// SyncStatus is the cheap health snapshot, independent of any sync run.
type SyncStatus struct {
	TotalOrganizations      int            `json:"total_organizations"`
	CountByBranch           map[string]int `json:"count_by_branch"`
	ExternalSourceAvailable bool           `json:"external_source_available"`
	LastSync                *time.Time     `json:"last_sync,omitempty"`
}

// Coordinator reconciles the registry against the external feed.
type Coordinator struct {
	feed     FeedClient
	registry Registry
	matcher  Matcher
	stats    StatsProvider

	history        HistoryStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics

	mu       sync.Mutex
	lastSync *time.Time
}

type Option func(c *Coordinator)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithHistory(history HistoryStore) Option {
	return func(c *Coordinator) {
		c.history = history
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *Coordinator) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// New constructs a Coordinator.
func New(feed FeedClient, registry Registry, matcher Matcher, stats StatsProvider, opts ...Option) *Coordinator {
	c := &Coordinator{feed: feed, registry: registry, matcher: matcher, stats: stats}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TriggerSync fetches the feed and upserts every record through the
// same match-then-merge path CSV import uses. It always terminates with
// a result: upstream failure degrades to errors>0 with a message
// instead of propagating. Each call owns its own counters, so
// overlapping triggers cannot corrupt each other.
func (c *Coordinator) TriggerSync(ctx context.Context) *SyncResult {
	started := requestcontext.Now(ctx)
	result := &SyncResult{}

	agencies, err := c.feed.FetchAgencies(ctx)
	if err != nil {
		result.Errors = 1
		result.Total = 1
		result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("external source unavailable: %v", err))
		c.finish(ctx, started, result)
		return result
	}

	// First pass upserts every record and remembers which registry id
	// each feed id landed on. Parents are linked afterwards because the
	// feed does not order parents before children.
	idByFeedID := make(map[string]uuid.UUID, len(agencies))
	for _, agency := range agencies {
		if ctx.Err() != nil {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages, "sync canceled before record "+agency.ID)
			break
		}
		id, err := c.upsert(ctx, agency, result)
		if err != nil {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages, err.Error())
			continue
		}
		if agency.ID != "" {
			idByFeedID[agency.ID] = id
		}
	}

	c.linkParents(ctx, agencies, idByFeedID, result)

	result.Total = result.Added + result.Updated + result.Skipped + result.Errors

	now := requestcontext.Now(ctx)
	c.mu.Lock()
	c.lastSync = &now
	c.mu.Unlock()

	c.finish(ctx, started, result)
	return result
}

// Run triggers a sync every interval until the context ends. A zero or
// negative interval disables scheduled syncing; the admin endpoint still
// triggers syncs on demand.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result := c.TriggerSync(ctx)
			if c.logger != nil {
				c.logger.InfoContext(ctx, "scheduled sync finished",
					"added", result.Added,
					"updated", result.Updated,
					"skipped", result.Skipped,
					"errors", result.Errors,
				)
			}
		}
	}
}

// GetSyncStatus reports registry totals and upstream reachability
// without touching the feed data itself.
func (c *Coordinator) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	stats, err := c.stats.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	last := c.lastSync
	c.mu.Unlock()

	return &SyncStatus{
		TotalOrganizations:      stats.TotalAll,
		CountByBranch:           stats.CountByBranch,
		ExternalSourceAvailable: c.feed.Available(ctx),
		LastSync:                last,
	}, nil
}

// upsert resolves one feed record by name then acronym, then either
// creates it or merges it onto the match.
func (c *Coordinator) upsert(ctx context.Context, agency Agency, result *SyncResult) (uuid.UUID, error) {
	if strings.TrimSpace(agency.Name) == "" {
		return uuid.Nil, fmt.Errorf("feed record %q has no name", agency.ID)
	}

	incoming := agencyToOrg(agency)

	existing, err := c.resolve(ctx, incoming)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve %q: %w", agency.Name, err)
	}
	if existing == nil {
		created, err := c.registry.Create(ctx, incoming)
		if err != nil {
			return uuid.Nil, fmt.Errorf("create %q: %w", agency.Name, err)
		}
		result.Added++
		return created.ID, nil
	}

	merged, changed := importer.Merge(existing, incoming, models.SourceExternalSync)
	if descriptionFill(merged, incoming) {
		changed = true
	}
	if annotateMetadata(merged, agency) {
		changed = true
	}
	if !changed {
		result.Skipped++
		return existing.ID, nil
	}
	updated, err := c.registry.Update(ctx, existing.ID, merged)
	if err != nil {
		return uuid.Nil, fmt.Errorf("update %q: %w", agency.Name, err)
	}
	result.Updated++
	return updated.ID, nil
}

func (c *Coordinator) resolve(ctx context.Context, incoming *models.GovernmentOrganization) (*models.GovernmentOrganization, error) {
	for _, key := range []string{incoming.OfficialName, incoming.Acronym} {
		if key == "" {
			continue
		}
		match, err := c.matcher.ExactMatch(ctx, key)
		if err == nil {
			return match, nil
		}
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// linkParents applies the feed's parent pointers in a second pass, once
// every record has a registry id to point at.
func (c *Coordinator) linkParents(ctx context.Context, agencies []Agency, idByFeedID map[string]uuid.UUID, result *SyncResult) {
	for _, agency := range agencies {
		if agency.ParentID == "" || ctx.Err() != nil {
			continue
		}
		childID, ok := idByFeedID[agency.ID]
		if !ok {
			continue
		}
		parentID, ok := idByFeedID[agency.ParentID]
		if !ok {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages,
				fmt.Sprintf("parent %q of %q not present in feed", agency.ParentID, agency.Name))
			continue
		}

		child, err := c.registry.GetByID(ctx, childID)
		if err != nil {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("link parent of %q: %v", agency.Name, err))
			continue
		}
		if child.ParentID != nil && *child.ParentID == parentID {
			continue
		}
		child.ParentID = &parentID
		if _, err := c.registry.Update(ctx, childID, child); err != nil {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("link parent of %q: %v", agency.Name, err))
		}
	}
}

// agencyToOrg shapes one feed record into a registry organization. The
// feed only covers the executive branch, and the unit kind is inferred
// from the name because the feed does not carry one.
func agencyToOrg(agency Agency) *models.GovernmentOrganization {
	org := &models.GovernmentOrganization{
		OfficialName:   strings.TrimSpace(agency.Name),
		Acronym:        strings.TrimSpace(agency.Acronym),
		Branch:         models.BranchExecutive,
		OrgType:        inferOrgType(agency.Name),
		Description:    agency.Description,
		WebsiteURL:     agency.URL,
		SourceOfRecord: models.SourceExternalSync,
		Metadata:       map[string]string{},
	}
	if agency.ID != "" {
		org.Metadata["external_id"] = agency.ID
	}
	if agency.Slug != "" {
		org.Metadata["slug"] = agency.Slug
	}
	return org
}

// inferOrgType picks the unit kind from name keywords, most specific
// first. Anything unrecognized is treated as an independent agency,
// which is what the feed mostly carries.
func inferOrgType(name string) models.OrgType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "department"):
		return models.OrgTypeDepartment
	case strings.Contains(lower, "bureau"):
		return models.OrgTypeBureau
	case strings.Contains(lower, "office"):
		return models.OrgTypeOffice
	case strings.Contains(lower, "commission"):
		return models.OrgTypeCommission
	case strings.Contains(lower, "board"):
		return models.OrgTypeBoard
	case strings.Contains(lower, "agency"):
		return models.OrgTypeAgency
	default:
		return models.OrgTypeIndependentAgency
	}
}

// annotateMetadata stamps the feed identifiers onto a matched record so
// every synced organization carries its upstream identity, whoever
// created it. Keys already holding the feed value leave the record
// untouched, which keeps a repeat sync a skip.
func annotateMetadata(merged *models.GovernmentOrganization, agency Agency) bool {
	changed := false
	stamp := func(key, value string) {
		if value == "" || merged.Metadata[key] == value {
			return
		}
		if merged.Metadata == nil {
			merged.Metadata = map[string]string{}
		}
		merged.Metadata[key] = value
		changed = true
	}
	stamp("external_id", agency.ID)
	stamp("slug", agency.Slug)
	if changed {
		merged.SourceOfRecord = models.SourceExternalSync
	}
	return changed
}

// descriptionFill copies the feed description onto a match that has
// none. Description is curated text, so it follows the same
// fill-when-empty rule as the other curated fields.
func descriptionFill(merged, incoming *models.GovernmentOrganization) bool {
	if merged.Description == "" && incoming.Description != "" {
		merged.Description = incoming.Description
		merged.SourceOfRecord = models.SourceExternalSync
		return true
	}
	return false
}

func (c *Coordinator) finish(ctx context.Context, started time.Time, result *SyncResult) {
	if c.metrics != nil {
		outcome := "success"
		if result.Errors > 0 {
			outcome = "failure"
		}
		c.metrics.SyncRuns.WithLabelValues(outcome).Inc()
	}
	if c.logger != nil {
		c.logger.InfoContext(ctx, "external sync finished",
			"added", result.Added,
			"updated", result.Updated,
			"skipped", result.Skipped,
			"errors", result.Errors,
		)
	}
	if c.history != nil {
		rec := importer.HistoryRecord{
			ID:            uuid.New(),
			StartedAt:     started,
			FinishedAt:    requestcontext.Now(ctx),
			Source:        string(models.SourceExternalSync),
			Success:       result.Errors == 0,
			Added:         result.Added,
			Updated:       result.Updated,
			Skipped:       result.Skipped,
			Errors:        result.Errors,
			Total:         result.Total,
			ErrorMessages: result.ErrorMessages,
		}
		if err := c.history.Record(ctx, rec); err != nil && c.logger != nil {
			c.logger.ErrorContext(ctx, "failed to record sync history", "error", err)
		}
	}
	if c.auditPublisher != nil {
		err := c.auditPublisher.Emit(ctx, audit.Event{
			Action: string(audit.EventSyncCompleted),
			Source: string(models.SourceExternalSync),
			Detail: fmt.Sprintf("added=%d updated=%d skipped=%d errors=%d", result.Added, result.Updated, result.Skipped, result.Errors),
		})
		if err != nil && c.logger != nil {
			c.logger.ErrorContext(ctx, "failed to emit audit event", "action", string(audit.EventSyncCompleted), "error", err)
		}
	}
}
