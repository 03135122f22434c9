// Package importer implements the bulk CSV ingestion path: parse,
// per-row validation, then upsert through the matching engine and the
// registry. One bad row never blocks the rest of the batch.
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"govregistry/internal/audit"
	"govregistry/internal/organization/metrics"
	"govregistry/internal/organization/models"
	dErrors "govregistry/pkg/domain-errors"
	"govregistry/pkg/platform/strutil"
	"govregistry/pkg/requestcontext"
)

// Registry is the write surface the pipeline upserts through.
type Registry interface {
	Create(ctx context.Context, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error)
	Update(ctx context.Context, id uuid.UUID, org *models.GovernmentOrganization) (*models.GovernmentOrganization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error)
}

// Matcher resolves a row to an existing organization.
type Matcher interface {
	ExactMatch(ctx context.Context, nameOrAcronym string) (*models.GovernmentOrganization, error)
}

// HistoryStore records completed import runs.
type HistoryStore interface {
	Record(ctx context.Context, record HistoryRecord) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Pipeline is the CSV import service.
type Pipeline struct {
	registry       Registry
	matcher        Matcher
	history        HistoryStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(p *Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func WithHistory(history HistoryStore) Option {
	return func(p *Pipeline) {
		p.history = history
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(p *Pipeline) {
		p.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New constructs a Pipeline.
func New(registry Registry, matcher Matcher, opts ...Option) *Pipeline {
	p := &Pipeline{registry: registry, matcher: matcher}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Import runs the full parse, validate, upsert sequence over one CSV
// document. It always returns a Result; structural failures yield a
// failed result before any row is touched.
func (p *Pipeline) Import(ctx context.Context, input io.Reader) *Result {
	started := requestcontext.Now(ctx)
	result := newResult()

	rows, err := parse(input)
	if err != nil {
		p.record(ctx, started, result.fail(err.Error()).finish())
		return result
	}

	duplicateLines := duplicateAcronymLines(rows)
	for acronym, lines := range duplicateLines {
		result.ValidationErrors = append(result.ValidationErrors, dErrors.FieldError{
			Line:    lines[0],
			Field:   "acronym",
			Value:   acronym,
			Message: fmt.Sprintf("acronym appears on multiple lines: %s", joinLines(lines)),
		})
	}

	// Acronyms created earlier in this batch resolve parent references
	// for later rows.
	batchByAcronym := make(map[string]uuid.UUID)

	for _, r := range rows {
		select {
		case <-ctx.Done():
			result.fail(fmt.Sprintf("import canceled before line %d: %v", r.line, ctx.Err()))
			p.record(ctx, started, result.finish())
			return result
		default:
		}

		if _, dup := duplicateLines[strings.ToLower(r.get("acronym"))]; dup && r.get("acronym") != "" {
			result.Errors++
			p.countRow("error")
			continue
		}

		parsed, fieldErrs := p.parseRow(ctx, r, batchByAcronym)
		if len(fieldErrs) > 0 {
			result.ValidationErrors = append(result.ValidationErrors, fieldErrs...)
			result.Errors++
			p.countRow("error")
			continue
		}

		outcome, org, err := p.upsert(ctx, parsed)
		if err != nil {
			result.Errors++
			result.ErrorMessages = append(result.ErrorMessages, fmt.Sprintf("line %d: %v", r.line, err))
			p.countRow("error")
			continue
		}

		if org.Acronym != "" {
			batchByAcronym[strings.ToLower(org.Acronym)] = org.ID
		}
		switch outcome {
		case outcomeAdded:
			result.Added++
			p.countRow("added")
		case outcomeUpdated:
			result.Updated++
			p.countRow("updated")
		case outcomeSkipped:
			result.Skipped++
			p.countRow("skipped")
		}
	}

	result.finish()
	p.record(ctx, started, result)
	p.logAudit(ctx, result)
	return result
}

type upsertOutcome int

const (
	outcomeAdded upsertOutcome = iota
	outcomeUpdated
	outcomeSkipped
)

// upsert resolves the row against existing records by official name, then
// acronym. A hit becomes a merge update, a miss becomes a create.
func (p *Pipeline) upsert(ctx context.Context, incoming *models.GovernmentOrganization) (upsertOutcome, *models.GovernmentOrganization, error) {
	existing, err := p.resolve(ctx, incoming)
	if err != nil {
		return 0, nil, err
	}
	if existing == nil {
		created, err := p.registry.Create(ctx, incoming)
		if err != nil {
			return 0, nil, err
		}
		return outcomeAdded, created, nil
	}

	merged, changed := Merge(existing, incoming, models.SourceCSVImport)
	if !changed {
		return outcomeSkipped, existing, nil
	}
	updated, err := p.registry.Update(ctx, existing.ID, merged)
	if err != nil {
		return 0, nil, err
	}
	return outcomeUpdated, updated, nil
}

func (p *Pipeline) resolve(ctx context.Context, incoming *models.GovernmentOrganization) (*models.GovernmentOrganization, error) {
	org, err := p.matcher.ExactMatch(ctx, incoming.OfficialName)
	if err == nil {
		return org, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}
	if incoming.Acronym != "" {
		org, err = p.matcher.ExactMatch(ctx, incoming.Acronym)
		if err == nil {
			return org, nil
		}
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// Merge applies an incoming record onto an existing one. Structural fields
// (branch, orgType, orgLevel, parent) take the incoming value; curated
// fields (acronym, dates, url, jurisdictions) are only filled when empty
// so a re-import never erases manual enrichment. When anything changed the
// source of record flips to the given source, and the changed flag drives
// the updated-vs-skipped count. The external sync coordinator shares these
// rules so CSV and feed updates behave identically.
func Merge(existing, incoming *models.GovernmentOrganization, source models.SourceOfRecord) (*models.GovernmentOrganization, bool) {
	merged := existing.Clone()
	changed := false

	if incoming.Branch != existing.Branch {
		merged.Branch = incoming.Branch
		changed = true
	}
	if incoming.OrgType != existing.OrgType {
		merged.OrgType = incoming.OrgType
		changed = true
	}
	if incoming.OrgLevel != 0 && incoming.OrgLevel != existing.OrgLevel {
		merged.OrgLevel = incoming.OrgLevel
		changed = true
	}
	if incoming.ParentID != nil && (existing.ParentID == nil || *existing.ParentID != *incoming.ParentID) {
		merged.ParentID = incoming.ParentID
		changed = true
	}
	if existing.Acronym == "" && incoming.Acronym != "" {
		merged.Acronym = incoming.Acronym
		changed = true
	}
	if existing.EstablishedDate == nil && incoming.EstablishedDate != nil {
		merged.EstablishedDate = incoming.EstablishedDate
		changed = true
	}
	if existing.DissolvedDate == nil && incoming.DissolvedDate != nil {
		merged.DissolvedDate = incoming.DissolvedDate
		changed = true
	}
	if existing.WebsiteURL == "" && incoming.WebsiteURL != "" {
		merged.WebsiteURL = incoming.WebsiteURL
		changed = true
	}
	if len(existing.JurisdictionAreas) == 0 && len(incoming.JurisdictionAreas) > 0 {
		merged.JurisdictionAreas = incoming.JurisdictionAreas
		changed = true
	}
	if changed {
		merged.SourceOfRecord = source
	}
	return merged, changed
}

// parseRow validates one data row and builds the organization it
// describes. Every violation is collected, one per field.
func (p *Pipeline) parseRow(ctx context.Context, r row, batchByAcronym map[string]uuid.UUID) (*models.GovernmentOrganization, []dErrors.FieldError) {
	var fieldErrs []dErrors.FieldError

	org := &models.GovernmentOrganization{
		OfficialName:   r.get("officialName"),
		Acronym:        r.get("acronym"),
		SourceOfRecord: models.SourceCSVImport,
	}

	if org.OfficialName == "" {
		fieldErrs = append(fieldErrs, dErrors.FieldError{
			Line: r.line, Field: "officialName", Message: "official name is required",
		})
	}

	if branch, ok := models.ParseBranch(r.get("branch")); ok {
		org.Branch = branch
	} else {
		fieldErrs = append(fieldErrs, dErrors.FieldError{
			Line: r.line, Field: "branch", Value: r.get("branch"),
			Message: "branch must be one of executive, legislative, judicial",
		})
	}

	if orgType, ok := models.ParseOrgType(r.get("orgType")); ok {
		org.OrgType = orgType
	} else {
		fieldErrs = append(fieldErrs, dErrors.FieldError{
			Line: r.line, Field: "orgType", Value: r.get("orgType"),
			Message: "unrecognized organization type",
		})
	}

	if raw := r.get("orgLevel"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 1 || level > models.MaxOrgLevel {
			fieldErrs = append(fieldErrs, dErrors.FieldError{
				Line: r.line, Field: "orgLevel", Value: raw,
				Message: "org level must be an integer between 1 and 10",
			})
		} else {
			org.OrgLevel = level
		}
	}

	for _, dateField := range []struct {
		column string
		target **models.Date
	}{
		{"establishedDate", &org.EstablishedDate},
		{"dissolvedDate", &org.DissolvedDate},
	} {
		raw := r.get(dateField.column)
		if raw == "" {
			continue
		}
		d, err := models.ParseDate(raw)
		if err != nil {
			fieldErrs = append(fieldErrs, dErrors.FieldError{
				Line: r.line, Field: dateField.column, Value: raw,
				Message: "must be an ISO date (YYYY-MM-DD)",
			})
			continue
		}
		*dateField.target = &d
	}

	if raw := r.get("websiteUrl"); raw != "" {
		org.WebsiteURL = raw
	}
	if raw := r.get("jurisdictionAreas"); raw != "" {
		org.JurisdictionAreas = strutil.SplitTags(raw, ";")
	}

	if raw := r.get("parentId"); raw != "" {
		parentID, err := p.resolveParent(ctx, raw, batchByAcronym)
		if err != nil {
			fieldErrs = append(fieldErrs, dErrors.FieldError{
				Line: r.line, Field: "parentId", Value: raw,
				Message: err.Error(),
			})
		} else {
			org.ParentID = &parentID
		}
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}
	return org, nil
}

// resolveParent accepts either a registry UUID or an acronym, checking
// earlier rows of the same batch before the registry.
func (p *Pipeline) resolveParent(ctx context.Context, raw string, batchByAcronym map[string]uuid.UUID) (uuid.UUID, error) {
	if parentID, err := uuid.Parse(raw); err == nil {
		if _, err := p.registry.GetByID(ctx, parentID); err != nil {
			return uuid.Nil, fmt.Errorf("parent organization %s not found", raw)
		}
		return parentID, nil
	}

	if id, ok := batchByAcronym[strings.ToLower(raw)]; ok {
		return id, nil
	}
	parent, err := p.matcher.ExactMatch(ctx, raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parent organization %q not found", raw)
	}
	return parent.ID, nil
}

// duplicateAcronymLines maps each acronym appearing more than once in the
// batch to the lines carrying it.
func duplicateAcronymLines(rows []row) map[string][]int {
	byAcronym := make(map[string][]int)
	for _, r := range rows {
		acronym := strings.ToLower(r.get("acronym"))
		if acronym == "" {
			continue
		}
		byAcronym[acronym] = append(byAcronym[acronym], r.line)
	}
	for acronym, lines := range byAcronym {
		if len(lines) < 2 {
			delete(byAcronym, acronym)
		} else {
			sort.Ints(lines)
		}
	}
	return byAcronym
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = strconv.Itoa(line)
	}
	return strings.Join(parts, ", ")
}

func (p *Pipeline) countRow(outcome string) {
	if p.metrics != nil {
		p.metrics.ImportRows.WithLabelValues(outcome).Inc()
	}
}

// record persists the run to history, best effort.
func (p *Pipeline) record(ctx context.Context, started time.Time, result *Result) {
	if p.history == nil {
		return
	}
	rec := HistoryRecord{
		ID:            uuid.New(),
		StartedAt:     started,
		FinishedAt:    requestcontext.Now(ctx),
		Source:        string(models.SourceCSVImport),
		Success:       result.Success,
		Added:         result.Added,
		Updated:       result.Updated,
		Skipped:       result.Skipped,
		Errors:        result.Errors,
		Total:         result.Total,
		ErrorMessages: result.ErrorMessages,
	}
	if err := p.history.Record(ctx, rec); err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "failed to record import history", "error", err)
	}
}

func (p *Pipeline) logAudit(ctx context.Context, result *Result) {
	if p.auditPublisher == nil {
		return
	}
	err := p.auditPublisher.Emit(ctx, audit.Event{
		Action: string(audit.EventImportCompleted),
		Source: string(models.SourceCSVImport),
		Detail: fmt.Sprintf("added=%d updated=%d skipped=%d errors=%d", result.Added, result.Updated, result.Skipped, result.Errors),
	})
	if err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "failed to emit audit event", "action", string(audit.EventImportCompleted), "error", err)
	}
}
