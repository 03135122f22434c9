// Package matching resolves organization identity: exact, fuzzy and
// full-text lookup over registry data, plus confidence-scored validation
// of free-text entity mentions.
package matching

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"govregistry/internal/organization/metrics"
	"govregistry/internal/organization/models"
	"govregistry/internal/organization/store"
	dErrors "govregistry/pkg/domain-errors"
)

// CandidateSource supplies the organizations the engine matches against.
// The registry service and both stores satisfy it.
type CandidateSource interface {
	List(ctx context.Context, filter store.Filter, page store.Page) ([]*models.GovernmentOrganization, error)
}

// minFuzzyQueryLen keeps short generic queries from matching everything.
const minFuzzyQueryLen = 3

// maxSuggestions bounds the alternatives offered for a mention.
const maxSuggestions = 3

// Engine implements the matching operations.
type Engine struct {
	source  CandidateSource
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine constructs an Engine over a candidate source.
func NewEngine(source CandidateSource, opts ...Option) *Engine {
	e := &Engine{source: source}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExactMatch finds the single active organization whose official name or
// acronym equals the query, case-insensitively. When historical duplicates
// collide, the most recently updated record wins; identifiers break the
// final tie so the result is stable.
func (e *Engine) ExactMatch(ctx context.Context, nameOrAcronym string) (*models.GovernmentOrganization, error) {
	defer e.observe("exact", time.Now())

	query := strings.TrimSpace(nameOrAcronym)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "no organization matches an empty name")
	}

	candidates, err := e.activeCandidates(ctx)
	if err != nil {
		return nil, err
	}

	var matches []*models.GovernmentOrganization
	for _, org := range candidates {
		if strings.EqualFold(org.OfficialName, query) || (org.Acronym != "" && strings.EqualFold(org.Acronym, query)) {
			matches = append(matches, org)
		}
	}
	if len(matches) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no organization matches %q", query)
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].ID.String() < matches[j].ID.String()
	})
	return matches[0], nil
}

// FuzzySearch returns active organizations whose official name or acronym
// is within a bounded edit distance of the query, best match first.
// Queries shorter than three characters return no results.
func (e *Engine) FuzzySearch(ctx context.Context, query string) ([]*models.GovernmentOrganization, error) {
	defer e.observe("fuzzy", time.Now())

	query = strings.TrimSpace(query)
	if len(query) < minFuzzyQueryLen {
		return []*models.GovernmentOrganization{}, nil
	}

	candidates, err := e.activeCandidates(ctx)
	if err != nil {
		return nil, err
	}

	ranked := rankFuzzy(query, candidates)
	out := make([]*models.GovernmentOrganization, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.org)
	}
	return out, nil
}

// FullTextSearch ranks active organizations by token overlap with the
// query across name, acronym, mission, description and jurisdictions.
// Official name tokens weigh most heavily.
func (e *Engine) FullTextSearch(ctx context.Context, query string) ([]*models.GovernmentOrganization, error) {
	defer e.observe("fulltext", time.Now())

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []*models.GovernmentOrganization{}, nil
	}

	candidates, err := e.activeCandidates(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		org   *models.GovernmentOrganization
		score int
	}
	var results []scored
	for _, org := range candidates {
		nameTokens := tokenSet(org.OfficialName)
		acronymTokens := tokenSet(org.Acronym)
		otherTokens := tokenSet(strings.Join(append([]string{org.Mission, org.Description}, org.JurisdictionAreas...), " "))

		score := 0
		for _, token := range tokens {
			switch {
			case nameTokens[token]:
				score += 3
			case acronymTokens[token]:
				score += 2
			case otherTokens[token]:
				score++
			}
		}
		if score > 0 {
			results = append(results, scored{org: org, score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].org.OfficialName < results[j].org.OfficialName
	})

	out := make([]*models.GovernmentOrganization, 0, len(results))
	for _, r := range results {
		out = append(out, r.org)
	}
	return out, nil
}

func (e *Engine) activeCandidates(ctx context.Context) ([]*models.GovernmentOrganization, error) {
	orgs, err := e.source.List(ctx, store.Filter{ActiveOnly: true}, store.Page{})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load match candidates")
	}
	return orgs, nil
}

func (e *Engine) observe(kind string, start time.Time) {
	if e.metrics != nil {
		e.metrics.SearchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

type fuzzyRank struct {
	org      *models.GovernmentOrganization
	distance int
}

// rankFuzzy matches the query against every candidate's official name and
// acronym, keeping the best edit distance per organization. A candidate
// qualifies when the query is a normalized subsequence of the field or the
// Levenshtein distance stays within the per-query budget, so a single
// insertion, deletion or substitution never loses an otherwise-correct name.
func rankFuzzy(query string, candidates []*models.GovernmentOrganization) []fuzzyRank {
	budget := editBudget(query)
	q := strings.ToLower(query)

	best := make(map[int]int)
	for i, org := range candidates {
		fields := []string{org.OfficialName}
		if org.Acronym != "" {
			fields = append(fields, org.Acronym)
		}
		for _, field := range fields {
			distance := fuzzy.LevenshteinDistance(q, strings.ToLower(field))
			if distance > budget && !fuzzy.MatchNormalizedFold(query, field) {
				continue
			}
			if current, ok := best[i]; !ok || distance < current {
				best[i] = distance
			}
		}
	}

	ranked := make([]fuzzyRank, 0, len(best))
	for i, distance := range best {
		ranked = append(ranked, fuzzyRank{org: candidates[i], distance: distance})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].org.OfficialName < ranked[j].org.OfficialName
	})
	return ranked
}

// editBudget scales tolerated edits with query length: one edit for short
// queries, one more for every additional eight characters.
func editBudget(query string) int {
	return 1 + len(query)/8
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range tokenize(s) {
		set[token] = true
	}
	return set
}
