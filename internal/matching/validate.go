package matching

import (
	"context"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"govregistry/internal/organization/models"
	dErrors "govregistry/pkg/domain-errors"
)

// MatchType classifies how a mention resolved.
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "none"
)

// ValidationResult is the structured answer for a free-text mention.
// Confidence below 0.5 means "no usable match" to the caller.
type ValidationResult struct {
	Matched             bool                           `json:"matched"`
	MatchType           MatchType                      `json:"match_type"`
	Confidence          float64                        `json:"confidence"`
	MatchedOrganization *models.GovernmentOrganization `json:"matched_organization,omitempty"`
	StandardizedName    string                         `json:"standardized_name,omitempty"`
	Suggestions         []string                       `json:"suggestions,omitempty"`
}

// Clone deep-copies the result so cached values never share state with
// callers.
func (r *ValidationResult) Clone() *ValidationResult {
	if r == nil {
		return nil
	}
	cp := *r
	if r.MatchedOrganization != nil {
		cp.MatchedOrganization = r.MatchedOrganization.Clone()
	}
	cp.Suggestions = append([]string(nil), r.Suggestions...)
	return &cp
}

// ValidateEntityMention resolves free text against the registry: exact
// match first, fuzzy fallback second. It never fails for unmatched input;
// the zero-confidence result is the answer. The type hint narrows the
// fuzzy candidate pool but never excludes acronym-only matches.
func (e *Engine) ValidateEntityMention(ctx context.Context, text, entityTypeHint string) (*ValidationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return &ValidationResult{Matched: false, MatchType: MatchNone}, nil
	}

	org, err := e.ExactMatch(ctx, text)
	if err == nil {
		return &ValidationResult{
			Matched:             true,
			MatchType:           MatchExact,
			Confidence:          1.0,
			MatchedOrganization: org,
			StandardizedName:    org.OfficialName,
		}, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, err
	}

	candidates, err := e.hintedCandidates(ctx, text, entityTypeHint)
	if err != nil {
		return nil, err
	}

	ranked := rankFuzzy(text, candidates)
	if len(ranked) == 0 {
		return &ValidationResult{
			Matched:     false,
			MatchType:   MatchNone,
			Suggestions: e.suggest(ctx, text),
		}, nil
	}

	top := ranked[0]
	suggestions := make([]string, 0, maxSuggestions)
	for _, r := range ranked[1:] {
		if len(suggestions) == maxSuggestions {
			break
		}
		suggestions = append(suggestions, r.org.OfficialName)
	}

	return &ValidationResult{
		Matched:             true,
		MatchType:           MatchFuzzy,
		Confidence:          fuzzyConfidence(top.distance),
		MatchedOrganization: top.org,
		StandardizedName:    top.org.OfficialName,
		Suggestions:         suggestions,
	}, nil
}

// hintedCandidates applies the entity type hint when it names a known
// organization type. Candidates whose acronym is within the fuzzy edit
// budget of the mention stay in regardless of type, so a hint never
// excludes an acronym match, typo included.
func (e *Engine) hintedCandidates(ctx context.Context, text, hint string) ([]*models.GovernmentOrganization, error) {
	all, err := e.activeCandidates(ctx)
	if err != nil {
		return nil, err
	}

	orgType, ok := models.ParseOrgType(hint)
	if !ok {
		return all, nil
	}

	budget := editBudget(text)
	query := strings.ToLower(text)
	filtered := make([]*models.GovernmentOrganization, 0, len(all))
	for _, org := range all {
		if org.OrgType == orgType || acronymNear(query, org.Acronym, budget) {
			filtered = append(filtered, org)
		}
	}
	return filtered, nil
}

func acronymNear(query, acronym string, budget int) bool {
	if acronym == "" {
		return false
	}
	return fuzzy.LevenshteinDistance(query, strings.ToLower(acronym)) <= budget
}

// suggest offers near misses from full-text search when fuzzy matching
// found nothing usable.
func (e *Engine) suggest(ctx context.Context, text string) []string {
	orgs, err := e.FullTextSearch(ctx, text)
	if err != nil || len(orgs) == 0 {
		return nil
	}
	if len(orgs) > maxSuggestions {
		orgs = orgs[:maxSuggestions]
	}
	names := make([]string, 0, len(orgs))
	for _, org := range orgs {
		names = append(names, org.OfficialName)
	}
	return names
}

// fuzzyConfidence maps edit distance onto the 0.5..0.95 band: one edit
// away scores 0.85, each further edit costs a tenth.
func fuzzyConfidence(distance int) float64 {
	confidence := 0.95 - 0.1*float64(distance)
	if confidence < 0.5 {
		confidence = 0.5
	}
	return confidence
}
