package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govregistry/internal/matching"
	"govregistry/internal/organization/models"
	"govregistry/internal/organization/service"
	"govregistry/internal/organization/store"
)

const csvHeader = "officialName,acronym,branch,orgType,orgLevel,parentId,establishedDate,dissolvedDate,websiteUrl,jurisdictionAreas"

func newPipeline() (*Pipeline, *service.Service) {
	p, registry, _ := newPipelineWithEngine()
	return p, registry
}

func newPipelineWithEngine() (*Pipeline, *service.Service, *matching.Engine) {
	backing := store.NewInMemoryStore()
	registry := service.New(backing)
	engine := matching.NewEngine(backing)
	return New(registry, engine, WithHistory(NewInMemoryHistory())), registry, engine
}

func importCSV(t *testing.T, p *Pipeline, doc string) *Result {
	t.Helper()
	return p.Import(context.Background(), strings.NewReader(doc))
}

func TestEmptyInputFailsBeforeRowProcessing(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, "")
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Total)
	require.NotEmpty(t, result.ErrorMessages)
}

func TestHeaderOnlyInputSucceedsWithZeroCounts(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, csvHeader+"\n")
	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Errors)
}

func TestUnknownBranchIsAFieldError(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, csvHeader+"\n"+
		"House of Representatives,,congress,branch,,,,,,\n")

	assert.False(t, result.Success)
	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, "branch", result.ValidationErrors[0].Field)
	assert.Equal(t, "congress", result.ValidationErrors[0].Value)
	assert.Equal(t, 1, result.Errors)
}

func TestFirstDataRowErrorsReportLineTwo(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, csvHeader+"\n"+
		",,executive,department,,,,,,\n")

	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, 2, result.ValidationErrors[0].Line)
	assert.Equal(t, "officialName", result.ValidationErrors[0].Field)
}

func TestOneBadRowDoesNotBlockTheBatch(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, csvHeader+"\n"+
		"Department of Energy,DOE,executive,department,1,,1977-10-01,,https://energy.gov,\n"+
		"Bad Row,,independent,department,,,,,,\n"+
		"Department of Labor,DOL,executive,department,1,,,,,\n")

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 2, result.Added)
	assert.Equal(t, result.Added+result.Updated+result.Skipped+result.Errors, result.Total)
}

func TestNaturalLanguageDateIsAFieldErrorNotACrash(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, csvHeader+"\n"+
		"Department of Energy,DOE,executive,department,,,October 1 1977,,,\n")

	assert.False(t, result.Success)
	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, "establishedDate", result.ValidationErrors[0].Field)
}

func TestReimportOfUnchangedDataIsIdempotent(t *testing.T) {
	p, registry := newPipeline()
	doc := csvHeader + "\n" +
		"Department of Energy,DOE,executive,department,1,,1977-10-01,,https://energy.gov,federal\n" +
		"Department of Labor,DOL,executive,department,1,,,,,\n"

	first := importCSV(t, p, doc)
	require.True(t, first.Success)
	assert.Equal(t, 2, first.Added)

	second := importCSV(t, p, doc)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 2, second.Skipped)

	orgs, err := registry.ListAll(context.Background(), store.Page{})
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
}

func TestReimportResolvesByAcronym(t *testing.T) {
	p, registry := newPipeline()

	first := importCSV(t, p, csvHeader+"\n"+
		"Environmental Protection Agency,EPA,executive,independent_agency,,,,,,\n")
	require.True(t, first.Success)

	// Same organization under its acronym with new structural data.
	second := importCSV(t, p, csvHeader+"\n"+
		"EPA,EPA,executive,agency,2,,,,,\n")
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 1, second.Updated)

	orgs, err := registry.ListAll(context.Background(), store.Page{})
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, models.OrgTypeAgency, orgs[0].OrgType)
	assert.Equal(t, 2, orgs[0].OrgLevel)
}

func TestMergePreservesCuratedFields(t *testing.T) {
	p, registry := newPipeline()

	first := importCSV(t, p, csvHeader+"\n"+
		"Department of Energy,DOE,executive,department,,,1977-10-01,,https://energy.gov,federal\n")
	require.True(t, first.Success)

	// Re-import without the curated columns must not blank them out.
	second := importCSV(t, p, csvHeader+"\n"+
		"Department of Energy,,executive,department,2,,,,,\n")
	assert.Equal(t, 1, second.Updated)

	orgs, err := registry.ListAll(context.Background(), store.Page{})
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "DOE", orgs[0].Acronym)
	assert.Equal(t, "https://energy.gov", orgs[0].WebsiteURL)
	require.NotNil(t, orgs[0].EstablishedDate)
	assert.Equal(t, "1977-10-01", orgs[0].EstablishedDate.String())
	assert.Equal(t, []string{"federal"}, orgs[0].JurisdictionAreas)
	assert.Equal(t, 2, orgs[0].OrgLevel)
}

func TestParentResolutionByAcronymWithinBatch(t *testing.T) {
	p, _, engine := newPipelineWithEngine()

	result := importCSV(t, p, csvHeader+"\n"+
		"Department of Justice,DOJ,executive,department,1,,,,,\n"+
		"Federal Bureau of Investigation,FBI,executive,bureau,2,DOJ,,,,\n")
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Added)

	ctx := context.Background()
	fbi, err := engine.ExactMatch(ctx, "FBI")
	require.NoError(t, err)
	require.NotNil(t, fbi.ParentID)

	doj, err := engine.ExactMatch(ctx, "DOJ")
	require.NoError(t, err)
	assert.Equal(t, doj.ID, *fbi.ParentID)
}

func TestUnresolvableParentIsAFieldError(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, csvHeader+"\n"+
		"Federal Bureau of Investigation,FBI,executive,bureau,2,NOPE,,,,\n")

	assert.False(t, result.Success)
	require.Len(t, result.ValidationErrors, 1)
	assert.Equal(t, "parentId", result.ValidationErrors[0].Field)
}

func TestDuplicateAcronymsInBatchAreRejected(t *testing.T) {
	p, registry := newPipeline()

	result := importCSV(t, p, csvHeader+"\n"+
		"Department of Energy,DOE,executive,department,,,,,,\n"+
		"Department of Education,DOE,executive,department,,,,,,\n")

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Errors)
	require.NotEmpty(t, result.ValidationErrors)
	assert.Equal(t, "acronym", result.ValidationErrors[0].Field)

	orgs, err := registry.ListAll(context.Background(), store.Page{})
	require.NoError(t, err)
	assert.Empty(t, orgs)
}

func TestBOMAndBlankRowsAreTolerated(t *testing.T) {
	p, _ := newPipeline()

	doc := "\xEF\xBB\xBF" + csvHeader + "\n" +
		"Department of Energy,DOE,executive,department,,,,,,\n" +
		",,,,,,,,,\n"
	result := importCSV(t, p, doc)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Total)
}

func TestMissingRequiredHeaderFailsStructurally(t *testing.T) {
	p, _ := newPipeline()

	result := importCSV(t, p, "officialName,acronym\nDepartment of Energy,DOE\n")
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Total)
	require.NotEmpty(t, result.ErrorMessages)
	assert.Contains(t, result.ErrorMessages[0], "branch")
}
