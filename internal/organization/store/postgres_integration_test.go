//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"govregistry/internal/organization/models"
	"govregistry/internal/organization/store"
	"govregistry/pkg/platform/sentinel"
	"govregistry/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "government_organizations"))
}

func newPGOrg(name string, parent *uuid.UUID) *models.GovernmentOrganization {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.GovernmentOrganization{
		ID:                uuid.New(),
		OfficialName:      name,
		Acronym:           "",
		Branch:            models.BranchExecutive,
		OrgType:           models.OrgTypeDepartment,
		ParentID:          parent,
		JurisdictionAreas: []string{"federal"},
		Metadata:          map[string]string{"origin": "test"},
		SourceOfRecord:    models.SourceManual,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (s *PostgresStoreSuite) TestSaveRoundTrip() {
	ctx := context.Background()

	established, err := models.ParseDate("1977-10-01")
	s.Require().NoError(err)
	org := newPGOrg("Department of Energy", nil)
	org.Acronym = "DOE"
	org.EstablishedDate = &established
	org.FormerNames = []string{"Energy Research and Development Administration"}

	s.Require().NoError(s.store.Save(ctx, org))

	found, err := s.store.FindByID(ctx, org.ID)
	s.Require().NoError(err)
	s.Equal("Department of Energy", found.OfficialName)
	s.Equal("DOE", found.Acronym)
	s.Equal(models.BranchExecutive, found.Branch)
	s.Require().NotNil(found.EstablishedDate)
	s.Equal("1977-10-01", found.EstablishedDate.String())
	s.Equal([]string{"federal"}, found.JurisdictionAreas)
	s.Equal("test", found.Metadata["origin"])
}

func (s *PostgresStoreSuite) TestSaveUpsertsOnConflict() {
	ctx := context.Background()

	org := newPGOrg("Department of War", nil)
	s.Require().NoError(s.store.Save(ctx, org))

	org.OfficialName = "Department of Defense"
	org.UpdatedAt = org.UpdatedAt.Add(time.Second)
	s.Require().NoError(s.store.Save(ctx, org))

	found, err := s.store.FindByID(ctx, org.ID)
	s.Require().NoError(err)
	s.Equal("Department of Defense", found.OfficialName)

	n, err := s.store.Count(ctx, store.Filter{})
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *PostgresStoreSuite) TestFindUnknownIsNotFound() {
	_, err := s.store.FindByID(context.Background(), uuid.New())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListAndHierarchy() {
	ctx := context.Background()

	parent := newPGOrg("Department of Justice", nil)
	s.Require().NoError(s.store.Save(ctx, parent))
	child := newPGOrg("Federal Bureau of Investigation", &parent.ID)
	child.OrgType = models.OrgTypeBureau
	child.CreatedAt = parent.CreatedAt.Add(time.Second)
	s.Require().NoError(s.store.Save(ctx, child))
	dissolved := newPGOrg("Interstate Commerce Commission", nil)
	gone := models.DateOf(time.Now())
	dissolved.DissolvedDate = &gone
	dissolved.CreatedAt = parent.CreatedAt.Add(2 * time.Second)
	s.Require().NoError(s.store.Save(ctx, dissolved))

	active, err := s.store.List(ctx, store.Filter{ActiveOnly: true}, store.Page{})
	s.Require().NoError(err)
	s.Len(active, 2)

	bureaus, err := s.store.List(ctx, store.Filter{OrgType: "BUREAU"}, store.Page{})
	s.Require().NoError(err)
	s.Require().Len(bureaus, 1)
	s.Equal(child.ID, bureaus[0].ID)

	children, err := s.store.ListByParent(ctx, parent.ID)
	s.Require().NoError(err)
	s.Require().Len(children, 1)
	s.Equal(child.ID, children[0].ID)

	top, err := s.store.ListTopLevel(ctx)
	s.Require().NoError(err)
	s.Len(top, 2)
	for _, org := range top {
		s.Nil(org.ParentID)
	}
}
