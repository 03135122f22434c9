package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"govregistry/internal/organization/models"
)

// PostgresStore persists organizations in PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const orgColumns = `
	id,
	official_name,
	acronym,
	branch,
	org_type,
	org_level,
	parent_id,
	jurisdiction_areas,
	established_date,
	dissolved_date,
	website_url,
	mission,
	description,
	former_names,
	metadata,
	source_of_record,
	created_at,
	updated_at`

func (s *PostgresStore) Save(ctx context.Context, org *models.GovernmentOrganization) error {
	var established, dissolved *time.Time
	if org.EstablishedDate != nil {
		established = &org.EstablishedDate.Time
	}
	if org.DissolvedDate != nil {
		dissolved = &org.DissolvedDate.Time
	}

	_, err := s.pool.Exec(ctx, `
INSERT INTO government_organizations (`+orgColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
ON CONFLICT (id) DO UPDATE SET
	official_name = EXCLUDED.official_name,
	acronym = EXCLUDED.acronym,
	branch = EXCLUDED.branch,
	org_type = EXCLUDED.org_type,
	org_level = EXCLUDED.org_level,
	parent_id = EXCLUDED.parent_id,
	jurisdiction_areas = EXCLUDED.jurisdiction_areas,
	established_date = EXCLUDED.established_date,
	dissolved_date = EXCLUDED.dissolved_date,
	website_url = EXCLUDED.website_url,
	mission = EXCLUDED.mission,
	description = EXCLUDED.description,
	former_names = EXCLUDED.former_names,
	metadata = EXCLUDED.metadata,
	source_of_record = EXCLUDED.source_of_record,
	updated_at = EXCLUDED.updated_at
`,
		org.ID,
		org.OfficialName,
		org.Acronym,
		string(org.Branch),
		string(org.OrgType),
		org.OrgLevel,
		org.ParentID,
		org.JurisdictionAreas,
		established,
		dissolved,
		org.WebsiteURL,
		org.Mission,
		org.Description,
		org.FormerNames,
		org.Metadata,
		string(org.SourceOfRecord),
		org.CreatedAt,
		org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save organization: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.GovernmentOrganization, error) {
	row := s.pool.QueryRow(ctx, `
SELECT `+orgColumns+`
FROM government_organizations
WHERE id = $1
`, id)

	org, err := scanOrganization(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return org, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter, page Page) ([]*models.GovernmentOrganization, error) {
	query, args := buildListQuery(filter, page)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()
	return collectOrganizations(rows)
}

func (s *PostgresStore) ListByParent(ctx context.Context, parentID uuid.UUID) ([]*models.GovernmentOrganization, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+orgColumns+`
FROM government_organizations
WHERE parent_id = $1
ORDER BY created_at, id
`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()
	return collectOrganizations(rows)
}

func (s *PostgresStore) ListTopLevel(ctx context.Context) ([]*models.GovernmentOrganization, error) {
	rows, err := s.pool.Query(ctx, `
SELECT `+orgColumns+`
FROM government_organizations
WHERE parent_id IS NULL
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("list top level: %w", err)
	}
	defer rows.Close()
	return collectOrganizations(rows)
}

func (s *PostgresStore) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM government_organizations`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count organizations: %w", err)
	}
	return n, nil
}

func buildWhere(filter Filter) (string, []any) {
	var clauses []string
	var args []any
	if filter.ActiveOnly {
		clauses = append(clauses, "dissolved_date IS NULL")
	}
	if filter.OrgType != "" {
		args = append(args, strings.ToLower(filter.OrgType))
		clauses = append(clauses, fmt.Sprintf("org_type = $%d", len(args)))
	}
	if filter.Branch != "" {
		args = append(args, strings.ToLower(filter.Branch))
		clauses = append(clauses, fmt.Sprintf("branch = $%d", len(args)))
	}
	if filter.Jurisdiction != "" {
		args = append(args, filter.Jurisdiction)
		clauses = append(clauses, fmt.Sprintf("$%d ILIKE ANY(jurisdiction_areas)", len(args)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildListQuery(filter Filter, page Page) (string, []any) {
	where, args := buildWhere(filter)
	query := `SELECT ` + orgColumns + ` FROM government_organizations` + where + ` ORDER BY created_at, id`
	if page.Limit > 0 {
		args = append(args, page.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if page.Offset > 0 {
		args = append(args, page.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func collectOrganizations(rows pgx.Rows) ([]*models.GovernmentOrganization, error) {
	var out []*models.GovernmentOrganization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}
	return out, nil
}

func scanOrganization(row pgx.Row) (*models.GovernmentOrganization, error) {
	var (
		org         models.GovernmentOrganization
		branch      string
		orgType     string
		source      string
		established *time.Time
		dissolved   *time.Time
	)
	err := row.Scan(
		&org.ID,
		&org.OfficialName,
		&org.Acronym,
		&branch,
		&orgType,
		&org.OrgLevel,
		&org.ParentID,
		&org.JurisdictionAreas,
		&established,
		&dissolved,
		&org.WebsiteURL,
		&org.Mission,
		&org.Description,
		&org.FormerNames,
		&org.Metadata,
		&source,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	org.Branch = models.Branch(branch)
	org.OrgType = models.OrgType(orgType)
	org.SourceOfRecord = models.SourceOfRecord(source)
	if established != nil {
		d := models.DateOf(*established)
		org.EstablishedDate = &d
	}
	if dissolved != nil {
		d := models.DateOf(*dissolved)
		org.DissolvedDate = &d
	}
	return &org, nil
}
