package models

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "govregistry/pkg/domain-errors"
)

// Branch is the governmental branch an organization belongs to.
// Exactly three values exist; independent agencies sit under the
// executive branch rather than forming a branch of their own.
type Branch string

const (
	BranchExecutive   Branch = "executive"
	BranchLegislative Branch = "legislative"
	BranchJudicial    Branch = "judicial"
)

// ParseBranch matches a branch token case-insensitively.
func ParseBranch(s string) (Branch, bool) {
	switch Branch(strings.ToLower(strings.TrimSpace(s))) {
	case BranchExecutive:
		return BranchExecutive, true
	case BranchLegislative:
		return BranchLegislative, true
	case BranchJudicial:
		return BranchJudicial, true
	}
	return "", false
}

// Branches lists all valid branch tokens.
func Branches() []Branch {
	return []Branch{BranchExecutive, BranchLegislative, BranchJudicial}
}

// OrgType classifies the organizational unit.
type OrgType string

const (
	OrgTypeBranch            OrgType = "branch"
	OrgTypeDepartment        OrgType = "department"
	OrgTypeAgency            OrgType = "agency"
	OrgTypeIndependentAgency OrgType = "independent_agency"
	OrgTypeBureau            OrgType = "bureau"
	OrgTypeOffice            OrgType = "office"
	OrgTypeCommission        OrgType = "commission"
	OrgTypeBoard             OrgType = "board"
)

// ParseOrgType matches an organization type token case-insensitively.
func ParseOrgType(s string) (OrgType, bool) {
	switch OrgType(strings.ToLower(strings.TrimSpace(s))) {
	case OrgTypeBranch:
		return OrgTypeBranch, true
	case OrgTypeDepartment:
		return OrgTypeDepartment, true
	case OrgTypeAgency:
		return OrgTypeAgency, true
	case OrgTypeIndependentAgency:
		return OrgTypeIndependentAgency, true
	case OrgTypeBureau:
		return OrgTypeBureau, true
	case OrgTypeOffice:
		return OrgTypeOffice, true
	case OrgTypeCommission:
		return OrgTypeCommission, true
	case OrgTypeBoard:
		return OrgTypeBoard, true
	}
	return "", false
}

// SourceOfRecord identifies which ingestion path last wrote a record.
type SourceOfRecord string

const (
	SourceManual       SourceOfRecord = "MANUAL"
	SourceCSVImport    SourceOfRecord = "CSV_IMPORT"
	SourceExternalSync SourceOfRecord = "EXTERNAL_SYNC"
)

// MaxOrgLevel bounds the depth hint an organization may carry.
const MaxOrgLevel = 10

// GovernmentOrganization is the aggregate root of the directory.
//
// Invariants:
//   - OfficialName is non-empty
//   - Branch and OrgType are recognized enum tokens
//   - The parent chain via ParentID terminates without revisiting a node
//   - DissolvedDate, when set alongside EstablishedDate, is not earlier
//
// Dissolution is the only deletion: a dissolved organization stays in the
// hierarchy and in all traversals, and is excluded only from active listings.
type GovernmentOrganization struct {
	ID                uuid.UUID         `json:"id"`
	OfficialName      string            `json:"official_name"`
	Acronym           string            `json:"acronym,omitempty"`
	Branch            Branch            `json:"branch"`
	OrgType           OrgType           `json:"org_type"`
	OrgLevel          int               `json:"org_level,omitempty"`
	ParentID          *uuid.UUID        `json:"parent_id,omitempty"`
	JurisdictionAreas []string          `json:"jurisdiction_areas,omitempty"`
	EstablishedDate   *Date             `json:"established_date,omitempty"`
	DissolvedDate     *Date             `json:"dissolved_date,omitempty"`
	WebsiteURL        string            `json:"website_url,omitempty"`
	Mission           string            `json:"mission,omitempty"`
	Description       string            `json:"description,omitempty"`
	FormerNames       []string          `json:"former_names,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	SourceOfRecord    SourceOfRecord    `json:"source_of_record"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// IsActive derives activity from dissolution so the two can never disagree.
func (o *GovernmentOrganization) IsActive() bool {
	return o.DissolvedDate == nil
}

// Validate checks field-level invariants and returns one entry per
// offending field. An empty slice means the organization is well formed.
func (o *GovernmentOrganization) Validate() []dErrors.FieldError {
	var errs []dErrors.FieldError

	if strings.TrimSpace(o.OfficialName) == "" {
		errs = append(errs, dErrors.FieldError{
			Field:   "officialName",
			Value:   o.OfficialName,
			Message: "official name is required",
		})
	}
	if _, ok := ParseBranch(string(o.Branch)); !ok {
		errs = append(errs, dErrors.FieldError{
			Field:   "branch",
			Value:   string(o.Branch),
			Message: "branch must be one of executive, legislative, judicial",
		})
	}
	if _, ok := ParseOrgType(string(o.OrgType)); !ok {
		errs = append(errs, dErrors.FieldError{
			Field:   "orgType",
			Value:   string(o.OrgType),
			Message: "unrecognized organization type",
		})
	}
	// OrgLevel zero means the depth hint was not provided.
	if o.OrgLevel != 0 && (o.OrgLevel < 1 || o.OrgLevel > MaxOrgLevel) {
		errs = append(errs, dErrors.FieldError{
			Field:   "orgLevel",
			Value:   strconv.Itoa(o.OrgLevel),
			Message: "org level must be between 1 and 10",
		})
	}
	if o.EstablishedDate != nil && o.DissolvedDate != nil && o.DissolvedDate.Before(o.EstablishedDate.Time) {
		errs = append(errs, dErrors.FieldError{
			Field:   "dissolvedDate",
			Value:   o.DissolvedDate.String(),
			Message: "dissolved date cannot precede established date",
		})
	}
	if o.WebsiteURL != "" {
		if u, err := url.Parse(o.WebsiteURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, dErrors.FieldError{
				Field:   "websiteUrl",
				Value:   o.WebsiteURL,
				Message: "website URL must be absolute",
			})
		}
	}

	return errs
}

// Clone returns a deep copy so callers can mutate results without
// aliasing store-held state.
func (o *GovernmentOrganization) Clone() *GovernmentOrganization {
	cp := *o
	if o.ParentID != nil {
		p := *o.ParentID
		cp.ParentID = &p
	}
	if o.EstablishedDate != nil {
		d := *o.EstablishedDate
		cp.EstablishedDate = &d
	}
	if o.DissolvedDate != nil {
		d := *o.DissolvedDate
		cp.DissolvedDate = &d
	}
	cp.JurisdictionAreas = append([]string(nil), o.JurisdictionAreas...)
	cp.FormerNames = append([]string(nil), o.FormerNames...)
	if o.Metadata != nil {
		cp.Metadata = make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
