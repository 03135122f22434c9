package handler

import (
	"github.com/google/uuid"

	"govregistry/internal/organization/models"
	dErrors "govregistry/pkg/domain-errors"
)

// organizationRequest is the write payload for create and update. Dates
// arrive as ISO calendar strings and are parsed here so a malformed date
// surfaces as a field error rather than a decode failure.
type organizationRequest struct {
	OfficialName      string            `json:"official_name"`
	Acronym           string            `json:"acronym"`
	Branch            string            `json:"branch"`
	OrgType           string            `json:"org_type"`
	OrgLevel          int               `json:"org_level"`
	ParentID          string            `json:"parent_id"`
	JurisdictionAreas []string          `json:"jurisdiction_areas"`
	EstablishedDate   string            `json:"established_date"`
	DissolvedDate     string            `json:"dissolved_date"`
	WebsiteURL        string            `json:"website_url"`
	Mission           string            `json:"mission"`
	Description       string            `json:"description"`
	FormerNames       []string          `json:"former_names"`
	Metadata          map[string]string `json:"metadata"`
}

func (r organizationRequest) toModel() (*models.GovernmentOrganization, []dErrors.FieldError) {
	var fieldErrs []dErrors.FieldError

	org := &models.GovernmentOrganization{
		OfficialName:      r.OfficialName,
		Acronym:           r.Acronym,
		Branch:            models.Branch(r.Branch),
		OrgType:           models.OrgType(r.OrgType),
		OrgLevel:          r.OrgLevel,
		JurisdictionAreas: r.JurisdictionAreas,
		WebsiteURL:        r.WebsiteURL,
		Mission:           r.Mission,
		Description:       r.Description,
		FormerNames:       r.FormerNames,
		Metadata:          r.Metadata,
	}

	if r.ParentID != "" {
		parentID, err := uuid.Parse(r.ParentID)
		if err != nil {
			fieldErrs = append(fieldErrs, dErrors.FieldError{
				Field:   "parentId",
				Value:   r.ParentID,
				Message: "parent id must be a UUID",
			})
		} else {
			org.ParentID = &parentID
		}
	}
	if r.EstablishedDate != "" {
		d, err := models.ParseDate(r.EstablishedDate)
		if err != nil {
			fieldErrs = append(fieldErrs, dErrors.FieldError{
				Field:   "establishedDate",
				Value:   r.EstablishedDate,
				Message: "must be an ISO date (YYYY-MM-DD)",
			})
		} else {
			org.EstablishedDate = &d
		}
	}
	if r.DissolvedDate != "" {
		d, err := models.ParseDate(r.DissolvedDate)
		if err != nil {
			fieldErrs = append(fieldErrs, dErrors.FieldError{
				Field:   "dissolvedDate",
				Value:   r.DissolvedDate,
				Message: "must be an ISO date (YYYY-MM-DD)",
			})
		} else {
			org.DissolvedDate = &d
		}
	}

	return org, fieldErrs
}
