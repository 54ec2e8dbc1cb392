package domain

import "fmt"

// GroupRef names a group as it appears on an inbound result. A nil Description
// and an empty one are different groups.
type GroupRef struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// ResultPayload is the transient description of a search result as it arrives
// with a request. It is never persisted as-is; the resolver maps it onto a
// canonical Result.
type ResultPayload struct {
	Title                    string     `json:"title"`
	URL                      string     `json:"url"`
	Description              string     `json:"description"`
	Portal                   string     `json:"portal"`
	OwnerOrg                 *string    `json:"owner_org,omitempty"`
	OwnerOrgDescription      *string    `json:"owner_org_description,omitempty"`
	Maintainer               *string    `json:"maintainer,omitempty"`
	DatasetPublicationDate   *string    `json:"dataset_publication_date,omitempty"`
	DatasetModificationDate  *string    `json:"dataset_modification_date,omitempty"`
	MetadataCreationDate     *string    `json:"metadata_creation_date,omitempty"`
	MetadataModificationDate *string    `json:"metadata_modification_date,omitempty"`
	Tags                     []string   `json:"tags,omitempty"`
	Groups                   []GroupRef `json:"groups,omitempty"`
}

// Result is the canonical, store-backed representation of a result.
type Result struct {
	ID          int64
	IdentityKey string
	ResultPayload
}

// Tag is unique per (Name, Portal).
type Tag struct {
	ID     int64
	Name   string
	Portal string
}

// Group is unique per (Name, Description, Portal).
type Group struct {
	ID          int64
	Name        string
	Description *string
	Portal      string
}

// WithPortal returns a copy of the payload scoped to portal when the payload
// does not carry one itself.
func (p ResultPayload) WithPortal(portal string) ResultPayload {
	if p.Portal == "" {
		p.Portal = portal
	}
	return p
}

// ValidateResultPayload validates an inbound result before resolution
func ValidateResultPayload(p *ResultPayload) error {
	if p == nil {
		return fmt.Errorf("result payload cannot be nil")
	}

	if p.Portal == "" {
		return ErrMissingPortal
	}

	for _, tag := range p.Tags {
		if tag == "" {
			return NewDomainErrorWithCause(ErrCodeValidation, "result tag name is required", ErrMissingRequiredField)
		}
	}

	for _, g := range p.Groups {
		if g.Name == "" {
			return NewDomainErrorWithCause(ErrCodeValidation, "result group name is required", ErrMissingRequiredField)
		}
	}

	return nil
}
