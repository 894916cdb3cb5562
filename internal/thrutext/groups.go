package thrutext

import (
	"context"
	"errors"
	"net/http"

	"github.com/GetThruTools/ThruText-API/internal/fieldmap"
)

const groupsResource = "groups"

// Group statuses reported by the API.
const (
	GroupStatusArchived = "archived"
)

// ContactCounts tallies a group's contacts by validation state.
type ContactCounts struct {
	Unvalidated int `json:"unvalidated"`
	Valid       int `json:"valid"`
	OptedOut    int `json:"opted_out"`
	Invalid     int `json:"invalid"`
}

// Group is a contact list built from an uploaded CSV.
type Group struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Status             string        `json:"status"`
	AccountID          string        `json:"account_id"`
	CountryID          string        `json:"country_id"`
	UploadFailedReason string        `json:"upload_failed_reason"`
	Contacts           ContactCounts `json:"contacts"`
	CampaignIDs        []string      `json:"campaign_ids"`
	ImportIDs          []string      `json:"import_ids"`
	CustomFieldIDs     []string      `json:"custom_field_ids"`
}

type groupAttributes struct {
	Name               string        `json:"name"`
	Status             string        `json:"status"`
	AccountID          ID            `json:"account_id"`
	CountryID          string        `json:"country_id"`
	UploadFailedReason string        `json:"upload_failed_reason"`
	ContactCounts      ContactCounts `json:"contact_counts"`
}

// CreateGroupParams describes a group upload. Rows[0] is the header row; the
// server skips it when importing contacts.
type CreateGroupParams struct {
	Name      string                  `json:"name" validate:"required,max=255"`
	CountryID string                  `json:"country_id"`
	Mapping   *fieldmap.ColumnMapping `json:"mapping" validate:"required"`
	Rows      [][]string              `json:"rows" validate:"min=2"`
}

type createGroupAttributes struct {
	Name              string                  `json:"name"`
	CountryID         string                  `json:"country_id"`
	TimeZone          string                  `json:"time_zone"`
	GroupCustomFields []fieldmap.CustomColumn `json:"group_custom_fields"`
	Import            groupImport             `json:"import"`
}

type groupImport struct {
	CSVData [][]string               `json:"csv_data"`
	Mapping fieldmap.CriticalMapping `json:"mapping"`
}

func toGroup(r resource[groupAttributes]) Group {
	return Group{
		ID:                 r.id(),
		Name:               r.Attributes.Name,
		Status:             r.Attributes.Status,
		AccountID:          string(r.Attributes.AccountID),
		CountryID:          r.Attributes.CountryID,
		UploadFailedReason: r.Attributes.UploadFailedReason,
		Contacts:           r.Attributes.ContactCounts,
		CampaignIDs:        r.Relationships["campaigns"].IDs(),
		ImportIDs:          r.Relationships["import"].IDs(),
		CustomFieldIDs:     r.Relationships["custom_fields"].IDs(),
	}
}

// ListGroups returns the account's groups.
func (c *Client) ListGroups(ctx context.Context, params *Params) ([]Group, error) {
	path, err := c.accountPath(ctx, groupsResource)
	if err != nil {
		return nil, wrapError("listGroups", groupsResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, wrapError("listGroups", groupsResource, "", err)
	}
	doc, err := decodeList[groupAttributes](body)
	if err != nil {
		return nil, wrapError("listGroups", groupsResource, "", err)
	}

	groups := make([]Group, 0, len(doc.Data))
	for _, r := range doc.Data {
		groups = append(groups, toGroup(r))
	}
	return groups, nil
}

// GetGroup retrieves one group.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	path, err := c.accountPath(ctx, groupsResource, groupID)
	if err != nil {
		return nil, wrapError("getGroup", groupsResource, groupID, err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, wrapError("getGroup", groupsResource, groupID, err)
	}
	doc, err := decodeDocument[groupAttributes](body)
	if err != nil {
		return nil, wrapError("getGroup", groupsResource, groupID, err)
	}
	group := toGroup(doc.Data)
	return &group, nil
}

// CreateGroup uploads rows as a new group using a column mapping.
func (c *Client) CreateGroup(ctx context.Context, params CreateGroupParams) (*Group, error) {
	if err := c.validate.Validate(params); err != nil {
		return nil, err
	}
	if err := checkMappingFits(params.Mapping, len(params.Rows[0])); err != nil {
		return nil, wrapError("createGroup", groupsResource, "", err)
	}
	if params.CountryID == "" {
		params.CountryID = "US"
	}

	path, err := c.accountPath(ctx, groupsResource)
	if err != nil {
		return nil, wrapError("createGroup", groupsResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, newPayload(createGroupAttributes{
		Name:              params.Name,
		CountryID:         params.CountryID,
		GroupCustomFields: params.Mapping.Custom,
		Import: groupImport{
			CSVData: params.Rows,
			Mapping: params.Mapping.Critical,
		},
	}))
	if err != nil {
		return nil, wrapError("createGroup", groupsResource, "", err)
	}
	doc, err := decodeDocument[groupAttributes](body)
	if err != nil {
		return nil, wrapError("createGroup", groupsResource, "", err)
	}

	group := toGroup(doc.Data)
	c.logger.Info("created group", "group_id", group.ID, "name", group.Name, "rows", len(params.Rows)-1)
	return &group, nil
}

// ArchiveGroup marks a group archived.
func (c *Client) ArchiveGroup(ctx context.Context, groupID string) error {
	path, err := c.accountPath(ctx, groupsResource, groupID)
	if err != nil {
		return wrapError("archiveGroup", groupsResource, groupID, err)
	}
	p := newPayload(map[string]string{"status": GroupStatusArchived})
	p.Data.ID = groupID
	if _, err := c.doRequest(ctx, http.MethodPatch, path, nil, p); err != nil {
		return wrapError("archiveGroup", groupsResource, groupID, err)
	}
	return nil
}

var errMappingOutOfRange = errors.New("mapping references a column beyond the header row")

func checkMappingFits(m *fieldmap.ColumnMapping, width int) error {
	for _, col := range m.Columns() {
		if col < 0 || col >= width {
			return errMappingOutOfRange
		}
	}
	return nil
}
