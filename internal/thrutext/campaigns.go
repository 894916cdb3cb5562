package thrutext

import (
	"context"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata" // US/* zones on hosts without a zoneinfo database

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
	"github.com/GetThruTools/ThruText-API/internal/normalize"
)

const campaignsResource = "campaigns"

const (
	maxCampaignText = 255
	// Scripts longer than this are sent as more than two SMS segments.
	scriptWarnLength = 320
)

// Accepted layouts for campaign start and end dates, read in the campaign time zone.
var campaignDateLayouts = []string{"2006-01-02T15:04", "2006-01-02"}

// Campaign is a texting campaign.
type Campaign struct {
	ID                        string    `json:"id"`
	Name                      string    `json:"name"`
	Description               string    `json:"description"`
	Status                    string    `json:"status"`
	Script                    string    `json:"script"`
	CountryID                 string    `json:"country_id"`
	TimeZone                  string    `json:"time_zone"`
	OpenTime                  string    `json:"open_time"`
	CloseTime                 string    `json:"close_time"`
	StartDate                 time.Time `json:"start_date,omitzero"`
	EndDate                   time.Time `json:"end_date,omitzero"`
	OptOutsCount              int       `json:"opt_outs_count"`
	InitialSentCount          int       `json:"initial_sent_count"`
	RepliesCount              int       `json:"replies_count"`
	ConversationsCount        int       `json:"conversations_count"`
	UnassignedCount           int       `json:"unassigned_count"`
	SendersCount              int       `json:"senders_count"`
	ApportionmentFailedReason string    `json:"apportionment_failed_reason"`
	SurveyIDs                 []string  `json:"survey_ids"`
	SavedReplyIDs             []string  `json:"saved_reply_ids"`
	SegmentIDs                []string  `json:"segment_ids"`
	RegionIDs                 []string  `json:"region_ids"`
}

type campaignAttributes struct {
	Name                      string `json:"name"`
	Description               string `json:"description"`
	Status                    string `json:"status"`
	Script                    string `json:"script"`
	CountryID                 string `json:"country_id"`
	TimeZone                  string `json:"time_zone"`
	OpenTime                  string `json:"open_time"`
	CloseTime                 string `json:"close_time"`
	StartDate                 Time   `json:"start_date"`
	EndDate                   Time   `json:"end_date"`
	OptOutsCount              int    `json:"opt_outs_count"`
	InitialSentCount          int    `json:"initial_sent_count"`
	RepliesCount              int    `json:"replies_count"`
	ConversationsCount        int    `json:"conversations_count"`
	UnassignedCount           int    `json:"unassigned_count"`
	SendersCount              int    `json:"senders_count"`
	ApportionmentFailedReason string `json:"apportionment_failed_reason"`
}

// Segment selects contacts for a campaign.
type Segment struct {
	SegmentType       string   `json:"segment_type"`
	SegmentSourceType string   `json:"segment_source_type"`
	Order             int      `json:"order"`
	SourceGroupID     string   `json:"source_group_id"`
	FilterSurveys     []string `json:"filter_surveys"`
	ReplyStatus       string   `json:"reply_status"`
}

// GroupSegment adds every contact of a group.
func GroupSegment(groupID string) Segment {
	return Segment{
		SegmentType:       "add",
		SegmentSourceType: "group",
		Order:             0,
		SourceGroupID:     groupID,
		FilterSurveys:     []string{},
		ReplyStatus:       "any",
	}
}

// CreateCampaignParams describes a new campaign. Exactly one of GroupID and
// Segments must be set. Dates use the layout 2006-01-02T15:04 in TimeZone.
type CreateCampaignParams struct {
	Name        string    `json:"name" yaml:"name" validate:"required"`
	Description string    `json:"description" yaml:"description"`
	Script      string    `json:"script" yaml:"script" validate:"required"`
	StartDate   string    `json:"start_date" yaml:"start_date" validate:"required"`
	EndDate     string    `json:"end_date" yaml:"end_date" validate:"required"`
	TimeZone    string    `json:"time_zone" yaml:"time_zone" validate:"omitempty,us_timezone"`
	OpenTime    string    `json:"open_time" yaml:"open_time" validate:"required,clock"`
	CloseTime   string    `json:"close_time" yaml:"close_time" validate:"required,clock"`
	Regions     []string  `json:"regions" yaml:"regions" validate:"min=1,max=3"`
	GroupID     string    `json:"group_id" yaml:"group_id" validate:"required_without=Segments,excluded_with=Segments"`
	Segments    []Segment `json:"segments" yaml:"segments" validate:"required_without=GroupID"`
	CountryID   string    `json:"country_id" yaml:"country_id"`
	SelfAssign  bool      `json:"self_assign" yaml:"self_assign"`
}

type campaignRegion struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

type createCampaignAttributes struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	CountryID   string           `json:"country_id"`
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	TimeZone    string           `json:"time_zone"`
	OpenTime    string           `json:"open_time"`
	CloseTime   string           `json:"close_time"`
	Regions     []campaignRegion `json:"regions"`
	Segments    []Segment        `json:"segments"`
	Script      string           `json:"script"`
	Settings    campaignSettings `json:"settings"`
}

type campaignSettings struct {
	SelfAssignment bool `json:"self_assignment"`
}

func toCampaign(r resource[campaignAttributes]) Campaign {
	a := r.Attributes
	return Campaign{
		ID:                        r.id(),
		Name:                      a.Name,
		Description:               a.Description,
		Status:                    a.Status,
		Script:                    a.Script,
		CountryID:                 a.CountryID,
		TimeZone:                  a.TimeZone,
		OpenTime:                  a.OpenTime,
		CloseTime:                 a.CloseTime,
		StartDate:                 a.StartDate.Time,
		EndDate:                   a.EndDate.Time,
		OptOutsCount:              a.OptOutsCount,
		InitialSentCount:          a.InitialSentCount,
		RepliesCount:              a.RepliesCount,
		ConversationsCount:        a.ConversationsCount,
		UnassignedCount:           a.UnassignedCount,
		SendersCount:              a.SendersCount,
		ApportionmentFailedReason: a.ApportionmentFailedReason,
		SurveyIDs:                 r.Relationships["surveys"].IDs(),
		SavedReplyIDs:             r.Relationships["saved_replies"].IDs(),
		SegmentIDs:                r.Relationships["segments"].IDs(),
		RegionIDs:                 r.Relationships["regions"].IDs(),
	}
}

// ListCampaigns returns the account's campaigns.
func (c *Client) ListCampaigns(ctx context.Context, params *Params) ([]Campaign, error) {
	path, err := c.accountPath(ctx, campaignsResource)
	if err != nil {
		return nil, wrapError("listCampaigns", campaignsResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, wrapError("listCampaigns", campaignsResource, "", err)
	}
	doc, err := decodeList[campaignAttributes](body)
	if err != nil {
		return nil, wrapError("listCampaigns", campaignsResource, "", err)
	}

	campaigns := make([]Campaign, 0, len(doc.Data))
	for _, r := range doc.Data {
		campaigns = append(campaigns, toCampaign(r))
	}
	return campaigns, nil
}

// GetCampaign retrieves one campaign.
func (c *Client) GetCampaign(ctx context.Context, campaignID string) (*Campaign, error) {
	path, err := c.accountPath(ctx, campaignsResource, campaignID)
	if err != nil {
		return nil, wrapError("getCampaign", campaignsResource, campaignID, err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, wrapError("getCampaign", campaignsResource, campaignID, err)
	}
	doc, err := decodeDocument[campaignAttributes](body)
	if err != nil {
		return nil, wrapError("getCampaign", campaignsResource, campaignID, err)
	}
	campaign := toCampaign(doc.Data)
	return &campaign, nil
}

// CreateCampaign validates params, resolves regions and the base group, and
// creates the campaign. Non-fatal problems such as truncated text or a long
// script are returned as warnings.
func (c *Client) CreateCampaign(ctx context.Context, params CreateCampaignParams) (*Campaign, []string, error) {
	if params.TimeZone == "" {
		params.TimeZone = c.defaultTimezone
	}
	if err := c.validate.Validate(params); err != nil {
		return nil, nil, err
	}

	attrs, warnings, err := c.buildCampaign(ctx, params)
	if err != nil {
		return nil, nil, err
	}

	path, err := c.accountPath(ctx, campaignsResource)
	if err != nil {
		return nil, nil, wrapError("createCampaign", campaignsResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, newPayload(attrs))
	if err != nil {
		return nil, nil, wrapError("createCampaign", campaignsResource, "", err)
	}
	doc, err := decodeDocument[campaignAttributes](body)
	if err != nil {
		return nil, nil, wrapError("createCampaign", campaignsResource, "", err)
	}

	campaign := toCampaign(doc.Data)
	for _, w := range warnings {
		c.logger.Warn("campaign created with warning", "campaign_id", campaign.ID, "warning", w)
	}
	return &campaign, warnings, nil
}

func (c *Client) buildCampaign(ctx context.Context, params CreateCampaignParams) (*createCampaignAttributes, []string, error) {
	var warnings []string

	name := normalize.Truncate(params.Name, maxCampaignText)
	if name != params.Name {
		warnings = append(warnings, fmt.Sprintf("name truncated to %d characters", maxCampaignText))
	}
	description := normalize.Truncate(params.Description, maxCampaignText)
	if description != params.Description {
		warnings = append(warnings, fmt.Sprintf("description truncated to %d characters", maxCampaignText))
	}
	if n := len([]rune(params.Script)); n > scriptWarnLength {
		warnings = append(warnings, fmt.Sprintf("script is %d characters and will likely send as more than two segments", n))
	}

	loc, err := time.LoadLocation(params.TimeZone)
	if err != nil {
		return nil, nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"time_zone": "unknown time zone " + params.TimeZone,
		})
	}
	start, err := parseCampaignDate(params.StartDate, loc)
	if err != nil {
		return nil, nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"start_date": err.Error()})
	}
	end, err := parseCampaignDate(params.EndDate, loc)
	if err != nil {
		return nil, nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"end_date": err.Error()})
	}
	if end.Before(start) {
		return nil, nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{"end_date": "must not be before start_date"})
	}

	index, err := c.Regions(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	regions := make([]campaignRegion, 0, len(params.Regions))
	for i, name := range params.Regions {
		regionID, ok := index.Lookup(name)
		if !ok {
			return nil, nil, wrapError("createCampaign", "regions", name, ErrUnknownRegion)
		}
		regions = append(regions, campaignRegion{ID: regionID, Name: name, Index: i})
	}

	segments := params.Segments
	if params.GroupID != "" {
		if _, err := c.GetGroup(ctx, params.GroupID); err != nil {
			return nil, nil, err
		}
		segments = []Segment{GroupSegment(params.GroupID)}
	}

	countryID := params.CountryID
	if countryID == "" {
		countryID = "US"
	}

	return &createCampaignAttributes{
		Name:        name,
		Description: description,
		CountryID:   countryID,
		StartDate:   start.Format(time.RFC3339),
		EndDate:     end.Format(time.RFC3339),
		TimeZone:    params.TimeZone,
		OpenTime:    params.OpenTime,
		CloseTime:   params.CloseTime,
		Regions:     regions,
		Segments:    segments,
		Script:      params.Script,
		Settings:    campaignSettings{SelfAssignment: params.SelfAssign},
	}, warnings, nil
}

func parseCampaignDate(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range campaignDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("must be in format YYYY-MM-DDTHH:MM, got %q", value)
}

// ArchiveCampaign archives a campaign.
func (c *Client) ArchiveCampaign(ctx context.Context, campaignID string) error {
	return c.campaignAction(ctx, "archiveCampaign", campaignID, "archive")
}

// LaunchCampaign apportions a campaign's contacts to senders.
func (c *Client) LaunchCampaign(ctx context.Context, campaignID string) error {
	return c.campaignAction(ctx, "launchCampaign", campaignID, "apportion")
}

func (c *Client) campaignAction(ctx context.Context, op, campaignID, action string) error {
	path, err := c.accountPath(ctx, campaignsResource, campaignID, action)
	if err != nil {
		return wrapError(op, campaignsResource, campaignID, err)
	}
	if _, err := c.doRequest(ctx, http.MethodPost, path, nil, struct{}{}); err != nil {
		return wrapError(op, campaignsResource, campaignID, err)
	}
	return nil
}
