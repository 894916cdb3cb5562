package thrutext

import (
	"context"
	"net/http"
	"time"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

const surveysResource = "surveys"

// SurveyType is the answer format of a survey question.
type SurveyType string

// Survey types.
const (
	SurveyYesNo          SurveyType = "yes_no"
	SurveyMultipleChoice SurveyType = "multiple_choice"
	SurveyMultipleAnswer SurveyType = "multiple_answer"
	SurveyFreeform       SurveyType = "freeform"
)

// TakesChoices reports whether the type needs a list of choices.
func (t SurveyType) TakesChoices() bool {
	return t == SurveyMultipleChoice || t == SurveyMultipleAnswer
}

// Survey is a question senders record answers to.
type Survey struct {
	ID               string     `json:"id"`
	Question         string     `json:"question"`
	Type             SurveyType `json:"type"`
	AccountID        string     `json:"account_id"`
	CampaignID       string     `json:"campaign_id"`
	IsGlobal         bool       `json:"is_global"`
	InActiveCampaign bool       `json:"in_active_campaign"`
	Order            int        `json:"order"`
	ResponseCount    int        `json:"response_count"`
	InsertedAt       time.Time  `json:"inserted_at,omitzero"`
	ArchivedAt       time.Time  `json:"archived_at,omitzero"`
}

type surveyAttributes struct {
	Question         string     `json:"question"`
	SurveyType       SurveyType `json:"survey_type"`
	AccountID        ID         `json:"account_id"`
	CampaignID       ID         `json:"campaign_id"`
	IsGlobal         bool       `json:"is_global"`
	InActiveCampaign bool       `json:"in_active_campaign"`
	Order            int        `json:"order"`
	ResponseCount    int        `json:"response_count"`
	InsertedAt       Time       `json:"inserted_at"`
	ArchivedAt       Time       `json:"archived_at"`
}

// CreateSurveyParams describes a survey. An empty CampaignID makes the survey
// global to the account.
type CreateSurveyParams struct {
	Question   string     `json:"question" yaml:"question" validate:"required"`
	Type       SurveyType `json:"survey_type" yaml:"type" validate:"required,oneof=yes_no multiple_choice multiple_answer freeform"`
	Choices    []string   `json:"choices" yaml:"choices" validate:"dive,required"`
	CampaignID string     `json:"campaign_id" yaml:"-"`
}

type surveyChoice struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

type createSurveyAttributes struct {
	Question      string         `json:"question"`
	SurveyType    SurveyType     `json:"survey_type"`
	SurveyChoices []surveyChoice `json:"survey_choices"`
	IsGlobal      bool           `json:"is_global,omitzero"`
	CampaignID    *string        `json:"campaign_id,omitzero"`
}

func toSurvey(r resource[surveyAttributes]) Survey {
	a := r.Attributes
	return Survey{
		ID:               r.id(),
		Question:         a.Question,
		Type:             a.SurveyType,
		AccountID:        string(a.AccountID),
		CampaignID:       string(a.CampaignID),
		IsGlobal:         a.IsGlobal,
		InActiveCampaign: a.InActiveCampaign,
		Order:            a.Order,
		ResponseCount:    a.ResponseCount,
		InsertedAt:       a.InsertedAt.Time,
		ArchivedAt:       a.ArchivedAt.Time,
	}
}

// ListSurveys returns the surveys of a campaign, or the global ones when
// campaignID is empty.
func (c *Client) ListSurveys(ctx context.Context, campaignID string) ([]Survey, error) {
	path, err := c.scopedPath(ctx, campaignID, surveysResource)
	if err != nil {
		return nil, wrapError("listSurveys", surveysResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, wrapError("listSurveys", surveysResource, "", err)
	}
	doc, err := decodeList[surveyAttributes](body)
	if err != nil {
		return nil, wrapError("listSurveys", surveysResource, "", err)
	}

	surveys := make([]Survey, 0, len(doc.Data))
	for _, r := range doc.Data {
		surveys = append(surveys, toSurvey(r))
	}
	return surveys, nil
}

// CreateSurvey adds a survey to a campaign or to the account. Yes/no and
// freeform surveys take no choices; the multiple choice types require them.
func (c *Client) CreateSurvey(ctx context.Context, params CreateSurveyParams) (*Survey, error) {
	if err := c.validate.Validate(params); err != nil {
		return nil, err
	}
	switch {
	case params.Type.TakesChoices() && len(params.Choices) == 0:
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"choices": "is required for survey type " + string(params.Type),
		})
	case !params.Type.TakesChoices() && len(params.Choices) > 0:
		return nil, domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"choices": "must be empty for survey type " + string(params.Type),
		})
	}

	path, err := c.scopedPath(ctx, params.CampaignID, surveysResource)
	if err != nil {
		return nil, wrapError("createSurvey", surveysResource, "", err)
	}

	attrs := createSurveyAttributes{
		Question:      params.Question,
		SurveyType:    params.Type,
		SurveyChoices: make([]surveyChoice, 0, len(params.Choices)),
	}
	for i, msg := range params.Choices {
		attrs.SurveyChoices = append(attrs.SurveyChoices, surveyChoice{Index: i, Message: msg})
	}
	p := newPayload(nil)
	if params.CampaignID == "" {
		empty := ""
		attrs.IsGlobal = true
		attrs.CampaignID = &empty
		p.Data.Relationships = globalRelationships(c.AccountID())
	}
	p.Data.Attributes = attrs

	body, err := c.doRequest(ctx, http.MethodPost, path, nil, p)
	if err != nil {
		return nil, wrapError("createSurvey", surveysResource, "", err)
	}
	doc, err := decodeDocument[surveyAttributes](body)
	if err != nil {
		return nil, wrapError("createSurvey", surveysResource, "", err)
	}
	survey := toSurvey(doc.Data)
	return &survey, nil
}

// ReorderSurvey moves a survey to position order.
func (c *Client) ReorderSurvey(ctx context.Context, campaignID, surveyID string, order int) error {
	return c.reorder(ctx, "reorderSurvey", campaignID, surveysResource, surveyID, order)
}

// DeleteSurvey removes a survey.
func (c *Client) DeleteSurvey(ctx context.Context, campaignID, surveyID string) error {
	return c.deleteScoped(ctx, "deleteSurvey", campaignID, surveysResource, surveyID)
}
