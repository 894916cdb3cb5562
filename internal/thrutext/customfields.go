package thrutext

import (
	"context"
	"net/http"

	"github.com/GetThruTools/ThruText-API/internal/fieldmap"
)

const customFieldsResource = "custom_fields"

// CustomField is a per-contact field that messages can reference by code.
type CustomField struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
	AccountID string `json:"account_id"`
	HasData   bool   `json:"has_data"`
}

type customFieldAttributes struct {
	Code      string `json:"code"`
	Title     string `json:"title"`
	AccountID ID     `json:"account_id"`
	HasData   bool   `json:"has_data"`
}

// CreateCustomFieldParams describes a new custom field.
type CreateCustomFieldParams struct {
	Title string `json:"title" validate:"required,max=255"`
	Code  string `json:"code" validate:"required,max=255"`
}

func (r resource[A]) id() string { return string(r.ID) }

func toCustomField(r resource[customFieldAttributes]) CustomField {
	return CustomField{
		ID:        r.id(),
		Code:      r.Attributes.Code,
		Title:     r.Attributes.Title,
		AccountID: string(r.Attributes.AccountID),
		HasData:   r.Attributes.HasData,
	}
}

// ListCustomFields returns every custom field on the account.
func (c *Client) ListCustomFields(ctx context.Context) ([]CustomField, error) {
	path, err := c.accountPath(ctx, customFieldsResource)
	if err != nil {
		return nil, wrapError("listCustomFields", customFieldsResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, wrapError("listCustomFields", customFieldsResource, "", err)
	}
	doc, err := decodeList[customFieldAttributes](body)
	if err != nil {
		return nil, wrapError("listCustomFields", customFieldsResource, "", err)
	}

	fields := make([]CustomField, 0, len(doc.Data))
	for _, r := range doc.Data {
		fields = append(fields, toCustomField(r))
	}
	return fields, nil
}

// CreateCustomField defines a new custom field.
func (c *Client) CreateCustomField(ctx context.Context, params CreateCustomFieldParams) (*CustomField, error) {
	if err := c.validate.Validate(params); err != nil {
		return nil, err
	}
	path, err := c.accountPath(ctx, customFieldsResource)
	if err != nil {
		return nil, wrapError("createCustomField", customFieldsResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, newPayload(params))
	if err != nil {
		return nil, wrapError("createCustomField", customFieldsResource, "", err)
	}
	doc, err := decodeDocument[customFieldAttributes](body)
	if err != nil {
		return nil, wrapError("createCustomField", customFieldsResource, "", err)
	}
	field := toCustomField(doc.Data)
	return &field, nil
}

// RemoteFields lists the account's custom fields as code/id pairs.
func (c *Client) RemoteFields(ctx context.Context) ([]fieldmap.RemoteField, error) {
	fields, err := c.ListCustomFields(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]fieldmap.RemoteField, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldmap.RemoteField{Code: f.Code, ID: fieldmap.FieldID(f.ID)})
	}
	return out, nil
}

var _ fieldmap.FieldDirectory = (*Client)(nil)
