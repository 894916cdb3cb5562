package thrutext

import (
	"context"
	"net/http"
	"time"
)

const savedRepliesResource = "saved_replies"

// SavedReply is a canned response senders can pick while texting.
type SavedReply struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	AccountID  string    `json:"account_id"`
	CampaignID string    `json:"campaign_id"`
	TagID      string    `json:"tag_id"`
	UserID     string    `json:"user_id"`
	Order      int       `json:"order"`
	UpdatedAt  time.Time `json:"updated_at,omitzero"`
}

type savedReplyAttributes struct {
	Title      string `json:"title"`
	Body       string `json:"body"`
	AccountID  ID     `json:"account_id"`
	CampaignID ID     `json:"campaign_id"`
	TagID      ID     `json:"tag_id"`
	UserID     ID     `json:"user_id"`
	Order      int    `json:"order"`
	UpdatedAt  Time   `json:"updated_at"`
}

// CreateSavedReplyParams describes a saved reply. An empty CampaignID makes
// the reply global to the account.
type CreateSavedReplyParams struct {
	Title      string `json:"title" yaml:"title" validate:"required"`
	Body       string `json:"body" yaml:"body" validate:"required"`
	CampaignID string `json:"campaign_id" yaml:"-"`
}

type createSavedReplyAttributes struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	IsOptOut bool   `json:"is_opt_out"`
}

func toSavedReply(r resource[savedReplyAttributes]) SavedReply {
	a := r.Attributes
	return SavedReply{
		ID:         r.id(),
		Title:      a.Title,
		Body:       a.Body,
		AccountID:  string(a.AccountID),
		CampaignID: string(a.CampaignID),
		TagID:      string(a.TagID),
		UserID:     string(a.UserID),
		Order:      a.Order,
		UpdatedAt:  a.UpdatedAt.Time,
	}
}

// ListSavedReplies returns the saved replies of a campaign, or the global ones
// when campaignID is empty.
func (c *Client) ListSavedReplies(ctx context.Context, campaignID string) ([]SavedReply, error) {
	path, err := c.scopedPath(ctx, campaignID, savedRepliesResource)
	if err != nil {
		return nil, wrapError("listSavedReplies", savedRepliesResource, "", err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, wrapError("listSavedReplies", savedRepliesResource, "", err)
	}
	doc, err := decodeList[savedReplyAttributes](body)
	if err != nil {
		return nil, wrapError("listSavedReplies", savedRepliesResource, "", err)
	}

	replies := make([]SavedReply, 0, len(doc.Data))
	for _, r := range doc.Data {
		replies = append(replies, toSavedReply(r))
	}
	return replies, nil
}

// CreateSavedReply adds a saved reply to a campaign or to the account.
func (c *Client) CreateSavedReply(ctx context.Context, params CreateSavedReplyParams) (*SavedReply, error) {
	if err := c.validate.Validate(params); err != nil {
		return nil, err
	}
	path, err := c.scopedPath(ctx, params.CampaignID, savedRepliesResource)
	if err != nil {
		return nil, wrapError("createSavedReply", savedRepliesResource, "", err)
	}

	p := newPayload(createSavedReplyAttributes{Title: params.Title, Body: params.Body})
	if params.CampaignID == "" {
		p.Data.Type = "saved-replies"
		p.Data.Relationships = globalRelationships(c.AccountID())
	}

	body, err := c.doRequest(ctx, http.MethodPost, path, nil, p)
	if err != nil {
		return nil, wrapError("createSavedReply", savedRepliesResource, "", err)
	}
	doc, err := decodeDocument[savedReplyAttributes](body)
	if err != nil {
		return nil, wrapError("createSavedReply", savedRepliesResource, "", err)
	}
	reply := toSavedReply(doc.Data)
	return &reply, nil
}

// ReorderSavedReply moves a saved reply to position order.
func (c *Client) ReorderSavedReply(ctx context.Context, campaignID, replyID string, order int) error {
	return c.reorder(ctx, "reorderSavedReply", campaignID, savedRepliesResource, replyID, order)
}

// DeleteSavedReply removes a saved reply.
func (c *Client) DeleteSavedReply(ctx context.Context, campaignID, replyID string) error {
	return c.deleteScoped(ctx, "deleteSavedReply", campaignID, savedRepliesResource, replyID)
}
