package thrutext

import (
	"context"
	"net/http"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// scopedPath addresses a resource that is either account-wide or nested under
// a campaign, e.g. surveys or campaigns/{id}/surveys.
func (c *Client) scopedPath(ctx context.Context, campaignID, resource string, parts ...string) (string, error) {
	segments := []string{resource}
	if campaignID != "" {
		segments = []string{campaignsResource, campaignID, resource}
	}
	return c.accountPath(ctx, append(segments, parts...)...)
}

// globalRelationships links a new resource to the account and to no campaign.
func globalRelationships(accountID string) map[string]any {
	return map[string]any{
		"account":  map[string]any{"data": ResourceIdentifier{Type: "accounts", ID: ID(accountID)}},
		"campaign": map[string]any{"data": nil},
	}
}

type orderAttributes struct {
	Order int `json:"order"`
}

// reorder moves a survey or saved reply to a new position.
func (c *Client) reorder(ctx context.Context, op, campaignID, resource, resourceID string, order int) error {
	if order < 0 {
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{
			"order": "must be greater than or equal to 0",
		})
	}
	path, err := c.scopedPath(ctx, campaignID, resource, resourceID, "reorder")
	if err != nil {
		return wrapError(op, resource, resourceID, err)
	}
	if _, err := c.doRequest(ctx, http.MethodPut, path, nil, newPayload(orderAttributes{Order: order})); err != nil {
		return wrapError(op, resource, resourceID, err)
	}
	return nil
}

func (c *Client) deleteScoped(ctx context.Context, op, campaignID, resource, resourceID string) error {
	path, err := c.scopedPath(ctx, campaignID, resource, resourceID)
	if err != nil {
		return wrapError(op, resource, resourceID, err)
	}
	if _, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return wrapError(op, resource, resourceID, err)
	}
	return nil
}
