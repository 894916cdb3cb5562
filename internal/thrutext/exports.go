package thrutext

import (
	"context"
	"net/http"
	"time"
)

const exportsResource = "exports"

// DefaultExportType is used when no export type is given.
const DefaultExportType = "surveys"

// Export is a CSV export of campaign data. CSVURL is empty until the export finishes.
type Export struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	ExportType string    `json:"export_type"`
	CampaignID string    `json:"campaign_id"`
	CSVURL     string    `json:"csv_url"`
	StartDate  time.Time `json:"start_date,omitzero"`
	EndDate    time.Time `json:"end_date,omitzero"`
	InsertedAt time.Time `json:"inserted_at,omitzero"`
}

type exportAttributes struct {
	Status     string `json:"status"`
	ExportType string `json:"export_type"`
	CampaignID ID     `json:"campaign_id"`
	CSVURL     string `json:"csv_url"`
	StartDate  Time   `json:"start_date"`
	EndDate    Time   `json:"end_date"`
	InsertedAt Time   `json:"inserted_at"`
}

type startExportAttributes struct {
	ExportType string `json:"export_type"`
}

func toExport(r resource[exportAttributes]) Export {
	a := r.Attributes
	return Export{
		ID:         r.id(),
		Status:     a.Status,
		ExportType: a.ExportType,
		CampaignID: string(a.CampaignID),
		CSVURL:     a.CSVURL,
		StartDate:  a.StartDate.Time,
		EndDate:    a.EndDate.Time,
		InsertedAt: a.InsertedAt.Time,
	}
}

// ListExports returns every export of a campaign.
func (c *Client) ListExports(ctx context.Context, campaignID string) ([]Export, error) {
	path, err := c.accountPath(ctx, campaignsResource, campaignID, exportsResource)
	if err != nil {
		return nil, wrapError("listExports", exportsResource, campaignID, err)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, wrapError("listExports", exportsResource, campaignID, err)
	}
	doc, err := decodeList[exportAttributes](body)
	if err != nil {
		return nil, wrapError("listExports", exportsResource, campaignID, err)
	}

	exports := make([]Export, 0, len(doc.Data))
	for _, r := range doc.Data {
		exports = append(exports, toExport(r))
	}
	return exports, nil
}

// StartExport requests a new export. An empty exportType means DefaultExportType.
func (c *Client) StartExport(ctx context.Context, campaignID, exportType string) (*Export, error) {
	if exportType == "" {
		exportType = DefaultExportType
	}
	path, err := c.accountPath(ctx, campaignsResource, campaignID, exportsResource)
	if err != nil {
		return nil, wrapError("startExport", exportsResource, campaignID, err)
	}
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, newPayload(startExportAttributes{ExportType: exportType}))
	if err != nil {
		return nil, wrapError("startExport", exportsResource, campaignID, err)
	}
	doc, err := decodeDocument[exportAttributes](body)
	if err != nil {
		return nil, wrapError("startExport", exportsResource, campaignID, err)
	}
	export := toExport(doc.Data)
	return &export, nil
}

// NewestExport returns the most recently inserted export of the given type.
func (c *Client) NewestExport(ctx context.Context, campaignID, exportType string) (*Export, error) {
	if exportType == "" {
		exportType = DefaultExportType
	}
	exports, err := c.ListExports(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	var newest *Export
	for i := range exports {
		e := &exports[i]
		if e.ExportType != exportType || e.InsertedAt.IsZero() {
			continue
		}
		if newest == nil || e.InsertedAt.After(newest.InsertedAt) {
			newest = e
		}
	}
	if newest == nil {
		return nil, wrapError("newestExport", exportsResource, campaignID, ErrNotFound)
	}
	return newest, nil
}

// DownloadExport fetches the CSV of a finished export.
func (c *Client) DownloadExport(ctx context.Context, export *Export) ([]byte, error) {
	if export.CSVURL == "" {
		return nil, wrapError("downloadExport", exportsResource, export.ID, ErrExportNotReady)
	}
	data, err := c.download(ctx, export.CSVURL)
	if err != nil {
		return nil, wrapError("downloadExport", exportsResource, export.ID, err)
	}
	c.logger.Info("downloaded export", "export_id", export.ID, "bytes", len(data))
	return data, nil
}
