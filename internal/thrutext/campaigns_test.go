package thrutext

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// campaignServer serves regions, one group and campaign creation.
func campaignServer(t *testing.T, c *captured) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /countries", respond(http.StatusOK, loadFixture(t, "countries_response.json")))
	mux.HandleFunc("GET /accounts/77/groups/1201", respond(http.StatusOK,
		[]byte(`{"data":{"id":"1201","type":"group","attributes":{"name":"Volunteers June","contact_counts":{}}}}`)))
	mux.HandleFunc("GET /accounts/77/groups/999", respond(http.StatusNotFound, nil))
	mux.HandleFunc("POST /accounts/77/campaigns", c.wrap(respond(http.StatusCreated, loadFixture(t, "campaign_response.json"))))
	return mux
}

func validCampaign() CreateCampaignParams {
	return CreateCampaignParams{
		Name:        "GOTV Reminder",
		Description: "Polling place reminders",
		Script:      "Hi {first_name}, it's Sam with Example Org.",
		StartDate:   "2024-07-01T09:00",
		EndDate:     "2024-07-15T09:00",
		OpenTime:    "09:00",
		CloseTime:   "21:00",
		Regions:     []string{"212", "san francisco (415)"},
		GroupID:     "1201",
		SelfAssign:  true,
	}
}

func TestClient_CreateCampaign(t *testing.T) {
	var c captured
	client := newTestClient(t, campaignServer(t, &c))

	campaign, warnings, err := client.CreateCampaign(context.Background(), validCampaign())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "88", campaign.ID)
	assert.Equal(t, 412, campaign.UnassignedCount)
	assert.Equal(t, time.Date(2024, 7, 1, 13, 0, 0, 0, time.UTC), campaign.StartDate)
	assert.Equal(t, []string{"r-212"}, campaign.RegionIDs)

	attrs := c.attributes(t)
	assert.Equal(t, "US/Eastern", attrs["time_zone"], "default time zone applies")
	assert.Equal(t, "US", attrs["country_id"])
	assert.Equal(t, "2024-07-01T09:00:00-04:00", attrs["start_date"])
	assert.Equal(t, "2024-07-15T09:00:00-04:00", attrs["end_date"])
	assert.Equal(t, "09:00", attrs["open_time"])
	assert.Equal(t, map[string]any{"self_assignment": true}, attrs["settings"])
	assert.Equal(t, []any{
		map[string]any{"id": "r-212", "name": "212", "index": float64(0)},
		map[string]any{"id": "r-415", "name": "san francisco (415)", "index": float64(1)},
	}, attrs["regions"])
	assert.Equal(t, []any{map[string]any{
		"segment_type":        "add",
		"segment_source_type": "group",
		"order":               float64(0),
		"source_group_id":     "1201",
		"filter_surveys":      []any{},
		"reply_status":        "any",
	}}, attrs["segments"])
}

func TestClient_CreateCampaign_Warnings(t *testing.T) {
	var c captured
	client := newTestClient(t, campaignServer(t, &c))

	params := validCampaign()
	params.Name = strings.Repeat("n", 300)
	params.Script = strings.Repeat("s", 321)

	_, warnings, err := client.CreateCampaign(context.Background(), params)
	require.NoError(t, err)
	assert.Len(t, warnings, 2)

	name, _ := c.attributes(t)["name"].(string)
	assert.Len(t, name, maxCampaignText)
}

func TestClient_CreateCampaign_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *CreateCampaignParams)
		wantErr error
		field   string
	}{
		{
			name:    "unsupported time zone",
			mutate:  func(p *CreateCampaignParams) { p.TimeZone = "Europe/Paris" },
			wantErr: domainerrors.ErrValidation,
			field:   "time_zone",
		},
		{
			name:    "bad clock time",
			mutate:  func(p *CreateCampaignParams) { p.CloseTime = "9pm" },
			wantErr: domainerrors.ErrValidation,
			field:   "close_time",
		},
		{
			name:    "too many regions",
			mutate:  func(p *CreateCampaignParams) { p.Regions = []string{"212", "415", "alaska", "212"} },
			wantErr: domainerrors.ErrValidation,
			field:   "regions",
		},
		{
			name:    "no regions",
			mutate:  func(p *CreateCampaignParams) { p.Regions = nil },
			wantErr: domainerrors.ErrValidation,
			field:   "regions",
		},
		{
			name: "group and segments together",
			mutate: func(p *CreateCampaignParams) {
				p.Segments = []Segment{GroupSegment("1202")}
			},
			wantErr: domainerrors.ErrValidation,
			field:   "group_id",
		},
		{
			name:    "neither group nor segments",
			mutate:  func(p *CreateCampaignParams) { p.GroupID = "" },
			wantErr: domainerrors.ErrValidation,
			field:   "group_id",
		},
		{
			name:    "bad start date",
			mutate:  func(p *CreateCampaignParams) { p.StartDate = "07/01/2024" },
			wantErr: domainerrors.ErrValidation,
			field:   "start_date",
		},
		{
			name:    "end before start",
			mutate:  func(p *CreateCampaignParams) { p.EndDate = "2024-06-01" },
			wantErr: domainerrors.ErrValidation,
			field:   "end_date",
		},
		{
			name:    "unknown region",
			mutate:  func(p *CreateCampaignParams) { p.Regions = []string{"Atlantis (000)"} },
			wantErr: ErrUnknownRegion,
		},
		{
			name:    "unknown group",
			mutate:  func(p *CreateCampaignParams) { p.GroupID = "999" },
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c captured
			client := newTestClient(t, campaignServer(t, &c))

			params := validCampaign()
			tt.mutate(&params)
			_, _, err := client.CreateCampaign(context.Background(), params)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, c.count, "nothing is created on failure")

			if tt.field != "" {
				var domainErr *domainerrors.Error
				require.ErrorAs(t, err, &domainErr)
				assert.Contains(t, domainErr.Details, tt.field)
			}
		})
	}
}

func TestClient_CampaignActions(t *testing.T) {
	var archived, launched atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts/77/campaigns/88/archive", func(w http.ResponseWriter, r *http.Request) {
		archived.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /accounts/77/campaigns/88/apportion", func(w http.ResponseWriter, r *http.Request) {
		launched.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t, mux)

	require.NoError(t, client.ArchiveCampaign(context.Background(), "88"))
	require.NoError(t, client.LaunchCampaign(context.Background(), "88"))
	assert.Equal(t, int32(1), archived.Load())
	assert.Equal(t, int32(1), launched.Load())

	err := client.LaunchCampaign(context.Background(), "89")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_GetCampaign(t *testing.T) {
	client := newTestClient(t, respond(http.StatusOK, loadFixture(t, "campaign_response.json")))

	campaign, err := client.GetCampaign(context.Background(), "88")
	require.NoError(t, err)
	assert.Equal(t, "GOTV Reminder", campaign.Name)
	assert.Equal(t, "US/Eastern", campaign.TimeZone)
	assert.Equal(t, []string{"5001"}, campaign.SegmentIDs)
	assert.Empty(t, campaign.ApportionmentFailedReason)
}
