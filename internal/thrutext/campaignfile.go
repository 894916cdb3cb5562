package thrutext

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	domainerrors "github.com/GetThruTools/ThruText-API/internal/errors"
)

// CampaignFile is a campaign definition with the saved replies and surveys
// to attach once it exists.
type CampaignFile struct {
	Campaign     CreateCampaignParams     `yaml:",inline"`
	SavedReplies []CreateSavedReplyParams `yaml:"saved_replies"`
	Surveys      []CreateSurveyParams     `yaml:"surveys"`
}

// LoadCampaignFile reads a YAML campaign definition.
func LoadCampaignFile(path string) (*CampaignFile, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domainerrors.ConfigNotFound(path, err)
	}
	if err != nil {
		return nil, domainerrors.ConfigMalformed(path, err)
	}

	var file CampaignFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, domainerrors.ConfigMalformed(path, err)
	}
	return &file, nil
}

// CampaignFileResult reports what CreateCampaignFromFile created.
type CampaignFileResult struct {
	Campaign     *Campaign
	SavedReplies []SavedReply
	Surveys      []Survey
	Warnings     []string
}

// CreateCampaignFromFile creates the campaign, then its saved replies, then its
// surveys, stopping at the first failure. Everything created before a failure
// is returned alongside the error.
func (c *Client) CreateCampaignFromFile(ctx context.Context, file *CampaignFile) (*CampaignFileResult, error) {
	for i := range file.Surveys {
		if err := c.validate.Validate(file.Surveys[i]); err != nil {
			return nil, fmt.Errorf("survey %d: %w", i+1, err)
		}
	}
	for i := range file.SavedReplies {
		if err := c.validate.Validate(file.SavedReplies[i]); err != nil {
			return nil, fmt.Errorf("saved reply %d: %w", i+1, err)
		}
	}

	campaign, warnings, err := c.CreateCampaign(ctx, file.Campaign)
	if err != nil {
		return nil, err
	}
	result := &CampaignFileResult{Campaign: campaign, Warnings: warnings}

	for i, params := range file.SavedReplies {
		params.CampaignID = campaign.ID
		reply, err := c.CreateSavedReply(ctx, params)
		if err != nil {
			return result, fmt.Errorf("saved reply %d: %w", i+1, err)
		}
		result.SavedReplies = append(result.SavedReplies, *reply)
	}

	for i, params := range file.Surveys {
		params.CampaignID = campaign.ID
		survey, err := c.CreateSurvey(ctx, params)
		if err != nil {
			return result, fmt.Errorf("survey %d: %w", i+1, err)
		}
		result.Surveys = append(result.Surveys, *survey)
	}

	return result, nil
}
