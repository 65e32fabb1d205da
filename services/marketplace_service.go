package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/autobot-tf/reputation-backend/models"
	"github.com/autobot-tf/reputation-backend/shared"
)

// MarketplaceService queries the marketplace.tf ban API
type MarketplaceService struct {
	client sourceClient
}

func NewMarketplaceService(cfg *SourceClientConfig, factory *shared.HTTPClientFactory) *MarketplaceService {
	return &MarketplaceService{client: newSourceClient(string(models.SourceMarketplace), cfg, factory)}
}

// Check returns the marketplace.tf ban state of steamID.
// The upstream may answer with several users in any order; only the entry matching steamID counts.
func (s *MarketplaceService) Check(ctx context.Context, steamID string) (models.SiteResult, error) {
	const operation = "GetUserBan"

	query := url.Values{}
	query.Set("key", s.client.config.APIKey)
	query.Set("steamid", steamID)

	body, err := s.client.fetch(ctx, http.MethodPost, s.client.endpoint("/api/Bans/GetUserBan/v2", query), nil, operation)
	if err != nil {
		s.client.warn(err, steamID, "Failed to get data from Marketplace.tf")
		return models.SiteResult{}, err
	}

	var response models.MarketplaceUserBan
	if err := shared.DecodeJSON(body, &response, s.client.name, operation); err != nil {
		s.client.warn(err, steamID, "Failed to get data from Marketplace.tf")
		return models.SiteResult{}, err
	}

	entries, err := decodeMarketplaceResults(response.Results, s.client.name, operation)
	if err != nil {
		s.client.warn(err, steamID, "Marketplace.tf returned invalid data")
		return models.SiteResult{}, err
	}

	for _, entry := range entries {
		var result models.MarketplaceResult
		if err := json.Unmarshal(entry, &result); err != nil {
			s.client.logger.WithError(err).WithField("steam_id", steamID).Debug("Skipping unreadable marketplace.tf entry")
			continue
		}
		if result.SteamID != steamID {
			continue
		}

		verdict := models.SiteResult{IsBanned: result.Banned}
		if result.Ban != nil {
			verdict.Content = result.Ban.Type
		}
		return verdict, nil
	}

	return models.SiteResult{IsBanned: false}, nil
}

// decodeMarketplaceResults splits the results array into its raw entries and rejects any payload that is not a JSON array
func decodeMarketplaceResults(raw json.RawMessage, service, operation string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, shared.NewServiceError(shared.ErrorCategoryBadData, "RESULTS_NOT_A_LIST",
			"marketplace.tf results is not a list", service, operation, false, nil)
	}

	var entries []json.RawMessage
	if err := shared.DecodeJSON(trimmed, &entries, service, operation); err != nil {
		return nil, err
	}
	return entries, nil
}
