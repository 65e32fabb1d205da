package services

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/autobot-tf/reputation-backend/models"
	"github.com/autobot-tf/reputation-backend/shared"
)

// SteamRepService queries the steamrep.com reputation API
type SteamRepService struct {
	client sourceClient
}

func NewSteamRepService(cfg *SourceClientConfig, factory *shared.HTTPClientFactory) *SteamRepService {
	return &SteamRepService{client: newSourceClient(string(models.SourceReputationSite), cfg, factory)}
}

// Check reports steamID as banned when its reputation summary mentions "scammer"
func (s *SteamRepService) Check(ctx context.Context, steamID string) (models.SiteResult, error) {
	const operation = "GetReputation"

	query := url.Values{}
	query.Set("json", "1")

	target := s.client.endpoint("/api/beta4/reputation/"+url.PathEscape(steamID), query)
	body, err := s.client.fetch(ctx, http.MethodGet, target, nil, operation)
	if err != nil {
		s.client.warn(err, steamID, "Failed to get data from SteamRep")
		return models.SiteResult{}, err
	}

	var response models.SteamRepResponse
	if err := shared.DecodeJSON(body, &response, s.client.name, operation); err != nil {
		s.client.warn(err, steamID, "Failed to get data from SteamRep")
		return models.SiteResult{}, err
	}

	if response.SteamRep == nil {
		err := shared.NewServiceError(shared.ErrorCategoryBadData, "STEAMREP_MISSING",
			"steamrep.com answer has no steamrep object", s.client.name, operation, false, nil).
			WithDetails(map[string]int{"bytes": len(body)})
		s.client.warn(err, steamID, "SteamRep returned invalid data")
		return models.SiteResult{}, err
	}

	reputation := response.SteamRep.Reputation
	if reputation == nil {
		return models.SiteResult{IsBanned: false}, nil
	}

	return models.SiteResult{
		IsBanned: strings.Contains(strings.ToLower(reputation.Summary), "scammer"),
		Content:  reputation.Full,
	}, nil
}
