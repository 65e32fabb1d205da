package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/autobot-tf/reputation-backend/models"
	"github.com/autobot-tf/reputation-backend/shared"
)

// BackpackVerdict is the backpack.tf answer for one SteamID.
// SteamRepSignal is backpack.tf's copy of the steamrep scammer flag.
type BackpackVerdict struct {
	Ban            models.SiteResult
	SteamRepSignal models.SiteResult
}

// BackpackService queries the backpack.tf user info API
type BackpackService struct {
	client sourceClient
}

func NewBackpackService(cfg *SourceClientConfig, factory *shared.HTTPClientFactory) *BackpackService {
	return &BackpackService{client: newSourceClient(string(models.SourcePrimaryRegistry), cfg, factory)}
}

// Check returns the site ban of steamID along with the steamrep signal
func (s *BackpackService) Check(ctx context.Context, steamID string) (*BackpackVerdict, error) {
	const operation = "GetUserInfo"

	query := url.Values{}
	query.Set("key", s.client.config.APIKey)
	query.Set("steamids", steamID)

	body, err := s.client.fetch(ctx, http.MethodGet, s.client.endpoint("/api/users/info/v1", query), nil, operation)
	if err != nil {
		s.client.warn(err, steamID, "Failed to get data from backpack.tf")
		return nil, err
	}

	var info models.BackpackUserInfo
	if err := shared.DecodeJSON(body, &info, s.client.name, operation); err != nil {
		s.client.warn(err, steamID, "Failed to get data from backpack.tf")
		return nil, err
	}

	user, ok := info.Users[steamID]
	if !ok {
		err := shared.NewServiceError(shared.ErrorCategoryBadData, "USER_MISSING",
			"backpack.tf response has no entry for the requested SteamID", s.client.name, operation, false, nil)
		s.client.warn(err, steamID, "Failed to get data from backpack.tf")
		return nil, err
	}

	return interpretBackpackUser(user), nil
}

func interpretBackpackUser(user models.BackpackUser) *BackpackVerdict {
	bans := user.Bans
	if bans == nil {
		return &BackpackVerdict{}
	}

	reason := ""
	switch {
	case bans.All != nil:
		reason = bans.All.Reason
	case bans.AllFeatures != nil:
		reason = bans.AllFeatures.Reason
	}

	return &BackpackVerdict{
		Ban: models.SiteResult{
			IsBanned: bans.All != nil || bans.AllFeatures != nil,
			Content:  reason,
		},
		SteamRepSignal: models.SiteResult{
			IsBanned: bans.SteamRepScammer == 1,
			Content:  reason,
		},
	}
}
