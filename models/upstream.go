package models

import "encoding/json"

// BackpackUserInfo is the response of backpack.tf /api/users/info/v1
type BackpackUserInfo struct {
	Users map[string]BackpackUser `json:"users"`
}

type BackpackUser struct {
	Name string        `json:"name"`
	Bans *BackpackBans `json:"bans,omitempty"`
}

type BackpackBans struct {
	All             *BackpackBan `json:"all,omitempty"`
	AllFeatures     *BackpackBan `json:"all features,omitempty"`
	SteamRepScammer int          `json:"steamrep_scammer,omitempty"`
}

type BackpackBan struct {
	End    int64  `json:"end"`
	Reason string `json:"reason"`
}

// MarketplaceUserBan is the response of marketplace.tf /api/Bans/GetUserBan/v2.
// Results is kept raw so a non-array payload can be rejected and each entry decoded on its own.
type MarketplaceUserBan struct {
	Success bool            `json:"success"`
	Results json.RawMessage `json:"results"`
}

type MarketplaceResult struct {
	SteamID string          `json:"steamid"`
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Banned  bool            `json:"banned"`
	Ban     *MarketplaceBan `json:"ban,omitempty"`
	Seller  bool            `json:"seller"`
}

type MarketplaceBan struct {
	Time int64  `json:"time"`
	Type string `json:"type"`
}

// SteamRepResponse is the response of steamrep.com /api/beta4/reputation/{id}?json=1.
// SteamRep is nil when the answer carries no steamrep object.
type SteamRepResponse struct {
	SteamRep *SteamRepDetails `json:"steamrep"`
}

type SteamRepDetails struct {
	Flags       SteamRepFlags       `json:"flags"`
	SteamID32   string              `json:"steamID32,omitempty"`
	SteamID64   string              `json:"steamID64,omitempty"`
	SteamRepURL string              `json:"steamrepurl,omitempty"`
	Reputation  *SteamRepReputation `json:"reputation,omitempty"`
}

type SteamRepFlags struct {
	Status string `json:"status"`
}

type SteamRepReputation struct {
	Full    string `json:"full,omitempty"`
	Summary string `json:"summary,omitempty"`
}
