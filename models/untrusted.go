package models

import "fmt"

// UntrustedEntry is one flagged SteamID in the community untrusted list
type UntrustedEntry struct {
	Reason string `json:"reason"`
	Source string `json:"source"`
	Time   int64  `json:"time"`
}

// UntrustedList is the shared snapshot of flagged SteamIDs
type UntrustedList struct {
	LastUpdate int64                     `json:"last_update"`
	SteamIDs   map[string]UntrustedEntry `json:"steamids"`
}

// Lookup returns the verdict for steamID; absent ids are not banned
func (l *UntrustedList) Lookup(steamID string) SiteResult {
	if l == nil {
		return SiteResult{IsBanned: false}
	}

	entry, ok := l.SteamIDs[steamID]
	if !ok {
		return SiteResult{IsBanned: false}
	}

	return SiteResult{
		IsBanned: true,
		Content:  fmt.Sprintf("Reason: %s - Source: %s", entry.Reason, entry.Source),
	}
}
