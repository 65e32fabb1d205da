package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// SourceName identifies one upstream reputation source inside a ReputationRecord
type SourceName string

const (
	SourceCommunityRegistry SourceName = "TF2Autobot"
	SourceMarketplace       SourceName = "Marketplace.tf"
	SourcePrimaryRegistry   SourceName = "Backpack.tf"
	SourceReputationSite    SourceName = "Steamrep.com"
)

// ErrorMarker is persisted in place of a SiteResult when a source failed and no usable prior value existed
const ErrorMarker = "Error"

// AllSources lists the sources in the order they are reported
var AllSources = []SourceName{
	SourceCommunityRegistry,
	SourceMarketplace,
	SourcePrimaryRegistry,
	SourceReputationSite,
}

// SiteResult is the normalized verdict of a single source
type SiteResult struct {
	IsBanned bool   `json:"isBanned"`
	Content  string `json:"content,omitempty"`
}

// SourceOutcome is either a SiteResult or the "Error" marker
type SourceOutcome struct {
	Result *SiteResult
}

// Outcome wraps a successful result
func Outcome(result SiteResult) SourceOutcome {
	return SourceOutcome{Result: &result}
}

// ErrorOutcome returns the error marker outcome
func ErrorOutcome() SourceOutcome {
	return SourceOutcome{}
}

// IsError reports whether the outcome carries no usable result
func (o SourceOutcome) IsError() bool {
	return o.Result == nil
}

// Banned is false for error outcomes
func (o SourceOutcome) Banned() bool {
	return o.Result != nil && o.Result.IsBanned
}

func (o SourceOutcome) MarshalJSON() ([]byte, error) {
	if o.Result == nil {
		return json.Marshal(ErrorMarker)
	}
	return json.Marshal(o.Result)
}

func (o *SourceOutcome) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		// "Error", null or any other scalar is an error marker
		o.Result = nil
		return nil
	}

	var result SiteResult
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return err
	}
	o.Result = &result
	return nil
}

// SourceContents maps each source to its outcome
type SourceContents map[SourceName]SourceOutcome

// ReputationRecord is the cached, aggregated verdict for one SteamID
type ReputationRecord struct {
	IsBanned                   bool           `json:"isBanned"`
	IsBannedExcludeMarketplace bool           `json:"isBannedExcludeMptf"`
	Contents                   SourceContents `json:"contents"`
	ObtainedTime               int64          `json:"obtained_time"`
	LastUpdate                 int64          `json:"last_update"`
	WithError                  bool           `json:"with_error"`
}

// ObtainedAt returns the creation time of the record
func (r *ReputationRecord) ObtainedAt() time.Time {
	return time.Unix(r.ObtainedTime, 0)
}

// LastUpdatedAt returns the time of the last refresh attempt
func (r *ReputationRecord) LastUpdatedAt() time.Time {
	return time.Unix(r.LastUpdate, 0)
}

// Entry returns the stored outcome for a source; missing entries are error outcomes
func (r *ReputationRecord) Entry(source SourceName) SourceOutcome {
	if r == nil || r.Contents == nil {
		return ErrorOutcome()
	}
	return r.Contents[source]
}

// ErrorCount returns how many sources hold the error marker
func (r *ReputationRecord) ErrorCount() int {
	count := 0
	for _, source := range AllSources {
		if r.Entry(source).IsError() {
			count++
		}
	}
	return count
}
