package services

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/leighmacdonald/steamid/v2/steamid"
)

// ErrInvalidSteamID is returned when an input cannot be resolved to an individual SteamID64
var ErrInvalidSteamID = errors.New("SteamID entered not valid")

// individual accounts occupy the 32-bit account range above this base
const individualAccountBase int64 = 76561197960265728

var (
	legacySteamIDPattern = regexp.MustCompile(`^STEAM_[0-5]:[01]:\d+$`)
	steam3IDPattern      = regexp.MustCompile(`^\[U:1:\d+\]$`)
	steam64Pattern       = regexp.MustCompile(`^\d{17}$`)
)

// ParseSteamID accepts a SteamID64, a STEAM_X:Y:Z id or a [U:1:N] id and returns the SteamID64 string.
// Vanity names are not resolved.
func ParseSteamID(input string) (string, error) {
	input = strings.TrimSpace(input)

	var sid64 steamid.SID64
	switch {
	case steam64Pattern.MatchString(input):
		parsed, err := steamid.StringToSID64(input)
		if err != nil {
			return "", ErrInvalidSteamID
		}
		sid64 = parsed
	case legacySteamIDPattern.MatchString(input):
		sid64 = steamid.SIDToSID64(steamid.SID(input))
	case steam3IDPattern.MatchString(input):
		sid64 = steamid.SID3ToSID64(steamid.SID3(input))
	default:
		return "", ErrInvalidSteamID
	}

	if !sid64.Valid() {
		return "", ErrInvalidSteamID
	}
	if account := sid64.Int64() - individualAccountBase; account <= 0 || account > 1<<32-1 {
		return "", ErrInvalidSteamID
	}

	return strconv.FormatInt(sid64.Int64(), 10), nil
}
