package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSteamID(t *testing.T) {
	valid := []struct {
		input string
		want  string
	}{
		{"76561198000000000", "76561198000000000"},
		{" 76561198000004000 ", "76561198000004000"},
		{"STEAM_0:0:19869136", "76561198000004000"},
		{"STEAM_1:0:19869136", "76561198000004000"},
		{"[U:1:39738272]", "76561198000004000"},
	}

	for _, tc := range valid {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseSteamID(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	invalid := []string{
		"",
		"not-a-steamid",
		"123",
		"10000000000000000",
		"76561198000000000abc",
		"STEAM_0:2:1",
		"[G:1:4]",
		"gaben",
	}

	for _, input := range invalid {
		t.Run("invalid "+input, func(t *testing.T) {
			_, err := ParseSteamID(input)
			assert.ErrorIs(t, err, ErrInvalidSteamID)
		})
	}
}
