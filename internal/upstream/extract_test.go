package upstream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestFirstStringHonoursCandidateOrder(t *testing.T) {
	payload := decode(t, `{"moon_phase":"Waning Crescent","phase":"Full Moon"}`)

	got, ok := FirstString(payload, "moon_phase", "phase")
	require.True(t, ok)
	require.Equal(t, "Waning Crescent", got)

	got, ok = FirstString(payload, "phase", "moon_phase")
	require.True(t, ok)
	require.Equal(t, "Full Moon", got)
}

func TestFirstStringSkipsEmptyAndMissing(t *testing.T) {
	payload := decode(t, `{"phase":"  ","moon":{"phase":"New Moon"}}`)

	got, ok := FirstString(payload, "phase", "moonPhase", "moon.phase")
	require.True(t, ok)
	require.Equal(t, "New Moon", got)

	_, ok = FirstString(payload, "nope", "also.nope")
	require.False(t, ok)
}

func TestFirstNumberAcceptsQuotedValues(t *testing.T) {
	payload := decode(t, `{"location":{"lat":"43.615","lon":-116.202}}`)

	lat, ok := FirstNumber(payload, "lat", "location.lat")
	require.True(t, ok)
	require.InDelta(t, 43.615, lat, 1e-9)

	lon, ok := FirstNumber(payload, "lon", "location.lon")
	require.True(t, ok)
	require.InDelta(t, -116.202, lon, 1e-9)
}

func TestLookupDescendsArrays(t *testing.T) {
	payload := decode(t, `{"cards":[{"name":"The Fool"},{"name":"The Magician"}]}`)

	got, ok := FirstString(payload, "cards.1.name")
	require.True(t, ok)
	require.Equal(t, "The Magician", got)

	_, ok = FirstString(payload, "cards.5.name")
	require.False(t, ok)
}

func TestFirstObject(t *testing.T) {
	payload := decode(t, `{"data":{"card":{"name":"The Star"}}}`)

	card, ok := FirstObject(payload, "card", "data.card")
	require.True(t, ok)
	require.Equal(t, "The Star", card["name"])

	_, ok = FirstObject(payload, "nothing")
	require.False(t, ok)
}
