package ingest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func rawMatch(t *testing.T, src string) RawMatch {
	t.Helper()
	var raw RawMatch
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	return raw
}

func TestNormalizeFullRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 11, 2, 14, 30, 0, 0, time.UTC)
	n := NewNormalizer(&fakeClock{now: now}, NormalizerConfig{})

	raw := rawMatch(t, `{
		"id": "match-1",
		"name": "India vs Australia, Final",
		"matchType": "odi",
		"status": "India won by 6 wickets",
		"venue": "Eden Gardens, Kolkata",
		"teams": ["India", "Australia"],
		"score": [
			{"r": 264, "w": 10, "o": 49.2, "inning": "Australia Inning 1"},
			{"r": 265, "w": 4, "o": 48.1, "inning": "India Inning 1"}
		]
	}`)

	row, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Equal(t, "match-1", row.ID)
	require.Equal(t, "India", row.Team1)
	require.Equal(t, "Australia", row.Team2)
	require.Equal(t, "Final", row.MatchNumber)
	require.Equal(t, "ODI", row.MatchType)
	require.Equal(t, "India won by 6 wickets", row.Status)
	require.Equal(t, "264/10 (49.2)", row.ScoreTeam1)
	require.Equal(t, "265/4 (48.1)", row.ScoreTeam2)
	require.Equal(t, "Eden Gardens", row.Venue)
	require.Equal(t, "Kolkata", row.City)
	require.Equal(t, now, row.ObservedAt)
}

func TestNormalizeMissingIDRejects(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{})

	for name, src := range map[string]string{
		"absent": `{"name": "A vs B"}`,
		"empty":  `{"id": "", "name": "A vs B"}`,
		"blank":  `{"id": "   ", "name": "A vs B"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := n.Normalize(rawMatch(t, src))
			var ne *NormalizeError
			require.ErrorAs(t, err, &ne)
			require.Equal(t, NormalizeErrMissingField, ne.Kind)
			require.Equal(t, "id", ne.Field)
		})
	}
}

func TestNormalizeShortTeamsList(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{})

	row, err := n.Normalize(rawMatch(t, `{"id": "m1", "teams": ["Kenya"]}`))
	require.NoError(t, err)
	require.Equal(t, "Kenya", row.Team1)
	require.Equal(t, "", row.Team2)

	// An empty teams list recovers both names from the display name.
	row, err = n.Normalize(rawMatch(t, `{"id": "m2", "name": "Kenya vs Uganda, 3rd T20I"}`))
	require.NoError(t, err)
	require.Equal(t, "Kenya", row.Team1)
	require.Equal(t, "Uganda", row.Team2)
	require.Equal(t, "3rd T20I", row.MatchNumber)
}

func TestNormalizeScoreFormatting(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{})

	// Not having batted is an empty string, never a zero placeholder.
	row, err := n.Normalize(rawMatch(t, `{"id": "m1", "score": []}`))
	require.NoError(t, err)
	require.Equal(t, "", row.ScoreTeam1)
	require.Equal(t, "", row.ScoreTeam2)

	// All out for zero looks nothing like "has not batted".
	row, err = n.Normalize(rawMatch(t, `{"id": "m2", "score": [{"r": 0, "w": 0, "o": 0}]}`))
	require.NoError(t, err)
	require.Equal(t, "0/0 (0)", row.ScoreTeam1)
	require.Equal(t, "", row.ScoreTeam2)

	// Partial overs render in shortest decimal form.
	row, err = n.Normalize(rawMatch(t, `{"id": "m3", "score": [{"r": 187, "w": 6, "o": 19.3}]}`))
	require.NoError(t, err)
	require.Equal(t, "187/6 (19.3)", row.ScoreTeam1)
}

func TestNormalizeVenueSplit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		venue string
		want  string
		city  string
	}{
		{"Eden Gardens, Kolkata", "Eden Gardens", "Kolkata"},
		{"Unknown Venue", "Unknown Venue", ""},
		{"Sydney Cricket Ground, Sydney, Australia", "Sydney Cricket Ground, Sydney", "Australia"},
		{"", "", ""},
	}

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{})
	for _, tc := range cases {
		raw := RawMatch{
			"id":    json.RawMessage(`"m1"`),
			"venue": mustJSON(t, tc.venue),
		}
		row, err := n.Normalize(raw)
		require.NoError(t, err)
		require.Equal(t, tc.want, row.Venue, "venue for %q", tc.venue)
		require.Equal(t, tc.city, row.City, "city for %q", tc.venue)
	}
}

func TestNormalizeMalformedFieldsDegrade(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{})

	row, err := n.Normalize(rawMatch(t, `{
		"id": "m1",
		"teams": "not-a-list",
		"score": {"r": 1},
		"venue": 42,
		"matchType": null,
		"status": ["weird"]
	}`))
	require.NoError(t, err)
	require.Equal(t, "m1", row.ID)
	require.Equal(t, "", row.Team1)
	require.Equal(t, "", row.ScoreTeam1)
	require.Equal(t, "", row.Venue)
	require.Equal(t, "", row.MatchType)
	require.Equal(t, "", row.Status)
}

func TestNormalizeBatchCollapsesDuplicates(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{})
	raws := []RawMatch{
		rawMatch(t, `{"id": "a", "status": "stale"}`),
		rawMatch(t, `{"id": "b", "status": "live"}`),
		rawMatch(t, `{"id": "a", "status": "fresh"}`),
	}

	rows, rejects := n.NormalizeBatch(raws)
	require.Empty(t, rejects)
	require.Len(t, rows, 2)

	byID := map[string]MatchRow{}
	for _, r := range rows {
		byID[r.ID] = r
	}
	require.Equal(t, "fresh", byID["a"].Status)
	require.Equal(t, "live", byID["b"].Status)
}

func TestNormalizeBatchDropsRejects(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{})
	raws := []RawMatch{
		rawMatch(t, `{"id": "a"}`),
		rawMatch(t, `{"name": "no id here"}`),
		rawMatch(t, `{"id": "b"}`),
	}

	rows, rejects := n.NormalizeBatch(raws)
	require.Len(t, rows, len(raws)-len(rejects))
	require.Len(t, rejects, 1)
	var ne *NormalizeError
	require.ErrorAs(t, rejects[0], &ne)
}

func TestNormalizeBatchSkipStatuses(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(&fakeClock{now: time.Now()}, NormalizerConfig{
		SkipStatuses: []string{"No result due to rain"},
	})
	raws := []RawMatch{
		rawMatch(t, `{"id": "a", "status": "Live"}`),
		rawMatch(t, `{"id": "b", "status": "no result due to rain"}`),
	}

	rows, rejects := n.NormalizeBatch(raws)
	require.Empty(t, rejects)
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].ID)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
