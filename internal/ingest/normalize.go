package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NormalizerConfig controls batch-level filtering.
type NormalizerConfig struct {
	// SkipStatuses drops rows whose normalized status matches one of these
	// values (case-insensitive). Empty means keep everything.
	SkipStatuses []string
}

// Normalizer maps raw API records into MatchRow values. Each field is
// extracted independently; only a missing id rejects a record.
type Normalizer struct {
	clock        Clock
	skipStatuses map[string]struct{}
}

// NewNormalizer constructs a Normalizer stamping rows with the given clock.
func NewNormalizer(clock Clock, cfg NormalizerConfig) *Normalizer {
	skip := make(map[string]struct{}, len(cfg.SkipStatuses))
	for _, s := range cfg.SkipStatuses {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			skip[s] = struct{}{}
		}
	}
	return &Normalizer{clock: clock, skipStatuses: skip}
}

// Normalize maps a single raw record into a MatchRow. A record without a
// usable id fails with NormalizeError{missing_field}; every other malformed
// field degrades to an empty value.
func (n *Normalizer) Normalize(raw RawMatch) (MatchRow, error) {
	id := strings.TrimSpace(stringField(raw, "id"))
	if id == "" {
		return MatchRow{}, &NormalizeError{Kind: NormalizeErrMissingField, Field: "id"}
	}

	name := strings.TrimSpace(stringField(raw, "name"))
	teams := stringsField(raw, "teams")
	if len(teams) == 0 {
		teams = teamsFromName(name)
	}

	row := MatchRow{ID: id}
	if len(teams) > 0 {
		row.Team1 = strings.TrimSpace(teams[0])
	}
	if len(teams) > 1 {
		row.Team2 = strings.TrimSpace(teams[1])
	}

	scores := scoresField(raw, "score")
	row.ScoreTeam1 = formatInnings(scores, 0)
	row.ScoreTeam2 = formatInnings(scores, 1)

	row.Venue, row.City = splitVenue(stringField(raw, "venue"))
	row.MatchType = strings.ToUpper(strings.TrimSpace(stringField(raw, "matchType")))
	row.Status = strings.TrimSpace(stringField(raw, "status"))
	row.MatchNumber = strings.TrimSpace(stringField(raw, "matchNumber"))
	if row.MatchNumber == "" {
		row.MatchNumber = matchNumberFromName(name)
	}
	row.ObservedAt = n.clock.Now()
	return row, nil
}

// NormalizeBatch normalizes a batch, collapsing duplicate ids (last
// occurrence wins) and filtering skip-listed statuses. Rejected records are
// returned as errors so the caller can log them; they never abort the batch.
func (n *Normalizer) NormalizeBatch(raws []RawMatch) (rows []MatchRow, rejects []error) {
	index := make(map[string]int, len(raws))
	for _, raw := range raws {
		row, err := n.Normalize(raw)
		if err != nil {
			rejects = append(rejects, err)
			continue
		}
		if _, skip := n.skipStatuses[strings.ToLower(row.Status)]; skip {
			continue
		}
		if i, seen := index[row.ID]; seen {
			rows[i] = row
			continue
		}
		index[row.ID] = len(rows)
		rows = append(rows, row)
	}
	return rows, rejects
}

// formatInnings renders the innings entry for team idx as
// "<runs>/<wickets> (<overs>)". A team without an entry has not batted yet
// and yields an empty string, which is distinct from "0/0 (0)".
func formatInnings(scores []RawInnings, idx int) string {
	if idx < 0 || idx >= len(scores) {
		return ""
	}
	s := scores[idx]
	return strconv.Itoa(s.Runs) + "/" + strconv.Itoa(s.Wickets) +
		" (" + strconv.FormatFloat(s.Overs, 'f', -1, 64) + ")"
}

// splitVenue splits a combined "Venue, City" string on the last comma.
// Without a comma the whole string is the venue.
func splitVenue(venue string) (string, string) {
	venue = strings.TrimSpace(venue)
	i := strings.LastIndex(venue, ",")
	if i < 0 {
		return venue, ""
	}
	return strings.TrimSpace(venue[:i]), strings.TrimSpace(venue[i+1:])
}

// teamsFromName recovers team names from a "Team A vs Team B, 3rd Match"
// style display name when the teams list is absent.
func teamsFromName(name string) []string {
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}
	parts := strings.SplitN(name, " vs ", 2)
	if len(parts) < 2 {
		return nil
	}
	return []string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])}
}

// matchNumberFromName extracts the match descriptor after the last comma of
// the display name, e.g. "India vs Australia, Final" yields "Final".
func matchNumberFromName(name string) string {
	i := strings.LastIndex(name, ",")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(name[i+1:])
}

func stringField(raw RawMatch, key string) string {
	msg, ok := raw[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return ""
	}
	return s
}

func stringsField(raw RawMatch, key string) []string {
	msg, ok := raw[key]
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal(msg, &out); err != nil {
		return nil
	}
	return out
}

func scoresField(raw RawMatch, key string) []RawInnings {
	msg, ok := raw[key]
	if !ok {
		return nil
	}
	var out []RawInnings
	if err := json.Unmarshal(msg, &out); err != nil {
		return nil
	}
	return out
}
