// Package view derives presentation-ready slices from already-fetched
// records. Everything here is pure: no I/O, no clock, same inputs always
// give the same outputs.
package view

import (
	"fmt"
	"sort"
	"strings"

	"cryptodash/internal/models"
)

// Movers filters records down to one duration and direction, sorted by
// percent change, largest first, and truncated to limit. Losers sort the
// same way, so the heaviest loss lands at the bottom of its list. A
// non-positive limit returns every match.
func Movers(records []models.MoverRecord, duration, direction string, limit int) []models.MoverRecord {
	out := make([]models.MoverRecord, 0, len(records))
	for _, r := range records {
		if r.Duration == duration && r.Direction == direction {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Change > out[j].Change })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MoversChart shapes the filtered movers into a labeled series for a bar
// chart, one point per coin.
func MoversChart(records []models.MoverRecord, duration, direction string, limit int) models.Series {
	rows := Movers(records, duration, direction, limit)
	points := make([]models.Point, 0, len(rows))
	for _, r := range rows {
		points = append(points, models.Point{
			Label: models.MakeLabel(r.Name, r.Symbol),
			Value: r.Change,
		})
	}
	return models.Series{
		Title:  fmt.Sprintf("Top %d %s by %s change", limit, directionWord(direction), duration),
		Points: points,
	}
}

// SnapshotChart shapes one token's change percentages into a fixed
// three-window series.
func SnapshotChart(s models.TokenSnapshot) models.Series {
	return models.Series{
		Title: models.MakeLabel(s.Name, s.Symbol) + " price change",
		Points: []models.Point{
			{Label: "1h", Value: s.Change1h},
			{Label: "24h", Value: s.Change24h},
			{Label: "7d", Value: s.Change7d},
		},
	}
}

// Search returns the tokens whose label contains the query, ignoring case.
// A blank query matches nothing rather than everything; the catalogue runs
// to tens of thousands of entries.
func Search(index []models.TokenInfo, query string) []models.TokenInfo {
	matches := []models.TokenInfo{}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return matches
	}
	for _, t := range index {
		if strings.Contains(strings.ToLower(t.Label), q) {
			matches = append(matches, t)
		}
	}
	return matches
}

// MatchLabel resolves an exact display label back to its token.
func MatchLabel(index []models.TokenInfo, label string) (models.TokenInfo, bool) {
	for _, t := range index {
		if t.Label == label {
			return t, true
		}
	}
	return models.TokenInfo{}, false
}

func directionWord(direction string) string {
	if direction == models.DirectionLoser {
		return "Losers"
	}
	return "Gainers"
}
