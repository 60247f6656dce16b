package models

import (
	"fmt"
	"strings"
)

// MoverRecord is one normalized row of the top gainers/losers table: a single
// coin classified for a single (duration, direction) bucket. The same coin may
// appear once per duration, but never in both directions of one duration.
type MoverRecord struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol"`
	Image         string  `json:"image,omitempty"`
	MarketCapRank int     `json:"market_cap_rank,omitempty"`
	Price         float64 `json:"price"`
	Volume24h     float64 `json:"volume_24h"`
	Change        float64 `json:"change_pct"`
	Direction     string  `json:"type"`
	Duration      string  `json:"duration"`
}

// TokenSnapshot is a point-in-time market view of one token, with its
// percentage change over the three fixed lookback windows.
type TokenSnapshot struct {
	ID        string  `json:"id"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"current_price"`
	MarketCap float64 `json:"market_cap"`
	Volume    float64 `json:"total_volume"`
	Change1h  float64 `json:"change_pct_1h"`
	Change24h float64 `json:"change_pct_24h"`
	Change7d  float64 `json:"change_pct_7d"`
}

// TokenInfo is one entry of the tradable-token index used for interactive
// search. Label is the display string the search matches against.
type TokenInfo struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Label  string `json:"label"`
}

// MakeLabel derives the search label, e.g. "Bitcoin (BTC)".
func MakeLabel(name, symbol string) string {
	return fmt.Sprintf("%s (%s)", name, strings.ToUpper(symbol))
}

// Point is one labeled value of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a chart-ready sequence of points. The UI renders it as a bar
// chart; this package only shapes the data.
type Series struct {
	Title  string  `json:"title"`
	Points []Point `json:"points"`
}
