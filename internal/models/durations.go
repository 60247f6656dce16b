package models

// Directions a mover can be classified as. The API guarantees a coin sits in
// at most one of them per duration; nothing here re-derives that.
const (
	DirectionGainer = "gainer"
	DirectionLoser  = "loser"
)

// SupportedDurations are the lookback windows the market API understands.
// A deployment configures a subset of these.
var SupportedDurations = []string{"1h", "24h", "7d"}

func IsSupportedDuration(d string) bool {
	for _, s := range SupportedDurations {
		if d == s {
			return true
		}
	}
	return false
}

func IsDirection(d string) bool {
	return d == DirectionGainer || d == DirectionLoser
}
