package fetch

import (
	"fmt"
	"strings"
)

// Cache keys carry every parameter that shapes the payload, so a config
// change never serves data fetched under different parameters.

func moversKey(currency string, universe int, durations []string) string {
	return fmt.Sprintf("movers:%s:%d:%s", currency, universe, strings.Join(durations, ","))
}

func snapshotKey(currency, id string) string {
	return fmt.Sprintf("token:%s:%s", currency, id)
}
