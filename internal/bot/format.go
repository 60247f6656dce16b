package bot

import (
	"fmt"
	"strings"
	"time"

	"cryptodash/internal/models"
)

func formatMovers(rows []models.MoverRecord, duration, direction string) string {
	header := fmt.Sprintf("🚀 TOP %s (%s) 🚀", strings.ToUpper(directionWord(direction)), duration)
	if direction == models.DirectionLoser {
		header = fmt.Sprintf("📉 TOP %s (%s) 📉", strings.ToUpper(directionWord(direction)), duration)
	}

	lines := make([]string, 0, len(rows))
	for i, r := range rows {
		lines = append(lines, formatMoverLine(i+1, r))
	}

	timestamp := time.Now().UTC().Format("2006-01-02 15:04 UTC")
	return fmt.Sprintf("%s\n\n%s\n\n📊 Updated: %s", header, strings.Join(lines, "\n"), timestamp)
}

func formatMoverLine(rank int, r models.MoverRecord) string {
	rankEmoji := "▫️"
	switch rank {
	case 1:
		rankEmoji = "🥇"
	case 2:
		rankEmoji = "🥈"
	case 3:
		rankEmoji = "🥉"
	}

	return fmt.Sprintf("%s #%d %s | 💰 %s (%s%+.2f%%) | 📈 Vol: %s",
		rankEmoji,
		rank,
		models.MakeLabel(r.Name, r.Symbol),
		formatPrice(r.Price),
		changeIndicator(r.Change),
		r.Change,
		formatValue(r.Volume24h))
}

func formatSnapshot(s models.TokenSnapshot) string {
	timestamp := time.Now().UTC().Format("2006-01-02 15:04 UTC")
	return fmt.Sprintf(`💠 %s

💰 Price: %s
💎 Market cap: %s
📈 24h volume: %s

%s 1h: %+.2f%%
%s 24h: %+.2f%%
%s 7d: %+.2f%%

📊 Updated: %s`,
		models.MakeLabel(s.Name, s.Symbol),
		formatPrice(s.Price),
		formatValue(s.MarketCap),
		formatValue(s.Volume),
		changeIndicator(s.Change1h), s.Change1h,
		changeIndicator(s.Change24h), s.Change24h,
		changeIndicator(s.Change7d), s.Change7d,
		timestamp)
}

func formatMatches(query string, matches []models.TokenInfo) string {
	shown := matches
	if len(shown) > maxMatches {
		shown = shown[:maxMatches]
	}
	lines := make([]string, 0, len(shown))
	for _, m := range shown {
		lines = append(lines, "▫️ "+m.Label)
	}

	suffix := ""
	if len(matches) > maxMatches {
		suffix = fmt.Sprintf("\n...and %d more.", len(matches)-maxMatches)
	}
	return fmt.Sprintf("%d tokens match %q:\n\n%s%s\n\nSend /token with the exact label to pick one.",
		len(matches), query, strings.Join(lines, "\n"), suffix)
}

func directionWord(direction string) string {
	if direction == models.DirectionLoser {
		return "losers"
	}
	return "gainers"
}

func changeIndicator(change float64) string {
	if change > 0 {
		return "🟢"
	}
	if change < 0 {
		return "🔴"
	}
	return "➖"
}

func formatValue(value float64) string {
	if value == 0 {
		return "N/A"
	}
	if value >= 1e12 {
		return fmt.Sprintf("%.2f T", value/1e12)
	}
	if value >= 1e9 {
		return fmt.Sprintf("%.2f B", value/1e9)
	}
	if value >= 1e6 {
		return fmt.Sprintf("%.2f M", value/1e6)
	}
	return fmt.Sprintf("%.2f", value)
}

func formatPrice(price float64) string {
	if price == 0 {
		return "N/A"
	}
	switch {
	case price < 0.01:
		return fmt.Sprintf("$%.8f", price)
	case price < 100:
		return fmt.Sprintf("$%.4f", price)
	default:
		return fmt.Sprintf("$%.2f", price)
	}
}
