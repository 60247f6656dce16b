package fetch

import (
	"cryptodash/internal/coingecko"
	"cryptodash/internal/models"
)

// flattenMovers turns one duration's gainers/losers page into flat records,
// tagging each with its direction and the duration it was fetched for. The
// tags are what let records from several durations share one slice.
func flattenMovers(page *coingecko.MoversPage, currency, duration string) []models.MoverRecord {
	out := make([]models.MoverRecord, 0, len(page.Gainers)+len(page.Losers))
	for _, e := range page.Gainers {
		out = append(out, toRecord(e, currency, duration, models.DirectionGainer))
	}
	for _, e := range page.Losers {
		out = append(out, toRecord(e, currency, duration, models.DirectionLoser))
	}
	return out
}

func toRecord(e coingecko.MoverEntry, currency, duration, direction string) models.MoverRecord {
	return models.MoverRecord{
		ID:            e.ID(),
		Name:          e.Name(),
		Symbol:        e.Symbol(),
		Image:         e.Image(),
		MarketCapRank: e.MarketCapRank(),
		Price:         e.Price(currency),
		Volume24h:     e.Volume24h(currency),
		Change:        e.Change(currency, duration),
		Direction:     direction,
		Duration:      duration,
	}
}

func toSnapshot(row coingecko.MarketRow) models.TokenSnapshot {
	s := models.TokenSnapshot{
		ID:        row.ID,
		Symbol:    row.Symbol,
		Name:      row.Name,
		Price:     row.CurrentPrice,
		MarketCap: row.MarketCap,
		Volume:    row.TotalVolume,
	}
	if row.Change1h != nil {
		s.Change1h = *row.Change1h
	}
	if row.Change24h != nil {
		s.Change24h = *row.Change24h
	}
	if row.Change7d != nil {
		s.Change7d = *row.Change7d
	}
	return s
}
