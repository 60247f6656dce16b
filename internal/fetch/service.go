// Package fetch loads market data through the cache: serve a fresh cached
// payload when one exists, otherwise call the API and cache what came back.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cryptodash/internal/cache"
	"cryptodash/internal/coingecko"
	"cryptodash/internal/models"
)

// ErrTokenNotFound is returned by Snapshot when the market endpoint knows
// nothing about the requested coin ID.
var ErrTokenNotFound = errors.New("fetch: token not found")

// MarketAPI is the slice of the CoinGecko client the service depends on.
type MarketAPI interface {
	TopMovers(ctx context.Context, currency, duration string, topCoins int) (*coingecko.MoversPage, error)
	Markets(ctx context.Context, currency string, ids []string) ([]coingecko.MarketRow, error)
	CoinsList(ctx context.Context) ([]coingecko.ListedCoin, error)
}

// Config fixes the fetch parameters for the life of the service. They are
// baked into cache keys, so two services with different parameters never
// share entries.
type Config struct {
	Currency  string
	Universe  int
	Durations []string
	TTL       time.Duration
}

// Service answers the dashboard's data needs. Cache failures are logged and
// degrade to direct API calls, never to request failures.
type Service struct {
	api   MarketAPI
	store cache.Store
	log   *slog.Logger
	cfg   Config

	indexMu sync.Mutex
	index   []models.TokenInfo
}

func NewService(api MarketAPI, store cache.Store, cfg Config, log *slog.Logger) *Service {
	return &Service{api: api, store: store, log: log, cfg: cfg}
}

func (s *Service) Currency() string    { return s.cfg.Currency }
func (s *Service) Durations() []string { return s.cfg.Durations }
func (s *Service) Universe() int       { return s.cfg.Universe }

// Movers returns gainer and loser records across every configured duration,
// refetching from the API when the cached copy is stale or absent. The
// returned slice carries both directions; callers filter.
func (s *Service) Movers(ctx context.Context) ([]models.MoverRecord, error) {
	key := moversKey(s.cfg.Currency, s.cfg.Universe, s.cfg.Durations)
	if recs, ok := getCached[[]models.MoverRecord](ctx, s, key); ok {
		return recs, nil
	}

	var all []models.MoverRecord
	for _, d := range s.cfg.Durations {
		page, err := s.api.TopMovers(ctx, s.cfg.Currency, d, s.cfg.Universe)
		if err != nil {
			return nil, fmt.Errorf("top movers for %s: %w", d, err)
		}
		all = append(all, flattenMovers(page, s.cfg.Currency, d)...)
	}

	s.putCache(ctx, key, all)
	return all, nil
}

// Snapshot returns current market numbers for one coin ID. Unknown IDs
// return ErrTokenNotFound; the empty answer is cached like any other so a
// bad ID does not dodge the TTL.
func (s *Service) Snapshot(ctx context.Context, id string) (*models.TokenSnapshot, error) {
	key := snapshotKey(s.cfg.Currency, id)
	if rows, ok := getCached[[]models.TokenSnapshot](ctx, s, key); ok {
		return firstSnapshot(rows)
	}

	mrows, err := s.api.Markets(ctx, s.cfg.Currency, []string{id})
	if err != nil {
		return nil, fmt.Errorf("market snapshot for %s: %w", id, err)
	}
	rows := make([]models.TokenSnapshot, 0, len(mrows))
	for _, r := range mrows {
		rows = append(rows, toSnapshot(r))
	}

	s.putCache(ctx, key, rows)
	return firstSnapshot(rows)
}

func firstSnapshot(rows []models.TokenSnapshot) (*models.TokenSnapshot, error) {
	if len(rows) == 0 {
		return nil, ErrTokenNotFound
	}
	return &rows[0], nil
}

// TokenIndex returns the full coin catalogue with display labels. The list
// is fetched once and kept for the process lifetime; the lock spans the
// fetch so concurrent callers trigger a single API call. A failed fetch is
// not remembered, the next caller tries again.
func (s *Service) TokenIndex(ctx context.Context) ([]models.TokenInfo, error) {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	if s.index != nil {
		return s.index, nil
	}

	coins, err := s.api.CoinsList(ctx)
	if err != nil {
		return nil, fmt.Errorf("coins list: %w", err)
	}
	index := make([]models.TokenInfo, 0, len(coins))
	for _, c := range coins {
		index = append(index, models.TokenInfo{
			ID:     c.ID,
			Symbol: c.Symbol,
			Name:   c.Name,
			Label:  models.MakeLabel(c.Name, c.Symbol),
		})
	}
	s.index = index
	return s.index, nil
}

// getCached reads and decodes a cached payload. An entry that no longer
// decodes counts as a miss and will be overwritten by the refetch.
func getCached[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var v T
	b, ok := s.store.Get(ctx, key, s.cfg.TTL)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(b, &v); err != nil {
		s.log.Warn("discarding undecodable cache entry", "key", key, "err", err)
		return v, false
	}
	return v, true
}

func (s *Service) putCache(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("marshal cache payload", "key", key, "err", err)
		return
	}
	if err := s.store.Put(ctx, key, b); err != nil {
		s.log.Warn("cache write failed", "key", key, "err", err)
	}
}
