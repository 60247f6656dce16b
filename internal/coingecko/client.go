// Package coingecko is a thin client for the CoinGecko pro API, covering
// the handful of endpoints the dashboard needs.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jpillora/backoff"
)

const defaultBaseURL = "https://pro-api.coingecko.com/api/v3"

// maxAttempts bounds the retry loop for transient failures. Non-transient
// responses (4xx other than 429, malformed bodies) fail on the first try.
const maxAttempts = 3

// ErrMalformedResponse is returned when CoinGecko answers 200 but the body
// does not have the shape the endpoint promises. Callers must not cache or
// retry such a response.
var ErrMalformedResponse = errors.New("coingecko: malformed response")

// StatusError is a non-2xx answer from the API. Body is truncated, for logs.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko: %s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the CoinGecko pro API. The API key is attached to every
// request via the x-cg-pro-api-key header.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string

	backoffMin time.Duration
	backoffMax time.Duration
}

func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		backoffMin: 500 * time.Millisecond,
		backoffMax: 5 * time.Second,
	}
}

// MoversPage is one duration's worth of top gainers and losers.
type MoversPage struct {
	Gainers []MoverEntry
	Losers  []MoverEntry
}

// MoverEntry is a single coin row from /coins/top_gainers_losers. The API
// embeds the quote currency in field names (usd, usd_24h_vol,
// usd_1h_change), so rows are kept as raw maps and read through getters.
type MoverEntry map[string]any

func (m MoverEntry) str(key string) string {
	s, _ := m[key].(string)
	return s
}

func (m MoverEntry) num(key string) float64 {
	f, _ := m[key].(float64)
	return f
}

func (m MoverEntry) ID() string     { return m.str("id") }
func (m MoverEntry) Name() string   { return m.str("name") }
func (m MoverEntry) Symbol() string { return m.str("symbol") }
func (m MoverEntry) Image() string  { return m.str("image") }

func (m MoverEntry) MarketCapRank() int { return int(m.num("market_cap_rank")) }

// Price is the spot price in the requested quote currency.
func (m MoverEntry) Price(currency string) float64 { return m.num(currency) }

// Volume24h is the 24h volume in the requested quote currency.
func (m MoverEntry) Volume24h(currency string) float64 {
	return m.num(currency + "_24h_vol")
}

// Change is the percent change over the requested duration, e.g. the
// usd_1h_change field for ("usd", "1h").
func (m MoverEntry) Change(currency, duration string) float64 {
	return m.num(currency + "_" + duration + "_change")
}

// TopMovers fetches the top gainers and losers over one duration. topCoins
// restricts the ranking universe to the top N coins by market cap.
func (c *Client) TopMovers(ctx context.Context, currency, duration string, topCoins int) (*MoversPage, error) {
	q := url.Values{}
	q.Set("vs_currency", currency)
	q.Set("duration", duration)
	q.Set("top_coins", fmt.Sprint(topCoins))

	body, err := c.get(ctx, "/coins/top_gainers_losers", q)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	gainersRaw, okG := raw["top_gainers"]
	losersRaw, okL := raw["top_losers"]
	if !okG || !okL {
		return nil, fmt.Errorf("%w: missing top_gainers or top_losers", ErrMalformedResponse)
	}

	var page MoversPage
	if err := json.Unmarshal(gainersRaw, &page.Gainers); err != nil {
		return nil, fmt.Errorf("%w: top_gainers: %v", ErrMalformedResponse, err)
	}
	if err := json.Unmarshal(losersRaw, &page.Losers); err != nil {
		return nil, fmt.Errorf("%w: top_losers: %v", ErrMalformedResponse, err)
	}
	return &page, nil
}

// MarketRow is one coin from /coins/markets. The change percentages are
// pointers because CoinGecko omits them for thinly traded coins.
type MarketRow struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	CurrentPrice  float64  `json:"current_price"`
	MarketCap     float64  `json:"market_cap"`
	TotalVolume   float64  `json:"total_volume"`
	Change1h      *float64 `json:"price_change_percentage_1h_in_currency"`
	Change24h     *float64 `json:"price_change_percentage_24h_in_currency"`
	Change7d      *float64 `json:"price_change_percentage_7d_in_currency"`
	MarketCapRank int      `json:"market_cap_rank"`
}

// Markets fetches market rows for the given coin IDs, ordered by market cap.
func (c *Client) Markets(ctx context.Context, currency string, ids []string) ([]MarketRow, error) {
	q := url.Values{}
	q.Set("vs_currency", currency)
	q.Set("ids", strings.Join(ids, ","))
	q.Set("order", "market_cap_desc")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "1h,24h,7d")

	body, err := c.get(ctx, "/coins/markets", q)
	if err != nil {
		return nil, err
	}
	var rows []MarketRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return rows, nil
}

// ListedCoin is one entry from the full /coins/list catalogue.
type ListedCoin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// CoinsList fetches the full coin catalogue. The list runs to tens of
// thousands of entries, so callers should hold on to the result.
func (c *Client) CoinsList(ctx context.Context) ([]ListedCoin, error) {
	body, err := c.get(ctx, "/coins/list", nil)
	if err != nil {
		return nil, err
	}
	var coins []ListedCoin
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return coins, nil
}

// Ping checks API reachability and key validity.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, "/ping", nil)
	return err
}

// get issues a GET with retries. Transport errors, 429 and 5xx are retried
// up to maxAttempts with jittered backoff; other failures return at once.
func (c *Client) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	b := &backoff.Backoff{
		Min:    c.backoffMin,
		Max:    c.backoffMax,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retryable, err := c.doOnce(ctx, endpoint, u)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, endpoint, u string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("coingecko: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-cg-pro-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("coingecko: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, true, fmt.Errorf("coingecko: read %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(body), 200),
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, statusErr
	}
	return body, false, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
