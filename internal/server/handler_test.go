package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cryptodash/internal/brief"
	"cryptodash/internal/fetch"
	"cryptodash/internal/models"
)

type fakeFetcher struct {
	records   []models.MoverRecord
	moversErr error
	snaps     map[string]models.TokenSnapshot
	index     []models.TokenInfo
	indexErr  error
}

func (f *fakeFetcher) Movers(context.Context) ([]models.MoverRecord, error) {
	return f.records, f.moversErr
}

func (f *fakeFetcher) Snapshot(_ context.Context, id string) (*models.TokenSnapshot, error) {
	snap, ok := f.snaps[id]
	if !ok {
		return nil, fetch.ErrTokenNotFound
	}
	return &snap, nil
}

func (f *fakeFetcher) TokenIndex(context.Context) ([]models.TokenInfo, error) {
	return f.index, f.indexErr
}

func (f *fakeFetcher) Currency() string    { return "usd" }
func (f *fakeFetcher) Durations() []string { return []string{"24h", "7d"} }
func (f *fakeFetcher) Universe() int       { return 1000 }

type fakeBriefer struct {
	text string
	err  error

	gotRows      int
	gotDirection string
}

func (f *fakeBriefer) MoversBrief(_ context.Context, rows []models.MoverRecord, _, _, direction string, _ int) (string, error) {
	f.gotRows = len(rows)
	f.gotDirection = direction
	return f.text, f.err
}

func testFetcher() *fakeFetcher {
	return &fakeFetcher{
		records: []models.MoverRecord{
			{ID: "pepe", Name: "Pepe", Symbol: "pepe", Change: 12.5, Duration: "24h", Direction: models.DirectionGainer},
			{ID: "sol", Name: "Solana", Symbol: "sol", Change: 30.0, Duration: "24h", Direction: models.DirectionGainer},
			{ID: "bonk", Name: "Bonk", Symbol: "bonk", Change: -8.0, Duration: "24h", Direction: models.DirectionLoser},
			{ID: "ada", Name: "Cardano", Symbol: "ada", Change: 4.0, Duration: "7d", Direction: models.DirectionGainer},
		},
		snaps: map[string]models.TokenSnapshot{
			"bitcoin": {ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Price: 67000, Change24h: -1.2},
		},
		index: []models.TokenInfo{
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Label: "Bitcoin (BTC)"},
			{ID: "ethereum", Symbol: "eth", Name: "Ethereum", Label: "Ethereum (ETH)"},
		},
	}
}

func doRequest(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %s: %v", rr.Body.String(), err)
	}
}

func newTestHandler(f Fetcher, b Briefer, checks []HealthCheck) *Handler {
	return NewHandler(f, b, checks, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMeta(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	rr := doRequest(t, h, "/api/meta")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp metaResponse
	decodeInto(t, rr, &resp)
	if resp.Currency != "usd" || resp.Universe != 1000 || resp.DefaultLimit != 10 {
		t.Errorf("meta = %+v", resp)
	}
	if len(resp.Durations) != 2 || resp.Durations[0] != "24h" {
		t.Errorf("durations = %v", resp.Durations)
	}
	if len(resp.Directions) != 2 {
		t.Errorf("directions = %v", resp.Directions)
	}
	if resp.BriefEnabled {
		t.Error("brief should read as disabled without a briefer")
	}

	h = newTestHandler(testFetcher(), &fakeBriefer{}, nil)
	rr = doRequest(t, h, "/api/meta")
	decodeInto(t, rr, &resp)
	if !resp.BriefEnabled {
		t.Error("brief should read as enabled")
	}
}

func TestMoversDefaults(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	rr := doRequest(t, h, "/api/movers")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp moversResponse
	decodeInto(t, rr, &resp)

	// First configured duration, gainers, limit 10.
	if resp.Duration != "24h" || resp.Direction != models.DirectionGainer || resp.Limit != 10 {
		t.Errorf("defaults = %s/%s/%d", resp.Duration, resp.Direction, resp.Limit)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("rows = %+v", resp.Rows)
	}
	// Sorted by change, largest first.
	if resp.Rows[0].ID != "sol" || resp.Rows[1].ID != "pepe" {
		t.Errorf("order = %s, %s", resp.Rows[0].ID, resp.Rows[1].ID)
	}
	if resp.Chart.Title != "Top 10 Gainers by 24h change" {
		t.Errorf("chart title = %q", resp.Chart.Title)
	}
}

func TestMoversParams(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	rr := doRequest(t, h, "/api/movers?duration=24h&type=loser&limit=5")
	var resp moversResponse
	decodeInto(t, rr, &resp)
	if len(resp.Rows) != 1 || resp.Rows[0].ID != "bonk" {
		t.Fatalf("rows = %+v", resp.Rows)
	}
}

func TestMoversBadParams(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	for _, path := range []string{
		"/api/movers?duration=30d",
		"/api/movers?duration=1h", // supported by the API but not configured
		"/api/movers?type=sideways",
		"/api/movers?limit=0",
		"/api/movers?limit=101",
		"/api/movers?limit=ten",
	} {
		if rr := doRequest(t, h, path); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", path, rr.Code)
		}
	}
}

func TestMoversUpstreamFailure(t *testing.T) {
	f := testFetcher()
	f.moversErr = errors.New("api down")
	h := newTestHandler(f, nil, nil)

	rr := doRequest(t, h, "/api/movers")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]string
	decodeInto(t, rr, &resp)
	if resp["error"] == "" {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestTokensSearch(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)

	rr := doRequest(t, h, "/api/tokens?q=bit")
	var resp tokensResponse
	decodeInto(t, rr, &resp)
	if resp.Count != 1 || resp.Matches[0].ID != "bitcoin" {
		t.Fatalf("resp = %+v", resp)
	}

	// No query is an empty result, not an error and not null.
	rr = doRequest(t, h, "/api/tokens")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), `"matches":null`) {
		t.Errorf("matches should encode as [], got %s", rr.Body.String())
	}
}

func TestSnapshotByID(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	rr := doRequest(t, h, "/api/tokens/snapshot?id=bitcoin")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp snapshotResponse
	decodeInto(t, rr, &resp)
	if resp.Snapshot.ID != "bitcoin" || resp.Snapshot.Price != 67000 {
		t.Errorf("snapshot = %+v", resp.Snapshot)
	}
	if len(resp.Chart.Points) != 3 {
		t.Errorf("chart = %+v", resp.Chart)
	}
}

func TestSnapshotByLabel(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	rr := doRequest(t, h, "/api/tokens/snapshot?label=Bitcoin+%28BTC%29")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp snapshotResponse
	decodeInto(t, rr, &resp)
	if resp.Snapshot.ID != "bitcoin" {
		t.Errorf("snapshot = %+v", resp.Snapshot)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	for _, path := range []string{
		"/api/tokens/snapshot?id=no-such-coin",
		"/api/tokens/snapshot?label=Nope+%28NO%29",
	} {
		if rr := doRequest(t, h, path); rr.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want 404", path, rr.Code)
		}
	}
}

func TestSnapshotMissingParams(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	if rr := doRequest(t, h, "/api/tokens/snapshot"); rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestBriefDisabled(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	if rr := doRequest(t, h, "/api/brief"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
}

func TestBrief(t *testing.T) {
	b := &fakeBriefer{text: "Solana led the gainers."}
	h := newTestHandler(testFetcher(), b, nil)

	rr := doRequest(t, h, "/api/brief?duration=24h&type=gainer&limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp briefResponse
	decodeInto(t, rr, &resp)
	if resp.Summary != "Solana led the gainers." {
		t.Errorf("summary = %q", resp.Summary)
	}
	// The briefer sees the filtered rows, not the whole record set.
	if b.gotRows != 2 || b.gotDirection != models.DirectionGainer {
		t.Errorf("briefer got %d rows, direction %q", b.gotRows, b.gotDirection)
	}
}

func TestBriefNoRows(t *testing.T) {
	b := &fakeBriefer{err: brief.ErrNoRows}
	h := newTestHandler(testFetcher(), b, nil)
	if rr := doRequest(t, h, "/api/brief?duration=7d&type=loser"); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("connection refused") }

	h := newTestHandler(testFetcher(), nil, []HealthCheck{
		{Name: "coingecko", Check: ok},
		{Name: "cache", Check: ok},
	})
	rr := doRequest(t, h, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp healthResponse
	decodeInto(t, rr, &resp)
	if resp.Status != "ok" || resp.Checks["cache"] != "ok" {
		t.Errorf("health = %+v", resp)
	}

	h = newTestHandler(testFetcher(), nil, []HealthCheck{
		{Name: "coingecko", Check: ok},
		{Name: "cache", Check: failing},
	})
	rr = doRequest(t, h, "/health")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	decodeInto(t, rr, &resp)
	if resp.Status != "degraded" || resp.Checks["coingecko"] != "ok" {
		t.Errorf("health = %+v", resp)
	}
	if !strings.Contains(resp.Checks["cache"], "connection refused") {
		t.Errorf("cache check = %q", resp.Checks["cache"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(testFetcher(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/movers", nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rr.Code)
	}
}
