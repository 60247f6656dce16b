package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"cryptodash/internal/brief"
	"cryptodash/internal/fetch"
	"cryptodash/internal/models"
	"cryptodash/internal/view"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	healthCheckTimeout = 5 * time.Second
)

// Fetcher is the slice of the fetch service the handlers depend on.
type Fetcher interface {
	Movers(ctx context.Context) ([]models.MoverRecord, error)
	Snapshot(ctx context.Context, id string) (*models.TokenSnapshot, error)
	TokenIndex(ctx context.Context) ([]models.TokenInfo, error)
	Currency() string
	Durations() []string
	Universe() int
}

// Briefer produces written summaries of a movers list.
type Briefer interface {
	MoversBrief(ctx context.Context, rows []models.MoverRecord, currency, duration, direction string, limit int) (string, error)
}

// HealthCheck probes one dependency for the health endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler carries the dependencies behind the API routes. A nil briefer
// turns the brief endpoint off.
type Handler struct {
	fetcher Fetcher
	briefer Briefer
	checks  []HealthCheck
	log     *slog.Logger
}

func NewHandler(fetcher Fetcher, briefer Briefer, checks []HealthCheck, log *slog.Logger) *Handler {
	return &Handler{fetcher: fetcher, briefer: briefer, checks: checks, log: log}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/meta", h.handleMeta)
	mux.HandleFunc("GET /api/movers", h.handleMovers)
	mux.HandleFunc("GET /api/tokens", h.handleTokens)
	mux.HandleFunc("GET /api/tokens/snapshot", h.handleSnapshot)
	mux.HandleFunc("GET /api/brief", h.handleBrief)
	mux.HandleFunc("GET /health", h.handleHealth)
	return requestLogger(h.log, mux)
}

type metaResponse struct {
	Currency     string   `json:"currency"`
	Universe     int      `json:"universe"`
	Durations    []string `json:"durations"`
	Directions   []string `json:"directions"`
	DefaultLimit int      `json:"default_limit"`
	BriefEnabled bool     `json:"brief_enabled"`
}

// handleMeta tells the UI what this deployment serves; the duration subset
// and currency vary per deployment.
func (h *Handler) handleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metaResponse{
		Currency:     h.fetcher.Currency(),
		Universe:     h.fetcher.Universe(),
		Durations:    h.fetcher.Durations(),
		Directions:   []string{models.DirectionGainer, models.DirectionLoser},
		DefaultLimit: defaultLimit,
		BriefEnabled: h.briefer != nil,
	})
}

type moversResponse struct {
	Duration  string               `json:"duration"`
	Direction string               `json:"type"`
	Limit     int                  `json:"limit"`
	Rows      []models.MoverRecord `json:"rows"`
	Chart     models.Series        `json:"chart"`
}

func (h *Handler) handleMovers(w http.ResponseWriter, r *http.Request) {
	duration, direction, limit, err := h.moversParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.fetcher.Movers(r.Context())
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, moversResponse{
		Duration:  duration,
		Direction: direction,
		Limit:     limit,
		Rows:      view.Movers(records, duration, direction, limit),
		Chart:     view.MoversChart(records, duration, direction, limit),
	})
}

type tokensResponse struct {
	Query   string             `json:"query"`
	Count   int                `json:"count"`
	Matches []models.TokenInfo `json:"matches"`
}

func (h *Handler) handleTokens(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	index, err := h.fetcher.TokenIndex(r.Context())
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}

	matches := view.Search(index, query)
	writeJSON(w, http.StatusOK, tokensResponse{Query: query, Count: len(matches), Matches: matches})
}

type snapshotResponse struct {
	Snapshot models.TokenSnapshot `json:"snapshot"`
	Chart    models.Series        `json:"chart"`
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	label := q.Get("label")
	if id == "" && label == "" {
		writeError(w, http.StatusBadRequest, "id or label is required")
		return
	}

	if id == "" {
		index, err := h.fetcher.TokenIndex(r.Context())
		if err != nil {
			h.upstreamError(w, r, err)
			return
		}
		tok, ok := view.MatchLabel(index, label)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("no token labeled %q", label))
			return
		}
		id = tok.ID
	}

	snap, err := h.fetcher.Snapshot(r.Context(), id)
	switch {
	case errors.Is(err, fetch.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("no market data for %q", id))
		return
	case err != nil:
		h.upstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshotResponse{
		Snapshot: *snap,
		Chart:    view.SnapshotChart(*snap),
	})
}

type briefResponse struct {
	Duration  string `json:"duration"`
	Direction string `json:"type"`
	Limit     int    `json:"limit"`
	Summary   string `json:"summary"`
}

func (h *Handler) handleBrief(w http.ResponseWriter, r *http.Request) {
	if h.briefer == nil {
		writeError(w, http.StatusServiceUnavailable, "brief generation is not configured")
		return
	}

	duration, direction, limit, err := h.moversParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.fetcher.Movers(r.Context())
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	rows := view.Movers(records, duration, direction, limit)

	text, err := h.briefer.MoversBrief(r.Context(), rows, h.fetcher.Currency(), duration, direction, limit)
	switch {
	case errors.Is(err, brief.ErrNoRows):
		writeError(w, http.StatusNotFound, "no movers to summarize")
		return
	case err != nil:
		h.upstreamError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, briefResponse{
		Duration:  duration,
		Direction: direction,
		Limit:     limit,
		Summary:   text,
	})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.log.Warn("health check failed", "check", c.Name, "err", err)
			resp.Status = "degraded"
			resp.Checks[c.Name] = err.Error()
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// moversParams reads the shared duration/type/limit query parameters,
// filling in defaults: the first configured duration, gainers, ten rows.
func (h *Handler) moversParams(r *http.Request) (duration, direction string, limit int, err error) {
	q := r.URL.Query()

	duration = q.Get("duration")
	if duration == "" {
		duration = h.fetcher.Durations()[0]
	} else if !slices.Contains(h.fetcher.Durations(), duration) {
		return "", "", 0, fmt.Errorf("duration must be one of %v", h.fetcher.Durations())
	}

	direction = q.Get("type")
	if direction == "" {
		direction = models.DirectionGainer
	} else if !models.IsDirection(direction) {
		return "", "", 0, fmt.Errorf("type must be %s or %s", models.DirectionGainer, models.DirectionLoser)
	}

	limit = defaultLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return "", "", 0, fmt.Errorf("limit must be an integer between 1 and %d", maxLimit)
		}
	}
	return duration, direction, limit, nil
}

func (h *Handler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("upstream request failed", "path", r.URL.Path, "err", err)
	writeError(w, http.StatusBadGateway, "fetching market data failed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
