// Package brief turns mover records into a short written market summary
// via the OpenAI chat API.
package brief

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"cryptodash/internal/cache"
	"cryptodash/internal/models"
)

const DefaultModel = openai.GPT4oMini

const systemPrompt = "You are a concise crypto market commentator. " +
	"Summarize the listed movers in two or three plain sentences. " +
	"Mention standout coins by name, no financial advice, no hype."

// ErrNoRows is returned when there is nothing to summarize.
var ErrNoRows = errors.New("brief: no mover rows")

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Generator produces briefs and caches them alongside the market data, so
// one completion serves every reader until the underlying numbers go stale.
type Generator struct {
	chat  chatCompleter
	model string
	store cache.Store
	ttl   time.Duration
	log   *slog.Logger
}

func New(apiKey, model string, store cache.Store, ttl time.Duration, log *slog.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		chat:  openai.NewClient(apiKey),
		model: model,
		store: store,
		ttl:   ttl,
		log:   log,
	}
}

// MoversBrief summarizes an already-filtered movers list. rows must be the
// presentation slice for the given duration, direction and limit; those
// parameters only name the cache entry.
func (g *Generator) MoversBrief(ctx context.Context, rows []models.MoverRecord, currency, duration, direction string, limit int) (string, error) {
	if len(rows) == 0 {
		return "", ErrNoRows
	}

	key := briefKey(currency, duration, direction, limit)
	if b, ok := g.store.Get(ctx, key, g.ttl); ok {
		var cached string
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	}

	resp, err := g.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(rows, currency, duration, direction)},
		},
		MaxTokens:   220,
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("brief: completion returned no choices")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if b, err := json.Marshal(text); err == nil {
		if err := g.store.Put(ctx, key, b); err != nil {
			g.log.Warn("brief cache write failed", "key", key, "err", err)
		}
	}
	return text, nil
}

func briefKey(currency, duration, direction string, limit int) string {
	return fmt.Sprintf("brief:%s:%s:%s:%d", currency, duration, direction, limit)
}

func buildPrompt(rows []models.MoverRecord, currency, duration, direction string) string {
	word := "gainers"
	if direction == models.DirectionLoser {
		word = "losers"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %s over the last %s, quoted in %s:\n", word, duration, strings.ToUpper(currency))
	for i, r := range rows {
		fmt.Fprintf(&b, "%d. %s (%s): %+.2f%% at %g\n", i+1, r.Name, strings.ToUpper(r.Symbol), r.Change, r.Price)
	}
	return b.String()
}
