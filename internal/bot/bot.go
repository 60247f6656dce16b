// Package bot serves the dashboard data over Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cryptodash/internal/fetch"
	"cryptodash/internal/models"
	"cryptodash/internal/view"
)

const (
	defaultLimit = 10
	maxLimit     = 25 // keeps replies inside one readable message
	maxMatches   = 8
)

// Fetcher is the slice of the fetch service the bot depends on.
type Fetcher interface {
	Movers(ctx context.Context) ([]models.MoverRecord, error)
	Snapshot(ctx context.Context, id string) (*models.TokenSnapshot, error)
	TokenIndex(ctx context.Context) ([]models.TokenInfo, error)
	Currency() string
	Durations() []string
}

// Briefer produces written summaries of a movers list.
type Briefer interface {
	MoversBrief(ctx context.Context, rows []models.MoverRecord, currency, duration, direction string, limit int) (string, error)
}

// Bot answers market commands over Telegram long polling. A nil briefer
// turns the /brief command off.
type Bot struct {
	api     *tgbotapi.BotAPI
	fetcher Fetcher
	briefer Briefer
	log     *slog.Logger
}

func New(token string, fetcher Fetcher, briefer Briefer, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Bot{api: api, fetcher: fetcher, briefer: briefer, log: log}, nil
}

// Start polls for updates until ctx is canceled.
func (b *Bot) Start(ctx context.Context) {
	b.log.Info("bot authorized", "account", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	var reply string
	switch msg.Command() {
	case "movers":
		reply = b.moversReply(ctx, msg.CommandArguments())
	case "token":
		reply = b.tokenReply(ctx, msg.CommandArguments())
	case "brief":
		reply = b.briefReply(ctx, msg.CommandArguments())
	case "help", "start":
		reply = b.helpReply()
	default:
		return
	}

	if _, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, reply)); err != nil {
		b.log.Error("send reply failed", "command", msg.Command(), "err", err)
	}
}

func (b *Bot) moversReply(ctx context.Context, args string) string {
	duration, direction, limit := b.parseMoversArgs(args)

	records, err := b.fetcher.Movers(ctx)
	if err != nil {
		b.log.Error("movers fetch failed", "err", err)
		return "Market data is unavailable right now, try again in a minute."
	}

	rows := view.Movers(records, duration, direction, limit)
	if len(rows) == 0 {
		return fmt.Sprintf("No %s data for %s yet.", direction, duration)
	}
	return formatMovers(rows, duration, direction)
}

func (b *Bot) tokenReply(ctx context.Context, args string) string {
	query := strings.TrimSpace(args)
	if query == "" {
		return "Usage: /token <name or symbol>"
	}

	index, err := b.fetcher.TokenIndex(ctx)
	if err != nil {
		b.log.Error("token index fetch failed", "err", err)
		return "The token catalogue is unavailable right now, try again in a minute."
	}

	tok, ok := view.MatchLabel(index, query)
	if !ok {
		matches := view.Search(index, query)
		switch {
		case len(matches) == 0:
			return fmt.Sprintf("No tokens match %q.", query)
		case len(matches) == 1:
			tok = matches[0]
		default:
			return formatMatches(query, matches)
		}
	}

	snap, err := b.fetcher.Snapshot(ctx, tok.ID)
	switch {
	case errors.Is(err, fetch.ErrTokenNotFound):
		return fmt.Sprintf("No market data for %s.", tok.Label)
	case err != nil:
		b.log.Error("snapshot fetch failed", "id", tok.ID, "err", err)
		return "Market data is unavailable right now, try again in a minute."
	}
	return formatSnapshot(*snap)
}

func (b *Bot) briefReply(ctx context.Context, args string) string {
	if b.briefer == nil {
		return "Brief generation is not configured."
	}
	duration, direction, limit := b.parseMoversArgs(args)

	records, err := b.fetcher.Movers(ctx)
	if err != nil {
		b.log.Error("movers fetch failed", "err", err)
		return "Market data is unavailable right now, try again in a minute."
	}
	rows := view.Movers(records, duration, direction, limit)
	if len(rows) == 0 {
		return fmt.Sprintf("No %s data for %s yet.", direction, duration)
	}

	text, err := b.briefer.MoversBrief(ctx, rows, b.fetcher.Currency(), duration, direction, limit)
	if err != nil {
		b.log.Error("brief generation failed", "err", err)
		return "The brief is unavailable right now, try again in a minute."
	}
	return fmt.Sprintf("🗞 %s movers, %s\n\n%s", duration, directionWord(direction), text)
}

func (b *Bot) helpReply() string {
	durations := strings.Join(b.fetcher.Durations(), ", ")
	return fmt.Sprintf(`Available commands:

/movers [duration] [gainers|losers] [count] - top movers (durations: %s)
/token <name or symbol> - market snapshot for one token
/brief [duration] [gainers|losers] - short written market summary
/help - this message

Example: /movers 24h losers 5`, durations)
}

// parseMoversArgs reads the free-form arguments of /movers and /brief.
// Tokens are classified by what they look like, so order does not matter;
// anything unrecognized is ignored.
func (b *Bot) parseMoversArgs(args string) (duration, direction string, limit int) {
	duration = b.fetcher.Durations()[0]
	direction = models.DirectionGainer
	limit = defaultLimit

	for _, f := range strings.Fields(strings.ToLower(args)) {
		switch {
		case slices.Contains(b.fetcher.Durations(), f):
			duration = f
		case f == "gainer" || f == "gainers":
			direction = models.DirectionGainer
		case f == "loser" || f == "losers":
			direction = models.DirectionLoser
		default:
			if n, err := strconv.Atoi(f); err == nil && n >= 1 && n <= maxLimit {
				limit = n
			}
		}
	}
	return duration, direction, limit
}
