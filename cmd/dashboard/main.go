package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cryptodash/internal/bot"
	"cryptodash/internal/brief"
	"cryptodash/internal/cache"
	"cryptodash/internal/coingecko"
	"cryptodash/internal/config"
	"cryptodash/internal/fetch"
	"cryptodash/internal/logging"
	"cryptodash/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	// Local development convenience; deployments set real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("starting",
		"addr", cfg.Server.Addr,
		"currency", cfg.Market.Currency,
		"durations", cfg.Market.Durations,
		"cache", cfg.Cache.Backend,
		"ttl", cfg.Market.TTL.Std(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client := coingecko.NewClient(cfg.CoingeckoAPIKey)
	svc := fetch.NewService(client, store, fetch.Config{
		Currency:  cfg.Market.Currency,
		Universe:  cfg.Market.Universe,
		Durations: cfg.Market.Durations,
		TTL:       cfg.Market.TTL.Std(),
	}, log)

	var (
		apiBriefer server.Briefer
		botBriefer bot.Briefer
	)
	if cfg.Brief.Enabled {
		g := brief.New(cfg.OpenAIAPIKey, cfg.Brief.Model, store, cfg.Market.TTL.Std(), log)
		apiBriefer = g
		botBriefer = g
	}

	checks := []server.HealthCheck{
		{Name: "coingecko", Check: client.Ping},
		{Name: "cache", Check: store.Health},
	}
	handler := server.NewHandler(svc, apiBriefer, checks, log)
	srv := server.New(cfg.Server.Addr, handler.Routes(), log)

	if cfg.Bot.Enabled {
		tgBot, err := bot.New(cfg.TelegramToken, svc, botBriefer, log)
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}
		go tgBot.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("stopped")
	return nil
}

// newStore picks the cache backend. Redis keeps entries a while past the
// freshness window; staleness is judged at read time either way.
func newStore(ctx context.Context, cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		s, err := cache.NewRedisStore(ctx, cfg.Cache.Redis.Addr, cfg.RedisPassword, cfg.Cache.Redis.DB, 2*cfg.Market.TTL.Std())
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return s, nil
	case "memory":
		return cache.NewMemoryStore(), nil
	default:
		return cache.NewFileStore(cfg.Cache.Dir), nil
	}
}
