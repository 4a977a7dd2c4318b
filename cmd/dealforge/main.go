package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Strob0t/DealForge/internal/adapter/discord"
	"github.com/Strob0t/DealForge/internal/adapter/email"
	dfhttp "github.com/Strob0t/DealForge/internal/adapter/http"
	"github.com/Strob0t/DealForge/internal/adapter/litellm"
	dfnats "github.com/Strob0t/DealForge/internal/adapter/nats"
	"github.com/Strob0t/DealForge/internal/adapter/natskv"
	"github.com/Strob0t/DealForge/internal/adapter/otel"
	"github.com/Strob0t/DealForge/internal/adapter/postgres"
	"github.com/Strob0t/DealForge/internal/adapter/ristretto"
	"github.com/Strob0t/DealForge/internal/adapter/slack"
	"github.com/Strob0t/DealForge/internal/adapter/tiered"
	"github.com/Strob0t/DealForge/internal/config"
	"github.com/Strob0t/DealForge/internal/domain/pricing"
	"github.com/Strob0t/DealForge/internal/logger"
	"github.com/Strob0t/DealForge/internal/middleware"
	"github.com/Strob0t/DealForge/internal/port/escalation"
	"github.com/Strob0t/DealForge/internal/resilience"
	"github.com/Strob0t/DealForge/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"max_rounds", cfg.Negotiation.MaxRounds,
	)

	shutdownTracer := otel.InitTracer(cfg.Logging.Service)
	defer func() { _ = shutdownTracer(context.Background()) }()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := dfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Brand references: ristretto in-process, JetStream KV shared across
	// instances, read through the tiered adapter.
	l1, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	kv, err := queue.KeyValue(ctx, cfg.Cache.KVBucket, cfg.Negotiation.BrandReferenceTTL)
	if err != nil {
		return fmt.Errorf("cache bucket: %w", err)
	}
	brandCache := tiered.New(l1, natskv.New(kv), cfg.Negotiation.BrandReferenceTTL)

	// --- Collaborators ---

	llm := litellm.NewClient(
		cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey,
		cfg.Negotiation.ClassifyModel, cfg.Negotiation.ComposeModel,
	)
	llm.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	mail := email.NewSender(cfg.SMTP)

	var dispatchers []escalation.Dispatcher
	if cfg.Slack.WebhookURL != "" {
		dispatchers = append(dispatchers, slack.NewDispatcher(cfg.Slack.WebhookURL))
	}
	if cfg.Discord.WebhookURL != "" {
		dispatchers = append(dispatchers, discord.NewDispatcher(cfg.Discord.WebhookURL))
	}
	if len(dispatchers) == 0 {
		slog.Warn("no escalation webhook configured, escalations will only reach the queue")
	}

	rateCard, err := buildRateCard(cfg.Negotiation.RateCard)
	if err != nil {
		return fmt.Errorf("rate card: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	campaigns := service.NewCampaignService(store)
	orch := service.NewOrchestrator(store, llm, llm, campaigns, brandCache, cfg.Negotiation)
	negotiations := service.NewNegotiationService(
		orch, store, campaigns, llm, mail, dispatchers, queue, metrics, rateCard, cfg.Negotiation,
	)

	if err := campaigns.Recover(ctx); err != nil {
		return fmt.Errorf("recovery: %w", err)
	}

	cancelReplies, err := negotiations.Start(ctx)
	if err != nil {
		return fmt.Errorf("reply subscriber: %w", err)
	}
	defer cancelReplies()

	// --- HTTP ---

	handlers := dfhttp.NewHandlers(campaigns, negotiations, store, queue)

	r := chi.NewRouter()
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(middleware.RequestID)
	r.Use(dfhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	dfhttp.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return queue.Drain()
	})

	return g.Wait()
}

// buildRateCard converts the configured tiers into the pricing table.
func buildRateCard(tiers []config.RateTier) (*pricing.RateCard, error) {
	if len(tiers) == 0 {
		return pricing.DefaultRateCard(), nil
	}
	out := make([]pricing.RateTier, 0, len(tiers))
	for _, t := range tiers {
		cpm, err := decimal.NewFromString(t.CPM)
		if err != nil {
			return nil, fmt.Errorf("tier %d: %w", t.MinAudience, err)
		}
		out = append(out, pricing.RateTier{MinAudience: t.MinAudience, CPM: cpm})
	}
	return pricing.NewRateCard(out)
}
