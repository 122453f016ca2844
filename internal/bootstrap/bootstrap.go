package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/kirillkom/paperless-bot/internal/adapters/chat"
	httpadapter "github.com/kirillkom/paperless-bot/internal/adapters/http"
	"github.com/kirillkom/paperless-bot/internal/config"
	"github.com/kirillkom/paperless-bot/internal/core/ports"
	"github.com/kirillkom/paperless-bot/internal/core/usecase"
	natsevents "github.com/kirillkom/paperless-bot/internal/infrastructure/events/nats"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/inspect"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/paperless"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/resilience"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/state/memory"
	"github.com/kirillkom/paperless-bot/internal/infrastructure/telegram"
	"github.com/kirillkom/paperless-bot/internal/observability/metrics"
)

const serviceName = "paperless-bot"

type App struct {
	Config config.Config

	Metrics *metrics.BotMetrics
	Backend *paperless.Client
	Gateway *telegram.Gateway
	Handler ports.UpdateHandler
	Health  *httpadapter.Server

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	botMetrics := metrics.NewBotMetrics(serviceName)

	backendExecutor := resilience.NewExecutor("paperless", resilience.SingleAttempt(cfg.BreakerEnabled))
	backendExecutor.OnStateChange(breakerGauge(botMetrics, "paperless"))
	backend := paperless.New(cfg.PaperlessURL, cfg.PaperlessToken, paperless.Options{
		Timeout:      cfg.BackendTimeout,
		InboxTagName: cfg.InboxTag,
		PollInterval: cfg.TaskPollInterval,
		Executor:     backendExecutor,
		Metrics:      botMetrics,
	})
	if err := backend.EnsureCache(ctx); err != nil {
		// Caches are refreshed lazily on the next lookup.
		slog.Warn("paperless_cache_warmup_failed", "error", err)
	}

	telegramConfig := resilience.DefaultConfig()
	telegramConfig.BreakerEnabled = cfg.BreakerEnabled
	telegramExecutor := resilience.NewExecutor("telegram", telegramConfig)
	telegramExecutor.OnStateChange(breakerGauge(botMetrics, "telegram"))
	gateway, err := telegram.New(cfg.TelegramToken, telegram.Options{
		RateLimit: rate.Limit(cfg.TelegramRateLimitRPS),
		RateBurst: cfg.TelegramRateLimitBurst,
		Executor:  telegramExecutor,
	})
	if err != nil {
		return nil, fmt.Errorf("init telegram gateway: %w", err)
	}
	if err := gateway.SetCommands(ctx, chat.BotCommands); err != nil {
		slog.Warn("telegram_set_commands_failed", "error", err)
	}

	var publisher ports.EventPublisher = natsevents.Noop{}
	closeFn := func() {}
	if cfg.NATSURL != "" {
		natsPublisher, err := natsevents.New(cfg.NATSURL, cfg.NATSSubject, natsevents.Options{
			ResilienceExecutor: resilience.NewExecutor("nats", resilience.DefaultConfig()),
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		publisher = natsPublisher
		closeFn = natsPublisher.Close
	}

	if !cfg.AuthEnabled() {
		slog.Warn("telegram_access_open", "hint", "set TELEGRAM_ALLOWED_USERS to restrict the bot")
	}

	store := memory.NewStore()
	uploads := usecase.NewUploadUseCase(backend, publisher, botMetrics, cfg.TaskTimeout())
	controller := chat.NewController(chat.Dependencies{
		Backend:   backend,
		Store:     store,
		Gateway:   gateway,
		Uploads:   uploads,
		Publisher: publisher,
		Inspector: inspect.NewInspector(),
	}, chat.Settings{
		AllowedUsers: cfg.TelegramAllowedUsers,
		PublicURL:    cfg.PaperlessPublicURL,
		PageSize:     cfg.MaxSearchResults,
	})

	gin.SetMode(gin.ReleaseMode)
	router := httpadapter.NewRouter(backend, botMetrics)

	return &App{
		Config:  cfg,
		Metrics: botMetrics,
		Backend: backend,
		Gateway: gateway,
		Handler: chat.NewInstrumented(controller, store, botMetrics),
		Health:  httpadapter.NewServer(cfg.HealthPort, router.Handler()),
		closeFn: closeFn,
	}, nil
}

// Run serves the health endpoints and polls Telegram until ctx is cancelled
// or either of them fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	healthErr := make(chan error, 1)
	go func() {
		err := a.Health.Run(ctx)
		if err != nil {
			cancel()
		}
		healthErr <- err
	}()

	slog.Info("bot_started", "bot", a.Gateway.Username(), "health_port", a.Config.HealthPort)
	pollErr := a.Gateway.Run(ctx, a.Handler, a.Config.MaxConcurrentUpdates)
	cancel()

	err := <-healthErr
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return errors.Join(pollErr, err)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func breakerGauge(m *metrics.BotMetrics, dependency string) func(string, gobreaker.State, gobreaker.State) {
	return func(operation string, _ gobreaker.State, to gobreaker.State) {
		m.SetBreakerOpen(dependency, operation, to == gobreaker.StateOpen)
	}
}
