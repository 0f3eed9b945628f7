package bootstrap

import (
	"context"
	"fmt"

	"github.com/Meirbek-dev/tou-intake/internal/config"
	"github.com/Meirbek-dev/tou-intake/internal/core/ports"
	"github.com/Meirbek-dev/tou-intake/internal/core/usecase"
	"github.com/Meirbek-dev/tou-intake/internal/infrastructure/classifier/remote"
	"github.com/Meirbek-dev/tou-intake/internal/infrastructure/notify/nats"
	"github.com/Meirbek-dev/tou-intake/internal/infrastructure/registry/memory"
	"github.com/Meirbek-dev/tou-intake/internal/infrastructure/resilience"
	"github.com/Meirbek-dev/tou-intake/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Registry ports.SessionRegistry
	Gateway  ports.ClassificationGateway
	Metrics  *metrics.GatewayMetrics

	closeFn func()
}

func New(_ context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.Config{
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  cfg.BreakerMinRequests,
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
	})

	gateway := remote.New(cfg.ClassifierURL, cfg.ClassifierTimeout, executor)

	var publisher ports.SessionEventPublisher
	var natsPublisher *nats.Publisher
	if cfg.NATSURL != "" {
		p, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		natsPublisher = p
		publisher = p
	}

	registry := memory.New(memory.Config{
		MaxSessions:     cfg.SessionMax,
		IdleTTL:         cfg.SessionIdleTTL,
		CleanupInterval: cfg.SessionCleanupInterval,
	}, func() ports.SessionOrchestrator {
		return usecase.NewSessionOrchestrator(gateway, publisher)
	})

	return &App{
		Config:   cfg,
		Registry: registry,
		Gateway:  gateway,
		Metrics:  metrics.NewGatewayMetrics("gateway"),

		closeFn: func() {
			registry.Close()
			if natsPublisher != nil {
				natsPublisher.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
