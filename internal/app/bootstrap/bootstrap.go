package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	profileservice "zerosum/contexts/community/profile-service"
	profilepg "zerosum/contexts/community/profile-service/adapters/postgres"
	redisadapter "zerosum/contexts/community/profile-service/adapters/redis"
	profilecommands "zerosum/contexts/community/profile-service/application/commands"
	profileports "zerosum/contexts/community/profile-service/ports"
	loginservice "zerosum/contexts/identity-access/login-service"
	"zerosum/contexts/identity-access/login-service/adapters/facebook"
	loginports "zerosum/contexts/identity-access/login-service/ports"
	gameengine "zerosum/contexts/wagering/game-engine"
	wageringpg "zerosum/contexts/wagering/game-engine/adapters/postgres"
	wageringworkers "zerosum/contexts/wagering/game-engine/application/workers"
	"zerosum/internal/platform/auth"
	"zerosum/internal/platform/cache"
	"zerosum/internal/platform/config"
	"zerosum/internal/platform/db"
	"zerosum/internal/platform/httpserver"
	"zerosum/internal/platform/messaging"
)

// Package bootstrap is the composition root. Keep construction/wiring here so
// module code stays framework-agnostic.

type APIApp struct {
	server     *httpserver.Server
	postgres   *db.Postgres
	background []func(context.Context) error
	logger     *slog.Logger
}

type WorkerApp struct {
	postgres *db.Postgres
	settler  wageringworkers.DeadlineSettler
	relay    wageringworkers.OutboxRelay
	consumer func(context.Context) error
	cfg      config.Config
	logger   *slog.Logger
}

// BuildAPI wires the HTTP process. With POSTGRES_DSN set the contexts share
// one database; without it everything runs in memory in a single process,
// including the background workers the worker binary would otherwise own.
func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	manager, err := auth.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return buildInMemoryAPI(cfg, manager, logger)
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := wageringpg.Migrate(pg.DB); err != nil {
		return nil, err
	}
	if err := profilepg.Migrate(pg.DB); err != nil {
		return nil, err
	}

	gameRepo := wageringpg.NewRepository(pg.DB, logger)
	profileRepo := profilepg.NewRepository(pg.DB, logger)

	wagering := gameengine.NewModule(gameengine.Dependencies{
		Games:       gameRepo,
		Votes:       gameRepo,
		Settlements: gameRepo,
		Outbox:      gameRepo,
		Clock:       wageringpg.SystemClock{},
		IDGen:       wageringpg.UUIDGenerator{},
		Logger:      logger,
	})

	ranking, err := buildRankingIndex(cfg, logger)
	if err != nil {
		return nil, err
	}
	profiles := profileservice.NewModule(profileservice.Dependencies{
		Profiles: profileRepo,
		Ranking:  ranking,
		Dedup:    profileRepo,
		Clock:    profilepg.SystemClock{},
		IDGen:    profilepg.UUIDGenerator{},
		Logger:   logger,
	})

	identity := buildIdentity(cfg, profiles.Profiles, manager, logger)
	server := httpserver.New(wagering, profiles, identity, manager, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func buildInMemoryAPI(cfg config.Config, manager *auth.Manager, logger *slog.Logger) (*APIApp, error) {
	bus := messaging.NewBus(logger)
	profiles := profileservice.NewInMemoryModule(bus, logger)
	wagering := gameengine.NewInMemoryModule(profiles.Store, logger)
	identity := buildIdentity(cfg, profiles.Profiles, manager, logger)
	server := httpserver.New(wagering, profiles, identity, manager, logger, normalizeAddr(cfg.HTTPPort))

	settler := wageringworkers.DeadlineSettler{
		Games:     wagering.Store,
		Settler:   wagering.Settle,
		Clock:     wagering.Store,
		BatchSize: cfg.SettleBatch,
		Logger:    logger,
	}
	relay := wageringworkers.OutboxRelay{
		Outbox:    wagering.Store,
		Publisher: bus,
		Clock:     wagering.Store,
		BatchSize: cfg.SettleBatch,
		Logger:    logger,
	}
	consumer := profiles.Consumer

	app := &APIApp{server: server, logger: logger}
	if cfg.EnableProfileConsumer {
		app.background = append(app.background, consumer.Start)
	}
	if cfg.EnableDeadlineSettler {
		app.background = append(app.background, func(ctx context.Context) error {
			return settler.Run(ctx, cfg.SettleInterval)
		})
	}
	if cfg.EnableOutboxRelay {
		app.background = append(app.background, func(ctx context.Context) error {
			return runEvery(ctx, cfg.RelayInterval, relay.RunOnce)
		})
	}
	return app, nil
}

// BuildWorker wires the background process: deadline settlement, outbox relay
// and the profile projection consumer.
func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}
	if err := wageringpg.Migrate(pg.DB); err != nil {
		return nil, err
	}
	if err := profilepg.Migrate(pg.DB); err != nil {
		return nil, err
	}

	bus := messaging.NewBus(logger)
	gameRepo := wageringpg.NewRepository(pg.DB, logger)
	profileRepo := profilepg.NewRepository(pg.DB, logger)

	wagering := gameengine.NewModule(gameengine.Dependencies{
		Games:       gameRepo,
		Votes:       gameRepo,
		Settlements: gameRepo,
		Outbox:      gameRepo,
		Clock:       wageringpg.SystemClock{},
		IDGen:       wageringpg.UUIDGenerator{},
		Logger:      logger,
	})

	ranking, err := buildRankingIndex(cfg, logger)
	if err != nil {
		return nil, err
	}
	profiles := profileservice.NewModule(profileservice.Dependencies{
		Profiles:   profileRepo,
		Ranking:    ranking,
		Dedup:      profileRepo,
		Subscriber: bus,
		Clock:      profilepg.SystemClock{},
		IDGen:      profilepg.UUIDGenerator{},
		Logger:     logger,
	})

	app := &WorkerApp{
		postgres: pg,
		settler: wageringworkers.DeadlineSettler{
			Games:     gameRepo,
			Settler:   wagering.Settle,
			Clock:     wageringpg.SystemClock{},
			BatchSize: cfg.SettleBatch,
			Logger:    logger,
		},
		relay: wageringworkers.OutboxRelay{
			Outbox:    gameRepo,
			Publisher: bus,
			Clock:     wageringpg.SystemClock{},
			BatchSize: cfg.SettleBatch,
			Logger:    logger,
		},
		cfg:    cfg,
		logger: logger,
	}
	if cfg.EnableProfileConsumer {
		app.consumer = profiles.Consumer.Start
	}
	return app, nil
}

func buildIdentity(
	cfg config.Config,
	profiles profilecommands.ProfileUseCase,
	manager *auth.Manager,
	logger *slog.Logger,
) loginservice.Module {
	return loginservice.NewModule(loginservice.Dependencies{
		Verifiers: map[string]loginports.IdentityVerifier{
			"facebook": facebook.NewVerifier(cfg.FacebookGraphURL),
		},
		Accounts: accountDirectory{profiles: profiles},
		Tokens:   tokenIssuer{manager: manager},
		Logger:   logger,
	})
}

func buildRankingIndex(cfg config.Config, logger *slog.Logger) (profileports.RankingIndex, error) {
	if !cfg.EnableRankingIndex || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, nil
	}
	client, err := cache.Connect(cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	return redisadapter.NewRankingIndex(client, "", logger), nil
}

// accountDirectory adapts the profile registration use case to the login
// context's port.
type accountDirectory struct {
	profiles profilecommands.ProfileUseCase
}

func (d accountDirectory) ResolveAccount(ctx context.Context, identity loginports.Identity) (loginports.Account, error) {
	result, err := d.profiles.RegisterUser(ctx, profilecommands.RegisterUserCommand{
		Provider:       identity.Provider,
		ProviderUserID: identity.ProviderUserID,
		Name:           identity.Name,
	})
	if err != nil {
		return loginports.Account{}, err
	}
	return loginports.Account{
		UserID:  result.Profile.UserID,
		Name:    result.Profile.Name,
		Balance: result.Profile.Balance,
		Created: result.Created,
	}, nil
}

type tokenIssuer struct {
	manager *auth.Manager
}

func (t tokenIssuer) IssueToken(userID string, now time.Time) (string, time.Time, error) {
	return t.manager.Sign(userID, now)
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"background_loops", len(a.background),
	)
	group, ctx := errgroup.WithContext(ctx)
	for _, loop := range a.background {
		loop := loop
		group.Go(func() error { return loop(ctx) })
	}
	group.Go(a.server.Start)
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if w.consumer != nil {
		if err := w.consumer(ctx); err != nil {
			return err
		}
	}
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"settle_interval", w.cfg.SettleInterval.String(),
		"relay_interval", w.cfg.RelayInterval.String(),
	)
	group, ctx := errgroup.WithContext(ctx)
	if w.cfg.EnableDeadlineSettler {
		group.Go(func() error { return w.settler.Run(ctx, w.cfg.SettleInterval) })
	}
	if w.cfg.EnableOutboxRelay {
		group.Go(func() error { return runEvery(ctx, w.cfg.RelayInterval, w.relay.RunOnce) })
	}
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := fn(ctx); err != nil {
				// Relay errors are retried on the next tick.
				continue
			}
		}
	}
}
