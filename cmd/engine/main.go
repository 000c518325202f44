// Package main - точка входа движка прогрессии Dojo Hub.
//
// Движок ведёт журнал очков (append-only ledger), считает пояса, серии
// и бейджи, отвечает на запросы профилей, рейтингов и проверок доступа.
// Все производные значения пересчитываются из журнала: ни пояс, ни
// серия, ни рейтинг нигде не хранятся как истина.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Sagas)
// - Infrastructure: PostgreSQL, Redis, event bus
// - Interface: HTTP endpoints
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

	// Application layer
	"github.com/dojo-hub/dojo-progression-engine/internal/application/command"
	"github.com/dojo-hub/dojo-progression-engine/internal/application/eventhandler"
	"github.com/dojo-hub/dojo-progression-engine/internal/application/query"
	"github.com/dojo-hub/dojo-progression-engine/internal/application/saga"

	// Domain layer
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/badge"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/belt"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/profile"
	"github.com/dojo-hub/dojo-progression-engine/internal/domain/shared"

	// Infrastructure layer
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/messaging"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/persistence/postgres"
	"github.com/dojo-hub/dojo-progression-engine/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/dojo-hub/dojo-progression-engine/internal/interface/http"
	"github.com/dojo-hub/dojo-progression-engine/internal/interface/http/handlers"

	// Packages
	"github.com/dojo-hub/dojo-progression-engine/config"
	"github.com/dojo-hub/dojo-progression-engine/pkg/circuitbreaker"
	"github.com/dojo-hub/dojo-progression-engine/pkg/logger"
	"github.com/dojo-hub/dojo-progression-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting dojo progression engine",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ВАЛИДАЦИЯ ДОМЕННЫХ ТАБЛИЦ
	// Сломанная таблица поясов или каталог бейджей - ошибка деплоя,
	// падаем сразу, а не на первом запросе.
	// ─────────────────────────────────────────────────────────────────────────
	if err := belt.ValidateTable(); err != nil {
		return fmt.Errorf("belt tier table is malformed: %w", err)
	}

	catalog := badge.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("badge catalog is malformed: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// Движок может стартовать раньше базы, поэтому подключение с ретраями.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")

	var dbConn *postgres.Connection
	bootstrap := retry.BootstrapRetrier(cfg.Database.ConnectRetries, cfg.Database.ConnectRetryDelay)
	err = bootstrap.Do(ctx, func(ctx context.Context) error {
		conn, connErr := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if connErr != nil {
			return connErr
		}
		if pingErr := conn.Ping(ctx); pingErr != nil {
			conn.Close()
			return pingErr
		}
		dbConn = conn
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ЗАПУСК МИГРАЦИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	status, err := migrator.Status(ctx)
	if err != nil {
		log.Warn("failed to get migration status", "error", err)
	} else {
		appliedCount := 0
		for _, m := range status {
			if m.IsApplied {
				appliedCount++
			}
		}
		log.Info("migrations completed", "applied", appliedCount, "total", len(status))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// Без Redis движок полностью работоспособен: профили пересчитываются
	// из журнала на каждый запрос.
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var profileCache profile.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, cacheErr := redis.NewCache(redisCfg)
		if cacheErr != nil {
			log.Warn("failed to connect to Redis, profile caching disabled", "error", cacheErr)
		} else {
			redisCache = cache
			defer redisCache.Close()
			log.Info("Redis connection established")

			if cfg.Features.IsEnabled(config.FeatureProfileCache, nil) {
				breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
					log.Warn("cache circuit breaker state changed",
						"breaker", name, "from", from.String(), "to", to.String())
				})
				profileCache = redis.NewBreakerCache(redis.NewProfileCache(redisCache), breaker)
			}
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	ledgerRepo := postgres.NewLedgerRepository(dbConn)
	awardRepo := postgres.NewBadgeAwardRepository(dbConn)
	enrollmentRepo := postgres.NewEnrollmentRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")

	var eventBus shared.EventBus
	var closeBus func() error

	if redisCache != nil && cfg.Features.IsEnabled(config.FeatureRedisEventBus, nil) {
		localCfg := messaging.DefaultInMemoryEventBusConfig()
		localCfg.Logger = log
		localCfg.WorkerPoolSize = cfg.Progression.EventWorkers

		busCfg := messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(redisCache.Client()),
			LocalBusConfig: localCfg,
			Logger:         log,
		}

		redisBus, busErr := messaging.NewRedisEventBus(busCfg)
		if busErr != nil {
			return fmt.Errorf("failed to create redis event bus: %w", busErr)
		}
		eventBus = redisBus
		closeBus = redisBus.Close
		log.Info("using Redis event bus")
	} else {
		busCfg := messaging.DefaultInMemoryEventBusConfig()
		busCfg.Logger = log
		busCfg.WorkerPoolSize = cfg.Progression.EventWorkers

		memBus := messaging.NewInMemoryEventBus(busCfg)
		eventBus = memBus
		closeBus = memBus.Close
	}
	defer func() {
		log.Info("closing event bus...")
		_ = closeBus()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. РЕГИСТРАЦИЯ EVENT HANDLERS
	// Диспетчер даёт ретраи с backoff и DLQ; награждение бейджей
	// идемпотентно, поэтому повторная обработка события безопасна.
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("registering event handlers...")

	dispatcherCfg := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherCfg.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherCfg)
	dispatcher.Use(messaging.RecoveryMiddleware(log))
	dispatcher.Use(messaging.LoggingMiddleware(log))
	dispatcher.Use(messaging.MetricsMiddleware(dispatcher.Metrics()))

	if cfg.Features.IsEnabled(config.FeatureBadgesAutoEvaluate, nil) {
		badgeFlow := saga.NewBadgeFlowSaga(
			ledgerRepo, awardRepo, catalog, eventBus, log,
			saga.BadgeFlowConfig{ReportingLocation: cfg.App.Location},
		)
		onPoints := eventhandler.NewOnPointsRecordedHandler(badgeFlow, ledgerRepo, log)
		if err := dispatcher.Register(shared.EventPointsRecorded, "badge_flow", onPoints.Handle); err != nil {
			return fmt.Errorf("failed to register badge flow handler: %w", err)
		}
	} else {
		log.Info("automatic badge evaluation disabled by feature flag")
	}

	onBelt := eventhandler.NewOnBeltChangedHandler(log)
	if err := dispatcher.Register(shared.EventBeltChanged, "belt_change_log", onBelt.Handle); err != nil {
		return fmt.Errorf("failed to register belt change handler: %w", err)
	}

	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping dispatcher...")
		_ = dispatcher.Stop()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ИНИЦИАЛИЗАЦИЯ APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	recordPointEvent := command.NewRecordPointEventHandler(ledgerRepo, profileCache, eventBus)
	syncEnrollment := command.NewSyncEnrollmentHandler(enrollmentRepo)

	profileQuery := query.NewGetProfileHandler(
		ledgerRepo, awardRepo, catalog, profileCache,
		query.GetProfileHandlerConfig{
			CacheTTL:          cfg.Progression.ProfileCacheTTL,
			ReportingLocation: cfg.App.Location,
		},
	)
	historyQuery := query.NewGetPointsHistoryHandler(ledgerRepo)
	badgesQuery := query.NewGetStudentBadgesHandler(awardRepo, catalog)
	rankingQuery := query.NewGetSubjectRankingHandler(ledgerRepo, enrollmentRepo)
	topPerformersQuery := query.NewGetTopPerformersHandler(ledgerRepo, enrollmentRepo)
	positionQuery := query.NewGetStudentPositionHandler(ledgerRepo, enrollmentRepo)
	unlockQuery := query.NewCheckUnlockHandler(profileQuery)

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HEALTH CHECKS
	// База обязательна, кеш проверяется только когда включён.
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)
	healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	if redisCache != nil {
		healthChecker.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 12. СОЗДАНИЕ HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimit
	httpConfig.APIKeys = cfg.HTTP.APIKeys

	if len(httpConfig.APIKeys) == 0 && cfg.IsProduction() {
		log.Warn("write endpoints are unauthenticated: HTTP_API_KEYS is empty")
	}

	httpDeps := httpserver.Dependencies{
		RecordPointEvent:   recordPointEvent,
		SyncEnrollment:     syncEnrollment,
		GetProfile:         profileQuery,
		GetPointsHistory:   historyQuery,
		GetStudentBadges:   badgesQuery,
		GetSubjectRanking:  rankingQuery,
		GetTopPerformers:   topPerformersQuery,
		GetStudentPosition: positionQuery,
		CheckUnlock:        unlockQuery,
		Logger:             logger.Default(),
		HealthChecker:      healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 13. ЗАПУСК
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("dojo progression engine is running", "http_address", httpServer.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 14. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Диспетчер, event bus, Redis и база закрываются через defer
	// в обратном порядке инициализации.

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slogLevel(cfg.Observability.LogLevel),
	}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" || cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
