// Точка входа qr-backend — учёт инвентаря по QR-кодам.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// инициализирует Meilisearch-клиент, создаёт сервисный слой и API handlers,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/sohosai/qr-backend/internal/api/handlers"
	"github.com/sohosai/qr-backend/internal/api/middleware"
	"github.com/sohosai/qr-backend/internal/config"
	"github.com/sohosai/qr-backend/internal/database"
	"github.com/sohosai/qr-backend/internal/repository"
	"github.com/sohosai/qr-backend/internal/search"
	"github.com/sohosai/qr-backend/internal/server"
	"github.com/sohosai/qr-backend/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("qr-backend запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("QR_DEPHEALTH_GROUP") == "" {
		logger.Warn("QR_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}
	if len(cfg.RoleCredentials) == 0 {
		logger.Warn("Учётные данные ролей не заданы, выпуск passtoken будет недоступен")
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode).
	// Проверка здоровья PostgreSQL идёт через существующий пул соединений,
	// что позволяет обнаружить его исчерпание.
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Клиент Meilisearch (поисковый индекс предметов)
	indexer := search.NewMeiliIndexer(cfg, logger)
	logger.Info("Meilisearch клиент создан",
		slog.String("url", cfg.MeilisearchURL),
		slog.String("index", cfg.MeilisearchIndex),
	)

	// 6. Repositories — каждое обращение к БД ограничено QR_STORE_TIMEOUT
	db := repository.WithTimeout(pool, cfg.StoreTimeout)
	fixtureRepo := repository.NewFixtureRepository(db)
	lendingRepo := repository.NewLendingRepository(db)
	spotRepo := repository.NewSpotRepository(db)
	containerRepo := repository.NewContainerRepository(db)
	passtokenRepo := repository.NewPasstokenRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 7. Services
	fixturesSvc := service.NewFixtureService(fixtureRepo, indexer, logger)
	lendingSvc := service.NewLendingService(lendingRepo, fixtureRepo, spotRepo, logger)
	spotsSvc := service.NewSpotService(spotRepo, logger)
	containersSvc := service.NewContainerService(containerRepo, logger)
	passtokensSvc := service.NewPasstokenService(passtokenRepo, cfg, logger)
	usersSvc := service.NewUserService(userRepo, logger)

	// 8. Readiness checkers (PostgreSQL + Meilisearch)
	pgChecker := database.NewReadinessChecker(pool)
	searchChecker := search.NewReadinessChecker(indexer)
	healthHandler := handlers.NewHealthHandler(pgChecker, searchChecker)

	// 9. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		fixturesSvc,
		lendingSvc,
		spotsSvc,
		containersSvc,
		passtokensSvc,
		usersSvc,
		logger,
	)

	// 10. Middleware аутентификации
	passtokenAuth := middleware.NewPasstokenAuth(passtokensSvc, logger)

	// JWT middleware — только при заданном JWKS URL (иначе /signup отключён)
	var jwtAuth *middleware.JWTAuth
	if cfg.JWTJWKSURL != "" {
		jwtAuth, err = middleware.NewJWTAuth(
			cfg.JWTJWKSURL,
			cfg.JWTIssuer,
			cfg.JWTJWKSRefreshInterval,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("JWT middleware инициализирован",
			slog.String("jwks_url", cfg.JWTJWKSURL),
			slog.String("issuer", cfg.JWTIssuer),
		)
	} else {
		logger.Info("QR_JWT_JWKS_URL не задан, /signup отключён")
	}

	// 11. topologymetrics — мониторинг зависимостей (PostgreSQL + Meilisearch)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"qr-backend",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURL(),
		cfg.MeilisearchURL,
		cfg.DephealthCheckInterval,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else {
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 12. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, passtokenAuth, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("qr-backend остановлен")
}
