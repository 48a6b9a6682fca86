// Пакет server — HTTP-сервер qr-backend с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на reverse proxy.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sohosai/qr-backend/internal/api/handlers"
	"github.com/sohosai/qr-backend/internal/api/middleware"
	"github.com/sohosai/qr-backend/internal/config"
)

// Server — HTTP-сервер qr-backend.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// passtokenAuth защищает рабочие endpoints; jwtAuth — только /signup
// (nil, если QR_JWT_JWKS_URL не настроен — тогда /signup отключён).
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	passtokenAuth *middleware.PasstokenAuth,
	jwtAuth *middleware.JWTAuth,
) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Публичные endpoints: без passtoken.
	// Health и metrics проверяются Kubernetes напрямую.
	router.Get("/ping", handler.Ping)
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)
	router.Post("/gen_passtoken", handler.GenPasstoken)

	// /signup — JWT внешнего IdP вместо passtoken
	if jwtAuth != nil {
		router.With(jwtAuth.Middleware()).Post("/signup", handler.Signup)
	}

	// Рабочие endpoints: passtoken обязателен, права — по роли.
	// GET — любая действительная роль, POST — equipment_manager и
	// administrator, DELETE — только administrator.
	router.Group(func(r chi.Router) {
		r.Use(passtokenAuth.Middleware())

		r.With(middleware.RequireView).Get("/get_fixtures", handler.GetFixtures)
		r.With(middleware.RequireView).Get("/get_fixtures_list", handler.GetFixturesList)
		r.With(middleware.RequireView).Get("/search_fixtures", handler.SearchFixtures)
		r.With(middleware.RequireMutate).Post("/insert_fixtures", handler.InsertFixtures)
		r.With(middleware.RequireMutate).Post("/update_fixtures", handler.UpdateFixtures)
		r.With(middleware.RequireDelete).Delete("/delete_fixtures", handler.DeleteFixtures)

		r.With(middleware.RequireView).Get("/get_lending", handler.GetLending)
		r.With(middleware.RequireView).Get("/get_lending_list", handler.GetLendingList)
		r.With(middleware.RequireView).Get("/get_is_lending", handler.GetIsLending)
		r.With(middleware.RequireMutate).Post("/insert_lending", handler.InsertLending)
		r.With(middleware.RequireMutate).Post("/returned_lending", handler.ReturnedLending)

		r.With(middleware.RequireView).Get("/get_spot", handler.GetSpot)
		r.With(middleware.RequireView).Get("/get_spot_list", handler.GetSpotList)
		r.With(middleware.RequireMutate).Post("/insert_spot", handler.InsertSpot)
		r.With(middleware.RequireMutate).Post("/update_spot", handler.UpdateSpot)
		r.With(middleware.RequireDelete).Delete("/delete_spot", handler.DeleteSpot)

		r.With(middleware.RequireMutate).Post("/insert_container", handler.InsertContainer)
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
