// handler.go — основной обработчик API.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/service"
)

// APIHandler — основной обработчик API qr-backend.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health     *HealthHandler
	fixtures   *service.FixtureService
	lending    *service.LendingService
	spots      *service.SpotService
	containers *service.ContainerService
	passtokens *service.PasstokenService
	users      *service.UserService
	logger     *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	fixtures *service.FixtureService,
	lending *service.LendingService,
	spots *service.SpotService,
	containers *service.ContainerService,
	passtokens *service.PasstokenService,
	users *service.UserService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:     health,
		fixtures:   fixtures,
		lending:    lending,
		spots:      spots,
		containers: containers,
		passtokens: passtokens,
		users:      users,
		logger:     logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// Ping — простейшая проверка, что сервис отвечает.
func (h *APIHandler) Ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError отображает ошибку сервисного слоя в HTTP-ответ.
// Неопознанная ошибка логируется и отдаётся как 500 без деталей.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		apierrors.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrAlreadyLent), errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrConfigMissing):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrIndexOutOfSync):
		apierrors.IndexOutOfSync(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка", "op", op, "error", err)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
