// auth.go — аутентификация по passtoken и проверка прав роли.
// Токен предъявляется как Bearer, роль кладётся в контекст запроса.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
	"github.com/sohosai/qr-backend/internal/domain/rbac"
	"github.com/sohosai/qr-backend/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyRole — роль аутентифицированного субъекта в контексте запроса.
const ContextKeyRole contextKey = "passtoken_role"

// TokenValidator — проверка passtoken. Реализуется service.PasstokenService.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (rbac.Role, error)
}

// PasstokenAuth — middleware аутентификации по passtoken.
type PasstokenAuth struct {
	validator TokenValidator
	logger    *slog.Logger
}

// NewPasstokenAuth создаёт middleware аутентификации.
func NewPasstokenAuth(validator TokenValidator, logger *slog.Logger) *PasstokenAuth {
	return &PasstokenAuth{
		validator: validator,
		logger:    logger.With(slog.String("component", "passtoken_auth")),
	}
}

// Middleware извлекает Bearer token, проверяет его и помещает роль
// в контекст. Сервис различает отсутствующий (ErrNotFound) и истёкший
// (ErrUnauthorized) токены; наружу оба отдаются как 401.
func (a *PasstokenAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apierrors.Unauthorized(w, "Требуется заголовок Authorization: Bearer <token>")
				return
			}

			role, err := a.validator.Validate(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthorized) || errors.Is(err, service.ErrNotFound) {
					apierrors.Unauthorized(w, "Невалидный или просроченный токен")
					return
				}
				a.logger.Error("Ошибка проверки токена", slog.String("error", err.Error()))
				apierrors.InternalError(w, "Ошибка проверки токена")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyRole, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RoleFromContext извлекает роль из контекста запроса.
// Возвращает пустую роль, если аутентификация не проходила.
func RoleFromContext(ctx context.Context) rbac.Role {
	role, _ := ctx.Value(ContextKeyRole).(rbac.Role)
	return role
}

// --- Проверка прав роли ---

// RequireView пропускает любую аутентифицированную роль.
func RequireView(next http.Handler) http.Handler {
	return requirePermission(next, rbac.Role.CanView, "чтение")
}

// RequireMutate пропускает роли с правом изменения реестра.
func RequireMutate(next http.Handler) http.Handler {
	return requirePermission(next, rbac.Role.CanMutate, "изменение")
}

// RequireDelete пропускает роли с правом удаления.
func RequireDelete(next http.Handler) http.Handler {
	return requirePermission(next, rbac.Role.CanDelete, "удаление")
}

func requirePermission(next http.Handler, allowed func(rbac.Role) bool, action string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := RoleFromContext(r.Context())
		if role == "" {
			apierrors.Unauthorized(w, "Роль не определена")
			return
		}
		if !allowed(role) {
			apierrors.Forbidden(w, "Роль "+string(role)+" не даёт права на "+action)
			return
		}
		next.ServeHTTP(w, r)
	})
}
