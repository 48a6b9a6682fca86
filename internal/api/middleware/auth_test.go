// auth_test.go — тесты passtoken middleware и проверки прав роли.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sohosai/qr-backend/internal/domain/rbac"
	"github.com/sohosai/qr-backend/internal/service"
)

// fakeValidator — заглушка проверки токенов по фиксированной таблице.
// Отсутствующий токен — ErrNotFound, истёкший — ErrUnauthorized,
// как у service.PasstokenService.
type fakeValidator struct {
	tokens  map[string]rbac.Role
	expired map[string]bool
}

func (v *fakeValidator) Validate(_ context.Context, token string) (rbac.Role, error) {
	if v.expired[token] {
		return "", fmt.Errorf("%w: срок действия токена истёк", service.ErrUnauthorized)
	}
	role, ok := v.tokens[token]
	if !ok {
		return "", fmt.Errorf("%w: токен не найден", service.ErrNotFound)
	}
	return role, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func authHandler(t *testing.T, wantRole rbac.Role) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RoleFromContext(r.Context()); got != wantRole {
			t.Errorf("роль в контексте = %q, хотели %q", got, wantRole)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestPasstokenAuth(t *testing.T) {
	auth := NewPasstokenAuth(&fakeValidator{
		tokens:  map[string]rbac.Role{"valid-token": rbac.RoleGeneral},
		expired: map[string]bool{"expired-token": true},
	}, testLogger())

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"валидный токен", "Bearer valid-token", http.StatusOK},
		{"без заголовка", "", http.StatusUnauthorized},
		{"не Bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"пустой токен", "Bearer ", http.StatusUnauthorized},
		{"неизвестный токен", "Bearer wrong", http.StatusUnauthorized},
		{"истёкший токен", "Bearer expired-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := auth.Middleware()(authHandler(t, rbac.RoleGeneral))

			req := httptest.NewRequest(http.MethodGet, "/get_fixtures", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		middleware func(http.Handler) http.Handler
		role       rbac.Role
		wantStatus int
	}{
		{"просмотр general", RequireView, rbac.RoleGeneral, http.StatusOK},
		{"изменение general", RequireMutate, rbac.RoleGeneral, http.StatusForbidden},
		{"изменение equipment_manager", RequireMutate, rbac.RoleEquipmentManager, http.StatusOK},
		{"удаление equipment_manager", RequireDelete, rbac.RoleEquipmentManager, http.StatusForbidden},
		{"удаление administrator", RequireDelete, rbac.RoleAdministrator, http.StatusOK},
		{"роль отсутствует", RequireView, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/insert_fixtures", nil)
			if tt.role != "" {
				req = req.WithContext(context.WithValue(req.Context(), ContextKeyRole, tt.role))
			}
			rec := httptest.NewRecorder()
			tt.middleware(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("статус = %d, хотели %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
