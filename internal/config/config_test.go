package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/sohosai/qr-backend/internal/domain/rbac"
)

// setRequiredEnv задаёт минимальный набор обязательных переменных.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QR_DB_HOST", "localhost")
	t.Setenv("QR_DB_NAME", "qr")
	t.Setenv("QR_DB_USER", "qr")
	t.Setenv("QR_DB_PASSWORD", "secret")
	t.Setenv("QR_MEILISEARCH_URL", "http://localhost:7700")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, ожидалось 3000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидалось info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидалось json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидалось 5432", cfg.DBPort)
	}
	if cfg.MeilisearchIndex != "fixtures" {
		t.Errorf("MeilisearchIndex = %q, ожидалось fixtures", cfg.MeilisearchIndex)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("StoreTimeout = %v, ожидалось 5s", cfg.StoreTimeout)
	}
	if cfg.TokenCacheTTL != time.Minute {
		t.Errorf("TokenCacheTTL = %v, ожидалось 1m", cfg.TokenCacheTTL)
	}
	if len(cfg.RoleCredentials) != 0 {
		t.Errorf("RoleCredentials без переменных окружения должен быть пуст, получено %d", len(cfg.RoleCredentials))
	}
}

func TestLoadMissingRequired(t *testing.T) {
	t.Setenv("QR_DB_HOST", "localhost")
	// QR_DB_NAME не задан

	if _, err := Load(); err == nil {
		t.Fatal("Load() без QR_DB_NAME должен вернуть ошибку")
	}
}

func TestLoadRoleCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QR_ADMINISTRATOR_PASS_KEY", "admin-secret")
	t.Setenv("QR_ADMINISTRATOR_LIMIT_DAYS", "7")
	t.Setenv("QR_GENERAL_PASS_KEY", "general-secret")
	t.Setenv("QR_GENERAL_LIMIT_DAYS", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	admin, ok := cfg.RoleCredentials[rbac.RoleAdministrator]
	if !ok {
		t.Fatal("учётные данные administrator не загружены")
	}
	if admin.Secret != "admin-secret" || admin.LimitDays != 7 {
		t.Errorf("administrator = %+v, ожидалось {admin-secret 7}", admin)
	}

	if _, ok := cfg.RoleCredentials[rbac.RoleEquipmentManager]; ok {
		t.Error("equipment_manager не настроен, но присутствует в RoleCredentials")
	}
}

func TestLoadRoleCredentialsHalfPair(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QR_GENERAL_PASS_KEY", "secret")
	// QR_GENERAL_LIMIT_DAYS не задан

	if _, err := Load(); err == nil {
		t.Fatal("Load() с наполовину заданной парой должен вернуть ошибку")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"некорректный порт", "QR_PORT", "abc"},
		{"порт вне диапазона", "QR_PORT", "70000"},
		{"некорректный уровень логов", "QR_LOG_LEVEL", "verbose"},
		{"некорректный формат логов", "QR_LOG_FORMAT", "xml"},
		{"некорректный ssl mode", "QR_DB_SSL_MODE", "enabled"},
		{"некорректный таймаут", "QR_STORE_TIMEOUT", "5 seconds"},
		{"некорректные дни", "QR_ADMINISTRATOR_LIMIT_DAYS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			if tt.key == "QR_ADMINISTRATOR_LIMIT_DAYS" {
				t.Setenv("QR_ADMINISTRATOR_PASS_KEY", "secret")
			}
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() с %s=%q должен вернуть ошибку", tt.key, tt.value)
			}
		})
	}
}

func TestJWTIssuerRequiredWithJWKS(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QR_JWT_JWKS_URL", "https://idp.example.com/jwks")

	if _, err := Load(); err == nil {
		t.Fatal("Load() с JWKS URL без issuer должен вернуть ошибку")
	}

	t.Setenv("QR_JWT_ISSUER", "https://idp.example.com")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if cfg.JWTJWKSURL != "https://idp.example.com/jwks" {
		t.Errorf("JWTJWKSURL = %q", cfg.JWTJWKSURL)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5433, DBName: "qr", DBUser: "u", DBPassword: "p", DBSSLMode: "disable",
	}
	want := "host=db port=5433 dbname=qr user=u password=p sslmode=disable"
	if got := cfg.DatabaseDSN(); got != want {
		t.Errorf("DatabaseDSN() = %q, ожидалось %q", got, want)
	}
}
