// Пакет config — загрузка и валидация конфигурации qr-backend
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sohosai/qr-backend/internal/domain/rbac"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// RoleCredential — секрет и срок действия токенов для одной роли.
// Поставляется окружением; ядро эти пары только потребляет.
type RoleCredential struct {
	// Secret — ключ, предъявляемый при выпуске passtoken
	Secret string
	// LimitDays — срок действия выпускаемых токенов в днях
	LimitDays int
}

// Config содержит все параметры конфигурации qr-backend.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Meilisearch ---

	// URL Meilisearch (например, http://meilisearch:7700)
	MeilisearchURL string
	// API-ключ Meilisearch (пустой — без аутентификации)
	MeilisearchAPIKey string
	// Имя индекса предметов
	MeilisearchIndex string

	// --- Passtoken ---

	// Учётные данные по ролям. Роль без записи не может выпускать токены.
	RoleCredentials map[rbac.Role]RoleCredential
	// Максимальный размер LRU-кэша проверенных токенов
	TokenCacheSize int
	// TTL записи кэша токенов. Должен быть мал относительно срока
	// действия токена (дни), чтобы кэш не продлевал истёкшие токены.
	TokenCacheTTL time.Duration

	// --- JWT (регистрация пользователей через внешний IdP) ---

	// URL JWKS endpoint IdP. Пустой — /signup отключён.
	JWTJWKSURL string
	// Ожидаемый issuer JWT
	JWTIssuer string
	// Интервал обновления JWKS-ключей
	JWTJWKSRefreshInterval time.Duration

	// --- Внешние хранилища ---

	// Таймаут одного обращения к внешнему хранилищу (БД, поисковый индекс)
	StoreTimeout time.Duration

	// --- Мониторинг зависимостей ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках dephealth
	DephealthGroup string

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// QR_PORT — порт HTTP-сервера (по умолчанию 3000)
	cfg.Port, err = getEnvInt("QR_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("QR_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("QR_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// QR_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("QR_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("QR_LOG_LEVEL: %w", err)
	}

	// QR_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("QR_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("QR_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// QR_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("QR_DB_HOST")
	if err != nil {
		return nil, err
	}

	// QR_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("QR_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("QR_DB_PORT: %w", err)
	}

	// QR_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("QR_DB_NAME")
	if err != nil {
		return nil, err
	}

	// QR_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("QR_DB_USER")
	if err != nil {
		return nil, err
	}

	// QR_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("QR_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// QR_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("QR_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("QR_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Meilisearch ---

	// QR_MEILISEARCH_URL — обязательный
	cfg.MeilisearchURL, err = getEnvRequired("QR_MEILISEARCH_URL")
	if err != nil {
		return nil, err
	}
	cfg.MeilisearchURL = strings.TrimRight(cfg.MeilisearchURL, "/")

	// QR_MEILISEARCH_API_KEY — опциональный
	cfg.MeilisearchAPIKey = getEnvDefault("QR_MEILISEARCH_API_KEY", "")

	// QR_MEILISEARCH_INDEX — имя индекса (по умолчанию fixtures)
	cfg.MeilisearchIndex = getEnvDefault("QR_MEILISEARCH_INDEX", "fixtures")

	// --- Passtoken ---

	// QR_<ROLE>_PASS_KEY / QR_<ROLE>_LIMIT_DAYS — по ролям, опциональные.
	// Роль без пары секрет+срок не сможет выпускать токены.
	cfg.RoleCredentials, err = loadRoleCredentials()
	if err != nil {
		return nil, err
	}

	// QR_TOKEN_CACHE_SIZE — размер кэша токенов (по умолчанию 1024)
	cfg.TokenCacheSize, err = getEnvInt("QR_TOKEN_CACHE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("QR_TOKEN_CACHE_SIZE: %w", err)
	}
	if cfg.TokenCacheSize < 1 {
		return nil, fmt.Errorf("QR_TOKEN_CACHE_SIZE: значение должно быть положительным")
	}

	// QR_TOKEN_CACHE_TTL — TTL кэша токенов (по умолчанию 60s)
	cfg.TokenCacheTTL, err = getEnvDuration("QR_TOKEN_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("QR_TOKEN_CACHE_TTL: %w", err)
	}

	// --- JWT ---

	// QR_JWT_JWKS_URL — опциональный, пустой отключает /signup
	cfg.JWTJWKSURL = getEnvDefault("QR_JWT_JWKS_URL", "")

	// QR_JWT_ISSUER — обязателен, если задан JWKS URL
	cfg.JWTIssuer = getEnvDefault("QR_JWT_ISSUER", "")
	if cfg.JWTJWKSURL != "" && cfg.JWTIssuer == "" {
		return nil, fmt.Errorf("QR_JWT_ISSUER: обязателен при заданном QR_JWT_JWKS_URL")
	}

	// QR_JWT_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 1h)
	cfg.JWTJWKSRefreshInterval, err = getEnvDuration("QR_JWT_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("QR_JWT_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Внешние хранилища ---

	// QR_STORE_TIMEOUT — таймаут обращения к хранилищу (по умолчанию 5s)
	cfg.StoreTimeout, err = getEnvDuration("QR_STORE_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QR_STORE_TIMEOUT: %w", err)
	}

	// --- Мониторинг зависимостей ---

	// QR_DEPHEALTH_CHECK_INTERVAL — интервал проверки (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("QR_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QR_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// QR_DEPHEALTH_GROUP — имя группы (по умолчанию qr)
	cfg.DephealthGroup = getEnvDefault("QR_DEPHEALTH_GROUP", "qr")

	// --- Graceful shutdown ---

	// QR_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("QR_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QR_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadRoleCredentials загружает пары (секрет, срок) для каждой роли.
// Обе переменные роли должны быть заданы вместе; заданная наполовину
// пара — ошибка конфигурации.
func loadRoleCredentials() (map[rbac.Role]RoleCredential, error) {
	envPrefix := map[rbac.Role]string{
		rbac.RoleAdministrator:    "QR_ADMINISTRATOR",
		rbac.RoleEquipmentManager: "QR_EQUIPMENT_MANAGER",
		rbac.RoleGeneral:          "QR_GENERAL",
	}

	creds := make(map[rbac.Role]RoleCredential, len(envPrefix))
	for role, prefix := range envPrefix {
		secret := os.Getenv(prefix + "_PASS_KEY")
		daysStr := os.Getenv(prefix + "_LIMIT_DAYS")

		if secret == "" && daysStr == "" {
			continue
		}
		if secret == "" || daysStr == "" {
			return nil, fmt.Errorf("%s_PASS_KEY и %s_LIMIT_DAYS должны быть заданы вместе", prefix, prefix)
		}

		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 1 {
			return nil, fmt.Errorf("%s_LIMIT_DAYS: некорректное количество дней: %q", prefix, daysStr)
		}

		creds[role] = RoleCredential{Secret: secret, LimitDays: days}
	}

	return creds, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL
// (для миграций и лейблов dephealth).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
