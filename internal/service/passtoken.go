// passtoken.go — выпуск и проверка токенов доступа (passtoken).
// Токен непрозрачный: случайная строка, роль и срок действия живут
// в БД. Истёкшие токены не удаляются — они навсегда остаются
// недействительными, выпуск нового токена единственный путь.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sohosai/qr-backend/internal/config"
	"github.com/sohosai/qr-backend/internal/domain/model"
	"github.com/sohosai/qr-backend/internal/domain/rbac"
	"github.com/sohosai/qr-backend/internal/repository"
)

// Длина случайного суффикса токена: [tokenSuffixMin, tokenSuffixMax).
const (
	tokenSuffixMin = 200
	tokenSuffixMax = 300
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var (
	tokenCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qr_passtoken_cache_hits_total",
		Help: "Количество попаданий в кэш проверки токенов.",
	})
	tokenCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qr_passtoken_cache_misses_total",
		Help: "Количество промахов кэша проверки токенов.",
	})
)

// PasstokenService — выпуск и проверка токенов доступа.
type PasstokenService struct {
	tokenRepo   repository.PasstokenRepository
	credentials map[rbac.Role]config.RoleCredential
	// Кэш проверенных токенов. TTL короткий относительно срока
	// действия токена (дни), срок при попадании проверяется заново.
	cache  *lru.LRU[string, *model.Passtoken]
	logger *slog.Logger
	now    func() time.Time
}

// NewPasstokenService создаёт сервис токенов доступа.
func NewPasstokenService(
	tokenRepo repository.PasstokenRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *PasstokenService {
	return &PasstokenService{
		tokenRepo:   tokenRepo,
		credentials: cfg.RoleCredentials,
		cache:       lru.NewLRU[string, *model.Passtoken](cfg.TokenCacheSize, nil, cfg.TokenCacheTTL),
		logger:      logger.With(slog.String("component", "passtoken_service")),
		now:         time.Now,
	}
}

// Issue выпускает токен для роли по предъявленному ключу.
// Роль без настроенных учётных данных не может выпускать токены.
func (s *PasstokenService) Issue(ctx context.Context, role rbac.Role, secret string) (*model.Passtoken, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: неизвестная роль %q", ErrValidation, role)
	}

	cred, ok := s.credentials[role]
	if !ok {
		return nil, fmt.Errorf("%w: роль %s", ErrConfigMissing, role)
	}
	if secret != cred.Secret {
		return nil, fmt.Errorf("%w: неверный ключ роли %s", ErrUnauthorized, role)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("генерация токена: %w", err)
	}

	p := &model.Passtoken{
		Token:     token,
		Role:      role,
		CreatedAt: s.now().UTC(),
		LimitDays: cred.LimitDays,
	}

	if err := s.tokenRepo.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("сохранение токена: %w", err)
	}

	s.logger.Info("Выпущен токен доступа",
		slog.String("role", string(role)),
		slog.Int("limit_days", cred.LimitDays),
	)

	return p, nil
}

// Validate проверяет токен и возвращает его роль.
// Отсутствующий в хранилище токен — ErrNotFound, истёкший — ErrUnauthorized:
// случаи различимы для вызывающего.
func (s *PasstokenService) Validate(ctx context.Context, token string) (rbac.Role, error) {
	if token == "" {
		return "", fmt.Errorf("%w: пустой токен", ErrUnauthorized)
	}

	p, ok := s.cache.Get(token)
	if ok {
		tokenCacheHits.Inc()
	} else {
		tokenCacheMisses.Inc()

		var err error
		p, err = s.tokenRepo.Get(ctx, token)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return "", fmt.Errorf("%w: токен не найден", ErrNotFound)
			}
			return "", fmt.Errorf("проверка токена: %w", err)
		}
		s.cache.Add(token, p)
	}

	// Срок проверяется при каждом обращении: кэш не продлевает токен
	if !p.ValidAt(s.now()) {
		return "", fmt.Errorf("%w: срок действия токена истёк", ErrUnauthorized)
	}

	return p.Role, nil
}

// generateToken собирает токен: UUID плюс случайный алфавитно-цифровой
// суффикс случайной длины.
func generateToken() (string, error) {
	span, err := rand.Int(rand.Reader, big.NewInt(tokenSuffixMax-tokenSuffixMin))
	if err != nil {
		return "", err
	}
	length := tokenSuffixMin + int(span.Int64())

	suffix := make([]byte, length)
	for i := range suffix {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(tokenAlphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = tokenAlphabet[idx.Int64()]
	}

	return uuid.New().String() + string(suffix), nil
}
