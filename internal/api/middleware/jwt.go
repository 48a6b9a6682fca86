// jwt.go — JWT middleware для регистрации пользователей через внешний IdP.
// Валидация подписи — через JWKS endpoint IdP (фоновое обновление ключей).
// Используется только на /signup: остальной API работает по passtoken.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/sohosai/qr-backend/internal/api/errors"
)

// ContextKeyIdentity — подтверждённая идентичность IdP в контексте запроса.
const ContextKeyIdentity contextKey = "idp_identity"

// Identity — подтверждённые клеймы пользователя из JWT.
type Identity struct {
	// Subject — sub из JWT, идентификатор субъекта IdP
	Subject string
	// Name — имя пользователя
	Name string
	// Email — электронная почта (nil, если не подтверждена)
	Email *string
}

// idpClaims — raw claims из JWT внешнего IdP.
type idpClaims struct {
	jwt.RegisteredClaims
	// Name — имя пользователя.
	Name string `json:"name"`
	// Email — электронная почта.
	Email string `json:"email"`
	// EmailVerified — подтверждена ли почта.
	EmailVerified bool `json:"email_verified"`
}

// JWTAuth — middleware JWT-аутентификации через JWKS IdP.
type JWTAuth struct {
	jwks   keyfunc.Keyfunc
	issuer string
	logger *slog.Logger
}

// NewJWTAuth создаёт JWT middleware с JWKS из внешнего IdP.
// jwksURL — URL к JWKS endpoint, issuer — ожидаемый issuer JWT.
func NewJWTAuth(jwksURL, issuer string, refreshInterval time.Duration, logger *slog.Logger) (*JWTAuth, error) {
	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:   k,
		issuer: issuer,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:   kf,
		issuer: issuer,
		logger: logger.With(slog.String("component", "jwt_auth")),
	}
}

// Middleware валидирует Bearer JWT и помещает Identity в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				apierrors.Unauthorized(w, "Требуется заголовок Authorization: Bearer <token>")
				return
			}

			rawClaims := &idpClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithIssuer(j.issuer),
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			subject, err := rawClaims.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			identity := &Identity{
				Subject: subject,
				Name:    rawClaims.Name,
			}
			if rawClaims.EmailVerified && rawClaims.Email != "" {
				email := rawClaims.Email
				identity.Email = &email
			}

			ctx := context.WithValue(r.Context(), ContextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext извлекает Identity из контекста запроса.
// Возвращает nil, если JWT-аутентификация не проходила.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*Identity)
	return identity
}
