package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/voxelhub-backend/internal/config"
	"github.com/shinyyama/voxelhub-backend/internal/model"
	"github.com/shinyyama/voxelhub-backend/internal/realtime"
	"github.com/shinyyama/voxelhub-backend/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// DevUserHeader carries the caller's uid when no Firebase project is configured.
const DevUserHeader = "X-User-ID"

var errNoVerifier = errors.New("token verification is disabled")

type AuthMiddleware struct {
	authClient *auth.Client
}

func NewAuthMiddleware(ctx context.Context, cfg *config.Config) (*AuthMiddleware, error) {
	if cfg.FirebaseProjectID == "" {
		if cfg.IsProduction() {
			return nil, errors.New("FIREBASE_PROJECT_ID is not set")
		}
		zap.L().Warn("firebase auth disabled, trusting " + DevUserHeader + " header")
		return &AuthMiddleware{}, nil
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthMiddleware{authClient: client}, nil
}

// NewDevAuthMiddleware trusts the DevUserHeader. Never use it in production.
func NewDevAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{}
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.authClient == nil {
			uid := strings.TrimSpace(c.Request().Header.Get(DevUserHeader))
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			c.Set("uid", uid)
			return next(c)
		}
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		tokenStr := strings.TrimPrefix(authz, "Bearer ")
		token, err := m.authClient.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		}
		c.Set("uid", token.UID)
		return next(c)
	}
}

// VerifyUID checks a Firebase ID token and returns its uid.
func (m *AuthMiddleware) VerifyUID(ctx context.Context, token string) (string, error) {
	if m.authClient == nil {
		return "", errNoVerifier
	}
	t, err := m.authClient.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	return t.UID, nil
}

// TokenVerifier returns nil in dev header mode so realtime registrations are trusted.
func (m *AuthMiddleware) TokenVerifier() realtime.TokenVerifier {
	if m.authClient == nil {
		return nil
	}
	return m
}

func (m *AuthMiddleware) Client() *auth.Client {
	return m.authClient
}

// RequireRole lets the request through only when the caller registered with role.
// It must run after RequireAuth.
func RequireRole(users repository.UserRepository, role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, _ := c.Get("uid").(string)
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			u, err := users.FindByUID(c.Request().Context(), uid)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return c.JSON(http.StatusForbidden, map[string]string{"error": "register a role first"})
				}
				zap.L().Error("role lookup failed", zap.String("uid", uid), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal_error"})
			}
			if u.Role != role {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "only " + string(role) + "s can do this"})
			}
			c.Set("role", u.Role)
			return next(c)
		}
	}
}
