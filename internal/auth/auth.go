package auth

import (
	"context"
	"fmt"

	authhttp "realtime-gateway/internal/auth/adapter/http"
	"realtime-gateway/internal/auth/adapter/persistence/mongodb"
	"realtime-gateway/internal/auth/adapter/security"
	"realtime-gateway/internal/auth/config"
	"realtime-gateway/internal/auth/domain/repository"
	"realtime-gateway/internal/auth/usecase"
	"realtime-gateway/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuthModule is the identity boundary both the REST login/session surface
// and the realtime gateway's websocket AUTH handshake authenticate
// through: REST sessions are served directly by handler below, and the
// gateway instead wraps GetUsecase() in its own dataservice.IdentityAdapter
// / dataservice.AuthService, since neither of the gateway's
// AccountabilityResolver/AuthenticationService interfaces matches
// AuthHTTPHandler's cookie-oriented contract.
type AuthModule struct {
	repository repository.AuthRepository
	tokenSvc   repository.TokenService
	usecase    usecase.AuthUsecaseInterface
	handler    *authhttp.AuthHTTPHandler
	config     *config.Config
	log        logger.Logger
}

// NewAuthModule creates a new authentication module instance.
func NewAuthModule(db *mongo.Database, cfg *config.Config, log logger.Logger) (*AuthModule, error) {
	// Initialize repository
	authRepo, err := mongodb.NewMongoAuthRepository(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth repository: %w", err)
	}

	// Initialize token service
	tokenSvc, err := security.NewJWTokenService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	// Initialize usecase
	authUsecase := usecase.NewAuthUsecase(authRepo, tokenSvc, cfg)

	// Initialize HTTP handler
	handler := authhttp.NewAuthHTTPHandler(
		authUsecase,
		cfg.CookieName,
		cfg.CookiePath,
		cfg.CookieDomain,
		int(cfg.AccessTokenTTL.Seconds()),
		cfg.CookieSecure,
		cfg.CookieHTTPOnly,
		cfg.CookieSameSite,
	)

	return &AuthModule{
		repository: authRepo,
		tokenSvc:   tokenSvc,
		usecase:    authUsecase,
		handler:    handler,
		config:     cfg,
		log:        log.WithComponent("auth"),
	}, nil
}

// RegisterRoutes registers the REST register/login/logout/validate/me routes
// with the provided router. The websocket AUTH handshake never goes through
// these routes; it reaches the usecase through the dataservice adapters
// built on am.GetUsecase().
func (am *AuthModule) RegisterRoutes(router fiber.Router) {
	middleware := am.GetMiddleware()
	am.handler.SetupAuthRoutesWithMiddleware(router, middleware)
}

// GetUsecase returns the auth usecase backing both the REST handler and the
// gateway's identity adapters.
func (am *AuthModule) GetUsecase() usecase.AuthUsecaseInterface {
	return am.usecase
}

// GetMiddleware returns the cookie-session auth middleware for REST routes.
func (am *AuthModule) GetMiddleware() *authhttp.AuthMiddleware {
	return authhttp.NewAuthMiddleware(am.usecase, am.config.CookieName)
}

// Healthy reports whether the user directory backing authentication is
// reachable, by resolving a sentinel ID that is never a real user and
// accepting "not found" as proof of connectivity — any other error means
// the repository itself, not just the lookup, failed.
func (am *AuthModule) Healthy(ctx context.Context) error {
	_, err := am.repository.GetUserByID(ctx, "__gateway_health_probe__")
	if err == nil || err == usecase.ErrUserNotFound {
		return nil
	}
	return fmt.Errorf("auth repository unreachable: %w", err)
}

// Stop performs cleanup when the module is shut down.
func (am *AuthModule) Stop() error {
	am.log.Info("auth module stopped")
	return nil
}

// InitAuthModule initializes the authentication module and registers routes.
// Deprecated: Use NewAuthModule instead.
func InitAuthModule(app *fiber.App, db *mongo.Database, cfg *config.Config, log logger.Logger) error {
	module, err := NewAuthModule(db, cfg, log)
	if err != nil {
		return err
	}

	module.RegisterRoutes(app)
	return nil
}
