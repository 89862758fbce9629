package dataservice

import (
	"context"
	"fmt"
	"time"

	"realtime-gateway/internal/auth/domain/model"
	"realtime-gateway/internal/auth/usecase"
	"realtime-gateway/internal/gateway"
)

// IdentityAdapter bridges the authentication module's usecase into the
// gateway's AccountabilityResolver and AuthenticationService interfaces,
// the way internal/firestore/adapter/auth_client wrapped the same usecase
// for a different consumer in the teacher repo.
type IdentityAdapter struct {
	usecase usecase.AuthUsecaseInterface
}

func NewIdentityAdapter(authUsecase usecase.AuthUsecaseInterface) *IdentityAdapter {
	return &IdentityAdapter{usecase: authUsecase}
}

// ResolveForToken validates token and resolves it to an Accountability,
// backing spec §4.1's strict-mode upgrade check and §4.2's three credential
// shapes once a bearer token has been produced.
func (a *IdentityAdapter) ResolveForToken(ctx context.Context, token string) (gateway.Accountability, *time.Time, error) {
	claims, err := a.usecase.ValidateToken(ctx, token)
	if err != nil {
		return gateway.Accountability{}, nil, fmt.Errorf("validate token: %w", err)
	}

	user, err := a.usecase.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return gateway.Accountability{}, nil, fmt.Errorf("resolve user %s: %w", claims.UserID, err)
	}

	acc := accountabilityFromUser(user)
	var expiresAt *time.Time
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		expiresAt = &exp
	}
	return acc, expiresAt, nil
}

// Refresh re-reads the user record behind acc, picking up role or
// permission edits made since the connection authenticated, per spec
// §4.4's dispatch-time accountability refresh.
func (a *IdentityAdapter) Refresh(ctx context.Context, acc gateway.Accountability) (gateway.Accountability, error) {
	if !acc.IsAuthenticated() {
		return acc, nil
	}
	user, err := a.usecase.GetUserByID(ctx, acc.User)
	if err != nil {
		return gateway.Accountability{}, fmt.Errorf("refresh user %s: %w", acc.User, err)
	}
	return accountabilityFromUser(user), nil
}

// AuthService implements gateway.AuthenticationService, the login/refresh
// collaborator backing the email+password and refresh_token credential
// shapes of spec §4.2. It is kept separate from IdentityAdapter because
// both types need a method named Refresh with a different signature to
// satisfy their respective gateway interfaces.
type AuthService struct {
	usecase usecase.AuthUsecaseInterface
}

func NewAuthService(authUsecase usecase.AuthUsecaseInterface) *AuthService {
	return &AuthService{usecase: authUsecase}
}

func (a *AuthService) Login(ctx context.Context, email, password string) (string, *time.Time, error) {
	_, token, err := a.usecase.Login(ctx, usecase.LoginRequest{Email: email, Password: password})
	if err != nil {
		return "", nil, err
	}
	return token, nil, nil
}

func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return a.usecase.RefreshToken(ctx, refreshToken)
}

func accountabilityFromUser(user *model.User) gateway.Accountability {
	return gateway.Accountability{
		User:        user.UserID,
		Role:        user.RoleID,
		Admin:       user.Admin,
		Permissions: user.Permissions,
	}
}
