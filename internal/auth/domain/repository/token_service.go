package repository

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService defines the interface for token operations
type TokenService interface {
	GenerateToken(ctx context.Context, userID, email, roleID string, admin bool) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the JWT claims carried by an access token. They map
// directly onto the role/admin fields an Accountability is resolved from.
type Claims struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	RoleID string `json:"roleID"`
	Admin  bool   `json:"admin"`
	jwt.RegisteredClaims
}
