package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/domain"
)

// Claims represents the JWT claims of an access token
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256 access tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenManager creates a token manager from the auth settings
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
}

// Issue creates a signed access token for the user and returns it with its expiry
func (m *TokenManager) Issue(user *domain.User) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

// Validate parses an access token and returns the principal it carries
func (m *TokenManager) Validate(tokenString string) (domain.Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Principal{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: invalid subject", domain.ErrUnauthorized)
	}

	role := domain.Role(claims.Role)
	if !role.IsValid() {
		return domain.Principal{}, fmt.Errorf("%w: invalid role", domain.ErrUnauthorized)
	}

	return domain.Principal{UserID: userID, Role: role}, nil
}
