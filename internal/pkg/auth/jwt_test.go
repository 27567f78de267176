package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/plant_store/internal/config"
	"github.com/Pesokrava/plant_store/internal/domain"
)

func newManager(secret string) *TokenManager {
	return NewTokenManager(config.AuthConfig{JWTSecret: secret, TokenTTL: time.Hour, Issuer: "plant-store"})
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	m := newManager("secret")
	user := &domain.User{ID: uuid.New(), Email: "fern@example.com", Role: domain.RoleAdmin}

	token, expiresAt, err := m.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	principal, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.True(t, principal.IsAdmin())
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	token, _, err := newManager("one").Issue(&domain.User{ID: uuid.New(), Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = newManager("two").Validate(token)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := newManager("secret")
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(&domain.User{ID: uuid.New(), Role: domain.RoleCustomer})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Validate(token)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenManager_RejectsUnknownRole(t *testing.T) {
	m := newManager("secret")
	claims := &Claims{
		UserID: uuid.NewString(),
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "plant-store",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = m.Validate(token)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	_, err := newManager("secret").Validate("not-a-token")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
