package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/plant_store/internal/domain"
)

var userRowColumns = []string{"id", "name", "first_name", "last_name", "email", "password_hash", "phone", "role",
	"is_active", "email_verified", "last_login", "created_at", "updated_at"}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("Ivy Green", "Ivy", "Green", "ivy@example.com", "hash", "", "customer",
			true, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(id.String(), now, now))

	user := &domain.User{
		Name:         "Ivy Green",
		FirstName:    "Ivy",
		LastName:     "Green",
		Email:        " Ivy@Example.com",
		PasswordHash: "hash",
		Role:         domain.RoleCustomer,
		IsActive:     true,
	}
	err := repo.Create(context.Background(), user)

	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "ivy@example.com", user.Email)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	err := repo.Create(context.Background(), &domain.User{Email: "ivy@example.com", Role: domain.RoleCustomer})

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ivy@example.com").
		WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(
			id.String(), "Ivy Green", "Ivy", "Green", "ivy@example.com", "hash", "", "admin",
			true, true, nil, now, now,
		))

	user, err := repo.GetByEmail(context.Background(), "IVY@example.com ")

	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	assert.Nil(t, user.LastLogin)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_TouchLastLogin_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET last_login = $1 WHERE id = $2")).
		WithArgs(sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TouchLastLogin(context.Background(), id, time.Now())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
