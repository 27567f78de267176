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

var categoryRowColumns = []string{"id", "name", "slug", "description", "parent_id", "is_active", "sort_order", "created_at", "updated_at"}

func TestCategoryRepository_List(t *testing.T) {
	tests := []struct {
		name       string
		onlyActive bool
		query      string
	}{
		{"all", false, "FROM categories ORDER BY sort_order, name"},
		{"active only", true, "FROM categories WHERE is_active ORDER BY sort_order, name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewCategoryRepository(db)

			rootID := uuid.New()
			now := time.Now()
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WillReturnRows(sqlmock.NewRows(categoryRowColumns).
					AddRow(rootID.String(), "Indoor", "indoor", "", nil, true, 0, now, now).
					AddRow(uuid.NewString(), "Succulents", "succulents", "", rootID.String(), true, 1, now, now))

			categories, err := repo.List(context.Background(), tt.onlyActive)

			require.NoError(t, err)
			require.Len(t, categories, 2)
			assert.Nil(t, categories[0].ParentID)
			require.NotNil(t, categories[1].ParentID)
			assert.Equal(t, rootID, *categories[1].ParentID)
		})
	}
}

func TestCategoryRepository_Create_DuplicateSlug(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO categories")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "categories_slug_key"})

	err := repo.Create(context.Background(), &domain.Category{Name: "Indoor", Slug: "indoor"})

	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCategoryRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCategoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE categories")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.Update(context.Background(), &domain.Category{ID: uuid.New(), Name: "Gone"})

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
