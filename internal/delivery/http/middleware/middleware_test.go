package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

type stubValidator struct {
	principal domain.Principal
	err       error
	got       string
}

func (s *stubValidator) Validate(token string) (domain.Principal, error) {
	s.got = token
	return s.principal, s.err
}

func echoPrincipal(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	_, _ = w.Write([]byte(p.UserID.String()))
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name     string
		header   string
		err      error
		wantCode int
		wantBody string
	}{
		{"anonymous", "", nil, http.StatusNoContent, ""},
		{"bearer", "Bearer abc.def.ghi", nil, http.StatusOK, userID.String()},
		{"lowercase scheme", "bearer abc.def.ghi", nil, http.StatusOK, userID.String()},
		{"basic scheme", "Basic dXNlcjpwYXNz", nil, http.StatusUnauthorized, ""},
		{"missing token", "Bearer ", nil, http.StatusUnauthorized, ""},
		{"invalid token", "Bearer abc", domain.ErrUnauthorized, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &stubValidator{principal: domain.Principal{UserID: userID, Role: domain.RoleCustomer}, err: tt.err}
			handler := Authenticate(validator)(http.HandlerFunc(echoPrincipal))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
				assert.Equal(t, "abc.def.ghi", validator.got)
			}
		})
	}
}

func TestRequireAuthAndAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name      string
		principal *domain.Principal
		gate      func(http.Handler) http.Handler
		wantCode  int
	}{
		{"auth anonymous", nil, RequireAuth, http.StatusUnauthorized},
		{"auth customer", &domain.Principal{UserID: uuid.New(), Role: domain.RoleCustomer}, RequireAuth, http.StatusOK},
		{"admin anonymous", nil, RequireAdmin, http.StatusUnauthorized},
		{"admin customer", &domain.Principal{UserID: uuid.New(), Role: domain.RoleCustomer}, RequireAdmin, http.StatusForbidden},
		{"admin admin", &domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin}, RequireAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(WithPrincipal(req.Context(), *tt.principal))
			}
			w := httptest.NewRecorder()

			tt.gate(ok).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("production", &buf)
	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "/api/v1/orders", entry["path"])
	assert.Contains(t, entry["error"], "nil map write")
}

func TestLogger_RecordsRoutePatternAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithWriter("production", &buf)

	r := chi.NewRouter()
	r.Use(Logger(log))
	r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/42", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/orders/{id}", entry["route"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}

func TestTimeout_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	handler := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, hasDeadline = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestTimeout_ZeroDisables(t *testing.T) {
	handler := Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Context().Deadline()
		assert.False(t, ok)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestTimeout_ExpiresContext(t *testing.T) {
	handler := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		assert.True(t, errors.Is(r.Context().Err(), context.DeadlineExceeded))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
