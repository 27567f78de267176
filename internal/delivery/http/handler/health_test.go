package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

func TestHealthHandler(t *testing.T) {
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantCode   int
		wantStatus string
	}{
		{"all up", map[string]HealthCheck{"postgres": up, "redis": up}, http.StatusOK, "healthy"},
		{"redis down", map[string]HealthCheck{"postgres": up, "redis": down}, http.StatusServiceUnavailable, "degraded"},
		{"no checks", nil, http.StatusOK, "healthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.checks, logger.Nop())
			w := httptest.NewRecorder()

			handler.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, tt.wantStatus, body["status"])
			for name := range tt.checks {
				assert.Contains(t, body["components"], name)
			}
		})
	}
}
