package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DecodeJSON decodes the JSON request body into v.
// Unknown fields are rejected and the body is capped at 1MB.
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// DecodeOptionalJSON behaves like DecodeJSON but accepts an empty body
func DecodeOptionalJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// GetUUIDParam extracts a UUID parameter from the URL
func GetUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return uuid.Nil, fmt.Errorf("missing parameter: %s", key)
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}

	return id, nil
}

// GetIntQuery extracts an integer query parameter with a default value
func GetIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetOptionalIntQuery returns nil when the parameter is absent
func GetOptionalIntQuery(r *http.Request, key string) (*int, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &intValue, nil
}

// GetOptionalBoolQuery returns nil when the parameter is absent
func GetOptionalBoolQuery(r *http.Request, key string) (*bool, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &boolValue, nil
}

// GetBoolQuery treats an absent or malformed parameter as false
func GetBoolQuery(r *http.Request, key string) bool {
	value, err := GetOptionalBoolQuery(r, key)
	return err == nil && value != nil && *value
}

// GetOptionalUUIDQuery returns nil when the parameter is absent
func GetOptionalUUIDQuery(r *http.Request, key string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &id, nil
}

// GetOptionalDecimalQuery returns nil when the parameter is absent
func GetOptionalDecimalQuery(r *http.Request, key string) (*decimal.Decimal, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &d, nil
}

// GetPaginationParams extracts and validates pagination parameters
func GetPaginationParams(r *http.Request) (limit, offset int) {
	limit = GetIntQuery(r, "limit", 20)
	offset = GetIntQuery(r, "offset", 0)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
