package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/plant_store/internal/delivery/http/middleware"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
)

// handleError maps service layer errors to HTTP responses.
// Client errors carry the wrapped message; server errors are logged and hidden.
func handleError(w http.ResponseWriter, log *logger.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		response.Error(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateReview):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "Conflict - resource was modified by another request")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Warnf("Store unavailable: %v", err)
		w.Header().Set("Retry-After", "1")
		response.Error(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.Error("Internal error in handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

// principal returns the caller of the request or the zero principal.
// Services reject the zero principal where authentication matters.
func principal(r *http.Request) domain.Principal {
	p, _ := middleware.PrincipalFrom(r.Context())
	return p
}
