package handler

import (
	"context"
	"net/http"

	"github.com/Pesokrava/plant_store/internal/delivery/http/request"
	"github.com/Pesokrava/plant_store/internal/delivery/http/response"
	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/usecase/user"
)

// UserService is the account use case consumed by AuthHandler
type UserService interface {
	Register(ctx context.Context, input user.RegisterInput) (*user.Session, error)
	Login(ctx context.Context, input user.LoginInput) (*user.Session, error)
	Me(ctx context.Context, principal domain.Principal) (*domain.User, error)
}

// AuthHandler handles HTTP requests for accounts
type AuthHandler struct {
	service UserService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  log,
	}
}

// Register handles POST /api/v1/auth/register
// @Summary Register a customer account
// @Tags Auth
// @Accept json
// @Produce json
// @Param account body user.RegisterInput true "Account details"
// @Success 201 {object} response.Envelope "Account created"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 409 {object} response.ErrorBody "Email already registered"
// @Failure 429 {object} response.ErrorBody "Too many requests"
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input user.RegisterInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.service.Register(r.Context(), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Created(w, session)
}

// Login handles POST /api/v1/auth/login
// @Summary Sign in with email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body user.LoginInput true "Credentials"
// @Success 200 {object} response.Envelope "Signed in"
// @Failure 400 {object} response.ErrorBody "Invalid request body"
// @Failure 401 {object} response.ErrorBody "Invalid email or password"
// @Failure 429 {object} response.ErrorBody "Too many requests"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input user.LoginInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.service.Login(r.Context(), input)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, session)
}

// Me handles GET /api/v1/users/me
// @Summary Get the current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope "Current user"
// @Failure 401 {object} response.ErrorBody "Authentication required"
// @Router /users/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.Me(r.Context(), principal(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	response.Success(w, u)
}
