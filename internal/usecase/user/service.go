package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Pesokrava/plant_store/internal/domain"
	"github.com/Pesokrava/plant_store/internal/pkg/logger"
	"github.com/Pesokrava/plant_store/internal/pkg/validator"
)

// TokenIssuer signs access tokens
type TokenIssuer interface {
	Issue(user *domain.User) (string, time.Time, error)
}

// RegisterInput is a new customer account
type RegisterInput struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	Phone     string `json:"phone,omitempty" validate:"max=30"`
}

// LoginInput is an email and password pair
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a successful authentication
type Session struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Service handles registration, login and profiles
type Service struct {
	repo       domain.UserRepository
	tokens     TokenIssuer
	bcryptCost int
	logger     *logger.Logger
	now        func() time.Time
}

// NewService creates a new user service
func NewService(repo domain.UserRepository, tokens TokenIssuer, bcryptCost int, log *logger.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     log,
		now:        time.Now,
	}
}

// Register creates a customer account and signs it in
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Name:         input.FirstName + " " + input.LastName,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hash),
		Phone:        input.Phone,
		Role:         domain.RoleCustomer,
		IsActive:     true,
		LastLogin:    &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: email already registered", domain.ErrAlreadyExists)
		}
		s.logger.Error("Failed to create user", err)
		return nil, err
	}

	session, err := s.session(user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
	}).Info("User registered")

	return session, nil
}

// Login verifies the credentials and signs the user in
func (s *Service) Login(ctx context.Context, input LoginInput) (*Session, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if err := validator.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
		}
		s.logger.Error("Failed to load user for login", err)
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", domain.ErrUnauthorized)
	}

	if !user.IsActive {
		return nil, fmt.Errorf("%w: account is deactivated", domain.ErrUnauthorized)
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warnf("Failed to record login for user %s: %v", user.ID, err)
	} else {
		user.LastLogin = &now
	}

	session, err := s.session(user)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
	}).Info("User logged in")

	return session, nil
}

// Me returns the profile of the principal
func (s *Service) Me(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	if principal.UserID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.repo.GetByID(ctx, principal.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to get user", err)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) session(user *domain.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error("Failed to issue token", err)
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
