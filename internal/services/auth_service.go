package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tutorfinder/internal/models"
	"tutorfinder/internal/repositories"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Credentials is the input of register, login and password reset.
type Credentials struct {
	Username string      `json:"username" validate:"required,max=100"`
	Password string      `json:"password" validate:"required,max=72"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=admin user provider"`
}

// AuthService handles registration, login and password reset.
type AuthService struct {
	userRepo   repositories.UserRepository
	bcryptCost int
}

// NewAuthService creates a new AuthService. A cost outside bcrypt's range falls back to the default.
func NewAuthService(userRepo repositories.UserRepository, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
	}
}

// Register creates a user. The stored role follows models.ResolveRole, so only
// the admin username ends up with the admin role.
func (s *AuthService) Register(ctx context.Context, creds Credentials) (*models.User, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if err := validateStruct(creds); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByUsername(ctx, creds.Username)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: username '%s' already taken", ErrConflict, creds.Username)
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, unavailable(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username: creds.Username,
		Password: string(hashedPassword),
		Role:     models.ResolveRole(creds.Username, creds.Role),
	}
	if user.Role != creds.Role && creds.Role == models.RoleAdmin {
		logrus.WithField("username", creds.Username).Info("admin role requested by non-admin username, downgraded to user")
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username '%s' already taken", ErrConflict, creds.Username)
		}
		return nil, unavailable(err)
	}
	return user, nil
}

// Login checks the password of the user matching username case-insensitively.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, validationError("username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Same answer as a wrong password: do not reveal which usernames exist.
			return nil, ErrInvalidCredentials
		}
		return nil, unavailable(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ResetPassword replaces the password of an existing user.
func (s *AuthService) ResetPassword(ctx context.Context, username, newPassword string) error {
	if err := validateStruct(Credentials{Username: strings.TrimSpace(username), Password: newPassword}); err != nil {
		return err
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError("user '%s' not found", strings.TrimSpace(username))
		}
		return unavailable(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return notFoundError("user '%s' not found", user.Username)
		}
		return unavailable(err)
	}
	return nil
}
