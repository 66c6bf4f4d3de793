package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/KretovDmitry/joint-account-service/internal/application/errs"
	"github.com/KretovDmitry/joint-account-service/internal/application/interfaces"
	"github.com/KretovDmitry/joint-account-service/internal/config"
	"github.com/KretovDmitry/joint-account-service/internal/domain/entities/user"
	"github.com/KretovDmitry/joint-account-service/internal/domain/repositories"
	"github.com/KretovDmitry/joint-account-service/internal/jwt"
	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// AuthService registers parties. A party is identified by its login.
type AuthService struct {
	userRepo repositories.UserRepository
	logger   logger.Logger
	config   *config.Config
}

func NewAuthService(userRepo repositories.UserRepository, config *config.Config, logger logger.Logger) (*AuthService, error) {
	if userRepo == nil {
		return nil, errors.New("nil dependency: user repository")
	}
	if config == nil {
		return nil, errors.New("nil dependency: config")
	}
	return &AuthService{userRepo: userRepo, logger: logger, config: config}, nil
}

var _ interfaces.AuthService = (*AuthService)(nil)

// Register creates the user and returns an authentication token.
func (s *AuthService) Register(ctx context.Context, login, password string) (string, error) {
	// Create password hash.
	hashPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.config.PasswordHashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	id, err := s.userRepo.CreateUser(ctx, login, string(hashPassword))
	if err != nil {
		if errors.Is(err, errs.ErrDataConflict) {
			return "", fmt.Errorf("%w: login %q already exists", err, login)
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	s.logger.With(ctx, "user_id", id).Infof("user %q registered", login)

	return s.buildToken(id)
}

// Login checks the credentials and returns an authentication token.
func (s *AuthService) Login(ctx context.Context, login, password string) (string, error) {
	u, err := s.userRepo.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", fmt.Errorf("%w: user with login %q not found", errs.ErrInvalidCredentials, login)
		}
		return "", fmt.Errorf("get user %q: %w", login, err)
	}

	// Compare stored and provided passwords.
	err = bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", fmt.Errorf("%w: password", errs.ErrInvalidCredentials)
		}
		return "", fmt.Errorf("compare passwords: %w", err)
	}

	return s.buildToken(u.ID)
}

// GetUserFromToken resolves the user a token was issued to.
func (s *AuthService) GetUserFromToken(ctx context.Context, token string) (*user.User, error) {
	id, err := jwt.GetUserID(token, s.config.JWT.SigningKey)
	if err != nil {
		return nil, err
	}

	u, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d not found", errs.ErrUnauthorized, id)
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	return u, nil
}

func (s *AuthService) buildToken(id user.ID) (string, error) {
	token, err := jwt.BuildString(id, s.config.JWT.SigningKey, s.config.JWT.Expiration)
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}
	return token, nil
}
