package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"meetbook/core/config"
	"meetbook/core/errors"
	"meetbook/core/logger"
	"meetbook/core/utils"
	"meetbook/modules/auth/dto"
	"meetbook/modules/auth/repository"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, *errors.AppError)
}

type AuthService struct {
	repo repository.UserRepositoryInterface
	cfg  *config.Config
}

func NewAuthService(repo repository.UserRepositoryInterface, cfg *config.Config) *AuthService {
	return &AuthService{repo: repo, cfg: cfg}
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, *errors.AppError) {
	logger.Info("AuthService:Login:Start", "email", req.Email)

	if req.Email == "" || req.Password == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Email and password are required", nil)
	}

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load user", nil)
	}
	if user == nil {
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid credentials", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Warn("AuthService:Login:BadPassword", "email", req.Email)
		return nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid credentials", nil)
	}

	ttl := time.Duration(s.cfg.Auth.TokenTTLMinute) * time.Minute
	token, err := utils.GenerateToken(s.cfg.Auth.JWTSecret, user.ID, user.Email, ttl)
	if err != nil {
		logger.Error("AuthService:Login:GenerateToken:Error", "error", err)
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to issue token", nil)
	}

	return &dto.LoginResponse{
		Token:       token,
		DisplayName: user.DisplayName,
		Timezone:    user.Timezone,
	}, nil
}
