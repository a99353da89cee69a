package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoplist/internal/common"
	"shoplist/internal/common/security"
	"shoplist/internal/domain/model"
	"shoplist/internal/domain/repository"

	"github.com/google/uuid"
)

const minPasswordLength = 6

type AuthService struct {
	userRepo  repository.UserRepository
	authority *security.TokenAuthority
}

func NewAuthService(userRepo repository.UserRepository, authority *security.TokenAuthority) *AuthService {
	return &AuthService{userRepo: userRepo, authority: authority}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.Name == "" || req.Username == "" || req.Password == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide all required fields")
	}
	if len(req.Password) < minPasswordLength {
		return nil, common.NewError(common.ErrValidation, "Password must be at least 6 characters")
	}

	username := strings.ToLower(req.Username)

	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil, common.NewError(common.ErrConflict, "Username already exists")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Username:       username,
		HashedPassword: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) { // Lost a race on the unique index
			return nil, common.NewError(common.ErrConflict, "Username already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.authority.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{ID: user.ID, Name: user.Name, Username: user.Username, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, common.NewError(common.ErrValidation, "Please provide username and password")
	}

	user, err := s.userRepo.FindByUsername(ctx, strings.ToLower(req.Username))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Same message as a wrong password, so callers cannot probe usernames.
			return nil, common.NewError(common.ErrUnauthorized, "Invalid credentials")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.NewError(common.ErrUnauthorized, "Invalid credentials")
	}

	token, err := s.authority.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{ID: user.ID, Name: user.Name, Username: user.Username, Token: token}, nil
}

// Me returns the public fields of an already-authenticated user.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.UserSummary, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	summary := user.Summary()
	return &summary, nil
}
