package user

import (
	"context"
	"errors"
	"fmt"

	"flatup/internal/auth"
	"flatup/internal/logger"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
)

// WelcomeMailer sends the greeting that follows a registration.
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, to, name string) error
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
}

type service struct {
	repo      Repository
	mailer    WelcomeMailer
	jwtSecret string
}

func NewService(repo Repository, mailer WelcomeMailer, jwtSecret string) Service {
	return &service{
		repo:      repo,
		mailer:    mailer,
		jwtSecret: jwtSecret,
	}
}

// Register creates an account with the owner role. The welcome email is best effort.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	user, err := s.repo.Create(ctx, NewUser{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         auth.RoleOwner,
		Phone:        req.Phone,
	})
	if errors.Is(err, ErrEmailExists) {
		return nil, "", "", ErrEmailExists
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("create user: %w", err)
	}

	accessToken, refreshToken, err := auth.IssueTokens(user.identity(), s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	if s.mailer != nil {
		if err := s.mailer.SendWelcome(ctx, user.Email, user.Name); err != nil {
			logger.Warn("welcome email not queued", "user_id", user.ID, "error", err)
		}
	}

	logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, accessToken, refreshToken, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := auth.IssueTokens(user.identity(), s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// RefreshToken reissues an access token with the role currently stored, so a
// plan purchase shows up in the next token.
func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	claims, err := auth.ParseToken(refreshToken, s.jwtSecret, auth.TokenRefresh)
	if err != nil {
		return "", nil, ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, err
	}

	newAccessToken, err := auth.IssueAccessToken(user.identity(), s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	return newAccessToken, user, nil
}

func (u *User) identity() auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}
