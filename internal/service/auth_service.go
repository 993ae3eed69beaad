package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"docapproval/internal/apperror"
	"docapproval/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DTOs for Request validation
type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// AuthService issues tokens identifying the acting user.
type AuthService interface {
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
}

type authService struct {
	repo   repository.UserRepository
	secret []byte
	ttl    time.Duration
}

func NewAuthService(repo repository.UserRepository, secret []byte, ttl time.Duration) AuthService {
	return &authService{repo: repo, secret: secret, ttl: ttl}
}

func (s *authService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.CodeUnauthorized, "invalid email or password")
		}
		return nil, apperror.FromDB(err, "user", req.Email)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.New(apperror.CodeUnauthorized, "invalid email or password")
	}

	expiresAt := time.Now().Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.FormatUint(uint64(user.ID), 10),
		"admin": user.IsAdmin,
		"exp":   expiresAt.Unix(),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeDatabaseError, "failed to generate token")
	}

	return &TokenResponse{Token: tokenString, ExpiresAt: expiresAt.Format(time.RFC3339)}, nil
}

// HashPassword returns the bcrypt hash stored in users.password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.New("failed to hash password")
	}
	return string(hashed), nil
}
