package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"dinespot/internal/domain"
	"dinespot/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type jwtService interface {
	GenerateToken(userID string) (string, error)
}

type Service struct {
	users repository.UserRepository
	jwt   jwtService
}

func NewService(users repository.UserRepository, jwt jwtService) *Service {
	return &Service{users: users, jwt: jwt}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)
	if email == "" || name == "" || len(req.Password) < 8 {
		return nil, ErrInvalidRequest
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	token, err := s.jwt.GenerateToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: toPublic(u)}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Token: token, User: toPublic(u)}, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (*UserPublic, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := toPublic(u)
	return &p, nil
}

func toPublic(u *domain.User) UserPublic {
	return UserPublic{ID: u.ID, Name: u.Name, Email: u.Email}
}
