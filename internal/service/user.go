package service

import (
	"context"
	"strings"

	"music_stream/internal/domain"
	"music_stream/internal/repository"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"
)

type AuthCallbackInput struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ImageURL  string `json:"imageUrl"`
}

type UserService interface {
	// EnsureUser provisions the user behind a verified token on first sight.
	EnsureUser(ctx context.Context, user *domain.User) error
	AuthCallback(ctx context.Context, in AuthCallbackInput) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	ListOthers(ctx context.Context, userID string) ([]*domain.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

func (s *userService) EnsureUser(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return apperrors.ErrInvalidToken
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *userService) AuthCallback(ctx context.Context, in AuthCallbackInput) (*domain.User, error) {
	if strings.TrimSpace(in.ID) == "" {
		return nil, apperrors.Validation("User ID is required")
	}

	user := &domain.User{
		ID:          strings.TrimSpace(in.ID),
		DisplayName: strings.TrimSpace(in.FirstName + " " + in.LastName),
		AvatarURL:   in.ImageURL,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.log.Info("User processed", "user_id", user.ID)
	return user, nil
}

func (s *userService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

func (s *userService) ListOthers(ctx context.Context, userID string) ([]*domain.User, error) {
	users, err := s.userRepo.ListExcept(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return users, nil
}
