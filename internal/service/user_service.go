package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/Will-hxw/1688/internal/repository"
)

type UserService interface {
	Register(ctx context.Context, username string) (*entity.User, error)
	GetByID(ctx context.Context, userID string) (*entity.User, error)
	// SetActive enables or disables an account. Admin only. Disabling blocks
	// new actions; existing orders and reviews are untouched.
	SetActive(ctx context.Context, actor entity.Actor, userID string, active bool) (*entity.User, error)
}

type userService struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserService(userRepo repository.UserRepository, log logger.Logger) UserService {
	return &userService{userRepo: userRepo, log: log}
}

func (s *userService) Register(ctx context.Context, username string) (*entity.User, error) {
	user, err := entity.NewUser(username, entity.RoleUser)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: username is taken", entity.ErrConflict)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.log.Infof("registered user %s (%s)", user.ID, user.Username)
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}
	return user, nil
}

func (s *userService) SetActive(ctx context.Context, actor entity.Actor, userID string, active bool) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, entity.ErrForbidden
	}

	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, entity.ErrNotFound
		}
		return nil, fmt.Errorf("failed to set user %s active=%t: %w", userID, active, err)
	}

	s.log.Infof("admin %s set user %s active=%t", actor.ID, userID, active)
	return s.GetByID(ctx, userID)
}
