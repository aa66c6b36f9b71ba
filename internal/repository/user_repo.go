package repository

import (
	"context"

	"github.com/Will-hxw/1688/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, userID string) (*entity.User, error)
	// SetActive enables or disables an account.
	SetActive(ctx context.Context, userID string, active bool) error
}
