package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/repository"
)

// requireActiveUser rejects actions by unknown or disabled accounts. Disabled
// accounts keep read access; every mutating service entry point calls this.
func requireActiveUser(ctx context.Context, userRepo repository.UserRepository, actor entity.Actor) error {
	user, err := userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: unknown account", entity.ErrForbidden)
		}
		return fmt.Errorf("failed to load account %s: %w", actor.ID, err)
	}
	if !user.IsActive {
		return entity.ErrUserDisabled
	}
	return nil
}
