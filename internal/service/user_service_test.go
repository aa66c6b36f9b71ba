package service

import (
	"context"
	"testing"

	"github.com/Will-hxw/1688/internal/domain/entity"
	"github.com/Will-hxw/1688/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) userService() UserService {
	return NewUserService(f.users, logger.NewNoOp())
}

func TestUserRegister(t *testing.T) {
	f := newFixture(t)
	svc := f.userService()

	user, err := svc.Register(context.Background(), "newcomer")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.True(t, user.IsActive)

	_, err = svc.Register(context.Background(), "newcomer")
	assert.ErrorIs(t, err, entity.ErrConflict)

	_, err = svc.Register(context.Background(), "  ")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestUserSetActive_AdminOnly(t *testing.T) {
	f := newFixture(t)
	svc := f.userService()

	_, err := svc.SetActive(context.Background(), f.buyer, f.buyer2.ID, false)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	disabled, err := svc.SetActive(context.Background(), f.admin, f.buyer2.ID, false)
	require.NoError(t, err)
	assert.False(t, disabled.IsActive)

	// A disabled account cannot buy; re-enabling restores it.
	_, err = f.purchaseService().Purchase(context.Background(), f.buyer2, f.listing.ID, "key-1")
	assert.ErrorIs(t, err, entity.ErrUserDisabled)

	enabled, err := svc.SetActive(context.Background(), f.admin, f.buyer2.ID, true)
	require.NoError(t, err)
	assert.True(t, enabled.IsActive)

	_, err = f.purchaseService().Purchase(context.Background(), f.buyer2, f.listing.ID, "key-2")
	assert.NoError(t, err)

	_, err = svc.SetActive(context.Background(), f.admin, "missing", false)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
