package entity

import (
	"errors"
	"strings"
	"time"
)

// User is a marketplace account. A disabled account (IsActive=false) is denied
// all buyer/seller actions, but its existing orders are left intact.
type User struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Role      Role      `bson:"role"`
	IsActive  bool      `bson:"is_active"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func NewUser(username string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username cannot be empty")
	}
	if role != RoleUser && role != RoleAdmin {
		return nil, errors.New("unknown role")
	}
	now := time.Now().UTC()
	return &User{
		Username:  username,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
