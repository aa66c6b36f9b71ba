package entity

import "errors"

var (
	// ErrNotFound indicates that a referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrForbidden indicates that the actor is not allowed to perform the action.
	ErrForbidden = errors.New("action forbidden")
	// ErrInvalidTransition indicates a status change that is not an edge of the
	// order state graph, including races lost against a concurrent transition.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict indicates that a listing was already reserved by another purchase.
	ErrConflict = errors.New("listing conflict")
	// ErrInvalidInput indicates that the provided input data is invalid.
	ErrInvalidInput = errors.New("invalid input data")
	// ErrUserDisabled indicates that the acting account has been disabled by an admin.
	ErrUserDisabled = errors.New("user account is disabled")
)
