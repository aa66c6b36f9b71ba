package repository

import "errors"

var (
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrUpdateFailed  = errors.New("update failed")
	// ErrCASFailed means a conditional update matched no document because the
	// expected current state was gone: another writer got there first.
	ErrCASFailed = errors.New("compare-and-set failed: state changed concurrently")
	ErrQueryFailed = errors.New("database query failed")
)
