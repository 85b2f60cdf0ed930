package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("key not found")
)

// Keys of the persisted session state. All of them are cleared together:
// a partial clear (access token present, refresh token gone, or vice versa)
// is treated as a correctness bug, so Clear must be atomic.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUserData     = "userData"
)

// Store persists the session state of the console between operations.
// The session manager is the only writer; readers re-read per operation
// because a refresh may replace the access token at any time.
type Store interface {
	Set(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (string, error)
	// Clear removes every session key in a single atomic step.
	Clear(ctx context.Context) error
	Close() error
}
