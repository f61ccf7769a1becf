package status

import (
	"context"
	"time"
)

// StatusManager defines the interface for user status operations
type StatusManager interface {
	SetStatus(ctx context.Context, req *SetStatusRequest) (*UserStatus, error)
	FindByUserID(ctx context.Context, userID string) (*UserStatus, error)
	FindAll(ctx context.Context, req *ListStatusesRequest) ([]*UserStatus, error)
	RemoveUserStatus(ctx context.Context, userID string) (bool, error)
}

// StatusStore defines the interface for status storage operations.
// Implementations guarantee at most one row per user ID and signal absent
// rows with ErrNotFound.
type StatusStore interface {
	Insert(ctx context.Context, status *UserStatus) error
	Update(ctx context.Context, status *UserStatus) error
	Delete(ctx context.Context, userID string) error
	FindByUserID(ctx context.Context, userID string) (*UserStatus, error)
	FindAll(ctx context.Context, limit, offset int) ([]*UserStatus, error)

	// DeleteExpired removes rows whose clear time is at or before the given
	// instant, returning how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
}

// Clock supplies the current time so validation against "now" is
// deterministic in tests
type Clock interface {
	Now() time.Time
}
