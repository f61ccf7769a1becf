package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/statusboard/statusboard/internal/grapheme"
)

// systemClock reads the wall clock
type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service implements the StatusManager interface
type Service struct {
	store StatusStore
	clock Clock
}

// NewService creates a new status service backed by the system clock
func NewService(store StatusStore) *Service {
	return NewServiceWithClock(store, systemClock{})
}

// NewServiceWithClock creates a new status service with an injected clock
func NewServiceWithClock(store StatusStore, clock Clock) *Service {
	return &Service{
		store: store,
		clock: clock,
	}
}

// SetStatus creates or overwrites the status record for a user. Validations
// run in a fixed order (status type, icon, message, clear time) and fail fast
// on the first violation; nothing is persisted on a validation failure.
func (s *Service) SetStatus(ctx context.Context, req *SetStatusRequest) (*UserStatus, error) {
	if req.UserID == "" {
		return nil, NewInvalidUserIDError()
	}

	existing, err := s.store.FindByUserID(ctx, req.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to load status for user %s: %w", req.UserID, err)
	}

	if !req.StatusType.IsValid() {
		return nil, NewInvalidStatusTypeError(req.StatusType)
	}

	if req.StatusIcon != nil && !grapheme.IsSingleEmoji(*req.StatusIcon) {
		return nil, NewInvalidStatusIconError(*req.StatusIcon)
	}

	if req.Message != nil {
		if length := grapheme.Count(*req.Message); length > MaxMessageLength {
			return nil, NewMessageTooLongError(length)
		}
	}

	if req.ClearAt != nil && !req.ClearAt.After(s.clock.Now()) {
		return nil, NewInvalidClearAtError()
	}

	record := &UserStatus{
		UserID:     req.UserID,
		StatusType: req.StatusType,
		StatusIcon: req.StatusIcon,
		Message:    req.Message,
		ClearAt:    req.ClearAt,
		CreatedAt:  s.clock.Now(),
	}

	if existing == nil {
		if err := s.store.Insert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to insert status for user %s: %w", req.UserID, err)
		}
	} else {
		if err := s.store.Update(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to update status for user %s: %w", req.UserID, err)
		}
	}

	return record, nil
}

// FindByUserID retrieves the status record for a user. Absence surfaces as
// ErrNotFound.
func (s *Service) FindByUserID(ctx context.Context, userID string) (*UserStatus, error) {
	if userID == "" {
		return nil, NewInvalidUserIDError()
	}

	return s.store.FindByUserID(ctx, userID)
}

// FindAll retrieves status records for all users with optional pagination
func (s *Service) FindAll(ctx context.Context, req *ListStatusesRequest) ([]*UserStatus, error) {
	limit, offset := 0, 0
	if req != nil {
		limit, offset = req.Limit, req.Offset
	}

	statuses, err := s.store.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	return statuses, nil
}

// RemoveUserStatus deletes the status record for a user. Returns true if a
// row existed and was deleted, false if there was nothing to delete.
func (s *Service) RemoveUserStatus(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, NewInvalidUserIDError()
	}

	err := s.store.Delete(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete status for user %s: %w", userID, err)
	}

	return true, nil
}
