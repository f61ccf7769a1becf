package status

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore implements StatusStore interface with in-memory storage
type InMemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]*UserStatus
}

// NewInMemoryStore creates a new in-memory store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		statuses: make(map[string]*UserStatus),
	}
}

// Insert creates a new status row
func (s *InMemoryStore) Insert(ctx context.Context, status *UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[status.UserID] = copyStatus(status)
	return nil
}

// Update overwrites an existing status row
func (s *InMemoryStore) Update(ctx context.Context, status *UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.statuses[status.UserID]; !exists {
		return ErrNotFound
	}

	s.statuses[status.UserID] = copyStatus(status)
	return nil
}

// Delete removes a status row
func (s *InMemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.statuses[userID]; !exists {
		return ErrNotFound
	}

	delete(s.statuses, userID)
	return nil
}

// FindByUserID retrieves a status row by user ID
func (s *InMemoryStore) FindByUserID(ctx context.Context, userID string) (*UserStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, exists := s.statuses[userID]
	if !exists {
		return nil, ErrNotFound
	}

	return copyStatus(status), nil
}

// FindAll retrieves all status rows, most recently written first with user ID
// as tiebreak, applying limit and offset when positive
func (s *InMemoryStore) FindAll(ctx context.Context, limit, offset int) ([]*UserStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]*UserStatus, 0, len(s.statuses))
	for _, status := range s.statuses {
		statuses = append(statuses, copyStatus(status))
	}

	sort.Slice(statuses, func(i, j int) bool {
		if !statuses[i].CreatedAt.Equal(statuses[j].CreatedAt) {
			return statuses[i].CreatedAt.After(statuses[j].CreatedAt)
		}
		return statuses[i].UserID < statuses[j].UserID
	})

	if offset > 0 {
		if offset >= len(statuses) {
			return []*UserStatus{}, nil
		}
		statuses = statuses[offset:]
	}

	if limit > 0 && limit < len(statuses) {
		statuses = statuses[:limit]
	}

	return statuses, nil
}

// DeleteExpired removes rows whose clear time is at or before the given instant
func (s *InMemoryStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for userID, status := range s.statuses {
		if status.ClearAt != nil && !status.ClearAt.After(before) {
			delete(s.statuses, userID)
			deleted++
		}
	}

	return deleted, nil
}

// Ping always succeeds for in-memory storage
func (s *InMemoryStore) Ping(ctx context.Context) error {
	return nil
}

// copyStatus clones a record so callers never share memory with the store
func copyStatus(status *UserStatus) *UserStatus {
	clone := *status
	if status.StatusIcon != nil {
		icon := *status.StatusIcon
		clone.StatusIcon = &icon
	}
	if status.Message != nil {
		message := *status.Message
		clone.Message = &message
	}
	if status.ClearAt != nil {
		clearAt := *status.ClearAt
		clone.ClearAt = &clearAt
	}
	return &clone
}
