package status

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a fixed instant so clear-time validation is deterministic
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func newTestService() (*Service, *InMemoryStore, *fakeClock) {
	store := NewInMemoryStore()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewServiceWithClock(store, clock), store, clock
}

func strPtr(s string) *string {
	return &s
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("MinimalRequestCreatesRow", func(t *testing.T) {
		service, store, clock := newTestService()

		record, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", record.UserID)
		assert.Equal(t, StatusTypeAvailable, record.StatusType)
		assert.Nil(t, record.StatusIcon)
		assert.Nil(t, record.Message)
		assert.Nil(t, record.ClearAt)
		assert.Equal(t, clock.now, record.CreatedAt)

		stored, err := store.FindByUserID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, record, stored)
	})

	t.Run("AllFieldsPersisted", func(t *testing.T) {
		service, _, clock := newTestService()

		clearAt := clock.now.Add(time.Hour)
		record, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeBusy,
			StatusIcon: strPtr("🚀"),
			Message:    strPtr("shipping a release"),
			ClearAt:    &clearAt,
		})
		require.NoError(t, err)
		require.NotNil(t, record.StatusIcon)
		assert.Equal(t, "🚀", *record.StatusIcon)
		require.NotNil(t, record.Message)
		assert.Equal(t, "shipping a release", *record.Message)
		require.NotNil(t, record.ClearAt)
		assert.True(t, record.ClearAt.Equal(clearAt))
	})

	t.Run("EmptyUserIDRejected", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.SetStatus(ctx, &SetStatusRequest{
			StatusType: StatusTypeAvailable,
		})
		assertValidationError(t, err, FieldUserID)
	})

	t.Run("UnknownStatusTypeRejected", func(t *testing.T) {
		service, store, _ := newTestService()

		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusType("snoozed"),
		})
		assertValidationError(t, err, FieldStatusType)

		// No row was created
		_, err = store.FindByUserID(ctx, "user-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("InvalidIconRejected", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			StatusIcon: strPtr("ab"),
		})
		assertValidationError(t, err, FieldStatusIcon)
	})

	t.Run("ComposedEmojiIconAccepted", func(t *testing.T) {
		service, _, _ := newTestService()

		record, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			StatusIcon: strPtr("👍🏽"),
		})
		require.NoError(t, err)
		assert.Equal(t, "👍🏽", *record.StatusIcon)
	})

	t.Run("MessageLengthBoundary", func(t *testing.T) {
		service, _, _ := newTestService()

		// 80 characters is fine, 81 is not
		record, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			Message:    strPtr(strings.Repeat("x", 80)),
		})
		require.NoError(t, err)
		assert.Len(t, *record.Message, 80)

		_, err = service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			Message:    strPtr(strings.Repeat("x", 81)),
		})
		assertValidationError(t, err, FieldMessage)
	})

	t.Run("MessageLengthCountsGraphemesNotBytes", func(t *testing.T) {
		service, _, _ := newTestService()

		// 80 four-byte emoji: 320 bytes but only 80 user-perceived characters
		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			Message:    strPtr(strings.Repeat("👍", 80)),
		})
		assert.NoError(t, err)
	})

	t.Run("PastClearAtRejected", func(t *testing.T) {
		service, _, clock := newTestService()

		clearAt := clock.now.Add(-time.Second)
		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			ClearAt:    &clearAt,
		})
		assertValidationError(t, err, FieldClearAt)
	})

	t.Run("ClearAtEqualToNowRejected", func(t *testing.T) {
		service, _, clock := newTestService()

		clearAt := clock.now
		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			ClearAt:    &clearAt,
		})
		assertValidationError(t, err, FieldClearAt)
	})

	t.Run("StatusTypeErrorWinsOverIconError", func(t *testing.T) {
		service, _, _ := newTestService()

		// Both fields invalid: validation order makes the type error observable
		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusType("snoozed"),
			StatusIcon: strPtr("not an emoji"),
		})
		assertValidationError(t, err, FieldStatusType)
	})

	t.Run("UpsertOverwritesAllFields", func(t *testing.T) {
		service, store, clock := newTestService()

		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeBusy,
			StatusIcon: strPtr("🔥"),
			Message:    strPtr("deep work"),
		})
		require.NoError(t, err)

		firstWrite := clock.now
		clock.now = clock.now.Add(time.Minute)

		record, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusTypeAvailable, record.StatusType)
		assert.Nil(t, record.StatusIcon)
		assert.Nil(t, record.Message)
		assert.Equal(t, firstWrite.Add(time.Minute), record.CreatedAt)

		// Still exactly one row for the user
		all, err := store.FindAll(ctx, 0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("FailedWriteLeavesExistingRowUntouched", func(t *testing.T) {
		service, store, _ := newTestService()

		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeBusy,
			Message:    strPtr("deep work"),
		})
		require.NoError(t, err)

		_, err = service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
			Message:    strPtr(strings.Repeat("x", 81)),
		})
		assertValidationError(t, err, FieldMessage)

		stored, err := store.FindByUserID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, StatusTypeBusy, stored.StatusType)
		assert.Equal(t, "deep work", *stored.Message)
	})
}

func TestFindByUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("ReturnsStoredRecord", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeUnavailable,
		})
		require.NoError(t, err)

		record, err := service.FindByUserID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, StatusTypeUnavailable, record.StatusType)
	})

	t.Run("AbsentUserSurfacesNotFound", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.FindByUserID(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("EmptyUserIDRejected", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.FindByUserID(ctx, "")
		assertValidationError(t, err, FieldUserID)
	})
}

func TestFindAll(t *testing.T) {
	ctx := context.Background()

	t.Run("PaginatesNewestFirst", func(t *testing.T) {
		service, _, clock := newTestService()

		for i, userID := range []string{"user-a", "user-b", "user-c"} {
			clock.now = clock.now.Add(time.Duration(i) * time.Minute)
			_, err := service.SetStatus(ctx, &SetStatusRequest{
				UserID:     userID,
				StatusType: StatusTypeAvailable,
			})
			require.NoError(t, err)
		}

		all, err := service.FindAll(ctx, nil)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "user-c", all[0].UserID)

		page, err := service.FindAll(ctx, &ListStatusesRequest{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "user-b", page[0].UserID)
	})

	t.Run("EmptyStoreReturnsEmptySlice", func(t *testing.T) {
		service, _, _ := newTestService()

		all, err := service.FindAll(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestRemoveUserStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("DeletesExistingRow", func(t *testing.T) {
		service, _, _ := newTestService()

		_, err := service.SetStatus(ctx, &SetStatusRequest{
			UserID:     "user-1",
			StatusType: StatusTypeAvailable,
		})
		require.NoError(t, err)

		deleted, err := service.RemoveUserStatus(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = service.FindByUserID(ctx, "user-1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("AbsentRowIsNotAnError", func(t *testing.T) {
		service, _, _ := newTestService()

		deleted, err := service.RemoveUserStatus(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

// assertValidationError checks that err is a ValidationError for the expected field
func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "expected ValidationError, got %v", err)
	assert.Equal(t, field, validationErr.Field)
}
