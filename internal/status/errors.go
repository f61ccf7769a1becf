package status

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that no status record exists for a user. Stores return
// it from reads and deletes of absent rows; callers branch with errors.Is.
var ErrNotFound = errors.New("user status not found")

// Validation error fields
const (
	FieldUserID     = "user_id"
	FieldStatusType = "status_type"
	FieldStatusIcon = "status_icon"
	FieldMessage    = "message"
	FieldClearAt    = "clear_at"
)

// ValidationError represents a field-specific validation failure. The Field
// identifies which validation rule was violated so callers can present
// precise feedback.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// NewInvalidUserIDError creates an error for a missing or empty user ID
func NewInvalidUserIDError() *ValidationError {
	return &ValidationError{
		Field:   FieldUserID,
		Value:   "",
		Message: "user_id is required",
	}
}

// NewInvalidStatusTypeError creates an error for a status type outside the
// allowed set
func NewInvalidStatusTypeError(statusType StatusType) *ValidationError {
	return &ValidationError{
		Field:   FieldStatusType,
		Value:   string(statusType),
		Message: "status type must be one of: available, busy, unavailable",
	}
}

// NewInvalidStatusIconError creates an error for an icon that is not a single
// emoji character
func NewInvalidStatusIconError(icon string) *ValidationError {
	return &ValidationError{
		Field:   FieldStatusIcon,
		Value:   icon,
		Message: "status icon must be a single emoji character",
	}
}

// NewMessageTooLongError creates an error for a message over the length limit
func NewMessageTooLongError(length int) *ValidationError {
	return &ValidationError{
		Field:   FieldMessage,
		Value:   length,
		Message: fmt.Sprintf("message must not exceed %d characters", MaxMessageLength),
	}
}

// NewInvalidClearAtError creates an error for a clear time that is not in the
// future
func NewInvalidClearAtError() *ValidationError {
	return &ValidationError{
		Field:   FieldClearAt,
		Value:   nil,
		Message: "clear time must be in the future",
	}
}
