package status

import (
	"time"
)

// StatusType represents the availability of a user
type StatusType string

const (
	StatusTypeAvailable   StatusType = "available"
	StatusTypeBusy        StatusType = "busy"
	StatusTypeUnavailable StatusType = "unavailable"
)

// IsValid checks if the status type is valid
func (t StatusType) IsValid() bool {
	return t == StatusTypeAvailable || t == StatusTypeBusy || t == StatusTypeUnavailable
}

// MaxMessageLength is the maximum status message length in user-perceived
// characters (grapheme clusters), not bytes.
const MaxMessageLength = 80

// UserStatus represents the current status record of a user.
// CreatedAt is refreshed on every successful write, so it tracks the last
// modification rather than the first.
type UserStatus struct {
	UserID     string     `json:"user_id"`
	StatusType StatusType `json:"status_type"`
	StatusIcon *string    `json:"status_icon,omitempty"`
	Message    *string    `json:"message,omitempty"`
	ClearAt    *time.Time `json:"clear_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SetStatusRequest represents a request to create or overwrite a user's status
type SetStatusRequest struct {
	UserID     string     `json:"user_id"`
	StatusType StatusType `json:"status_type"`
	StatusIcon *string    `json:"status_icon,omitempty"`
	Message    *string    `json:"message,omitempty"`
	ClearAt    *time.Time `json:"clear_at,omitempty"`
}

// ListStatusesRequest represents a request to list status records with
// optional pagination. Zero values mean unconstrained.
type ListStatusesRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}
