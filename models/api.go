package models

import "time"

// AuthResponse is returned by anonymous sign-in and token refresh.
type AuthResponse struct {
	UserID        string    `json:"user_id"`
	Token         string    `json:"token"`                    // HS256 JWT for the Authorization header
	RefreshSecret string    `json:"refresh_secret,omitempty"` // only on sign-in, never stored in clear
	ExpiresAt     time.Time `json:"expires_at"`               // UTC
}

// RefreshRequest exchanges a refresh secret for a new token.
type RefreshRequest struct {
	UserID        string `json:"user_id" binding:"required"`
	RefreshSecret string `json:"refresh_secret" binding:"required"`
}

// UpdateUserRequest changes the caller's display name. A null or missing name clears it.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name"`
}

// CreateCalendarRequest starts a calendar with 24 empty doors.
type CreateCalendarRequest struct {
	RecipientName     string `json:"recipientName" binding:"required"`
	RecipientInterest string `json:"recipientInterest"`
}

// UpdateDoorRequest replaces a door's content. The content type is normalized like NewDoor does.
type UpdateDoorRequest struct {
	ContentType ContentType `json:"contentType" binding:"required,oneof=empty text image"`
	Text        *string     `json:"text"`
	ImageURL    *string     `json:"imageURL"`
}

// CalendarListResponse is one page of calendars.
type CalendarListResponse struct {
	Data  []Calendar `json:"data"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}
