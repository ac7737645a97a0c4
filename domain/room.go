package domain

import "time"

type RoomID int

// Room is a named channel grouping users and messages.
type Room struct {
	ID          RoomID    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   UserID    `json:"created_by"`
}

// RoomDraft carries the mutable fields of a room on create and update.
type RoomDraft struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}
