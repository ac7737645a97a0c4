// Package domain contains core concepts of the chat system.
// This file defines users, roles and room membership.
// No runtime, network, or storage logic should be added here.
package domain

import "time"

type UserID int

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Membership records that a user joined a room at least once.
type Membership struct {
	UserID   UserID    `json:"user_id"`
	RoomID   RoomID    `json:"room_id"`
	JoinedAt time.Time `json:"joined_at"`
}
