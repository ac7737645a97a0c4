// Package domain contains core concepts of the chat system.
// This file defines Message events and their wire representation.
// Messages are immutable once persisted.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
type Message struct {
	ID         uuid.UUID
	RoomID     RoomID
	SenderID   UserID
	SenderName string
	Content    string
	SentAt     time.Time
}

// Frame is the JSON object pushed to clients, for both priming and live traffic.
type Frame struct {
	Content string `json:"content"`
	Sender  string `json:"sender"`
	SentAt  string `json:"sent_at"`
}

// InboundFrame is what a client sends. Any room_id it carries is ignored.
type InboundFrame struct {
	Content *string `json:"content"`
}

// SentAtLayout is ISO-8601 with microsecond precision and an explicit offset.
const SentAtLayout = "2006-01-02T15:04:05.000000Z07:00"

func (m Message) ToFrame() Frame {
	return Frame{
		Content: m.Content,
		Sender:  m.SenderName,
		SentAt:  m.SentAt.UTC().Format(SentAtLayout),
	}
}
