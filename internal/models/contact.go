package models

import "time"

type MessageStatus string

const (
	MessageStatusNew     MessageStatus = "new"
	MessageStatusRead    MessageStatus = "read"
	MessageStatusReplied MessageStatus = "replied"
	MessageStatusClosed  MessageStatus = "closed"
)

type ContactMessage struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Subject    string
	Message    string
	PropertyID *string
	AgentID    *string
	Status     MessageStatus
	HandledBy  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ContactFilter struct {
	Status     MessageStatus
	PropertyID string
	AgentID    string
}
