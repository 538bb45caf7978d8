package models

import "time"

// Client-to-server websocket event types.
const (
	EventJoinChat       = "join-chat"
	EventPrivateMessage = "private-message"
	EventTyping         = "typing"
)

// Server-to-client websocket event types.
const (
	EventNewMessage   = "new-message"
	EventMessageSent  = "message-sent"
	EventMessageError = "message-error"
	EventUserTyping   = "user-typing"
)

// ClientEvent is a frame received from a websocket client. Type selects
// which of the remaining fields are meaningful.
type ClientEvent struct {
	Type         string `json:"type"`
	UserID       string `json:"userId,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
	FromUserID   string `json:"fromUserId,omitempty"`
	ToUserID     string `json:"toUserId,omitempty"`
	Message      string `json:"message,omitempty"`
	ProductID    string `json:"productId,omitempty"`
	ProductName  string `json:"productName,omitempty"`
	IsTyping     bool   `json:"isTyping,omitempty"`
}

// ServerEvent is broadcast through websockets.
type ServerEvent struct {
	Type      string     `json:"type"`
	Message   *Message   `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	IsTyping  bool       `json:"isTyping,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
