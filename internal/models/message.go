package models

import "time"

// ProductRef points a message or conversation at a marketplace listing.
// A nil *ProductRef means the conversation is not about any particular item.
type ProductRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// Message represents a direct message between two users. Messages are
// immutable after creation except for the read flag.
type Message struct {
	ID         int64       `json:"id"`
	SenderID   string      `json:"sender_id"`
	ReceiverID string      `json:"receiver_id"`
	Body       string      `json:"body"`
	Product    *ProductRef `json:"product,omitempty"`
	Read       bool        `json:"read"`
	CreatedAt  time.Time   `json:"created_at"`
}
