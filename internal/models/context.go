package models

import "time"

// ConversationContext tracks the current topic of a conversation pair,
// typically the marketplace item the two users are talking about. There is
// at most one context row per unordered pair, keyed by the canonical pair key.
type ConversationContext struct {
	PairKey   string      `json:"pair_key"`
	User1ID   string      `json:"user1_id"`
	User2ID   string      `json:"user2_id"`
	Product   *ProductRef `json:"product,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}
