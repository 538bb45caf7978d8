package models

// ConversationSummary is the per-counterpart view used by the conversation
// list screen: the latest message plus totals, newest conversation first.
type ConversationSummary struct {
	CounterpartID string  `json:"counterpart_id"`
	LastMessage   Message `json:"last_message"`
	MessageCount  int     `json:"message_count"`
	UnreadCount   int     `json:"unread_count"`
}
