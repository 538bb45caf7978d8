// Package rooms derives the canonical identifier for a two-user conversation.
//
// The same key addresses the websocket room, the conversation-context row and
// the cache entries for a pair, so every consumer must go through Key.
package rooms

const separator = "-"

// Key returns the canonical pair key for two user ids. The ids are sorted
// lexicographically before joining, so Key(a, b) == Key(b, a).
func Key(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + separator + userB
}

// Participants returns the pair in canonical (sorted) order.
func Participants(userA, userB string) (string, string) {
	if userB < userA {
		return userB, userA
	}
	return userA, userB
}
