package ws

import (
	"crypto/rand"
	"encoding/hex"
)

// newConnID returns a random 128-bit hex id used to correlate one socket's
// lifecycle events across logs and the event bus.
func newConnID() string {
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(id)
}
