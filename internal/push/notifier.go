// Package push fans a notification out to every registered device of a user,
// filtered by the user's notification preferences. Everything here is
// best-effort: failures become counts, never errors on the send path.
package push

import (
	"context"
	"log"

	"wardrobe-chat-service/internal/observability"
	"wardrobe-chat-service/internal/repositories"
)

// Receipt reports what a fan-out attempt did.
type Receipt struct {
	Attempted int `json:"attempted"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// Notifier resolves a receiver's devices and preferences and dispatches.
type Notifier struct {
	users   repositories.UserRepository
	gateway Gateway
}

// NewNotifier constructs a Notifier.
func NewNotifier(users repositories.UserRepository, gateway Gateway) *Notifier {
	return &Notifier{users: users, gateway: gateway}
}

// Notify delivers a "messages"-category notification to all of the receiver's
// devices. A disabled toggle or an empty token list is a silent skip with a
// zero receipt, not an error.
func (n *Notifier) Notify(ctx context.Context, receiverID string, notification Notification) Receipt {
	target, err := n.users.NotificationTarget(ctx, receiverID)
	if err != nil {
		log.Printf("push: load notification target for %s failed: %v", receiverID, err)
		observability.IncPushSkipped("target_lookup_failed")
		return Receipt{}
	}

	if !target.Enabled {
		observability.IncPushSkipped("global_disabled")
		return Receipt{}
	}
	if !target.Messages {
		observability.IncPushSkipped("messages_disabled")
		return Receipt{}
	}
	if len(target.Tokens) == 0 {
		observability.IncPushSkipped("no_tokens")
		return Receipt{}
	}

	receipt := Receipt{Attempted: len(target.Tokens)}
	for _, device := range target.Tokens {
		if err := n.gateway.Send(ctx, device.Token, notification); err != nil {
			log.Printf("push: dispatch to %s device failed: %v", device.Platform, err)
			observability.IncPushDispatch("failed")
			receipt.Failed++
			continue
		}
		observability.IncPushDispatch("delivered")
		receipt.Delivered++
	}

	_ = observability.PublishEvent(ctx, "push_events.messages", observability.EventEnvelope{
		EventType: "push_events",
		EventName: "fanout",
		Payload: map[string]interface{}{
			"receiver_id": receiverID,
			"attempted":   receipt.Attempted,
			"delivered":   receipt.Delivered,
			"failed":      receipt.Failed,
		},
	}, nil)

	return receipt
}
