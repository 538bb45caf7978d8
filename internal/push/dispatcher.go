package push

import "context"

// Dispatcher is what message senders depend on; satisfied by *Notifier.
type Dispatcher interface {
	Notify(ctx context.Context, receiverID string, notification Notification) Receipt
}

var _ Dispatcher = (*Notifier)(nil)
