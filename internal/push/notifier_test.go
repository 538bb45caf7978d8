package push

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardrobe-chat-service/internal/models"
)

type fakeUserRepo struct {
	target models.NotificationTarget
	err    error
}

func (f *fakeUserRepo) Exists(ctx context.Context, userID string) (bool, error) { return true, nil }
func (f *fakeUserRepo) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	return map[string]string{}, nil
}
func (f *fakeUserRepo) NotificationTarget(ctx context.Context, userID string) (models.NotificationTarget, error) {
	return f.target, f.err
}

type fakeGateway struct {
	mu     sync.Mutex
	sent   []string
	failOn map[string]bool
}

func (f *fakeGateway) Send(ctx context.Context, token string, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, token)
	if f.failOn[token] {
		return errors.New("gateway rejected token")
	}
	return nil
}

func TestNotifySkipsWhenGloballyDisabled(t *testing.T) {
	users := &fakeUserRepo{target: models.NotificationTarget{
		Enabled:  false,
		Messages: true,
		Tokens:   []models.PushToken{{Token: "tok-1", Platform: "ios"}},
	}}
	gateway := &fakeGateway{}
	notifier := NewNotifier(users, gateway)

	receipt := notifier.Notify(context.Background(), "bob", Notification{Title: "hi"})

	assert.Equal(t, Receipt{}, receipt)
	assert.Empty(t, gateway.sent)
}

func TestNotifySkipsWhenMessagesDisabled(t *testing.T) {
	users := &fakeUserRepo{target: models.NotificationTarget{
		Enabled:  true,
		Messages: false,
		Tokens:   []models.PushToken{{Token: "tok-1", Platform: "ios"}},
	}}
	gateway := &fakeGateway{}
	notifier := NewNotifier(users, gateway)

	receipt := notifier.Notify(context.Background(), "bob", Notification{Title: "hi"})

	assert.Equal(t, Receipt{}, receipt)
	assert.Empty(t, gateway.sent)
}

func TestNotifySkipsWithoutTokens(t *testing.T) {
	users := &fakeUserRepo{target: models.NotificationTarget{Enabled: true, Messages: true}}
	gateway := &fakeGateway{}
	notifier := NewNotifier(users, gateway)

	receipt := notifier.Notify(context.Background(), "bob", Notification{Title: "hi"})

	assert.Equal(t, Receipt{}, receipt)
	assert.Empty(t, gateway.sent)
}

func TestNotifyCountsPartialFailure(t *testing.T) {
	users := &fakeUserRepo{target: models.NotificationTarget{
		Enabled:  true,
		Messages: true,
		Tokens: []models.PushToken{
			{Token: "tok-1", Platform: "ios"},
			{Token: "tok-2", Platform: "android"},
			{Token: "tok-3", Platform: "ios"},
		},
	}}
	gateway := &fakeGateway{failOn: map[string]bool{"tok-2": true}}
	notifier := NewNotifier(users, gateway)

	receipt := notifier.Notify(context.Background(), "bob", Notification{Title: "hi", Body: "there"})

	require.Equal(t, 3, receipt.Attempted)
	assert.Equal(t, 2, receipt.Delivered)
	assert.Equal(t, 1, receipt.Failed)
	assert.Len(t, gateway.sent, 3)
}

func TestNotifySwallowsLookupErrors(t *testing.T) {
	users := &fakeUserRepo{err: errors.New("db down")}
	gateway := &fakeGateway{}
	notifier := NewNotifier(users, gateway)

	receipt := notifier.Notify(context.Background(), "bob", Notification{Title: "hi"})

	assert.Equal(t, Receipt{}, receipt)
	assert.Empty(t, gateway.sent)
}
