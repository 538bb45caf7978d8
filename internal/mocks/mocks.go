package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"wardrobe-chat-service/internal/models"
	"wardrobe-chat-service/internal/push"
	"wardrobe-chat-service/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, senderID, receiverID, body string, product *models.ProductRef) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, body, product)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListThread(ctx context.Context, userA, userB string, limit int, before time.Time) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB, limit, before)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkThreadRead(ctx context.Context, readerID, counterpartID string) (int64, error) {
	args := m.Called(ctx, readerID, counterpartID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) DeleteThread(ctx context.Context, userA, userB string) (int64, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

type ContextRepositoryMock struct {
	mock.Mock
}

func (m *ContextRepositoryMock) Upsert(ctx context.Context, userA, userB string, product *models.ProductRef) (models.ConversationContext, error) {
	args := m.Called(ctx, userA, userB, product)
	var cc models.ConversationContext
	if val := args.Get(0); val != nil {
		cc = val.(models.ConversationContext)
	}
	return cc, args.Error(1)
}

func (m *ContextRepositoryMock) Get(ctx context.Context, userA, userB string) (models.ConversationContext, error) {
	args := m.Called(ctx, userA, userB)
	var cc models.ConversationContext
	if val := args.Get(0); val != nil {
		cc = val.(models.ConversationContext)
	}
	return cc, args.Error(1)
}

func (m *ContextRepositoryMock) DeleteByPair(ctx context.Context, userA, userB string) error {
	args := m.Called(ctx, userA, userB)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Exists(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepositoryMock) Usernames(ctx context.Context, ids []string) (map[string]string, error) {
	args := m.Called(ctx, ids)
	var names map[string]string
	if val := args.Get(0); val != nil {
		names = val.(map[string]string)
	}
	return names, args.Error(1)
}

func (m *UserRepositoryMock) NotificationTarget(ctx context.Context, userID string) (models.NotificationTarget, error) {
	args := m.Called(ctx, userID)
	var target models.NotificationTarget
	if val := args.Get(0); val != nil {
		target = val.(models.NotificationTarget)
	}
	return target, args.Error(1)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) Notify(ctx context.Context, receiverID string, notification push.Notification) push.Receipt {
	args := m.Called(ctx, receiverID, notification)
	var receipt push.Receipt
	if val := args.Get(0); val != nil {
		receipt = val.(push.Receipt)
	}
	return receipt
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ContextRepository = (*ContextRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ push.Dispatcher = (*DispatcherMock)(nil)
