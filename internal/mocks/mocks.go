package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"storefront-chat-service/internal/models"
	"storefront-chat-service/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) FindOrCreateChat(ctx context.Context, userID, superAdminID string) (models.Chat, error) {
	args := m.Called(ctx, userID, superAdminID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListChatsForUser(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) ListAllChats(ctx context.Context, adminID string) ([]models.ChatSummary, error) {
	args := m.Called(ctx, adminID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) TouchLastMessage(ctx context.Context, chatID string, at time.Time) error {
	args := m.Called(ctx, chatID, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, chatID, senderID, content string) (models.ChatMessage, error) {
	args := m.Called(ctx, chatID, senderID, content)
	var msg models.ChatMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ChatMessage)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.ChatMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MarkReadForRecipient(ctx context.Context, chatID, readerID string) error {
	args := m.Called(ctx, chatID, readerID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) FirstSuperAdmin(ctx context.Context) (models.User, error) {
	args := m.Called(ctx)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type OrderRepositoryMock struct {
	mock.Mock
}

func (m *OrderRepositoryMock) CreateOrder(ctx context.Context, userID string, total float64) (models.Order, error) {
	args := m.Called(ctx, userID, total)
	var order models.Order
	if val := args.Get(0); val != nil {
		order = val.(models.Order)
	}
	return order, args.Error(1)
}

func (m *OrderRepositoryMock) UpdateStatus(ctx context.Context, orderID, status string) (models.Order, error) {
	args := m.Called(ctx, orderID, status)
	var order models.Order
	if val := args.Get(0); val != nil {
		order = val.(models.Order)
	}
	return order, args.Error(1)
}

type RouterMock struct {
	mock.Mock
}

func (m *RouterMock) EmitToRoom(room, event string, data any) {
	m.Called(room, event, data)
}

type PresenceMock struct {
	mock.Mock
}

func (m *PresenceMock) IsOnline(userID string) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) OrderCreated(order models.Order) {
	m.Called(order)
}

func (m *NotifierMock) OrderStatusChanged(orderID, userID, newStatus string) {
	m.Called(orderID, userID, newStatus)
}

var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.OrderRepository = (*OrderRepositoryMock)(nil)
