package chathub_test

import (
	"time"

	"gigboard/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of the storage.Storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetUserByID(userID string) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStorage) SetUserPresence(userID string, online bool, lastSeen time.Time) error {
	args := m.Called(userID, online, lastSeen)
	return args.Error(0)
}

func (m *MockStorage) IncrementPresence(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) DecrementPresence(userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CreateChat(creatorID string, participantIDs []string, name string, isGroup bool) (*models.Chat, error) {
	args := m.Called(creatorID, participantIDs, name, isGroup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStorage) GetChatsForUser(userID string) ([]models.Chat, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chat), args.Error(1)
}

func (m *MockStorage) GetChatByID(chatID string) (*models.Chat, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockStorage) IsParticipant(chatID, userID string) (bool, error) {
	args := m.Called(chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) AddParticipant(chatID, userID string) error {
	args := m.Called(chatID, userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveParticipant(chatID, userID string) error {
	args := m.Called(chatID, userID)
	return args.Error(0)
}

func (m *MockStorage) SaveMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) GetChatMessages(chatID string, limit int, before time.Time) ([]models.Message, error) {
	args := m.Called(chatID, limit, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) MarkMessagesRead(chatID, readerID string) error {
	args := m.Called(chatID, readerID)
	return args.Error(0)
}

func (m *MockStorage) PublishEvent(event models.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockStorage) Subscribe() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

// MockClient is a test double for the chathub.Client interface. Events the
// hub delivers land on RecvChannel.
type MockClient struct {
	connID      string
	userID      string
	userName    string
	RecvChannel chan models.Event
}

func newMockClient(connID, userID, userName string) *MockClient {
	return &MockClient{
		connID:      connID,
		userID:      userID,
		userName:    userName,
		RecvChannel: make(chan models.Event, 16),
	}
}

func (c *MockClient) GetConnID() string                   { return c.connID }
func (c *MockClient) GetUserID() string                   { return c.userID }
func (c *MockClient) GetUserName() string                 { return c.userName }
func (c *MockClient) GetSendChannel() chan<- models.Event { return c.RecvChannel }

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	// Not needed for testing
}

// drain collects everything currently queued for the client.
func (c *MockClient) drain() []models.Event {
	var events []models.Event
	for {
		select {
		case event := <-c.RecvChannel:
			events = append(events, event)
		default:
			return events
		}
	}
}

// countByType tallies queued events per event type.
func (c *MockClient) countByType() map[string]int {
	counts := make(map[string]int)
	for _, event := range c.drain() {
		counts[event.Type]++
	}
	return counts
}
