package storage

import (
	"context"
	"errors"
	"time"

	"gigboard/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Sentinel errors surfaced by the data layer. Handlers map them to HTTP
// statuses; the hub treats them as a reason to stay silent.
var (
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("user is not a participant of this chat")
	ErrNoParticipants = errors.New("a chat needs at least one participant")
)

// Storage is the only interface to durable chat state: conversations,
// the append-only message store and the read-flag mutation, plus the redis
// side shared by all server instances (event pub/sub and the per-user live
// connection counters the presence tracker runs on).
type Storage interface {
	GetUserByID(userID string) (*models.User, error)
	SetUserPresence(userID string, online bool, lastSeen time.Time) error
	IncrementPresence(userID string) (int64, error)
	DecrementPresence(userID string) (int64, error)

	CreateChat(creatorID string, participantIDs []string, name string, isGroup bool) (*models.Chat, error)
	GetChatsForUser(userID string) ([]models.Chat, error)
	GetChatByID(chatID string) (*models.Chat, error)
	IsParticipant(chatID, userID string) (bool, error)
	AddParticipant(chatID, userID string) error
	RemoveParticipant(chatID, userID string) error

	SaveMessage(msg *models.Message) error
	GetChatMessages(chatID string, limit int, before time.Time) ([]models.Message, error)
	MarkMessagesRead(chatID, readerID string) error

	PublishEvent(event models.Event) error
	Subscribe() *redis.PubSub
}

// Service implements Storage on PostgreSQL (via gorm) and Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService constructor.
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}
