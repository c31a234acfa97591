package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a conversation between two or more participants.
// Name is only meaningful when IsGroup is true. LastMessageAt advances
// monotonically with every accepted message and drives conversation
// list ordering on the client.
type Chat struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Name          string    `json:"name"`
	IsGroup       bool      `json:"isGroup"`
	LastMessageAt time.Time `gorm:"index" json:"lastMessageAt"`

	Participants []User    `gorm:"many2many:chat_participants" json:"participants"`
	Messages     []Message `gorm:"foreignKey:ChatID" json:"messages"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// BeforeCreate generates a UUID for the chat if the ID is not set yet.
func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.LastMessageAt.IsZero() {
		c.LastMessageAt = time.Now()
	}
	return
}

// IsGroupChat reports whether a chat created with the given participants and
// name should be a group conversation: three or more members or an explicit
// name make it one.
func IsGroupChat(participantIDs []string, name string) bool {
	return len(participantIDs) > 2 || name != ""
}
