package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is one entry in a conversation's thread. A message is immutable
// once created except for the Read flag, which flips to true when another
// participant marks the conversation read. CreatedAt is assigned server-side
// by the store on append.
type Message struct {
	ID      string `gorm:"primaryKey" json:"id"`
	ChatID  string `gorm:"type:uuid;not null;index:idx_chat_msg" json:"chatId"`
	UserID  string `gorm:"not null;index:idx_chat_msg" json:"userId"`
	Content string `gorm:"type:text;not null" json:"content"`
	Read    bool   `gorm:"default:false" json:"read"`

	User User `gorm:"foreignKey:UserID" json:"user"`

	CreatedAt time.Time `json:"createdAt"`
}

// BeforeCreate generates a UUID for the message if the ID is not set yet.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
