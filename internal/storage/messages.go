package storage

import (
	"log"
	"time"

	"gigboard/backend/internal/models"

	"gorm.io/gorm"
)

// SaveMessage appends a message to its conversation and advances the chat's
// last_message_at in the same transaction. CreatedAt is assigned by the store
// on insert; the GREATEST guard keeps last_message_at monotonic when two
// senders race on the same conversation.
func (s *Service) SaveMessage(msg *models.Message) error {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Chat{}).
			Where("id = ?", msg.ChatID).
			Update("last_message_at", gorm.Expr("GREATEST(last_message_at, ?)", msg.CreatedAt))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrChatNotFound
		}
		return nil
	})
	if err != nil {
		log.Printf("ERROR: Failed to save message for chat %s: %v", msg.ChatID, err)
		return err
	}

	// Reload with the author preloaded so the broadcast payload carries the
	// sender's name and avatar.
	return s.DB.Preload("User").First(msg, "id = ?", msg.ID).Error
}

// GetChatMessages returns a page of a conversation's messages, newest first.
// A zero `before` means "from the top"; otherwise only messages older than
// the given timestamp are returned.
func (s *Service) GetChatMessages(chatID string, limit int, before time.Time) ([]models.Message, error) {
	q := s.DB.Preload("User").
		Where("chat_id = ?", chatID).
		Order("created_at DESC")
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var messages []models.Message
	if err := q.Find(&messages).Error; err != nil {
		log.Printf("ERROR: Failed to get messages for chat %s: %v", chatID, err)
		return nil, err
	}
	return messages, nil
}

// MarkMessagesRead flips the read flag on every message in the chat authored
// by someone other than the reader. Re-marking an already-read conversation
// affects zero rows and is not an error.
func (s *Service) MarkMessagesRead(chatID, readerID string) error {
	return s.DB.Model(&models.Message{}).
		Where("chat_id = ? AND user_id <> ? AND read = ?", chatID, readerID, false).
		Update("read", true).Error
}
