package storage

import (
	"errors"
	"fmt"
	"log"

	"gigboard/backend/internal/models"

	"gorm.io/gorm"
)

// CreateChat creates a conversation owned by creatorID. The creator is always
// part of the participant set even when the caller omits themselves. Two
// non-group chats between the same pair are allowed; the client reuses the
// existing chat id instead.
func (s *Service) CreateChat(creatorID string, participantIDs []string, name string, isGroup bool) (*models.Chat, error) {
	ids := map[string]struct{}{creatorID: {}}
	for _, id := range participantIDs {
		ids[id] = struct{}{}
	}
	if len(ids) == 0 {
		return nil, ErrNoParticipants
	}

	var participants []models.User
	for id := range ids {
		var user models.User
		if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("participant %s does not exist", id)
			}
			return nil, err
		}
		participants = append(participants, user)
	}

	chat := models.Chat{
		Name:         name,
		IsGroup:      isGroup,
		Participants: participants,
	}
	if err := s.DB.Create(&chat).Error; err != nil {
		log.Printf("ERROR: Failed to create chat for user %s: %v", creatorID, err)
		return nil, err
	}
	return &chat, nil
}

// GetChatsForUser returns the caller's conversations ordered by most recent
// activity, each with its participant list and message thread (newest first).
func (s *Service) GetChatsForUser(userID string) ([]models.Chat, error) {
	var chats []models.Chat
	err := s.DB.
		Joins("JOIN chat_participants cp ON cp.chat_id = chats.id AND cp.user_id = ?", userID).
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at DESC")
		}).
		Preload("Messages.User").
		Order("chats.last_message_at DESC").
		Find(&chats).Error
	if err != nil {
		log.Printf("ERROR: Failed to list chats for user %s: %v", userID, err)
		return nil, err
	}
	return chats, nil
}

// GetChatByID loads one conversation with participants and messages newest-first.
func (s *Service) GetChatByID(chatID string) (*models.Chat, error) {
	var chat models.Chat
	err := s.DB.
		Preload("Participants").
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("messages.created_at DESC")
		}).
		Preload("Messages.User").
		First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		log.Printf("ERROR: Failed to get chat %s: %v", chatID, err)
		return nil, err
	}
	return &chat, nil
}

// IsParticipant reports whether userID belongs to the chat's participant set.
func (s *Service) IsParticipant(chatID, userID string) (bool, error) {
	var count int64
	err := s.DB.Table("chat_participants").
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddParticipant adds userID to the chat's participant set.
func (s *Service) AddParticipant(chatID, userID string) error {
	var chat models.Chat
	if err := s.DB.First(&chat, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("participant %s does not exist", userID)
		}
		return err
	}
	return s.DB.Model(&chat).Association("Participants").Append(&user)
}

// RemoveParticipant removes userID from the chat. When the last participant
// leaves, the chat row and its messages are removed so no conversation ever
// exists with an empty participant set.
func (s *Service) RemoveParticipant(chatID, userID string) error {
	var chat models.Chat
	if err := s.DB.First(&chat, "id = ?", chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return err
	}

	if err := s.DB.Model(&chat).Association("Participants").Delete(&models.User{ID: userID}); err != nil {
		return err
	}

	remaining := s.DB.Model(&chat).Association("Participants").Count()
	if remaining == 0 {
		if err := s.DB.Where("chat_id = ?", chatID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := s.DB.Delete(&chat).Error; err != nil {
			return err
		}
		log.Printf("Chat %s removed after last participant left", chatID)
	}
	return nil
}
