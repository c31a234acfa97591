package storage

import (
	"errors"
	"log"
	"time"

	"gigboard/backend/internal/models"

	"gorm.io/gorm"
)

// GetUserByID loads one user from PostgreSQL.
func (s *Service) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	err := s.DB.First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// presenceKeyPrefix namespaces the per-user live connection counters shared
// by all server instances.
const presenceKeyPrefix = "chat:presence:"

// IncrementPresence bumps the user's global connection count in redis and
// returns the new total across all instances.
func (s *Service) IncrementPresence(userID string) (int64, error) {
	return s.Redis.Incr(s.Ctx, presenceKeyPrefix+userID).Result()
}

// DecrementPresence drops the user's global connection count. A count that
// went negative (the key was lost or reset) is clamped back to zero so the
// user does not get stuck offline-but-never-announced.
func (s *Service) DecrementPresence(userID string) (int64, error) {
	count, err := s.Redis.Decr(s.Ctx, presenceKeyPrefix+userID).Result()
	if err != nil {
		return 0, err
	}
	if count < 0 {
		s.Redis.Set(s.Ctx, presenceKeyPrefix+userID, 0, 0)
		count = 0
	}
	return count, nil
}

// SetUserPresence persists the online flag and last-seen timestamp derived
// from the hub's live connection count.
func (s *Service) SetUserPresence(userID string, online bool, lastSeen time.Time) error {
	err := s.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"is_online": online,
			"last_seen": lastSeen,
		}).Error
	if err != nil {
		log.Printf("ERROR: Failed to update presence for user %s: %v", userID, err)
	}
	return err
}
