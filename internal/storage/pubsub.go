package storage

import (
	"encoding/json"

	"gigboard/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// eventsChannel is the redis pub/sub channel shared by all server instances.
const eventsChannel = "chat:events"

// PublishEvent publishes a realtime event to Redis so hubs on other
// instances can fan it out to their own connections.
func (s *Service) PublishEvent(event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, eventsChannel, payload).Err()
}

// Subscribe opens the cross-instance event subscription.
func (s *Service) Subscribe() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, eventsChannel)
}
