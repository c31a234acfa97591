package chathub

import (
	"encoding/json"
	"log"

	"gigboard/backend/internal/models"
)

// startPubSubListener subscribes to the shared Redis channel and feeds events
// produced by other server instances into the hub loop for local fan-out.
func (h *Hub) startPubSubListener() {
	pubsub := h.storage.Subscribe()
	if pubsub == nil {
		return
	}

	go func() {
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var event models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("ERROR: Unmarshalling pub/sub event: %v", err)
				continue
			}
			h.ReceiveRemote(event)
		}
	}()
}
