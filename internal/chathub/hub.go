package chathub

import (
	"log"
	"time"

	"gigboard/backend/internal/models"
	"gigboard/backend/internal/storage"

	"github.com/google/uuid"
)

// joinRequest asks the hub to admit an already-validated connection to a
// conversation's room.
type joinRequest struct {
	client Client
	chatID string
}

// outbound carries an event through the hub loop to its audience. An empty
// ChatID on the event means "every connection" (presence changes); otherwise
// fan-out is limited to the conversation's room. excludeUserID suppresses
// delivery to the acting user's own connections (typing, read receipts).
type outbound struct {
	event         models.Event
	excludeUserID string
}

// Hub owns all shared realtime state: the connection set, the room
// membership registry and the presence tracker. All mutations go through the
// single Run goroutine, so concurrent connects, disconnects and joins for
// the same user never race.
type Hub struct {
	// Clients maps connection id to client. Read by tests after the hub
	// loop has settled; mutated only inside Run.
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	joinCh      chan joinRequest
	broadcastCh chan outbound
	remoteCh    chan models.Event

	// rooms maps chat id to the set of joined connections.
	rooms map[string]map[string]Client
	// clientRooms maps connection id to the chats it joined, for teardown.
	clientRooms map[string]map[string]struct{}
	// presence maps user id to the number of live connections on this
	// instance. The authoritative cross-instance count lives in redis and
	// drives the online/offline announcements; the local count is the
	// fallback when redis is unreachable.
	presence map[string]int

	storage    storage.Storage
	instanceID string
}

// NewHub creates a hub bound to the given storage gateway.
func NewHub(s storage.Storage) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		joinCh:       make(chan joinRequest),
		broadcastCh:  make(chan outbound, 64),
		remoteCh:     make(chan models.Event, 64),
		rooms:        make(map[string]map[string]Client),
		clientRooms:  make(map[string]map[string]struct{}),
		presence:     make(map[string]int),
		storage:      s,
		instanceID:   uuid.New().String(),
	}
}

// Run is the hub's main dispatch loop. It must run in its own goroutine.
func (h *Hub) Run() {
	h.startPubSubListener()

	for {
		select {
		case client := <-h.RegisterCh:
			h.register(client)

		case client := <-h.UnregisterCh:
			h.unregister(client)

		case req := <-h.joinCh:
			h.join(req.client, req.chatID)

		case out := <-h.broadcastCh:
			h.fanOut(out)

		case event := <-h.remoteCh:
			// Event produced by another instance; deliver locally only.
			h.fanOut(outbound{event: event, excludeUserID: event.Exclude})
		}
	}
}

// register adds the connection and, when it is the user's first live
// connection on any instance, flips the user online and announces the change.
func (h *Hub) register(client Client) {
	h.Clients[client.GetConnID()] = client
	h.clientRooms[client.GetConnID()] = make(map[string]struct{})

	userID := client.GetUserID()
	h.presence[userID]++
	global, err := h.storage.IncrementPresence(userID)
	if err != nil {
		log.Printf("ERROR: Failed to count presence for user %s, using local count: %v", userID, err)
		global = int64(h.presence[userID])
	}
	if global == 1 {
		h.setPresence(userID, true)
	}
	log.Printf("Client registered: conn=%s user=%s", client.GetConnID(), userID)
}

// unregister removes the connection from every joined room and, when the
// user's last live connection across all instances closes, flips the user
// offline with last-seen stamped now. The offline broadcast only happens when
// the global count hits zero, so neither a second local device nor a
// connection on another instance is ever announced away early.
func (h *Hub) unregister(client Client) {
	connID := client.GetConnID()
	if _, ok := h.Clients[connID]; !ok {
		return
	}
	delete(h.Clients, connID)

	for chatID := range h.clientRooms[connID] {
		delete(h.rooms[chatID], connID)
		if len(h.rooms[chatID]) == 0 {
			delete(h.rooms, chatID)
		}
	}
	delete(h.clientRooms, connID)

	userID := client.GetUserID()
	if h.presence[userID] > 0 {
		h.presence[userID]--
		if h.presence[userID] == 0 {
			delete(h.presence, userID)
		}
		global, err := h.storage.DecrementPresence(userID)
		if err != nil {
			log.Printf("ERROR: Failed to count presence for user %s, using local count: %v", userID, err)
			global = int64(h.presence[userID])
		}
		if global == 0 {
			h.setPresence(userID, false)
		}
	}

	client.Close()
	log.Printf("Client unregistered: conn=%s user=%s", connID, userID)
}

// join admits the connection to a room. Joining twice is a no-op.
func (h *Hub) join(client Client, chatID string) {
	connID := client.GetConnID()
	if _, ok := h.Clients[connID]; !ok {
		return
	}
	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[string]Client)
	}
	h.rooms[chatID][connID] = client
	h.clientRooms[connID][chatID] = struct{}{}
}

// fanOut delivers an event to its audience. A slow client whose send buffer
// is full is skipped rather than allowed to stall the hub loop.
func (h *Hub) fanOut(out outbound) {
	event := out.event
	event.Origin = ""
	event.Exclude = ""

	var audience map[string]Client
	if event.ChatID == "" {
		audience = h.Clients
	} else {
		audience = h.rooms[event.ChatID]
	}

	for _, client := range audience {
		if out.excludeUserID != "" && client.GetUserID() == out.excludeUserID {
			continue
		}
		select {
		case client.GetSendChannel() <- event:
		default:
			log.Printf("WARNING: Dropping event for slow client %s", client.GetConnID())
		}
	}
}

// setPresence persists the transition, notifies every local connection and
// publishes the change for other instances.
func (h *Hub) setPresence(userID string, online bool) {
	now := time.Now()
	if err := h.storage.SetUserPresence(userID, online, now); err != nil {
		log.Printf("ERROR: Failed to persist presence for user %s: %v", userID, err)
	}

	event, err := models.NewEvent(models.EventStatusChange, "", models.StatusChange{
		UserID:   userID,
		IsOnline: online,
		LastSeen: now,
	})
	if err != nil {
		return
	}
	h.fanOut(outbound{event: event})
	h.publish(event, "")
}

// ReceiveRemote hands an event published by another instance to the hub loop
// for local fan-out. Events this instance published itself already reached
// their local audience and are skipped.
func (h *Hub) ReceiveRemote(event models.Event) {
	if event.Origin == h.instanceID {
		return
	}
	h.remoteCh <- event
}

// publish relays an event to Redis for hubs on other instances.
func (h *Hub) publish(event models.Event, exclude string) {
	event.Origin = h.instanceID
	event.Exclude = exclude
	if err := h.storage.PublishEvent(event); err != nil {
		log.Printf("ERROR: Failed to publish event %s: %v", event.Type, err)
	}
}
