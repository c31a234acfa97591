package models

import (
	"encoding/json"
	"time"
)

// Intent types accepted from clients over the realtime channel.
const (
	IntentJoinChat    = "join_chat"
	IntentSendMessage = "send_message"
	IntentTyping      = "typing"
	IntentMarkRead    = "mark_read"
)

// Event types emitted to clients over the realtime channel.
const (
	EventNewMessage   = "new_message"
	EventUserTyping   = "user_typing"
	EventMessagesRead = "messages_read"
	EventStatusChange = "user_status_change"
)

// Intent is the client→server envelope. Every intent names a conversation;
// only send_message carries content.
type Intent struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId"`
	Content string `json:"content,omitempty"`
}

// Event is the server→client envelope. Payload holds the variant-specific
// body (Message, TypingNotice, ReadNotice or StatusChange) pre-encoded so the
// same envelope crosses both the websocket and the redis pub/sub channel.
type Event struct {
	Type string `json:"type"`
	// ChatID scopes room fan-out. It is empty for presence events, which go
	// to every connection regardless of room membership.
	ChatID  string          `json:"chatId,omitempty"`
	Payload json.RawMessage `json:"payload"`
	// Origin identifies the server instance that produced the event, so the
	// pub/sub listener can skip events it already fanned out locally.
	Origin string `json:"origin,omitempty"`
	// Exclude names a user whose own connections must not receive the event
	// (typing notices and read receipts go to the other participants only).
	// Both Origin and Exclude are hub-internal and stripped before an event
	// reaches a client connection.
	Exclude string `json:"exclude,omitempty"`
}

// TypingNotice tells other participants that a user is composing a message.
// It is never persisted; clients expire it 3 seconds after the last refresh.
type TypingNotice struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// ReadNotice reports that a participant marked a conversation read.
type ReadNotice struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// StatusChange reports a presence transition for a user.
type StatusChange struct {
	UserID   string    `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// NewEvent wraps payload in an Event envelope.
func NewEvent(eventType, chatID string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, ChatID: chatID, Payload: raw}, nil
}
