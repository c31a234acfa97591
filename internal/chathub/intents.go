package chathub

import (
	"log"
	"strings"

	"gigboard/backend/internal/models"
)

// HandleIntent processes one client intent. It runs on the connection's read
// goroutine, so a single connection's intents are handled serially in arrival
// order while different connections proceed concurrently. Failures on this
// path are silent by design: no error event crosses the wire, and the client
// detects a lost send by the missing echo and retries over HTTP.
func (h *Hub) HandleIntent(client Client, intent models.Intent) {
	if intent.ChatID == "" {
		return
	}

	switch intent.Type {
	case models.IntentJoinChat:
		h.handleJoin(client, intent.ChatID)
	case models.IntentSendMessage:
		h.handleSend(client, intent.ChatID, intent.Content)
	case models.IntentTyping:
		h.handleTyping(client, intent.ChatID)
	case models.IntentMarkRead:
		h.handleMarkRead(client, intent.ChatID)
	default:
		log.Printf("Unknown intent %q from conn %s", intent.Type, client.GetConnID())
	}
}

// handleJoin admits the connection to the conversation's room after checking
// that the chat exists and the caller belongs to it. Non-participants are
// dropped without any event.
func (h *Hub) handleJoin(client Client, chatID string) {
	if !h.isParticipant(chatID, client.GetUserID()) {
		return
	}
	h.joinCh <- joinRequest{client: client, chatID: chatID}
}

// handleSend validates, persists and only then fans out. The store append is
// awaited to completion so a broadcast can never precede durable persistence;
// if the append fails nothing is emitted and the client falls back to HTTP.
func (h *Hub) handleSend(client Client, chatID, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if !h.isParticipant(chatID, client.GetUserID()) {
		return
	}

	msg := &models.Message{
		ChatID:  chatID,
		UserID:  client.GetUserID(),
		Content: content,
	}
	if err := h.storage.SaveMessage(msg); err != nil {
		log.Printf("ERROR: Dropping send from conn %s: %v", client.GetConnID(), err)
		return
	}

	event, err := models.NewEvent(models.EventNewMessage, chatID, msg)
	if err != nil {
		return
	}
	// Every joined connection receives the message, the sender's own
	// connections included: the echo doubles as the delivery ack.
	h.broadcastCh <- outbound{event: event}
	h.publish(event, "")
}

// handleTyping relays a typing notice to the other joined connections. The
// server applies no debounce and never expires the signal; both are client
// concerns.
func (h *Hub) handleTyping(client Client, chatID string) {
	if !h.isParticipant(chatID, client.GetUserID()) {
		return
	}

	event, err := models.NewEvent(models.EventUserTyping, chatID, models.TypingNotice{
		ChatID:   chatID,
		UserID:   client.GetUserID(),
		UserName: client.GetUserName(),
	})
	if err != nil {
		return
	}
	h.broadcastCh <- outbound{event: event, excludeUserID: client.GetUserID()}
	h.publish(event, client.GetUserID())
}

// handleMarkRead flips the unread messages authored by others, then notifies
// the other joined connections so senders can render read receipts.
func (h *Hub) handleMarkRead(client Client, chatID string) {
	if !h.isParticipant(chatID, client.GetUserID()) {
		return
	}
	if err := h.storage.MarkMessagesRead(chatID, client.GetUserID()); err != nil {
		log.Printf("ERROR: Failed to mark chat %s read: %v", chatID, err)
		return
	}

	event, err := models.NewEvent(models.EventMessagesRead, chatID, models.ReadNotice{
		ChatID: chatID,
		UserID: client.GetUserID(),
	})
	if err != nil {
		return
	}
	h.broadcastCh <- outbound{event: event, excludeUserID: client.GetUserID()}
	h.publish(event, client.GetUserID())
}

func (h *Hub) isParticipant(chatID, userID string) bool {
	ok, err := h.storage.IsParticipant(chatID, userID)
	if err != nil {
		log.Printf("ERROR: Participant check failed for chat %s: %v", chatID, err)
		return false
	}
	return ok
}
