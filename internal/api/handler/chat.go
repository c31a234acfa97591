package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gigboard/backend/internal/models"
	"gigboard/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type createChatRequest struct {
	ParticipantIDs []string `json:"participantIds" binding:"required"`
	Name           string   `json:"name"`
	IsGroup        bool     `json:"isGroup"`
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type addParticipantRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// GetChats lists the caller's conversations, most recent activity first.
func (h *Handler) GetChats(c *gin.Context) {
	user := currentUser(c)

	chats, err := h.Storage.GetChatsForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chats": chats})
}

// GetChat returns one conversation with its participants and messages.
// Only participants may fetch a conversation.
func (h *Handler) GetChat(c *gin.Context) {
	user := currentUser(c)
	chatID := c.Param("chatId")

	ok, err := h.Storage.IsParticipant(chatID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load chat"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not a participant of this chat"})
		return
	}

	chat, err := h.Storage.GetChatByID(chatID)
	if err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "chat": chat})
}

// CreateChat creates a conversation with the given participants. The caller
// is always included. Duplicate 1:1 conversations are not rejected here; the
// front-end reuses an existing chat id when it has one.
func (h *Handler) CreateChat(c *gin.Context) {
	user := currentUser(c)

	var req createChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "participantIds are required"})
		return
	}

	chat, err := h.Storage.CreateChat(user.ID, req.ParticipantIDs, req.Name, req.IsGroup)
	if err != nil {
		if errors.Is(err, storage.ErrNoParticipants) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create chat"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "chat": chat})
}

// GetChatMessages returns one page of a conversation's history, newest
// first. Reconnecting clients page through this to recover anything missed
// while disconnected. `limit` caps the page size (default 50); `before`
// (RFC 3339) fetches older pages.
func (h *Handler) GetChatMessages(c *gin.Context) {
	user := currentUser(c)
	chatID := c.Param("chatId")

	ok, err := h.Storage.IsParticipant(chatID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load messages"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not a participant of this chat"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	var before time.Time
	if raw := c.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "before must be an RFC 3339 timestamp"})
			return
		}
		before = parsed
	}

	messages, err := h.Storage.GetChatMessages(chatID, limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// SendMessage is the delivery fallback path: it performs the same validation
// and store append as the realtime send, then returns the created message to
// the caller. It deliberately fans out to nobody. Only the realtime path
// notifies other participants, so they learn of this message on their next
// fetch or reconnect.
func (h *Handler) SendMessage(c *gin.Context) {
	user := currentUser(c)
	chatID := c.Param("chatId")

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "content is required"})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "content is required"})
		return
	}

	ok, err := h.Storage.IsParticipant(chatID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send message"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not a participant of this chat"})
		return
	}

	msg := &models.Message{
		ChatID:  chatID,
		UserID:  user.ID,
		Content: content,
	}
	if err := h.Storage.SaveMessage(msg); err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to send message"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "chatMessage": msg})
}

// AddParticipant adds a user to the conversation. Only current participants
// may invite.
func (h *Handler) AddParticipant(c *gin.Context) {
	user := currentUser(c)
	chatID := c.Param("chatId")

	var req addParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "userId is required"})
		return
	}

	ok, err := h.Storage.IsParticipant(chatID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add participant"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not a participant of this chat"})
		return
	}

	if err := h.Storage.AddParticipant(chatID, req.UserID); err != nil {
		if errors.Is(err, storage.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to add participant"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LeaveChat removes the caller from the conversation's participant set.
func (h *Handler) LeaveChat(c *gin.Context) {
	user := currentUser(c)
	chatID := c.Param("chatId")

	ok, err := h.Storage.IsParticipant(chatID, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to leave chat"})
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "You are not a participant of this chat"})
		return
	}

	if err := h.Storage.RemoveParticipant(chatID, user.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to leave chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
