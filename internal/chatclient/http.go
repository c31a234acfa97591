package chatclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gigboard/backend/internal/models"
)

// Envelopes mirror the server's response shapes.
type chatsResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Chats   []models.Chat `json:"chats"`
}

type chatResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Chat    models.Chat `json:"chat"`
}

type messageResponse struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	ChatMessage models.Message `json:"chatMessage"`
}

// RefreshChats fetches the caller's conversations and loads them into the
// reconciled state.
func (c *Client) RefreshChats() ([]models.Chat, error) {
	var resp chatsResponse
	if err := c.doJSON(http.MethodGet, "/chats", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("listing chats: %s", resp.Message)
	}
	c.State.LoadChats(resp.Chats)
	return resp.Chats, nil
}

// GetChat fetches one conversation with participants and messages.
func (c *Client) GetChat(chatID string) (*models.Chat, error) {
	var resp chatResponse
	if err := c.doJSON(http.MethodGet, "/chats/"+chatID, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("fetching chat %s: %s", chatID, resp.Message)
	}
	return &resp.Chat, nil
}

// CreateChat creates a conversation and caches it locally.
func (c *Client) CreateChat(participantIDs []string, name string) (*models.Chat, error) {
	body := map[string]any{
		"participantIds": participantIDs,
		"name":           name,
		"isGroup":        models.IsGroupChat(participantIDs, name),
	}
	var resp chatResponse
	if err := c.doJSON(http.MethodPost, "/chats", body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("creating chat: %s", resp.Message)
	}
	c.State.OpenChat(resp.Chat)
	return &resp.Chat, nil
}

// AddParticipant invites a user into a conversation.
func (c *Client) AddParticipant(chatID, userID string) error {
	var resp chatResponse
	if err := c.doJSON(http.MethodPost, "/chats/"+chatID+"/participants", map[string]any{"userId": userID}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("adding participant: %s", resp.Message)
	}
	return nil
}

// LeaveChat removes this user from a conversation.
func (c *Client) LeaveChat(chatID string) error {
	var resp chatResponse
	if err := c.doJSON(http.MethodDelete, "/chats/"+chatID+"/leave", nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("leaving chat: %s", resp.Message)
	}
	return nil
}

// sendMessageHTTP is the delivery fallback: same validation and store append
// as the realtime path, no fan-out.
func (c *Client) sendMessageHTTP(chatID, content string) (*models.Message, error) {
	var resp messageResponse
	if err := c.doJSON(http.MethodPost, "/chats/"+chatID+"/messages", map[string]any{"content": content}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("sending message: %s", resp.Message)
	}
	return &resp.ChatMessage, nil
}

func (c *Client) doJSON(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return json.NewDecoder(resp.Body).Decode(out)
}
