package chatclient_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gigboard/backend/internal/chatclient"
	"gigboard/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_FallsBackToHTTPWhenDisconnected(t *testing.T) {
	var fallbackHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chats/chat_1/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		fallbackHits++

		var body struct {
			Content string `json:"content"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"chatMessage": models.Message{
				ID:        "msg_1",
				ChatID:    "chat_1",
				UserID:    "user_A",
				Content:   body.Content,
				CreatedAt: time.Now(),
			},
		})
	}))
	defer srv.Close()

	client := chatclient.New(srv.URL, "ws://never-dialed", "test-token", "user_A")
	client.State.LoadChats([]models.Chat{{ID: "chat_1", LastMessageAt: time.Now()}})

	// The realtime channel was never connected, so the send goes straight
	// to the fallback endpoint and the response is injected locally.
	msg, err := client.SendMessage("chat_1", "hi there")
	require.NoError(t, err)
	assert.Equal(t, "msg_1", msg.ID)
	assert.Equal(t, 1, fallbackHits)

	chat, ok := client.State.Chat("chat_1")
	require.True(t, ok)
	require.Len(t, chat.Messages, 1)

	// A stray realtime echo for the same message must not double-insert.
	event, err := models.NewEvent(models.EventNewMessage, "chat_1", *msg)
	require.NoError(t, err)
	require.NoError(t, client.State.ApplyEvent(event))

	chat, _ = client.State.Chat("chat_1")
	assert.Len(t, chat.Messages, 1)
}

// echoServer upgrades the websocket handshake and echoes every send_message
// intent back as a new_message event, the way the hub acks a sender.
func echoServer(t *testing.T, selfID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "" {
			http.Error(w, "no token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var intent models.Intent
			if err := conn.ReadJSON(&intent); err != nil {
				return
			}
			if intent.Type != models.IntentSendMessage {
				continue
			}
			event, err := models.NewEvent(models.EventNewMessage, intent.ChatID, models.Message{
				ID:        "msg_echo",
				ChatID:    intent.ChatID,
				UserID:    selfID,
				Content:   intent.Content,
				CreatedAt: time.Now(),
			})
			if err != nil {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}))
}

func TestSendMessage_RealtimeEchoActsAsAck(t *testing.T) {
	srv := echoServer(t, "user_A")
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	// The HTTP base is unroutable on purpose: if the client ever tried the
	// fallback, the test would fail with a transport error.
	client := chatclient.New("http://127.0.0.1:0", wsURL, "test-token", "user_A")
	client.State.LoadChats([]models.Chat{{ID: "chat_1", LastMessageAt: time.Now()}})
	require.NoError(t, client.Connect())
	defer client.Close()

	msg, err := client.SendMessage("chat_1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "msg_echo", msg.ID)
	assert.Equal(t, "hello", msg.Content)

	// The echo also flowed through the reducer.
	time.Sleep(100 * time.Millisecond)
	chat, ok := client.State.Chat("chat_1")
	require.True(t, ok)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "msg_echo", chat.Messages[0].ID)
}

func TestSendMessage_IgnoresUnrelatedSelfEchoes(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// A message this user sent from another device lands first.
		stray, err := models.NewEvent(models.EventNewMessage, "chat_1", models.Message{
			ID:        "msg_other_device",
			ChatID:    "chat_1",
			UserID:    "user_A",
			Content:   "sent elsewhere",
			CreatedAt: time.Now(),
		})
		if err != nil || conn.WriteJSON(stray) != nil {
			return
		}

		for {
			var intent models.Intent
			if err := conn.ReadJSON(&intent); err != nil {
				return
			}
			if intent.Type != models.IntentSendMessage {
				continue
			}
			event, err := models.NewEvent(models.EventNewMessage, intent.ChatID, models.Message{
				ID:        "msg_real_ack",
				ChatID:    intent.ChatID,
				UserID:    "user_A",
				Content:   intent.Content,
				CreatedAt: time.Now(),
			})
			if err != nil || conn.WriteJSON(event) != nil {
				return
			}
		}
	}))
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	client := chatclient.New("http://127.0.0.1:0", wsURL, "test-token", "user_A")
	client.State.LoadChats([]models.Chat{{ID: "chat_1", LastMessageAt: time.Now()}})
	require.NoError(t, client.Connect())
	defer client.Close()

	// Let the other device's message arrive before the send goes out. It must
	// reach the reducer but never satisfy the upcoming send's ack.
	time.Sleep(100 * time.Millisecond)

	msg, err := client.SendMessage("chat_1", "mine")
	require.NoError(t, err)
	assert.Equal(t, "msg_real_ack", msg.ID)
	assert.Equal(t, "mine", msg.Content)

	time.Sleep(100 * time.Millisecond)
	chat, ok := client.State.Chat("chat_1")
	require.True(t, ok)
	assert.Len(t, chat.Messages, 2, "both the other device's message and the ack are reconciled")
}

func TestSendMessage_RejectsBlankContentLocally(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	client := chatclient.New(srv.URL, "ws://never-dialed", "test-token", "user_A")

	_, err := client.SendMessage("chat_1", "   ")
	assert.Error(t, err)
	assert.Zero(t, hits, "blank content never crosses the wire")
}
