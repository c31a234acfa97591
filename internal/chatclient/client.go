// Package chatclient is the Go client for the realtime chat channel. It
// mirrors the front-end's behavior: intents go over the websocket when it is
// up, sends fall back to the HTTP endpoint when it is not (or when no echo
// arrives in time), and every inbound event is reconciled through the
// chatstate reducer.
package chatclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"gigboard/backend/internal/chatstate"
	"gigboard/backend/internal/models"

	"github.com/gorilla/websocket"
)

// DefaultAckTimeout bounds how long a realtime send waits for its echo
// before the client retries over HTTP.
const DefaultAckTimeout = 10 * time.Second

var (
	errNotConnected = errors.New("realtime channel is not connected")
	errEmptyContent = errors.New("message content is empty")
)

// pendingSend is one in-flight realtime send awaiting its echo. The read loop
// resolves it when a self-authored message with the same conversation and
// content comes back.
type pendingSend struct {
	chatID  string
	content string
	ack     chan models.Message
}

// Client talks to one chat server on behalf of one user.
type Client struct {
	baseURL string
	wsURL   string
	token   string
	selfID  string

	httpClient *http.Client
	ackTimeout time.Duration

	State *chatstate.State

	mu     sync.Mutex
	conn   *websocket.Conn
	joined map[string]struct{}
	// pending holds in-flight realtime sends, oldest first. Each send is
	// acked only by an echo matching its conversation and content, so a
	// self-authored message from another device never satisfies it.
	pending []*pendingSend

	done chan struct{}
}

// New creates a client. baseURL is the HTTP root (e.g. http://host:8080),
// wsURL the websocket endpoint (e.g. ws://host:8080/ws).
func New(baseURL, wsURL, token, selfID string) *Client {
	return &Client{
		baseURL:    baseURL,
		wsURL:      wsURL,
		token:      token,
		selfID:     selfID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		ackTimeout: DefaultAckTimeout,
		State:      chatstate.New(selfID),
		joined:     make(map[string]struct{}),
	}
}

// SetAckTimeout overrides the echo wait, mainly for tests.
func (c *Client) SetAckTimeout(d time.Duration) {
	c.ackTimeout = d
}

// Connect dials the realtime channel and starts the event loop. Conversations
// joined before a disconnect are re-joined, and the open conversation is
// re-fetched so nothing missed while offline stays missing.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.wsURL+"?token="+c.token, nil)
	if err != nil {
		return fmt.Errorf("dialing realtime channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	done := make(chan struct{})
	c.done = done
	rejoin := make([]string, 0, len(c.joined))
	for chatID := range c.joined {
		rejoin = append(rejoin, chatID)
	}
	c.mu.Unlock()

	c.State.OnMarkRead(func(chatID string) {
		if err := c.MarkRead(chatID); err != nil {
			log.Printf("mark_read for chat %s failed: %v", chatID, err)
		}
	})

	go c.readLoop(conn, done)

	for _, chatID := range rejoin {
		if err := c.sendIntent(models.Intent{Type: models.IntentJoinChat, ChatID: chatID}); err != nil {
			return err
		}
	}
	if current, ok := c.State.CurrentChat(); ok {
		chat, err := c.GetChat(current.ID)
		if err != nil {
			return err
		}
		c.State.OpenChat(*chat)
	}
	return nil
}

// Close tears down the realtime channel. HTTP methods keep working.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Connected reports whether the realtime channel is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		close(done)
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event models.Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("Error decoding event: %v", err)
			continue
		}

		if event.Type == models.EventNewMessage {
			var msg models.Message
			if err := json.Unmarshal(event.Payload, &msg); err == nil && msg.UserID == c.selfID {
				c.resolvePending(msg)
			}
		}

		if err := c.State.ApplyEvent(event); err != nil {
			log.Printf("Error applying event: %v", err)
		}
	}
}

// JoinChat subscribes this connection to a conversation's events.
func (c *Client) JoinChat(chatID string) error {
	c.mu.Lock()
	c.joined[chatID] = struct{}{}
	c.mu.Unlock()
	return c.sendIntent(models.Intent{Type: models.IntentJoinChat, ChatID: chatID})
}

// Typing signals that this user is composing. Callers are responsible for
// throttling repeats; the server relays every signal as-is.
func (c *Client) Typing(chatID string) error {
	return c.sendIntent(models.Intent{Type: models.IntentTyping, ChatID: chatID})
}

// MarkRead marks the conversation read for this user.
func (c *Client) MarkRead(chatID string) error {
	return c.sendIntent(models.Intent{Type: models.IntentMarkRead, ChatID: chatID})
}

// OpenChat fetches a conversation, makes it current, joins its room and
// marks it read (viewing a thread reads it).
func (c *Client) OpenChat(chatID string) error {
	chat, err := c.GetChat(chatID)
	if err != nil {
		return err
	}
	c.State.OpenChat(*chat)

	if c.Connected() {
		if err := c.JoinChat(chatID); err != nil {
			return err
		}
		return c.MarkRead(chatID)
	}
	return nil
}

// SendMessage delivers one message. Content is trimmed and must be non-empty;
// blank sends are rejected before anything crosses the wire. The realtime
// path is tried first, and the echo matching this send's conversation and
// content acts as the delivery ack. When the channel is down, the send fails,
// or no echo arrives within the ack timeout, the HTTP fallback performs the
// same store append and the returned message is injected locally. Other
// participants learn of a fallback send on their next fetch, since the
// fallback path fans out to nobody.
func (c *Client) SendMessage(chatID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errEmptyContent
	}

	p := &pendingSend{chatID: chatID, content: content, ack: make(chan models.Message, 1)}
	c.mu.Lock()
	c.pending = append(c.pending, p)
	done := c.done
	c.mu.Unlock()
	defer c.removePending(p)

	if err := c.sendIntent(models.Intent{
		Type:    models.IntentSendMessage,
		ChatID:  chatID,
		Content: content,
	}); err != nil {
		return c.sendFallback(chatID, content)
	}

	timer := time.NewTimer(c.ackTimeout)
	defer timer.Stop()

	select {
	case msg := <-p.ack:
		return &msg, nil
	case <-done:
		return c.sendFallback(chatID, content)
	case <-timer.C:
		return c.sendFallback(chatID, content)
	}
}

// resolvePending hands a self-authored message to the oldest pending send
// with the same conversation and content. Echoes with no matching send, such
// as messages from the user's other devices or stale duplicates, are left to
// the reducer alone.
func (c *Client) resolvePending(msg models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.pending {
		if p.chatID == msg.ChatID && p.content == msg.Content {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			p.ack <- msg
			return
		}
	}
}

func (c *Client) removePending(p *pendingSend) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, q := range c.pending {
		if q == p {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			return
		}
	}
}

func (c *Client) sendFallback(chatID, content string) (*models.Message, error) {
	msg, err := c.sendMessageHTTP(chatID, content)
	if err != nil {
		return nil, err
	}
	// No echo will ever arrive for a fallback send, so the client inserts
	// the message itself. Should a stray echo still show up later, the
	// reducer dedupes it by message id.
	c.State.InsertMessage(*msg)
	return msg, nil
}

func (c *Client) sendIntent(intent models.Intent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	return c.conn.WriteJSON(intent)
}
