// Package chatstate keeps the client's reconciled view of its conversations:
// one list ordered by most recent activity, the currently open conversation's
// thread, and the ephemeral typing sets. Bulk fetches, realtime events and
// fallback-path responses all funnel through the same reducer, so a message
// can never appear twice and the list order never corrupts regardless of
// which path delivered what.
package chatstate

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gigboard/backend/internal/models"
)

// DefaultTypingTTL is how long a typing indicator survives without a refresh.
const DefaultTypingTTL = 3 * time.Second

// State is the client's in-memory chat model. Safe for concurrent use: the
// socket read loop applies events while the application reads snapshots.
type State struct {
	mu sync.Mutex

	selfID        string
	chats         []*models.Chat
	currentChatID string

	// seen indexes message ids per chat for O(1) dedupe between a
	// fallback-path local insert and a delayed realtime echo.
	seen map[string]map[string]struct{}

	// typing maps chat id to the display names currently composing, each
	// with the timer that will expire it.
	typing    map[string]map[string]*time.Timer
	typingTTL time.Duration

	// onMarkRead is invoked (outside the lock) when a new message lands in
	// the open conversation: viewing a message means reading it.
	onMarkRead func(chatID string)
}

// New creates a State for the given user.
func New(selfID string) *State {
	return &State{
		selfID:    selfID,
		seen:      make(map[string]map[string]struct{}),
		typing:    make(map[string]map[string]*time.Timer),
		typingTTL: DefaultTypingTTL,
	}
}

// SetTypingTTL overrides the typing expiry, mainly for tests.
func (s *State) SetTypingTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typingTTL = ttl
}

// OnMarkRead registers the callback that issues a mark_read intent whenever
// a message arrives in the open conversation.
func (s *State) OnMarkRead(fn func(chatID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMarkRead = fn
}

// LoadChats replaces the conversation list with a bulk fetch result.
func (s *State) LoadChats(chats []models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = s.chats[:0]
	s.seen = make(map[string]map[string]struct{})
	for i := range chats {
		chat := chats[i]
		s.chats = append(s.chats, &chat)
		for _, msg := range chat.Messages {
			s.remember(chat.ID, msg.ID)
		}
	}
	s.sortChatsLocked()
}

// OpenChat makes the given conversation the current one, replacing any cached
// copy with the freshly fetched version.
func (s *State) OpenChat(chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentChatID = chat.ID
	delete(s.seen, chat.ID)
	for _, msg := range chat.Messages {
		s.remember(chat.ID, msg.ID)
	}

	replaced := false
	for i, cached := range s.chats {
		if cached.ID == chat.ID {
			s.chats[i] = &chat
			replaced = true
			break
		}
	}
	if !replaced {
		s.chats = append(s.chats, &chat)
	}
	s.sortChatsLocked()
}

// CloseChat clears the current conversation.
func (s *State) CloseChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentChatID = ""
}

// ApplyEvent reconciles one realtime event into the state.
func (s *State) ApplyEvent(event models.Event) error {
	switch event.Type {
	case models.EventNewMessage:
		var msg models.Message
		if err := json.Unmarshal(event.Payload, &msg); err != nil {
			return fmt.Errorf("decoding new_message: %w", err)
		}
		s.InsertMessage(msg)
		return nil

	case models.EventUserTyping:
		var notice models.TypingNotice
		if err := json.Unmarshal(event.Payload, &notice); err != nil {
			return fmt.Errorf("decoding user_typing: %w", err)
		}
		s.applyTyping(notice)
		return nil

	case models.EventMessagesRead:
		var notice models.ReadNotice
		if err := json.Unmarshal(event.Payload, &notice); err != nil {
			return fmt.Errorf("decoding messages_read: %w", err)
		}
		s.applyRead(notice)
		return nil

	case models.EventStatusChange:
		var status models.StatusChange
		if err := json.Unmarshal(event.Payload, &status); err != nil {
			return fmt.Errorf("decoding user_status_change: %w", err)
		}
		s.applyStatus(status)
		return nil

	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}

// InsertMessage merges one message into the state, whether it arrived as a
// realtime event or as the fallback path's direct response. The same message
// id is only ever inserted once.
func (s *State) InsertMessage(msg models.Message) {
	s.mu.Lock()

	chat := s.findLocked(msg.ChatID)
	if chat == nil || s.isDuplicateLocked(msg.ChatID, msg.ID) {
		s.mu.Unlock()
		return
	}

	s.remember(msg.ChatID, msg.ID)
	chat.Messages = append([]models.Message{msg}, chat.Messages...)
	if msg.CreatedAt.After(chat.LastMessageAt) {
		chat.LastMessageAt = msg.CreatedAt
	}
	s.sortChatsLocked()

	// A message landing in the open conversation is read on sight.
	markRead := s.onMarkRead
	owed := msg.ChatID == s.currentChatID && markRead != nil
	s.mu.Unlock()

	if owed {
		markRead(msg.ChatID)
	}
}

// applyTyping adds the author to the conversation's typing set and arms (or
// re-arms) the expiry timer. The author's own client ignores its echoes.
func (s *State) applyTyping(notice models.TypingNotice) {
	if notice.UserID == s.selfID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.typing[notice.ChatID] == nil {
		s.typing[notice.ChatID] = make(map[string]*time.Timer)
	}
	if timer, ok := s.typing[notice.ChatID][notice.UserName]; ok {
		timer.Stop()
	}

	chatID, name := notice.ChatID, notice.UserName
	s.typing[chatID][name] = time.AfterFunc(s.typingTTL, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.typing[chatID], name)
	})
}

// applyRead flips the read flag on the open conversation's messages authored
// by anyone other than the reporting reader.
func (s *State) applyRead(notice models.ReadNotice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if notice.ChatID != s.currentChatID {
		return
	}
	chat := s.findLocked(notice.ChatID)
	if chat == nil {
		return
	}
	for i := range chat.Messages {
		if chat.Messages[i].UserID != notice.UserID && !chat.Messages[i].Read {
			chat.Messages[i].Read = true
		}
	}
}

// applyStatus updates the matching participant's presence in every cached
// conversation, independent of room membership.
func (s *State) applyStatus(status models.StatusChange) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chat := range s.chats {
		for i := range chat.Participants {
			if chat.Participants[i].ID == status.UserID {
				chat.Participants[i].IsOnline = status.IsOnline
				chat.Participants[i].LastSeen = status.LastSeen
			}
		}
	}
}

// Chat returns a snapshot of one cached conversation.
func (s *State) Chat(chatID string) (models.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findLocked(chatID)
	if chat == nil {
		return models.Chat{}, false
	}
	return snapshot(chat), true
}

// CurrentChat returns a snapshot of the open conversation.
func (s *State) CurrentChat() (models.Chat, bool) {
	s.mu.Lock()
	currentID := s.currentChatID
	s.mu.Unlock()
	if currentID == "" {
		return models.Chat{}, false
	}
	return s.Chat(currentID)
}

// ChatIDs returns the conversation ids in display order (most recent first).
func (s *State) ChatIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.chats))
	for i, chat := range s.chats {
		ids[i] = chat.ID
	}
	return ids
}

// TypingUsers returns the display names currently typing in a conversation.
func (s *State) TypingUsers(chatID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.typing[chatID]))
	for name := range s.typing[chatID] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *State) findLocked(chatID string) *models.Chat {
	for _, chat := range s.chats {
		if chat.ID == chatID {
			return chat
		}
	}
	return nil
}

func (s *State) isDuplicateLocked(chatID, messageID string) bool {
	_, ok := s.seen[chatID][messageID]
	return ok
}

func (s *State) remember(chatID, messageID string) {
	if s.seen[chatID] == nil {
		s.seen[chatID] = make(map[string]struct{})
	}
	s.seen[chatID][messageID] = struct{}{}
}

func (s *State) sortChatsLocked() {
	sort.SliceStable(s.chats, func(i, j int) bool {
		return s.chats[i].LastMessageAt.After(s.chats[j].LastMessageAt)
	})
}

func snapshot(chat *models.Chat) models.Chat {
	copied := *chat
	copied.Messages = append([]models.Message(nil), chat.Messages...)
	copied.Participants = append([]models.User(nil), chat.Participants...)
	return copied
}
