package store

import (
	"context"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/devconnect/realtime/pkg/model"
)

// Memory is an in-process Store used by tests and local demos. The live
// services use the scylla implementation.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]model.UserIdentity
	members  map[string][]string
	messages map[string][]model.Message
	ids      *IDGenerator
}

func NewMemory() *Memory {
	ids, _ := NewIDGenerator(0)
	return &Memory{
		users:    make(map[string]model.UserIdentity),
		members:  make(map[string][]string),
		messages: make(map[string][]model.Message),
		ids:      ids,
	}
}

// AddUser registers a user identity. Not part of Store; test/demo setup only.
func (m *Memory) AddUser(user model.UserIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// AddChannelMember appends a user to a channel's persisted membership list.
func (m *Memory) AddChannelMember(channelID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !lo.Contains(m.members[channelID], userID) {
		m.members[channelID] = append(m.members[channelID], userID)
	}
}

func (m *Memory) FindUserByID(_ context.Context, id string) (model.UserIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return model.UserIdentity{}, ErrUserNotFound
	}
	return user, nil
}

func (m *Memory) FindChannelMembership(_ context.Context, channelID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.members[channelID]...), nil
}

func (m *Memory) InsertMessage(_ context.Context, channelID string, author model.UserIdentity, content string) (model.Message, error) {
	msg := model.Message{
		ID:        m.ids.NextID(),
		ChannelID: channelID,
		UserID:    author.ID,
		Username:  author.Username,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[channelID] = append(m.messages[channelID], msg)
	return msg, nil
}

func (m *Memory) AppendReaction(_ context.Context, channelID string, messageID int64, emoji, userID string) ([]model.Reaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.messages[channelID]
	for i := range msgs {
		if msgs[i].ID != messageID {
			continue
		}
		msgs[i].Reactions = model.MergeReaction(msgs[i].Reactions, emoji, userID)
		return append([]model.Reaction(nil), msgs[i].Reactions...), nil
	}
	return nil, ErrMessageNotFound
}

func (m *Memory) ListRecentMessages(_ context.Context, channelID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[channelID]
	if limit > len(msgs) {
		limit = len(msgs)
	}

	// Stored oldest-first; return newest-first like the scylla clustering order.
	recent := make([]model.Message, 0, limit)
	for i := len(msgs) - 1; i >= len(msgs)-limit; i-- {
		recent = append(recent, msgs[i])
	}
	return recent, nil
}
