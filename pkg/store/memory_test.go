package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devconnect/realtime/pkg/model"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	alice := model.UserIdentity{ID: "1", Username: "alice", Role: model.RoleMember}

	t.Run("should fail user lookup for unknown id", func(t *testing.T) {
		req := require.New(t)
		m := NewMemory()

		_, err := m.FindUserByID(ctx, "missing")
		req.ErrorIs(err, ErrUserNotFound)
	})

	t.Run("should return recent messages newest-first with a limit", func(t *testing.T) {
		req := require.New(t)
		m := NewMemory()

		for _, content := range []string{"one", "two", "three"} {
			_, err := m.InsertMessage(ctx, "general", alice, content)
			req.NoError(err)
		}

		recent, err := m.ListRecentMessages(ctx, "general", 2)
		req.NoError(err)
		req.Len(recent, 2)
		req.Equal("three", recent[0].Content)
		req.Equal("two", recent[1].Content)
	})

	t.Run("should merge reactions idempotently", func(t *testing.T) {
		req := require.New(t)
		m := NewMemory()

		msg, err := m.InsertMessage(ctx, "general", alice, "hello")
		req.NoError(err)

		first, err := m.AppendReaction(ctx, "general", msg.ID, "👍", "1")
		req.NoError(err)
		again, err := m.AppendReaction(ctx, "general", msg.ID, "👍", "1")
		req.NoError(err)
		req.Equal(first, again)
		req.Len(again, 1)
		req.Equal([]string{"1"}, again[0].Users)

		both, err := m.AppendReaction(ctx, "general", msg.ID, "👍", "2")
		req.NoError(err)
		req.Equal([]string{"1", "2"}, both[0].Users)
	})

	t.Run("should fail reaction on unknown message", func(t *testing.T) {
		req := require.New(t)
		m := NewMemory()

		_, err := m.AppendReaction(ctx, "general", 99, "👍", "1")
		req.ErrorIs(err, ErrMessageNotFound)
	})

	t.Run("should deduplicate channel members", func(t *testing.T) {
		req := require.New(t)
		m := NewMemory()

		m.AddChannelMember("general", "1")
		m.AddChannelMember("general", "1")

		members, err := m.FindChannelMembership(ctx, "general")
		req.NoError(err)
		req.Equal([]string{"1"}, members)
	})
}

func TestIDGenerator(t *testing.T) {
	req := require.New(t)

	_, err := NewIDGenerator(idGenMax + 1)
	req.Error(err)

	g, err := NewIDGenerator(1)
	req.NoError(err)

	seen := make(map[int64]bool)
	last := int64(0)
	for i := 0; i < 10000; i++ {
		id := g.NextID()
		req.False(seen[id], "ids must be unique")
		req.Greater(id, last, "ids must be monotonic")
		seen[id] = true
		last = id
	}
}
