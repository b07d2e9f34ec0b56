package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devconnect/realtime/pkg/model"
)

func TestTypingRelay(t *testing.T) {
	ctx := context.Background()

	t.Run("should notify other subscribers but never the sender", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "A")
		f.addUser("2", "B")

		alice := f.connect(t, "1")
		bob := f.connect(t, "2")
		f.join(t, alice, "general")
		f.join(t, bob, "general")

		f.typing.Typing(ctx, alice.ID, "general")

		var notice model.TypingNotice
		req.NoError(json.Unmarshal(waitEnvelope(t, bob, model.EventUserTyping), &notice))
		req.Equal("1", notice.UserID)
		req.Equal("A", notice.Username)
		req.Equal("general", notice.ChannelID)

		req.Zero(countEnvelopes(t, alice, model.EventUserTyping))
	})

	t.Run("should omit the username on stop-typing", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "A")
		f.addUser("2", "B")

		alice := f.connect(t, "1")
		bob := f.connect(t, "2")
		f.join(t, alice, "general")
		f.join(t, bob, "general")

		f.typing.StopTyping(ctx, alice.ID, "general")

		var notice model.TypingNotice
		req.NoError(json.Unmarshal(waitEnvelope(t, bob, model.EventUserStopTyping), &notice))
		req.Equal("1", notice.UserID)
		req.Empty(notice.Username)
	})

	t.Run("should drop signals from non-subscribers silently", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "A")
		f.addUser("2", "B")

		member := f.connect(t, "1")
		stranger := f.connect(t, "2")
		f.join(t, member, "general")

		f.typing.Typing(ctx, stranger.ID, "general")
		f.typing.Typing(ctx, "no-such-conn", "general")

		req.Zero(countEnvelopes(t, member, model.EventUserTyping))
		req.Empty(f.relay.all())
	})
}
