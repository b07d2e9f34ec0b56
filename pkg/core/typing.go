package core

import (
	"context"
	"log/slog"

	"github.com/devconnect/realtime/pkg/model"
)

// TypingRelay passes ephemeral typing signals to the other subscribers of a
// channel. Nothing is persisted, nothing is retried; lost indicators are
// advisory only.
type TypingRelay struct {
	registry *Registry
	index    *Index
	relay    Relay // may be nil
	log      *slog.Logger
}

func NewTypingRelay(registry *Registry, index *Index, relay Relay, log *slog.Logger) *TypingRelay {
	return &TypingRelay{registry: registry, index: index, relay: relay, log: log}
}

func (t *TypingRelay) Typing(ctx context.Context, connID, channelID string) {
	user, err := t.registry.Lookup(connID)
	if err != nil || !t.index.Subscribed(connID, channelID) {
		return
	}
	t.signal(ctx, model.EventUserTyping, connID, channelID, model.TypingNotice{
		UserID:    user.ID,
		Username:  user.Username,
		ChannelID: channelID,
	})
}

func (t *TypingRelay) StopTyping(ctx context.Context, connID, channelID string) {
	user, err := t.registry.Lookup(connID)
	if err != nil || !t.index.Subscribed(connID, channelID) {
		return
	}
	t.signal(ctx, model.EventUserStopTyping, connID, channelID, model.TypingNotice{
		UserID:    user.ID,
		ChannelID: channelID,
	})
}

func (t *TypingRelay) signal(ctx context.Context, event, senderConnID, channelID string, notice model.TypingNotice) {
	payload, err := model.NewEnvelope(event, notice)
	if err != nil {
		t.log.Error("encode typing notice", "error", err)
		return
	}

	for _, conn := range t.index.Subscribers(channelID) {
		if conn.ID == senderConnID {
			continue
		}
		conn.Deliver(payload)
	}

	// The sender only ever lives on this instance, so remote fan-out needs no
	// exclusion.
	if t.relay != nil {
		if err := t.relay.Publish(ctx, event, channelID, payload); err != nil {
			t.log.Warn("relay typing notice failed", "channel", channelID, "error", err)
		}
	}
}
