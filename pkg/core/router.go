package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/devconnect/realtime/pkg/model"
	"github.com/devconnect/realtime/pkg/store"
)

// Relay forwards already-delivered events to sibling gateway instances. Local
// fan-out never depends on it; a publish failure costs remote delivery only.
type Relay interface {
	Publish(ctx context.Context, event, channelID string, payload []byte) error
}

// Router validates, persists and fans out channel-scoped messages. Fan-out is
// at-most-once and best-effort; durable history is read separately through
// the store.
type Router struct {
	registry *Registry
	index    *Index
	store    store.Store
	relay    Relay // may be nil on a single-gateway deployment
	log      *slog.Logger

	historyLimit int
}

func NewRouter(registry *Registry, index *Index, st store.Store, relay Relay, historyLimit int, log *slog.Logger) *Router {
	return &Router{
		registry:     registry,
		index:        index,
		store:        st,
		relay:        relay,
		historyLimit: historyLimit,
		log:          log,
	}
}

// Send persists a message and delivers it to every connection subscribed to
// the channel at that moment. Subscribers joining afterwards read it from
// history instead. The subscription is checked before the store call and the
// subscriber set is re-read after it, so no membership lock is ever held
// across I/O.
func (rt *Router) Send(ctx context.Context, connID, channelID, content string) (model.Message, error) {
	author, err := rt.registry.Lookup(connID)
	if err != nil {
		return model.Message{}, fmt.Errorf("%w: %s", ErrNotSubscribed, channelID)
	}
	if !rt.index.Subscribed(connID, channelID) {
		return model.Message{}, fmt.Errorf("%w: %s", ErrNotSubscribed, channelID)
	}

	msg, err := rt.store.InsertMessage(ctx, channelID, author, content)
	if err != nil {
		// Nothing was fanned out: an unpersisted message is never delivered.
		return model.Message{}, fmt.Errorf("persist message: %w", err)
	}

	payload, err := model.NewEnvelope(model.EventMessage, msg)
	if err != nil {
		return model.Message{}, fmt.Errorf("encode message: %w", err)
	}

	rt.fanout(channelID, payload)
	rt.relayOut(ctx, model.EventMessage, channelID, payload)
	return msg, nil
}

// AddReaction merges the caller into the emoji's reactor set and fans the
// updated state out to current subscribers. The merge is idempotent.
func (rt *Router) AddReaction(ctx context.Context, connID, channelID string, messageID int64, emoji string) ([]model.Reaction, error) {
	user, err := rt.registry.Lookup(connID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotSubscribed, channelID)
	}
	if !rt.index.Subscribed(connID, channelID) {
		return nil, fmt.Errorf("%w: %s", ErrNotSubscribed, channelID)
	}

	reactions, err := rt.store.AppendReaction(ctx, channelID, messageID, emoji, user.ID)
	if errors.Is(err, store.ErrMessageNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrMessageNotFound, messageID)
	}
	if err != nil {
		return nil, fmt.Errorf("append reaction: %w", err)
	}

	payload, err := model.NewEnvelope(model.EventReactionAdded, model.ReactionUpdate{
		MessageID: messageID,
		ChannelID: channelID,
		Reactions: reactions,
	})
	if err != nil {
		return nil, fmt.Errorf("encode reaction update: %w", err)
	}

	rt.fanout(channelID, payload)
	rt.relayOut(ctx, model.EventReactionAdded, channelID, payload)
	return reactions, nil
}

// History returns the most recent messages of a channel in chronological
// order, oldest first. This is a read path, distinct from live fan-out.
func (rt *Router) History(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = rt.historyLimit
	}

	msgs, err := rt.store.ListRecentMessages(ctx, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", channelID, err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// DeliverLocal fans a relay-received payload out to this instance's
// subscribers. Used by the gateway's relay consumer for events that
// originated elsewhere.
func (rt *Router) DeliverLocal(channelID string, payload []byte) {
	rt.fanout(channelID, payload)
}

func (rt *Router) fanout(channelID string, payload []byte) {
	for _, conn := range rt.index.Subscribers(channelID) {
		conn.Deliver(payload)
	}
}

func (rt *Router) relayOut(ctx context.Context, event, channelID string, payload []byte) {
	if rt.relay == nil {
		return
	}
	if err := rt.relay.Publish(ctx, event, channelID, payload); err != nil {
		rt.log.Warn("relay publish failed", "event", event, "channel", channelID, "error", err)
	}
}
