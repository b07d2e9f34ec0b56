package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/devconnect/realtime/pkg/model"
	"github.com/devconnect/realtime/pkg/relay"
	"github.com/devconnect/realtime/pkg/store"
)

const handleTimeout = 10 * time.Second

// archiver turns the relay stream into channel activity rows and per-user
// unread counters. The gateways already persisted the messages themselves;
// everything here is derived bookkeeping.
type archiver struct {
	store *store.Scylla
	log   *slog.Logger
}

func newArchiver(st *store.Scylla, log *slog.Logger) *archiver {
	return &archiver{store: st, log: log}
}

func (a *archiver) handle(evt relay.Event) {
	if evt.Event != model.EventMessage {
		// Typing and reaction traffic is ephemeral; nothing to archive.
		return
	}

	var env model.Envelope
	if err := json.Unmarshal(evt.Payload, &env); err != nil {
		a.log.Error("unwrap relayed envelope", "error", err)
		return
	}
	var msg model.Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		a.log.Error("unmarshal relayed message", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := a.store.TouchChannelActivity(ctx, msg.ChannelID, msg.UserID, msg.Timestamp); err != nil {
		a.log.Error("record channel activity", "channel", msg.ChannelID, "error", err)
	}

	members, err := a.store.FindChannelMembership(ctx, msg.ChannelID)
	if err != nil {
		a.log.Error("fetch membership", "channel", msg.ChannelID, "error", err)
		return
	}

	// Everyone but the author has one more message waiting.
	for _, member := range members {
		if member == msg.UserID {
			continue
		}
		if err := a.store.IncrementUnread(ctx, member, msg.ChannelID); err != nil {
			a.log.Error("increment unread", "user", member, "channel", msg.ChannelID, "error", err)
		}
	}
}
