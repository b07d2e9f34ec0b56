package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

const (
	onlineUsersKey   = "presence:online"
	mirrorOpDeadline = 5 * time.Second
)

// redisMirror keeps the online set and per-channel user sets in redis so the
// api service can serve presence without reaching into the gateway.
type redisMirror struct {
	rdb *redis.Client
	log *slog.Logger
}

func newRedisMirror(rdb *redis.Client, log *slog.Logger) *redisMirror {
	return &redisMirror{rdb: rdb, log: log}
}

// PublishOnline replaces the global online set with the latest snapshot.
func (m *redisMirror) PublishOnline(ctx context.Context, userIDs []string) error {
	pipe := m.rdb.TxPipeline()
	pipe.Del(ctx, onlineUsersKey)
	if len(userIDs) > 0 {
		pipe.SAdd(ctx, onlineUsersKey, lo.ToAnySlice(userIDs)...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ChannelJoined and ChannelLeft are membership index hooks, fired when a
// user's first connection joins a channel and after their last one leaves.

func (m *redisMirror) ChannelJoined(channelID, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorOpDeadline)
	defer cancel()
	if err := m.rdb.SAdd(ctx, channelKey(channelID), userID).Err(); err != nil {
		m.log.Warn("mirror channel join", "channel", channelID, "user", userID, "error", err)
	}
}

func (m *redisMirror) ChannelLeft(channelID, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorOpDeadline)
	defer cancel()
	if err := m.rdb.SRem(ctx, channelKey(channelID), userID).Err(); err != nil {
		m.log.Warn("mirror channel leave", "channel", channelID, "user", userID, "error", err)
	}
}

func channelKey(channelID string) string {
	return "channel:" + channelID + ":users"
}
