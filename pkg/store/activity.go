package store

import (
	"context"
	"time"
)

// Channel activity and unread counters live outside the core Store interface:
// they are written by the archiver from the relay stream and read by the api.
//
//	channel_activity(channel_id text PRIMARY KEY, last_message_at timestamp,
//	                 last_user_id text)
//	unread_counts(user_id text, channel_id text, unread counter,
//	              PRIMARY KEY (user_id, channel_id))

type ChannelUnread struct {
	ChannelID string `json:"channelId"`
	Unread    int64  `json:"unread"`
}

func (s *Scylla) TouchChannelActivity(ctx context.Context, channelID, userID string, at time.Time) error {
	return s.session.Query(
		`INSERT INTO channel_activity (channel_id, last_message_at, last_user_id) VALUES (?, ?, ?)`,
		channelID, at, userID,
	).WithContext(ctx).Exec()
}

func (s *Scylla) IncrementUnread(ctx context.Context, userID, channelID string) error {
	return s.session.Query(
		`UPDATE unread_counts SET unread = unread + 1 WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).WithContext(ctx).Exec()
}

func (s *Scylla) UnreadCounts(ctx context.Context, userID string) ([]ChannelUnread, error) {
	iter := s.session.Query(
		`SELECT channel_id, unread FROM unread_counts WHERE user_id = ?`, userID,
	).WithContext(ctx).Iter()

	var counts []ChannelUnread
	var c ChannelUnread
	for iter.Scan(&c.ChannelID, &c.Unread) {
		counts = append(counts, c)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return counts, nil
}

// ResetUnread zeroes a counter. Counter columns cannot be assigned, so the
// row is deleted instead.
func (s *Scylla) ResetUnread(ctx context.Context, userID, channelID string) error {
	return s.session.Query(
		`DELETE FROM unread_counts WHERE user_id = ? AND channel_id = ?`,
		userID, channelID,
	).WithContext(ctx).Exec()
}
