package store

import (
	"context"
	"errors"
	"time"

	"github.com/gocql/gocql"

	"github.com/devconnect/realtime/pkg/model"
)

// Scylla implements Store on top of a ScyllaDB/Cassandra cluster.
//
// Schema (see scripts/create_tables):
//
//	users(id text PRIMARY KEY, username text, role text)
//	channel_members(channel_id text, user_id text, PRIMARY KEY (channel_id, user_id))
//	messages(channel_id text, id bigint, user_id text, username text, content text,
//	         timestamp timestamp, PRIMARY KEY (channel_id, id))
//	         WITH CLUSTERING ORDER BY (id DESC)
//	message_reactions(channel_id text, message_id bigint, emoji text,
//	         user_ids set<text>, PRIMARY KEY (channel_id, message_id, emoji))
type Scylla struct {
	session *gocql.Session
	ids     *IDGenerator
}

func NewScylla(hosts []string, keyspace string, generatorID int64) (*Scylla, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		NumRetries: 3,
		Min:        100 * time.Millisecond,
		Max:        1 * time.Second,
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, err
	}

	ids, err := NewIDGenerator(generatorID)
	if err != nil {
		session.Close()
		return nil, err
	}

	return &Scylla{session: session, ids: ids}, nil
}

func (s *Scylla) Close() {
	s.session.Close()
}

func (s *Scylla) FindUserByID(ctx context.Context, id string) (model.UserIdentity, error) {
	var user model.UserIdentity
	var role string

	err := s.session.Query(`SELECT id, username, role FROM users WHERE id = ?`, id).
		WithContext(ctx).Scan(&user.ID, &user.Username, &role)
	if errors.Is(err, gocql.ErrNotFound) {
		return model.UserIdentity{}, ErrUserNotFound
	}
	if err != nil {
		return model.UserIdentity{}, err
	}

	user.Role = model.Role(role)
	return user, nil
}

func (s *Scylla) FindChannelMembership(ctx context.Context, channelID string) ([]string, error) {
	iter := s.session.Query(`SELECT user_id FROM channel_members WHERE channel_id = ?`, channelID).
		WithContext(ctx).Iter()

	var members []string
	var userID string
	for iter.Scan(&userID) {
		members = append(members, userID)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Scylla) InsertMessage(ctx context.Context, channelID string, author model.UserIdentity, content string) (model.Message, error) {
	msg := model.Message{
		ID:        s.ids.NextID(),
		ChannelID: channelID,
		UserID:    author.ID,
		Username:  author.Username,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}

	err := s.session.Query(
		`INSERT INTO messages (channel_id, id, user_id, username, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ChannelID, msg.ID, msg.UserID, msg.Username, msg.Content, msg.Timestamp,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.Message{}, err
	}

	return msg, nil
}

func (s *Scylla) AppendReaction(ctx context.Context, channelID string, messageID int64, emoji, userID string) ([]model.Reaction, error) {
	// Existence check first: counter-free tables accept updates for rows that
	// do not exist, which would manufacture reactions on ghost messages.
	var id int64
	err := s.session.Query(`SELECT id FROM messages WHERE channel_id = ? AND id = ?`, channelID, messageID).
		WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	// Set semantics make the merge idempotent on the server side.
	err = s.session.Query(
		`UPDATE message_reactions SET user_ids = user_ids + ? WHERE channel_id = ? AND message_id = ? AND emoji = ?`,
		[]string{userID}, channelID, messageID, emoji,
	).WithContext(ctx).Exec()
	if err != nil {
		return nil, err
	}

	return s.reactionsFor(ctx, channelID, messageID)
}

func (s *Scylla) reactionsFor(ctx context.Context, channelID string, messageID int64) ([]model.Reaction, error) {
	iter := s.session.Query(
		`SELECT emoji, user_ids FROM message_reactions WHERE channel_id = ? AND message_id = ?`,
		channelID, messageID,
	).WithContext(ctx).Iter()

	var reactions []model.Reaction
	var emoji string
	var users []string
	for iter.Scan(&emoji, &users) {
		reactions = append(reactions, model.Reaction{Emoji: emoji, Users: users})
		users = nil
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return reactions, nil
}

func (s *Scylla) ListRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	iter := s.session.Query(
		`SELECT channel_id, id, user_id, username, content, timestamp FROM messages WHERE channel_id = ? LIMIT ?`,
		channelID, limit,
	).WithContext(ctx).Iter()

	var messages []model.Message
	var msg model.Message
	for iter.Scan(&msg.ChannelID, &msg.ID, &msg.UserID, &msg.Username, &msg.Content, &msg.Timestamp) {
		messages = append(messages, msg)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return messages, nil
	}

	// One range scan picks up the reactions for the whole page.
	minID := messages[len(messages)-1].ID
	iter = s.session.Query(
		`SELECT message_id, emoji, user_ids FROM message_reactions WHERE channel_id = ? AND message_id >= ?`,
		channelID, minID,
	).WithContext(ctx).Iter()

	byID := make(map[int64][]model.Reaction)
	var msgID int64
	var emoji string
	var users []string
	for iter.Scan(&msgID, &emoji, &users) {
		byID[msgID] = append(byID[msgID], model.Reaction{Emoji: emoji, Users: users})
		users = nil
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	for i := range messages {
		messages[i].Reactions = byID[messages[i].ID]
	}
	return messages, nil
}
