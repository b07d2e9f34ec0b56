package store

import (
	"context"
	"errors"

	"github.com/devconnect/realtime/pkg/model"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Store is the persistence collaborator the core calls but does not implement.
// Implementations must be safe for concurrent use; every method may block on
// I/O, so callers never hold in-memory locks across these calls.
type Store interface {
	// FindUserByID resolves a registered identity. Fails with ErrUserNotFound.
	FindUserByID(ctx context.Context, id string) (model.UserIdentity, error)

	// FindChannelMembership returns the persisted member user ids of a
	// channel. Unknown channels yield an empty set, not an error.
	FindChannelMembership(ctx context.Context, channelID string) ([]string, error)

	// InsertMessage persists a new message, assigning its id and timestamp.
	InsertMessage(ctx context.Context, channelID string, author model.UserIdentity, content string) (model.Message, error)

	// AppendReaction merges userID into the emoji's reactor set of a message
	// and returns the full updated reaction list. Adding the same user and
	// emoji twice has no additional effect. Fails with ErrMessageNotFound.
	AppendReaction(ctx context.Context, channelID string, messageID int64, emoji, userID string) ([]model.Reaction, error)

	// ListRecentMessages returns up to limit messages of a channel,
	// newest-first. Callers reverse for chronological display.
	ListRecentMessages(ctx context.Context, channelID string, limit int) ([]model.Message, error)
}
