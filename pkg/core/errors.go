package core

import "errors"

// Connection-fatal: the handshake is refused and no resources are allocated.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUnknownUser  = errors.New("unknown user")
)

// Operation-scoped: reported to the originating connection only, the
// connection itself stays active.
var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrNotAMember         = errors.New("not a channel member")
	ErrNotSubscribed      = errors.New("not subscribed to channel")
	ErrMessageNotFound    = errors.New("message not found")
)
