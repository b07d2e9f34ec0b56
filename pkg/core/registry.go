package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/devconnect/realtime/pkg/model"
	"github.com/devconnect/realtime/pkg/store"
)

// TokenVerifier is the external authentication collaborator: opaque bearer
// token in, user id out. Expiry is enforced by the verifier itself.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Registry tracks every live connection and the identity it is bound to.
// A user may hold any number of concurrent connections; connection ids are
// unique. Safe for concurrent use.
type Registry struct {
	verifier   TokenVerifier
	store      store.Store
	sendBuffer int

	mu    sync.RWMutex
	conns map[string]*Connection

	onRemove []func(connID string)
	onChange []func()
}

func NewRegistry(verifier TokenVerifier, st store.Store, sendBuffer int) *Registry {
	return &Registry{
		verifier:   verifier,
		store:      st,
		sendBuffer: sendBuffer,
		conns:      make(map[string]*Connection),
	}
}

// OnRemove registers a teardown hook fired after a connection is removed.
// The membership index hooks in here so no subscription outlives a disconnect.
func (r *Registry) OnRemove(fn func(connID string)) {
	r.onRemove = append(r.onRemove, fn)
}

// OnChange registers a hook fired after every register/remove. The presence
// tracker hooks in here to recompute its snapshot.
func (r *Registry) OnChange(fn func()) {
	r.onChange = append(r.onChange, fn)
}

// Authenticate validates the token, resolves the identity behind it and binds
// a fresh connection to it. The connection is not yet registered; transports
// call Register once their handshake completes.
func (r *Registry) Authenticate(ctx context.Context, token string) (*Connection, error) {
	userID, err := r.verifier.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	identity, err := r.store.FindUserByID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	return newConnection(identity, r.sendBuffer), nil
}

func (r *Registry) Register(conn *Connection) {
	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()

	for _, fn := range r.onChange {
		fn()
	}
}

// Remove tears a connection down: it is closed, unsubscribed everywhere via
// the remove hooks, and the presence change is published. Unknown ids are a
// no-op, so a disconnect racing an explicit removal is safe.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	conn, ok := r.conns[connID]
	delete(r.conns, connID)
	r.mu.Unlock()

	if !ok {
		return
	}
	conn.Close()

	for _, fn := range r.onRemove {
		fn(connID)
	}
	for _, fn := range r.onChange {
		fn()
	}
}

func (r *Registry) Lookup(connID string) (model.UserIdentity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok {
		return model.UserIdentity{}, ErrConnectionNotFound
	}
	return conn.User, nil
}

// Connections returns a point-in-time snapshot of every live connection.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}
