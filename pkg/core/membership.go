package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/devconnect/realtime/pkg/store"
)

// Index maps each channel to the set of connections currently subscribed to
// it. A connection may subscribe only while its owning user is in the
// channel's persisted membership list; the membership check happens against
// the store with no lock held.
type Index struct {
	store store.Store

	mu     sync.RWMutex
	subs   map[string]map[string]*Connection // channel id -> connection id -> connection
	byConn map[string]map[string]struct{}    // connection id -> channel ids

	// Fired on the first subscription of a user in a channel and after the
	// last one is gone. The redis channel-presence mirror hooks in here.
	// Events are queued under ix.mu and drained by a single flusher so the
	// mirror always applies them in mutation order.
	onJoin  func(channelID, userID string)
	onLeave func(channelID, userID string)

	queue    []mirrorEvent
	flushing bool
}

type mirrorEvent struct {
	join      bool
	channelID string
	userID    string
}

func NewIndex(st store.Store) *Index {
	return &Index{
		store:  st,
		subs:   make(map[string]map[string]*Connection),
		byConn: make(map[string]map[string]struct{}),
	}
}

func (ix *Index) Hooks(onJoin, onLeave func(channelID, userID string)) {
	ix.onJoin = onJoin
	ix.onLeave = onLeave
}

// Join subscribes a connection to a channel. Fails with ErrNotAMember when the
// connection's user is not in the persisted membership list. Joining an
// already-joined channel is a no-op.
func (ix *Index) Join(ctx context.Context, conn *Connection, channelID string) error {
	members, err := ix.store.FindChannelMembership(ctx, channelID)
	if err != nil {
		return fmt.Errorf("fetch membership of %s: %w", channelID, err)
	}
	if !lo.Contains(members, conn.User.ID) {
		return fmt.Errorf("%w: user %s in channel %s", ErrNotAMember, conn.User.ID, channelID)
	}

	ix.mu.Lock()
	if _, ok := ix.subs[channelID][conn.ID]; ok {
		ix.mu.Unlock()
		return nil
	}
	if ix.subs[channelID] == nil {
		ix.subs[channelID] = make(map[string]*Connection)
	}
	ix.subs[channelID][conn.ID] = conn
	if ix.byConn[conn.ID] == nil {
		ix.byConn[conn.ID] = make(map[string]struct{})
	}
	ix.byConn[conn.ID][channelID] = struct{}{}
	first := ix.userConnCountLocked(channelID, conn.User.ID) == 1
	if first && ix.onJoin != nil {
		ix.queue = append(ix.queue, mirrorEvent{join: true, channelID: channelID, userID: conn.User.ID})
	}
	ix.mu.Unlock()

	if first {
		go ix.flush()
	}
	return nil
}

// Leave removes a connection from a channel's subscriber set. Idempotent and
// never fails, even when the connection was not joined.
func (ix *Index) Leave(connID, channelID string) {
	ix.mu.Lock()
	userID, last := ix.removeLocked(connID, channelID)
	if last && ix.onLeave != nil {
		ix.queue = append(ix.queue, mirrorEvent{channelID: channelID, userID: userID})
	}
	ix.mu.Unlock()

	if last {
		go ix.flush()
	}
}

// OnDisconnect removes the connection from every channel it was subscribed
// to. Invoked by registry teardown; guarantees no dangling subscription
// survives a disconnect.
func (ix *Index) OnDisconnect(connID string) {
	ix.mu.Lock()
	channels := lo.Keys(ix.byConn[connID])
	departed := false
	for _, channelID := range channels {
		if userID, last := ix.removeLocked(connID, channelID); last && ix.onLeave != nil {
			ix.queue = append(ix.queue, mirrorEvent{channelID: channelID, userID: userID})
			departed = true
		}
	}
	ix.mu.Unlock()

	if departed {
		go ix.flush()
	}
}

// flush drains the mirror queue. Only one goroutine drains at a time, so hook
// invocations land in the order the subscription changes were applied; the
// lock is released around each invocation because hooks do network I/O.
func (ix *Index) flush() {
	ix.mu.Lock()
	if ix.flushing {
		ix.mu.Unlock()
		return
	}
	ix.flushing = true
	for len(ix.queue) > 0 {
		ev := ix.queue[0]
		ix.queue = ix.queue[1:]
		ix.mu.Unlock()
		if ev.join {
			ix.onJoin(ev.channelID, ev.userID)
		} else {
			ix.onLeave(ev.channelID, ev.userID)
		}
		ix.mu.Lock()
	}
	ix.flushing = false
	ix.mu.Unlock()
}

// Subscribers returns a point-in-time snapshot of a channel's subscribed
// connections. Unknown channels yield an empty slice.
func (ix *Index) Subscribers(channelID string) []*Connection {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return lo.Values(ix.subs[channelID])
}

func (ix *Index) Subscribed(connID, channelID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.subs[channelID][connID]
	return ok
}

// removeLocked deletes the subscription and reports whether that was the
// user's last connection in the channel. Callers hold ix.mu.
func (ix *Index) removeLocked(connID, channelID string) (userID string, last bool) {
	conn, ok := ix.subs[channelID][connID]
	if !ok {
		return "", false
	}
	delete(ix.subs[channelID], connID)
	if len(ix.subs[channelID]) == 0 {
		delete(ix.subs, channelID)
	}
	delete(ix.byConn[connID], channelID)
	if len(ix.byConn[connID]) == 0 {
		delete(ix.byConn, connID)
	}
	return conn.User.ID, ix.userConnCountLocked(channelID, conn.User.ID) == 0
}

func (ix *Index) userConnCountLocked(channelID, userID string) int {
	count := 0
	for _, c := range ix.subs[channelID] {
		if c.User.ID == userID {
			count++
		}
	}
	return count
}
