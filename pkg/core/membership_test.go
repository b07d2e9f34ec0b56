package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIndexJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject a user outside the persisted membership list", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("2", "B")

		conn := f.connect(t, "2")
		err := f.index.Join(ctx, conn, "dev-private")
		req.ErrorIs(err, ErrNotAMember)
		req.Empty(f.index.Subscribers("dev-private"))
	})

	t.Run("should subscribe a persisted member exactly once", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "A")

		conn := f.connect(t, "1")
		f.join(t, conn, "general")
		req.NoError(f.index.Join(ctx, conn, "general")) // idempotent

		subs := f.index.Subscribers("general")
		req.Len(subs, 1)
		req.True(f.index.Subscribed(conn.ID, "general"))
	})

	t.Run("should leave the connection subscribed after join-leave-join", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "A")

		conn := f.connect(t, "1")
		f.join(t, conn, "general")
		f.index.Leave(conn.ID, "general")
		req.NoError(f.index.Join(ctx, conn, "general"))

		req.True(f.index.Subscribed(conn.ID, "general"))
		req.Len(f.index.Subscribers("general"), 1)
	})
}

func TestIndexLeave(t *testing.T) {
	t.Run("should never fail, even when not joined", func(t *testing.T) {
		f := newFixture()
		f.addUser("1", "A")

		conn := f.connect(t, "1")
		f.index.Leave(conn.ID, "general")
		f.index.Leave("unknown-conn", "unknown-channel")
	})

	t.Run("should return an empty set for unknown channels", func(t *testing.T) {
		f := newFixture()
		require.Empty(t, f.index.Subscribers("nowhere"))
	})
}

func TestIndexOnDisconnect(t *testing.T) {
	t.Run("should drop the connection from every channel", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "A")

		conn := f.connect(t, "1")
		f.join(t, conn, "general")
		f.join(t, conn, "random")

		f.registry.Remove(conn.ID)

		req.False(f.index.Subscribed(conn.ID, "general"))
		req.False(f.index.Subscribed(conn.ID, "random"))
		req.Empty(f.index.Subscribers("general"))
		req.Empty(f.index.Subscribers("random"))
	})
}

func TestIndexConcurrentJoinLeave(t *testing.T) {
	req := require.New(t)
	f := newFixture()

	const n = 32
	conns := make([]*Connection, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("user-%d", i)
		f.addUser(id, id)
		f.memory.AddChannelMember("general", id)
		conns[i] = f.connect(t, id)
	}

	errs := make(chan error, 2*n)
	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			errs <- f.index.Join(context.Background(), c, "general")
			f.index.Leave(c.ID, "general")
			errs <- f.index.Join(context.Background(), c, "general")
		}(conn)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// No lost updates, no duplicates.
	subs := f.index.Subscribers("general")
	req.Len(subs, n)
	seen := make(map[string]bool, n)
	for _, c := range subs {
		req.False(seen[c.ID])
		seen[c.ID] = true
	}
}

func TestIndexPresenceHooks(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.addUser("1", "A")

	joins := make(chan string, 8)
	leaves := make(chan string, 8)
	f.index.Hooks(
		func(channelID, userID string) { joins <- channelID + "/" + userID },
		func(channelID, userID string) { leaves <- channelID + "/" + userID },
	)

	first := f.connect(t, "1")
	second := f.connect(t, "1")
	f.join(t, first, "general")
	f.join(t, second, "general")

	// Only the user's first subscription announces the join.
	req.Equal("general/1", <-joins)
	req.Empty(joins)

	// The leave fires once the user's last subscription is gone.
	f.index.Leave(first.ID, "general")
	req.Empty(leaves)
	f.index.Leave(second.ID, "general")
	req.Equal("general/1", <-leaves)
}

func TestIndexHooksFireInMutationOrder(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	f.addUser("1", "A")

	// A sluggish join hook must not let the matching leave hook overtake it,
	// or the channel mirror would end up with the user stuck "in".
	order := make(chan string, 2)
	f.index.Hooks(
		func(channelID, userID string) {
			time.Sleep(50 * time.Millisecond)
			order <- "join"
		},
		func(channelID, userID string) { order <- "leave" },
	)

	conn := f.connect(t, "1")
	f.join(t, conn, "general")
	f.index.Leave(conn.ID, "general")

	req.Equal("join", <-order)
	req.Equal("leave", <-order)
}
