package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devconnect/realtime/pkg/model"
)

func onlineIDs(t *testing.T, data json.RawMessage) []string {
	t.Helper()
	var update model.PresenceUpdate
	require.NoError(t, json.Unmarshal(data, &update))
	ids := make([]string, 0, len(update.Users))
	for _, u := range update.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestTrackerSnapshot(t *testing.T) {
	t.Run("should list each user once regardless of connection count", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "alice")
		f.addUser("2", "bob")

		f.connect(t, "1")
		f.connect(t, "1")
		f.connect(t, "2")

		snap := f.tracker.Snapshot()
		req.Len(snap, 2)
		req.Equal("alice", snap[0].Username)
		req.Equal("bob", snap[1].Username)
	})

	t.Run("should keep a user online while any connection remains", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "alice")

		tabOne := f.connect(t, "1")
		tabTwo := f.connect(t, "1")

		f.registry.Remove(tabOne.ID)
		req.Len(f.tracker.Snapshot(), 1)

		f.registry.Remove(tabTwo.ID)
		req.Empty(f.tracker.Snapshot())
	})
}

func TestTrackerPublish(t *testing.T) {
	t.Run("should broadcast the snapshot to every connection", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "alice")
		f.addUser("2", "bob")

		alice := f.connect(t, "1")
		bob := f.connect(t, "2")

		f.tracker.publish(context.Background())

		req.ElementsMatch([]string{"1", "2"}, onlineIDs(t, waitEnvelope(t, alice, model.EventUserOnline)))
		req.ElementsMatch([]string{"1", "2"}, onlineIDs(t, waitEnvelope(t, bob, model.EventUserOnline)))
	})

	t.Run("should skip connections that dropped mid-broadcast", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "alice")
		f.addUser("2", "bob")

		alice := f.connect(t, "1")
		bob := f.connect(t, "2")
		bob.Close()

		f.tracker.publish(context.Background())
		req.NotNil(waitEnvelope(t, alice, model.EventUserOnline))
		req.Zero(countEnvelopes(t, bob, model.EventUserOnline))
	})

	t.Run("should publish snapshots in event-processing order", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "alice")
		f.addUser("2", "bob")

		observer := f.connect(t, "2")

		// Disconnect then reconnect, publishing after each step the way the
		// run loop serializes it.
		alice := f.connect(t, "1")
		f.tracker.publish(context.Background())
		f.registry.Remove(alice.ID)
		f.tracker.publish(context.Background())
		f.connect(t, "1")
		f.tracker.publish(context.Background())

		req.ElementsMatch([]string{"1", "2"}, onlineIDs(t, waitEnvelope(t, observer, model.EventUserOnline)))
		req.ElementsMatch([]string{"2"}, onlineIDs(t, waitEnvelope(t, observer, model.EventUserOnline)))
		req.ElementsMatch([]string{"1", "2"}, onlineIDs(t, waitEnvelope(t, observer, model.EventUserOnline)))
	})

	t.Run("should publish through the run loop on registry changes", func(t *testing.T) {
		req := require.New(t)
		f := newFixture()
		f.addUser("1", "alice")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go f.tracker.Run(ctx)

		conn := f.connect(t, "1")
		req.Contains(onlineIDs(t, waitEnvelope(t, conn, model.EventUserOnline)), "1")
	})
}
