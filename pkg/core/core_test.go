package core

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devconnect/realtime/pkg/model"
	"github.com/devconnect/realtime/pkg/store"
)

// passthroughVerifier treats the token as the user id itself. Unknown users
// are rejected downstream by the store lookup.
type passthroughVerifier struct{}

func (passthroughVerifier) Verify(token string) (string, error) {
	if token == "" || token == "invalid" {
		return "", errors.New("bad signature")
	}
	return token, nil
}

// flakyStore injects failures into the persistence collaborator.
type flakyStore struct {
	store.Store
	insertErr error
}

func (f *flakyStore) InsertMessage(ctx context.Context, channelID string, author model.UserIdentity, content string) (model.Message, error) {
	if f.insertErr != nil {
		return model.Message{}, f.insertErr
	}
	return f.Store.InsertMessage(ctx, channelID, author, content)
}

type relayRecord struct {
	Event     string
	ChannelID string
	Payload   []byte
}

type capturingRelay struct {
	mu      sync.Mutex
	records []relayRecord
}

func (r *capturingRelay) Publish(_ context.Context, event, channelID string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, relayRecord{Event: event, ChannelID: channelID, Payload: payload})
	return nil
}

func (r *capturingRelay) all() []relayRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]relayRecord(nil), r.records...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	memory   *store.Memory
	flaky    *flakyStore
	registry *Registry
	index    *Index
	tracker  *Tracker
	router   *Router
	typing   *TypingRelay
	relay    *capturingRelay
}

func newFixture() *fixture {
	memory := store.NewMemory()
	flaky := &flakyStore{Store: memory}
	registry := NewRegistry(passthroughVerifier{}, flaky, 16)
	index := NewIndex(flaky)
	registry.OnRemove(index.OnDisconnect)
	tracker := NewTracker(registry, nil, discardLogger())
	relay := &capturingRelay{}
	router := NewRouter(registry, index, flaky, relay, 50, discardLogger())
	typing := NewTypingRelay(registry, index, relay, discardLogger())
	return &fixture{
		memory:   memory,
		flaky:    flaky,
		registry: registry,
		index:    index,
		tracker:  tracker,
		router:   router,
		typing:   typing,
		relay:    relay,
	}
}

// addUser registers the identity in the store so authentication resolves it.
func (f *fixture) addUser(id, username string) {
	f.memory.AddUser(model.UserIdentity{ID: id, Username: username, Role: model.RoleMember})
}

// connect authenticates and registers a fresh connection for the user.
func (f *fixture) connect(t *testing.T, userID string) *Connection {
	t.Helper()
	conn, err := f.registry.Authenticate(context.Background(), userID)
	require.NoError(t, err)
	f.registry.Register(conn)
	return conn
}

// join makes the user a persisted channel member and subscribes the connection.
func (f *fixture) join(t *testing.T, conn *Connection, channelID string) {
	t.Helper()
	f.memory.AddChannelMember(channelID, conn.User.ID)
	require.NoError(t, f.index.Join(context.Background(), conn, channelID))
}

// waitEnvelope blocks until the connection receives an envelope with the given
// event name, skipping unrelated frames.
func waitEnvelope(t *testing.T, conn *Connection, event string) json.RawMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case raw := <-conn.Outbound():
			var env model.Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			if env.Event == event {
				return env.Data
			}
		case <-deadline:
			t.Fatalf("no %q envelope received", event)
			return nil
		}
	}
}

// countEnvelopes drains everything currently queued and counts frames of the
// given event.
func countEnvelopes(t *testing.T, conn *Connection, event string) int {
	t.Helper()
	count := 0
	for {
		select {
		case raw := <-conn.Outbound():
			var env model.Envelope
			require.NoError(t, json.Unmarshal(raw, &env))
			if env.Event == event {
				count++
			}
		default:
			return count
		}
	}
}
