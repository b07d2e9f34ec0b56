package core

import (
	"context"
	"log/slog"
	"sort"

	"github.com/samber/lo"

	"github.com/devconnect/realtime/pkg/model"
)

// PresenceMirror receives each published online set so out-of-process readers
// (the REST api) can serve presence without talking to the gateway.
type PresenceMirror interface {
	PublishOnline(ctx context.Context, userIDs []string) error
}

// Tracker derives the online-user set from the registry and broadcasts it to
// every connection whenever a connection comes or goes. All publications flow
// through a single goroutine, so two snapshots are never observed out of the
// order their connect/disconnect events were processed in.
type Tracker struct {
	registry *Registry
	mirror   PresenceMirror // may be nil
	log      *slog.Logger

	notify chan struct{}
}

func NewTracker(registry *Registry, mirror PresenceMirror, log *slog.Logger) *Tracker {
	t := &Tracker{
		registry: registry,
		mirror:   mirror,
		log:      log,
		notify:   make(chan struct{}, 1),
	}
	registry.OnChange(t.Notify)
	return t
}

// Notify schedules a snapshot publication. Notifications arriving while one
// is already pending coalesce into it; the pending publication always reads
// the newest registry state.
func (t *Tracker) Notify() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Run consumes notifications until the context is cancelled. This is the only
// fleet-wide broadcast path and the single writer that orders presence.
func (t *Tracker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.notify:
			t.publish(ctx)
		}
	}
}

// Snapshot returns the distinct identities with at least one live connection,
// ordered by username.
func (t *Tracker) Snapshot() []model.UserIdentity {
	users := lo.UniqBy(
		lo.Map(t.registry.Connections(), func(c *Connection, _ int) model.UserIdentity { return c.User }),
		func(u model.UserIdentity) string { return u.ID },
	)
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users
}

func (t *Tracker) publish(ctx context.Context) {
	snapshot := t.Snapshot()

	payload, err := model.NewEnvelope(model.EventUserOnline, model.PresenceUpdate{Users: snapshot})
	if err != nil {
		t.log.Error("marshal presence snapshot", "error", err)
		return
	}

	// Connections that disconnected mid-broadcast are skipped silently.
	for _, conn := range t.registry.Connections() {
		conn.Deliver(payload)
	}

	if t.mirror != nil {
		ids := lo.Map(snapshot, func(u model.UserIdentity, _ int) string { return u.ID })
		if err := t.mirror.PublishOnline(ctx, ids); err != nil {
			t.log.Warn("mirror presence snapshot", "error", err)
		}
	}
}
