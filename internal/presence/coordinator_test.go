package presence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/realtime/bus"
)

// flakyBus drops publishes on demand while leaving subscriptions intact,
// like a broker that accepts connections but refuses writes.
type flakyBus struct {
	bus.Bus
	mu          sync.Mutex
	failPublish bool
}

func (f *flakyBus) setFailing(v bool) {
	f.mu.Lock()
	f.failPublish = v
	f.mu.Unlock()
}

func (f *flakyBus) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	failing := f.failPublish
	f.mu.Unlock()
	if failing {
		return fmt.Errorf("publish unavailable")
	}
	return f.Bus.Publish(ctx, channel, payload)
}

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestCoordinatorJoinIsSeenByPeers(t *testing.T) {
	log := mustTestLogger(t)
	b := bus.NewLocalBus(log)
	t.Cleanup(func() { _ = b.Close() })
	assetID := uuid.New()
	ctx := context.Background()

	ana := NewCoordinator(log, b, assetID, uuid.New(), "ana")
	bo := NewCoordinator(log, b, assetID, uuid.New(), "bo")

	if err := ana.Join(ctx); err != nil {
		t.Fatalf("ana join: %v", err)
	}
	t.Cleanup(func() { _ = ana.Leave(ctx) })
	if err := bo.Join(ctx); err != nil {
		t.Fatalf("bo join: %v", err)
	}
	t.Cleanup(func() { _ = bo.Leave(ctx) })

	// ana subscribed before bo joined, so bo's join event reaches ana.
	waitFor(t, time.Second, func() bool { return len(ana.Viewers()) == 2 })
	if got := ana.Viewers(); got[0].UserName != "ana" || got[1].UserName != "bo" {
		t.Fatalf("ana's view: %+v", got)
	}
}

func TestCoordinatorLeaveRemovesViewer(t *testing.T) {
	log := mustTestLogger(t)
	b := bus.NewLocalBus(log)
	t.Cleanup(func() { _ = b.Close() })
	assetID := uuid.New()
	ctx := context.Background()

	ana := NewCoordinator(log, b, assetID, uuid.New(), "ana")
	bo := NewCoordinator(log, b, assetID, uuid.New(), "bo")
	if err := ana.Join(ctx); err != nil {
		t.Fatalf("ana join: %v", err)
	}
	t.Cleanup(func() { _ = ana.Leave(ctx) })
	if err := bo.Join(ctx); err != nil {
		t.Fatalf("bo join: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(ana.Viewers()) == 2 })

	if err := bo.Leave(ctx); err != nil {
		t.Fatalf("bo leave: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(ana.Viewers()) == 1 })
	if len(bo.Viewers()) != 0 {
		t.Fatalf("leave must discard the local view, got %+v", bo.Viewers())
	}
}

func TestCoordinatorHeartbeatRefreshesPeers(t *testing.T) {
	log := mustTestLogger(t)
	b := bus.NewLocalBus(log)
	t.Cleanup(func() { _ = b.Close() })
	assetID := uuid.New()
	ctx := context.Background()

	ana := NewCoordinator(log, b, assetID, uuid.New(), "ana")
	ana.heartbeat = 20 * time.Millisecond
	ana.sweepEach = time.Hour

	bo := NewCoordinator(log, b, assetID, uuid.New(), "bo")
	bo.heartbeat = time.Hour
	bo.sweepEach = time.Hour

	if err := bo.Join(ctx); err != nil {
		t.Fatalf("bo join: %v", err)
	}
	t.Cleanup(func() { _ = bo.Leave(ctx) })
	if err := ana.Join(ctx); err != nil {
		t.Fatalf("ana join: %v", err)
	}
	t.Cleanup(func() { _ = ana.Leave(ctx) })

	waitFor(t, time.Second, func() bool { return len(bo.Viewers()) == 2 })
	var before time.Time
	for _, e := range bo.Viewers() {
		if e.UserName == "ana" {
			before = e.LastSeen
		}
	}
	waitFor(t, time.Second, func() bool {
		for _, e := range bo.Viewers() {
			if e.UserName == "ana" && e.LastSeen.After(before) {
				return true
			}
		}
		return false
	})
}

func TestCoordinatorSweepDropsSilentPeer(t *testing.T) {
	log := mustTestLogger(t)
	b := bus.NewLocalBus(log)
	t.Cleanup(func() { _ = b.Close() })
	assetID := uuid.New()
	ctx := context.Background()

	ana := NewCoordinator(log, b, assetID, uuid.New(), "ana")
	ana.heartbeat = time.Hour
	ana.sweepEach = 20 * time.Millisecond
	// Pretend time is far in the future so every peer entry is stale.
	if err := ana.Join(ctx); err != nil {
		t.Fatalf("ana join: %v", err)
	}
	t.Cleanup(func() { _ = ana.Leave(ctx) })

	silent := Entry{UserID: uuid.New(), UserName: "ghost", LastSeen: time.Now().Add(-time.Minute)}
	payload, err := EncodeEvent(Event{Kind: EventJoin, AssetID: assetID, Entries: []Entry{silent}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := b.Publish(ctx, Channel(assetID), payload); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(ana.Viewers()) == 2 })

	// The ghost's last_seen is a minute old, so the next sweep removes it;
	// ana herself was seen at join time and survives.
	waitFor(t, time.Second, func() bool {
		viewers := ana.Viewers()
		return len(viewers) == 1 && viewers[0].UserName == "ana"
	})
}

func TestCoordinatorRecoversAfterPublishOutage(t *testing.T) {
	log := mustTestLogger(t)
	inner := bus.NewLocalBus(log)
	t.Cleanup(func() { _ = inner.Close() })
	fb := &flakyBus{Bus: inner}
	assetID := uuid.New()
	ctx := context.Background()

	boID := uuid.New()
	bo := NewCoordinator(log, inner, assetID, boID, "bo")
	bo.heartbeat = time.Hour
	bo.sweepEach = time.Hour
	if err := bo.Join(ctx); err != nil {
		t.Fatalf("bo join: %v", err)
	}
	t.Cleanup(func() { _ = bo.Leave(ctx) })

	ana := NewCoordinator(log, fb, assetID, uuid.New(), "ana")
	ana.heartbeat = 20 * time.Millisecond
	ana.sweepEach = time.Hour
	ana.reconnectWait = 5 * time.Millisecond
	ana.reconnectMax = 20 * time.Millisecond
	if err := ana.Join(ctx); err != nil {
		t.Fatalf("ana join: %v", err)
	}
	t.Cleanup(func() { _ = ana.Leave(ctx) })
	// bo's heartbeat is an hour out and joins are only learned from heartbeat
	// events, so seed ana's view with bo's join the same way the recovery
	// phase below does.
	boEntry := Entry{UserID: boID, UserName: "bo", LastSeen: time.Now()}
	boJoin, err := EncodeEvent(Event{Kind: EventJoin, AssetID: assetID, Entries: []Entry{boEntry}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := inner.Publish(ctx, Channel(assetID), boJoin); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, time.Second, func() bool { return len(ana.Viewers()) == 2 })

	// A failed heartbeat publish resets the local view and keeps retrying
	// the re-join under backoff while the outage lasts.
	fb.setFailing(true)
	waitFor(t, time.Second, func() bool {
		viewers := ana.Viewers()
		return len(viewers) == 1 && viewers[0].UserName == "ana"
	})

	// Once publishes succeed again the re-join lands and the restored
	// subscription picks peers back up.
	fb.setFailing(false)
	boEntry = Entry{UserID: boID, UserName: "bo", LastSeen: time.Now()}
	boJoin, err = EncodeEvent(Event{Kind: EventJoin, AssetID: assetID, Entries: []Entry{boEntry}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	deadline := time.Now().Add(time.Second)
	for len(ana.Viewers()) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("view not repopulated after outage: %+v", ana.Viewers())
		}
		_ = inner.Publish(ctx, Channel(assetID), boJoin)
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCoordinatorDoubleJoinRejected(t *testing.T) {
	log := mustTestLogger(t)
	b := bus.NewLocalBus(log)
	t.Cleanup(func() { _ = b.Close() })
	ctx := context.Background()

	c := NewCoordinator(log, b, uuid.New(), uuid.New(), "ana")
	if err := c.Join(ctx); err != nil {
		t.Fatalf("join: %v", err)
	}
	t.Cleanup(func() { _ = c.Leave(ctx) })
	if err := c.Join(ctx); err == nil {
		t.Fatalf("second join must be rejected")
	}
}

func TestCoordinatorLeaveWithoutJoinIsNoop(t *testing.T) {
	log := mustTestLogger(t)
	b := bus.NewLocalBus(log)
	t.Cleanup(func() { _ = b.Close() })
	c := NewCoordinator(log, b, uuid.New(), uuid.New(), "ana")
	if err := c.Leave(context.Background()); err != nil {
		t.Fatalf("leave without join: %v", err)
	}
}
