package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
	"github.com/framepoint/framepoint-backend/internal/realtime/bus"
)

const (
	reconnectBase = time.Second
	reconnectCap  = 30 * time.Second
)

// Coordinator runs one viewer's participation in one asset's presence
// channel: it announces the viewer with join events, republishes on a
// heartbeat, sweeps stale peers on its own timer, and reconciles incoming
// sync/join/leave events into a local registry. Every client runs its own
// timers; convergence across clients is eventual, bounded by one heartbeat
// interval for join/leave and by the staleness window for silent drops.
type Coordinator struct {
	log      *logger.Logger
	bus      bus.Bus
	assetID  uuid.UUID
	self     Entry
	registry *Registry

	heartbeat     time.Duration
	sweepEach     time.Duration
	reconnectWait time.Duration
	reconnectMax  time.Duration
	now           func() time.Time

	mu      sync.Mutex
	stop    context.CancelFunc
	stopped chan struct{}
	unsub   bus.StopFunc
	joined  bool
}

func NewCoordinator(log *logger.Logger, b bus.Bus, assetID, userID uuid.UUID, userName string) *Coordinator {
	return &Coordinator{
		log:       log.With("component", "PresenceCoordinator", "asset_id", assetID),
		bus:       b,
		assetID:   assetID,
		self:      Entry{UserID: userID, UserName: userName},
		registry:  NewRegistry(),
		heartbeat:     HeartbeatInterval,
		sweepEach:     HeartbeatInterval,
		reconnectWait: reconnectBase,
		reconnectMax:  reconnectCap,
		now:           time.Now,
	}
}

// Viewers returns the coordinator's current view of who is watching.
func (c *Coordinator) Viewers() []Entry {
	return c.registry.List()
}

// Join subscribes to the asset channel, announces this viewer and starts
// the heartbeat and sweep loops.
func (c *Coordinator) Join(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.joined {
		return fmt.Errorf("already joined")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	unsub, err := c.subscribeLocked(runCtx)
	if err != nil {
		cancel()
		return err
	}
	c.unsub = unsub

	c.self.LastSeen = c.now()
	c.registry.ApplyJoin([]Entry{c.self})
	if err := c.publish(ctx, Event{Kind: EventJoin, AssetID: c.assetID, Entries: []Entry{c.self}}); err != nil {
		_ = unsub()
		cancel()
		c.registry.Clear()
		return err
	}

	c.stop = cancel
	c.stopped = make(chan struct{})
	c.joined = true
	go c.run(runCtx, c.stopped)
	return nil
}

// Leave announces departure and discards all local state. Presence is never
// durable, so leaving without a successful publish still clears the view;
// peers will evict this viewer by staleness instead.
func (c *Coordinator) Leave(ctx context.Context) error {
	c.mu.Lock()
	if !c.joined {
		c.mu.Unlock()
		return nil
	}
	c.joined = false
	stop, stopped, unsub := c.stop, c.stopped, c.unsub
	c.stop, c.stopped, c.unsub = nil, nil, nil
	c.mu.Unlock()

	err := c.publish(ctx, Event{Kind: EventLeave, AssetID: c.assetID, UserIDs: []uuid.UUID{c.self.UserID}})
	stop()
	<-stopped
	if unsub != nil {
		_ = unsub()
	}
	c.registry.Clear()
	return err
}

func (c *Coordinator) subscribeLocked(ctx context.Context) (bus.StopFunc, error) {
	return c.bus.Subscribe(ctx, Channel(c.assetID), c.handlePayload)
}

func (c *Coordinator) handlePayload(payload []byte) {
	ev, err := DecodeEvent(payload)
	if err != nil {
		c.log.Warn("bad presence payload", "error", err)
		return
	}
	switch ev.Kind {
	case EventSync:
		c.registry.ApplySync(ev.Entries)
	case EventJoin:
		c.registry.ApplyJoin(ev.Entries)
	case EventLeave:
		c.registry.ApplyLeave(ev.UserIDs)
	default:
		c.log.Warn("unknown presence event kind", "kind", ev.Kind)
	}
}

func (c *Coordinator) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	heartbeat := time.NewTicker(c.heartbeat)
	sweep := time.NewTicker(c.sweepEach)
	defer heartbeat.Stop()
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			c.self.LastSeen = c.now()
			c.registry.ApplyJoin([]Entry{c.self})
			ev := Event{Kind: EventJoin, AssetID: c.assetID, Entries: []Entry{c.self}}
			if err := c.publish(ctx, ev); err != nil {
				c.log.Warn("heartbeat publish failed, reconnecting", "error", err)
				if !c.reconnect(ctx) {
					return
				}
			}
		case <-sweep.C:
			for _, id := range c.registry.Sweep(c.now()) {
				c.log.Debug("presence entry evicted as stale", "peer", id)
			}
		}
	}
}

// reconnect treats a broken channel as "no presence data": the local view
// is cleared, then the subscription is re-established under exponential
// backoff and this viewer re-announces itself. Peers repopulate the view
// within one heartbeat interval.
func (c *Coordinator) reconnect(ctx context.Context) bool {
	c.registry.Clear()
	c.mu.Lock()
	if c.unsub != nil {
		_ = c.unsub()
		c.unsub = nil
	}
	c.mu.Unlock()

	delay := c.reconnectWait
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		unsub, err := c.bus.Subscribe(ctx, Channel(c.assetID), c.handlePayload)
		if err == nil {
			c.self.LastSeen = c.now()
			c.registry.ApplyJoin([]Entry{c.self})
			join := Event{Kind: EventJoin, AssetID: c.assetID, Entries: []Entry{c.self}}
			err = c.publish(ctx, join)
			if err == nil {
				c.mu.Lock()
				c.unsub = unsub
				c.mu.Unlock()
				c.log.Info("presence channel reconnected")
				return true
			}
			_ = unsub()
		}
		c.log.Warn("presence reconnect attempt failed", "retry_in", delay, "error", err)
		delay *= 2
		if delay > c.reconnectMax {
			delay = c.reconnectMax
		}
	}
}

func (c *Coordinator) publish(ctx context.Context, ev Event) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return err
	}
	return c.bus.Publish(ctx, Channel(c.assetID), payload)
}
