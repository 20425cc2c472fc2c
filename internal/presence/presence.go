// Package presence implements the ephemeral who-is-viewing protocol: a
// per-asset registry of viewers reconciled through sync/join/leave events,
// kept alive by heartbeats and pruned by a staleness sweep. Nothing here is
// ever persisted.
package presence

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventSync  EventKind = "sync"
	EventJoin  EventKind = "join"
	EventLeave EventKind = "leave"
)

const (
	// HeartbeatInterval is how often a viewer republishes itself; the sweep
	// runs on the same cadence.
	HeartbeatInterval = 10 * time.Second
	// StaleAfter evicts an entry after roughly three missed heartbeats.
	StaleAfter = 30 * time.Second
)

type Entry struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	LastSeen time.Time `json:"last_seen"`
}

type Event struct {
	Kind    EventKind   `json:"kind"`
	AssetID uuid.UUID   `json:"asset_id"`
	Entries []Entry     `json:"entries,omitempty"`
	UserIDs []uuid.UUID `json:"user_ids,omitempty"`
}

// Channel names the per-asset pub/sub channel.
func Channel(assetID uuid.UUID) string {
	return "presence:" + assetID.String()
}

func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(payload, &ev)
	return ev, err
}

// Registry is one client's local view of an asset's viewers, keyed by
// user_id. It is safe for concurrent use by the heartbeat, sweep and
// subscription goroutines.
type Registry struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]Entry)}
}

// ApplySync replaces the whole view with the authoritative set.
func (r *Registry) ApplySync(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[uuid.UUID]Entry, len(entries))
	for _, e := range entries {
		r.entries[e.UserID] = e
	}
}

// ApplyJoin upserts entries; a heartbeat is a join for an already known
// user and just refreshes last_seen.
func (r *Registry) ApplyJoin(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.UserID] = e
	}
}

// ApplyLeave removes by user_id.
func (r *Registry) ApplyLeave(userIDs []uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range userIDs {
		delete(r.entries, id)
	}
}

// Sweep evicts entries whose last_seen age exceeds StaleAfter and returns
// the evicted ids.
func (r *Registry) Sweep(now time.Time) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []uuid.UUID
	for id, e := range r.entries {
		if now.Sub(e.LastSeen) > StaleAfter {
			delete(r.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// Clear drops the whole local view; used on disconnect, where stale data
// must not be shown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[uuid.UUID]Entry)
}

// List returns the current viewers ordered by name for stable display.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserName != out[j].UserName {
			return out[i].UserName < out[j].UserName
		}
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
