package presence

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func entry(name string, lastSeen time.Time) Entry {
	return Entry{UserID: uuid.New(), UserName: name, LastSeen: lastSeen}
}

func TestRegistryJoinUpsertsAndRefreshes(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	a := entry("ana", now)
	r.ApplyJoin([]Entry{a})
	if r.Len() != 1 {
		t.Fatalf("join should add: len=%d", r.Len())
	}

	a.LastSeen = now.Add(10 * time.Second)
	r.ApplyJoin([]Entry{a})
	if r.Len() != 1 {
		t.Fatalf("heartbeat must upsert, not duplicate: len=%d", r.Len())
	}
	if got := r.List()[0].LastSeen; !got.Equal(a.LastSeen) {
		t.Fatalf("heartbeat must refresh last_seen: got=%v", got)
	}
}

func TestRegistrySyncReplacesView(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.ApplyJoin([]Entry{entry("ana", now), entry("bo", now)})
	authoritative := []Entry{entry("cleo", now)}
	r.ApplySync(authoritative)
	got := r.List()
	if len(got) != 1 || got[0].UserName != "cleo" {
		t.Fatalf("sync must fully replace the view, got %+v", got)
	}
}

func TestRegistryLeaveRemovesByUserID(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	a, b := entry("ana", now), entry("bo", now)
	r.ApplyJoin([]Entry{a, b})
	r.ApplyLeave([]uuid.UUID{a.UserID})
	got := r.List()
	if len(got) != 1 || got[0].UserID != b.UserID {
		t.Fatalf("leave should remove only the named user, got %+v", got)
	}
}

func TestSweepEvictsOnlyStaleEntries(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	fresh := entry("fresh", now.Add(-30*time.Second)) // exactly at the limit: retained
	stale := entry("stale", now.Add(-31*time.Second))
	r.ApplyJoin([]Entry{fresh, stale})

	evicted := r.Sweep(now)
	if len(evicted) != 1 || evicted[0] != stale.UserID {
		t.Fatalf("sweep evicted the wrong set: %v", evicted)
	}
	got := r.List()
	if len(got) != 1 || got[0].UserID != fresh.UserID {
		t.Fatalf("entry aged exactly 30s must be retained, got %+v", got)
	}
}

func TestListIsSortedByName(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.ApplyJoin([]Entry{entry("zoe", now), entry("ana", now), entry("mia", now)})
	got := r.List()
	if got[0].UserName != "ana" || got[1].UserName != "mia" || got[2].UserName != "zoe" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestEventCodecRoundTrip(t *testing.T) {
	ev := Event{
		Kind:    EventJoin,
		AssetID: uuid.New(),
		Entries: []Entry{entry("ana", time.Now().UTC().Truncate(time.Millisecond))},
	}
	payload, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.Kind != ev.Kind || back.AssetID != ev.AssetID || len(back.Entries) != 1 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.Entries[0].UserID != ev.Entries[0].UserID {
		t.Fatalf("entry user mismatch")
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte("not json")); err == nil {
		t.Fatalf("garbage payload must error")
	}
}
