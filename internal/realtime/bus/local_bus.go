package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/framepoint/framepoint-backend/internal/platform/logger"
)

type localSub struct {
	outbound chan []byte
	done     chan struct{}
	once     sync.Once
}

func (s *localSub) stop() {
	s.once.Do(func() { close(s.done) })
}

// localBus is an in-process fan-out used when no Redis address is
// configured. Each subscriber drains its own buffered channel, so delivery
// order is preserved per subscriber and a slow handler cannot block a
// publisher; overflow is dropped, matching the at-most-once guarantees of
// the presence protocol.
type localBus struct {
	log    *logger.Logger
	mu     sync.RWMutex
	subs   map[string]map[*localSub]bool
	closed bool
}

func NewLocalBus(log *logger.Logger) Bus {
	return &localBus{
		log:  log.With("service", "LocalBus"),
		subs: make(map[string]map[*localSub]bool),
	}
}

func (b *localBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if strings.TrimSpace(channel) == "" {
		return fmt.Errorf("channel required")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("bus closed")
	}
	for sub := range b.subs[channel] {
		msg := make([]byte, len(payload))
		copy(msg, payload)
		select {
		case sub.outbound <- msg:
		default:
			b.log.Warn("dropping message for slow subscriber", "channel", channel)
		}
	}
	return nil
}

func (b *localBus) Subscribe(ctx context.Context, channel string, onMsg func(payload []byte)) (StopFunc, error) {
	if onMsg == nil {
		return nil, fmt.Errorf("onMsg callback required")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, fmt.Errorf("channel required")
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("bus closed")
	}
	sub := &localSub{
		outbound: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	clients, ok := b.subs[channel]
	if !ok {
		clients = make(map[*localSub]bool)
		b.subs[channel] = clients
	}
	clients[sub] = true
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case msg := <-sub.outbound:
				onMsg(msg)
			}
		}
	}()

	stop := func() error {
		sub.stop()
		b.mu.Lock()
		defer b.mu.Unlock()
		if clients, ok := b.subs[channel]; ok {
			delete(clients, sub)
			if len(clients) == 0 {
				delete(b.subs, channel)
			}
		}
		return nil
	}
	return stop, nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, clients := range b.subs {
		for sub := range clients {
			sub.stop()
		}
	}
	b.closed = true
	b.subs = make(map[string]map[*localSub]bool)
	return nil
}
