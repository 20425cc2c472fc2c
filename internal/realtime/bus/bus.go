// Package bus abstracts the pub/sub transport behind the presence protocol
// so the protocol itself stays transport-agnostic. Production uses Redis;
// single-node deployments and tests use the in-process bus.
package bus

import "context"

// StopFunc tears down one subscription.
type StopFunc func() error

type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string, onMsg func(payload []byte)) (StopFunc, error)
	Close() error
}
