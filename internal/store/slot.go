package store

import "context"

// Slot is a single-owner byte-blob store: one logical key, whole-value
// reads and writes. Load returns (nil, nil) when the slot has never been
// written. Implementations must not retain the data slice after Store
// returns.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, data []byte) error
}

// Pinger is implemented by slots with an external backend that can be
// probed for connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
