// Package cache stores serialized documents keyed by what produced them.
//
// A document is a pure function of its source, its scope and the pipeline that
// transformed it, so an entry is addressed by the content fingerprint of the
// first two plus the pipeline signature. A hit returns the exact bytes stored.
package cache

import "context"

// Key addresses one cached document.
type Key struct {
	Slug        string
	Fingerprint string
	Signature   string
}

// Store defines the interface for persisting serialized documents.
type Store interface {
	// Get returns the stored bytes for key, or ok=false on a miss.
	Get(ctx context.Context, key Key) (data []byte, ok bool, err error)

	// Put stores data for key, replacing older entries for the same slug.
	Put(ctx context.Context, key Key, data []byte) error

	// Prune removes entries whose slug is not in keep.
	Prune(ctx context.Context, keep []string) (int, error)

	// Close releases resources.
	Close() error
}

// Noop is a Store that never hits.
type Noop struct{}

func (Noop) Get(context.Context, Key) ([]byte, bool, error) { return nil, false, nil }
func (Noop) Put(context.Context, Key, []byte) error         { return nil }
func (Noop) Prune(context.Context, []string) (int, error)   { return 0, nil }
func (Noop) Close() error                                   { return nil }
