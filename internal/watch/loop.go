// Package watch turns file changes and schedules into serialized rebuilds.
package watch

import (
	"context"
	"sync"
)

// Request asks for one rebuild.
type Request struct {
	Reason string
	Sync   bool // refresh the content repository first
}

// RunFunc performs one rebuild.
type RunFunc func(ctx context.Context, req Request)

// Loop runs rebuild requests one at a time. Requests arriving while a rebuild
// runs collapse into exactly one follow-up; a pending request that asks for a
// sync keeps asking for it.
type Loop struct {
	run    RunFunc
	wake   chan struct{}
	mu     sync.Mutex
	next   *Request
	closed bool
}

// NewLoop creates a Loop that calls run.
func NewLoop(run RunFunc) *Loop {
	return &Loop{run: run, wake: make(chan struct{}, 1)}
}

// Request queues a rebuild without blocking.
func (l *Loop) Request(req Request) {
	l.mu.Lock()
	if l.next == nil {
		l.next = &req
	} else {
		l.next.Reason = req.Reason
		l.next.Sync = l.next.Sync || req.Sync
	}
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes requests until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
		l.mu.Lock()
		req := l.next
		l.next = nil
		l.mu.Unlock()
		if req != nil {
			l.run(ctx, *req)
		}
	}
}
