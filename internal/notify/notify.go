// Package notify publishes build events so other systems can react to new or
// changed posts (cache purges, social posting, search indexing).
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DocumentEvent reports the outcome of one post within a build.
type DocumentEvent struct {
	BuildID    string    `json:"build_id"`
	Slug       string    `json:"slug"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	URL        string    `json:"url,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// BuildEvent summarizes a finished build.
type BuildEvent struct {
	BuildID    string         `json:"build_id"`
	Outcome    string         `json:"outcome"`
	Counts     map[string]int `json:"counts"`
	DurationMS float64        `json:"duration_ms"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Publisher sends build events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishDocument(ctx context.Context, ev DocumentEvent) error
	PublishBuild(ctx context.Context, ev BuildEvent) error
	Close() error
}

// NewBuildID returns a fresh identifier for one build run.
func NewBuildID() string { return uuid.NewString() }

// Noop discards every event.
type Noop struct{}

func (Noop) PublishDocument(context.Context, DocumentEvent) error { return nil }
func (Noop) PublishBuild(context.Context, BuildEvent) error       { return nil }
func (Noop) Close() error                                         { return nil }

// Memory keeps events in memory; used by tests and the preview server status page.
type Memory struct {
	mu        sync.Mutex
	documents []DocumentEvent
	builds    []BuildEvent
}

func (m *Memory) PublishDocument(_ context.Context, ev DocumentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents = append(m.documents, ev)
	return nil
}

func (m *Memory) PublishBuild(_ context.Context, ev BuildEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds = append(m.builds, ev)
	return nil
}

func (m *Memory) Close() error { return nil }

// Documents returns a copy of the recorded document events.
func (m *Memory) Documents() []DocumentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DocumentEvent(nil), m.documents...)
}

// Builds returns a copy of the recorded build events.
func (m *Memory) Builds() []BuildEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]BuildEvent(nil), m.builds...)
}

// LastBuild returns the most recent build event.
func (m *Memory) LastBuild() (BuildEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.builds) == 0 {
		return BuildEvent{}, false
	}
	return m.builds[len(m.builds)-1], true
}
