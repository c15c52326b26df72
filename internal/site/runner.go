package site

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/gitsource"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

// Syncer refreshes the content directory before a build. *gitsource.Syncer implements it.
type Syncer interface {
	Sync(ctx context.Context) (gitsource.Result, error)
}

// Status describes the most recent run.
type Status struct {
	Running  bool
	Reason   string
	Commit   string
	Finished time.Time
	Report   *Report
	Err      error
}

// Runner serializes builds triggered from several places (file watcher,
// schedule, HTTP) and remembers the last result.
type Runner struct {
	builder *Builder
	syncer  Syncer

	run   sync.Mutex // held for the duration of one build
	mu    sync.RWMutex
	state Status
}

// NewRunner creates a Runner. syncer may be nil when content is local.
func NewRunner(builder *Builder, syncer Syncer) *Runner {
	return &Runner{builder: builder, syncer: syncer}
}

// Run optionally syncs the content repository, then builds the site. Calls
// block while another run is in progress.
func (r *Runner) Run(ctx context.Context, reason string, syncContent bool) (*Report, error) {
	r.run.Lock()
	defer r.run.Unlock()

	r.mu.Lock()
	r.state.Running = true
	r.state.Reason = reason
	r.mu.Unlock()

	log := slog.With(logfields.Reason(reason))
	commit := ""
	var report *Report
	var err error
	if syncContent && r.syncer != nil {
		var res gitsource.Result
		res, err = r.syncer.Sync(ctx)
		commit = res.Commit
		if err != nil {
			log.Error("Content sync failed", logfields.Error(err))
		}
	}
	if err == nil {
		report, err = r.builder.Build(ctx)
	}
	if err != nil {
		log.Error("Site build failed", logfields.Error(err))
	}

	r.mu.Lock()
	// A run without a sync keeps reporting the commit the content came from.
	if commit == "" {
		commit = r.state.Commit
	}
	r.state = Status{Reason: reason, Commit: commit, Finished: time.Now(), Report: report, Err: err}
	r.mu.Unlock()
	return report, err
}

// Status returns a snapshot of the last run.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}
