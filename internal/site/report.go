package site

import (
	"sort"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/render"
)

// Outcome is the result of building one post.
type Outcome string

const (
	OutcomeBuilt    Outcome = "built"
	OutcomeCached   Outcome = "cached"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Result records what happened to one slug.
type Result struct {
	Slug     string
	Outcome  Outcome
	Err      error
	Duration time.Duration
	Path     string            // page written for the slug, if any
	Document *content.Document // nil unless built or cached
	Article  render.Article
	date     time.Time
}

// OK reports whether the post produced a page.
func (r Result) OK() bool { return r.Outcome == OutcomeBuilt || r.Outcome == OutcomeCached }

// Report summarizes a whole build. Results are sorted by slug.
type Report struct {
	BuildID  string
	Started  time.Time
	Finished time.Time
	Results  []Result
}

// Duration is the wall time of the build.
func (r *Report) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// Counts tallies results per outcome.
func (r *Report) Counts() map[Outcome]int {
	counts := map[Outcome]int{OutcomeBuilt: 0, OutcomeCached: 0, OutcomeNotFound: 0, OutcomeFailed: 0}
	for _, res := range r.Results {
		counts[res.Outcome]++
	}
	return counts
}

// Failed returns the results with outcome failed.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for slug.
func (r *Report) Result(slug string) (Result, bool) {
	i := sort.Search(len(r.Results), func(i int) bool { return r.Results[i].Slug >= slug })
	if i < len(r.Results) && r.Results[i].Slug == slug {
		return r.Results[i], true
	}
	return Result{}, false
}

// Outcome classifies the build as a whole.
func (r *Report) Outcome() metrics.BuildOutcomeLabel {
	failed := len(r.Failed())
	switch {
	case failed == 0:
		return metrics.BuildSuccess
	case failed == len(r.Results):
		return metrics.BuildFailed
	default:
		return metrics.BuildPartial
	}
}

// Err returns a build error when at least one document failed.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	slugs := make([]string, 0, len(failed))
	for _, f := range failed {
		slugs = append(slugs, f.Slug)
	}
	return derrors.BuildError("one or more posts failed to build").
		WithContext("failed", len(failed)).
		WithContext("slugs", slugs).
		Build()
}
