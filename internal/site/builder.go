// Package site builds the blog: one page and one serialized document per post,
// a listing page and a 404 page.
//
// Every post is built on its own. A post that fails (bad source, failing plugin,
// missing date) is reported and the others are still built.
package site

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/cache"
	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/dates"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/notify"
	"git.home.luguber.info/inful/postbuilder/internal/posts"
	"git.home.luguber.info/inful/postbuilder/internal/readtime"
	"git.home.luguber.info/inful/postbuilder/internal/render"
)

// File names written inside each post directory.
const (
	PageFile     = "index.html"
	DocumentFile = "document.json"
	NotFoundFile = "404.html"
)

// Source provides post records. *posts.Store implements it.
type Source interface {
	Slugs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, slug string) (posts.Record, error)
}

// Builder builds the site. It is safe to call Build from one goroutine at a time;
// the serve command serializes rebuilds.
type Builder struct {
	source      Source
	pipeline    *content.Pipeline
	renderer    *render.Renderer
	outDir      string
	workers     int
	timeout     time.Duration
	missingDate config.MissingDatePolicy
	clean       bool
	cache       cache.Store
	publisher   notify.Publisher
	recorder    metrics.Recorder
}

// Option configures a Builder.
type Option func(*Builder)

func WithWorkers(n int) Option { return func(b *Builder) { b.workers = n } }

// WithDocumentTimeout bounds one post's transform. Zero disables the bound.
func WithDocumentTimeout(d time.Duration) Option { return func(b *Builder) { b.timeout = d } }

func WithMissingDatePolicy(p config.MissingDatePolicy) Option {
	return func(b *Builder) { b.missingDate = p }
}

// WithClean empties the output directory before building.
func WithClean(clean bool) Option { return func(b *Builder) { b.clean = clean } }

func WithCache(s cache.Store) Option { return func(b *Builder) { b.cache = s } }

func WithPublisher(p notify.Publisher) Option { return func(b *Builder) { b.publisher = p } }

func WithRecorder(r metrics.Recorder) Option { return func(b *Builder) { b.recorder = r } }

// NewBuilder creates a Builder writing into outDir.
func NewBuilder(source Source, pipeline *content.Pipeline, renderer *render.Renderer, outDir string, opts ...Option) *Builder {
	b := &Builder{
		source:      source,
		pipeline:    pipeline,
		renderer:    renderer,
		outDir:      outDir,
		workers:     4,
		missingDate: config.MissingDateNotFound,
		cache:       cache.Noop{},
		publisher:   notify.Noop{},
		recorder:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers <= 0 {
		b.workers = 1
	}
	return b
}

// OutputDir is the directory the site is written to.
func (b *Builder) OutputDir() string { return b.outDir }

// Build enumerates every slug and builds each one on the worker pool. The
// returned error is reserved for failures that stop the whole build (the
// source cannot be listed, the output directory cannot be written); per-post
// failures are in the report, see Report.Err.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := &Report{BuildID: notify.NewBuildID(), Started: time.Now()}
	log := slog.With(logfields.BuildID(report.BuildID))

	slugs, err := b.source.Slugs(ctx)
	if err != nil {
		return nil, err
	}
	if err := b.prepareOutput(); err != nil {
		return nil, err
	}
	b.recorder.SetWorkers(b.workers)
	log.Info("Starting site build", logfields.Count(len(slugs)), slog.Int("workers", b.workers))

	report.Results = b.buildAll(ctx, report.BuildID, slugs)

	if err := ctx.Err(); err != nil {
		b.recorder.IncBuildOutcome(metrics.BuildCanceled)
		return nil, derrors.WrapError(err, derrors.CategoryBuild, "build canceled").Build()
	}
	if err := b.writeIndex(report.Results); err != nil {
		return nil, err
	}
	if err := b.writeFile(filepath.Join(b.outDir, NotFoundFile), b.renderNotFound); err != nil {
		return nil, err
	}
	if n, err := b.cache.Prune(ctx, slugs); err != nil {
		log.Warn("Failed to prune cache", logfields.Error(err))
	} else if n > 0 {
		log.Debug("Pruned cache entries", logfields.Count(n))
	}

	report.Finished = time.Now()
	b.finish(ctx, log, report)
	return report, nil
}

func (b *Builder) buildAll(ctx context.Context, buildID string, slugs []string) []Result {
	results := make([]Result, len(slugs))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < b.workers && w < len(slugs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = b.BuildOne(ctx, slugs[i])
				b.publishDocument(ctx, buildID, results[i])
			}
		}()
	}

feed:
	for i := range slugs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// Slugs never reached because of cancellation are dropped from the report.
	out := results[:0]
	for _, r := range results {
		if r.Slug != "" {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// BuildOne builds the page and document for a single slug. It never panics
// and never returns an error; the outcome is in the Result.
func (b *Builder) BuildOne(ctx context.Context, slug string) (res Result) {
	start := time.Now()
	res.Slug = slug
	log := slog.With(logfields.Slug(slug))

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = derrors.InternalError("panic while building post").WithContext("panic", r).Build()
		}
		res.Duration = time.Since(start)
		b.recorder.IncDocumentOutcome(metrics.OutcomeLabel(res.Outcome))
		switch res.Outcome {
		case OutcomeFailed:
			log.Error("Post failed", logfields.Outcome(string(res.Outcome)), logfields.Error(res.Err))
		case OutcomeNotFound:
			log.Warn("Post not found", logfields.Outcome(string(res.Outcome)), logfields.Error(res.Err))
		default:
			log.Debug("Post built", logfields.Outcome(string(res.Outcome)),
				logfields.DurationMS(float64(res.Duration.Microseconds())/1000))
		}
	}()

	rec, err := b.source.Get(ctx, slug)
	if err != nil {
		res.Err = err
		res.Outcome = OutcomeFailed
		if derrors.HasCategory(err, derrors.CategoryNotFound) {
			res.Outcome = OutcomeNotFound
		}
		return res
	}

	date, err := requireDate(rec)
	if err != nil {
		res.Err = err
		if b.missingDate == config.MissingDateFail {
			res.Outcome = OutcomeFailed
			return res
		}
		res.Outcome = OutcomeNotFound
		res.Path, err = b.writeNotFoundPage(slug)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err
		}
		return res
	}
	res.date = date

	doc, cached, err := b.document(ctx, rec)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}
	res.Document = doc
	res.Outcome = OutcomeBuilt
	if cached {
		res.Outcome = OutcomeCached
	}

	res.Article, err = b.article(rec, doc)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		return res
	}
	res.Path, err = b.writePost(slug, doc, res.Article)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
	}
	return res
}

// requireDate enforces the one scope field pages cannot do without. It runs
// before the transformer, so a post without a date is never transformed.
func requireDate(rec posts.Record) (time.Time, error) {
	if !rec.HasDate() {
		return time.Time{}, &MissingRequiredField{Field: posts.FieldDate}
	}
	t, err := dates.Parse(*rec.Date)
	if err != nil {
		return time.Time{}, &MissingRequiredField{Field: posts.FieldDate, Err: err}
	}
	return t, nil
}

// document returns the serialized document for rec, from the cache when the
// source, scope and pipeline are unchanged.
func (b *Builder) document(ctx context.Context, rec posts.Record) (*content.Document, bool, error) {
	src, scope := rec.Source(), rec.Scope()

	key := cache.Key{Slug: rec.Slug, Signature: b.pipeline.Signature()}
	fp, err := cache.Fingerprint(src, scope)
	if err != nil {
		slog.Warn("Failed to fingerprint post; cache bypassed", logfields.Slug(rec.Slug), logfields.Error(err))
	} else {
		key.Fingerprint = fp
		if doc, ok := b.cached(ctx, key); ok {
			return doc, true, nil
		}
	}

	start := time.Now()
	doc, err := b.transform(ctx, src, scope)
	b.recorder.ObserveTransformDuration(string(src.Kind), time.Since(start))
	if err != nil {
		return nil, false, err
	}

	if key.Fingerprint != "" {
		if err := b.cache.Put(ctx, key, doc.Bytes()); err != nil {
			slog.Warn("Failed to cache document", logfields.Slug(rec.Slug), logfields.Error(err))
		}
	}
	return doc, false, nil
}

func (b *Builder) cached(ctx context.Context, key cache.Key) (*content.Document, bool) {
	data, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache lookup failed", logfields.Slug(key.Slug), logfields.Error(err))
	}
	if !ok || err != nil {
		b.recorder.IncCacheResult(false)
		return nil, false
	}
	doc, err := content.Decode(data)
	if err != nil {
		slog.Warn("Discarding unreadable cache entry", logfields.Slug(key.Slug), logfields.Error(err))
		b.recorder.IncCacheResult(false)
		return nil, false
	}
	b.recorder.IncCacheResult(true)
	return doc, true
}

type transformResult struct {
	doc *content.Document
	err error
}

// transform runs the pipeline under the document timeout. The pipeline itself
// cannot be interrupted; on timeout its goroutine finishes in the background
// and the result is discarded.
func (b *Builder) transform(ctx context.Context, src content.Source, scope content.Scope) (*content.Document, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	done := make(chan transformResult, 1)
	go func() {
		doc, err := b.pipeline.Transform(src, scope)
		done <- transformResult{doc: doc, err: err}
	}()

	select {
	case r := <-done:
		return r.doc, content.Classify(r.err)
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, derrors.WrapError(ctx.Err(), derrors.CategoryBuild, "transform timed out").
				WithContext("timeout", b.timeout.String()).Build()
		}
		return nil, ctx.Err()
	}
}

func (b *Builder) article(rec posts.Record, doc *content.Document) (render.Article, error) {
	body, err := render.Hydrate(doc)
	if err != nil {
		return render.Article{}, err
	}
	formatted, err := dates.Format(*rec.Date)
	if err != nil {
		return render.Article{}, err
	}
	iso, err := dates.ISO(*rec.Date)
	if err != nil {
		return render.Article{}, err
	}
	a := render.Article{
		Slug:          rec.Slug,
		Title:         rec.Title,
		Description:   rec.Description,
		ISODate:       iso,
		FormattedDate: formatted,
		Tags:          rec.Tags,
		ReadTime:      readtime.Label(readtime.Minutes(rec.Body)),
		Content:       body,
	}
	if rec.ImageURL != nil {
		a.ImageURL = *rec.ImageURL
	}
	return a, nil
}

// postDir maps a slug to its output directory, mirroring the site URL.
func (b *Builder) postDir(slug string) string {
	rel := strings.TrimPrefix(b.renderer.PostPath(slug), "/")
	return filepath.Join(b.outDir, filepath.FromSlash(rel))
}

func (b *Builder) writePost(slug string, doc *content.Document, a render.Article) (string, error) {
	dir := b.postDir(slug)
	page := filepath.Join(dir, PageFile)
	if err := b.writeFile(page, func(buf *bytes.Buffer) error { return b.renderer.Page(buf, a) }); err != nil {
		return "", err
	}
	if err := b.writeFile(filepath.Join(dir, DocumentFile), func(buf *bytes.Buffer) error {
		_, err := buf.Write(doc.Bytes())
		return err
	}); err != nil {
		return "", err
	}
	return page, nil
}

func (b *Builder) writeNotFoundPage(slug string) (string, error) {
	page := filepath.Join(b.postDir(slug), PageFile)
	return page, b.writeFile(page, b.renderNotFound)
}

func (b *Builder) renderNotFound(buf *bytes.Buffer) error { return b.renderer.NotFound(buf) }

// writeIndex renders the listing of every post that produced a page, newest first.
func (b *Builder) writeIndex(results []Result) error {
	var ok []Result
	for _, r := range results {
		if r.OK() {
			ok = append(ok, r)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool {
		if !ok[i].date.Equal(ok[j].date) {
			return ok[i].date.After(ok[j].date)
		}
		return ok[i].Slug < ok[j].Slug
	})
	articles := make([]render.Article, 0, len(ok))
	for _, r := range ok {
		articles = append(articles, r.Article)
	}
	path := filepath.Join(b.postDir(""), PageFile)
	return b.writeFile(path, func(buf *bytes.Buffer) error { return b.renderer.Index(buf, articles) })
}

// writeFile renders into memory first so a failed render leaves no partial file.
func (b *Builder) writeFile(path string, fill func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := fill(&buf); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", filepath.Dir(path)).Build()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write output file").
			WithContext("path", path).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to move output file into place").
			WithContext("path", path).Build()
	}
	return nil
}

func (b *Builder) prepareOutput() error {
	if b.clean {
		if err := os.RemoveAll(b.outDir); err != nil {
			return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to clean output directory").
				WithContext("path", b.outDir).Build()
		}
	}
	if err := os.MkdirAll(b.outDir, 0o750); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create output directory").
			WithContext("path", b.outDir).Build()
	}
	return nil
}

func (b *Builder) publishDocument(ctx context.Context, buildID string, r Result) {
	ev := notify.DocumentEvent{
		BuildID:    buildID,
		Slug:       r.Slug,
		Outcome:    string(r.Outcome),
		DurationMS: float64(r.Duration.Microseconds()) / 1000,
		Timestamp:  time.Now().UTC(),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	if r.OK() {
		ev.URL = b.renderer.URL(b.renderer.PostPath(r.Slug))
	}
	if err := b.publisher.PublishDocument(ctx, ev); err != nil {
		slog.Warn("Failed to publish document event", logfields.Slug(r.Slug), logfields.Error(err))
	}
}

func (b *Builder) finish(ctx context.Context, log *slog.Logger, report *Report) {
	outcome := report.Outcome()
	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(outcome)

	tally := report.Counts()
	counts := make(map[string]int, len(tally))
	attrs := []any{logfields.Outcome(string(outcome)), logfields.DurationMS(float64(report.Duration().Milliseconds()))}
	for _, o := range []Outcome{OutcomeBuilt, OutcomeCached, OutcomeNotFound, OutcomeFailed} {
		counts[string(o)] = tally[o]
		attrs = append(attrs, slog.Int(string(o), tally[o]))
	}
	log.Info("Site build finished", attrs...)

	ev := notify.BuildEvent{
		BuildID:    report.BuildID,
		Outcome:    string(outcome),
		Counts:     counts,
		DurationMS: float64(report.Duration().Milliseconds()),
		Timestamp:  report.Finished.UTC(),
	}
	if err := b.publisher.PublishBuild(ctx, ev); err != nil {
		log.Warn("Failed to publish build event", logfields.Error(err))
	}
}
