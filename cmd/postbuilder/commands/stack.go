package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/postbuilder/internal/cache"
	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/content/plugins"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/gitsource"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/notify"
	"git.home.luguber.info/inful/postbuilder/internal/posts"
	"git.home.luguber.info/inful/postbuilder/internal/render"
	"git.home.luguber.info/inful/postbuilder/internal/site"
)

// stack is everything a build needs, assembled from configuration.
type stack struct {
	cfg       *config.Config
	store     *posts.Store
	builder   *site.Builder
	syncer    *gitsource.Syncer // nil for local content
	cache     cache.Store
	publisher notify.Publisher
}

func newPipeline(cfg *config.Config, recorder metrics.Recorder) (*content.Pipeline, error) {
	list, err := plugins.Builtin().Build(cfg.Pipeline.Specs())
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "invalid pipeline configuration").UserAction().Build()
	}
	p, err := content.NewPipeline(list, content.WithObserver(recorder))
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryConfig, "invalid pipeline configuration").UserAction().Build()
	}
	return p, nil
}

func newRenderer(sc config.SiteConfig) (*render.Renderer, error) {
	return render.NewRenderer(render.Site{
		Title:         sc.Title,
		Description:   sc.Description,
		BaseURL:       sc.BaseURL,
		Author:        sc.Author,
		TwitterHandle: sc.TwitterHandle,
		Locale:        sc.Locale,
		PrismThemeURL: sc.PrismThemeURL,
		BlogPath:      sc.BlogPath,
	})
}

func newStack(cfg *config.Config, recorder metrics.Recorder) (_ *stack, err error) {
	s := &stack{cfg: cfg, store: posts.NewStore(cfg.Content.Dir), cache: cache.Noop{}, publisher: notify.Noop{}}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	pipeline, err := newPipeline(cfg, recorder)
	if err != nil {
		return nil, err
	}
	renderer, err := newRenderer(cfg.Site)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Enabled {
		store, err := cache.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		s.cache = store
	}
	if cfg.Notify.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			return nil, err
		}
		s.publisher = pub
	}
	if cfg.Content.Repository != nil {
		s.syncer = gitsource.NewSyncer(*cfg.Content.Repository, recorder)
	}

	s.builder = site.NewBuilder(s.store, pipeline, renderer, cfg.Output.Directory,
		site.WithWorkers(cfg.Build.Workers),
		site.WithDocumentTimeout(cfg.Build.Timeout()),
		site.WithMissingDatePolicy(cfg.Build.MissingDate),
		site.WithClean(cfg.Output.Clean),
		site.WithCache(s.cache),
		site.WithPublisher(s.publisher),
		site.WithRecorder(recorder),
	)
	return s, nil
}

// runnerSyncer returns the syncer as a site.Syncer, keeping a nil pointer
// from becoming a non-nil interface.
func (s *stack) runnerSyncer() site.Syncer {
	if s.syncer == nil {
		return nil
	}
	return s.syncer
}

// Close releases the cache and publisher.
func (s *stack) Close() {
	if err := s.cache.Close(); err != nil {
		slog.Warn("Failed to close cache", logfields.Error(err))
	}
	if err := s.publisher.Close(); err != nil {
		slog.Warn("Failed to close publisher", logfields.Error(err))
	}
}
