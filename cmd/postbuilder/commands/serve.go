package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/posts"
	"git.home.luguber.info/inful/postbuilder/internal/server"
	"git.home.luguber.info/inful/postbuilder/internal/site"
	"git.home.luguber.info/inful/postbuilder/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr    string `help:"Override server.addr"`
	NoWatch bool   `name:"no-watch" help:"Do not rebuild when post files change"`
}

func (c *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	s, err := newStack(cfg, recorder)
	if err != nil {
		return err
	}
	defer s.Close()

	runner := site.NewRunner(s.builder, s.runnerSyncer())
	if _, err := runner.Run(ctx, "startup", true); err != nil {
		slog.Warn("Initial build failed; serving the previous output", logfields.Error(err))
	}

	loop := watch.NewLoop(func(ctx context.Context, req watch.Request) {
		_, _ = runner.Run(ctx, req.Reason, req.Sync)
	})

	var sched *watch.Scheduler
	if cfg.Server.SyncSchedule != "" && s.syncer != nil {
		sched, err = watch.NewScheduler(cfg.Server.SyncSchedule, func() {
			loop.Request(watch.Request{Reason: "schedule", Sync: true})
		})
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { _ = sched.Stop() }()
	}

	opts := server.Options{Addr: cfg.Server.Addr, Dir: cfg.Output.Directory}
	if cfg.Server.Metrics {
		opts.Metrics = metrics.HTTPHandler(reg)
	}
	srv := server.New(opts, runner)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loop.Run(gctx)
		return nil
	})
	if cfg.Server.Watch && !c.NoWatch {
		w := watch.NewWatcher(cfg.Content.Dir, cfg.Server.DebounceInterval(), posts.Extensions...)
		g.Go(func() error {
			return w.Run(gctx, func() { loop.Request(watch.Request{Reason: "watch"}) })
		})
	}
	g.Go(func() error { return srv.ListenAndServe(gctx) })

	err = g.Wait()
	slog.Info("Server stopped")
	return err
}
