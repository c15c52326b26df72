package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Override output.directory"`
	NoSync bool   `name:"no-sync" help:"Build from the existing checkout without fetching the content repository"`
	Clean  bool   `help:"Remove the output directory before building"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Clean {
		cfg.Output.Clean = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, err := newStack(cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.syncer != nil && !b.NoSync {
		res, err := s.syncer.Sync(ctx)
		if err != nil {
			return err
		}
		slog.Info("Content ready", logfields.Path(res.Path), slog.String("commit", res.Commit))
	}

	report, err := s.builder.Build(ctx)
	if err != nil {
		return err
	}
	printReport(g.out(), report)
	return report.Err()
}

func printReport(w io.Writer, r *site.Report) {
	counts := r.Counts()
	_, _ = fmt.Fprintf(w, "Built %d posts in %s: %d built, %d cached, %d not found, %d failed\n",
		len(r.Results), r.Duration().Round(time.Millisecond),
		counts[site.OutcomeBuilt], counts[site.OutcomeCached], counts[site.OutcomeNotFound], counts[site.OutcomeFailed])
	for _, f := range r.Failed() {
		_, _ = fmt.Fprintf(w, "  FAILED %s: %v\n", f.Slug, f.Err)
	}
}
