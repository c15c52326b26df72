package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/postbuilder/internal/posts"
)

// ListCmd implements the 'list' command.
type ListCmd struct{}

func (l *ListCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfigOrDefault()
	if err != nil {
		return err
	}
	ctx := context.Background()
	store := posts.NewStore(cfg.Content.Dir)
	slugs, err := store.Slugs(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SLUG\tDATE\tTITLE")
	for _, slug := range slugs {
		rec, err := store.Get(ctx, slug)
		if err != nil {
			_, _ = fmt.Fprintf(tw, "%s\t-\t(error: %v)\n", slug, err)
			continue
		}
		date := "-"
		if rec.HasDate() {
			date = *rec.Date
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", slug, date, rec.Title)
	}
	return tw.Flush()
}
