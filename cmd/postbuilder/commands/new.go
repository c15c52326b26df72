package commands

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	"git.home.luguber.info/inful/postbuilder/internal/content/plugins"
	"git.home.luguber.info/inful/postbuilder/internal/posts"
)

// NewCmd implements the 'new' command.
type NewCmd struct {
	Title       string   `arg:"" help:"Post title"`
	Slug        string   `help:"File name without extension (derived from the title when empty)"`
	Description string   `short:"d" help:"Short description"`
	Tags        []string `short:"t" help:"Tags (repeatable or comma separated)"`
	Date        string   `help:"Publication date (defaults to today)"`
	MDX         bool     `name:"mdx" help:"Create an .mdx post instead of .md"`
}

func (n *NewCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfigOrDefault()
	if err != nil {
		return err
	}
	slug := n.Slug
	if slug == "" {
		slug = plugins.Slugify(n.Title)
	}
	date := n.Date
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}
	kind := content.KindMarkdown
	if n.MDX {
		kind = content.KindMDX
	}

	path, err := posts.NewStore(cfg.Content.Dir).Create(context.Background(), posts.Draft{
		Slug:        slug,
		Kind:        kind,
		Title:       n.Title,
		Description: n.Description,
		Date:        date,
		Tags:        n.Tags,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(g.out(), "Created %s\n", path)
	return err
}
