package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/postbuilder/internal/content"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
	"git.home.luguber.info/inful/postbuilder/internal/posts"
)

// TransformCmd implements the 'transform' command.
type TransformCmd struct {
	File string `arg:"" type:"existingfile" help:"Post file (.md or .mdx)"`
	Kind string `help:"Force the content kind (md or mdx) instead of using the file extension"`
}

func (t *TransformCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfigOrDefault()
	if err != nil {
		return err
	}
	// #nosec G304 -- the file is chosen by the user on the command line.
	raw, err := os.ReadFile(t.File)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read post").
			WithContext("path", t.File).Build()
	}
	rec, err := posts.Parse(raw)
	if err != nil {
		return err
	}
	rec.Kind = content.KindFromPath(t.File)
	if t.Kind != "" {
		if rec.Kind, err = content.ParseKind(t.Kind); err != nil {
			return derrors.WrapError(err, derrors.CategoryValidation, "invalid --kind").UserAction().Build()
		}
	}

	pipeline, err := newPipeline(cfg, metrics.NoopRecorder{})
	if err != nil {
		return err
	}
	doc, err := pipeline.Transform(rec.Source(), rec.Scope())
	if err != nil {
		return content.Classify(err)
	}
	_, err = fmt.Fprintln(g.out(), string(doc.Bytes()))
	return err
}
