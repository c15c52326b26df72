package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/postbuilder/internal/content/plugins"
	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

// PluginsCmd implements the 'plugins' command.
type PluginsCmd struct{}

func (p *PluginsCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfigOrDefault()
	if err != nil {
		return err
	}
	reg := plugins.Builtin()
	out := g.out()

	_, _ = fmt.Fprintln(out, "Available plugins:")
	for _, d := range reg.Descriptors() {
		_, _ = fmt.Fprintf(out, "  %-16s %s\n", d.Name, d.Description)
	}

	specs := cfg.Pipeline.Specs()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	_, _ = fmt.Fprintf(out, "\nConfigured order: %s\n", strings.Join(names, " -> "))

	result := reg.Validate(names)
	for _, w := range result.Warnings {
		_, _ = fmt.Fprintf(out, "  warning: %s\n", w)
	}
	for _, e := range result.Errors {
		_, _ = fmt.Fprintf(out, "  error: %s\n", e)
	}
	if !result.Valid {
		return derrors.ConfigError("pipeline configuration is invalid").
			WithContext("errors", result.Errors).UserAction().Build()
	}
	if len(result.Warnings) > 0 {
		if rec, err := reg.Recommend(names); err == nil {
			_, _ = fmt.Fprintf(out, "Recommended order: %s\n", strings.Join(rec, " -> "))
		}
	}
	return nil
}
