package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/postbuilder/internal/config"
)

// Global carries state shared by every subcommand.
type Global struct {
	Stdout io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

// CLI is the root command with its global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"postbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Build the blog into the output directory"`
	Serve     ServeCmd     `cmd:"" help:"Build, then serve the site and rebuild on changes"`
	List      ListCmd      `cmd:"" help:"List posts with their dates and titles"`
	Transform TransformCmd `cmd:"" help:"Transform one post file and print the document JSON"`
	Plugins   PluginsCmd   `cmd:"" help:"List content plugins and check the configured order"`
	New       NewCmd       `cmd:"" help:"Scaffold a new post"`
	Init      InitCmd      `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; it installs a default logger until a
// configuration is loaded.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	slog.SetDefault(newLogger(config.LoggingConfig{Level: level, Format: config.LogFormatText}, c.Verbose))
	return nil
}

// loadConfig loads the configuration file and applies its logging section.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Logging, c.Verbose))
	return cfg, nil
}

// loadConfigOrDefault is loadConfig for commands that also work without a
// configuration file.
func (c *CLI) loadConfigOrDefault() (*config.Config, error) {
	if _, err := os.Stat(c.Config); os.IsNotExist(err) {
		slog.Debug("No configuration file, using defaults", "path", c.Config)
		return config.Default(), nil
	}
	return c.loadConfig()
}

func newLogger(lc config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch config.NormalizeLogLevel(string(lc.Level)) {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	case config.LogLevelInfo:
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if config.NormalizeLogFormat(string(lc.Format)) == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
