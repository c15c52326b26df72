package config

import (
	"path/filepath"
	"strings"
)

// DefaultApplier applies defaults for one configuration section.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

type siteDefaults struct{}

func (siteDefaults) Domain() string { return "site" }

func (siteDefaults) ApplyDefaults(cfg *Config) error {
	s := &cfg.Site
	if s.Title == "" {
		s.Title = "Blog"
	}
	if s.Locale == "" {
		s.Locale = "en_US"
	}
	if s.BlogPath == "" {
		s.BlogPath = "/blog"
	}
	if !strings.HasPrefix(s.BlogPath, "/") {
		s.BlogPath = "/" + s.BlogPath
	}
	s.BlogPath = strings.TrimSuffix(s.BlogPath, "/")
	if s.PrismThemeURL == "" {
		s.PrismThemeURL = "/prism-theme.css"
	}
	s.BaseURL = strings.TrimSuffix(s.BaseURL, "/")
	return nil
}

type contentDefaults struct{}

func (contentDefaults) Domain() string { return "content" }

func (contentDefaults) ApplyDefaults(cfg *Config) error {
	repo := cfg.Content.Repository
	if repo != nil {
		if repo.Workspace == "" {
			repo.Workspace = filepath.Join(".postbuilder", "content")
		}
		if repo.Auth != nil {
			repo.Auth.Type = authTypes.Normalize(string(repo.Auth.Type))
		}
		// The posts directory lives inside the checkout unless pinned explicitly.
		if cfg.Content.Dir == "" {
			cfg.Content.Dir = filepath.Join(repo.Workspace, repo.Path)
		}
	}
	if cfg.Content.Dir == "" {
		cfg.Content.Dir = "posts"
	}
	return nil
}

type outputDefaults struct{}

func (outputDefaults) Domain() string { return "output" }

func (outputDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "public"
	}
	return nil
}

type buildDefaults struct{}

func (buildDefaults) Domain() string { return "build" }

func (buildDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Workers <= 0 {
		cfg.Build.Workers = 4
	}
	if cfg.Build.DocumentTimeout == "" {
		cfg.Build.DocumentTimeout = "30s"
	}
	// Unknown spellings are left for validation to reject.
	if p, err := missingDatePolicies.Parse(string(cfg.Build.MissingDate)); err == nil {
		cfg.Build.MissingDate = p
	}
	return nil
}

type cacheDefaults struct{}

func (cacheDefaults) Domain() string { return "cache" }

func (cacheDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = filepath.Join(".postbuilder", "cache.db")
	}
	return nil
}

type notifyDefaults struct{}

func (notifyDefaults) Domain() string { return "notify" }

func (notifyDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "postbuilder.builds"
	}
	return nil
}

type loggingDefaults struct{}

func (loggingDefaults) Domain() string { return "logging" }

func (loggingDefaults) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

type serverDefaults struct{}

func (serverDefaults) Domain() string { return "server" }

func (serverDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Debounce == "" {
		cfg.Server.Debounce = "500ms"
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	siteDefaults{},
	contentDefaults{},
	outputDefaults{},
	buildDefaults{},
	cacheDefaults{},
	notifyDefaults{},
	loggingDefaults{},
	serverDefaults{},
}

// ApplyDefaults fills every unset field with its default, section by section.
func ApplyDefaults(cfg *Config) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}
