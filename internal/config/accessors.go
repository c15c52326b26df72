package config

import (
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/content/plugins"
)

// Timeout returns the per-document transform timeout.
func (b BuildConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(b.DocumentTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// DebounceInterval returns how long the watcher waits for file events to settle.
func (s ServerConfig) DebounceInterval() time.Duration {
	d, err := time.ParseDuration(s.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

// Specs converts the configured plugin list. An empty list yields the default order.
func (p PipelineConfig) Specs() []plugins.Spec {
	if len(p.Plugins) == 0 {
		return plugins.DefaultSpecs()
	}
	specs := make([]plugins.Spec, 0, len(p.Plugins))
	for _, pc := range p.Plugins {
		specs = append(specs, plugins.Spec{Name: pc.Name, Options: plugins.Options(pc.Options)})
	}
	return specs
}
