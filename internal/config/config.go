// Package config loads, defaults and validates postbuilder.yaml.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

// CurrentVersion is the only configuration schema version accepted by Load.
const CurrentVersion = "1"

// DefaultPath is where commands look for configuration when --config is not given.
const DefaultPath = "postbuilder.yaml"

// Config is the root of postbuilder.yaml.
type Config struct {
	Version  string         `yaml:"version"`
	Site     SiteConfig     `yaml:"site"`
	Content  ContentConfig  `yaml:"content"`
	Output   OutputConfig   `yaml:"output"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Build    BuildConfig    `yaml:"build"`
	Cache    CacheConfig    `yaml:"cache"`
	Notify   NotifyConfig   `yaml:"notify"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

// SiteConfig carries the metadata every rendered page shares.
type SiteConfig struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	BaseURL       string `yaml:"base_url"`
	Author        string `yaml:"author,omitempty"`
	TwitterHandle string `yaml:"twitter_handle,omitempty"`
	Locale        string `yaml:"locale,omitempty"`
	PrismThemeURL string `yaml:"prism_theme_url,omitempty"`
	BlogPath      string `yaml:"blog_path,omitempty"`
}

// ContentConfig locates the post files.
type ContentConfig struct {
	Dir        string            `yaml:"dir"`
	Repository *RepositoryConfig `yaml:"repository,omitempty"`
}

// RepositoryConfig makes the content directory a checkout of a git repository.
type RepositoryConfig struct {
	URL       string      `yaml:"url"`
	Branch    string      `yaml:"branch,omitempty"`
	Workspace string      `yaml:"workspace,omitempty"` // clone target
	Path      string      `yaml:"path,omitempty"`      // posts directory inside the checkout
	Auth      *AuthConfig `yaml:"auth,omitempty"`
}

// OutputConfig controls where the site is written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"`
}

// PipelineConfig is the ordered plugin list. An empty list selects the built-in default order.
type PipelineConfig struct {
	Plugins []PluginConfig `yaml:"plugins,omitempty"`
}

// PluginConfig selects a plugin by name with its options.
type PluginConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
}

// BuildConfig tunes the site build.
type BuildConfig struct {
	Workers         int               `yaml:"workers"`
	DocumentTimeout string            `yaml:"document_timeout"`
	MissingDate     MissingDatePolicy `yaml:"missing_date"`
}

// CacheConfig configures the artifact cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// NotifyConfig configures build event publishing. An empty URL disables it.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// ServerConfig configures the preview server used by serve.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	Metrics      bool   `yaml:"metrics"`
	Watch        bool   `yaml:"watch"`
	Debounce     string `yaml:"debounce,omitempty"`
	SyncSchedule string `yaml:"sync_schedule,omitempty"` // cron expression, empty disables
}

// Load reads configPath after loading .env files and expanding ${VAR} references,
// then applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapError(err, errors.CategoryConfig, "configuration file not found").
				WithContext("path", configPath).UserAction().Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", configPath).Build()
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding environment variables first.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, errors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", CurrentVersion).Build()
	}
	if err := ApplyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, for runs without a config file.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	_ = ApplyDefaults(cfg)
	return cfg
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).UserAction().Build()
	}

	example := Config{
		Version: CurrentVersion,
		Site: SiteConfig{
			Title:         "My Blog",
			Description:   "Notes on software and other things",
			BaseURL:       "https://blog.example.com",
			Author:        "Jane Doe",
			TwitterHandle: "@janedoe",
			Locale:        "en_US",
		},
		Content: ContentConfig{
			Repository: &RepositoryConfig{
				URL:       "https://github.com/example/blog-content.git",
				Branch:    "main",
				Workspace: "./.postbuilder/content",
				Path:      "posts",
				Auth:      &AuthConfig{Type: AuthTypeToken, Token: "${CONTENT_TOKEN}"},
			},
		},
		Output:   OutputConfig{Directory: "./public", Clean: true},
		Pipeline: PipelineConfig{Plugins: examplePlugins()},
		Build:    BuildConfig{Workers: 4, DocumentTimeout: "30s", MissingDate: MissingDateNotFound},
		Cache:    CacheConfig{Enabled: true, Path: "./.postbuilder/cache.db"},
		Notify:   NotifyConfig{NATSURL: "${NATS_URL}", Subject: "postbuilder.builds"},
		Logging:  LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Server:   ServerConfig{Addr: ":8080", Metrics: true, Watch: true, Debounce: "500ms", SyncSchedule: "*/15 * * * *"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal example config").Build()
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).Build()
	}
	return nil
}

func examplePlugins() []PluginConfig {
	return []PluginConfig{
		{Name: "a11y-emoji"},
		{Name: "breaks"},
		{Name: "gfm"},
		{Name: "footnotes"},
		{Name: "external-links", Options: map[string]any{"rel": "nofollow noopener noreferrer"}},
		{Name: "slug"},
		{Name: "sectionize"},
	}
}
