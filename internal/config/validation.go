package config

import (
	"net/url"
	"time"

	"git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

const maxWorkers = 256

// Validate checks a defaulted configuration. The first problem found is returned
// as a validation ClassifiedError naming the offending field.
func Validate(cfg *Config) error {
	checks := []func(*Config) error{
		validateSite,
		validateContent,
		validatePipeline,
		validateBuild,
		validateServer,
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return err
		}
	}
	return nil
}

func invalid(field, message string) *errors.ErrorBuilder {
	return errors.ValidationError(message).WithContext("field", field).UserAction()
}

func validateSite(cfg *Config) error {
	if cfg.Site.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(cfg.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("site.base_url", "base_url must be an absolute URL").
			WithContext("value", cfg.Site.BaseURL).Build()
	}
	return nil
}

func validateContent(cfg *Config) error {
	repo := cfg.Content.Repository
	if repo == nil {
		return nil
	}
	if repo.URL == "" {
		return invalid("content.repository.url", "repository url is required when repository is configured").Build()
	}
	if repo.Auth == nil {
		return nil
	}
	switch repo.Auth.Type {
	case AuthTypeNone:
	case AuthTypeToken:
		if repo.Auth.Token == "" {
			return invalid("content.repository.auth.token", "token auth requires a token").Build()
		}
	case AuthTypeBasic:
		if repo.Auth.Username == "" || repo.Auth.Password == "" {
			return invalid("content.repository.auth", "basic auth requires username and password").Build()
		}
	default:
		return invalid("content.repository.auth.type", "unsupported auth type").
			WithContext("value", string(repo.Auth.Type)).Build()
	}
	return nil
}

func validatePipeline(cfg *Config) error {
	for i, p := range cfg.Pipeline.Plugins {
		if p.Name == "" {
			return invalid("pipeline.plugins", "plugin name cannot be empty").
				WithContext("step", i+1).Build()
		}
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if cfg.Build.Workers > maxWorkers {
		return invalid("build.workers", "too many workers").
			WithContext("value", cfg.Build.Workers).
			WithContext("max", maxWorkers).Build()
	}
	if err := positiveDuration("build.document_timeout", cfg.Build.DocumentTimeout); err != nil {
		return err
	}
	if _, err := missingDatePolicies.Parse(string(cfg.Build.MissingDate)); err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "invalid missing_date policy").
			WithContext("field", "build.missing_date").UserAction().Build()
	}
	return nil
}

func validateServer(cfg *Config) error {
	return positiveDuration("server.debounce", cfg.Server.Debounce)
}

func positiveDuration(field, raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "invalid duration").
			WithContext("field", field).WithContext("value", raw).UserAction().Build()
	}
	if d <= 0 {
		return invalid(field, "duration must be positive").WithContext("value", raw).Build()
	}
	return nil
}
