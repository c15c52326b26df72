package content

import (
	"errors"
	"fmt"

	derrors "git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
)

var (
	// ErrParse matches every *ParseError via errors.Is.
	ErrParse = errors.New("content: parse error")
	// ErrPlugin matches every *PluginError via errors.Is.
	ErrPlugin = errors.New("content: plugin error")
)

// ParseError reports source text that cannot be turned into a tree.
type ParseError struct {
	Kind   Kind
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %s", e.Kind, e.Line, e.Reason)
	}
	return fmt.Sprintf("parse %s: %s", e.Kind, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// PluginError reports a plugin that failed or panicked. Step is the 1-based
// position of the plugin in the pipeline.
type PluginError struct {
	Plugin string
	Step   int
	Err    error
}

func (e *PluginError) Error() string {
	return fmt.Sprintf("plugin %q (step %d): %v", e.Plugin, e.Step, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }

func (e *PluginError) Is(target error) bool { return target == ErrPlugin }

// Classify converts transformer failures into classified errors so callers
// can route them through the CLI and HTTP adapters. Other errors are returned
// unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if derrors.IsClassified(err) {
		return err
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		b := derrors.WrapError(err, derrors.CategoryParse, pe.Error()).
			WithContext("kind", string(pe.Kind))
		if pe.Line > 0 {
			b = b.WithContext("line", pe.Line)
		}
		return b.Build()
	}

	var plErr *PluginError
	if errors.As(err, &plErr) {
		return derrors.WrapError(err, derrors.CategoryPlugin, plErr.Error()).
			WithContext("plugin", plErr.Plugin).
			WithContext("step", plErr.Step).
			Build()
	}
	return err
}
