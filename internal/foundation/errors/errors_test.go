package errors

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithSeverity(SeverityFatal).
			WithContext("file", "postbuilder.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "postbuilder.yaml", file)
	})

	t.Run("Found through wrapping", func(t *testing.T) {
		inner := PluginError("plugin failed").WithContext("plugin", "slug").Build()
		wrapped := fmt.Errorf("document hello: %w", inner)

		c, ok := AsClassified(wrapped)
		require.True(t, ok)
		assert.Equal(t, CategoryPlugin, c.Category())
		assert.True(t, HasCategory(wrapped, CategoryPlugin))
		assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	})

	t.Run("WithContext does not mutate the original", func(t *testing.T) {
		base := NotFoundError("post not found").Build()
		derived := base.WithContext("slug", "hello")

		_, ok := base.Context().Get("slug")
		assert.False(t, ok)
		slug, _ := derived.Context().GetString("slug")
		assert.Equal(t, "hello", slug)
	})
}

func TestErrorBuilder(t *testing.T) {
	originalErr := errors.New("connection reset")
	err := WrapError(originalErr, CategoryNetwork, "publish failed").
		Warning().
		Retryable().
		WithContext("subject", "posts.built").
		Build()

	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, RetryBackoff, err.RetryStrategy())
	assert.True(t, err.CanRetry())
	assert.ErrorIs(t, err, originalErr)

	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryUserAction},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityFatal, RetryNever},
		{"NotFoundError", NotFoundError("x"), CategoryNotFound, SeverityError, RetryNever},
		{"ParseError", ParseError("x"), CategoryParse, SeverityError, RetryNever},
		{"PluginError", PluginError("x"), CategoryPlugin, SeverityError, RetryNever},
		{"GitError", GitError("x"), CategoryGit, SeverityError, RetryBackoff},
		{"CacheError", CacheError("x"), CategoryCache, SeverityWarning, RetryNever},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			built := tt.builder.Build()
			assert.Equal(t, tt.category, built.Category())
			assert.Equal(t, tt.severity, built.Severity())
			assert.Equal(t, tt.retry, built.RetryStrategy())
		})
	}
}

func TestErrorContextMerge(t *testing.T) {
	ctx1 := ErrorContext{}.Set("key1", "value1").Set("shared", "original")
	ctx2 := ErrorContext{}.Set("key2", "value2").Set("shared", "overridden")

	merged := ctx1.Merge(ctx2)

	v, _ := merged.GetString("key1")
	assert.Equal(t, "value1", v)
	v, _ = merged.GetString("key2")
	assert.Equal(t, "value2", v)
	v, _ = merged.GetString("shared")
	assert.Equal(t, "overridden", v)
}

func TestCLIErrorAdapter(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, adapter.ExitCodeFor(nil))
	assert.Equal(t, 1, adapter.ExitCodeFor(errors.New("plain")))
	assert.Equal(t, 7, adapter.ExitCodeFor(ConfigError("bad").Build()))
	assert.Equal(t, 11, adapter.ExitCodeFor(ParseError("bad").Build()))
	assert.Equal(t, 4, adapter.ExitCodeFor(NotFoundError("missing").Build()))

	assert.Equal(t, "Error: bad", adapter.FormatError(ParseError("bad").Build()))
	assert.Contains(t, adapter.FormatError(InternalError("boom").Build()), "use -v")

	var out bytes.Buffer
	code := -1
	adapter.out = &out
	adapter.exit = func(c int) { code = c }
	adapter.HandleError(BuildError("2 documents failed").Build())
	assert.Equal(t, 11, code)
	assert.Contains(t, out.String(), "2 documents failed")
}

func TestHTTPErrorAdapter(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)

	assert.Equal(t, http.StatusNotFound, adapter.StatusCodeFor(NotFoundError("missing").Build()))
	assert.Equal(t, http.StatusUnprocessableEntity, adapter.StatusCodeFor(PluginError("bad").Build()))
	assert.Equal(t, http.StatusInternalServerError, adapter.StatusCodeFor(errors.New("plain")))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/-/rebuild", nil)
	adapter.WriteErrorResponse(rec, req, NotFoundError("post not found").WithContext("slug", "x").Build())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"post not found","code":"not_found","details":{"slug":"x"}}`, rec.Body.String())
}
