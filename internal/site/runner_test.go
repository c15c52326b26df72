package site

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/postbuilder/internal/gitsource"
)

type fakeSyncer struct {
	calls  int
	commit string
	err    error
}

func (f *fakeSyncer) Sync(context.Context) (gitsource.Result, error) {
	f.calls++
	return gitsource.Result{Commit: f.commit}, f.err
}

func TestRunner_SyncThenBuild(t *testing.T) {
	f := newFixture(t, map[string]string{"hello.md": helloPost})
	syncer := &fakeSyncer{commit: "abc123"}
	r := NewRunner(f.builder(t, defaultPipeline(t)), syncer)

	report, err := r.Run(context.Background(), "schedule", true)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, syncer.calls)

	st := r.Status()
	assert.False(t, st.Running)
	assert.Equal(t, "schedule", st.Reason)
	assert.Equal(t, "abc123", st.Commit)
	assert.Same(t, report, st.Report)

	_, err = r.Run(context.Background(), "watch", false)
	require.NoError(t, err)
	assert.Equal(t, 1, syncer.calls)
	assert.Equal(t, "abc123", r.Status().Commit)
}

func TestRunner_SyncFailureSkipsBuild(t *testing.T) {
	f := newFixture(t, map[string]string{"hello.md": helloPost})
	r := NewRunner(f.builder(t, defaultPipeline(t)), &fakeSyncer{err: errors.New("unreachable")})

	report, err := r.Run(context.Background(), "api", true)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, err, r.Status().Err)
	assert.NoFileExists(t, filepath.Join(f.outDir, NotFoundFile))
}
