// Package gitsource keeps a local checkout of the content repository in sync.
//
// The checkout is a read-only mirror: local commits are never expected, so an
// update fetches and hard-resets the worktree to the remote branch.
package gitsource

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/postbuilder/internal/config"
	"git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
	"git.home.luguber.info/inful/postbuilder/internal/metrics"
)

const remoteName = "origin"

// Result describes what a Sync did.
type Result struct {
	Path    string
	Commit  string
	Cloned  bool
	Updated bool
}

// Syncer clones or updates one repository.
type Syncer struct {
	repo     config.RepositoryConfig
	recorder metrics.Recorder
}

// NewSyncer creates a Syncer. A nil recorder disables metrics.
func NewSyncer(repo config.RepositoryConfig, recorder metrics.Recorder) *Syncer {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Syncer{repo: repo, recorder: recorder}
}

// Sync clones the repository into its workspace, or brings an existing checkout
// up to date with the remote branch.
func (s *Syncer) Sync(ctx context.Context) (res Result, err error) {
	start := time.Now()
	defer func() { s.recorder.ObserveSyncDuration(time.Since(start), err == nil) }()

	if _, statErr := os.Stat(filepath.Join(s.repo.Workspace, ".git")); statErr == nil {
		return s.update(ctx)
	}
	return s.clone(ctx)
}

func (s *Syncer) clone(ctx context.Context) (Result, error) {
	path := s.repo.Workspace
	slog.Debug("Cloning content repository", logfields.URL(s.repo.URL), logfields.Path(path), slog.String("branch", s.repo.Branch))

	if err := os.RemoveAll(path); err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryFileSystem, "failed to clear workspace").
			WithContext("path", path).Build()
	}
	auth, err := authMethod(s.repo.Auth)
	if err != nil {
		return Result{}, err
	}
	opts := &git.CloneOptions{URL: s.repo.URL, Auth: auth}
	if s.repo.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.repo.Branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryGit, "failed to clone content repository").
			WithContext("url", s.repo.URL).Retryable().Build()
	}
	commit := headCommit(repo)
	slog.Info("Content repository cloned", logfields.URL(s.repo.URL), slog.String("commit", short(commit)), logfields.Path(path))
	return Result{Path: path, Commit: commit, Cloned: true, Updated: true}, nil
}

func (s *Syncer) update(ctx context.Context) (Result, error) {
	path := s.repo.Workspace
	repo, err := git.PlainOpen(path)
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryGit, "failed to open content checkout").
			WithContext("path", path).Build()
	}
	auth, err := authMethod(s.repo.Auth)
	if err != nil {
		return Result{}, err
	}

	branch, err := s.branch(repo)
	if err != nil {
		return Result{}, err
	}
	refSpec := gitconfig.RefSpec("+refs/heads/" + branch + ":refs/remotes/" + remoteName + "/" + branch)
	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remoteName, Auth: auth, RefSpecs: []gitconfig.RefSpec{refSpec}, Force: true})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return Result{}, errors.WrapError(err, errors.CategoryGit, "failed to fetch content repository").
			WithContext("url", s.repo.URL).Retryable().Build()
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryGit, "remote branch not found").
			WithContext("branch", branch).Build()
	}
	before := headCommit(repo)
	if before == remoteRef.Hash().String() {
		slog.Debug("Content repository already up to date", slog.String("commit", short(before)))
		return Result{Path: path, Commit: before}, nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryGit, "failed to get worktree").Build()
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return Result{}, errors.WrapError(err, errors.CategoryGit, "failed to reset worktree").
			WithContext("commit", remoteRef.Hash().String()).Build()
	}
	after := remoteRef.Hash().String()
	slog.Info("Content repository updated", slog.String("from", short(before)), slog.String("to", short(after)))
	return Result{Path: path, Commit: after, Updated: true}, nil
}

// branch returns the configured branch, or the branch HEAD points at.
func (s *Syncer) branch(repo *git.Repository) (string, error) {
	if s.repo.Branch != "" {
		return s.repo.Branch, nil
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryGit, "failed to resolve HEAD").Build()
	}
	if !head.Name().IsBranch() {
		return "", errors.GitError("checkout is detached; set content.repository.branch").UserAction().Build()
	}
	return head.Name().Short(), nil
}

func authMethod(auth *config.AuthConfig) (transport.AuthMethod, error) {
	if auth.IsZero() {
		return nil, nil
	}
	switch auth.Type {
	case config.AuthTypeToken:
		// Forges accept any non-empty username alongside a token.
		return &http.BasicAuth{Username: "token", Password: auth.Token}, nil
	case config.AuthTypeBasic:
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	default:
		return nil, errors.ConfigError("unsupported authentication type").
			WithContext("type", string(auth.Type)).Build()
	}
}

func headCommit(repo *git.Repository) string {
	ref, err := repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

func short(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
