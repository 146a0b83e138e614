package svc

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/antonhoess/gitredate"
)

// workspace contains the open storage for one configured repository. For a
// remote repository the storage is an in-memory fetch and the rewritten refs
// have to be pushed back, for a local one the rewrite lands on disk directly.
type workspace struct {
	name    string
	storage storage.Storer
	repo    *git.Repository
	remote  bool
	auth    *http.BasicAuth
}

func (c *RepoConfig) basicAuth() *http.BasicAuth {
	if c.Username == "" {
		return nil
	}

	return &http.BasicAuth{
		Username: c.Username,
		Password: c.Secret,
	}
}

const (
	refSpecSingleBranch = "+refs/heads/%s:refs/remotes/%s/%[1]s"
	remotename          = "origin"
)

// newWorkspace opens the repository described by cfg.
func (s *Svc) newWorkspace(ctx context.Context, name string, cfg *RepoConfig) (*workspace, error) {
	if cfg.Path != "" {
		return openLocalWorkspace(name, cfg)
	}

	return fetchRemoteWorkspace(ctx, name, cfg)
}

func openLocalWorkspace(name string, cfg *RepoConfig) (*workspace, error) {
	repo, err := git.PlainOpenWithOptions(cfg.Path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("cannot open repo %s at %s: %w", name, cfg.Path, err)
	}

	return &workspace{
		name:    name,
		storage: repo.Storer,
		repo:    repo,
	}, nil
}

// fetchRemoteWorkspace inits an in-memory repo, fetches the configured
// branches from the remote and materializes them as local branches, so the
// rewrite works on refs/heads like it does for a local repository.
func fetchRemoteWorkspace(ctx context.Context, name string, cfg *RepoConfig) (*workspace, error) {
	st := memory.NewStorage()

	logger.Info("fetching repo", "repo", name, "remote", cfg.RemoteUrl, "branches", cfg.Branches)

	repo, err := git.InitWithOptions(
		st,
		nil,
		git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(cfg.Branches[0]),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to init: %w", err)
	}

	specs := make([]config.RefSpec, 0, len(cfg.Branches))
	for _, b := range cfg.Branches {
		specs = append(specs, config.RefSpec(fmt.Sprintf(refSpecSingleBranch, b, remotename)))
	}

	if _, err := repo.CreateRemote(
		&config.RemoteConfig{
			Name:  remotename,
			URLs:  []string{cfg.RemoteUrl},
			Fetch: specs,
		}); err != nil {
		return nil, fmt.Errorf("failed to create remote for origin: %w", err)
	}

	auth := cfg.basicAuth()

	err = repo.FetchContext(ctx, &git.FetchOptions{
		Auth:       auth,
		RemoteName: remotename,
		RefSpecs:   specs,
	})
	if err != nil && errors.Is(err, transport.ErrEmptyRemoteRepository) {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRemoteRepo, cfg.RemoteUrl)
	} else if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}

	// no local branches yet, point them at the fetched remote refs
	for _, b := range cfg.Branches {
		r, err := st.Reference(plumbing.NewRemoteReferenceName(remotename, b))
		if err != nil {
			return nil, fmt.Errorf("remote has no branch %s: %w", b, err)
		}
		if err := st.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName(b), r.Hash())); err != nil {
			return nil, fmt.Errorf("cannot set local branch %s: %w", b, err)
		}
	}

	return &workspace{
		name:    name,
		storage: st,
		repo:    repo,
		remote:  true,
		auth:    auth,
	}, nil
}

// pushRewritten force-pushes the refs the plan actually updated. A no-op
// plan pushes nothing.
func (w *workspace) pushRewritten(ctx context.Context, plan *gitredate.RefUpdatePlan) error {
	if !w.remote {
		return nil
	}

	specs := make([]config.RefSpec, 0, len(plan.Updates))
	for _, u := range plan.Updates {
		if u.Status != gitredate.RefUpdated {
			continue
		}
		specs = append(specs, config.RefSpec(fmt.Sprintf("+%s:%[1]s", u.Name)))
	}

	if len(specs) == 0 {
		return nil
	}

	logger.Info("pushing rewritten refs", "repo", w.name, "refs", len(specs))

	err := w.repo.PushContext(
		ctx,
		&git.PushOptions{
			RemoteName: remotename,
			RefSpecs:   specs,
			Auth:       w.auth,
		})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}

	return err
}
