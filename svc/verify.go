package svc

import (
	"fmt"

	"github.com/antonhoess/gitredate"
)

func verifyConfig(cfg *Config) error {
	if len(cfg.Repos) == 0 {
		return ErrNoRepoConfigured
	}

	for name, repo := range cfg.Repos {
		if err := verifyRepoConfig(name, repo); err != nil {
			return err
		}
	}

	return nil
}

func verifyRepoConfig(name string, repo *RepoConfig) error {
	if name == "" {
		return ErrEmptyRepoName
	}
	if repo == nil {
		return fmt.Errorf("repo %s: %w", name, ErrEmptyRepoTarget)
	}

	if repo.Path == "" && repo.RemoteUrl == "" {
		return fmt.Errorf("repo %s: %w", name, ErrEmptyRepoTarget)
	}
	if repo.Path != "" && repo.RemoteUrl != "" {
		return fmt.Errorf("repo %s: %w", name, ErrDoubleRepoTarget)
	}

	if len(repo.Branches) == 0 {
		return fmt.Errorf("repo %s: %w", name, ErrNoBranches)
	}
	for _, b := range repo.Branches {
		if b == "" {
			return fmt.Errorf("repo %s: %w", name, ErrEmptyBranchName)
		}
	}

	// compile the rule once at startup, so requests don't hit a broken one
	if _, err := gitredate.NewIntervalRule(repo.Rule); err != nil {
		return fmt.Errorf("repo %s: %w", name, err)
	}

	if _, err := gitredate.NewHashSetFromStrings(repo.BoundaryCommits...); err != nil {
		return fmt.Errorf("repo %s: invalid boundary commit: %w", name, err)
	}

	return nil
}
