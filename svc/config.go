package svc

import (
	"github.com/antonhoess/gitredate"
)

// Config configures the redate service.
type Config struct {
	// ListenAddress of the HTTP surface.
	ListenAddress string `yaml:"listen_address"`

	// DbPath is the location of the journal database. If empty, a temporary
	// file is used and a warning is logged.
	DbPath string `yaml:"db_path"`

	// ShutdownWaitSecs bounds the graceful shutdown.
	ShutdownWaitSecs int64 `yaml:"shutdown_wait_secs"`

	// Repos the service may redate, keyed by the name used in requests.
	Repos map[string]*RepoConfig `yaml:"repos"`
}

// RepoConfig describes one repository and the rule applied to its history.
// Exactly one of Path and RemoteUrl must be set: Path opens a repository on
// the local disk, RemoteUrl fetches one into memory and pushes the rewritten
// branches back.
type RepoConfig struct {
	Path string `yaml:"path"`

	RemoteUrl string `yaml:"remote_url"`
	Username  string `yaml:"username"`
	Secret    string `yaml:"secret"`

	// Branches whose history is rewritten.
	Branches []string `yaml:"branches"`

	// Rule producing the new timestamps.
	Rule gitredate.RuleConfig `yaml:"rule"`

	// BoundaryCommits (hex) keep their identity, they and their ancestors
	// are not rewritten.
	BoundaryCommits []string `yaml:"boundary_commits"`

	// MaxDepth caps the length of the rewritten history. Zero means
	// unlimited.
	MaxDepth int `yaml:"max_depth"`

	// IncludeShared also rewrites commits reachable from branches or tags
	// outside Branches.
	IncludeShared bool `yaml:"include_shared"`
}

func (c *Config) GetProperShutdownWaitSecs() int {
	if c.ShutdownWaitSecs == 0 {
		return 90
	}

	return int(c.ShutdownWaitSecs)
}
