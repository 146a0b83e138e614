// errors

package svc

import "errors"

var (
	ErrNilConfig        = errors.New("nil config")
	ErrNilDB            = errors.New("nil db")
	ErrNoRepoConfigured = errors.New("no repo configured")
	ErrEmptyRepoName    = errors.New("empty repo name")
	ErrEmptyRepoTarget  = errors.New("neither path nor remote url configured")
	ErrDoubleRepoTarget = errors.New("both path and remote url configured")
	ErrEmptyBranchName  = errors.New("empty branch name")
	ErrNoBranches       = errors.New("no branches configured")
	ErrUnknownRepo      = errors.New("unknown repo")
	ErrEmptyRemoteRepo  = errors.New("remote repo is empty")
)
