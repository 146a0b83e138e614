package svc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"

	"github.com/antonhoess/gitredate"
)

// RunOperation performs one redate on the named repository, journals the
// outcome and updates the metrics. Operations on the same repository are
// serialized, a second request waits until the first one finished.
//
// The record is returned whenever the operation ran, together with the error
// of the run. Only a request that never started, unknown repo or
// cancellation while waiting for the lock, returns a nil record.
func (s *Svc) RunOperation(ctx context.Context, name string, dryrun bool) (*OperationRecord, error) {
	cfg, found := s.config.Repos[name]
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRepo, name)
	}

	closer, err := s.lockRepo(ctx, name)
	if err != nil {
		return nil, err
	}
	defer s.unlockRepo(name, closer)

	rec := &OperationRecord{
		ID:        uuid.NewString(),
		Repo:      name,
		StartedAt: time.Now().UTC(),
	}

	logger.Info("redate operation started", "id", rec.ID, "repo", name, "dryrun", dryrun)

	report, err := s.redateRepo(ctx, name, cfg, dryrun)

	rec.FinishedAt = time.Now().UTC()
	rec.fill(report, err, dryrun)

	if dberr := putOperationToDb(s.mustGetDb(), rec); dberr != nil {
		logger.Error("cannot journal operation", "id", rec.ID, "err", dberr)
	}
	s.metrics.observe(rec)

	logger.Info("redate operation finished",
		"id", rec.ID,
		"repo", name,
		"outcome", rec.Outcome,
		"commits", rec.CommitsRewritten,
		"duration", rec.FinishedAt.Sub(rec.StartedAt))

	return rec, err
}

// redateRepo opens the workspace for the repository, runs the rewrite and,
// for remote repositories, pushes the updated refs back.
func (s *Svc) redateRepo(ctx context.Context, name string, cfg *RepoConfig, dryrun bool) (*gitredate.Report, error) {
	rule, err := gitredate.NewIntervalRule(cfg.Rule)
	if err != nil {
		return nil, err
	}

	boundary, err := gitredate.NewHashSetFromStrings(cfg.BoundaryCommits...)
	if err != nil {
		return nil, fmt.Errorf("invalid boundary commit: %w", err)
	}

	wksp, err := s.newWorkspace(ctx, name, cfg)
	if err != nil {
		return nil, err
	}

	refs := make([]plumbing.ReferenceName, 0, len(cfg.Branches))
	for _, b := range cfg.Branches {
		refs = append(refs, plumbing.NewBranchReferenceName(b))
	}

	report, err := gitredate.Redate(ctx, wksp.storage, gitredate.RedateOptions{
		Refs:          refs,
		Rule:          rule,
		Boundary:      boundary,
		MaxDepth:      cfg.MaxDepth,
		IncludeShared: cfg.IncludeShared,
		DryRun:        dryrun,
	})
	if err != nil && !errors.Is(err, gitredate.ErrPartialCompletion) {
		return report, err
	}

	if !dryrun {
		if pusherr := wksp.pushRewritten(ctx, report.Plan); pusherr != nil {
			return report, errors.Join(err, fmt.Errorf("failed to push: %w", pusherr))
		}
	}

	return report, err
}
