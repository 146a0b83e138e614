package gitredate

import (
	"context"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// RedateOptions configure one [Redate] run.
type RedateOptions struct {
	// Refs are the full names of the refs whose history is rewritten, for
	// example refs/heads/main. Symbolic refs are followed.
	Refs []plumbing.ReferenceName

	// Rule supplies the replacement timestamps.
	Rule Rule

	// Boundary commits keep their identity. They and their ancestors are
	// not rewritten.
	Boundary HashSet

	// MaxDepth caps the length of the rewritten history, see
	// [LoadOptions.MaxDepth].
	MaxDepth int

	// IncludeShared also rewrites commits that other branches or tags can
	// reach. By default such commits become boundary commits, so the
	// history of everything outside Refs stays intact.
	IncludeShared bool

	// DryRun stops after planning. Replacement objects may get written, but
	// they stay unreferenced: no ref is moved.
	DryRun bool
}

// Report is the outcome of one [Redate] run.
type Report struct {
	// Heads maps each requested ref to the hash it had when the graph was
	// loaded.
	Heads map[plumbing.ReferenceName]plumbing.Hash

	// CommitsInScope is the size of the loaded graph, CommitsRewritten the
	// number of replacement commits actually written.
	CommitsInScope   int
	CommitsRewritten int

	// Remap is the full old to new table, self-maps included.
	Remap RemapTable

	// Plan lists every planned ref update with its per-ref status. After a
	// non-dry run the statuses are final.
	Plan *RefUpdatePlan

	// DryRun records whether the ref updates were skipped.
	DryRun bool
}

// Redate rewrites the history reachable from the requested refs so that
// every commit's timestamps follow the rule, then repoints the affected refs
// onto the rewritten history.
//
// Nothing is mutated until the whole graph is loaded and validated. A write
// failure during the rewrite leaves only unreferenced objects behind. Ref
// updates are independent compare-and-swaps applied in a single pass at the
// end; their per-ref outcome is in the report, and the error distinguishes
// full success (nil), partial completion ([ErrPartialCompletion]) and total
// failure. The report is non-nil whenever planning succeeded, even when the
// error reports a partial result.
func Redate(ctx context.Context, s storer.Storer, opts RedateOptions) (*Report, error) {
	if opts.Rule == nil {
		return nil, fmt.Errorf("%w: rule is nil", ErrInvalidRuleConfig)
	}
	if len(opts.Refs) == 0 {
		return nil, ErrNoRefs
	}

	heads := make(map[plumbing.ReferenceName]plumbing.Hash, len(opts.Refs))
	headhashes := make([]plumbing.Hash, 0, len(opts.Refs))
	for _, name := range opts.Refs {
		ref, err := storer.ResolveReference(s, name)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve ref %s: %w", name, err)
		}

		heads[name] = ref.Hash()
		headhashes = append(headhashes, ref.Hash())
	}

	boundary := make(HashSet, len(opts.Boundary))
	for h := range opts.Boundary {
		boundary[h] = empty{}
	}

	if !opts.IncludeShared {
		shared, err := sharedBoundary(ctx, s, opts.Refs)
		if err != nil {
			return nil, err
		}
		for h := range shared {
			boundary[h] = empty{}
		}
	}

	g, err := LoadGraph(ctx, s, headhashes, LoadOptions{Boundary: boundary, MaxDepth: opts.MaxDepth})
	if err != nil {
		return nil, err
	}

	res, err := RewriteHistory(ctx, g, opts.Rule, s)
	if err != nil {
		return nil, err
	}

	plan, err := BuildRefUpdatePlan(ctx, s, res.Remap)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Heads:            heads,
		CommitsInScope:   g.Len(),
		CommitsRewritten: len(res.NewCommits),
		Remap:            res.Remap,
		Plan:             plan,
		DryRun:           opts.DryRun,
	}

	if opts.DryRun {
		logger.Info("dry run, refs not moved", "commits", report.CommitsInScope, "rewritten", report.CommitsRewritten, "refupdates", len(plan.Updates))
		return report, nil
	}

	return report, plan.Apply(ctx, s)
}

// sharedBoundary collects every commit reachable from local branches and
// tags outside the requested set. Rewriting those commits would detach the
// other refs' history, so they stay fixed unless
// [RedateOptions.IncludeShared] is set. Remote-tracking refs are ignored,
// they mirror external state and follow on the next fetch.
func sharedBoundary(ctx context.Context, s storer.Storer, requested []plumbing.ReferenceName) (HashSet, error) {
	req := make(map[plumbing.ReferenceName]empty, len(requested))
	for _, name := range requested {
		req[name] = empty{}
	}

	iter, err := s.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("cannot iterate refs: %w", err)
	}

	otherheads := make([]plumbing.Hash, 0)

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		if !ref.Name().IsBranch() && !ref.Name().IsTag() {
			return nil
		}
		if _, ok := req[ref.Name()]; ok {
			return nil
		}

		h := ref.Hash()
		if tag, err := object.GetTag(s, h); err == nil {
			// annotated tag, follow it to the commit
			if tag.TargetType != plumbing.CommitObject {
				return nil
			}
			h = tag.Target
		}
		otherheads = append(otherheads, h)

		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make(HashSet)
	stack := otherheads

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := result[h]; ok {
			continue
		}

		c, err := object.GetCommit(s, h)
		if err != nil {
			// refs to blobs or trees don't bound anything
			continue
		}
		result[h] = empty{}

		for _, p := range c.ParentHashes {
			if _, ok := result[p]; ok {
				continue
			}
			stack = append(stack, p)
		}
	}

	return result, nil
}
