package gitredate

import (
	"context"
	"math"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// RewriteGraph is the fully materialized part of the commit graph that a
// rewrite will work on. It is produced by [LoadGraph] and is complete: every
// parent of an in-scope commit is either in-scope itself or in the boundary
// set, so a rewrite never has to touch the repository for structure again.
type RewriteGraph struct {
	// Commits contains every in-scope commit, keyed by its original hash.
	Commits map[plumbing.Hash]*object.Commit

	// Heads are the deduplicated hashes the load started from, in request
	// order.
	Heads []plumbing.Hash

	// Boundary is the set of commit hashes the traversal stopped at. A
	// parent in this set keeps its identifier during a rewrite.
	Boundary HashSet

	order []*object.Commit
}

// LoadOptions control the traversal of [LoadGraph].
type LoadOptions struct {
	// Boundary commits are excluded from the graph, together with
	// everything only reachable through them.
	Boundary HashSet

	// MaxDepth caps the number of commits along any parent chain, counted
	// from the head. The parents beyond the cap become boundary commits.
	// The depth of a commit is measured along the path that discovered it
	// first, so on heavily criss-crossing graphs the cap is approximate.
	// Zero or negative means unlimited.
	MaxDepth int
}

type walkItem struct {
	hash       plumbing.Hash
	generation int
}

// LoadGraph walks the repository from the given heads and materializes every
// reachable commit into a [RewriteGraph], excluding the boundary commits and
// anything only reachable through them. The traversal uses an explicit
// stack, so the depth of the history doesn't grow the call stack.
//
// A commit that cannot be read fails the whole load with an error wrapping
// [ErrRepositoryCorrupt]: the graph must be complete before a rewrite is
// allowed to start.
func LoadGraph(ctx context.Context, s storer.EncodedObjectStorer, heads []plumbing.Hash, opts LoadOptions) (*RewriteGraph, error) {
	g := &RewriteGraph{
		Commits:  make(map[plumbing.Hash]*object.Commit),
		Boundary: make(HashSet, len(opts.Boundary)),
	}
	for h := range opts.Boundary {
		g.Boundary[h] = empty{}
	}

	maxdepth := opts.MaxDepth
	if maxdepth <= 0 {
		maxdepth = math.MaxInt
	}

	seen := make(HashSet, len(heads))
	cut := make(HashSet)
	stack := make([]walkItem, 0, len(heads))

	for _, h := range heads {
		if h.IsZero() {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = empty{}
		g.Heads = append(g.Heads, h)

		if _, ok := g.Boundary[h]; ok {
			continue
		}
		stack = append(stack, walkItem{hash: h})
	}

	for len(stack) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c, err := object.GetCommit(s, item.hash)
		if err != nil {
			return nil, errorf(err, "%w: cannot read commit %s: %s", ErrRepositoryCorrupt, item.hash, err.Error())
		}
		g.Commits[item.hash] = c

		if item.generation+1 >= maxdepth {
			for _, p := range c.ParentHashes {
				cut[p] = empty{}
			}
			continue
		}

		for _, p := range c.ParentHashes {
			if _, ok := g.Boundary[p]; ok {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = empty{}
			stack = append(stack, walkItem{hash: p, generation: item.generation + 1})
		}
	}

	// A parent cut by the depth cap may still have been reached within the
	// cap over another path. In-scope wins.
	for h := range cut {
		if _, ok := g.Commits[h]; ok {
			continue
		}
		g.Boundary[h] = empty{}
	}

	order, err := topoSort(g)
	if err != nil {
		return nil, err
	}
	g.order = order

	logger.Debug("loaded commit graph", "commits", len(g.Commits), "heads", len(g.Heads), "boundary", len(g.Boundary))

	return g, nil
}

// Len returns the number of in-scope commits.
func (g *RewriteGraph) Len() int {
	return len(g.Commits)
}

// TopoOrder returns the in-scope commits ordered so that every commit comes
// after all of its in-scope parents. The order is deterministic for a given
// repository: ties between independent commits break by original committer
// time, then by hash. Callers must not modify the returned slice.
func (g *RewriteGraph) TopoOrder() []*object.Commit {
	return g.order
}

// Roots goes through the in-scope commits and finds all the ones that have
// zero in-scope parents, in topological order.
func (g *RewriteGraph) Roots() []*object.Commit {
	result := make([]*object.Commit, 0, 1)

	for _, c := range g.order {
		n := 0
		for _, p := range c.ParentHashes {
			if _, in := g.Commits[p]; in {
				n += 1
			}
		}

		if n == 0 {
			result = append(result, c)
		}
	}

	return result
}
