package gitredate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// RemapTable maps original commit hashes to the hashes of their rewritten
// replacements. A commit the rewrite left untouched maps to itself.
type RemapTable map[plumbing.Hash]plumbing.Hash

// Resolve returns the replacement for h, or h itself when the table has no
// entry. Boundary and out-of-scope commits keep their identity this way.
func (t RemapTable) Resolve(h plumbing.Hash) plumbing.Hash {
	if n, ok := t[h]; ok {
		return n
	}

	return h
}

// RewriteResult is the outcome of [RewriteHistory].
type RewriteResult struct {
	// Remap contains one entry per in-scope commit.
	Remap RemapTable

	// NewCommits are the commits actually written, in topological order.
	// Commits that came out unchanged don't appear here.
	NewCommits []*object.Commit
}

// RewriteHistory recreates every commit of the graph with the timestamps the
// rule assigns, processing in topological order so the parents of a commit
// are always rewritten before the commit itself. Trees, identities, messages
// and parent order are preserved. PGP signatures are dropped, since the
// signed content no longer exists.
//
// A commit whose timestamps and parents all come out unchanged is not
// recreated at all and maps to itself in the result. In particular, running
// the same rule twice leaves the second run with nothing to do.
//
// On a write failure the rewrite stops with an error wrapping
// [ErrStorageWrite]. Objects written before the failure remain in s as
// unreferenced garbage, safe to collect, and no ref has been modified.
func RewriteHistory(ctx context.Context, g *RewriteGraph, rule Rule, s storer.EncodedObjectStorer) (*RewriteResult, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: rule is nil", ErrInvalidRuleConfig)
	}

	order := g.TopoOrder()
	total := len(order)

	result := &RewriteResult{
		Remap: make(RemapTable, total),
	}

	for i, c := range order {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		parents, changed, err := remapParents(g, result.Remap, c)
		if err != nil {
			return nil, err
		}

		times := rule.Times(i, total, TimePair{Author: c.Author.When, Committer: c.Committer.When})

		if !changed && sameInstant(times.Author, c.Author.When) && sameInstant(times.Committer, c.Committer.When) {
			result.Remap[c.Hash] = c.Hash
			logger.Debug("commit unchanged", "id", i, "total", total, "hash", c.Hash)
			continue
		}

		newcommit := &object.Commit{
			Author:       c.Author,
			Committer:    c.Committer,
			Message:      c.Message,
			TreeHash:     c.TreeHash,
			ParentHashes: parents,
			Encoding:     c.Encoding,
		}
		newcommit.Author.When = times.Author
		newcommit.Committer.When = times.Committer

		if err := updateHashAndSave(ctx, newcommit, s); err != nil {
			return nil, errorf(err, "%w: cannot save replacement for commit %s: %s", ErrStorageWrite, c.Hash, err.Error())
		}

		result.Remap[c.Hash] = newcommit.Hash
		result.NewCommits = append(result.NewCommits, newcommit)
		logger.Debug("rewrote commit", "id", i, "total", total, "hash", c.Hash, "newhash", newcommit.Hash)
	}

	logger.Info("rewrote history", "commits", total, "rewritten", len(result.NewCommits))

	return result, nil
}

// remapParents resolves the parents of a commit through the remap table,
// keeping their order. Boundary parents resolve to themselves. changed
// reports whether any parent differs from the original.
func remapParents(g *RewriteGraph, remap RemapTable, c *object.Commit) (parents []plumbing.Hash, changed bool, err error) {
	if len(c.ParentHashes) == 0 {
		return nil, false, nil
	}

	parents = make([]plumbing.Hash, 0, len(c.ParentHashes))
	for _, p := range c.ParentHashes {
		if _, in := g.Commits[p]; !in {
			if _, ok := g.Boundary[p]; !ok {
				return nil, false, fmt.Errorf("%w: parent %s of commit %s is neither loaded nor boundary", ErrRepositoryCorrupt, p, c.Hash)
			}

			parents = append(parents, p)
			continue
		}

		n, ok := remap[p]
		if !ok {
			return nil, false, fmt.Errorf("parent %s of commit %s was not processed before its child", p, c.Hash)
		}
		if n != p {
			changed = true
		}

		parents = append(parents, n)
	}

	return parents, changed, nil
}

// sameInstant indicates whether two timestamps would serialize identically
// in a commit, that is same unix second and same utc offset.
func sameInstant(a, b time.Time) bool {
	if a.Unix() != b.Unix() {
		return false
	}

	_, offa := a.Zone()
	_, offb := b.Zone()

	return offa == offb
}
