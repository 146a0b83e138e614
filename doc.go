// gitredate rewrites the timestamps of a git commit history.
// It walks the commit graph from one or more refs, computes a replacement
// author and committer time for every reachable commit from a [Rule],
// recreates the commits with the new times while preserving trees, identities,
// messages and parent order, and repoints the affected refs to the rewritten
// history.
//
// See [Redate] for the whole operation in one call.
//
// See [LoadGraph], [RewriteHistory] and [BuildRefUpdatePlan] for the
// individual stages.
package gitredate
