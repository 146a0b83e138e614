package gitredate_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/antonhoess/gitredate"
)

func dailyRule(t *testing.T) gitredate.Rule {
	t.Helper()

	rule, err := gitredate.NewIntervalRule(gitredate.RuleConfig{Start: "2020-01-01T00:00:00Z", Interval: 1, Unit: "day"})
	if err != nil {
		t.Fatal(err)
	}

	return rule
}

func loadGraph(t *testing.T, r *testRepo, heads ...plumbing.Hash) *gitredate.RewriteGraph {
	t.Helper()

	g, err := gitredate.LoadGraph(context.Background(), r.s, heads, gitredate.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}

	return g
}

func TestRewriteHistoryLinear(t *testing.T) {
	r := newTestRepo(t)
	chain := r.linearChain(3, chainBase)
	g := loadGraph(t, r, chain[2])

	res, err := gitredate.RewriteHistory(context.Background(), g, dailyRule(t), r.s)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Remap) != 3 {
		t.Fatalf("remap has %d entries, want 3", len(res.Remap))
	}
	if len(res.NewCommits) != 3 {
		t.Fatalf("wrote %d commits, want 3", len(res.NewCommits))
	}

	seen := make(map[plumbing.Hash]bool)
	for old, repl := range res.Remap {
		if repl == old {
			t.Errorf("commit %s mapped to itself, all timestamps changed", old)
		}
		if seen[repl] {
			t.Errorf("replacement %s appears twice", repl)
		}
		seen[repl] = true
	}

	var prev plumbing.Hash
	for i, old := range chain {
		orig := r.getCommit(old)
		c := r.getCommit(res.Remap[old])

		want := time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC)
		if !c.Author.When.Equal(want) || !c.Committer.When.Equal(want) {
			t.Errorf("commit %d: times %v / %v, want %v", i, c.Author.When, c.Committer.When, want)
		}

		if c.TreeHash != orig.TreeHash {
			t.Errorf("commit %d: tree changed from %s to %s", i, orig.TreeHash, c.TreeHash)
		}
		if c.Message != orig.Message {
			t.Errorf("commit %d: message changed to %q", i, c.Message)
		}
		if c.Author.Name != orig.Author.Name || c.Author.Email != orig.Author.Email {
			t.Errorf("commit %d: author identity changed", i)
		}

		if i == 0 {
			if len(c.ParentHashes) != 0 {
				t.Errorf("root gained parents: %v", c.ParentHashes)
			}
		} else {
			if len(c.ParentHashes) != 1 || c.ParentHashes[0] != prev {
				t.Errorf("commit %d: parents %v, want [%s]", i, c.ParentHashes, prev)
			}
		}
		prev = c.Hash
	}

	// the original commits are still there, only unreferenced
	for _, old := range chain {
		r.getCommit(old)
	}
}

func TestRewriteHistoryMergeKeepsParentOrder(t *testing.T) {
	r := newTestRepo(t)
	tree := r.tree("file.txt", "x\n")

	outside := r.commitAt(tree, chainBase, "outside")
	base := r.commitAt(tree, chainBase.Add(1*time.Hour), "base")
	merge := r.commitAt(tree, chainBase.Add(2*time.Hour), "merge", base, outside)

	g, err := gitredate.LoadGraph(context.Background(), r.s, []plumbing.Hash{merge}, gitredate.LoadOptions{
		Boundary: gitredate.NewHashSet(outside),
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := gitredate.RewriteHistory(context.Background(), g, dailyRule(t), r.s)
	if err != nil {
		t.Fatal(err)
	}

	c := r.getCommit(res.Remap[merge])
	if len(c.ParentHashes) != 2 {
		t.Fatalf("merge has %d parents, want 2", len(c.ParentHashes))
	}
	if c.ParentHashes[0] != res.Remap[base] {
		t.Errorf("first parent = %s, want rewritten base %s", c.ParentHashes[0], res.Remap[base])
	}
	if c.ParentHashes[1] != outside {
		t.Errorf("second parent = %s, want untouched boundary %s", c.ParentHashes[1], outside)
	}
}

func TestRewriteHistoryNoop(t *testing.T) {
	r := newTestRepo(t)

	var parents []plumbing.Hash
	chain := make([]plumbing.Hash, 0, 3)
	for i := 0; i < 3; i += 1 {
		tree := r.tree("file.txt", "already scheduled\n")
		h := r.commitAt(tree, time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC), "scheduled", parents...)
		chain = append(chain, h)
		parents = []plumbing.Hash{h}
	}

	g := loadGraph(t, r, chain[2])

	res, err := gitredate.RewriteHistory(context.Background(), g, dailyRule(t), r.s)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.NewCommits) != 0 {
		t.Fatalf("wrote %d commits, want none", len(res.NewCommits))
	}
	for _, h := range chain {
		if res.Remap[h] != h {
			t.Errorf("commit %s did not map to itself", h)
		}
	}
}

func TestRewriteHistoryIdempotent(t *testing.T) {
	r := newTestRepo(t)
	chain := r.linearChain(3, chainBase)

	g := loadGraph(t, r, chain[2])
	first, err := gitredate.RewriteHistory(context.Background(), g, dailyRule(t), r.s)
	if err != nil {
		t.Fatal(err)
	}

	newhead := first.Remap[chain[2]]
	g = loadGraph(t, r, newhead)

	second, err := gitredate.RewriteHistory(context.Background(), g, dailyRule(t), r.s)
	if err != nil {
		t.Fatal(err)
	}

	if len(second.NewCommits) != 0 {
		t.Fatalf("second run wrote %d commits, want none", len(second.NewCommits))
	}
	if second.Remap[newhead] != newhead {
		t.Error("second run moved the head again")
	}
}

func TestRewriteHistoryDeterministic(t *testing.T) {
	run := func() plumbing.Hash {
		r := newTestRepo(t)
		chain := r.linearChain(3, chainBase)
		g := loadGraph(t, r, chain[2])

		res, err := gitredate.RewriteHistory(context.Background(), g, dailyRule(t), r.s)
		if err != nil {
			t.Fatal(err)
		}

		return res.Remap[chain[2]]
	}

	first := run()
	for i := 0; i < 3; i += 1 {
		if got := run(); got != first {
			t.Fatalf("run %d produced head %s, want %s", i, got, first)
		}
	}
}

func TestRewriteHistoryDropsSignature(t *testing.T) {
	r := newTestRepo(t)
	tree := r.tree("file.txt", "signed\n")
	signed := r.signedCommitAt(tree, chainBase, "signed commit")

	g := loadGraph(t, r, signed)

	res, err := gitredate.RewriteHistory(context.Background(), g, dailyRule(t), r.s)
	if err != nil {
		t.Fatal(err)
	}

	c := r.getCommit(res.Remap[signed])
	if c.PGPSignature != "" {
		t.Errorf("signature survived the rewrite: %q", c.PGPSignature)
	}
}

func TestRewriteHistoryKeepsZone(t *testing.T) {
	r := newTestRepo(t)
	chain := r.linearChain(2, chainBase)
	g := loadGraph(t, r, chain[1])

	rule, err := gitredate.NewIntervalRule(gitredate.RuleConfig{Start: "2020-01-01T09:00:00+05:30", Interval: 1, Unit: "hour"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := gitredate.RewriteHistory(context.Background(), g, rule, r.s)
	if err != nil {
		t.Fatal(err)
	}

	for _, old := range chain {
		c := r.getCommit(res.Remap[old])
		if _, offset := c.Committer.When.Zone(); offset != 5*3600+30*60 {
			t.Errorf("commit %s: utc offset = %d, want +05:30", old, offset)
		}
	}
}

func TestRemapTableResolve(t *testing.T) {
	a := gitredate.MustDecodeHashHex("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	b := gitredate.MustDecodeHashHex("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	c := gitredate.MustDecodeHashHex("cccccccccccccccccccccccccccccccccccccccc")

	table := gitredate.RemapTable{a: b}

	if got := table.Resolve(a); got != b {
		t.Errorf("Resolve(a) = %s, want %s", got, b)
	}
	if got := table.Resolve(c); got != c {
		t.Errorf("Resolve(c) = %s, want identity", got)
	}
}
