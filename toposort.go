package gitredate

import (
	"bytes"
	"container/heap"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// commitHeap orders ready commits by original committer time, then by hash.
// The order is total, so the sort result doesn't depend on map iteration.
type commitHeap []*object.Commit

func (h commitHeap) Len() int {
	return len(h)
}

func (h commitHeap) Less(i, j int) bool {
	ti, tj := h[i].Committer.When, h[j].Committer.When
	if !ti.Equal(tj) {
		return ti.Before(tj)
	}

	return bytes.Compare(h[i].Hash[:], h[j].Hash[:]) < 0
}

func (h commitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *commitHeap) Push(x any) {
	*h = append(*h, x.(*object.Commit))
}

func (h *commitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]

	return x
}

// topoSort orders the in-scope commits so that every commit appears after
// all of its in-scope parents. Edges to boundary commits don't constrain the
// order. The result only depends on the graph, not on iteration order.
func topoSort(g *RewriteGraph) ([]*object.Commit, error) {
	indegree := make(map[plumbing.Hash]int, len(g.Commits))
	children := make(map[plumbing.Hash][]plumbing.Hash, len(g.Commits))

	for h, c := range g.Commits {
		if _, ok := indegree[h]; !ok {
			indegree[h] = 0
		}

		for _, p := range c.ParentHashes {
			if _, in := g.Commits[p]; !in {
				continue
			}

			indegree[h] += 1
			children[p] = append(children[p], h)
		}
	}

	ready := make(commitHeap, 0, len(g.Commits))
	for h, d := range indegree {
		if d == 0 {
			ready = append(ready, g.Commits[h])
		}
	}
	heap.Init(&ready)

	order := make([]*object.Commit, 0, len(g.Commits))
	for ready.Len() > 0 {
		c := heap.Pop(&ready).(*object.Commit)
		order = append(order, c)

		for _, child := range children[c.Hash] {
			indegree[child] -= 1
			if indegree[child] == 0 {
				heap.Push(&ready, g.Commits[child])
			}
		}
	}

	if len(order) != len(g.Commits) {
		return nil, fmt.Errorf("%w: commit graph contains a cycle", ErrRepositoryCorrupt)
	}

	return order, nil
}
