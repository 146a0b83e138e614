package gitredate_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/antonhoess/gitredate"
)

func redateExamplePanic(err error) {
	if err != nil {
		log.Panic(err)
	}
}

// Example rewriting a small in-memory history so the commits land one day
// apart, starting at 2020-01-01 09:00 UTC.
func ExampleRedate() {
	s := memory.NewStorage()

	tobj := s.NewEncodedObject()
	redateExamplePanic((&object.Tree{}).Encode(tobj))
	treehash, err := s.SetEncodedObject(tobj)
	redateExamplePanic(err)

	// three commits at odd hours, 37 hours apart
	when := time.Date(2019, 5, 1, 22, 13, 0, 0, time.UTC)
	var parents []plumbing.Hash
	for i := 0; i < 3; i += 1 {
		c := &object.Commit{
			Author:       object.Signature{Name: "A U Thor", Email: "author@example.com", When: when},
			Committer:    object.Signature{Name: "A U Thor", Email: "author@example.com", When: when},
			Message:      fmt.Sprintf("commit %d", i),
			TreeHash:     treehash,
			ParentHashes: parents,
		}

		obj := s.NewEncodedObject()
		redateExamplePanic(c.Encode(obj))
		h, err := s.SetEncodedObject(obj)
		redateExamplePanic(err)

		parents = []plumbing.Hash{h}
		when = when.Add(37 * time.Hour)
	}

	master := plumbing.NewBranchReferenceName("master")
	redateExamplePanic(s.SetReference(plumbing.NewHashReference(master, parents[0])))

	rule, err := gitredate.NewIntervalRule(gitredate.RuleConfig{
		Start:    "2020-01-01T09:00:00Z",
		Interval: 1,
		Unit:     "day",
	})
	redateExamplePanic(err)

	report, err := gitredate.Redate(context.Background(), s, gitredate.RedateOptions{
		Refs: []plumbing.ReferenceName{master},
		Rule: rule,
	})
	redateExamplePanic(err)

	fmt.Printf("rewrote %d of %d commits\n", report.CommitsRewritten, report.CommitsInScope)

	// walk the moved branch, newest first
	ref, err := s.Reference(master)
	redateExamplePanic(err)

	for h := ref.Hash(); ; {
		c, err := object.GetCommit(s, h)
		redateExamplePanic(err)

		fmt.Println(c.Committer.When.Format(time.RFC3339), "-", c.Message)

		if c.NumParents() == 0 {
			break
		}
		h = c.ParentHashes[0]
	}

	// Output:
	// rewrote 3 of 3 commits
	// 2020-01-03T09:00:00Z - commit 2
	// 2020-01-02T09:00:00Z - commit 1
	// 2020-01-01T09:00:00Z - commit 0
}
