package gitredate_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

var (
	testAuthor    = object.Signature{Name: "A U Thor", Email: "author@example.com"}
	testCommitter = object.Signature{Name: "C O Mitter", Email: "committer@example.com"}
)

// testRepo builds git object graphs directly in a memory storage, so tests
// need neither worktrees nor network.
type testRepo struct {
	t *testing.T
	s *memory.Storage
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	return &testRepo{t: t, s: memory.NewStorage()}
}

func (r *testRepo) blob(content string) plumbing.Hash {
	r.t.Helper()

	obj := r.s.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		r.t.Fatalf("cannot get blob writer: %v", err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		r.t.Fatalf("cannot write blob: %v", err)
	}
	if err := w.Close(); err != nil {
		r.t.Fatalf("cannot close blob writer: %v", err)
	}

	h, err := r.s.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("cannot store blob: %v", err)
	}

	return h
}

func (r *testRepo) tree(filename, content string) plumbing.Hash {
	r.t.Helper()

	tree := &object.Tree{Entries: []object.TreeEntry{{
		Name: filename,
		Mode: filemode.Regular,
		Hash: r.blob(content),
	}}}

	obj := r.s.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		r.t.Fatalf("cannot encode tree: %v", err)
	}

	h, err := r.s.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("cannot store tree: %v", err)
	}

	return h
}

func (r *testRepo) commitAt(tree plumbing.Hash, when time.Time, msg string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()

	return r.storeCommit(tree, when, msg, "", parents)
}

func (r *testRepo) signedCommitAt(tree plumbing.Hash, when time.Time, msg string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()

	sig := "-----BEGIN PGP SIGNATURE-----\n\nnotarealsignature\n-----END PGP SIGNATURE-----\n"

	return r.storeCommit(tree, when, msg, sig, parents)
}

func (r *testRepo) storeCommit(tree plumbing.Hash, when time.Time, msg string, pgp string, parents []plumbing.Hash) plumbing.Hash {
	r.t.Helper()

	author := testAuthor
	committer := testCommitter
	author.When = when
	committer.When = when

	c := &object.Commit{
		Author:       author,
		Committer:    committer,
		PGPSignature: pgp,
		Message:      msg,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := r.s.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		r.t.Fatalf("cannot encode commit: %v", err)
	}

	h, err := r.s.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("cannot store commit: %v", err)
	}

	return h
}

func (r *testRepo) branch(name string, h plumbing.Hash) plumbing.ReferenceName {
	r.t.Helper()

	refname := plumbing.NewBranchReferenceName(name)
	if err := r.s.SetReference(plumbing.NewHashReference(refname, h)); err != nil {
		r.t.Fatalf("cannot set branch %s: %v", name, err)
	}

	return refname
}

func (r *testRepo) tag(name string, h plumbing.Hash) plumbing.ReferenceName {
	r.t.Helper()

	refname := plumbing.NewTagReferenceName(name)
	if err := r.s.SetReference(plumbing.NewHashReference(refname, h)); err != nil {
		r.t.Fatalf("cannot set tag %s: %v", name, err)
	}

	return refname
}

func (r *testRepo) annotatedTag(name string, target plumbing.Hash, when time.Time, msg string) plumbing.ReferenceName {
	r.t.Helper()

	tagger := testCommitter
	tagger.When = when

	tag := &object.Tag{
		Name:       name,
		Tagger:     tagger,
		Message:    msg,
		TargetType: plumbing.CommitObject,
		Target:     target,
	}

	obj := r.s.NewEncodedObject()
	if err := tag.Encode(obj); err != nil {
		r.t.Fatalf("cannot encode tag %s: %v", name, err)
	}

	h, err := r.s.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("cannot store tag %s: %v", name, err)
	}

	refname := plumbing.NewTagReferenceName(name)
	if err := r.s.SetReference(plumbing.NewHashReference(refname, h)); err != nil {
		r.t.Fatalf("cannot set tag ref %s: %v", name, err)
	}

	return refname
}

func (r *testRepo) symbolicHead(branch string) {
	r.t.Helper()

	ref := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := r.s.SetReference(ref); err != nil {
		r.t.Fatalf("cannot set HEAD: %v", err)
	}
}

func (r *testRepo) getCommit(h plumbing.Hash) *object.Commit {
	r.t.Helper()

	c, err := object.GetCommit(r.s, h)
	if err != nil {
		r.t.Fatalf("cannot read commit %s: %v", h, err)
	}

	return c
}

func (r *testRepo) refHash(name plumbing.ReferenceName) plumbing.Hash {
	r.t.Helper()

	ref, err := r.s.Reference(name)
	if err != nil {
		r.t.Fatalf("cannot read ref %s: %v", name, err)
	}

	return ref.Hash()
}

// linearChain creates n commits on top of each other, one hour apart
// starting at base, and returns their hashes in parent-first order.
func (r *testRepo) linearChain(n int, base time.Time) []plumbing.Hash {
	r.t.Helper()

	hashes := make([]plumbing.Hash, 0, n)
	var parents []plumbing.Hash

	for i := 0; i < n; i += 1 {
		tree := r.tree("file.txt", fmt.Sprintf("content %d\n", i))
		h := r.commitAt(tree, base.Add(time.Duration(i)*time.Hour), fmt.Sprintf("commit %d", i), parents...)
		hashes = append(hashes, h)
		parents = []plumbing.Hash{h}
	}

	return hashes
}

var chainBase = time.Date(2019, 5, 1, 10, 0, 0, 0, time.UTC)
