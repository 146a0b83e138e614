package gitredate

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
)

// RefUpdateStatus is the outcome of one planned ref update.
type RefUpdateStatus int

const (
	// RefPlanned means the update has not been applied yet.
	RefPlanned RefUpdateStatus = iota

	// RefUpdated means the compare-and-swap succeeded.
	RefUpdated

	// RefMoved means the ref changed concurrently between planning and
	// applying. It was not overwritten.
	RefMoved

	// RefFailed means the storage reported an error while updating.
	RefFailed
)

func (s RefUpdateStatus) String() string {
	switch s {
	case RefPlanned:
		return "planned"
	case RefUpdated:
		return "updated"
	case RefMoved:
		return "moved"
	case RefFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown (%d)", int(s))
	}
}

// RefUpdate is one planned repoint of a ref onto the rewritten history.
type RefUpdate struct {
	Name plumbing.ReferenceName

	// OldTarget is the hash the ref pointed at when the plan was built. It
	// is the expected value for the compare-and-swap.
	OldTarget plumbing.Hash

	// NewTarget is the hash the ref will point at.
	NewTarget plumbing.Hash

	Status RefUpdateStatus

	// Err carries the per-ref failure, if any.
	Err error
}

// RefUpdatePlan is the list of ref updates one rewrite requires. It is built
// in full by [BuildRefUpdatePlan] before anything moves, and applied in a
// single pass by [RefUpdatePlan.Apply].
type RefUpdatePlan struct {
	Updates []*RefUpdate
}

// BuildRefUpdatePlan scans every ref of the repository and plans an update
// for each one pointing into the rewritten range. Branches and other direct
// refs get the remapped hash. A ref to an annotated tag whose target commit
// was remapped gets a fresh tag object, which is written here already: until
// the ref moves it is just one more unreferenced object. Symbolic refs
// follow the ref they point to and need no entry of their own. Nested tags,
// tags of tags, are left alone.
func BuildRefUpdatePlan(ctx context.Context, s storer.Storer, remap RemapTable) (*RefUpdatePlan, error) {
	iter, err := s.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("cannot iterate refs: %w", err)
	}

	plan := &RefUpdatePlan{}

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ref.Type() != plumbing.HashReference {
			return nil
		}

		old := ref.Hash()
		if n, ok := remap[old]; ok {
			if n != old {
				plan.Updates = append(plan.Updates, &RefUpdate{Name: ref.Name(), OldTarget: old, NewTarget: n})
			}
			return nil
		}

		newhash, rewrote, err := rewriteTagObject(s, old, remap)
		if err != nil {
			return err
		}
		if rewrote {
			plan.Updates = append(plan.Updates, &RefUpdate{Name: ref.Name(), OldTarget: old, NewTarget: newhash})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(plan.Updates, func(i, j int) bool {
		return plan.Updates[i].Name < plan.Updates[j].Name
	})

	return plan, nil
}

// rewriteTagObject recreates the annotated tag at h when h is a tag object
// whose target commit is in the remap table. The new tag keeps name, tagger
// and message, loses its PGP signature, and is saved immediately.
func rewriteTagObject(s storer.Storer, h plumbing.Hash, remap RemapTable) (plumbing.Hash, bool, error) {
	tag, err := object.GetTag(s, h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			// not a tag object, nothing to plan for this ref
			return plumbing.ZeroHash, false, nil
		}
		return plumbing.ZeroHash, false, fmt.Errorf("cannot read tag %s: %w", h, err)
	}

	if tag.TargetType != plumbing.CommitObject {
		return plumbing.ZeroHash, false, nil
	}

	newtarget, ok := remap[tag.Target]
	if !ok || newtarget == tag.Target {
		return plumbing.ZeroHash, false, nil
	}

	newtag := &object.Tag{
		Name:       tag.Name,
		Tagger:     tag.Tagger,
		Message:    tag.Message,
		TargetType: tag.TargetType,
		Target:     newtarget,
	}

	obj := s.NewEncodedObject()
	if err := newtag.Encode(obj); err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("%w: cannot encode tag %s: %s", ErrStorageWrite, tag.Name, err.Error())
	}

	saved, err := s.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("%w: cannot save tag %s: %s", ErrStorageWrite, tag.Name, err.Error())
	}

	return saved, true, nil
}

// Apply performs the plan. Every ref is compare-and-swapped independently: a
// ref that moved since planning is recorded as [RefMoved] with an error
// wrapping [ErrRefMoved], without stopping the other updates.
//
// The returned error is nil when every update succeeded, wraps
// [ErrPartialCompletion] when only some did, and joins the per-ref errors
// when none did. The per-ref outcome is recorded on the entries either way.
func (p *RefUpdatePlan) Apply(ctx context.Context, s storer.ReferenceStorer) error {
	if p == nil || len(p.Updates) == 0 {
		return nil
	}

	updated := 0
	for _, u := range p.Updates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.CheckAndSetReference(
			plumbing.NewHashReference(u.Name, u.NewTarget),
			plumbing.NewHashReference(u.Name, u.OldTarget))

		switch {
		case err == nil:
			u.Status = RefUpdated
			updated += 1
			logger.Info("ref updated", "ref", u.Name, "old", u.OldTarget, "new", u.NewTarget)

		case errors.Is(err, storage.ErrReferenceHasChanged):
			u.Status = RefMoved
			u.Err = fmt.Errorf("%w: %s no longer points at %s", ErrRefMoved, u.Name, u.OldTarget)
			logger.Warn("ref moved concurrently, not overwritten", "ref", u.Name, "expected", u.OldTarget)

		default:
			u.Status = RefFailed
			u.Err = fmt.Errorf("cannot update ref %s: %w", u.Name, err)
			logger.Error("ref update failed", "ref", u.Name, "err", err)
		}
	}

	switch {
	case updated == len(p.Updates):
		return nil
	case updated > 0:
		return fmt.Errorf("%w: %d of %d", ErrPartialCompletion, updated, len(p.Updates))
	default:
		return fmt.Errorf("no ref was updated: %w", errors.Join(p.errs()...))
	}
}

// Counts tallies the entries of the plan by status.
func (p *RefUpdatePlan) Counts() (planned, updated, moved, failed int) {
	for _, u := range p.Updates {
		switch u.Status {
		case RefUpdated:
			updated += 1
		case RefMoved:
			moved += 1
		case RefFailed:
			failed += 1
		default:
			planned += 1
		}
	}

	return
}

func (p *RefUpdatePlan) errs() []error {
	result := make([]error, 0, len(p.Updates))
	for _, u := range p.Updates {
		if u.Err != nil {
			result = append(result, u.Err)
		}
	}

	return result
}
