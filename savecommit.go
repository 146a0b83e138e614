package gitredate

import (
	"context"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// GetHash calculates the hash the commit will have once it is stored,
// without writing it anywhere.
func GetHash(c *object.Commit) (*plumbing.Hash, error) {
	obj := &plumbing.MemoryObject{}

	if err := c.Encode(obj); err != nil {
		return nil, err
	}

	h := obj.Hash()

	return &h, nil
}

// updateHashAndSave encodes the commit, saves it into the storer, and updates
// the Hash field of the commit to the hash of the stored object.
func updateHashAndSave(ctx context.Context, c *object.Commit, s storer.EncodedObjectStorer) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	obj := s.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		return err
	}

	h, err := s.SetEncodedObject(obj)
	if err != nil {
		return err
	}

	c.Hash = h

	return nil
}
