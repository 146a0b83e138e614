package gitredate

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRuleConfig indicates unusable rule parameters. It is
	// detected before any repository access happens.
	ErrInvalidRuleConfig = errors.New("invalid rule configuration")

	// ErrRepositoryCorrupt indicates a commit or parent that cannot be read
	// while the graph is loaded. Nothing has been mutated when this is
	// returned.
	ErrRepositoryCorrupt = errors.New("repository is corrupt")

	// ErrStorageWrite indicates a failed object write during the rewrite.
	// Objects written before the failure remain as unreferenced garbage,
	// no ref has been touched.
	ErrStorageWrite = errors.New("failed to write object")

	// ErrRefMoved indicates a ref that changed between planning and the
	// compare-and-swap update. The ref keeps its concurrent value.
	ErrRefMoved = errors.New("ref moved concurrently")

	// ErrPartialCompletion indicates that some refs were updated and some
	// were not. The per-ref outcome is recorded on the [RefUpdatePlan].
	ErrPartialCompletion = errors.New("only some refs were updated")

	// ErrNoRefs indicates a [Redate] call without any ref to rewrite.
	ErrNoRefs = errors.New("no refs to rewrite")
)

// errorf wraps the error with format and args, unless the error is caused by
// the cancellation of the context, which will be returned directly instead.
func errorf(err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf(format, args...)
}
