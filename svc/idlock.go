// A lock on a repository name makes sure multiple redate operations are not
// mutating the same repository at the same time.
//
// [Svc] holds a map from repository name to a waiting channel. The map
// itself lives in a buffered channel of size one, receiving from the channel
// locks the map, sending it back unlocks it.
//
// When trying to lock a repository:
//  1. lock the map
//  2. check if the name has a corresponding channel
//  3. if the name does have a channel, unlock the map, wait on the channel
//     until it is closed, then go to 1.
//  4. if the name doesn't have a channel, create a new channel, set it on
//     the name in the map, unlock the map, and return the closer to the
//     calling operation.
//
// When unlocking, the calling operation locks the map, deletes the channel
// from the map, then closes the channel to notify all waiting operations.

package svc

import "context"

// emptyForChan is just that
type emptyForChan struct{}

// waitingChan contains the waiting channel
type waitingChan struct {
	c <-chan emptyForChan
}

func newWaiter() (*waitingChan, chan<- emptyForChan) {
	c := make(chan emptyForChan)
	return &waitingChan{
		c: c,
	}, c
}

// Done is like context's Done function, wait on the channel
// for the cancellation
func (w *waitingChan) Done() <-chan emptyForChan {
	return w.c
}

// lockRepo tries to lock the given repository name, following the steps
// described at the top of the file.
func (s *Svc) lockRepo(ctx context.Context, name string) (chan<- emptyForChan, error) {
	var repolocks map[string]*waitingChan
	select {
	// lock repolocks
	case repolocks = <-s.repolocks:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var result chan<- emptyForChan

	m, found := repolocks[name]
waitloop:
	for {
		if !found {
			break waitloop
		}

		// unlock repolocks
		s.repolocks <- repolocks

		// wait on done
		select {
		case <-m.Done():
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		// lock repolocks again
		select {
		case repolocks = <-s.repolocks:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m, found = repolocks[name]
	}

	repolocks[name], result = newWaiter()

	s.repolocks <- repolocks

	return result, nil
}

func (s *Svc) unlockRepo(name string, closer chan<- emptyForChan) {
	// lock
	repolocks := <-s.repolocks
	delete(repolocks, name)
	close(closer)
	// unlock
	s.repolocks <- repolocks
}
