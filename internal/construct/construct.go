// Package construct implements the two-phase device announcement state
// machine shared by the backends.
//
// Platforms announce hardware as a burst of description messages
// followed by a "done" marker. A device under construction is invisible
// to the rest of the library; only finalized devices appear in hardware
// reports or resolve events. Messages about unknown or already-finalized
// devices are swallowed, which keeps a buggy or racing server from
// corrupting state.
package construct

import (
	"errors"
	"fmt"

	"github.com/gogpu/pen"
)

// ErrAlreadyFinalized reports a begin for a device that already
// completed construction. The platform re-announcing a live id is a
// protocol violation.
var ErrAlreadyFinalized = errors.New("construct: device already finalized")

// Validator is implemented by device descriptions that have finalize
// preconditions (for example, a pad must own at least one group).
type Validator interface {
	Validate() error
}

type entry[T any] struct {
	id  pen.ID
	val T
}

// Set tracks devices of one kind through construction. T is typically a
// pointer to a device description. Lookups are linear scans; device
// counts are tiny and slices keep announcement order, which the
// hardware reports preserve.
type Set[T any] struct {
	constructing []entry[T]
	finished     []entry[T]
}

// BeginOrGet returns the under-construction value for id, creating it
// with newT on first sight. Fails with ErrAlreadyFinalized if id has
// already finished construction.
func (s *Set[T]) BeginOrGet(id pen.ID, newT func() T) (T, error) {
	for i := range s.constructing {
		if s.constructing[i].id == id {
			return s.constructing[i].val, nil
		}
	}
	for i := range s.finished {
		if s.finished[i].id == id {
			var zero T
			return zero, fmt.Errorf("%w: %v", ErrAlreadyFinalized, id)
		}
	}
	v := newT()
	s.constructing = append(s.constructing, entry[T]{id: id, val: v})
	return v, nil
}

// Get returns the under-construction value for id, or false when id is
// unknown or already finalized. Use this for description messages that
// must not implicitly begin construction.
func (s *Set[T]) Get(id pen.ID) (T, bool) {
	for i := range s.constructing {
		if s.constructing[i].id == id {
			return s.constructing[i].val, true
		}
	}
	var zero T
	return zero, false
}

// Finalize moves id from construction to the finished table. If the
// value implements Validator and validation fails, the device is
// discarded entirely and the error returned; it never becomes visible.
// Finalizing an unknown id is a swallowed no-op.
func (s *Set[T]) Finalize(id pen.ID) error {
	for i := range s.constructing {
		if s.constructing[i].id != id {
			continue
		}
		e := s.constructing[i]
		s.constructing = append(s.constructing[:i], s.constructing[i+1:]...)
		if v, ok := any(e.val).(Validator); ok {
			if err := v.Validate(); err != nil {
				return err
			}
		}
		s.finished = append(s.finished, e)
		return nil
	}
	return nil
}

// Destroy forgets id, whatever phase it is in. Unknown ids are a no-op.
func (s *Set[T]) Destroy(id pen.ID) {
	for i := range s.constructing {
		if s.constructing[i].id == id {
			s.constructing = append(s.constructing[:i], s.constructing[i+1:]...)
			return
		}
	}
	for i := range s.finished {
		if s.finished[i].id == id {
			s.finished = append(s.finished[:i], s.finished[i+1:]...)
			return
		}
	}
}

// Finished returns the finalized values in announcement order. The
// slice is owned by the set; callers must not mutate it.
func (s *Set[T]) Finished() []T {
	out := make([]T, len(s.finished))
	for i := range s.finished {
		out[i] = s.finished[i].val
	}
	return out
}

// FindFinished returns the finalized value for id.
func (s *Set[T]) FindFinished(id pen.ID) (T, bool) {
	for i := range s.finished {
		if s.finished[i].id == id {
			return s.finished[i].val, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of finalized devices.
func (s *Set[T]) Len() int { return len(s.finished) }
