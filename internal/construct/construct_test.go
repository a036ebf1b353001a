package construct

import (
	"errors"
	"testing"

	"github.com/gogpu/pen"
)

type fakeDevice struct {
	name   string
	groups int
}

func (d *fakeDevice) Validate() error {
	if d.groups == 0 {
		return errors.New("device has no groups")
	}
	return nil
}

func TestBeginOrGetReturnsSameValue(t *testing.T) {
	var s Set[*fakeDevice]
	id := pen.WaylandID(1)

	a, err := s.BeginOrGet(id, func() *fakeDevice { return &fakeDevice{} })
	if err != nil {
		t.Fatal(err)
	}
	a.name = "first"

	b, err := s.BeginOrGet(id, func() *fakeDevice { return &fakeDevice{} })
	if err != nil {
		t.Fatal(err)
	}
	if b != a {
		t.Error("second BeginOrGet should return the value under construction")
	}
	if b.name != "first" {
		t.Error("accumulated description lost")
	}
}

func TestInvisibleUntilFinalized(t *testing.T) {
	var s Set[*fakeDevice]
	id := pen.WaylandID(2)

	d, _ := s.BeginOrGet(id, func() *fakeDevice { return &fakeDevice{groups: 1} })
	if s.Len() != 0 {
		t.Fatal("device visible before finalize")
	}
	if err := s.Finalize(id); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatal("device not visible after finalize")
	}
	got, ok := s.FindFinished(id)
	if !ok || got != d {
		t.Error("FindFinished should return the finalized value")
	}
}

func TestBeginAfterFinalizeFails(t *testing.T) {
	var s Set[*fakeDevice]
	id := pen.WaylandID(3)

	s.BeginOrGet(id, func() *fakeDevice { return &fakeDevice{groups: 1} })
	if err := s.Finalize(id); err != nil {
		t.Fatal(err)
	}
	_, err := s.BeginOrGet(id, func() *fakeDevice { return &fakeDevice{} })
	if !errors.Is(err, ErrAlreadyFinalized) {
		t.Errorf("err = %v, want ErrAlreadyFinalized", err)
	}
}

func TestFinalizeValidationFailureDiscards(t *testing.T) {
	var s Set[*fakeDevice]
	id := pen.WaylandID(4)

	s.BeginOrGet(id, func() *fakeDevice { return &fakeDevice{groups: 0} })
	if err := s.Finalize(id); err == nil {
		t.Fatal("expected validation error")
	}
	if s.Len() != 0 {
		t.Error("invalid device must not become visible")
	}
	if _, ok := s.Get(id); ok {
		t.Error("invalid device must not linger under construction")
	}
}

func TestSwallowedMessages(t *testing.T) {
	var s Set[*fakeDevice]
	unknown := pen.WaylandID(99)

	// All of these target an id the set has never seen.
	if err := s.Finalize(unknown); err != nil {
		t.Errorf("finalize of unknown id should be swallowed, got %v", err)
	}
	s.Destroy(unknown)
	if _, ok := s.Get(unknown); ok {
		t.Error("Get of unknown id should fail")
	}
	if s.Len() != 0 {
		t.Error("set should still be empty")
	}
}

func TestDestroyBothPhases(t *testing.T) {
	var s Set[*fakeDevice]
	a, b := pen.WaylandID(5), pen.WaylandID(6)

	s.BeginOrGet(a, func() *fakeDevice { return &fakeDevice{groups: 1} })
	s.BeginOrGet(b, func() *fakeDevice { return &fakeDevice{groups: 1} })
	s.Finalize(a)

	s.Destroy(a)
	s.Destroy(b)
	if s.Len() != 0 {
		t.Error("finalized device should be gone")
	}
	if _, ok := s.Get(b); ok {
		t.Error("constructing device should be gone")
	}
}

func TestFinishedPreservesOrder(t *testing.T) {
	var s Set[*fakeDevice]
	ids := []pen.ID{pen.WaylandID(7), pen.WaylandID(8), pen.WaylandID(9)}
	for i, id := range ids {
		d, _ := s.BeginOrGet(id, func() *fakeDevice { return &fakeDevice{groups: 1} })
		d.name = string(rune('a' + i))
		s.Finalize(id)
	}
	got := s.Finished()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, d := range got {
		if d.name != string(rune('a'+i)) {
			t.Errorf("order not preserved: got %q at %d", d.name, i)
		}
	}
}
